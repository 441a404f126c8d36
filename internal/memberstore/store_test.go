package memberstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"uda-connector/internal/components/chrono"
	"uda-connector/pkg/udamember"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestStore(t *testing.T) {
	sqlite, err := OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer sqlite.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	clock := &chrono.FixedTime{At: time.Unix(1700000000, 0)}
	store, err := NewStore(ctx, sqlite, clock)
	if err != nil {
		t.Fatal(err)
	}

	{
		members, err := store.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, members, 0)

		_, ok, err := store.LastSync(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}

	first := []udamember.Member{
		udamember.New(2, nil, "Jonette", "Doe", "jonette@example.org", nil, false),
		udamember.New(1, ptr("M-001"), "Jon", "Doe", "jon@example.org", ptr("Club A"), true),
	}
	{
		err := store.Save(ctx, "https://uda.example.org", first)
		if err != nil {
			t.Fatal(err)
		}

		members, err := store.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		diff := cmp.Diff([]udamember.Member{first[1], first[0]}, members)
		if diff != "" {
			t.Fatal(diff)
		}
	}

	second := []udamember.Member{
		udamember.New(1999, nil, "Last", "Competitor", "last@example.org", ptr("Club B"), true),
	}
	{
		clock.At = clock.At.Add(time.Hour)
		err := store.Save(ctx, "https://uda.example.org", second)
		if err != nil {
			t.Fatal(err)
		}

		members, err := store.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		diff := cmp.Diff(second, members)
		if diff != "" {
			t.Fatal(diff)
		}

		sync, ok, err := store.LastSync(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, Sync{
			BaseUrl:     "https://uda.example.org",
			Time:        time.Unix(1700000000+3600, 0).UTC(),
			MemberCount: 1,
		}, sync)
	}
}

func TestStoreDuplicateIds(t *testing.T) {
	sqlite, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer sqlite.Close()

	ctx := context.Background()
	store, err := NewStore(ctx, sqlite, &chrono.FixedTime{At: time.Unix(1700000000, 0)})
	require.NoError(t, err)

	// the export does not promise unique ids
	members := []udamember.Member{
		udamember.New(7, nil, "Second", "Entry", "second@example.org", nil, true),
		udamember.New(3, nil, "Other", "Member", "other@example.org", nil, false),
		udamember.New(7, ptr("M-007"), "Third", "Entry", "third@example.org", ptr("Club C"), false),
	}
	require.NoError(t, store.Save(ctx, "https://uda.example.org", members))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	diff := cmp.Diff([]udamember.Member{members[1], members[0], members[2]}, listed)
	if diff != "" {
		t.Fatal(diff)
	}

	sync, ok, err := store.LastSync(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, sync.MemberCount)
}

func TestStoreReplacesLegacyMemberTable(t *testing.T) {
	sqlite, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer sqlite.Close()

	ctx := context.Background()
	_, err = sqlite.ExecContext(ctx, `
		create table member (
			id integer primary key,
			membership_number text,
			first_name text not null,
			last_name text not null,
			email text not null,
			club text,
			confirmed integer not null
		)`,
	)
	require.NoError(t, err)

	store, err := NewStore(ctx, sqlite, chrono.NewStandardTime())
	require.NoError(t, err)

	members := []udamember.Member{
		udamember.New(5, nil, "Jon", "Doe", "jon@example.org", nil, true),
		udamember.New(5, nil, "Jon", "Doe", "jon@example.org", nil, true),
	}
	require.NoError(t, store.Save(ctx, "https://uda.example.org", members))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestOpenDBFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "members.db")
	sqlite, err := OpenDB(path)
	require.NoError(t, err)
	defer sqlite.Close()

	_, err = NewStore(context.Background(), sqlite, chrono.NewStandardTime())
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestOpenDBInvalid(t *testing.T) {
	_, err := OpenDB("")
	require.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	require.True(t, isRemote("libsql://db.example.org"))
	require.True(t, isRemote("https://db.example.org"))
	require.False(t, isRemote("members.db"))
	require.False(t, isRemote(":memory:"))
}
