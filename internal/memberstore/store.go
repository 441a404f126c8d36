// Package memberstore keeps the latest retrieved roster of a UDA instance in
// a SQLite database.
package memberstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"uda-connector/internal/components/assert"
	"uda-connector/internal/components/chrono"
	"uda-connector/pkg/udamember"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func isRemote(path string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// OpenDB opens a local sqlite file, or a remote libsql database when path is
// a libsql/http(s)/ws(s) url.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, wrapOpenDB(fmt.Errorf("a path was not specified"))
	}

	if isRemote(path) {
		db, err := sql.Open("libsql", path)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// a single connection serializes writers, WAL lets readers through
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}

	return db, nil
}

type Store struct {
	db    *sql.DB
	clock chrono.TimeAPI
}

// NewStore creates the tables if they are missing.
func NewStore(ctx context.Context, db *sql.DB, clock chrono.TimeAPI) (Store, error) {
	assert.NotNil(db)
	assert.NotNil(clock)

	err := dropLegacyMemberTable(ctx, db)
	if err != nil {
		return Store{}, fmt.Errorf("create member store schema: %w", err)
	}
	_, err = db.ExecContext(ctx, Schema)
	if err != nil {
		return Store{}, fmt.Errorf("create member store schema: %w", err)
	}
	return Store{db: db, clock: clock}, nil
}

// dropLegacyMemberTable drops a member table keyed on the UDA id, the roster
// is rewritten on every Save so nothing is lost.
func dropLegacyMemberTable(ctx context.Context, db *sql.DB) error {
	var tables int
	err := db.QueryRowContext(
		ctx,
		"select count(*) from sqlite_master where type = 'table' and name = 'member'",
	).Scan(&tables)
	if err != nil || tables == 0 {
		return err
	}

	var positions int
	err = db.QueryRowContext(
		ctx,
		"select count(*) from pragma_table_info('member') where name = 'position'",
	).Scan(&positions)
	if err != nil || positions > 0 {
		return err
	}

	_, err = db.ExecContext(ctx, "drop table member")
	return err
}

type Sync struct {
	BaseUrl     string
	Time        time.Time
	MemberCount int
}

// Save replaces the stored roster with members and records the sync.
func (s Store) Save(ctx context.Context, baseUrl string, members []udamember.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from member")
	if err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx, `
		insert into member(position, id, membership_number, first_name, last_name, email, club, confirmed)
		values (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, m := range members {
		_, err = insert.ExecContext(
			ctx,
			i,
			int64(m.Id),
			nullString(m.MembershipNumber),
			m.FirstName,
			m.LastName,
			m.Email,
			nullString(m.Club),
			m.Confirmed,
		)
		if err != nil {
			return fmt.Errorf("insert member %d: %w", m.Id, err)
		}
	}

	_, err = tx.ExecContext(
		ctx,
		"insert into sync(base_url, time, member_count) values (?, ?, ?)",
		baseUrl, s.clock.Now().Unix(), len(members),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// List returns the stored roster ordered by id. Members sharing an id keep
// the order they were saved in.
func (s Store) List(ctx context.Context) ([]udamember.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, membership_number, first_name, last_name, email, club, confirmed
		from member
		order by id, position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []udamember.Member{}
	for rows.Next() {
		var (
			id               int64
			membershipNumber sql.NullString
			m                udamember.Member
			club             sql.NullString
		)
		err = rows.Scan(&id, &membershipNumber, &m.FirstName, &m.LastName, &m.Email, &club, &m.Confirmed)
		if err != nil {
			return nil, err
		}
		m.Id = uint64(id)
		m.MembershipNumber = stringPtr(membershipNumber)
		m.Club = stringPtr(club)
		members = append(members, m)
	}
	return members, rows.Err()
}

// LastSync returns the most recent sync, the bool is false when the store was
// never written.
func (s Store) LastSync(ctx context.Context) (Sync, bool, error) {
	var (
		sync     Sync
		unixTime int64
	)
	err := s.db.QueryRowContext(
		ctx,
		"select base_url, time, member_count from sync order by id desc limit 1",
	).Scan(&sync.BaseUrl, &unixTime, &sync.MemberCount)
	if err == sql.ErrNoRows {
		return Sync{}, false, nil
	}
	if err != nil {
		return Sync{}, false, err
	}
	sync.Time = time.Unix(unixTime, 0).UTC()
	return sync, true, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
