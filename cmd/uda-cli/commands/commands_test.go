package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"uda-connector/internal/uda"
	"uda-connector/pkg/udamember"

	"github.com/stretchr/testify/require"
)

func fakeUda(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/en/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<input name="authenticity_token" value="token">`)
			return
		}
		r.ParseForm()
		if r.PostForm.Get("user[password]") != "secret" {
			fmt.Fprint(w, "Invalid User Account Email or password.")
			return
		}
		fmt.Fprint(w, "Signed in successfully.")
	})
	mux.HandleFunc("/en/organization_memberships/export.xls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "uda.json5")
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginCommand(t *testing.T) {
	server := fakeUda(t)

	path := writeConfig(t, fmt.Sprintf(`{
		// comments are allowed
		base_url: "%s",
		login: "jon@example.org",
		password: "secret"
	}`, server.URL))

	out, err := run(t, "--config", path, "login")
	require.NoError(t, err)
	require.Contains(t, out, "logged in as jon@example.org")
	require.NotContains(t, out, "secret")

	err = os.WriteFile(filepath.Join(filepath.Dir(path), "uda.local.json5"), []byte(`{password: "wrong"}`), 0600)
	require.NoError(t, err)

	_, err = run(t, "--config", path, "login")
	require.Error(t, err)
	require.Contains(t, err.Error(), describe(uda.ErrWrongCredentials))
}

func TestMembersCommandLackOfPermissions(t *testing.T) {
	server := fakeUda(t)
	path := writeConfig(t, fmt.Sprintf(
		`{base_url: "%s", login: "jon@example.org", password: "secret"}`,
		server.URL,
	))

	_, err := run(t, "--config", path, "members")
	require.Error(t, err)
	require.Contains(t, err.Error(), describe(uda.ErrLackOfPermissions))
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.json5"), "login")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no config found")
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, `{base_url: "not a url", login: "a", password: "b"}`)
	_, err := run(t, "--config", path, "login")
	require.Error(t, err)
}

func ptr(s string) *string {
	return &s
}

func TestRenderMembers(t *testing.T) {
	members := []udamember.Member{
		udamember.New(1, ptr("M-001"), "Jon", "Doe", "jon@example.org", ptr("Club A"), true),
		udamember.New(2, nil, "Jonette", "Doe", "jonette@example.org", nil, false),
	}

	var out bytes.Buffer
	renderMembers(&out, members)
	rendered := out.String()
	require.Contains(t, rendered, "Jon Doe")
	require.Contains(t, rendered, "Club A")
	require.Contains(t, rendered, "jonette@example.org")
	require.Equal(t, 1, strings.Count(rendered, "M-001"))

	out.Reset()
	renderMatches(&out, udamember.Search(members, "jon doe", 0.9))
	require.Contains(t, out.String(), "1.00")

	out.Reset()
	require.NoError(t, writeJson(&out, members))
	require.Contains(t, out.String(), `"membership_number": "M-001"`)
}
