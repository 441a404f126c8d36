package uda

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCredentials(t *testing.T) {
	creds, err := NewCredentials("https://uda.example.org/", "jon@example.org", "secret")
	require.NoError(t, err)
	require.Equal(t, "https://uda.example.org", creds.BaseUrl())
	require.Equal(t, "jon@example.org", creds.Login())
	require.Equal(t, "secret", creds.Password())
	require.NotContains(t, creds.String(), "secret")

	invalid := []struct {
		baseUrl  string
		login    string
		password string
	}{
		{baseUrl: "", login: "a", password: "b"},
		{baseUrl: "ftp://uda.example.org", login: "a", password: "b"},
		{baseUrl: "uda.example.org", login: "a", password: "b"},
		{baseUrl: "https://", login: "a", password: "b"},
		{baseUrl: "https://uda.example.org", login: "", password: "b"},
		{baseUrl: "https://uda.example.org", login: "a", password: ""},
	}
	for _, test := range invalid {
		_, err := NewCredentials(test.baseUrl, test.login, test.password)
		require.Error(t, err, test)
	}
}
