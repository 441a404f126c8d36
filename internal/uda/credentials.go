package uda

import (
	"fmt"
	"net/url"
	"strings"
)

// Credentials identify a UDA instance and the account used to log into it.
type Credentials struct {
	baseUrl  string
	login    string
	password string
}

// NewCredentials validates the triple, the base url must be an absolute
// http(s) origin, a trailing slash is dropped.
func NewCredentials(baseUrl, login, password string) (Credentials, error) {
	baseUrl = strings.TrimRight(strings.TrimSpace(baseUrl), "/")
	if baseUrl == "" {
		return Credentials{}, fmt.Errorf("uda credentials: empty base url")
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return Credentials{}, fmt.Errorf("uda credentials: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Credentials{}, fmt.Errorf("uda credentials: base url %q is not http(s)", baseUrl)
	}
	if parsed.Host == "" {
		return Credentials{}, fmt.Errorf("uda credentials: base url %q has no host", baseUrl)
	}
	if login == "" {
		return Credentials{}, fmt.Errorf("uda credentials: empty login")
	}
	if password == "" {
		return Credentials{}, fmt.Errorf("uda credentials: empty password")
	}

	return Credentials{
		baseUrl:  baseUrl,
		login:    login,
		password: password,
	}, nil
}

func (c Credentials) BaseUrl() string {
	return c.baseUrl
}

func (c Credentials) Login() string {
	return c.login
}

func (c Credentials) Password() string {
	return c.password
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s", c.login, c.baseUrl)
}
