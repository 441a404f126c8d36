package uda

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"uda-connector/internal/components/telemetry"
)

const testAuthenticityToken = "BDv-07yMs8kMDnRn2hVgpSmqn88V_XhCZxImtcXr3u6OOmpnsy0WpFD49rTOuOEfJG_PptBBJag094Vd0uuyZg"

const (
	testLogin    = "login"
	testPassword = "password"
)

const sessionCookie = "_uda_session"

func signInPage(token string) string {
	return fmt.Sprintf(
		`<html><body><input name="authenticity_token" value="%s"></body></html>`,
		token,
	)
}

func expectedSignInBody(login, password, token string) string {
	return fmt.Sprintf(
		"user%%5Bemail%%5D=%s&user%%5Bpassword%%5D=%s&authenticity_token=%s&utf8=%%E2%%9C%%93",
		login, password, token,
	)
}

// fakeUda emulates the handful of UDA pages the connector talks to. Each
// handler can be swapped by a test, the default ones implement a working
// instance with a single account.
type fakeUda struct {
	server *httptest.Server

	mutex      sync.Mutex
	signInGets int
	signInForm []string

	SignInPage http.HandlerFunc
	SignIn     http.HandlerFunc
	Export     http.HandlerFunc
}

func newFakeUda(t testing.TB) *fakeUda {
	f := &fakeUda{}
	f.SignInPage = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, signInPage(testAuthenticityToken))
	}
	f.SignIn = f.defaultSignIn
	f.Export = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/en/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			f.mutex.Lock()
			f.signInGets++
			f.mutex.Unlock()
			f.SignInPage(w, r)
		case http.MethodPost:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mutex.Lock()
			f.signInForm = append(f.signInForm, string(body))
			f.mutex.Unlock()
			f.SignIn(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/en/organization_memberships/export.xls", func(w http.ResponseWriter, r *http.Request) {
		f.Export(w, r)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUda) URL() string {
	return f.server.URL
}

// lastSignInForm returns the body of the latest sign-in POST.
func (f *fakeUda) lastSignInForm() string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.signInForm) == 0 {
		return ""
	}
	return f.signInForm[len(f.signInForm)-1]
}

func (f *fakeUda) signInPageLoads() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.signInGets
}

func (f *fakeUda) signInPosts() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.signInForm)
}

func (f *fakeUda) defaultSignIn(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(sessionCookie); err == nil {
		fmt.Fprint(w, "<html><body>You are already signed in.</body></html>")
		return
	}

	body := f.lastSignInForm()
	if body != expectedSignInBody(testLogin, testPassword, testAuthenticityToken) {
		fmt.Fprint(w, "<html><body>Invalid User Account Email or password.</body></html>")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "authenticated", Path: "/"})
	fmt.Fprint(w, "<html><body>Signed in successfully.</body></html>")
}

// requireSession makes an export handler answer 401 to clients that did
// not sign in first.
func requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func newTestClient(t testing.TB, baseUrl string) (*Client, *telemetry.Recorder) {
	tel := telemetry.NewRecorder()
	httpClient, err := NewHttpClient(HttpClientOptions{BaseUrl: baseUrl}, tel)
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(httpClient, baseUrl, tel), tel
}
