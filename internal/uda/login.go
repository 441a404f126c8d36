package uda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"uda-connector/pkg/htmlutil"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
)

const (
	report_client_authenticate       = "client.authenticate"
	report_client_authenticity_token = "client.authenticity-token"
)

const signInPath = "/en/users/sign_in"

// Phrases of the English sign-in pages, the server answers 200 whether the
// login worked or not so these are the only way to tell the outcomes apart.
// They match the UDA (rails registration app) en locale.
const (
	phraseSignedIn        = "Signed in successfully"
	phraseAlreadySignedIn = "You are already signed in"
	phraseInvalidLogin    = "Invalid User Account Email or password"
)

var errTokenNotFound = errors.New("authenticity token input not found")
var errTokenNoValue = errors.New("authenticity token input has no value")

// decodeText reads the response body as text in the charset announced by
// the response.
func decodeText(res *resty.Response) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func tokenFromDocument(doc *goquery.Document) (string, error) {
	input := doc.Find(`input[name="authenticity_token"]`).First()
	if input.Length() == 0 {
		return "", errTokenNotFound
	}
	token, exists := input.Attr("value")
	if !exists {
		return "", errTokenNoValue
	}
	return token, nil
}

// authenticityToken scrapes the CSRF token out of the sign-in form. The
// status code is not checked, a page without the token fails either way.
func (c *Client) authenticityToken(ctx context.Context) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url(signInPath))
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticity_token,
			fmt.Errorf("fetch sign-in page: %w", err),
		)
		return "", ErrConnectionFailed
	}

	text, err := decodeText(res)
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticity_token,
			fmt.Errorf("decode sign-in page: %w", err),
		)
		return "", ErrConnectionFailed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticity_token,
			fmt.Errorf("parse sign-in page: %w", err),
		)
		return "", ErrConnectionFailed
	}

	token, err := tokenFromDocument(doc)
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticity_token,
			err,
			res.StatusCode(),
		)
		return "", ErrConnectionFailed
	}
	return token, nil
}

// signInForm renders the sign-in form body with its fields in a fixed order.
func signInForm(login, password, token string) string {
	fields := [][2]string{
		{"user[email]", login},
		{"user[password]", password},
		{"authenticity_token", token},
		{"utf8", "✓"},
	}
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = url.QueryEscape(f[0]) + "=" + url.QueryEscape(f[1])
	}
	return strings.Join(encoded, "&")
}

type signInOutcome int

const (
	signInUnknown signInOutcome = iota
	signInSucceeded
	signInRejected
)

func classifySignIn(body string) signInOutcome {
	switch {
	case strings.Contains(body, phraseSignedIn), strings.Contains(body, phraseAlreadySignedIn):
		return signInSucceeded
	case strings.Contains(body, phraseInvalidLogin):
		return signInRejected
	default:
		return signInUnknown
	}
}

// pageSummary is the visible text of an html page, cut to a size that fits
// in a log line.
func pageSummary(body string) string {
	const maxLen = 500

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	var text string
	if len(doc.Nodes) > 0 {
		text = htmlutil.VisibleText(doc.Nodes[0])
	}
	return truncate(text, maxLen)
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	end := maxLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}

func (c *Client) checkCredentials(ctx context.Context, token, login, password string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(signInForm(login, password, token)).
		Post(c.url(signInPath))
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticate,
			fmt.Errorf("sign-in request: %w", err),
			login,
		)
		return ErrConnectionFailed
	}

	if !res.IsSuccess() {
		c.tel.ReportBroken(
			report_client_authenticate,
			fmt.Errorf("sign-in status %d, is the instance up?", res.StatusCode()),
			login,
		)
		return ErrConnectionFailed
	}

	body, err := decodeText(res)
	if err != nil {
		c.tel.ReportBroken(
			report_client_authenticate,
			fmt.Errorf("decode sign-in response: %w", err),
			login,
		)
		return ErrConnectionFailed
	}

	switch classifySignIn(body) {
	case signInSucceeded:
		c.tel.ReportDebug("logged in", login)
		return nil
	case signInRejected:
		c.tel.ReportWarning(
			report_client_authenticate,
			fmt.Errorf("credentials rejected"),
			login,
		)
		return ErrWrongCredentials
	default:
		c.tel.ReportBroken(
			report_client_authenticate,
			fmt.Errorf("unrecognized sign-in response"),
			login,
			pageSummary(body),
		)
		return ErrConnectionFailed
	}
}

// Authenticate logs into UDA, on success the resty client's cookie jar
// carries the session. It returns ErrConnectionFailed or ErrWrongCredentials.
func (c *Client) Authenticate(ctx context.Context, login, password string) error {
	ctx, span := tracer.Start(ctx, "client:Authenticate")
	defer span.End()
	span.SetAttributes(attribute.String("uda.login", login))

	token, err := c.authenticityToken(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to get authenticity token")
		return ErrConnectionFailed
	}

	err = c.checkCredentials(ctx, token, login, password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
