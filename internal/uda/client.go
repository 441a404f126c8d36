package uda

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"uda-connector/internal/components/assert"
	"uda-connector/internal/components/telemetry"
	"uda-connector/internal/spreadsheet"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("uda-connector/uda")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type HttpClientOptions struct {
	// BaseUrl restricts redirects to the UDA host.
	BaseUrl string
	// Timeout defaults to 30 seconds.
	Timeout   time.Duration
	UserAgent string
	// CloudflareBypass swaps the transport for one whose TLS fingerprint
	// passes Cloudflare's browser check.
	CloudflareBypass bool
	// MessageOutput receives every HTTP exchange, it can be nil.
	MessageOutput telemetry.MessageOutput
}

// NewHttpClient creates a resty client carrying its own cookie jar, the jar
// is what holds the UDA session between calls.
func NewHttpClient(opts HttpClientOptions, tel telemetry.API) (*resty.Client, error) {
	assert.NotNil(tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	if baseUrl.Hostname() != "" {
		httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	httpClient.SetTimeout(timeout)

	telemetry.InstrumentResty(httpClient, telemetry.NewScopedAPI("uda_http", tel), opts.MessageOutput)

	return httpClient, nil
}

// Client drives a UDA instance through a caller-owned resty client.
// It holds no state of its own, the session lives in the resty client's
// cookie jar.
type Client struct {
	baseUrl string
	http    *resty.Client
	tel     telemetry.API

	openWorkbook func(data []byte) (spreadsheet.Workbook, error)
}

func NewClient(http *resty.Client, baseUrl string, tel telemetry.API) *Client {
	assert.NotNil(http)
	assert.NotNil(tel)
	assert.NotEmptyStr(baseUrl)

	return &Client{
		baseUrl:      strings.TrimRight(baseUrl, "/"),
		http:         http,
		tel:          telemetry.NewScopedAPI("uda_client", tel),
		openWorkbook: spreadsheet.OpenXls,
	}
}

func (c *Client) BaseUrl() string {
	return c.baseUrl
}

func (c *Client) url(path string) string {
	return c.baseUrl + path
}

// Login creates a client for the credentials' instance and authenticates it.
func Login(ctx context.Context, http *resty.Client, creds Credentials, tel telemetry.API) (*Client, error) {
	client := NewClient(http, creds.BaseUrl(), tel)
	err := client.Authenticate(ctx, creds.Login(), creds.Password())
	if err != nil {
		return nil, err
	}
	return client, nil
}
