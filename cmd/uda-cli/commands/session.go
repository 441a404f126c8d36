package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"uda-connector/internal/components/configutil"
	"uda-connector/internal/components/telemetry"
	"uda-connector/internal/uda"
)

type Config struct {
	BaseUrl          string           `json:"base_url"`
	Login            string           `json:"login"`
	Password         string           `json:"password"`
	UserAgent        string           `json:"user_agent"`
	CloudflareBypass bool             `json:"cloudflare_bypass"`
	TimeoutSeconds   int              `json:"timeout_seconds"`
	Telemetry        telemetry.Config `json:"telemetry"`
}

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("no config found at %s (or %s)", path, configutil.LocalPath(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// session holds what every command needs to talk to UDA.
type session struct {
	cfg    Config
	creds  uda.Credentials
	tel    telemetry.API
	client *uda.Client
	otel   telemetry.Otel
}

func (s session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := s.otel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

func openSession(ctx context.Context) (session, error) {
	cfg, err := readConfig(*configPath)
	if err != nil {
		return session{}, err
	}
	creds, err := uda.NewCredentials(cfg.BaseUrl, cfg.Login, cfg.Password)
	if err != nil {
		return session{}, err
	}

	otel, err := telemetry.SetupOtel(ctx, "uda-cli", cfg.Telemetry)
	if err != nil {
		return session{}, fmt.Errorf("setup telemetry: %w", err)
	}

	var output telemetry.MessageOutput
	if *dumpHttp != "" {
		fsOutput, err := telemetry.NewFilesystemOutput(*dumpHttp)
		if err != nil {
			return session{}, fmt.Errorf("create http dump directory: %w", err)
		}
		output = fsOutput
	}

	tel := telemetry.SlogAPI{}
	httpClient, err := uda.NewHttpClient(uda.HttpClientOptions{
		BaseUrl:          creds.BaseUrl(),
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		UserAgent:        cfg.UserAgent,
		CloudflareBypass: cfg.CloudflareBypass,
		MessageOutput:    output,
	}, tel)
	if err != nil {
		return session{}, err
	}

	return session{
		cfg:    cfg,
		creds:  creds,
		tel:    tel,
		client: uda.NewClient(httpClient, creds.BaseUrl(), tel),
		otel:   otel,
	}, nil
}

// describe turns the connector's error kinds into a message for a person at
// a terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, uda.ErrConnectionFailed):
		return "could not reach UDA or understand its sign-in page"
	case errors.Is(err, uda.ErrWrongCredentials):
		return "UDA rejected the login or password"
	case errors.Is(err, uda.ErrLackOfPermissions):
		return "the account is not allowed to export organization memberships"
	case errors.Is(err, uda.ErrOrganizationMembershipsAccessFailed):
		return "could not download the organization membership export"
	case errors.Is(err, uda.ErrMalformedXlsFile):
		return "the organization membership export could not be read"
	default:
		return err.Error()
	}
}
