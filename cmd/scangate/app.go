package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ericfisherdev/scangate/internal/adapter/driven/appscan"
	sqliteadapter "github.com/ericfisherdev/scangate/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/config"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// app holds the process-wide dependencies shared by every subcommand.
type app struct {
	out    io.Writer
	errOut io.Writer

	started bool
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteadapter.DB

	// Both stores are nil when local storage is disabled or failed to open.
	creds   driven.CredentialStore
	history driven.ScanHistoryStore
}

// setup loads configuration, installs the run logger and opens local storage.
// It runs once, before any subcommand.
func (a *app) setup(ctx context.Context) error {
	a.started = true

	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	// 2. Structured logger tagged with a per-run id.
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("run_id", uuid.NewString())
	slog.SetDefault(a.logger)
	slog.Debug("config loaded",
		"download_dir", cfg.DownloadDir,
		"poll_interval", cfg.PollInterval,
		"download_timeout", cfg.DownloadTimeout,
		"db_path", cfg.DBPath,
		"client_identity", cfg.ClientIdentity,
	)

	// 3. Open local storage. Failure here only disables history and stored credentials.
	if !cfg.HistoryEnabled() {
		slog.Debug("local storage disabled")
		return nil
	}
	db, err := sqliteadapter.Open(ctx, cfg.DBPath)
	if err != nil {
		slog.Warn("local storage unavailable, history and stored credentials disabled", "path", cfg.DBPath, "error", err)
		return nil
	}
	a.db = db
	a.creds = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	a.history = sqliteadapter.NewScanRepo(db)
	return nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// connection is an authenticated-on-demand session with the scan service.
type connection struct {
	gateway *application.AuthenticationGateway
	client  *appscan.Client
	key     string
	secret  string
}

// connect resolves credentials and the service URL and wires the REST
// adapters. No network call happens here.
func (a *app) connect(ctx context.Context, f *serviceFlags) (*connection, error) {
	key, secret := application.ResolveCredentials(ctx, a.creds, f.key, f.secret)

	server, err := application.ResolveServer(key, f.serviceURL)
	if err != nil {
		return nil, err
	}

	httpClient := appscan.NewHTTPClient(appscan.TransportOptions{
		AcceptInvalidCerts: f.allowUntrusted,
		RateLimit:          a.cfg.RateLimit,
	})
	gateway := application.NewAuthenticationGateway(
		appscan.NewAuthClient(httpClient),
		a.creds,
		server,
		f.allowUntrusted,
		a.cfg.ClientIdentity,
	)
	slog.Debug("service resolved", "server", gateway.Server(), "allow_untrusted", f.allowUntrusted)

	return &connection{
		gateway: gateway,
		client:  appscan.NewClient(httpClient, gateway),
		key:     key,
		secret:  secret,
	}, nil
}
