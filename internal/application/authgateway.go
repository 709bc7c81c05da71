package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Service endpoints selected by API key prefix when no explicit URL is given.
const (
	DefaultServerURL = "https://cloud.appscan.com/"
	EUServerURL      = "https://eu.cloud.appscan.com/"
)

// ResolveServer picks the service base URL. An explicit serviceURL always
// wins. Otherwise keys prefixed "EU"/"eu" route to the EU data center, and
// "local_" keys are rejected because they belong to a self-hosted service
// whose URL must be given. The result always ends with a slash.
func ResolveServer(key, serviceURL string) (string, error) {
	if u := strings.TrimSpace(serviceURL); u != "" {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		return u, nil
	}

	switch {
	case strings.HasPrefix(key, "local_"):
		return "", fmt.Errorf("%w: a service URL is required for local API keys", model.ErrConfiguration)
	case strings.HasPrefix(key, "EU"), strings.HasPrefix(key, "eu"):
		return EUServerURL, nil
	default:
		return DefaultServerURL, nil
	}
}

// Compile-time interface satisfaction check.
var _ driven.Session = (*AuthenticationGateway)(nil)

// AuthenticationGateway owns one authenticated session: the credentials, the
// current bearer token and the server it belongs to. It is the only writer of
// the token. Reads go through atomics; refreshes are serialized by mu so at
// most one login is in flight per gateway.
type AuthenticationGateway struct {
	auth               driven.Authenticator
	store              driven.CredentialStore // Optional; nil disables token caching.
	server             string
	acceptInvalidCerts bool
	clientIdentity     string

	mu    sync.Mutex
	creds atomic.Pointer[model.Credentials]
	token atomic.Pointer[model.Token]
}

// NewAuthenticationGateway creates a gateway for server. store may be nil.
func NewAuthenticationGateway(
	auth driven.Authenticator,
	store driven.CredentialStore,
	server string,
	acceptInvalidCerts bool,
	clientIdentity string,
) *AuthenticationGateway {
	if !strings.HasSuffix(server, "/") {
		server += "/"
	}
	return &AuthenticationGateway{
		auth:               auth,
		store:              store,
		server:             server,
		acceptInvalidCerts: acceptInvalidCerts,
		clientIdentity:     clientIdentity,
	}
}

// Server returns the service base URL, always with a trailing slash.
func (g *AuthenticationGateway) Server() string { return g.server }

// AcceptInvalidCerts reports whether TLS verification is disabled for this session.
func (g *AuthenticationGateway) AcceptInvalidCerts() bool { return g.acceptInvalidCerts }

// Token returns the current token, or "" before the first login.
func (g *AuthenticationGateway) Token() model.Token {
	if t := g.token.Load(); t != nil {
		return *t
	}
	return ""
}

// AuthorizationHeader returns the bearer header value for the current token.
func (g *AuthenticationGateway) AuthorizationHeader() string {
	t := g.Token()
	if t.IsZero() {
		return ""
	}
	return "Bearer " + string(t)
}

// IsTokenExpired reports whether the session still lacks a valid token after
// attempting a refresh. The fast path probes the current token without
// locking. On failure it takes the lock, and logs in again unless another
// caller already replaced the token while it waited. Probe errors count as
// expired.
func (g *AuthenticationGateway) IsTokenExpired(ctx context.Context) bool {
	seen := g.Token()
	if g.tokenValid(ctx, seen) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if current := g.Token(); current != seen && !current.IsZero() {
		return false
	}

	creds := g.creds.Load()
	if creds == nil || creds.IsBlank() {
		slog.Warn("token expired and no credentials are available to refresh it")
		return true
	}

	if _, err := g.login(ctx, *creds, true); err != nil {
		slog.Error("token refresh failed", "server", g.server, "error", err)
		return true
	}
	return false
}

func (g *AuthenticationGateway) tokenValid(ctx context.Context, t model.Token) bool {
	if t.IsZero() {
		return false
	}
	ok, err := g.auth.ValidateToken(ctx, g.server, t)
	if err != nil {
		slog.Debug("token probe failed, treating token as expired", "error", err)
		return false
	}
	return ok
}

// Login replaces the credentials and logs in with them. With persist set and
// a credential store configured, the new token is also cached locally.
func (g *AuthenticationGateway) Login(ctx context.Context, creds model.Credentials, persist bool) (bool, error) {
	if creds.IsBlank() {
		return false, fmt.Errorf("%w: API key and secret are required", model.ErrConfiguration)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.creds.Store(&creds)
	return g.login(ctx, creds, persist)
}

// UpdateCredentials validates and installs a new key pair, then logs in with
// persist enabled. Blank input is rejected before any locking or network call.
func (g *AuthenticationGateway) UpdateCredentials(ctx context.Context, key, secret string) (bool, error) {
	creds, err := model.NewCredentials(key, secret)
	if err != nil {
		return false, err
	}
	return g.Login(ctx, creds, true)
}

// Authenticate installs the key pair and reuses a cached token for it when
// the service still accepts that token; otherwise it logs in.
func (g *AuthenticationGateway) Authenticate(ctx context.Context, key, secret string) error {
	creds, err := model.NewCredentials(key, secret)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.creds.Store(&creds)
	if cached := g.cachedToken(ctx, creds.Key); !cached.IsZero() {
		g.token.Store(&cached)
	}
	g.mu.Unlock()

	if g.IsTokenExpired(ctx) {
		return fmt.Errorf("%w: unable to log in to %s", model.ErrAuthentication, g.server)
	}
	return nil
}

// login performs the remote login. The caller must hold mu.
func (g *AuthenticationGateway) login(ctx context.Context, creds model.Credentials, persist bool) (bool, error) {
	token, err := g.auth.Login(ctx, g.server, creds, g.clientIdentity)
	if err != nil {
		if !errors.Is(err, model.ErrAuthentication) && !errors.Is(err, model.ErrConnectivity) {
			err = fmt.Errorf("%w: %w", model.ErrAuthentication, err)
		}
		return false, err
	}

	g.token.Store(&token)
	slog.Debug("logged in", "server", g.server)

	if persist {
		g.persistToken(ctx, creds.Key, token)
	}
	return true, nil
}

func (g *AuthenticationGateway) persistToken(ctx context.Context, key string, token model.Token) {
	if g.store == nil {
		return
	}
	if err := g.store.Set(ctx, model.TokenCredentialName(key), string(token)); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			slog.Debug("token not cached: encryption key not configured")
			return
		}
		slog.Warn("failed to cache token", "error", err)
	}
}

func (g *AuthenticationGateway) cachedToken(ctx context.Context, key string) model.Token {
	if g.store == nil {
		return ""
	}
	v, err := g.store.Get(ctx, model.TokenCredentialName(key))
	if err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			slog.Warn("failed to read cached token", "error", err)
		}
		return ""
	}
	return model.Token(v)
}
