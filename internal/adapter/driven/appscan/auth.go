package appscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// AuthClient implements driven.Authenticator. It is stateless: the session
// owner decides when to log in and where to keep the token.
type AuthClient struct {
	http *http.Client
}

// NewAuthClient creates an AuthClient on top of httpClient.
func NewAuthClient(httpClient *http.Client) *AuthClient {
	return &AuthClient{http: httpClient}
}

// Login exchanges an API key pair for a bearer token.
func (a *AuthClient) Login(ctx context.Context, server string, creds model.Credentials, clientIdentity string) (model.Token, error) {
	body, err := json.Marshal(apiKeyLoginRequest{
		KeyID:      creds.Key,
		KeySecret:  creds.Secret,
		ClientType: clientIdentity,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"api/v4/Account/ApiKeyLogin", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login to %s: %w: %w", server, model.ErrConnectivity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("login to %s: %w", server, &statusError{
			Method:     http.MethodPost,
			Path:       "api/v4/Account/ApiKeyLogin",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		})
	}

	var out apiKeyLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	token := model.Token(out.Token)
	if token.IsZero() {
		return "", fmt.Errorf("login to %s: %w: service returned an empty token", server, model.ErrAuthentication)
	}
	return token, nil
}

// ValidateToken probes an authenticated endpoint with token. A 401 or 403
// means the token is no longer valid; other failures are returned as errors.
func (a *AuthClient) ValidateToken(ctx context.Context, server string, token model.Token) (bool, error) {
	if token.IsZero() {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"api/v4/Account/TenantInfo", nil)
	if err != nil {
		return false, fmt.Errorf("creating token probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("probing token: %w: %w", model.ErrConnectivity, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("probing token: HTTP %d", resp.StatusCode)
	}
}
