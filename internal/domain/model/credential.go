package model

import (
	"fmt"
	"strings"
	"time"
)

// Credentials holds an API key/secret pair. A Credentials value is never
// mutated field-by-field; holders replace the whole pair.
type Credentials struct {
	Key    string
	Secret string
}

// NewCredentials returns a Credentials pair, rejecting a blank key or secret.
func NewCredentials(key, secret string) (Credentials, error) {
	c := Credentials{Key: key, Secret: secret}
	if c.IsBlank() {
		return Credentials{}, fmt.Errorf("%w: API key and secret are required", ErrConfiguration)
	}
	return c, nil
}

// IsBlank reports whether either half of the pair is empty or whitespace.
func (c Credentials) IsBlank() bool {
	return strings.TrimSpace(c.Key) == "" || strings.TrimSpace(c.Secret) == ""
}

// Token is an opaque bearer token issued by the scan service. Its expiry is
// tracked remotely, so a cached Token must be re-validated before use.
type Token string

// IsZero reports whether no token has been issued yet.
func (t Token) IsZero() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Stored credential names used by the local credential store.
const (
	CredentialAPIKey    = "api_key"
	CredentialAPISecret = "api_secret"
	CredentialToken     = "token"
)

// TokenCredentialName is the store name of the cached token for an API key.
// Each key caches its own token, so switching keys never reuses another
// key's session.
func TokenCredentialName(key string) string {
	return CredentialToken + ":" + key
}

// StoredCredential describes an entry in the local credential store. The
// value itself stays encrypted and is never listed.
type StoredCredential struct {
	Name      string
	UpdatedAt time.Time
}
