package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations that read
// or write secret values when SCANGATE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set SCANGATE_SECRET_KEY")

// CredentialStore persists the API key pair and cached tokens. Values cross
// this boundary in plaintext; the adapter encrypts them at rest.
type CredentialStore interface {
	// Set stores or replaces the named value.
	Set(ctx context.Context, name, plaintext string) error

	// Get returns the named value, or "" when nothing is stored under name.
	Get(ctx context.Context, name string) (string, error)

	// List describes every stored entry ordered by name. It needs no
	// encryption key because values are not decrypted.
	List(ctx context.Context) ([]model.StoredCredential, error)

	// Delete removes the named entries and returns how many existed.
	Delete(ctx context.Context, names ...string) (int, error)
}
