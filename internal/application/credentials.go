package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

var errStorageDisabled = fmt.Errorf("%w: credential storage is disabled or unavailable (SCANGATE_DB_PATH)", model.ErrConfiguration)

// ResolveCredentials fills a missing key or secret from store. Values given
// on the command line always take priority. store may be nil.
func ResolveCredentials(ctx context.Context, store driven.CredentialStore, key, secret string) (string, string) {
	if store == nil || (key != "" && secret != "") {
		return key, secret
	}

	lookup := func(name string) string {
		v, err := store.Get(ctx, name)
		if err != nil {
			if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
				slog.Warn("failed to read stored credential", "name", name, "error", err)
			}
			return ""
		}
		return v
	}

	if key == "" {
		key = lookup(model.CredentialAPIKey)
	}
	if secret == "" {
		secret = lookup(model.CredentialAPISecret)
	}
	return key, secret
}

// SaveCredentials validates and stores an API key pair in store.
func SaveCredentials(ctx context.Context, store driven.CredentialStore, key, secret string) error {
	creds, err := model.NewCredentials(key, secret)
	if err != nil {
		return err
	}
	if store == nil {
		return errStorageDisabled
	}
	if err := store.Set(ctx, model.CredentialAPIKey, creds.Key); err != nil {
		return wrapStoreErr(err)
	}
	if err := store.Set(ctx, model.CredentialAPISecret, creds.Secret); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// StoredCredentials describes what the local store holds, without values.
func StoredCredentials(ctx context.Context, store driven.CredentialStore) ([]model.StoredCredential, error) {
	if store == nil {
		return nil, errStorageDisabled
	}
	creds, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored credentials: %w", err)
	}
	return creds, nil
}

// ClearCredentials removes the stored key pair and every cached token, and
// returns how many entries were removed.
func ClearCredentials(ctx context.Context, store driven.CredentialStore) (int, error) {
	creds, err := StoredCredentials(ctx, store)
	if err != nil {
		return 0, err
	}

	names := make([]string, 0, len(creds))
	for _, c := range creds {
		names = append(names, c.Name)
	}
	removed, err := store.Delete(ctx, names...)
	if err != nil {
		return 0, fmt.Errorf("clearing stored credentials: %w", err)
	}
	slog.Debug("stored credentials cleared", "removed", removed)
	return removed, nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	return fmt.Errorf("saving credentials: %w", err)
}
