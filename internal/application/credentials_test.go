package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

func TestResolveCredentials(t *testing.T) {
	store := newMockCredentialStore()
	store.values[model.CredentialAPIKey] = "stored-key"
	store.values[model.CredentialAPISecret] = "stored-secret"

	tests := []struct {
		name       string
		store      driven.CredentialStore
		key        string
		secret     string
		wantKey    string
		wantSecret string
	}{
		{"flags win", store, "flag-key", "flag-secret", "flag-key", "flag-secret"},
		{"missing secret from store", store, "flag-key", "", "flag-key", "stored-secret"},
		{"both from store", store, "", "", "stored-key", "stored-secret"},
		{"no store", nil, "", "flag-secret", "", "flag-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, secret := application.ResolveCredentials(context.Background(), tt.store, tt.key, tt.secret)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantSecret, secret)
		})
	}
}

func TestResolveCredentials_StoreErrorYieldsBlank(t *testing.T) {
	store := newMockCredentialStore()
	store.err = driven.ErrEncryptionKeyNotSet

	key, secret := application.ResolveCredentials(context.Background(), store, "", "")

	assert.Empty(t, key)
	assert.Empty(t, secret)
}

func TestSaveCredentials(t *testing.T) {
	store := newMockCredentialStore()

	require.NoError(t, application.SaveCredentials(context.Background(), store, "k", "s"))
	assert.Equal(t, "k", store.values[model.CredentialAPIKey])
	assert.Equal(t, "s", store.values[model.CredentialAPISecret])
}

func TestSaveCredentials_Errors(t *testing.T) {
	t.Run("blank", func(t *testing.T) {
		err := application.SaveCredentials(context.Background(), newMockCredentialStore(), "k", " ")
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("storage disabled", func(t *testing.T) {
		err := application.SaveCredentials(context.Background(), nil, "k", "s")
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("no encryption key", func(t *testing.T) {
		store := newMockCredentialStore()
		store.err = driven.ErrEncryptionKeyNotSet
		err := application.SaveCredentials(context.Background(), store, "k", "s")
		assert.ErrorIs(t, err, model.ErrConfiguration)
		assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
	})

	t.Run("write failure", func(t *testing.T) {
		store := newMockCredentialStore()
		store.err = errors.New("disk full")
		err := application.SaveCredentials(context.Background(), store, "k", "s")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrConfiguration)
	})
}

func TestStoredCredentials(t *testing.T) {
	store := newMockCredentialStore()
	store.values[model.CredentialAPIKey] = "k"
	store.values[model.TokenCredentialName("k")] = "tok"

	creds, err := application.StoredCredentials(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, model.CredentialAPIKey, creds[0].Name)
	assert.Equal(t, "token:k", creds[1].Name)

	_, err = application.StoredCredentials(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestClearCredentials(t *testing.T) {
	store := newMockCredentialStore()
	require.NoError(t, application.SaveCredentials(context.Background(), store, "k", "s"))
	store.values[model.TokenCredentialName("k")] = "tok"
	store.values[model.TokenCredentialName("other")] = "tok-2"

	removed, err := application.ClearCredentials(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	assert.Empty(t, store.values)

	removed, err = application.ClearCredentials(context.Background(), store)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearCredentials_Errors(t *testing.T) {
	_, err := application.ClearCredentials(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	store := newMockCredentialStore()
	store.err = errors.New("disk full")
	_, err = application.ClearCredentials(context.Background(), store)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrConfiguration)
}
