package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

func TestResolveServer(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		serviceURL string
		want       string
		wantErr    bool
	}{
		{"default region", "abc123", "", application.DefaultServerURL, false},
		{"EU prefix", "EUabc", "", application.EUServerURL, false},
		{"eu prefix", "eu-abc", "", application.EUServerURL, false},
		{"explicit URL wins over prefix", "EUabc", "https://scan.internal:9443", "https://scan.internal:9443/", false},
		{"explicit URL keeps slash", "local_abc", "https://scan.internal/", "https://scan.internal/", false},
		{"local key needs URL", "local_abc", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := application.ResolveServer(tt.key, tt.serviceURL)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateCredentials_BlankRejectedWithoutLogin(t *testing.T) {
	cases := []struct{ key, secret string }{
		{"", "secret"},
		{"key", ""},
		{"  ", "secret"},
		{"key", "\t"},
		{"", ""},
	}

	for _, c := range cases {
		auth := &mockAuthenticator{}
		gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example", false, model.ClientTypeCLI)

		ok, err := gw.UpdateCredentials(context.Background(), c.key, c.secret)

		assert.False(t, ok)
		assert.ErrorIs(t, err, model.ErrConfiguration)
		assert.Equal(t, int32(0), auth.logins.Load(), "no login for %q/%q", c.key, c.secret)
	}
}

func TestUpdateCredentials_LogsInAndPersistsToken(t *testing.T) {
	auth := &mockAuthenticator{}
	store := newMockCredentialStore()
	gw := application.NewAuthenticationGateway(auth, store, "https://svc.example", false, model.ClientTypeCLI)

	ok, err := gw.UpdateCredentials(context.Background(), "key", "secret")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://svc.example/", gw.Server())
	assert.Equal(t, "Bearer token-key", gw.AuthorizationHeader())
	assert.Equal(t, "token-key", store.values[model.TokenCredentialName("key")])
}

func TestUpdateCredentials_LoginRejected(t *testing.T) {
	auth := &mockAuthenticator{
		login: func(context.Context, string, model.Credentials) (model.Token, error) {
			return "", errors.New("HTTP 500")
		},
	}
	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)

	ok, err := gw.UpdateCredentials(context.Background(), "key", "secret")

	assert.False(t, ok)
	assert.ErrorIs(t, err, model.ErrAuthentication)
	assert.Empty(t, gw.AuthorizationHeader())
}

func TestUpdateCredentials_StoreWithoutKeyStillLogsIn(t *testing.T) {
	store := newMockCredentialStore()
	store.err = driven.ErrEncryptionKeyNotSet
	gw := application.NewAuthenticationGateway(&mockAuthenticator{}, store, "https://svc.example/", false, model.ClientTypeCLI)

	ok, err := gw.UpdateCredentials(context.Background(), "key", "secret")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsTokenExpired_ValidTokenSkipsLogin(t *testing.T) {
	auth := &mockAuthenticator{}
	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)
	_, err := gw.UpdateCredentials(context.Background(), "key", "secret")
	require.NoError(t, err)

	assert.False(t, gw.IsTokenExpired(context.Background()))
	assert.Equal(t, int32(1), auth.logins.Load())
}

func TestIsTokenExpired_ProbeErrorIsFailClosed(t *testing.T) {
	auth := &mockAuthenticator{
		validate: func(context.Context, model.Token) (bool, error) {
			return false, errors.New("probe failed")
		},
	}
	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)
	_, err := gw.UpdateCredentials(context.Background(), "key", "secret")
	require.NoError(t, err)

	// The probe failure triggers a refresh, which succeeds.
	assert.False(t, gw.IsTokenExpired(context.Background()))
	assert.Equal(t, int32(2), auth.logins.Load())
}

func TestIsTokenExpired_NoCredentials(t *testing.T) {
	auth := &mockAuthenticator{}
	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)

	assert.True(t, gw.IsTokenExpired(context.Background()))
	assert.Equal(t, int32(0), auth.logins.Load())
}

func TestIsTokenExpired_ConcurrentCallersShareOneLogin(t *testing.T) {
	var stale atomic.Bool
	var inFlight, maxInFlight atomic.Int32

	auth := &mockAuthenticator{
		validate: func(_ context.Context, token model.Token) (bool, error) {
			if stale.Load() && token == "token-1" {
				return false, nil
			}
			return !token.IsZero(), nil
		},
	}
	var issued atomic.Int32
	auth.login = func(context.Context, string, model.Credentials) (model.Token, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		if issued.Add(1) == 1 {
			return "token-1", nil
		}
		return "token-2", nil
	}

	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)
	_, err := gw.UpdateCredentials(context.Background(), "key", "secret")
	require.NoError(t, err)
	stale.Store(true)

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.False(t, gw.IsTokenExpired(context.Background()))
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "logins must never overlap")
	assert.Equal(t, int32(2), auth.logins.Load(), "initial login plus exactly one refresh")
	assert.Equal(t, "Bearer token-2", gw.AuthorizationHeader())
}

func TestIsTokenExpired_ConcurrentWithCredentialUpdates(t *testing.T) {
	var inFlight, maxInFlight, issued atomic.Int32

	auth := &mockAuthenticator{
		// Only the first token goes stale; every later one stays valid.
		validate: func(_ context.Context, token model.Token) (bool, error) {
			return !token.IsZero() && token != "token-1", nil
		},
	}
	auth.login = func(context.Context, string, model.Credentials) (model.Token, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return model.Token(fmt.Sprintf("token-%d", issued.Add(1))), nil
	}

	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)
	_, err := gw.UpdateCredentials(context.Background(), "key", "secret")
	require.NoError(t, err)

	const callers = 20
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			assert.False(t, gw.IsTokenExpired(context.Background()))
		}()
		go func() {
			defer wg.Done()
			<-start
			ok, err := gw.UpdateCredentials(context.Background(), fmt.Sprintf("key-%d", i), "secret")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "logins must never overlap")
	// Initial login, one per update, and at most one refresh of the stale token.
	logins := auth.logins.Load()
	assert.GreaterOrEqual(t, logins, int32(1+callers))
	assert.LessOrEqual(t, logins, int32(2+callers))
	assert.NotEqual(t, "Bearer token-1", gw.AuthorizationHeader())
}

func TestAuthenticate_ReusesCachedToken(t *testing.T) {
	store := newMockCredentialStore()
	store.values[model.TokenCredentialName("key")] = "cached"

	auth := &mockAuthenticator{
		validate: func(_ context.Context, token model.Token) (bool, error) {
			return token == "cached", nil
		},
	}
	gw := application.NewAuthenticationGateway(auth, store, "https://svc.example/", false, model.ClientTypeCLI)

	require.NoError(t, gw.Authenticate(context.Background(), "key", "secret"))
	assert.Equal(t, int32(0), auth.logins.Load())
	assert.Equal(t, "Bearer cached", gw.AuthorizationHeader())
}

func TestAuthenticate_StaleCacheLogsIn(t *testing.T) {
	store := newMockCredentialStore()
	store.values[model.TokenCredentialName("key")] = "stale"

	auth := &mockAuthenticator{
		validate: func(_ context.Context, token model.Token) (bool, error) {
			return token == "token-key", nil
		},
	}
	gw := application.NewAuthenticationGateway(auth, store, "https://svc.example/", false, model.ClientTypeCLI)

	require.NoError(t, gw.Authenticate(context.Background(), "key", "secret"))
	assert.Equal(t, int32(1), auth.logins.Load())
	assert.Equal(t, "token-key", store.values[model.TokenCredentialName("key")])
}

func TestAuthenticate_Failure(t *testing.T) {
	auth := &mockAuthenticator{
		login: func(context.Context, string, model.Credentials) (model.Token, error) {
			return "", model.ErrAuthentication
		},
	}
	gw := application.NewAuthenticationGateway(auth, nil, "https://svc.example/", false, model.ClientTypeCLI)

	err := gw.Authenticate(context.Background(), "key", "secret")
	assert.ErrorIs(t, err, model.ErrAuthentication)
}
