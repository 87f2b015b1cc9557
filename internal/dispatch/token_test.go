package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cristianoliveira/chat-intray/internal/api"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/stretchr/testify/require"
)

var errFailWrites = errors.New("write failed")

func TestRegisterForPushReturnsStableToken(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)

	token := d.RegisterForPush()
	require.NotEmpty(t, token)
	require.Equal(t, token, d.RegisterForPush())

	persisted, ok, err := s.Get(store.KeyPushToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, token, persisted)
}

func TestRegisterForPushDisabled(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)

	config.Set("sound_enabled", "false")
	t.Cleanup(func() { config.Set("sound_enabled", "true") })

	require.Empty(t, d.RegisterForPush())
}

func TestRegisterForPushPersistFailure(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)
	s.FailWrites = errFailWrites

	require.Empty(t, d.RegisterForPush())
}

func TestSyncTokenRequiresLogin(t *testing.T) {
	s := store.NewMemoryStore()
	d := newTestDispatcher(t, s)

	require.False(t, d.SyncToken(context.Background(), api.NewClientWithBase("http://unused")))
}

func TestSyncTokenRegistersWithBackend(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	require.True(t, d.SyncToken(context.Background(), api.NewClientWithBase(srv.URL)))
	require.Equal(t, "/push-tokens", gotPath)
}

func TestRemoveTokenClearsLocalStateEvenOnBackendFailure(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)

	require.NotEmpty(t, d.RegisterForPush())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	require.False(t, d.RemoveToken(context.Background(), api.NewClientWithBase(srv.URL)))

	_, ok, err := s.Get(store.KeyPushToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveTokenNoLocalToken(t *testing.T) {
	s := loggedInStore(t)
	d := newTestDispatcher(t, s)

	require.False(t, d.RemoveToken(context.Background(), api.NewClientWithBase("http://unused")))
}
