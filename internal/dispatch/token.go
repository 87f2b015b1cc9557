package dispatch

import (
	"context"

	"github.com/cristianoliveira/chat-intray/internal/api"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/google/uuid"
)

// RegisterForPush retrieves (or mints) this client's push token. A denial
// or failure yields the empty string, never an error: missing notification
// permission is a normal outcome.
func (d *Dispatcher) RegisterForPush() string {
	if !config.GetBool("sound_enabled", true) {
		// Notifications disabled is the desktop equivalent of a
		// permission denial.
		return ""
	}
	if token, ok, err := d.store.Get(store.KeyPushToken); err == nil && ok && token != "" {
		return token
	}
	token := uuid.NewString()
	if err := d.store.Set(store.KeyPushToken, token); err != nil {
		logging.Warn("failed to persist push token", "error", err)
		return ""
	}
	return token
}

// SyncToken registers the push token with the backend, keyed by contract
// number and account API key. Reports boolean success.
func (d *Dispatcher) SyncToken(ctx context.Context, client *api.Client) bool {
	creds, err := session.Load(d.store)
	if err != nil {
		return false
	}
	token := d.RegisterForPush()
	if token == "" {
		return false
	}
	return client.SyncPushToken(ctx, creds, token)
}

// RemoveToken deletes the push token from the backend and from local
// storage. Reports boolean success of the backend removal; local state is
// cleared regardless.
func (d *Dispatcher) RemoveToken(ctx context.Context, client *api.Client) bool {
	token, ok, err := d.store.Get(store.KeyPushToken)
	if err != nil || !ok || token == "" {
		return false
	}
	creds, credErr := session.Load(d.store)

	removed := false
	if credErr == nil {
		removed = client.RemovePushToken(ctx, creds, token)
	}
	if err := d.store.Delete(store.KeyPushToken); err != nil {
		logging.Warn("failed to delete local push token", "error", err)
	}
	return removed
}
