// Package session provides credential storage for the chat client.
//
// Credentials are owned by the auth flow; the messaging core borrows a
// snapshot per operation and never caches it, since tokens rotate on
// refresh.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/store"
)

// ErrNotLoggedIn indicates that no credentials are persisted.
var ErrNotLoggedIn = errors.New("not logged in")

// Credentials holds the session credentials for the chat backend.
type Credentials struct {
	ContractNumber string `json:"contractNumber"`
	Login          string `json:"login"`
	AccessToken    string `json:"accessToken"`
	RefreshToken   string `json:"refreshToken"`
	AccountAPIKey  string `json:"accountApiKey"`
}

// Valid reports whether the credentials carry the fields the messaging
// core needs.
func (c Credentials) Valid() bool {
	return c.ContractNumber != "" && c.Login != "" && c.AccountAPIKey != ""
}

// Load reads the persisted credentials. Missing or corrupt state is
// reported as ErrNotLoggedIn, never as a decode failure: a client without
// readable credentials is simply logged out.
func Load(s store.Store) (Credentials, error) {
	raw, ok, err := s.Get(store.KeyCredentials)
	if err != nil {
		return Credentials{}, fmt.Errorf("session: load credentials: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Credentials{}, ErrNotLoggedIn
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, ErrNotLoggedIn
	}
	if !creds.Valid() {
		return Credentials{}, ErrNotLoggedIn
	}
	return creds, nil
}

// Save persists the credentials. Unlike the other storage writes, a
// failure here is the operation's failure and is returned to the caller.
func Save(s store.Store, creds Credentials) error {
	if !creds.Valid() {
		return fmt.Errorf("session: incomplete credentials")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("session: encode credentials: %w", err)
	}
	if err := s.Set(store.KeyCredentials, string(data)); err != nil {
		return fmt.Errorf("session: save credentials: %w", err)
	}
	return nil
}

// Clear removes the persisted credentials.
func Clear(s store.Store) error {
	if err := s.Delete(store.KeyCredentials); err != nil {
		return fmt.Errorf("session: clear credentials: %w", err)
	}
	return nil
}
