// Package notify tracks per-channel unread state for the chat client.
package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/cristianoliveira/chat-intray/internal/viewtracker"
)

// ErrNotInitialized indicates the Center was not constructed via NewCenter.
var ErrNotInitialized = errors.New("notify: center not initialized, use NewCenter")

// UnreadEntry records unread activity for a single channel.
type UnreadEntry struct {
	// Timestamp is the arrival time of the most recent unread message,
	// in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Count is the number of messages received since the channel was
	// last read.
	Count int `json:"count"`
}

// Center holds the active channel, the unread-channel map, and the
// last-sent-message timestamp. Mutations persist the full map under a
// fixed storage key; storage failures are logged and the in-memory state
// stays authoritative for the session.
type Center struct {
	mu             sync.Mutex
	store          store.Store
	unread         map[string]UnreadEntry
	active         string
	lastSent       time.Time
	removeListener func()

	// now is an injectable clock for tests.
	now func() time.Time
}

// NewCenter creates a Center backed by s, loading the persisted unread map
// once. It also subscribes to the view tracker's unread emitter so that
// dispatch-side signals land in the map.
func NewCenter(s store.Store) *Center {
	c := &Center{
		store:  s,
		unread: make(map[string]UnreadEntry),
		now:    time.Now,
	}
	c.loadUnread()
	c.removeListener = viewtracker.AddUnreadListener(func(channelID string) {
		c.MarkChannelUnread(channelID, true)
	})
	return c
}

func (c *Center) loadUnread() {
	raw, ok, err := c.store.Get(store.KeyUnreadChannels)
	if err != nil {
		logging.Warn("failed to load unread channels", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var m map[string]UnreadEntry
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		logging.Warn("corrupt unread channel map, starting empty", "error", err)
		return
	}
	c.unread = m
}

// persistUnread writes the full map as JSON. Callers hold c.mu.
func (c *Center) persistUnread() {
	data, err := json.Marshal(c.unread)
	if err != nil {
		logging.Error("failed to encode unread channels", "error", err)
		return
	}
	if err := c.store.Set(store.KeyUnreadChannels, string(data)); err != nil {
		logging.Warn("failed to persist unread channels", "error", err)
	}
}

// UpdateActiveChannel sets the active channel, mirrors it into the view
// tracker, clears any unread entry for it, and persists the channel's
// display name for body-text matching. Empty id clears the active channel
// and deletes the stored name.
func (c *Center) UpdateActiveChannel(id, title string) error {
	if c == nil || c.store == nil {
		return ErrNotInitialized
	}
	id = channel.Normalize(id)

	c.mu.Lock()
	c.active = id
	if id != "" {
		if _, had := c.unread[id]; had {
			delete(c.unread, id)
			c.persistUnread()
		}
	}
	c.mu.Unlock()

	viewtracker.SetViewedChannel(id)

	if id == "" || title == "" {
		if err := c.store.Delete(store.KeyViewedChannelName); err != nil {
			logging.Warn("failed to delete viewed channel name", "error", err)
		}
		return nil
	}
	if err := c.store.Set(store.KeyViewedChannelName, title); err != nil {
		logging.Warn("failed to persist viewed channel name", "error", err)
	}
	return nil
}

// ActiveChannel returns the normalized active channel ID, or empty string.
func (c *Center) ActiveChannel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// RecordSentMessage records the most recent outbound send time. Consumers
// use it to suppress self-echo from the transport.
func (c *Center) RecordSentMessage(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.IsZero() {
		t = c.now()
	}
	c.lastSent = t
}

// LastSentMessage returns the most recent outbound send time.
func (c *Center) LastSentMessage() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSent
}

// MarkChannelUnread marks a channel unread or read.
//
// Marking unread is a no-op for an empty ID or the active channel (the
// viewed channel is never unread). Repeated unread marks increment Count
// and refresh Timestamp; marking read deletes the entry. Every mutation
// persists the full map.
func (c *Center) MarkChannelUnread(id string, unread bool) error {
	if c == nil || c.store == nil {
		return ErrNotInitialized
	}
	id = channel.Normalize(id)
	if id == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if unread {
		if id == c.active {
			return nil
		}
		entry := c.unread[id]
		entry.Count++
		entry.Timestamp = c.now().UnixMilli()
		c.unread[id] = entry
	} else {
		if _, had := c.unread[id]; !had {
			return nil
		}
		delete(c.unread, id)
	}
	c.persistUnread()
	return nil
}

// Unread returns a snapshot of the unread-channel map.
func (c *Center) Unread() map[string]UnreadEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]UnreadEntry, len(c.unread))
	for k, v := range c.unread {
		out[k] = v
	}
	return out
}

// IsUnread reports whether the channel has unread activity.
func (c *Center) IsUnread(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.unread[channel.Normalize(id)]
	return ok
}

// Close clears the viewed-channel singleton, unsubscribes from the unread
// emitter, and deletes the persisted viewed-channel name.
func (c *Center) Close() error {
	if c == nil || c.store == nil {
		return ErrNotInitialized
	}
	if c.removeListener != nil {
		c.removeListener()
	}
	viewtracker.SetViewedChannel("")
	if err := c.store.Delete(store.KeyViewedChannelName); err != nil {
		logging.Warn("failed to delete viewed channel name", "error", err)
	}
	return nil
}

// SetClock overrides the clock used for timestamps. Intended for tests.
func (c *Center) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
