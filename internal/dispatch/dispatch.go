// Package dispatch decides whether an inbound message or push notification
// should surface to the user, and performs deduplication and unread
// signaling.
package dispatch

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/cristianoliveira/chat-intray/internal/viewtracker"
)

// DefaultDedupWindow suppresses repeated notifications for the same
// channel arriving within this interval.
const DefaultDedupWindow = 5 * time.Second

// MessageData is the payload the dispatcher evaluates. It covers both
// OS push notifications (Title/Body/Data) and in-app transport messages
// (Login/Username/IsOwnMessage).
type MessageData struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ChannelID string `json:"channelid"`
	Login     string `json:"login"`
	Username  string `json:"username"`

	// IsOwnMessage is nil when the field is absent from the payload;
	// its presence is what classifies the payload as an in-app message.
	IsOwnMessage *bool `json:"isOwnMessage"`

	Data struct {
		ChannelID string `json:"channelId"`
		Timestamp int64  `json:"timestamp"`
	} `json:"data"`

	Filters struct {
		Values struct {
			Channel []string `json:"channel"`
		} `json:"values"`
	} `json:"filters"`
}

// ParseMessageData decodes a raw payload into MessageData.
func ParseMessageData(raw []byte) (MessageData, error) {
	var msg MessageData
	err := json.Unmarshal(raw, &msg)
	return msg, err
}

// isPush reports whether the payload is an OS push notification rather
// than an in-app message: no sender identity fields, but a title or body.
func (m MessageData) isPush() bool {
	if m.Login != "" || m.Username != "" || m.IsOwnMessage != nil {
		return false
	}
	return m.Title != "" || m.Body != ""
}

// channelID extracts the channel identifier from the explicit fields,
// falling back to the nested filter structure, then to body text.
func (m MessageData) channelID() string {
	if id := channel.Normalize(m.ChannelID); id != "" {
		return id
	}
	if id := channel.Normalize(m.Data.ChannelID); id != "" {
		return id
	}
	if len(m.Filters.Values.Channel) > 0 {
		if id := channel.Normalize(m.Filters.Values.Channel[0]); id != "" {
			return id
		}
	}
	return channel.FromText(m.Body)
}

// dedupEntry records the last delivered notification time for a channel,
// in epoch milliseconds.
type dedupEntry struct {
	Timestamp int64 `json:"timestamp"`
}

// Dispatcher evaluates notification visibility. It reads credentials and
// the dedup cache from the store on every decision; nothing is cached
// across calls since tokens rotate and other processes share the store.
type Dispatcher struct {
	store      store.Store
	window     time.Duration
	selfLabels []string

	// now is an injectable clock for tests.
	now func() time.Time
}

// NewDispatcher creates a Dispatcher backed by s, using the configured
// dedup window and self labels.
func NewDispatcher(s store.Store) *Dispatcher {
	window := time.Duration(config.GetInt("dedup_window_ms", 5000)) * time.Millisecond
	labels := strings.Split(config.Get("self_labels", "Me,Moi"), ",")
	for i := range labels {
		labels[i] = strings.TrimSpace(labels[i])
	}
	return &Dispatcher{
		store:      s,
		window:     window,
		selfLabels: labels,
		now:        time.Now,
	}
}

// SetClock overrides the dispatcher's clock. Intended for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// ShouldDisplay reports whether the payload should produce a user-visible
// alert. Internal failures fail open: a spurious alert beats a silently
// dropped one.
func (d *Dispatcher) ShouldDisplay(msg MessageData) (display bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("notification decision panicked, failing open", "panic", r)
			display = true
		}
	}()

	// Never notify a logged-out user.
	creds, err := session.Load(d.store)
	if err != nil {
		return false
	}

	if msg.isPush() {
		return d.shouldDisplayPush(msg)
	}
	return d.shouldDisplayInApp(msg, creds)
}

func (d *Dispatcher) shouldDisplayPush(msg MessageData) bool {
	id := msg.channelID()
	if id == "" {
		// No identifiable channel: fall back to matching the persisted
		// display name of the viewed channel against the body text.
		if name, ok, _ := d.store.Get(store.KeyViewedChannelName); ok && name != "" {
			if strings.Contains(strings.ToLower(msg.Body), strings.ToLower(name)) {
				return false
			}
		}
		return true
	}

	if d.isDuplicate(id) {
		return false
	}
	d.recordDelivery(id)

	if viewtracker.IsViewed(id) {
		return false
	}
	viewtracker.EmitUnread(id)
	return true
}

func (d *Dispatcher) shouldDisplayInApp(msg MessageData, creds session.Credentials) bool {
	if msg.IsOwnMessage != nil && *msg.IsOwnMessage {
		return false
	}
	if msg.Login != "" && msg.Login == creds.Login {
		return false
	}
	for _, label := range d.selfLabels {
		if label != "" && msg.Username == label {
			return false
		}
	}

	id := msg.channelID()
	if id != "" && viewtracker.IsViewed(id) {
		return false
	}
	return true
}

// isDuplicate reports whether a notification for the channel was delivered
// within the dedup window. It does not update the cache.
func (d *Dispatcher) isDuplicate(id string) bool {
	cache := d.loadCache()
	entry, ok := cache[id]
	if !ok {
		return false
	}
	age := d.now().UnixMilli() - entry.Timestamp
	return age >= 0 && age < d.window.Milliseconds()
}

// recordDelivery stores the delivery timestamp for the channel.
func (d *Dispatcher) recordDelivery(id string) {
	cache := d.loadCache()
	cache[id] = dedupEntry{Timestamp: d.now().UnixMilli()}
	data, err := json.Marshal(cache)
	if err != nil {
		logging.Error("failed to encode notification cache", "error", err)
		return
	}
	if err := d.store.Set(store.KeyNotificationCache, string(data)); err != nil {
		logging.Warn("failed to persist notification cache", "error", err)
	}
}

func (d *Dispatcher) loadCache() map[string]dedupEntry {
	cache := make(map[string]dedupEntry)
	raw, ok, err := d.store.Get(store.KeyNotificationCache)
	if err != nil || !ok || raw == "" {
		return cache
	}
	if err := json.Unmarshal([]byte(raw), &cache); err != nil {
		return make(map[string]dedupEntry)
	}
	return cache
}
