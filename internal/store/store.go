// Package store provides the persisted key-value store for chat-intray.
//
// All session state (credentials, viewed channel name, unread map,
// notification dedup cache, push token) lives under fixed keys. Values are
// encrypted at rest; a missing key is never an error.
package store

// Fixed storage keys. Values are JSON strings unless noted.
const (
	// KeyCredentials holds the serialized session credentials.
	KeyCredentials = "userCredentials"
	// KeyViewedChannelName holds the display name of the viewed channel
	// (plain string, used for body-text matching).
	KeyViewedChannelName = "viewedChannelName"
	// KeyUnreadChannels holds the unread-channel map.
	KeyUnreadChannels = "unreadChannels"
	// KeyNotificationCache holds the notification dedup map.
	KeyNotificationCache = "notification_cache"
	// KeyPushToken holds the push notification token (plain string).
	KeyPushToken = "pushToken"
)

// Store defines the key-value storage operations.
// Get returns ok=false (not an error) when the key is absent.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
