// Package viewtracker tracks which channel the user is currently viewing.
//
// The notification dispatch runs outside any UI tree (push handlers,
// transport callbacks), so the viewed channel lives in a process-wide cell
// rather than in view state. The unread emitter carries "mark this
// channel unread" signals from the dispatch back into the notify center
// without a direct dependency between the two.
package viewtracker

import (
	"sort"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/channel"
)

var (
	mu     sync.RWMutex
	viewed string

	listenerMu sync.Mutex
	listeners  map[int]func(channelID string)
	nextID     int
)

// ViewedChannel returns the normalized ID of the channel currently being
// viewed, or empty string when none is open.
func ViewedChannel() string {
	mu.RLock()
	defer mu.RUnlock()
	return viewed
}

// SetViewedChannel records the channel currently being viewed.
// The ID is normalized before storing; empty input clears the value.
func SetViewedChannel(id string) {
	mu.Lock()
	defer mu.Unlock()
	viewed = channel.Normalize(id)
}

// IsViewed reports whether id refers to the currently viewed channel.
func IsViewed(id string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return viewed != "" && viewed == channel.Normalize(id)
}

// EmitUnread notifies registered listeners that channelID received a
// message while not being viewed. Listeners run synchronously in
// registration order.
func EmitUnread(channelID string) {
	listenerMu.Lock()
	fns := make([]func(string), 0, len(listeners))
	ids := make([]int, 0, len(listeners))
	for id := range listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, listeners[id])
	}
	listenerMu.Unlock()

	normalized := channel.Normalize(channelID)
	for _, fn := range fns {
		fn(normalized)
	}
}

// AddUnreadListener registers fn for unread signals and returns a function
// that removes it.
func AddUnreadListener(fn func(channelID string)) (remove func()) {
	listenerMu.Lock()
	defer listenerMu.Unlock()
	if listeners == nil {
		listeners = make(map[int]func(string))
	}
	id := nextID
	nextID++
	listeners[id] = fn
	return func() {
		listenerMu.Lock()
		defer listenerMu.Unlock()
		delete(listeners, id)
	}
}

// Reset clears the viewed channel and all listeners. Intended for tests
// and provider teardown.
func Reset() {
	mu.Lock()
	viewed = ""
	mu.Unlock()
	listenerMu.Lock()
	listeners = nil
	listenerMu.Unlock()
}
