package dispatch

import (
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/gen2brain/beeep"
)

// notifyFunc delivers a local OS notification. Swappable for tests.
var notifyFunc = beeep.Notify

// PlaySound evaluates the payload with ShouldDisplay and, when it passes,
// delivers a sound-only local notification (empty title and body).
// Failures are logged, never surfaced: an inaudible alert must not break
// message handling.
func (d *Dispatcher) PlaySound(msg MessageData) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("notification sound panicked", "panic", r)
		}
	}()

	if !config.GetBool("sound_enabled", true) {
		return
	}
	if !d.ShouldDisplay(msg) {
		return
	}
	if err := notifyFunc("", "", ""); err != nil {
		logging.Warn("failed to play notification sound", "error", err)
	}
}

// Alert delivers a full local notification (title and body) when the
// payload passes ShouldDisplay.
func (d *Dispatcher) Alert(msg MessageData) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("notification alert panicked", "panic", r)
		}
	}()

	if !d.ShouldDisplay(msg) {
		return
	}
	title := msg.Title
	if title == "" {
		title = "New message"
	}
	if err := notifyFunc(title, msg.Body, ""); err != nil {
		logging.Warn("failed to deliver notification", "error", err)
	}
}
