// Package errors provides error presentation handlers.
package errors

import "sync"

// Handler is the interface for surfacing errors to the user.
// Different implementations handle errors differently based on context:
// the CLI prints through the colors package, the TUI collects messages for
// the status line.
type Handler interface {
	Error(msg string)
	Warning(msg string)
	Info(msg string)
	Success(msg string)
}

// ColorOutput abstracts the colors package for the CLI handler.
type ColorOutput interface {
	Error(msgs ...string)
	Warning(msgs ...string)
	Info(msgs ...string)
	Success(msgs ...string)
}

// CLIHandler prints messages to stdout/stderr using the colors package.
type CLIHandler struct {
	colors ColorOutput
}

// NewCLIHandler creates a CLI error handler.
func NewCLIHandler(colors ColorOutput) *CLIHandler {
	return &CLIHandler{colors: colors}
}

func (h *CLIHandler) Error(msg string)   { h.colors.Error(msg) }
func (h *CLIHandler) Warning(msg string) { h.colors.Warning(msg) }
func (h *CLIHandler) Info(msg string)    { h.colors.Info(msg) }
func (h *CLIHandler) Success(msg string) { h.colors.Success(msg) }

// MessageType classifies a collected message for styling.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// CollectedMessage is a message captured by the TUIHandler.
type CollectedMessage struct {
	Type MessageType
	Text string
}

// TUIHandler collects messages for display in a status line instead of
// writing to the terminal, which would corrupt the TUI frame.
type TUIHandler struct {
	mu       sync.Mutex
	messages []CollectedMessage
}

// NewTUIHandler creates a TUI error handler.
func NewTUIHandler() *TUIHandler {
	return &TUIHandler{}
}

func (h *TUIHandler) Error(msg string)   { h.collect(MessageError, msg) }
func (h *TUIHandler) Warning(msg string) { h.collect(MessageWarning, msg) }
func (h *TUIHandler) Info(msg string)    { h.collect(MessageInfo, msg) }
func (h *TUIHandler) Success(msg string) { h.collect(MessageSuccess, msg) }

func (h *TUIHandler) collect(t MessageType, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, CollectedMessage{Type: t, Text: msg})
}

// Drain returns and clears the collected messages.
func (h *TUIHandler) Drain() []CollectedMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.messages
	h.messages = nil
	return out
}
