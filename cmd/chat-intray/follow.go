/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/conn"
	"github.com/cristianoliveira/chat-intray/internal/dispatch"
	"github.com/cristianoliveira/chat-intray/internal/tui"
	"github.com/spf13/cobra"
)

var (
	followTitle string
	followPlain bool
)

// NewFollowCmd creates the follow command.
func NewFollowCmd() *cobra.Command {
	followCmd := &cobra.Command{
		Use:   "follow <channel>",
		Short: "Follow a channel in real-time",
		Long: `Follow a channel in real-time.

Marks the channel as viewed for the duration of the session, so its own
messages do not raise notifications. Messages on other subscribed channels
still update unread state and trigger alerts.

USAGE:
    chat-intray follow <channel> [OPTIONS]

OPTIONS:
    --title <title>   Display title for the channel
    --plain           Line output instead of the interactive view
    -h, --help        Show this help`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := ensureDeps(); err != nil {
				return err
			}
			return followChannel(c.Context(), args[0], followTitle, followPlain)
		},
	}

	followCmd.Flags().StringVar(&followTitle, "title", "", "Display title for the channel")
	followCmd.Flags().BoolVar(&followPlain, "plain", false, "Line output instead of the interactive view")

	return followCmd
}

func followChannel(ctx context.Context, channelID, title string, plain bool) error {
	id := channel.Normalize(channelID)
	if err := center.UpdateActiveChannel(id, title); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	defer func() {
		_ = center.UpdateActiveChannel("", "")
	}()

	events := make(chan tea.Msg, 64)
	emit := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	manager := conn.NewManager(conn.Options{
		Store: kvStore,
		API:   apiClient,
		OnMessage: func(ev conn.InboundEvent) {
			if ev.Kind == "message" {
				if md, err := dispatch.ParseMessageData(ev.Raw); err == nil {
					dispatcher.PlaySound(md)
				}
			}
			emit(tui.EventMsg(ev))
		},
		OnError: func(ev conn.ErrorEvent) {
			emit(tui.ErrMsg(ev))
		},
		OnClose: func() {
			emit(tui.ErrMsg(conn.ErrorEvent{Reason: "connection closed", Timestamp: time.Now()}))
		},
	})
	defer manager.Cleanup()

	if err := manager.SetChannels(ctx, []string{id}); err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	if plain {
		return followPlainLoop(ctx, os.Stdout, events)
	}

	model := tui.NewModel(manager, center, id, title, events)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// followPlainLoop prints incoming messages until interrupted.
func followPlainLoop(ctx context.Context, out io.Writer, events <-chan tea.Msg) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errHandler.Info("Following channel (Ctrl+C to stop)...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigChan:
			_, _ = fmt.Fprintf(out, "\nReceived signal %v, stopping...\n", sig)
			return nil
		case msg := <-events:
			switch ev := msg.(type) {
			case tui.EventMsg:
				printInboundEvent(out, conn.InboundEvent(ev))
			case tui.ErrMsg:
				_, _ = fmt.Fprintf(out, "%s[%s] %s%s\n", colors.Yellow, ev.Timestamp.Format("15:04:05"), ev.Reason, colors.Reset)
			}
		}
	}
}

func printInboundEvent(out io.Writer, ev conn.InboundEvent) {
	if ev.Kind == "messages" {
		for _, m := range ev.Messages {
			ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
			_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", ts, m.Username, m.Details)
		}
		return
	}
	var payload struct {
		Username string `json:"username"`
		Login    string `json:"login"`
		Title    string `json:"title"`
		Details  string `json:"details"`
	}
	if err := json.Unmarshal(ev.Raw, &payload); err != nil {
		return
	}
	sender := payload.Username
	if sender == "" {
		sender = payload.Login
	}
	text := payload.Details
	if text == "" {
		text = payload.Title
	}
	if text == "" {
		return
	}
	_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), sender, text)
}

// followCmd represents the follow command
var followCmd = NewFollowCmd()

func init() {
	cmd.RootCmd.AddCommand(followCmd)
}
