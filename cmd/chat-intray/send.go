/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/conn"
	"github.com/cristianoliveira/chat-intray/internal/notify"
	"github.com/spf13/cobra"
)

var sendTitle string

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send <channel> <message>",
		Short: "Send a message to a channel",
		Long: `Send a single message to a channel.

Opens the transport, subscribes to the channel, sends the message and
disconnects. Requires stored credentials (see login).

USAGE:
    chat-intray send <channel> <message>

OPTIONS:
    --title <title>   Message title
    -h, --help        Show this help`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			if err := ensureDeps(); err != nil {
				return err
			}
			return sendOnce(c.Context(), center, args[0], sendTitle, args[1])
		},
	}

	sendCmd.Flags().StringVar(&sendTitle, "title", "", "Message title")

	return sendCmd
}

// sendOnce runs a full connect-subscribe-send-disconnect cycle.
func sendOnce(ctx context.Context, center *notify.Center, channelID, title, details string) error {
	// Error callbacks arrive on transport goroutines; keep the first one
	// in a buffered channel and read it after the send settles.
	transportErrs := make(chan error, 1)
	manager := conn.NewManager(conn.Options{
		Store: kvStore,
		API:   apiClient,
		OnError: func(ev conn.ErrorEvent) {
			select {
			case transportErrs <- ev.Err:
			default:
			}
		},
	})
	defer manager.Cleanup()

	if err := manager.SetChannels(ctx, []string{channelID}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	// Give the subscription handshake time to settle before writing.
	delay := time.Duration(config.GetInt("subscription_delay_ms", 1000)) * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay + 200*time.Millisecond):
	}

	if err := manager.SendMessage(title, details); err != nil {
		select {
		case transportErr := <-transportErrs:
			return fmt.Errorf("send: %w", transportErr)
		default:
		}
		return fmt.Errorf("send: %w", err)
	}
	center.RecordSentMessage(time.Now())
	errHandler.Success(fmt.Sprintf("Message sent to channel %s", manager.ActiveChannel()))
	return nil
}

// sendCmd represents the send command
var sendCmd = NewSendCmd()

func init() {
	cmd.RootCmd.AddCommand(sendCmd)
}
