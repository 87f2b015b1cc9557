/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"fmt"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/spf13/cobra"
)

type markReadClient interface {
	MarkChannelUnread(id string, unread bool) error
}

var markReadAsUnread bool

// NewMarkReadCmd creates the mark-read command with explicit dependencies.
func NewMarkReadCmd(client markReadClient) *cobra.Command {
	if client == nil {
		panic("NewMarkReadCmd: client dependency cannot be nil")
	}

	markReadCmd := &cobra.Command{
		Use:   "mark-read <channel>",
		Short: "Mark a channel as read",
		Long: `Mark a channel as read, clearing its unread state.

USAGE:
    chat-intray mark-read <channel>

OPTIONS:
    --unread         Mark the channel as unread instead
    -h, --help       Show this help`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id := channel.Normalize(args[0])
			if err := client.MarkChannelUnread(id, markReadAsUnread); err != nil {
				return fmt.Errorf("mark-read: %w", err)
			}
			if markReadAsUnread {
				colors.Success(fmt.Sprintf("Channel %s marked as unread", id))
			} else {
				colors.Success(fmt.Sprintf("Channel %s marked as read", id))
			}
			return nil
		},
	}

	markReadCmd.Flags().BoolVar(&markReadAsUnread, "unread", false, "Mark the channel as unread instead")

	return markReadCmd
}

type defaultMarkReadClient struct{}

func (defaultMarkReadClient) MarkChannelUnread(id string, unread bool) error {
	if err := ensureDeps(); err != nil {
		return err
	}
	return center.MarkChannelUnread(id, unread)
}

// markReadCmd represents the mark-read command
var markReadCmd = NewMarkReadCmd(defaultMarkReadClient{})

func init() {
	cmd.RootCmd.AddCommand(markReadCmd)
}
