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

type viewClient interface {
	SetActiveChannel(id, title string) error
}

var (
	viewTitle string
	viewClear bool
)

// NewViewCmd creates the view command with explicit dependencies.
func NewViewCmd(client viewClient) *cobra.Command {
	if client == nil {
		panic("NewViewCmd: client dependency cannot be nil")
	}

	viewCmd := &cobra.Command{
		Use:   "view [channel]",
		Short: "Mark a channel as currently viewed",
		Long: `Mark a channel as currently viewed.

Notifications for the viewed channel are suppressed and its unread state
is cleared. Channel IDs may carry the channel_ prefix; it is stripped.

USAGE:
    chat-intray view <channel>
    chat-intray view --clear

OPTIONS:
    --title <title>   Display title for the channel
    --clear           Clear the viewed channel
    -h, --help        Show this help`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if viewClear {
				if err := client.SetActiveChannel("", ""); err != nil {
					return fmt.Errorf("view: %w", err)
				}
				colors.Success("Viewed channel cleared")
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("view: channel required (or use --clear)")
			}
			id := channel.Normalize(args[0])
			if err := client.SetActiveChannel(id, viewTitle); err != nil {
				return fmt.Errorf("view: %w", err)
			}
			colors.Success(fmt.Sprintf("Viewing channel %s", id))
			return nil
		},
	}

	viewCmd.Flags().StringVar(&viewTitle, "title", "", "Display title for the channel")
	viewCmd.Flags().BoolVar(&viewClear, "clear", false, "Clear the viewed channel")

	return viewCmd
}

type defaultViewClient struct{}

func (defaultViewClient) SetActiveChannel(id, title string) error {
	if err := ensureDeps(); err != nil {
		return err
	}
	return center.UpdateActiveChannel(id, title)
}

// viewCmd represents the view command
var viewCmd = NewViewCmd(defaultViewClient{})

func init() {
	cmd.RootCmd.AddCommand(viewCmd)
}
