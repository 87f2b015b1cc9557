/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/notify"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/spf13/cobra"
)

type statusClient interface {
	Login() (string, error)
	ActiveChannel() string
	Unread() map[string]notify.UnreadEntry
}

var statusUnreadOnly bool

// NewStatusCmd creates the status command with explicit dependencies.
func NewStatusCmd(client statusClient) *cobra.Command {
	if client == nil {
		panic("NewStatusCmd: client dependency cannot be nil")
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show session and unread channel summary",
		Long: `Show session and unread channel summary.

USAGE:
    chat-intray status [OPTIONS]

OPTIONS:
    --unread-only    Only list unread channels
    -h, --help       Show this help`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()

			if !statusUnreadOnly {
				login, err := client.Login()
				switch {
				case errors.Is(err, session.ErrNotLoggedIn):
					fmt.Fprintln(out, "session: logged out")
				case err != nil:
					return fmt.Errorf("status: %w", err)
				default:
					fmt.Fprintf(out, "session: logged in as %s\n", login)
				}

				if active := client.ActiveChannel(); active != "" {
					fmt.Fprintf(out, "viewing: %s\n", active)
				} else {
					fmt.Fprintln(out, "viewing: none")
				}
			}

			unread := client.Unread()
			if len(unread) == 0 {
				fmt.Fprintln(out, "unread: none")
				return nil
			}
			ids := make([]string, 0, len(unread))
			for id := range unread {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				entry := unread[id]
				since := time.UnixMilli(entry.Timestamp).Format("2006-01-02 15:04:05")
				fmt.Fprintf(out, "unread: %s (%d since %s)\n", id, entry.Count, since)
			}
			return nil
		},
	}

	statusCmd.Flags().BoolVar(&statusUnreadOnly, "unread-only", false, "Only list unread channels")

	return statusCmd
}

type defaultStatusClient struct{}

func (defaultStatusClient) Login() (string, error) {
	if err := ensureDeps(); err != nil {
		return "", err
	}
	creds, err := session.Load(kvStore)
	if err != nil {
		return "", err
	}
	return creds.Login, nil
}

func (defaultStatusClient) ActiveChannel() string {
	if err := ensureDeps(); err != nil {
		return ""
	}
	return center.ActiveChannel()
}

func (defaultStatusClient) Unread() map[string]notify.UnreadEntry {
	if err := ensureDeps(); err != nil {
		return nil
	}
	return center.Unread()
}

// statusCmd represents the status command
var statusCmd = NewStatusCmd(defaultStatusClient{})

func init() {
	cmd.RootCmd.AddCommand(statusCmd)
}
