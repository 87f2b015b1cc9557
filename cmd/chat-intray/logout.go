/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/spf13/cobra"
)

type logoutClient interface {
	RemovePushToken(ctx context.Context) bool
	ClearCredentials() error
}

// NewLogoutCmd creates the logout command with explicit dependencies.
func NewLogoutCmd(client logoutClient) *cobra.Command {
	if client == nil {
		panic("NewLogoutCmd: client dependency cannot be nil")
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials and unregister the push token.

The push token is removed from the backend best-effort. Local credentials
are cleared even when the backend call fails.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if !client.RemovePushToken(c.Context()) {
				logging.Warn("push token removal failed, clearing credentials anyway")
			}
			if err := client.ClearCredentials(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			colors.Success("Logged out")
			return nil
		},
	}

	return logoutCmd
}

type defaultLogoutClient struct{}

func (defaultLogoutClient) RemovePushToken(ctx context.Context) bool {
	if err := ensureDeps(); err != nil {
		return false
	}
	return dispatcher.RemoveToken(ctx, apiClient)
}

func (defaultLogoutClient) ClearCredentials() error {
	if err := ensureDeps(); err != nil {
		return err
	}
	return session.Clear(kvStore)
}

// logoutCmd represents the logout command
var logoutCmd = NewLogoutCmd(defaultLogoutClient{})

func init() {
	cmd.RootCmd.AddCommand(logoutCmd)
}
