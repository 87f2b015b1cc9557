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

type loginClient interface {
	SaveCredentials(creds session.Credentials) error
	RegisterPushToken(ctx context.Context) bool
}

var (
	loginAccessToken  string
	loginRefreshToken string
	loginAPIKey       string
	loginSkipPush     bool
)

// NewLoginCmd creates the login command with explicit dependencies.
func NewLoginCmd(client loginClient) *cobra.Command {
	if client == nil {
		panic("NewLoginCmd: client dependency cannot be nil")
	}

	loginCmd := &cobra.Command{
		Use:   "login <contract-number> <login>",
		Short: "Store account credentials",
		Long: `Store account credentials for the messaging backend.

USAGE:
    chat-intray login <contract-number> <login> --api-key <key> [OPTIONS]

OPTIONS:
    --api-key <key>        Account API key (required)
    --access-token <tok>   Access token
    --refresh-token <tok>  Refresh token
    --no-push              Skip push token registration
    -h, --help             Show this help`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			creds := session.Credentials{
				ContractNumber: args[0],
				Login:          args[1],
				AccessToken:    loginAccessToken,
				RefreshToken:   loginRefreshToken,
				AccountAPIKey:  loginAPIKey,
			}
			if !creds.Valid() {
				return fmt.Errorf("login: contract number, login and --api-key are required")
			}
			if err := client.SaveCredentials(creds); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			colors.Success(fmt.Sprintf("Logged in as %s (contract %s)", creds.Login, creds.ContractNumber))

			if !loginSkipPush {
				if client.RegisterPushToken(c.Context()) {
					colors.Info("Push token registered")
				} else {
					logging.Warn("push token registration failed")
				}
			}
			return nil
		},
	}

	loginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "Account API key (required)")
	loginCmd.Flags().StringVar(&loginAccessToken, "access-token", "", "Access token")
	loginCmd.Flags().StringVar(&loginRefreshToken, "refresh-token", "", "Refresh token")
	loginCmd.Flags().BoolVar(&loginSkipPush, "no-push", false, "Skip push token registration")

	return loginCmd
}

type defaultLoginClient struct{}

func (defaultLoginClient) SaveCredentials(creds session.Credentials) error {
	if err := ensureDeps(); err != nil {
		return err
	}
	return session.Save(kvStore, creds)
}

func (defaultLoginClient) RegisterPushToken(ctx context.Context) bool {
	if err := ensureDeps(); err != nil {
		return false
	}
	if token := dispatcher.RegisterForPush(); token == "" {
		return false
	}
	return dispatcher.SyncToken(ctx, apiClient)
}

// loginCmd represents the login command
var loginCmd = NewLoginCmd(defaultLoginClient{})

func init() {
	cmd.RootCmd.AddCommand(loginCmd)
}
