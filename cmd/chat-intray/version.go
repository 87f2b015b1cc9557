/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"fmt"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/version"
	"github.com/spf13/cobra"
)

type versionClient interface {
	Version() string
}

// NewVersionCmd creates the version command with explicit dependencies.
func NewVersionCmd(client versionClient) *cobra.Command {
	if client == nil {
		panic("NewVersionCmd: client dependency cannot be nil")
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show the current version of chat-intray.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chat-intray version %s\n", client.Version())
			return nil
		},
	}

	return versionCmd
}

type defaultVersionClient struct{}

func (defaultVersionClient) Version() string { return version.String() }

// versionCmd represents the version command
var versionCmd = NewVersionCmd(defaultVersionClient{})

func init() {
	cmd.RootCmd.AddCommand(versionCmd)
}
