/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagDebug bool
	flagQuiet bool
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "chat-intray",
	Short: "Real-time chat notifications for your terminal.",
	Long:  `Real-time chat notifications for your terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			config.Set("debug", "true")
			colors.SetDebug(true)
		}
		if flagQuiet {
			config.Set("quiet", "true")
			colors.SetQuiet(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Set version for use in help output
	RootCmd.Version = version.Version

	// Hide the completion command
	RootCmd.CompletionOptions.HiddenDefaultCmd = true

	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		printHelpText(cmd)
	})

	RootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug output")
	RootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "Suppress non-error output")
}

func printHelpText(cmd *cobra.Command) {
	commandOrder := []string{
		"login",
		"logout",
		"view",
		"send",
		"follow",
		"status",
		"mark-read",
		"help",
		"version",
	}

	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-20s %s", found.Use, found.Short))
	}

	helpText := fmt.Sprintf(`chat-intray v%s

Real-time chat notifications for your terminal.

USAGE:
    chat-intray [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    --debug         Enable debug output
    --quiet         Suppress non-error output
    -h, --help      Show help message
`, version.Version, strings.Join(cmdLines, "\n"))
	fmt.Print(helpText)
}
