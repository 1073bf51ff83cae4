// Package cmd provides the CLI commands for parley.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: "Chat session service",
		Long: `parley keeps chat sessions between users and language models.

Each message is classified; sessions that need the specialized mode are
answered by the larger model tier from then on.

  parley serve                 Run the HTTP API
  parley send "hello"          Send one message from the terminal
  parley sessions list         List your sessions
  parley status                Show configuration and storage`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/parley/parley.json)")
	flags.String("env-file", ".env", "Load environment variables from this file when it exists")
	flags.Bool("debug", false, "Write a debug log to $XDG_DATA_HOME/parley/debug.log")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("user", defaultUser(), "Owner ID used by the CLI commands")

	cmd.AddCommand(
		newServeCmd(),
		newSendCmd(),
		newSessionsCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "parley "+Version)
		},
	}
}

func defaultUser() string {
	if u := os.Getenv("PARLEY_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
