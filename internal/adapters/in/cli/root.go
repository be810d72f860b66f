// Package cli implements the CLI adapter for Octopus.
// This package provides Cobra commands that either start the orchestrator or
// talk to a running one over its HTTP API.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ltuffery/Octopus/internal/adapters/in/cli/remote"
	"github.com/ltuffery/Octopus/internal/app"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Global flags shared by the client commands.
var (
	remoteFlag       string
	clientConfigPath string
	assumeYes        bool
)

// NewRootCmd creates the root command for the Octopus CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "octopus",
		Short: "Octopus - build, run and schedule small sites",
		Long: `Octopus manages the lifecycle of small web sites (clone or copy, build,
start, stop, restart) as local processes or Docker containers, and runs cron
jobs that execute commands, call webhooks or drive site actions.

Use 'octopus serve' to run the orchestrator. The other commands talk to a
running instance over its HTTP API (see --remote).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&remoteFlag, "remote", "", "Octopus API address (env "+remote.EnvRemote+")")
	rootCmd.PersistentFlags().StringVar(&clientConfigPath, "client-config", "", "Path to the client config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSitesCmd())
	rootCmd.AddCommand(newCronCmd())

	return rootCmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Octopus %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Build Date: %s\n", BuildDate)
		},
	}
}

// SetVersionInfo sets the version information for the CLI and the server.
// Empty values keep the defaults.
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		Commit = commit
	}
	if date != "" {
		BuildDate = date
	}
	app.SetVersion(Version)
}

// GetRemoteClient builds an API client from the flag, the environment and
// the client config file.
func GetRemoteClient() (*remote.Client, error) {
	config, err := remote.LoadClientConfig(clientConfigPath)
	if err != nil {
		return nil, err
	}

	var opts []remote.ClientOption
	if config.Client.Timeout != "" {
		timeout, err := time.ParseDuration(config.Client.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid client timeout %q: %w", config.Client.Timeout, err)
		}
		opts = append(opts, remote.WithTimeout(timeout))
	}

	return remote.NewClient(remote.ResolveRemote(remoteFlag, config), opts...), nil
}

// isInteractive reports whether stdout is a terminal.
func isInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
