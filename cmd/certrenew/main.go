package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/certrenew/cmd/certrenew/commands"
	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cerrors.ExitCode(err))
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
		dryRun     bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "certrenew",
		Short: "Renew TLS certificates on CDN and load balancer resources",
		Long: `certrenew pushes a renewed certificate to cloud resources (CDN
distributions, load balancer listeners) when the deployed certificate
differs from the new one. Designed to run as a short-lived job after
certificate issuance.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.DryRun = dryRun
			cfg.Verbose = debug
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "certrenew.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Fetch and compare only, never update")

	rootCmd.AddCommand(
		commands.NewRenewCommand(cfg, version),
		commands.NewCheckCommand(cfg),
	)

	return rootCmd.Execute()
}
