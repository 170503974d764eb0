package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/config"
	"github.com/silexa/hostctl/internal/notify"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/telemetry"
)

// exit is overridable by tests the way recac's root.go does it.
var exit = os.Exit

var cfgFile string
var verbose bool
var providerFlag string

// app bundles everything a subcommand needs once flags are parsed; built
// once in PersistentPreRunE rather than threaded through every command's
// closure individually.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	providers []provider.Provider
	notifier  *notify.Notifier
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "hostctl",
	Short: "Create, list, and manage sandboxed coding-agent hosts",
	Long: `hostctl provisions hosts (containers today, other backends in
principle), starts coding-agent sessions inside them over tmux, and keeps
their working directories in sync with a local source tree.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "provider to use (overrides config default_provider)")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hostctl", "config.yaml")
}

func initApp() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if providerFlag != "" {
		cfg.DefaultProvider = providerFlag
	}

	log := telemetry.New(nil, verbose)
	telemetry.Default = log

	providers, err := buildProviders(cfg, log)
	if err != nil {
		return fmt.Errorf("init providers: %w", err)
	}

	current = &app{
		cfg:       cfg,
		log:       log,
		providers: providers,
		notifier:  notify.New(cfg.Slack.Token, cfg.Slack.Channel),
	}
	return nil
}

// Execute runs the root command; called by main once per process.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hostctl:", err)
		exit(1)
	}
}
