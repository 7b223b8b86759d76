package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string

	current *app
)

var rootCmd = &cobra.Command{
	Use:          "poof",
	Short:        "Deposit, withdraw, mint and burn against Poof hidden accounts",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log, closer, err := NewLogger(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		current = newApp(cfg, log, closer)
		return nil
	},
}

// commandContext bounds a command by the configured timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), time.Duration(current.cfg.TimeoutSeconds)*time.Second)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "poof.json", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}
