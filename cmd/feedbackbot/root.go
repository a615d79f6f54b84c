package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Doe880/telegram-feedback-bot1/internal/config"
	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "feedbackbot",
	Short: "Feedback intake bot for Telegram",
	Long: `feedbackbot collects questions, ideas and complaints from employees,
stores them and relays each one to the administrators, who can answer
from the reply desk.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("storage", "", "Record storage: sqlite, postgres or memory")
	rootCmd.PersistentFlags().String("dsn", "", "SQLite path or Postgres DSN")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every conversation event")
}

// persistentKeys binds root flags to config keys.
var persistentKeys = map[string]string{
	"log.level":      "log-level",
	"log.format":     "log-format",
	"storage.driver": "storage",
	"storage.dsn":    "dsn",
}

// loadConfig resolves the configuration for cmd. keys maps config keys to
// command-local flag names; only flags the user set override lower layers.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, *slog.Logger, error) {
	v := viper.New()
	for _, bindings := range []map[string]string{persistentKeys, keys} {
		for key, name := range bindings {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, nil, fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return cfg, logging.NewWithFormat(os.Stderr, level, cfg.Log.Format), nil
}
