package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/config"
	"github.com/abhisek/supportagent/internal/logger"
	"github.com/abhisek/supportagent/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "supportagent",
	Short: "Stateless AI customer support agent",
	Long:  "supportagent answers customer support questions with a structured, schema-validated reply from Claude or GPT models.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json, or toml)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite event database (overrides SUPPORT_DB)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads configuration, with --db taking priority over SUPPORT_DB.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		s.DBPath = p
	}
	return s, nil
}

func newLogger(s *config.Settings) (*zap.Logger, error) {
	l, err := logger.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return l, nil
}

// openStore opens the event database, or returns nil when none is configured.
func openStore(s *config.Settings) (*store.Store, error) {
	if s.DBPath == "" {
		return nil, nil
	}
	if err := store.EnsureDir(s.DBPath); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.Open(s.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
