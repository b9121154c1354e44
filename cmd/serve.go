package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/config"
	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/server"
	"github.com/abhisek/supportagent/internal/store"
	"github.com/abhisek/supportagent/internal/support"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (overrides PORT)")
}

// runServe starts the HTTP server and blocks until SIGINT or SIGTERM.
// Missing credentials do not stop startup; each chat request reports them.
func runServe(cmd *cobra.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Value.String() != "" {
		s.Port = f.Value.String()
	}

	log, err := newLogger(s)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := openStore(s)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	gen := newGenerator(s, st, log)
	if cfg, err := gen.Resolve(); err != nil {
		log.Warn("AI provider not configured; chat requests will fail until it is", zap.Error(err))
	} else {
		log.Info("AI provider resolved",
			zap.String("provider", string(cfg.Provider)),
			zap.String("model", cfg.ModelID),
			zap.String("prompt_version", support.PromptVersion),
		)
	}

	opts := server.Options{Generator: gen, Logger: log}
	if st != nil {
		opts.Checkers = append(opts.Checkers, server.CheckFunc{CheckName: "store", Fn: st.Ping})
	}
	app := server.New(opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", s.ListenAddr()),
			zap.String("env", s.Environment),
		)
		errCh <- app.Listen(s.ListenAddr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newGenerator wires the resolver, provider factory, and optional event log.
func newGenerator(s *config.Settings, st *store.Store, log *zap.Logger) *support.Generator {
	env := s.LLMEnvironment()

	var repo store.EventRepo
	if st != nil {
		repo = st.EventRepo()
	}

	return support.NewGenerator(env, func(cfg llm.ProviderConfig) (llm.Provider, error) {
		return llm.NewProvider(cfg, env, log, repo)
	}, log)
}
