package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/server"
	"loom/internal/store"
)

// newServeCommand runs the HTTP API server in the foreground until
// interrupted. A file lock guards against two servers sharing one database.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "loom.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("another loom server is already running against this data directory")
			}
			defer func() {
				_ = lock.Unlock()
			}()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng := engine.New(st, cfg, logger)
			srv := server.New(cfg, eng, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			logger.Info("loom server running",
				slog.String("bind", cfg.Paths.APIBind),
				slog.String("database", st.Path()),
			)
			<-runCtx.Done()
			logger.Info("loom server shutting down")
			return nil
		},
	}
}
