package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/inkwell"
	"github.com/eringen/inkwell/views"
)

const shutdownTimeout = 10 * time.Second

var staticDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := inkwell.LoadConfig(configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := inkwell.New(cfg, views.Default(),
			inkwell.WithLogger(logger),
			inkwell.WithStaticDir(staticDir),
		)
		if err := app.Setup(ctx); err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}()

		errCh := make(chan error, 1)
		go func() { errCh <- app.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&staticDir, "static", "public", "Directory served under /public/")
}
