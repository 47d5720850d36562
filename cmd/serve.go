package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/server"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/summarize"
)

var servePort int

// purgeInterval is how often the server drops sessions past their TTL.
const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reconciliation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := summarize.New(ctx, cfg)
		switch {
		case errors.Is(err, summarize.ErrDisabled):
			zap.L().Info("summarizer disabled; insight and chat endpoints return 503")
			sum = nil
		case err != nil:
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.New(st, sum, serverOptions()).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go purgeLoop(ctx, st, sessionTTL(), purgeInterval)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serverOptions() server.Options {
	return server.Options{
		Threshold:      cfg.Validation.Threshold,
		MaxParallel:    cfg.Validation.MaxParallel,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Schema:         schemaOptions(),
		Loader:         loaderOptions(),
		Rules:          cfg.RootCause,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        2 * time.Minute,
	}
}

// purgeLoop deletes expired sessions every interval until ctx is done.
func purgeLoop(ctx context.Context, st store.Store, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.DeleteExpired(ctx, ttl)
			if err != nil {
				zap.L().Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}
