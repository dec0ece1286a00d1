package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stylebridge/cssync"
	"github.com/stylebridge/cssync/internal/agent"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local agent the browser extension connects to",
	Long: `Index the configured root, then listen for change events from the
browser extension and write them back into the source stylesheets.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runServeCmd,
}

func init() {
	f := serveCmd.Flags()
	f.String("root", "", "Root directory CSS files are discovered under")
	f.String("addr", "127.0.0.1:8412", "Address the agent listens on")
	f.Int("threshold", 0, "Match acceptance threshold (0 = default)")
	f.Int("queue-delay-ms", 50, "Throttle delay between queued changes")
	f.Bool("watch", true, "Re-index stylesheets edited outside the agent")
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	return runServe(cmd)
}

// runServe is shared between `cssync serve` and the bare `cssync` default.
func runServe(_ *cobra.Command) error {
	logger := newLogger()
	cfg := buildServiceConfig()

	svc := cssync.New(logger)
	defer svc.Close()
	if err := svc.Configure(cfg); err != nil {
		return err
	}

	quiet := getBoolWithFallback("quiet", "quiet", false)
	useColors := getBoolWithFallback("color", "color", false)
	if !quiet {
		cssync.WriteStatus(os.Stdout, svc.Status(), useColors)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if getBoolWithFallback("watch", "serve.watch", true) {
		watcher, err := cssync.NewWatcher(svc, logger)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Watch(cfg.RootPath); err != nil {
			return fmt.Errorf("watching %s: %w", cfg.RootPath, err)
		}
		go watcher.Run(ctx)
	}

	addr := getStringWithFallback("addr", "serve.addr", "127.0.0.1:8412")
	server := &http.Server{
		Addr:              addr,
		Handler:           agent.NewServer(svc, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agent listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}
