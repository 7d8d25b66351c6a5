package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/remotectl/unlockd/internal/config"
	"github.com/remotectl/unlockd/internal/server"
	"github.com/remotectl/unlockd/internal/unlock"
)

// Serve runs the long-lived agent: the loopback IPC server for the
// credential provider plus the background consumer that reacts to
// pending unlock requests. Blocks until ctx is cancelled.
func Serve(ctx context.Context) {
	cfg := config.Load()
	v := OpenVault(cfg)

	log := OpenHistory(cfg)
	if log != nil {
		defer log.Close()
	}

	session, orch := BuildOrchestrator(cfg, v, recorderOrNil(log))

	consumer := unlock.NewConsumer(session, orch, cfg.PollInterval, slog.Default())
	consumer.Start(ctx)

	srv := server.New(session, server.Options{Addr: cfg.IPCAddr})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("ipc server shutdown incomplete", "error", err)
	}
	if !consumer.Stop(5 * time.Second) {
		slog.Warn("consumer did not stop within the join timeout")
	}
}
