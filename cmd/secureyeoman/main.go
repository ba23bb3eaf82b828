// Command secureyeoman starts the gateway's single HTTP server: wire the
// Container, serve the versioned API, shut down gracefully on SIGINT/
// SIGTERM. Per SPEC_FULL.md §6 there is no CLI surface beyond this — no
// subcommands, no config file flags, only environment variables consumed
// by config.FromEnv.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apiserver"
	"github.com/secureyeoman/secureyeoman/internal/app"
	"github.com/secureyeoman/secureyeoman/internal/config"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("secureyeoman: failed to build container: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiserver.New(container).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	container.StartBackground(ctx)
	container.RecordStartup(ctx)

	go func() {
		container.Logger.Info("secureyeoman listening", obs.Fields{"addr": cfg.ListenAddr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("secureyeoman: listen failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("secureyeoman shutting down", obs.Fields{})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("http server shutdown error", obs.Fields{"error": err.Error()})
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("container shutdown error", obs.Fields{"error": err.Error()})
	}
}
