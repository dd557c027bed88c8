package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"discord-relay/auth"
	"discord-relay/domain/event"
	"discord-relay/internal"
	"discord-relay/observability"
	"discord-relay/relay"
	"discord-relay/runtime"
	"discord-relay/runtime/workers"
	"discord-relay/transport"
	"discord-relay/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Core wiring: one registry, one hub, injected everywhere
	monitor := observability.NewMonitor()
	registry := runtime.NewRegistry()
	hub := transport.NewHub(log, monitor, config.SendBufferSize)

	directory := upstream.NewDirectory(log, config.GatewayAPIURL, config.UpstreamTimeout)
	formatter := upstream.NewFormatter(directory)
	verifier := auth.NewVerifier(config.JWTSecret)
	manager := relay.NewManager(log, verifier, hub, registry, directory, config.UpstreamTimeout)

	// 3. Supervised workers: gateway feed in, dispatcher out
	events := make(chan event.DomainEvent, config.EventBufferSize)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(upstream.NewGateway(log, config.GatewayWSURL, events, config.ReconnectInterval))
	sup.Add(workers.NewDispatchWorker(log, registry, hub, formatter, monitor, events, config.FormatTimeout))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 5. HTTP surface
	handlers := observability.NewHandlers(log, monitor, registry.Stats)
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", handlers.Health)
	router.Get("/metrics", handlers.Metrics)
	router.Get("/ws", manager.HandleWS)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "err", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
