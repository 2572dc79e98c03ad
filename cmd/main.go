/*
Package main is the entry point of the room server.

It loads configuration, initializes logging, connects the persistent store
(fatal on failure, unlike store errors later in normal command processing),
restores the room from stored state, and serves HTTP until an interrupt
triggers a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsync/internal/app/room"
	"roomsync/internal/app/store"
	"roomsync/internal/configs"
	"roomsync/internal/handler"
	"roomsync/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("store", cfg.StoreBackend).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.StoreBackend {
	case configs.StoreMemory:
		logx.Warn("Using in-memory store; state will not survive a restart")
		st = store.NewMemory()
	default:
		rs := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rs.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			cancel()
			logx.Fatal(err, "Store unreachable at startup", "redis_addr", cfg.RedisAddr)
		}
		cancel()
		st = rs
	}

	rm, err := room.Restore(ctx, st)
	if err != nil {
		logx.Fatal(err, "Failed to restore room state from store")
	}

	router := handler.Router(rm, cfg)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Room server listening on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	rm.Shutdown()

	logx.Info("Server gracefully stopped.")
}
