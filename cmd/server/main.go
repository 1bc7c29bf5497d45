// Package main starts the approvals HTTP service process lifecycle.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sellerdesk/approvals/internal/auth/actortoken"
	"github.com/sellerdesk/approvals/internal/platform/config"
	"github.com/sellerdesk/approvals/internal/platform/otel"
	"github.com/sellerdesk/approvals/internal/platform/timeouts"
	"github.com/sellerdesk/approvals/internal/server"
	"github.com/sellerdesk/approvals/internal/storage/sqlite"
	"github.com/sellerdesk/approvals/internal/workflow/engine"
	"github.com/sellerdesk/approvals/internal/workflow/projection"
	"github.com/sellerdesk/approvals/internal/workflow/registry"
)

type serverEnv struct {
	Addr   string `env:"APPROVALS_HTTP_ADDR"`
	DBPath string `env:"APPROVALS_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "approvals.db")
	}
	return cfg
}

func main() {
	log.SetPrefix("[APPROVALS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}

func run(ctx context.Context) error {
	shutdownTracing, err := otel.Setup(ctx, "approvals")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.TracerShutdown)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	env := loadServerEnv()
	if err := os.MkdirAll(filepath.Dir(env.DBPath), 0o755); err != nil {
		return err
	}
	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	tokens, err := actortoken.LoadConfigFromEnv(nil)
	if err != nil {
		return err
	}

	eng := engine.New(store, registry.Default())
	api := server.New(eng, projection.New(store), store, tokens)

	httpServer := &http.Server{
		Addr:              env.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", env.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
