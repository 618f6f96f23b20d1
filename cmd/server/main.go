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

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cryptic-backend/internal/config"
	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	"github.com/DoyleJ11/cryptic-backend/internal/httpapi"
	"github.com/DoyleJ11/cryptic-backend/internal/hub"
	"github.com/DoyleJ11/cryptic-backend/internal/lobby"
	"github.com/DoyleJ11/cryptic-backend/internal/logging"
	"github.com/DoyleJ11/cryptic-backend/internal/wordbank"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	bank, err := wordbank.Load(cfg.WordBankPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		Logger:  log,
		CodeTTL: cfg.CodeTTL,
		Session: lobby.Options{
			Logger:        log,
			Bank:          bank.Words(),
			Defaults:      engine.DefaultGameConfig(bank.Defaults()),
			TickInterval:  cfg.TickInterval(),
			ReapInterval:  cfg.ReapInterval,
			IdleTimeout:   cfg.IdleTimeout,
			GameOverGrace: cfg.GameOverGrace,
			InboxSize:     cfg.InboxSize,
		},
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(httpapi.Deps{Hub: h, Bank: bank, Logger: log, OriginPatterns: cfg.AllowedOrigins}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Int("categories", len(bank.Categories())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// lobbies first so open streams end and the server can drain
		return multierr.Combine(h.Shutdown(sctx), srv.Shutdown(sctx))
	})
	return g.Wait()
}
