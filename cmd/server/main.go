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

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/config"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/httpapi"
	"github.com/DoyleJ11/floorclash/internal/hub"
	"github.com/DoyleJ11/floorclash/internal/logging"
	"github.com/DoyleJ11/floorclash/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	deps := hub.Deps{
		Rules:    cfg.Rules(),
		Layout:   arena.DefaultLayout(),
		TickRate: cfg.TickRate,
		Seed:     cfg.Seed,
		Logger:   log,
	}

	var rec *store.Recorder
	if cfg.DatabaseDSN != "" {
		rec, err = store.Open(cfg.DatabaseDSN, log)
		if err != nil {
			return err
		}
		deps.Results = func(code string) engine.ResultSink { return rec.ForSession(code) }
		g.Go(func() error { return rec.Run(ctx) })
	} else {
		log.Info("results archive disabled")
	}

	h := hub.NewHub(ctx, hub.NewSessionFactory(deps))

	routes := httpapi.RouteOptions{PeerFrameRate: cfg.PeerRate, Logger: log}
	if rec != nil {
		routes.History = rec
	}

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, routes),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if rec != nil {
		err = multierr.Append(err, rec.Close())
	}
	return err
}
