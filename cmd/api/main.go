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

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/auth"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/config"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/router"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/tracing"
	"github.com/ovaphlow/pitchfork/service-subscriber/pkg/database"
	"github.com/ovaphlow/pitchfork/service-subscriber/pkg/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// init logger
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-subscriber")

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		sugar.Fatalf("tracing setup: %v", err)
	}

	// init db
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	subscriberRepo := repo.NewSubscriberRepo(db)
	if err := subscriberRepo.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure subscribers table: %v", err)
	}

	reg := metrics.NewRegistry()
	store := subscriber.NewTracedStore(subscriber.NewMeteredStore(subscriberRepo, reg))
	svc := subscriber.NewService(store, utilities.NewIDGenerator(cfg.SnowflakeNode))

	added, err := svc.Seed(ctx, cfg.SubscribersFile)
	if err != nil {
		sugar.Fatalf("seed subscribers: %v", err)
	}
	if cfg.SubscribersFile != "" {
		sugar.Infow("seeded subscribers", "file", cfg.SubscribersFile, "added", added)
	}

	verifier := auth.NewVerifier(cfg.AuthJWTSecret, "pitchfork-subscriber", sugar)
	if verifier == nil {
		sugar.Warn("AUTH_JWT_SECRET not set; write endpoints are unauthenticated")
	}

	// mount http server
	handler := router.RegisterRoutes(sugar, svc, reg, verifier)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.HTTPAddr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := shutdownTracing(doneCtx); err != nil {
		sugar.Warnf("tracing shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
