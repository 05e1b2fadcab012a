package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voicegate/internal/audio"
	"voicegate/internal/platform/config"
	"voicegate/internal/platform/database"
	"voicegate/internal/platform/logger"
	"voicegate/internal/seeder"
	httptransport "voicegate/internal/transport/http"
	"voicegate/internal/user"
	"voicegate/internal/vault"
	"voicegate/internal/voiceprint/handler"
	"voicegate/internal/voiceprint/metrics"
	"voicegate/internal/voiceprint/service"
	"voicegate/internal/voiceprint/store"
	"voicegate/pkg/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing voicegate",
		"addr", cfg.Addr,
		"vault_host", cfg.Vault.Host,
		"vault_group", cfg.Vault.GroupID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	var (
		users     service.Directory
		templates store.TemplateStore
		attempts  store.AttemptStore
	)
	if pool != nil {
		if err := pool.Migrate(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		users = user.NewPostgresDirectory(pool.DB())
		templates = store.NewPostgresTemplateStore(pool.DB())
		attempts = store.NewPostgresAttemptStore(pool.DB())
		log.Info("using postgres persistence")
	} else {
		dir := user.NewInMemoryDirectory()
		if err := seeder.New(dir, log).SeedAll(ctx); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		users = dir
		templates = store.NewInMemoryTemplateStore()
		attempts = store.NewInMemoryAttemptStore()
		log.Warn("DATABASE_URL not set, using in-memory persistence")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	vpMetrics := metrics.New(registry)

	vaultClient := vault.NewClient(vault.Config{
		AppID:          cfg.Vault.AppID,
		APIKey:         cfg.Vault.APIKey,
		APISecret:      cfg.Vault.APISecret,
		Host:           cfg.Vault.Host,
		ServiceID:      cfg.Vault.ServiceID,
		ConnectTimeout: cfg.Vault.ConnectTimeout,
		ReadTimeout:    cfg.Vault.ReadTimeout,
	}, log,
		vault.WithBreaker(circuit.New("vault")),
		vault.WithObserver(func(op string, d time.Duration) {
			vpMetrics.VaultRequestDuration.WithLabelValues(op).Observe(d.Seconds())
		}),
	)

	normalizer := audio.NewNormalizer(cfg.Audio, log)

	svc := service.NewService(users, templates, attempts, vaultClient, normalizer,
		cfg.Vault.GroupID, log, service.WithMetrics(vpMetrics))

	// Multipart parsing needs headroom above the audio limit for the other
	// form fields.
	vpHandler := handler.New(svc, normalizer, cfg.Audio.MaxFileSize+1<<20, log)

	var health httptransport.HealthChecker
	if pool != nil {
		health = pool
	}
	router := httptransport.NewRouter(vpHandler, health, registry, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
