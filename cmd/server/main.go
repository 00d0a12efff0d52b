package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/backend/internal/cache"
	"stockflow/backend/internal/config"
	"stockflow/backend/internal/httpapi"
	"stockflow/backend/internal/logger"
	"stockflow/backend/internal/reorder"
	"stockflow/backend/internal/service"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/store/memory"
	pgstore "stockflow/backend/internal/store/postgres"
)

type backend interface {
	store.Store
	store.UserStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var repo backend
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("database migration failed")
			}
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded(memory.Seed{
			TenantID:        cfg.SeedTenantID,
			AdminPassword:   cfg.SeedAdminPassword,
			CashierPassword: cfg.SeedCashierPassword,
		})
		log.Info().Str("tenant_id", cfg.SeedTenantID).Msg("repository: in-memory")
	}

	cacheStore := cache.ReorderCache(cache.NoopReorderCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReorderCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	advisor := reorder.NewEngine(cacheStore, time.Duration(cfg.ReorderCacheTTLSeconds)*time.Second)
	svc := service.New(repo, advisor, service.Options{
		StockPolicy:   cfg.SaleStockPolicy,
		AllowOversell: cfg.AllowOversell,
	})

	warmer := reorder.NewScheduler(svc.Tenants, svc.RefreshReorderSuggestions)
	if err := warmer.Start(time.Duration(cfg.ReorderRefreshMinutes) * time.Minute); err != nil {
		log.Fatal().Err(err).Msg("schedule reorder warmer")
	}

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	app := httpapi.New(svc, auth, cfg.AllowedOrigin).App()

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("stockflow listening")
		if err := app.Listen(cfg.Address()); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutdown signal received")

	warmer.Stop()
	if err := app.ShutdownWithTimeout(8 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.DatabaseURL == "" && !cfg.IsDevelopment() && (cfg.SeedAdminPassword == "" || cfg.SeedCashierPassword == "") {
		return fmt.Errorf("SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD are required outside development when running in memory")
	}
	return nil
}
