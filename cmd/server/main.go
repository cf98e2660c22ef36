package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/proplens/property-recommendation-service/internal/ai"
	"github.com/proplens/property-recommendation-service/internal/cache"
	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/handler"
	"github.com/proplens/property-recommendation-service/internal/logger"
	"github.com/proplens/property-recommendation-service/internal/price"
	"github.com/proplens/property-recommendation-service/internal/recommend"
	"github.com/proplens/property-recommendation-service/internal/repository"
	"github.com/proplens/property-recommendation-service/internal/router"
	"github.com/proplens/property-recommendation-service/internal/service"
	"github.com/proplens/property-recommendation-service/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zl.Sync()
	log := logger.NewZapAdapter(zl)

	ctx := context.Background()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Error("failed to parse database config", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.PoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to connect to database", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, log); err != nil {
		log.Error("database not ready", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL", nil)

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrateDown(ctx, pool); err != nil {
			log.Error("failed to migrate down", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		log.Info("migrations dropped", nil)
		return
	}

	if err := migrateUp(ctx, pool); err != nil {
		log.Error("failed to migrate up", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	repo := repository.New(pool)

	// ------------ Setup Seed Data ---------------
	if err := checkSeed(ctx, pool, repo, log); err != nil {
		log.Error("failed to check seed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error("failed to parse redis url", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	resultCache := cache.NewCache(redisClient, cfg.Redis.CacheTTL)
	if err := resultCache.Ping(ctx); err != nil {
		log.Warn("redis not reachable at startup, recommendations will skip the cache",
			map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("connected to Redis", nil)
	}

	// ------------ Wiring ---------------
	aiClient := ai.NewClient(cfg.AI, log)
	engine := recommend.NewEngine(aiClient, cfg.Recommend, log)
	estimator := price.NewOrchestrator(aiClient, cfg.Price, log)
	svc := service.NewService(repo, resultCache, engine, estimator, cfg.Recommend, log)
	h := handler.NewHandler(svc, cfg.Recommend.MaxTopN, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router.Setup(h, cfg.Server.RequestTimeout),
	}

	go func() {
		log.Info("server running", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		log.Info("waiting for database...", map[string]interface{}{"attempt": i + 1})
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := os.ReadFile("migrations/create_tables.down.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := os.ReadFile("migrations/create_tables.up.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool, repo *repository.Repository, log logger.Logger) error {
	count, err := repo.CountListings(ctx)
	if err != nil {
		return fmt.Errorf("check listings count: %w", err)
	}
	if count > 0 {
		log.Info("database already seeded, skipping", map[string]interface{}{"listings": count})
		return nil
	}
	return seeds.Setup(ctx, pool)
}
