package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ayushroy-246/hmp/internal/config"
	"github.com/ayushroy-246/hmp/internal/crypto"
	"github.com/ayushroy-246/hmp/internal/db"
	internalhttp "github.com/ayushroy-246/hmp/internal/http"
	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, stats caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
		}
	}

	store := repository.NewStore(pool)

	if cfg.SeedSuperAdmin {
		if err := seedSuperAdmin(ctx, store); err != nil {
			logger.Fatal("super admin seed failed", zap.Error(err))
		}
	}

	server := internalhttp.NewServer(cfg, store, cache, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("portal listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// seedSuperAdmin creates the bootstrap account on first start. A no-op once
// a superAdmin exists.
func seedSuperAdmin(ctx context.Context, store *repository.Store) error {
	if store.SuperAdminExists(ctx) {
		return nil
	}

	username := strings.ToLower(getenv("SUPER_ADMIN_USERNAME", "superadmin"))
	password := getenv("SUPER_ADMIN_PASSWORD", "change-me-now")
	email := getenv("SUPER_ADMIN_EMAIL", "superadmin@hmp.local")

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return store.CreateUser(ctx, model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     "Super Admin",
		PasswordHash: hash,
		Role:         model.RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
