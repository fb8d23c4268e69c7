package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"json-user-service/cmd/api/infrastructure"
	ginhandler "json-user-service/internal/adapter/gin/handler"
	"json-user-service/internal/adapter/gin/middleware"
	"json-user-service/internal/adapter/store/jsonfile"
	"json-user-service/internal/config"
	"json-user-service/internal/usecase/user"
	redisclient "json-user-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       *jsonfile.Store
	Watcher     *jsonfile.Watcher // nil unless STORE_WATCH is set
	RedisClient *redisclient.Client
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	// Initialize store
	store, watcher, err := infrastructure.NewStore(cfg, l)
	if err != nil {
		return nil, err
	}
	c.Store = store
	c.Watcher = watcher

	// Redis backs the rate limiter only
	if cfg.RateLimit.Enabled {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.RedisClient = rdb
		c.RateLimiter = middleware.NewRateLimiter(
			rdb.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
				Enabled:           cfg.RateLimit.Enabled,
			},
			l,
		)
	}

	// Initialize use case
	c.UserUC = user.New(store, language.Make(cfg.App.CollationLocale), l)

	// Initialize Gin handler
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.Watcher != nil {
		if err := c.Watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store watcher: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
