// Package container wires the process: repositories over the shared pool,
// usecases over the repositories, handlers over the usecases, one router.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/config"
	delivery "github.com/b0ho/glimpse-sub008/internal/delivery/http"
	"github.com/b0ho/glimpse-sub008/internal/delivery/http/handler"
	"github.com/b0ho/glimpse-sub008/internal/delivery/http/middleware"
	"github.com/b0ho/glimpse-sub008/internal/infrastructure/database"
	"github.com/b0ho/glimpse-sub008/internal/infrastructure/gemini"
	"github.com/b0ho/glimpse-sub008/internal/infrastructure/server"
	"github.com/b0ho/glimpse-sub008/internal/repository/postgres"
	"github.com/b0ho/glimpse-sub008/internal/usecase/anonymity"
	"github.com/b0ho/glimpse-sub008/internal/usecase/auth"
	"github.com/b0ho/glimpse-sub008/internal/usecase/group"
	"github.com/b0ho/glimpse-sub008/internal/usecase/interest"
	"github.com/b0ho/glimpse-sub008/internal/usecase/like"
	"github.com/b0ho/glimpse-sub008/internal/usecase/profile"
	"github.com/b0ho/glimpse-sub008/internal/usecase/quota"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Server *server.Server
	Gemini *gemini.Client

	Profiles  *profile.Store
	Interests *interest.Service

	sweepStop chan struct{}
}

func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var redisClient *redis.Client
	var counter quota.Counter = quota.NewMemoryCounter()
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		counter = quota.NewRedisCounter(redisClient)
	}

	var geminiClient *gemini.Client
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = gemini.NewClient(cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("gemini client unavailable, icebreakers disabled", zap.Error(err))
			geminiClient = nil
		}
	}

	accountRepo := postgres.NewAccountRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	likeRepo := postgres.NewLikeRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	interestRepo := postgres.NewInterestRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	var provider auth.Provider
	switch cfg.Auth.Strategy {
	case "dev":
		provider = auth.DevProvider{}
	default:
		provider = auth.NewJWTProvider(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiryMin)*time.Minute)
	}

	authService := auth.NewService(accountRepo, provider, auth.LogCodeSender{Logger: logger}, logger)

	quotaPolicy, err := quota.NewPolicy(&cfg.Quota, counter, accountRepo, interestRepo)
	if err != nil {
		return nil, err
	}

	profileStore := profile.NewStore(profileRepo, likeRepo, cfg.Quota.InstantTTL(), logger)
	anonymityPolicy := anonymity.NewPolicy()
	interestService := interest.NewService(interestRepo, quotaPolicy)
	groupService := group.NewService(groupRepo, profileStore)

	var enricher like.Enricher
	if geminiClient != nil {
		enricher = geminiClient
	}
	likeEngine := like.NewEngine(
		likeRepo,
		matchRepo,
		reportRepo,
		accountRepo,
		profileStore,
		quotaPolicy,
		anonymityPolicy,
		enricher,
		nil,
		cfg.Quota.Cooldown(),
		logger,
	)

	authMiddleware := middleware.NewAuthMiddleware(provider)

	router := delivery.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewProfileHandler(profileStore),
		handler.NewLikeHandler(likeEngine),
		handler.NewMatchHandler(likeEngine),
		handler.NewGroupHandler(groupService),
		handler.NewInterestHandler(interestService, quotaPolicy),
		authMiddleware,
	)

	srv := server.NewServer(&cfg.Server, router.Setup(), logger)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     redisClient,
		Server:    srv,
		Gemini:    geminiClient,
		Profiles:  profileStore,
		Interests: interestService,
		sweepStop: make(chan struct{}),
	}, nil
}

// StartSweeper runs the background expiry loop. Reads already apply lazy
// expiry; the sweeper just keeps storage from accumulating dead rows.
func (c *Container) StartSweeper() {
	interval := time.Duration(c.Config.Quota.SweepIntervalMin) * time.Minute
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if n, err := c.Profiles.SweepExpired(ctx); err != nil {
					c.Logger.Warn("profile sweep failed", zap.Error(err))
				} else if n > 0 {
					c.Logger.Info("purged expired instant profiles", zap.Int("count", n))
				}
				if n, err := c.Interests.SweepExpired(ctx); err != nil {
					c.Logger.Warn("interest sweep failed", zap.Error(err))
				} else if n > 0 {
					c.Logger.Info("removed expired interest registrations", zap.Int64("count", n))
				}
				cancel()
			case <-c.sweepStop:
				return
			}
		}
	}()
}

// Close releases all held resources.
func (c *Container) Close() error {
	close(c.sweepStop)
	if c.Gemini != nil {
		c.Gemini.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			return err
		}
	}
	return c.DB.Close()
}
