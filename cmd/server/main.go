package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shulebook/shulebook/handlers"
	"github.com/shulebook/shulebook/internal/config"
	"github.com/shulebook/shulebook/internal/database"
	"github.com/shulebook/shulebook/internal/identity"
	"github.com/shulebook/shulebook/internal/oidc"
	"github.com/shulebook/shulebook/internal/profile"
	"github.com/shulebook/shulebook/internal/report"
	"github.com/shulebook/shulebook/internal/seed"
	syncer "github.com/shulebook/shulebook/internal/sync"
	"github.com/shulebook/shulebook/pkg/logger"
	"github.com/shulebook/shulebook/pkg/metrics"
	"github.com/shulebook/shulebook/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.CheckCredentials(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx := context.Background()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("connect mongodb: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	profiles := profile.NewMongoStore(client.Database(cfg.MongoDB.Database)).
		WithMaxBatchOps(cfg.Sync.MaxBatchOps)

	var ids identity.Store
	if cfg.Keycloak.URL != "" {
		ids = identity.NewKeycloak(cfg.Keycloak)
	} else {
		logger.Warnf("KEYCLOAK_URL not set, identities go to an in-memory store")
		ids = identity.NewMemory()
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis unreachable (%v), falling back to in-memory report store", err)
			redisClient = nil
		}
	}

	var reports report.Store
	if redisClient != nil {
		reports = report.NewRedisStore(redisClient, "", 0)
	} else {
		reports = report.NewMemoryStore()
	}

	var src seed.Source
	if cfg.Seed.File != "" {
		src = seed.NewFileSource(cfg.Seed.File)
	} else {
		src = seed.NewStaticSource(seed.Bootstrap())
	}

	runner := syncer.New(src, ids, profiles, syncer.Options{
		Workers:       cfg.Sync.Workers,
		MaxBatchOps:   cfg.Sync.MaxBatchOps,
		RetryAttempts: cfg.Sync.RetryAttempts,
		RetryBackoff:  cfg.Sync.RetryBackoff,
	})

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", handlers.Health)
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mongodb unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	if cfg.Keycloak.URL != "" {
		verifier, verr := oidc.NewVerifier(ctx, cfg.Keycloak.URL+"/realms/"+cfg.Keycloak.Realm, cfg.Keycloak.ClientID)
		if verr != nil {
			logger.Fatalf("oidc verifier: %v", verr)
		}
		api.Use(middleware.AuthMiddleware(verifier))
	} else {
		logger.Warnf("KEYCLOAK_URL not set, /api/v1 runs without authentication")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			api.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, window))
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	handlers.NewSyncHandler(runner, reports, 0).RegisterRoutes(api)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("sync service listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
