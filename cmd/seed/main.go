package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shulebook/shulebook/internal/archive"
	"github.com/shulebook/shulebook/internal/config"
	"github.com/shulebook/shulebook/internal/database"
	"github.com/shulebook/shulebook/internal/identity"
	"github.com/shulebook/shulebook/internal/profile"
	"github.com/shulebook/shulebook/internal/seed"
	syncer "github.com/shulebook/shulebook/internal/sync"
	"github.com/shulebook/shulebook/pkg/logger"
)

func main() {
	var (
		file   = flag.String("file", "", "JSON seed file (default: built-in bootstrap list)")
		dryRun = flag.Bool("dry-run", false, "validate and plan without touching any store")
	)
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *file != "" {
		cfg.Seed.File = *file
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src seed.Source
	if cfg.Seed.File != "" {
		src = seed.NewFileSource(cfg.Seed.File)
	} else {
		logger.Infof("no seed file given, using built-in bootstrap records")
		src = seed.NewStaticSource(seed.Bootstrap())
	}

	var (
		ids      identity.Store
		profiles profile.Store
	)
	if *dryRun {
		logger.Infof("dry run: all writes go to in-memory stores")
		ids = identity.NewMemory()
		profiles = profile.NewMemoryStore().WithMaxBatchOps(cfg.Sync.MaxBatchOps)
	} else {
		if err := cfg.CheckCredentials(); err != nil {
			logger.Fatalf("%v", err)
		}
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Fatalf("connect mongodb: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		profiles = profile.NewMongoStore(client.Database(cfg.MongoDB.Database)).
			WithMaxBatchOps(cfg.Sync.MaxBatchOps)

		if cfg.Keycloak.URL != "" {
			ids = identity.NewKeycloak(cfg.Keycloak)
		} else {
			logger.Warnf("KEYCLOAK_URL not set, identities go to an in-memory store")
			ids = identity.NewMemory()
		}
	}

	runner := syncer.New(src, ids, profiles, syncer.Options{
		Workers:       cfg.Sync.Workers,
		MaxBatchOps:   cfg.Sync.MaxBatchOps,
		RetryAttempts: cfg.Sync.RetryAttempts,
		RetryBackoff:  cfg.Sync.RetryBackoff,
	})

	rep, err := runner.Run(ctx)
	if err != nil {
		logger.Errorf("seed run aborted: %v", err)
		os.Exit(1)
	}

	if !*dryRun && cfg.Archive.Endpoint != "" {
		arch, aerr := archive.New(cfg.Archive)
		if aerr != nil {
			logger.Warnf("report archive unavailable: %v", aerr)
		} else if key, perr := arch.Put(ctx, rep); perr != nil {
			logger.Warnf("archive report: %v", perr)
		} else {
			logger.Infof("report archived as %s", key)
		}
	}

	if !rep.Ok() {
		os.Exit(1)
	}
}
