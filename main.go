package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/auth"
	"github.com/krishkalaria12/snap-edit/cache"
	"github.com/krishkalaria12/snap-edit/config"
	"github.com/krishkalaria12/snap-edit/database"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/gallery"
	handler "github.com/krishkalaria12/snap-edit/handlers"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/metrics"
	"github.com/krishkalaria12/snap-edit/middleware"
	"github.com/krishkalaria12/snap-edit/router"
	"github.com/krishkalaria12/snap-edit/store"
	"github.com/krishkalaria12/snap-edit/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("snap-edit", "info").WithError(err).Fatal("invalid configuration")
	}
	log := logger.New("snap-edit", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeRepo()

	var imageCache *cache.Cache
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, caching disabled")
		} else {
			defer rdb.Close()
			imageCache = cache.New(rdb, cfg.CacheTTL)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NatsURL != "" {
		nc, err := events.ConnectNATS(cfg.NatsURL, log)
		if err != nil {
			log.WithError(err).Warn("nats unavailable, events disabled")
		} else {
			defer nc.Close()
			publisher = nc
		}
	}

	m := metrics.New()
	media, err := assets.NewCloudinary(cfg, log, m)
	if err != nil {
		log.WithError(err).Fatal("failed to create media client")
	}

	var archive assets.Archiver
	if cfg.GCSBucketName != "" {
		gcs, err := assets.NewGCSArchiver(ctx, cfg.GCSProjectID, cfg.GCSBucketName, cfg.ExternalTimeout*5)
		if err != nil {
			log.WithError(err).Fatal("failed to create archive client")
		}
		defer gcs.Close()
		archive = gcs
	}

	images := gallery.New(repo, media, log, gallery.Options{
		Cache:               imageCache,
		Events:              publisher,
		SwallowDeleteErrors: cfg.DeleteSwallowErrors,
	})
	sessions := workflow.NewSessions(workflow.Deps{
		Repo:          repo,
		Assets:        media,
		Events:        publisher,
		Metrics:       m,
		Invalidator:   images,
		Log:           log,
		DebounceDelay: cfg.DebounceDelay,
	}, cfg.SessionTTL)
	go sessions.Run(ctx)

	tokens := auth.NewService(cfg)
	accounts := auth.NewAccounts(repo.Users(), publisher, log, cfg.InitialCredits)

	h := handler.New(handler.Deps{
		Gallery:       images,
		Sessions:      sessions,
		Accounts:      accounts,
		Assets:        media,
		Archive:       archive,
		Log:           log,
		WebhookSecret: cfg.WebhookSecret,
	})

	applyLimiter := middleware.NewUserRateLimiter(cfg.ApplyRatePerMinute)
	go applyLimiter.Run(ctx, 10*time.Minute)

	app := router.NewApp(m, middleware.RequestLogger(log))
	router.SetupRoutes(app, h, router.Guards{
		Auth:      middleware.AuthMiddleware(tokens, accounts, log),
		ApplyRate: applyLimiter.Handler(),
	}, m)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithField("port", cfg.AppPort).Info("server is listening")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Error("server stopped")
	}
}

// openRepository connects the store selected by STORE_DRIVER.
func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Repository, func(), error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, err
		}
		repo := store.NewMongoRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("connected to mongo")
		return repo, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Error("failed to close mongo connection")
			}
		}, nil
	case "postgres":
		db, err := database.Connect(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		repo := store.NewGormRepository(db)
		if err := repo.Migrate(); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		return repo, func() {
			if err := database.Close(db); err != nil {
				log.WithError(err).Error("failed to close database connection")
			}
		}, nil
	}
	return nil, nil, errors.New("unsupported store driver " + cfg.StoreDriver)
}
