package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/ragequit-tracker/platform/pkg/bot"
	"github.com/ragequit-tracker/platform/pkg/common/config"
	"github.com/ragequit-tracker/platform/pkg/common/database"
	"github.com/ragequit-tracker/platform/pkg/common/kafka"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/middleware"
	"github.com/ragequit-tracker/platform/pkg/departures"
	"github.com/ragequit-tracker/platform/pkg/submissions"
	"github.com/ragequit-tracker/platform/pkg/xclient"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	departureRepo := departures.NewRepository(db)
	if err := departureRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate departure tables")
	}

	submissionRepo := submissions.NewRepository(db, departureRepo)
	if err := submissionRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate submission tables")
	}

	producer := kafka.NewProducer(cfg.KafkaEventTopic)
	defer producer.Close()

	departureSvc := departures.NewService(departureRepo, producer)
	moderator := submissions.NewModerator(submissionRepo, producer)

	platform := xclient.New(xclient.Options{
		BaseURL:        cfg.XAPIBaseURL,
		BearerToken:    cfg.XBearerToken,
		BotAccessToken: cfg.XBotAccessToken,
		Timeout:        cfg.XAPITimeout,
	})

	templates, err := bot.LoadTemplates(cfg.ReplyTemplatePath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default reply templates")
		templates = bot.DefaultTemplates()
	}

	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient = database.GetRedis()
	}
	pollLock := bot.NewPollLock(redisClient, cfg.PollLockTTL)

	poller := bot.NewPoller(platform, submissionRepo, producer, templates, cfg.SiteURL)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// The trigger endpoint carries its own scheduler secret.
	bot.NewTriggerHandler(poller, pollLock, cfg.CronSecret).Register(api)

	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.RequireSecret(cfg.AdminSecret))
	departures.NewHandler(departureSvc).Register(admin)
	submissions.NewHandler(moderator).Register(admin)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Tracker Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Internal scheduler for deployments without an external cron. The
	// HTTP trigger endpoint remains the canonical entry point.
	if cfg.PollInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					runScheduledPoll(ctx, poller, pollLock, platform)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Tracker Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Tracker Service stopped")
}

func runScheduledPoll(ctx context.Context, poller *bot.Poller, lock *bot.PollLock, platform *xclient.Client) {
	if !platform.Configured() {
		logger.Log.Debug("skipping scheduled poll: X_BEARER_TOKEN not set")
		return
	}

	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to acquire poll lock")
		return
	}
	if !acquired {
		return
	}
	defer lock.Release(ctx)

	if _, err := poller.Poll(ctx); err != nil {
		logger.Log.WithError(err).Error("scheduled poll failed")
	}
}
