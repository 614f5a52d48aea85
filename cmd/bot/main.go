package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/handler"
	"github.com/dotastats-bot/internal/kafka"
	"github.com/dotastats-bot/internal/opendota"
	"github.com/dotastats-bot/internal/quiz"
	"github.com/dotastats-bot/internal/redis"
	"github.com/dotastats-bot/internal/resolver"
	"github.com/dotastats-bot/internal/service"
	"github.com/dotastats-bot/internal/steam"
	"github.com/dotastats-bot/internal/storage"
	"github.com/dotastats-bot/internal/telegram"
	"github.com/dotastats-bot/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file %s: %v\n", cfg.Log.File, err)
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfgErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", cfgErr)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage problems degrade the bot instead of stopping it
	engine := storage.EngineFor(&cfg.Database)
	logger.Info("opening storage", "engine", engine)
	store, err := storage.Open(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("storage unavailable, continuing without it", "engine", engine, "error", err)
		store = nil
	} else {
		logger.Info("storage ready", "engine", engine)
	}

	// Vanity URLs need a Steam key
	var vanity resolver.VanityResolver
	if steamClient := steam.NewClient(&cfg.Steam, logger); steamClient != nil {
		vanity = steamClient
	} else {
		logger.Warn("STEAM_API_KEY not set, vanity profile links are disabled")
	}

	stats := opendota.NewClient(&cfg.OpenDota, logger)
	botService := service.NewBotService(resolver.New(vanity, logger), stats, store, cfg, logger)

	// Redis mirror of the quiz leaderboard
	var scoreBoard *redis.ScoreBoard
	var syncWorker *worker.SyncWorker
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		scoreBoard, err = redis.NewScoreBoard(ctx, &cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without it", "error", err)
			scoreBoard = nil
		} else {
			botService.SetScoreBoard(scoreBoard)
			if store != nil {
				syncWorker = worker.NewSyncWorker(store, scoreBoard, &cfg.Sync, logger)
				if err := syncWorker.RunOnce(ctx); err != nil {
					logger.Warn("failed to seed Redis leaderboard", "error", err)
				}
				if cfg.Sync.Enabled {
					if err := syncWorker.Start(ctx); err != nil {
						logger.Warn("failed to start sync worker", "error", err)
					}
				}
			}
		}
	}

	// Activity events
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka producer", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		producer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without Kafka", "error", err)
			producer = nil
		} else {
			botService.SetPublisher(producer)
		}
	}

	// Status server
	var pinger handler.Pinger
	if store != nil {
		pinger = store
	}
	httpHandler := handler.NewHandler(botService, pinger, handler.StatusInfo{
		Engine:       string(engine),
		RedisEnabled: scoreBoard != nil,
		KafkaEnabled: producer != nil,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Telegram long polling
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info("authorized on Telegram", "username", api.Self.UserName)

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		logger.Warn("failed to drop pending updates", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := api.GetUpdatesChan(u)

	bot := telegram.NewBot(api, botService, quiz.DefaultBank(), &cfg.Telegram, logger)
	logger.Info("bot started", "workers", cfg.Telegram.Workers)
	bot.Run(ctx, updates)

	logger.Info("shutting down...")
	api.StopReceivingUpdates()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}
	if scoreBoard != nil {
		if err := scoreBoard.Close(); err != nil {
			logger.Error("failed to close Redis client", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}

	logger.Info("bot stopped")
}
