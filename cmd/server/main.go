package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitmatch/coaching-api/internal/api"
	"github.com/fitmatch/coaching-api/internal/assistant"
	"github.com/fitmatch/coaching-api/internal/config"
	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/events"
	"github.com/fitmatch/coaching-api/internal/lock"
	"github.com/fitmatch/coaching-api/internal/repository/memory"
	"github.com/fitmatch/coaching-api/internal/repository/mongo"
	"github.com/fitmatch/coaching-api/internal/service"
	"github.com/fitmatch/coaching-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title Coaching API
// @version 1.0
// @description Marketplace connecting fitness clients with personal trainers: requests, plans and messaging.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logger := initLogger(&cfg)
	logger.Info("starting coaching api", "env", cfg.App.Env, "database", cfg.Database.Driver, "events", cfg.Events.Broker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Persistence ---
	repos, closeDB, err := initRepositories(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	// --- Serialization points ---
	locker, closeLocker, err := initLocker(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	// --- Storage ---
	var files storage.FileStorage = storage.Disabled{}
	if cfg.S3.BucketName != "" {
		if files, err = storage.NewS3Storage(ctx, cfg.S3, logger); err != nil {
			logger.Error("failed to initialize s3 storage", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("s3.bucket_name not set, photo uploads are disabled")
	}

	// --- Events ---
	bus := events.NewBus(logger)
	publisher, err := initPublisher(cfg.Events)
	if err != nil {
		logger.Error("failed to connect event broker", "broker", cfg.Events.Broker, "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		events.Forward(bus, publisher)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("failed to close event publisher", "error", err)
			}
		}()
	}

	// --- Services ---
	messaging := service.NewMessagingService(repos, bus, logger)
	authService := service.NewAuthService(repos.Users, service.BcryptHasher{}, bus, logger, cfg.JWT.Secret, cfg.JWT.Expiration)
	services := api.Services{
		Auth:         authService,
		Identity:     service.NewIdentityService(repos, locker, files, bus, logger),
		Relationship: service.NewRelationshipService(repos, locker, bus, logger),
		Plans:        service.NewPlanService(repos, locker, bus, logger),
		Messaging:    messaging,
		Dashboard:    service.NewDashboardService(repos),
	}

	if cfg.Assistant.Enabled {
		var replier assistant.Replier = assistant.Offline{}
		if cfg.Assistant.APIKey != "" {
			replier = assistant.NewGemini(cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.Endpoint)
		}
		bus.Register(domain.EventMessageSent, service.NewAutoReplier(repos, messaging, replier, logger).Handle)
		logger.Info("auto-reply enabled", "provider_configured", cfg.Assistant.APIKey != "")
	}

	// --- HTTP ---
	if cfg.App.Env == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(logger, authService.GetJWTSecret(), services),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server closed with unexpected error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// In-flight handlers (auto-replies, broker forwarding) finish before the stores close.
	bus.Close()
	logger.Info("server shutdown")
}

func initLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.App.Env {
	case config.Development:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	case config.Production:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		})
	default:
		panic("invalid env")
	}

	return slog.New(handler)
}

func initRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (service.Repositories, func(), error) {
	if cfg.Driver == "memory" {
		st := memory.NewStore()
		logger.Warn("using in-memory store, data is lost on restart")
		return service.Repositories{
			Users:    st.Users(),
			Requests: st.Requests(),
			Plans:    st.Plans(),
			Messages: st.Messages(),
			Tx:       st,
		}, func() {}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return service.Repositories{}, nil, err
	}
	closeDB := func() {
		if err := mongo.DisconnectDB(client); err != nil {
			logger.Error("failed to disconnect mongodb", "error", err)
		}
	}

	db := client.Database(cfg.Name)
	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
		closeDB()
		return service.Repositories{}, nil, err
	}
	logger.Info("mongodb connected", "database", cfg.Name)

	return service.Repositories{
		Users:    mongo.NewMongoUserRepository(db),
		Requests: mongo.NewMongoRequestRepository(db),
		Plans:    mongo.NewMongoPlanRepository(db),
		Messages: mongo.NewMongoMessageRepository(db),
		Tx:       mongo.NewTransactor(client),
	}, closeDB, nil
}

// initLocker uses Redis when configured so several instances share locks.
// Without redis.addr the locks are in-process, which only serializes a single instance.
func initLocker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Addr == "" {
		logger.Warn("redis.addr not set, using in-process locks")
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("redis locks enabled", "addr", cfg.Addr)
	return lock.NewRedis(client, logger), func() { _ = client.Close() }, nil
}

func initPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Broker {
	case "rabbitmq":
		p, err := events.NewRabbitMQ(cfg.URL, cfg.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "kafka":
		return events.NewKafka(cfg.Brokers, cfg.Topic), nil
	}
	return nil, nil
}
