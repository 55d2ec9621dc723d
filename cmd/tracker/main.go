package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/internal/roster"
	"github.com/esgarath/wardenlevel/pkg/config"
	"github.com/esgarath/wardenlevel/pkg/export"
	"github.com/esgarath/wardenlevel/pkg/identity"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/resume"
	"github.com/esgarath/wardenlevel/pkg/server"
	"github.com/esgarath/wardenlevel/pkg/store"
)

func main() {
	// 1. Load config
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "tracker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("tracker service initializing", zap.String("env", cfg.Environment))

	// 3. Initialize MongoDB
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout)
	defer mongoCancel()
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		l.Error("failed to connect to mongodb", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)

	// 4. Resume token store and optional Redis presence
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var resumeStore resume.Store
	switch cfg.Tracker.ResumeBackend {
	case "redis":
		resumeStore = resume.NewRedisStore(redisClient, "wardenlevel:resume")
	default:
		resumeStore = resume.NewFileStore(cfg.Tracker.ResumeTokenDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Writer identity
	writerID := identity.NewWriterID()
	l.Info("writer identity assigned", zap.String("writer_id", writerID))
	if redisClient != nil {
		registry := identity.NewRegistry(redisClient, "wardenlevel:writers", 5*time.Minute)
		announce := func() {
			if err := registry.Announce(ctx, writerID); err != nil {
				l.Warn("failed to announce writer identity", zap.Error(err))
			}
		}
		announce()
		go func() {
			ticker := time.NewTicker(2 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					announce()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// 6. Audit topic publisher
	publisher := export.NewKafkaPublisher(export.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer publisher.Close()

	// 7. Sync core
	mongoStore := store.NewMongo(db, resumeStore, l)
	state := store.NewStateTracker(store.DefaultGraceWindow)
	controller := roster.NewController(mongoStore, state, publisher, l, roster.Config{
		WriterID:    writerID,
		Professions: cfg.Tracker.Professions,
		ChangeLimit: cfg.Tracker.ChangeLimit,
	})

	if err := controller.Start(ctx); err != nil {
		l.Error("failed to start roster controller", err)
		os.Exit(1)
	}
	defer controller.Stop()

	// 8. HTTP surface
	httpServer := server.New(cfg.Tracker.HTTPAddr, l, server.NewAPI(controller, l))
	go func() {
		if err := httpServer.Start(); err != nil {
			l.Error("http server failed", err)
		}
	}()

	l.Info("tracker service started", zap.String("addr", cfg.Tracker.HTTPAddr))
	<-ctx.Done()
	l.Info("tracker service stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
