package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/internal/archiver"
	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/config"
	"github.com/esgarath/wardenlevel/pkg/consumer"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/server"
	"github.com/esgarath/wardenlevel/pkg/worker"
)

func main() {
	// 1. Load config
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateArchiver(); err != nil {
		fmt.Printf("invalid archiver config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "archiver",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("archiver service initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize PostgreSQL
	pgWriter, err := archive.NewPostgresWriter(ctx, archive.PostgresConfig{
		URI:      cfg.Postgres.URI,
		MinConns: int32(cfg.Postgres.MinConns),
		MaxConns: int32(cfg.Postgres.MaxConns),
	}, l)
	if err != nil {
		l.Error("failed to connect to postgres", err)
		os.Exit(1)
	}
	defer pgWriter.Close()

	// 4. Initialize Consumer
	kafkaConsumer := consumer.NewKafkaConsumer(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()

	// 5. Worker pool and service
	pool := worker.NewPool(
		l,
		pgWriter,
		kafkaConsumer,
		cfg.Archiver.WorkerCount,
		cfg.Archiver.BatchSize,
		cfg.Archiver.FlushInterval,
	)
	svc := archiver.NewService(l, kafkaConsumer, pool)

	// 6. Observability server
	obsServer := server.New(":8081", l, nil)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	// 7. Start service
	l.Info("archiver service starting")
	if err := svc.Start(ctx); err != nil {
		if err == context.Canceled {
			l.Info("archiver service stopping")
		} else {
			l.Error("archiver service failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
