package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/config"
	"taskboard/internal/mq"
	"taskboard/internal/mqhandler"
	"taskboard/internal/relay"
	"taskboard/internal/repository"
	"taskboard/internal/service/mailer"
	"taskboard/internal/service/thumbnail"
	"taskboard/pkg/db"
	"taskboard/pkg/logger"
	"taskboard/pkg/redisclient"
	"taskboard/pkg/util"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting worker...",
		zap.String("gateway_url", cfg.Worker.GatewayURL),
	)

	// Redis (task dedup)
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour)

	// Postgres task audit log, optional
	var taskLog *repository.TaskLogRepository
	if cfg.DB.Host != "" {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("DB connection failed", zap.Error(err))
		}
		defer dbConn.Close()
		taskLog = repository.NewTaskLogRepository(dbConn)
	} else {
		log.Info("DB not configured, task audit log disabled")
	}

	// Broker
	broker := mq.NewBroker(cfg.MQ.URL, log)
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, err := broker.Setup(setupCtx); err != nil {
		setupCancel()
		log.Fatal("Broker setup failed", zap.Error(err))
	}
	setupCancel()

	// Relay back into the gateway's realtime layer
	relayClient := relay.NewClient(cfg.Worker.GatewayURL, cfg.Worker.Secret, log)
	defer relayClient.Close()

	// Services
	mailService := mailer.NewService(mailer.NewSMTPSender(cfg.SMTP), log)
	thumbService := thumbnail.NewService(
		thumbnail.Size{Width: cfg.Thumbnail.Width, Height: cfg.Thumbnail.Height},
		log,
	)

	// Handlers
	emailHandler := mqhandler.NewEmailTaskHandler(mailService, deduper, taskLog, log)
	thumbHandler := mqhandler.NewThumbnailTaskHandler(thumbService, relayClient, deduper, taskLog, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Email consumer
	emailConsumer := mq.NewConsumer(broker, mq.EmailQueue, log)
	emailConsumer.SetHandler(emailHandler.Handle)
	go func() {
		if err := emailConsumer.Start(ctx); err != nil {
			log.Fatal("Email consumer failed", zap.Error(err))
		}
	}()

	// Thumbnail consumer
	thumbConsumer := mq.NewConsumer(broker, mq.ThumbnailQueue, log)
	thumbConsumer.SetHandler(thumbHandler.Handle)
	go func() {
		if err := thumbConsumer.Start(ctx); err != nil {
			log.Fatal("Thumbnail consumer failed", zap.Error(err))
		}
	}()

	log.Info("Worker running, consumers started")

	// Graceful shutdown: closing the broker lets the broker redeliver any
	// unacked messages to the next worker instance.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")
	cancel()

	if err := broker.Close(); err != nil {
		log.Error("Broker close error", zap.Error(err))
	}
	relayClient.Close()

	log.Info("Worker shutdown complete")
}
