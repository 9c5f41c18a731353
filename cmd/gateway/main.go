package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/config"
	"taskboard/internal/events"
	"taskboard/internal/handler"
	"taskboard/internal/httpserver"
	"taskboard/internal/mq"
	"taskboard/internal/producer"
	"taskboard/internal/realtime"
	"taskboard/pkg/logger"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting gateway...",
		zap.String("port", cfg.Server.Port),
	)

	// Broker
	broker := mq.NewBroker(cfg.MQ.URL, log)
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, err := broker.Setup(setupCtx); err != nil {
		setupCancel()
		log.Fatal("Broker setup failed", zap.Error(err))
	}
	setupCancel()

	// Internal event bus + realtime hub
	bus := events.NewBus()
	hub := realtime.NewHub(log)
	realtime.NewNotifier(hub, bus, log)

	// Producers
	pub := mq.NewPublisher(broker, log)
	emailProducer := producer.NewEmailProducer(pub, log)
	thumbProducer := producer.NewThumbnailProducer(pub, bus, log)

	// Handlers
	taskHandler := handler.NewTaskHandler(emailProducer, thumbProducer)
	wsHandler := realtime.NewWSHandler(hub, bus, cfg.JWT.Secret, cfg.Worker.Secret, log)

	// Router
	router := httpserver.NewRouter(taskHandler, wsHandler)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Gateway running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := broker.Close(); err != nil {
		log.Error("Broker close error", zap.Error(err))
	}

	log.Info("Gateway shutdown complete")
}
