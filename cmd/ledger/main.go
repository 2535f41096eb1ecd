package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/broker"
	"pos-service/internal/ledger"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting sales ledger")

	tp, err := util.InitTracer("pos-ledger", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	store, err := ledger.NewStore(cfg.Ledger.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Println("Database connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)
	service := ledger.NewService(store, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	reportingWorker := worker.NewReportingWorker(consumer, service)
	go func() {
		if err := reportingWorker.Start(workerCtx); err != nil {
			log.Printf("Reporting worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := ledger.NewHandler(service, cfg.Ledger.Token)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down ledger...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	reportingWorker.Stop()

	log.Println("Ledger exited")
}
