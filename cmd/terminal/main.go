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
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/cart"
	"pos-service/internal/connectivity"
	"pos-service/internal/inventory"
	"pos-service/internal/notice"
	"pos-service/internal/pending"
	"pos-service/internal/reconcile"
	"pos-service/internal/submit"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS terminal")

	tp, err := util.InitTracer("pos-terminal", cfg.Observ.JaegerEndpoint)
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

	var store pending.Store
	redisStore, err := pending.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// A memory queue loses sales on restart; only acceptable in dev.
		if cfg.Server.Env == "production" {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("Redis unavailable (%v), using in-memory pending store", err)
		store = pending.NewMemoryStore()
	} else {
		defer redisStore.Close()
		store = redisStore
		log.Println("Pending store connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)
	board := notice.NewBoard(200)

	submitClient := submit.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.Token, cfg.Sync.SubmitTimeout)
	inventoryClient := inventory.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.Token, cfg.Sync.SubmitTimeout, 30*time.Second)
	reconciler := reconcile.New(store, submitClient, board, eventPublisher)

	prober := connectivity.NewHTTPProber(cfg.Ledger.BaseURL+"/health", 5*time.Second)
	monitor := connectivity.NewMonitor(prober, cfg.Sync.ProbeInterval, cfg.Terminal.ID, board, eventPublisher)
	monitor.OnOnline(func(context.Context) {
		reconciler.TriggerDrain()
	})

	go func() {
		if err := monitor.Start(context.Background()); err != nil && err != context.Canceled {
			log.Printf("Connectivity monitor error: %v", err)
		}
	}()

	checkout := cart.NewService(store, reconciler, monitor, inventoryClient, board, eventPublisher,
		cfg.Terminal.OperatorID, cfg.Sync.SubmitTimeout)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(checkout, reconciler, monitor, store, board)
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

	log.Println("Shutting down terminal...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	monitor.Stop()

	log.Println("Terminal exited")
}
