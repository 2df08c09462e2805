// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"appointment-scheduler/internal/api"
	"appointment-scheduler/internal/common/config"
	"appointment-scheduler/internal/common/database"
	"appointment-scheduler/internal/common/logger"
	"appointment-scheduler/internal/common/observability"
	"appointment-scheduler/internal/common/queue"
	"appointment-scheduler/internal/common/storage"
	"appointment-scheduler/internal/jobs"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting api server...")

	obs := observability.New("api-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init RabbitMQ with retry ---
	var broker *queue.Client
	err = retryWithBackoff(func() error {
		var err error
		broker, err = queue.Connect(cfg.RabbitMQ.URL)
		return err
	}, 10, 2*time.Second, zapLog, "RabbitMQ connection")
	if err != nil {
		zapLog.Fatal("rabbitmq failed after retries", zap.Error(err))
	}
	defer broker.Close()
	zapLog.Info("RabbitMQ connected successfully")

	// --- Init S3 ---
	objects, err := storage.NewS3Client(ctx, cfg.Storage.S3)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}
	zapLog.Info("S3 client initialized")

	server := api.NewServer(jobs.NewStore(redis), broker, objects, cfg.RabbitMQ.QueueName, log)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.NewRouter(),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping api server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("API server stopped gracefully")
}
