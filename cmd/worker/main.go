// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"appointment-scheduler/internal/appointments"
	"appointment-scheduler/internal/capabilities"
	"appointment-scheduler/internal/common/config"
	"appointment-scheduler/internal/common/database"
	"appointment-scheduler/internal/common/logger"
	"appointment-scheduler/internal/common/observability"
	"appointment-scheduler/internal/common/queue"
	"appointment-scheduler/internal/common/storage"
	"appointment-scheduler/internal/jobs"
	"appointment-scheduler/internal/workers/scheduling"
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

	zapLog.Info("Starting scheduling worker...")

	obs := observability.New("worker")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	appointmentStore := appointments.NewStore(pg)
	if err := appointmentStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("appointments schema setup failed", zap.Error(err))
	}

	// --- Init S3 ---
	objects, err := storage.NewS3Client(ctx, cfg.Storage.S3)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}
	zapLog.Info("S3 client initialized")

	// --- Init extraction capabilities ---
	genai := capabilities.NewGenAIClient(cfg.Capabilities, log)
	ocr := capabilities.NewOCRClient(cfg.Capabilities, log)

	referenceDate := cfg.Scheduling.ReferenceDate
	if referenceDate == "" {
		loc, err := time.LoadLocation(cfg.Scheduling.Timezone)
		if err != nil {
			zapLog.Fatal("invalid timezone", zap.Error(err), zap.String("timezone", cfg.Scheduling.Timezone))
		}
		referenceDate = time.Now().In(loc).Format("2006-01-02")
	}
	normalizer := capabilities.NewDateTimeNormalizer(genai, referenceDate, cfg.Scheduling.Timezone)

	handler := scheduling.NewHandler(
		scheduling.LoadConfig(cfg),
		jobs.NewStore(redis),
		appointmentStore,
		objects,
		ocr,
		genai,
		normalizer,
		obs,
		log,
	)

	// --- Health/Metrics side server ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"healthy","time":%q}`, time.Now().Format(time.RFC3339))
		})
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, mux); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Consuming tasks",
		zap.String("queue", cfg.RabbitMQ.QueueName),
		zap.Int("prefetch", cfg.RabbitMQ.Prefetch),
	)

	if err := broker.Consume(ctx, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.Prefetch, handler.Handle); err != nil && err != context.Canceled {
		zapLog.Error("consumer stopped", zap.Error(err))
	}

	zapLog.Info("Worker stopped gracefully")
}
