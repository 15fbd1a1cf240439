package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/detect"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/archive"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/config"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/email"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/ffmpeg"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/inference"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/metrics"
	miniostorage "github.com/TinhAnhGitHub/Shot-Detection/internal/infra/minio"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/postgres"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/rabbitmq"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/render"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/tracing"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/usecase"
	"github.com/TinhAnhGitHub/Shot-Detection/pkg/logger"
)

const keyframeQuality = 2

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting shot-detection worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "shot-detection-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       cfg.MinIOEndpoint,
		AccessKey:      cfg.MinIOAccessKey,
		SecretKey:      cfg.MinIOSecretKey,
		UseSSL:         cfg.MinIOUseSSL,
		UploadBucket:   cfg.MinIOUploadBucket,
		KeyframeBucket: cfg.MinIOKeyframeBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Detection
	model := inference.NewClient(inference.ClientConfig{
		Endpoint: cfg.ModelEndpoint,
		Width:    cfg.FrameWidth,
		Height:   cfg.FrameHeight,
		Timeout:  cfg.ModelTimeout,
	}, log)
	detector := detect.NewDetector(model, detect.Config{
		Threshold:   cfg.Threshold,
		Concurrency: cfg.ModelConcurrency,
	}, log)
	analyzer := usecase.NewAnalyzer(
		ffmpeg.NewDecoder(cfg.FrameWidth, cfg.FrameHeight, log),
		detector,
		ffmpeg.NewKeyframeExtractor(keyframeQuality, log),
		render.NewTimelineRenderer(),
		log,
	)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	scenes := postgres.NewSceneRepository(pool)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewDetectShotsUseCase(
		repo, scenes, storage, analyzer, archive.NewZipCreator(),
		statusPub, dlqPub, notifier,
		log,
		usecase.DetectShotsConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
			Threshold:  cfg.Threshold,
			Keyframes:  cfg.KeyframesPerScene,
		},
	)

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("worker started, consuming messages",
		zap.String("queue", cfg.RabbitMQProcessingQueue),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
