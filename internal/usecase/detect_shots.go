package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/port"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/metrics"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

type DetectShotsUseCase struct {
	repo      port.JobRepository
	scenes    port.SceneRepository
	storage   port.VideoStorage
	analyzer  *Analyzer
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
	threshold float32
	keyframes int
}

type DetectShotsConfig struct {
	TempDir    string
	MaxRetries int
	Threshold  float32
	Keyframes  int
}

func NewDetectShotsUseCase(
	repo port.JobRepository,
	scenes port.SceneRepository,
	storage port.VideoStorage,
	analyzer *Analyzer,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg DetectShotsConfig,
) *DetectShotsUseCase {
	if cfg.Keyframes == 0 {
		cfg.Keyframes = shot.DefaultKeyframes
	}
	return &DetectShotsUseCase{
		repo:      repo,
		scenes:    scenes,
		storage:   storage,
		analyzer:  analyzer,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
		threshold: cfg.Threshold,
		keyframes: cfg.Keyframes,
	}
}

func (uc *DetectShotsUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "DetectShotsUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.DetectionRequest
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	opts, err := uc.options(msg)
	if err != nil {
		log.Warn("rejecting request", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.detectPipeline(ctx, job, msg, rawMsg, opts, log); err != nil {
		return err
	}
	if job.Status != entity.JobStatusCompleted {
		return nil
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

// options resolves per-request overrides against the service defaults.
func (uc *DetectShotsUseCase) options(msg entity.DetectionRequest) (AnalyzeOptions, error) {
	opts := AnalyzeOptions{
		Name:      strings.TrimSuffix(path.Base(msg.VideoKey), path.Ext(msg.VideoKey)),
		Threshold: uc.threshold,
		Keyframes: uc.keyframes,
	}
	if msg.Threshold != nil {
		if t := *msg.Threshold; t < 0 || t >= 1 {
			return opts, fmt.Errorf("%w: threshold %v outside [0,1)", shot.ErrInvalidInput, t)
		}
		opts.Threshold = *msg.Threshold
	}
	if msg.Keyframes != 0 {
		if msg.Keyframes < 2 {
			return opts, fmt.Errorf("%w: keyframes per scene must be at least 2, got %d", shot.ErrInvalidInput, msg.Keyframes)
		}
		opts.Keyframes = msg.Keyframes
	}
	return opts, nil
}

func (uc *DetectShotsUseCase) detectPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.DetectionRequest,
	rawMsg []byte,
	opts AnalyzeOptions,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+path.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	opts.OutputDir = filepath.Join(workDir, "out")
	analysis, err := uc.analyzer.Analyze(ctx, videoPath, opts)
	if err != nil {
		log.Error("scene analysis failed", zap.Error(err))
		if errors.Is(err, shot.ErrInvalidInput) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "analyze: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze: "+err.Error(), log)
	}

	// Bundle keyframes, report and timeline
	zipStart := time.Now()
	ctx4, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "keyframes.zip")
	if err := uc.zipper.CreateZip(ctx4, analysis.Files(), zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	upStart := time.Now()
	ctx5, spanUp := tracer.Start(ctx, "upload_artifacts")
	prefix := fmt.Sprintf("%s/%s", msg.UserID, job.ID.String())
	zipKey := prefix + "/keyframes.zip"
	uploads := []artifact{
		{zipKey, zipPath, "application/zip"},
		{prefix + "/" + reportFile, analysis.ReportPath, "application/json"},
	}
	if analysis.TimelinePath != "" {
		uploads = append(uploads, artifact{prefix + "/" + timelineFile, analysis.TimelinePath, "image/png"})
	}
	for _, u := range uploads {
		if err := uc.upload(ctx5, u.key, u.file, u.contentType); err != nil {
			spanUp.End()
			log.Error("artifact upload failed", zap.String("key", u.key), zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_artifacts: "+err.Error(), log)
		}
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	for i := range analysis.Scenes {
		analysis.Scenes[i].JobID = job.ID
	}
	if err := uc.scenes.ReplaceScenes(ctx, job.ID, analysis.Scenes); err != nil {
		log.Error("failed to store scenes", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "store_scenes: "+err.Error(), log)
	}

	job.MarkCompleted(zipKey, analysis.FrameCount, len(analysis.Scenes), analysis.FPS)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", analysis.FrameCount),
		zap.Int("scene_count", len(analysis.Scenes)),
		zap.String("archive_key", zipKey),
	)

	return nil
}

type artifact struct {
	key         string
	file        string
	contentType string
}

func (uc *DetectShotsUseCase) upload(ctx context.Context, key, file, contentType string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	return uc.storage.UploadArtifact(ctx, key, f, stat.Size(), contentType)
}

func (uc *DetectShotsUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.DetectionRequest,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *DetectShotsUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.DetectionRequest,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *DetectShotsUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.DetectionStatus{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		ArchiveKey:   job.ArchiveKey,
		FrameCount:   job.FrameCount,
		SceneCount:   job.SceneCount,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
