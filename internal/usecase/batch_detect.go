package usecase

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/catalog"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/metrics"
)

// Outcome is the result for one video of a batch. Exactly one of Scenes
// and Err is meaningful.
type Outcome struct {
	Scenes []entity.SceneRecord
	Err    error
}

type BatchDetectConfig struct {
	OutputDir string
	Threshold float32
	Keyframes int
}

// BatchDetectUseCase runs the analyzer over a local worklist, writing
// each video's artifacts to OutputDir/<video id>.
type BatchDetectUseCase struct {
	analyzer *Analyzer
	cfg      BatchDetectConfig
	logger   *zap.Logger
}

func NewBatchDetectUseCase(analyzer *Analyzer, cfg BatchDetectConfig, logger *zap.Logger) *BatchDetectUseCase {
	return &BatchDetectUseCase{analyzer: analyzer, cfg: cfg, logger: logger}
}

// Run processes videos in order. A failing video is logged and recorded in
// its Outcome; the batch carries on. Videos not reached before ctx is done
// get ctx's error.
func (uc *BatchDetectUseCase) Run(ctx context.Context, videos []catalog.Video) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(videos))
	for i, v := range videos {
		if err := ctx.Err(); err != nil {
			outcomes[v.ID] = Outcome{Err: err}
			continue
		}

		log := uc.logger.With(zap.String("video", v.ID), zap.Int("item", i+1), zap.Int("of", len(videos)))
		start := time.Now()

		analysis, err := uc.analyzer.Analyze(ctx, v.Path, AnalyzeOptions{
			Name:      v.ID,
			OutputDir: filepath.Join(uc.cfg.OutputDir, filepath.FromSlash(v.ID)),
			Threshold: uc.cfg.Threshold,
			Keyframes: uc.cfg.Keyframes,
		})
		if err != nil {
			log.Error("video failed, continuing", zap.Error(err))
			metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
			outcomes[v.ID] = Outcome{Err: err}
			continue
		}

		metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
		metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
		outcomes[v.ID] = Outcome{Scenes: analysis.Scenes}
	}
	return outcomes
}
