package detect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/port"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/inference"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/metrics"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

type Result struct {
	Scores []float32
	Scenes []shot.Scene
}

type Detector struct {
	model       port.ShotModel
	threshold   float32
	concurrency int
	logger      *zap.Logger
}

type Config struct {
	Threshold   float32
	Concurrency int
}

func NewDetector(model port.ShotModel, cfg Config, logger *zap.Logger) *Detector {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Detector{
		model:       model,
		threshold:   cfg.Threshold,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// WithThreshold returns a copy of the detector using another threshold.
func (d *Detector) WithThreshold(threshold float32) *Detector {
	cp := *d
	cp.threshold = threshold
	return &cp
}

func (d *Detector) Threshold() float32 {
	return d.threshold
}

// Detect scores every window and decodes the stitched scores into scenes.
// Windows may be scored concurrently; their outputs are slotted by window
// index so the scores are always stitched in frame order.
func (d *Detector) Detect(ctx context.Context, frames []shot.Frame) (*Result, error) {
	windows, err := shot.Windows(frames)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outputs := make([][]float32, shot.WindowCount(len(frames)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	next := 0
	for window := range windows {
		if gctx.Err() != nil {
			break
		}
		idx := next
		next++
		g.Go(func() error {
			logits, err := d.model.Predict(gctx, window)
			if err != nil {
				return fmt.Errorf("window %d: %w", idx, err)
			}
			outputs[idx] = inference.Sigmoid(logits)
			metrics.WindowsScoredTotal.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asm, err := shot.NewAssembler(len(frames))
	if err != nil {
		return nil, err
	}
	for _, out := range outputs {
		if err := asm.Add(out); err != nil {
			return nil, err
		}
	}
	scores, err := asm.Scores()
	if err != nil {
		return nil, err
	}

	scenes, err := shot.DecodeScenes(scores, d.threshold)
	if err != nil {
		return nil, err
	}

	d.logger.Info("shots detected",
		zap.Int("frames", len(frames)),
		zap.Int("windows", len(outputs)),
		zap.Int("scenes", len(scenes)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Scores: scores, Scenes: scenes}, nil
}
