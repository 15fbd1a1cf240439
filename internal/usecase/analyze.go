package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/detect"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/port"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/metrics"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

const (
	reportFile   = "scenes.json"
	timelineFile = "timeline.png"
)

// Analyzer runs the detection stages shared by the queue worker and the
// batch tool: decode, detect, sample and extract keyframes, then write
// the scene report and the timeline image into a local directory.
type Analyzer struct {
	decoder   port.FrameDecoder
	detector  *detect.Detector
	keyframes port.KeyframeExtractor
	renderer  port.TimelineRenderer
	logger    *zap.Logger
}

func NewAnalyzer(
	decoder port.FrameDecoder,
	detector *detect.Detector,
	keyframes port.KeyframeExtractor,
	renderer port.TimelineRenderer,
	logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		decoder:   decoder,
		detector:  detector,
		keyframes: keyframes,
		renderer:  renderer,
		logger:    logger,
	}
}

type AnalyzeOptions struct {
	Name      string
	OutputDir string
	Threshold float32
	Keyframes int
}

// Analysis is what one video produced. Paths point into OutputDir.
type Analysis struct {
	FrameCount    int
	FPS           float64
	Scores        []float32
	Scenes        []entity.SceneRecord
	KeyframePaths []string
	ReportPath    string
	TimelinePath  string
}

// Files lists every produced artifact, keyframes first.
func (a *Analysis) Files() []string {
	files := append([]string{}, a.KeyframePaths...)
	files = append(files, a.ReportPath)
	if a.TimelinePath != "" {
		files = append(files, a.TimelinePath)
	}
	return files
}

func (a *Analyzer) Analyze(ctx context.Context, videoPath string, opts AnalyzeOptions) (*Analysis, error) {
	tracer := otel.Tracer("usecase")
	log := a.logger.With(zap.String("video", opts.Name))
	if opts.Keyframes == 0 {
		opts.Keyframes = shot.DefaultKeyframes
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	decStart := time.Now()
	ctx1, spanDec := tracer.Start(ctx, "decode_frames")
	info, err := a.decoder.Probe(ctx1, videoPath)
	if err != nil {
		log.Warn("could not probe video, timestamps disabled", zap.Error(err))
		info = &port.VideoInfo{}
	}
	frames, err := a.decoder.DecodeFrames(ctx1, videoPath)
	spanDec.End()
	if err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}
	metrics.FramesDecodedTotal.Add(float64(len(frames)))
	metrics.JobProcessingDuration.WithLabelValues("decode").Observe(time.Since(decStart).Seconds())

	detStart := time.Now()
	ctx2, spanDet := tracer.Start(ctx, "detect_scenes",
		trace.WithAttributes(attribute.Int("frames", len(frames)), attribute.Float64("threshold", float64(opts.Threshold))))
	res, err := a.detector.WithThreshold(opts.Threshold).Detect(ctx2, frames)
	if err != nil {
		spanDet.RecordError(err)
		spanDet.End()
		return nil, fmt.Errorf("detect scenes: %w", err)
	}
	spanDet.SetAttributes(attribute.Int("scenes", len(res.Scenes)))
	spanDet.End()
	metrics.ScenesPerVideo.Observe(float64(len(res.Scenes)))
	metrics.JobProcessingDuration.WithLabelValues("detect").Observe(time.Since(detStart).Seconds())

	kfStart := time.Now()
	ctx3, spanKf := tracer.Start(ctx, "extract_keyframes")
	records, keyframePaths, err := a.extractKeyframes(ctx3, videoPath, res.Scenes, info.FPS, opts)
	spanKf.End()
	if err != nil {
		return nil, fmt.Errorf("extract keyframes: %w", err)
	}
	metrics.JobProcessingDuration.WithLabelValues("keyframes").Observe(time.Since(kfStart).Seconds())

	out := &Analysis{
		FrameCount:    len(frames),
		FPS:           info.FPS,
		Scores:        res.Scores,
		Scenes:        records,
		KeyframePaths: keyframePaths,
		ReportPath:    filepath.Join(opts.OutputDir, reportFile),
	}

	report := entity.SceneReport{
		Video:      opts.Name,
		FrameCount: len(frames),
		FPS:        info.FPS,
		Threshold:  opts.Threshold,
		Scenes:     records,
	}
	if err := writeJSON(out.ReportPath, report); err != nil {
		return nil, fmt.Errorf("write scene report: %w", err)
	}

	if a.renderer != nil {
		timeline := filepath.Join(opts.OutputDir, timelineFile)
		if err := a.renderer.RenderTimeline(res.Scores, opts.Threshold, res.Scenes, timeline); err != nil {
			log.Warn("timeline rendering failed", zap.Error(err))
		} else {
			out.TimelinePath = timeline
		}
	}

	log.Info("video analyzed",
		zap.Int("frames", out.FrameCount),
		zap.Int("scenes", len(records)),
		zap.Int("keyframes", len(keyframePaths)),
	)
	return out, nil
}

func (a *Analyzer) extractKeyframes(
	ctx context.Context,
	videoPath string,
	scenes []shot.Scene,
	fps float64,
	opts AnalyzeOptions,
) ([]entity.SceneRecord, []string, error) {
	records := make([]entity.SceneRecord, len(scenes))
	var indices []int
	for i, s := range scenes {
		sampled, err := shot.SampleKeyframes(s, opts.Keyframes)
		if err != nil {
			return nil, nil, err
		}
		records[i] = entity.NewSceneRecord(i, s, fps, sampled)
		indices = append(indices, sampled...)
	}

	rawDir, err := os.MkdirTemp(opts.OutputDir, ".frames-")
	if err != nil {
		return nil, nil, err
	}
	defer os.RemoveAll(rawDir)

	extracted, err := a.keyframes.ExtractKeyframes(ctx, videoPath, rawDir, indices)
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	for i := range records {
		for j, idx := range records[i].Keyframes {
			src, ok := extracted[idx]
			if !ok {
				return nil, nil, fmt.Errorf("frame %d missing from extraction", idx)
			}
			name := fmt.Sprintf("%s_scene_%d_frame_%d.jpg", filepath.Base(opts.Name), i, j)
			dst := filepath.Join(opts.OutputDir, name)
			if err := copyFile(src, dst); err != nil {
				return nil, nil, err
			}
			records[i].KeyframeKeys = append(records[i].KeyframeKeys, name)
			paths = append(paths, dst)
		}
	}
	return records, paths, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
