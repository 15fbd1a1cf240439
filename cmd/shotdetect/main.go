// Command shotdetect runs shot-boundary detection over a local directory of
// videos and writes keyframes, scenes.json and a timeline per video.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/catalog"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/detect"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/ffmpeg"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/inference"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/render"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/usecase"
	"github.com/TinhAnhGitHub/Shot-Detection/pkg/logger"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("shotdetect", "Detect shot boundaries and extract keyframes")
	input := parser.String("i", "input", &argparse.Options{Help: "Directory of videos to scan", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Directory for keyframes and reports", Required: true})
	modelURL := parser.String("m", "model-url", &argparse.Options{Help: "Shot model prediction endpoint", Default: "http://localhost:8080/predict"})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "Transition score threshold", Default: float64(shot.DefaultThreshold)})
	keyframes := parser.Int("k", "keyframes", &argparse.Options{Help: "Keyframes per scene (at least 2)", Default: shot.DefaultKeyframes})
	concurrency := parser.Int("c", "concurrency", &argparse.Options{Help: "Windows scored in parallel", Default: 1})
	width := parser.Int("", "width", &argparse.Options{Help: "Model input width", Default: 48})
	height := parser.Int("", "height", &argparse.Options{Help: "Model input height", Default: 27})
	timeout := parser.Int("", "timeout", &argparse.Options{Help: "Model request timeout, seconds", Default: 30})
	logLevel := parser.String("", "log-level", &argparse.Options{Help: "debug, info, warn or error", Default: "info"})
	err := parser.Parse(os.Args)
	if err == nil && (*threshold < 0 || *threshold >= 1) {
		err = fmt.Errorf("--threshold must be in [0,1), got %v", *threshold)
	}
	if err == nil && *keyframes < 2 {
		err = fmt.Errorf("--keyframes must be at least 2, got %d", *keyframes)
	}
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logger.New(*logLevel)
	check(err)
	defer log.Sync()

	videos, err := catalog.Discover(*input)
	check(err)
	log.Info("discovered videos", zap.String("input", *input), zap.Int("count", len(videos)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model := inference.NewClient(inference.ClientConfig{
		Endpoint: *modelURL,
		Width:    *width,
		Height:   *height,
		Timeout:  time.Duration(*timeout) * time.Second,
	}, log)
	detector := detect.NewDetector(model, detect.Config{
		Threshold:   float32(*threshold),
		Concurrency: *concurrency,
	}, log)
	analyzer := usecase.NewAnalyzer(
		ffmpeg.NewDecoder(*width, *height, log),
		detector,
		ffmpeg.NewKeyframeExtractor(2, log),
		render.NewTimelineRenderer(),
		log,
	)

	uc := usecase.NewBatchDetectUseCase(analyzer, usecase.BatchDetectConfig{
		OutputDir: *output,
		Threshold: float32(*threshold),
		Keyframes: *keyframes,
	}, log)

	outcomes := uc.Run(ctx, videos)

	failed := 0
	for _, v := range videos {
		o := outcomes[v.ID]
		if o.Err != nil {
			failed++
			fmt.Printf("%-40s FAILED: %v\n", v.ID, o.Err)
			continue
		}
		fmt.Printf("%-40s %d scenes\n", v.ID, len(o.Scenes))
	}
	log.Info("batch finished", zap.Int("videos", len(videos)), zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
