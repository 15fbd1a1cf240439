package port

import (
	"context"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

type VideoInfo struct {
	FPS        float64
	FrameCount int
}

// FrameDecoder turns a video file into the small frames the model scores.
type FrameDecoder interface {
	Probe(ctx context.Context, videoPath string) (*VideoInfo, error)
	DecodeFrames(ctx context.Context, videoPath string) ([]shot.Frame, error)
}

// KeyframeExtractor writes full-resolution JPEGs for the given frame
// indices and returns the path written for each index.
type KeyframeExtractor interface {
	ExtractKeyframes(ctx context.Context, videoPath string, outputDir string, indices []int) (map[int]string, error)
}
