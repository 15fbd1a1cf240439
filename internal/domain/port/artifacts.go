package port

import (
	"context"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

type Zipper interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) error
}

type TimelineRenderer interface {
	RenderTimeline(scores []float32, threshold float32, scenes []shot.Scene, outputPath string) error
}
