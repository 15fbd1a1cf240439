package port

import (
	"context"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

// ShotModel scores one window. It returns one raw logit per window
// position, shot.WindowSize in total.
type ShotModel interface {
	Predict(ctx context.Context, window []shot.Frame) ([]float32, error)
}
