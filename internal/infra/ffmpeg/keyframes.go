package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// maxSelectTerms bounds the length of a single select filter expression.
const maxSelectTerms = 200

// KeyframeExtractor grabs exact frames from the source video at full
// resolution.
type KeyframeExtractor struct {
	quality int
	logger  *zap.Logger
}

func NewKeyframeExtractor(quality int, logger *zap.Logger) *KeyframeExtractor {
	if quality <= 0 {
		quality = 2
	}
	return &KeyframeExtractor{quality: quality, logger: logger}
}

func (e *KeyframeExtractor) ExtractKeyframes(ctx context.Context, videoPath string, outputDir string, indices []int) (map[int]string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create keyframe dir: %w", err)
	}

	frames := uniqueSorted(indices)
	paths := make(map[int]string, len(frames))
	pattern := filepath.Join(outputDir, "kf_%06d.jpg")

	for off := 0; off < len(frames); off += maxSelectTerms {
		chunk := frames[off:min(off+maxSelectTerms, len(frames))]
		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-v", "error",
			"-i", videoPath,
			"-vf", "select="+selectExpr(chunk),
			"-vsync", "0",
			"-q:v", strconv.Itoa(e.quality),
			"-start_number", strconv.Itoa(off+1),
			"-y",
			pattern,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
		}

		for i, idx := range chunk {
			p := filepath.Join(outputDir, fmt.Sprintf("kf_%06d.jpg", off+i+1))
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("frame %d was not extracted: %w", idx, err)
			}
			paths[idx] = p
		}
	}

	e.logger.Info("keyframes extracted", zap.Int("count", len(paths)), zap.String("video", videoPath))
	return paths, nil
}

func uniqueSorted(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}

func selectExpr(frames []int) string {
	terms := make([]string, len(frames))
	for i, f := range frames {
		terms[i] = `eq(n\,` + strconv.Itoa(f) + `)`
	}
	return strings.Join(terms, "+")
}
