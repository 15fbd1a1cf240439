package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/port"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

// Decoder reads whole videos as small rgb24 frames through ffmpeg.
type Decoder struct {
	width  int
	height int
	logger *zap.Logger
}

func NewDecoder(width, height int, logger *zap.Logger) *Decoder {
	return &Decoder{width: width, height: height, logger: logger}
}

func (d *Decoder) DecodeFrames(ctx context.Context, videoPath string) ([]shot.Frame, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", videoPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", d.width, d.height),
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	frames, err := SplitFrames(raw, d.width, d.height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", videoPath, err)
	}

	d.logger.Info("frames decoded",
		zap.Int("count", len(frames)),
		zap.String("size", fmt.Sprintf("%dx%d", d.width, d.height)),
	)
	return frames, nil
}

// SplitFrames cuts a raw rgb24 stream into frames without copying.
func SplitFrames(raw []byte, width, height int) ([]shot.Frame, error) {
	frameSize := width * height * 3
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size %dx%d: %w", width, height, shot.ErrInvalidInput)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no frames decoded: %w", shot.ErrInvalidInput)
	}
	if len(raw)%frameSize != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %d-byte frames: %w", len(raw), frameSize, shot.ErrShapeMismatch)
	}

	frames := make([]shot.Frame, len(raw)/frameSize)
	for i := range frames {
		off := i * frameSize
		frames[i] = shot.Frame(raw[off : off+frameSize : off+frameSize])
	}
	return frames, nil
}

type probeOutput struct {
	Streams []struct {
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
}

func (d *Decoder) Probe(ctx context.Context, videoPath string) (*port.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,nb_frames",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*port.VideoInfo, error) {
	var po probeOutput
	if err := json.Unmarshal(output, &po); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(po.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found")
	}

	s := po.Streams[0]
	fps, err := parseRate(s.RFrameRate)
	if err != nil {
		return nil, err
	}
	// nb_frames is "N/A" for some containers
	count, _ := strconv.Atoi(s.NbFrames)

	return &port.VideoInfo{FPS: fps, FrameCount: count}, nil
}

func parseRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", rate, err)
	}
	if !found {
		return n, nil
	}
	dn, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", rate, err)
	}
	if dn == 0 {
		return 0, nil
	}
	return n / dn, nil
}
