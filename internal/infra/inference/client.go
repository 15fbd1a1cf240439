package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

// Client scores windows against a model server over HTTP. The window is
// sent as concatenated rgb24 frames and the server answers with the raw
// model output tensor.
type Client struct {
	endpoint   string
	width      int
	height     int
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientConfig struct {
	Endpoint string
	Width    int
	Height   int
	Timeout  time.Duration
}

type predictResponse struct {
	Outputs json.RawMessage `json:"outputs"`
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		width:      cfg.Width,
		height:     cfg.Height,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *Client) Predict(ctx context.Context, window []shot.Frame) ([]float32, error) {
	frameSize := c.width * c.height * 3
	if len(window) != shot.WindowSize {
		return nil, fmt.Errorf("predict: window of %d frames: %w", len(window), shot.ErrShapeMismatch)
	}

	body := make([]byte, 0, frameSize*len(window))
	for i, f := range window {
		if len(f) != frameSize {
			return nil, fmt.Errorf("predict: frame %d is %d bytes, want %d: %w", i, len(f), frameSize, shot.ErrShapeMismatch)
		}
		body = append(body, f...)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Frames", strconv.Itoa(len(window)))
	req.Header.Set("X-Width", strconv.Itoa(c.width))
	req.Header.Set("X-Height", strconv.Itoa(c.height))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	logits, err := ParseOutputs(pr.Outputs, shot.WindowSize)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("window scored", zap.Int("frames", len(logits)))
	return logits, nil
}
