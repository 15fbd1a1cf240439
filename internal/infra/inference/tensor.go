package inference

import (
	"encoding/json"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

// ParseOutputs extracts the per-frame logits from a model output tensor.
// Accepted shapes are [n], [n][1], any number of leading wrappers around
// those ([1][n][1] for a batch of one), and tuples whose first element is
// the tensor of interest.
func ParseOutputs(raw json.RawMessage, n int) ([]float32, error) {
	var node any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse outputs: %w", err)
	}

	for {
		list, ok := node.([]any)
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("parse outputs: no %d-long tensor found: %w", n, shot.ErrShapeMismatch)
		}
		if len(list) == n {
			return flatten(list)
		}
		node = list[0]
	}
}

func flatten(list []any) ([]float32, error) {
	out := make([]float32, len(list))
	for i, v := range list {
		if inner, ok := v.([]any); ok {
			if len(inner) != 1 {
				return nil, fmt.Errorf("parse outputs: position %d has %d values: %w", i, len(inner), shot.ErrShapeMismatch)
			}
			v = inner[0]
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("parse outputs: position %d is not a number: %w", i, shot.ErrShapeMismatch)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// Sigmoid maps raw logits to probabilities.
func Sigmoid(logits []float32) []float32 {
	out := make([]float32, len(logits))
	for i, x := range logits {
		out[i] = 1 / (1 + math32.Exp(-x))
	}
	return out
}
