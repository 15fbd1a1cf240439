// Package shot turns a per-frame transition signal into scene intervals.
//
// Frames are scored in fixed 100-frame windows that overlap by 50 frames,
// so every frame is scored with 25 frames of context on both sides. The
// central 50 scores of each window are stitched back together and decoded
// into scenes.
package shot

import "errors"

const (
	WindowSize    = 100
	WindowStep    = 50
	ContextFrames = 25

	DefaultThreshold float32 = 0.5
	DefaultKeyframes         = 3
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Frame is one decoded rgb24 image, height*width*3 bytes.
type Frame []byte

// Scene is an inclusive range of frame indices.
type Scene struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Scene) Len() int {
	return s.End - s.Start + 1
}
