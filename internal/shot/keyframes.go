package shot

import "fmt"

// SampleKeyframes spreads k frame indices evenly over the scene, both
// endpoints included.
func SampleKeyframes(scene Scene, k int) ([]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("sample keyframes: k=%d: %w", k, ErrInvalidInput)
	}
	if scene.Start < 0 || scene.End < scene.Start {
		return nil, fmt.Errorf("sample keyframes: scene [%d, %d]: %w", scene.Start, scene.End, ErrInvalidInput)
	}

	span := scene.End - scene.Start
	indices := make([]int, k)
	for i := range indices {
		indices[i] = scene.Start + i*span/(k-1)
	}
	return indices, nil
}
