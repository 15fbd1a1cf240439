package shot

import "fmt"

// Binarize marks every score strictly above threshold with 1.
func Binarize(scores []float32, threshold float32) []uint8 {
	b := make([]uint8, len(scores))
	for i, s := range scores {
		if s > threshold {
			b[i] = 1
		}
	}
	return b
}

// DecodeScenes scans the binarized scores for transitions. A run of 0s is
// the inside of a shot: a 1->0 step opens a scene and a 0->1 step closes it
// at that index. A trailing run of 0s closes at the last frame. When
// nothing is emitted the whole sequence is one scene.
func DecodeScenes(scores []float32, threshold float32) ([]Scene, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("decode scenes: no scores: %w", ErrInvalidInput)
	}

	b := Binarize(scores, threshold)
	var (
		scenes      []Scene
		prev, start int
	)
	for i, t := range b {
		if prev == 1 && t == 0 {
			start = i
		}
		if prev == 0 && t == 1 && i != 0 {
			scenes = append(scenes, Scene{Start: start, End: i})
		}
		prev = int(t)
	}
	last := len(b) - 1
	if b[last] == 0 {
		scenes = append(scenes, Scene{Start: start, End: last})
	}

	if len(scenes) == 0 {
		return []Scene{{Start: 0, End: last}}, nil
	}
	return scenes, nil
}
