package shot

import (
	"fmt"
	"iter"
)

// Windows pads frames by edge replication and yields WindowSize-long
// windows advancing by WindowStep. The last real frame always lands in the
// core of a complete window.
func Windows[T any](frames []T) (iter.Seq[[]T], error) {
	n := len(frames)
	if n == 0 {
		return nil, fmt.Errorf("windows: no frames: %w", ErrInvalidInput)
	}

	remainder := (WindowStep - n%WindowStep) % WindowStep
	padded := make([]T, 0, ContextFrames+n+remainder+ContextFrames)
	for i := 0; i < ContextFrames; i++ {
		padded = append(padded, frames[0])
	}
	padded = append(padded, frames...)
	for i := 0; i < remainder+ContextFrames; i++ {
		padded = append(padded, frames[n-1])
	}

	return func(yield func([]T) bool) {
		for i := 0; i < len(padded)-WindowStep; i += WindowStep {
			if !yield(padded[i : i+WindowSize : i+WindowSize]) {
				return
			}
		}
	}, nil
}

// WindowCount is the number of windows Windows yields for n frames.
func WindowCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + WindowStep - 1) / WindowStep
}

// Reassemble keeps the core of every window output, in order, and
// truncates the result to n scores.
func Reassemble(outputs [][]float32, n int) ([]float32, error) {
	a, err := NewAssembler(n)
	if err != nil {
		return nil, err
	}
	for _, out := range outputs {
		if err := a.Add(out); err != nil {
			return nil, err
		}
	}
	return a.Scores()
}

// Assembler collects window outputs one at a time. Outputs must be added
// in the order the windows were produced.
type Assembler struct {
	n      int
	added  int
	scores []float32
}

func NewAssembler(n int) (*Assembler, error) {
	if n < 1 {
		return nil, fmt.Errorf("assembler: frame count %d: %w", n, ErrInvalidInput)
	}
	return &Assembler{
		n:      n,
		scores: make([]float32, 0, WindowCount(n)*WindowStep),
	}, nil
}

func (a *Assembler) Add(out []float32) error {
	if len(out) != WindowSize {
		return fmt.Errorf("window %d: got %d scores, want %d: %w", a.added, len(out), WindowSize, ErrShapeMismatch)
	}
	a.scores = append(a.scores, out[ContextFrames:WindowSize-ContextFrames]...)
	a.added++
	return nil
}

// Scores returns exactly n scores, one per original frame.
func (a *Assembler) Scores() ([]float32, error) {
	if len(a.scores) < a.n {
		return nil, fmt.Errorf("reassemble: %d scores for %d frames: %w", len(a.scores), a.n, ErrShapeMismatch)
	}
	out := make([]float32, a.n)
	copy(out, a.scores)
	return out, nil
}
