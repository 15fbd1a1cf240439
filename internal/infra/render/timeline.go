package render

import (
	"fmt"

	"github.com/fogleman/gg"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

const (
	minWidth = 400
	maxWidth = 4000
	height   = 240
	margin   = 10
)

// TimelineRenderer draws the score curve of a video over alternating scene
// bands, with the decision threshold as a horizontal line.
type TimelineRenderer struct{}

func NewTimelineRenderer() *TimelineRenderer {
	return &TimelineRenderer{}
}

func (r *TimelineRenderer) RenderTimeline(scores []float32, threshold float32, scenes []shot.Scene, outputPath string) error {
	if len(scores) == 0 {
		return fmt.Errorf("render timeline: %w", shot.ErrInvalidInput)
	}

	width := min(max(len(scores), minWidth), maxWidth)
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(width - 2*margin)
	plotH := float64(height - 2*margin)
	xOf := func(frame float64) float64 {
		return margin + frame/float64(len(scores))*plotW
	}
	yOf := func(score float32) float64 {
		return margin + (1-float64(score))*plotH
	}

	for i, s := range scenes {
		if i%2 == 0 {
			dc.SetRGBA(0.2, 0.5, 0.9, 0.15)
		} else {
			dc.SetRGBA(0.9, 0.6, 0.2, 0.15)
		}
		x0 := xOf(float64(s.Start))
		x1 := xOf(float64(s.End + 1))
		dc.DrawRectangle(x0, margin, x1-x0, plotH)
		dc.Fill()
	}

	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, yOf(threshold), margin+plotW, yOf(threshold))
	dc.Stroke()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(1.5)
	for i, s := range scores {
		x := xOf(float64(i) + 0.5)
		if i == 0 {
			dc.MoveTo(x, yOf(s))
		} else {
			dc.LineTo(x, yOf(s))
		}
	}
	dc.Stroke()

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("save timeline: %w", err)
	}
	return nil
}
