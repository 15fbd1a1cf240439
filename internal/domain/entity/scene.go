package entity

import (
	"github.com/google/uuid"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

// SceneRecord is one detected scene with its keyframes, as persisted and
// as written to scenes.json.
type SceneRecord struct {
	JobID        uuid.UUID `json:"-"`
	Index        int       `json:"index"`
	StartFrame   int       `json:"start_frame"`
	EndFrame     int       `json:"end_frame"`
	StartSeconds float64   `json:"start_seconds"`
	EndSeconds   float64   `json:"end_seconds"`
	Keyframes    []int     `json:"keyframes"`
	KeyframeKeys []string  `json:"keyframe_files,omitempty"`
}

// NewSceneRecord places a scene on the video timeline. fps <= 0 leaves the
// timestamps at zero.
func NewSceneRecord(index int, scene shot.Scene, fps float64, keyframes []int) SceneRecord {
	r := SceneRecord{
		Index:      index,
		StartFrame: scene.Start,
		EndFrame:   scene.End,
		Keyframes:  keyframes,
	}
	if fps > 0 {
		r.StartSeconds = float64(scene.Start) / fps
		r.EndSeconds = float64(scene.End+1) / fps
	}
	return r
}

// SceneReport is the scenes.json document.
type SceneReport struct {
	Video      string        `json:"video"`
	FrameCount int           `json:"frame_count"`
	FPS        float64       `json:"fps,omitempty"`
	Threshold  float32       `json:"threshold"`
	Scenes     []SceneRecord `json:"scenes"`
}
