package entity

import "github.com/google/uuid"

// DetectionRequest is the inbound message from the detection queue.
// Threshold and Keyframes override the service defaults when set.
type DetectionRequest struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
	Threshold *float32  `json:"threshold,omitempty"`
	Keyframes int       `json:"keyframes,omitempty"`
}

// DetectionStatus is the outbound message published to the status queue.
type DetectionStatus struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	SceneCount   int       `json:"scene_count,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
