package usecase

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/detect"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/port"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
)

var errNotFound = errors.New("not found")

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *entity.Job) error {
	return r.Create(ctx, job)
}

func (r *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errNotFound
	}
	return &job, nil
}

type fakeSceneRepo struct {
	scenes map[uuid.UUID][]entity.SceneRecord
}

func (r *fakeSceneRepo) ReplaceScenes(_ context.Context, jobID uuid.UUID, scenes []entity.SceneRecord) error {
	if r.scenes == nil {
		r.scenes = map[uuid.UUID][]entity.SceneRecord{}
	}
	r.scenes[jobID] = scenes
	return nil
}

type fakeStorage struct {
	downloadErr error
	uploaded    map[string][]byte
	types       map[string]string
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("video"), 0644)
}

func (s *fakeStorage) UploadArtifact(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch for %s", key)
	}
	if s.uploaded == nil {
		s.uploaded = map[string][]byte{}
		s.types = map[string]string{}
	}
	s.uploaded[key] = data
	s.types[key] = contentType
	return nil
}

// fakeDecoder yields frames whose first four bytes carry the frame index.
type fakeDecoder struct {
	frames int
	fps    float64
	err    error
}

func (d *fakeDecoder) Probe(context.Context, string) (*port.VideoInfo, error) {
	return &port.VideoInfo{FPS: d.fps, FrameCount: d.frames}, nil
}

func (d *fakeDecoder) DecodeFrames(context.Context, string) ([]shot.Frame, error) {
	if d.err != nil {
		return nil, d.err
	}
	frames := make([]shot.Frame, d.frames)
	for i := range frames {
		f := make(shot.Frame, 4)
		binary.BigEndian.PutUint32(f, uint32(i))
		frames[i] = f
	}
	return frames, nil
}

type fakeExtractor struct {
	requested []int
}

func (e *fakeExtractor) ExtractKeyframes(_ context.Context, _ string, outputDir string, indices []int) (map[int]string, error) {
	e.requested = append(e.requested, indices...)
	out := make(map[int]string, len(indices))
	for _, idx := range indices {
		p := filepath.Join(outputDir, fmt.Sprintf("kf_%06d.jpg", idx))
		if err := os.WriteFile(p, []byte(fmt.Sprint(idx)), 0644); err != nil {
			return nil, err
		}
		out[idx] = p
	}
	return out, nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderTimeline(_ []float32, _ float32, _ []shot.Scene, outputPath string) error {
	return os.WriteFile(outputPath, []byte("png"), 0644)
}

// cutModel scores the frames in cuts as transitions.
type cutModel struct {
	cuts map[int]bool
}

func (m *cutModel) Predict(_ context.Context, window []shot.Frame) ([]float32, error) {
	out := make([]float32, len(window))
	for i, f := range window {
		if m.cuts[int(binary.BigEndian.Uint32(f))] {
			out[i] = 8
		} else {
			out[i] = -8
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	statuses []entity.DetectionStatus
}

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	var s entity.DetectionStatus
	if err := json.Unmarshal(msg, &s); err != nil {
		return err
	}
	p.mu.Lock()
	p.statuses = append(p.statuses, s)
	p.mu.Unlock()
	return nil
}

type fakeDLQ struct {
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, userEmail, _, _, _ string) error {
	n.sent = append(n.sent, userEmail)
	return nil
}

func newTestAnalyzer(dec port.FrameDecoder, ext port.KeyframeExtractor, cuts ...int) *Analyzer {
	hot := map[int]bool{}
	for _, c := range cuts {
		hot[c] = true
	}
	det := detect.NewDetector(&cutModel{cuts: hot}, detect.Config{Threshold: shot.DefaultThreshold, Concurrency: 2}, zap.NewNop())
	return NewAnalyzer(dec, det, ext, fakeRenderer{}, zap.NewNop())
}
