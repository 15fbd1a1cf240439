package usecase_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/detect"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/archive"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/email"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/ffmpeg"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/inference"
	miniostorage "github.com/TinhAnhGitHub/Shot-Detection/internal/infra/minio"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/postgres"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/rabbitmq"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/infra/render"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/shot"
	"github.com/TinhAnhGitHub/Shot-Detection/internal/usecase"
	"github.com/TinhAnhGitHub/Shot-Detection/pkg/logger"
)

const (
	exchange    = "shots"
	detectQueue = "shots.detect"
	statusQueue = "shots.status"
	dlqQueue    = "shots.detect.dlq"
	frameW      = 48
	frameH      = 27
)

type stack struct {
	pool        *pgxpool.Pool
	rmqConn     *amqp.Connection
	minioClient *miniogo.Client
}

// startStack brings up postgres, rabbitmq and minio and starts a consumer
// running the detection use case against modelURL.
func startStack(t *testing.T, ctx context.Context, modelURL string) *stack {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("shots"),
		tcpostgres.WithUsername("shots"),
		tcpostgres.WithPassword("shots"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { rmqContainer.Terminate(context.Background()) })

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { minioContainer.Terminate(context.Background()) })

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(pgConnStr, "../../migrations"))

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       minioEndpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		UploadBucket:   "videos",
		KeyframeBucket: "keyframes",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	t.Cleanup(func() { rmqConn.Close() })

	pub, err := rabbitmq.NewPublisher(rmqConn, exchange)
	require.NoError(t, err)

	log, err := logger.New("debug")
	require.NoError(t, err)

	model := inference.NewClient(inference.ClientConfig{
		Endpoint: modelURL, Width: frameW, Height: frameH, Timeout: 10 * time.Second,
	}, log)
	analyzer := usecase.NewAnalyzer(
		ffmpeg.NewDecoder(frameW, frameH, log),
		detect.NewDetector(model, detect.Config{Threshold: shot.DefaultThreshold, Concurrency: 2}, log),
		ffmpeg.NewKeyframeExtractor(2, log),
		render.NewTimelineRenderer(),
		log,
	)

	uc := usecase.NewDetectShotsUseCase(
		postgres.NewJobRepository(pool),
		postgres.NewSceneRepository(pool),
		storage, analyzer, archive.NewZipCreator(),
		rabbitmq.NewStatusPublisher(pub, statusQueue),
		rabbitmq.NewDLQPublisher(pub, dlqQueue),
		email.NewSMTPNotifier("localhost", 1025, "test@shots.local", log),
		log,
		usecase.DetectShotsConfig{TempDir: t.TempDir(), MaxRetries: 3, Threshold: shot.DefaultThreshold},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       detectQueue,
		Exchange:    exchange,
		DLQ:         dlqQueue,
		StatusQueue: statusQueue,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	t.Cleanup(func() { consumer.Close() })

	consumerCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	return &stack{pool: pool, rmqConn: rmqConn, minioClient: minioClient}
}

func (s *stack) publish(t *testing.T, ctx context.Context, body []byte) {
	t.Helper()
	ch, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	err = ch.PublishWithContext(ctx, exchange, detectQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	require.NoError(t, err)
}

// cutServer emulates the shot model: a frame scores as a transition when
// the next frame's mean brightness differs by more than a quarter of the
// range.
func cutServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.Header.Get("X-Frames"))
		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) || !assert.Equal(t, n*frameW*frameH*3, len(body)) {
			http.Error(w, "bad window", http.StatusBadRequest)
			return
		}

		frameSize := frameW * frameH * 3
		means := make([]float64, n)
		for i := range means {
			var sum int
			for _, b := range body[i*frameSize : (i+1)*frameSize] {
				sum += int(b)
			}
			means[i] = float64(sum) / float64(frameSize)
		}

		logits := make([]float32, n)
		for i := range logits {
			logits[i] = -10
			if i+1 < n && abs(means[i+1]-means[i]) > 64 {
				logits[i] = 10
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"outputs": [][]float32{logits}})
	}))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// makeTwoShotVideo writes a 25 fps clip: 2s of black then 2s of white.
func makeTwoShotVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "two_shots.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-v", "error",
		"-f", "lavfi", "-i", "color=c=black:s=96x54:r=25:d=2",
		"-f", "lavfi", "-i", "color=c=white:s=96x54:r=25:d=2",
		"-filter_complex", "[0:v][1:v]concat=n=2:v=1[out]",
		"-map", "[out]", "-c:v", "mpeg4", "-q:v", "2", path,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return path
}

func requireTools(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH", tool)
		}
	}
}

func TestDetectShotsEndToEnd(t *testing.T) {
	requireTools(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	model := cutServer(t)
	defer model.Close()

	s := startStack(t, ctx, model.URL)
	videoPath := makeTwoShotVideo(t)

	videoKey := "testuser/two_shots.mp4"
	_, err := s.minioClient.FPutObject(ctx, "videos", videoKey, videoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	statusCh, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()
	statusMsgs, err := statusCh.Consume(statusQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	jobID := uuid.New()
	body, err := json.Marshal(entity.DetectionRequest{
		JobID:     jobID,
		UserID:    "testuser",
		VideoKey:  videoKey,
		UserEmail: "test@shots.local",
	})
	require.NoError(t, err)
	s.publish(t, ctx, body)

	var status entity.DetectionStatus
	select {
	case delivery := <-statusMsgs:
		require.NoError(t, json.Unmarshal(delivery.Body, &status))
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	assert.Equal(t, jobID, status.JobID)
	require.Equal(t, entity.JobStatusCompleted, status.Status, status.ErrorMessage)
	assert.Equal(t, 100, status.FrameCount)
	assert.Equal(t, 2, status.SceneCount)

	obj, err := s.minioClient.GetObject(ctx, "keyframes", status.ArchiveKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)
	tmpZip := filepath.Join(t.TempDir(), "keyframes.zip")
	f, err := os.Create(tmpZip)
	require.NoError(t, err)
	_, err = f.ReadFrom(obj)
	require.NoError(t, err)
	f.Close()

	zr, err := zip.OpenReader(tmpZip)
	require.NoError(t, err)
	defer zr.Close()

	jpgs := 0
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, ".jpg") {
			assert.True(t, strings.HasPrefix(zf.Name, "two_shots_scene_"), zf.Name)
			jpgs++
		}
	}
	assert.Equal(t, 2*shot.DefaultKeyframes, jpgs)

	stored, err := postgres.NewSceneRepository(s.pool).ListScenes(ctx, jobID)
	require.NoError(t, err)
	var scenes []shot.Scene
	for _, r := range stored {
		scenes = append(scenes, shot.Scene{Start: r.StartFrame, End: r.EndFrame})
		assert.Len(t, r.KeyframeKeys, shot.DefaultKeyframes)
	}
	assert.Equal(t, []shot.Scene{{Start: 0, End: 49}, {Start: 50, End: 99}}, scenes)

	var dbStatus string
	err = s.pool.QueryRow(ctx, "SELECT status FROM detection_jobs WHERE id=$1", jobID).Scan(&dbStatus)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)

	t.Logf("detected %d scenes, archive at %s", len(scenes), status.ArchiveKey)
}

func TestDetectShotsMalformedMessageEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := startStack(t, ctx, "http://127.0.0.1:1/predict")
	s.publish(t, ctx, []byte(`{invalid json`))

	time.Sleep(2 * time.Second)

	dlqCh, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	msg, ok, err := dlqCh.Get(dlqQueue, true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(msg.Body))
}
