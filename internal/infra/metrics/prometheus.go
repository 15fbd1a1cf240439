package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shots_jobs_processed_total",
		Help: "Total number of detection jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shots_job_processing_duration_seconds",
		Help:    "Duration of each stage of the detection pipeline",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shots_frames_decoded_total",
		Help: "Total number of frames decoded for scoring",
	})

	WindowsScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shots_windows_scored_total",
		Help: "Total number of 100-frame windows sent to the model",
	})

	ScenesPerVideo = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shots_scenes_per_video",
		Help:    "Number of scenes detected per video",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shots_active_workers",
		Help: "Number of workers currently processing a job",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shots_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
