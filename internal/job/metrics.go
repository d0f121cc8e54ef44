package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	commandLabel = "command"
	stageLabel   = "stage"
	errTypeLabel = "error_type"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxtool_pipeline_runs",
		Help: "The number of pipeline runs.",
	}, []string{
		commandLabel,
	})

	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxtool_pipeline_errors",
		Help: "The errors that occurred while running a pipeline.",
	}, []string{
		commandLabel,
		errTypeLabel,
	})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxtool_stage_seconds",
		Help:    "The time spent in a pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{
		stageLabel,
	})

	voxelsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxtool_voxels_generated",
		Help: "Occupied voxels produced by the rasterizers.",
	})

	trianglesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxtool_triangles_emitted",
		Help: "Triangles produced by the voxel mesher.",
	})
)

func instrumentStage(stage string, start time.Time) {
	stageLatency.With(prometheus.Labels{
		stageLabel: stage,
	}).Observe(time.Since(start).Seconds())
}

// instrumentRun counts a run and classifies err, which may be nil.
func instrumentRun(command string, err error) {
	pipelineRuns.With(prometheus.Labels{commandLabel: command}).Inc()
	if err == nil {
		return
	}
	pipelineErrors.
		With(prometheus.Labels{
			commandLabel: command,
			errTypeLabel: errorType(err),
		}).
		Inc()
}

// errorType maps err onto a small label set.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedInput):
		return "unsupported_input"
	case errors.Is(err, ErrUnsupportedOutput):
		return "unsupported_output"
	case errors.Is(err, ErrOutputExists):
		return "output_exists"
	default:
		return "internal"
	}
}

// WriteMetrics writes all pipeline metrics to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
