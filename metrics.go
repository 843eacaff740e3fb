package srcbatch

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//Metrics counts dispatched jobs and processed entities. It is both a JobListener and a BuildListener.
type Metrics struct {
	jobs         *prometheus.CounterVec
	entities     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	compressFail prometheus.Counter
}

//NewMetrics creates the metrics and registers them on r, r may be nil
func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		jobs: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "srcbatch_jobs_total",
			Help: "Total number of finished jobs by status.",
		}, []string{"status"}),
		entities: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "srcbatch_entities_total",
			Help: "Total number of entities handed to artifact builders by result.",
		}, []string{"result"}),
		transitions: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "srcbatch_build_transitions_total",
			Help: "Total number of artifact build state transitions by target state.",
		}, []string{"state"}),
		jobDuration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "srcbatch_job_duration_seconds",
			Help:    "Time taken to run a job.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		compressFail: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "srcbatch_compress_failures_total",
			Help: "Total number of artifacts left uncompressed after a compression failure.",
		}),
	}
}

func (m *Metrics) BeforeJob(ctx context.Context, execution *JobExecution) BatchError {
	return nil
}

func (m *Metrics) AfterJob(ctx context.Context, execution *JobExecution) BatchError {
	m.jobs.WithLabelValues(string(execution.Status)).Inc()
	if d := execution.Duration(); d > 0 {
		m.jobDuration.Observe(d.Seconds())
	}
	if execution.CompressError != nil {
		m.compressFail.Inc()
	}
	return nil
}

func (m *Metrics) OnStateChange(ctx context.Context, execution *JobExecution, from, to BuildState) {
	m.transitions.WithLabelValues(to.String()).Inc()
}

func (m *Metrics) OnEntity(ctx context.Context, execution *JobExecution, index int, name string, err BatchError) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.entities.WithLabelValues(result).Inc()
}

//WriteMetricsFile writes everything g gathers to a node-exporter textfile
func WriteMetricsFile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "write metrics to %v", path)
	}
	return nil
}
