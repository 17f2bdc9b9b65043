// Package metrics implements the observability hooks with Prometheus.
//
// Generation is a batch job, so metrics are not scraped over HTTP. Instead
// the registry is written to a node-exporter textfile after a run:
//
//	reg := metrics.NewRegistry()
//	defer observability.Register(reg)()
//	// ... run ...
//	err := reg.WriteToTextfile("/var/lib/node_exporter/lscgrid.prom")
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/lscgrid/pkg/observability"
)

// Registry holds all metrics for one process.
type Registry struct {
	registry *prometheus.Registry

	// Pipeline Metrics
	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	MeshNodes     prometheus.Gauge

	// Optimizer Metrics
	ObjectiveInitial prometheus.Gauge
	ObjectiveCurrent prometheus.Gauge
	ObjectiveBest    prometheus.Gauge
	Iterations       prometheus.Gauge
	ChangeableNodes  prometheus.Gauge

	// Cache Metrics
	CacheOperations *prometheus.CounterVec
	CacheBytes      *prometheus.CounterVec
}

// NewRegistry creates a Registry backed by a private Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initPipelineMetrics()
	r.initOptimizerMetrics()
	r.initCacheMetrics()
	return r
}

func (r *Registry) initPipelineMetrics() {
	r.StageRuns = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lscgrid_stage_runs_total",
			Help: "Pipeline stage executions by stage and status",
		},
		[]string{"stage", "status"},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lscgrid_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"stage"},
	)

	r.MeshNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_mesh_nodes",
			Help: "Number of horizontal mesh nodes in the last run",
		},
	)
}

func (r *Registry) initOptimizerMetrics() {
	r.ObjectiveInitial = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_optimizer_objective_initial",
			Help: "Weighted layer mismatch before optimization",
		},
	)

	r.ObjectiveCurrent = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_optimizer_objective_current",
			Help: "Weighted layer mismatch of the current search state",
		},
	)

	r.ObjectiveBest = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_optimizer_objective_best",
			Help: "Best weighted layer mismatch found",
		},
	)

	r.Iterations = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_optimizer_iterations",
			Help: "Tabu search iterations performed",
		},
	)

	r.ChangeableNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lscgrid_optimizer_changeable_nodes",
			Help: "Nodes whose layer count the optimizer may raise",
		},
	)
}

func (r *Registry) initCacheMetrics() {
	r.CacheOperations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lscgrid_cache_operations_total",
			Help: "Cache lookups and writes by key type and result",
		},
		[]string{"key_type", "result"},
	)

	r.CacheBytes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lscgrid_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		},
		[]string{"key_type"},
	)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// WriteToTextfile writes all metrics in the text exposition format,
// atomically replacing path.
func (r *Registry) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// OnStageStart implements observability.PipelineHooks.
func (r *Registry) OnStageStart(_ context.Context, stage observability.Stage, nodes int) {
	if stage == observability.StageEstimate {
		r.MeshNodes.Set(float64(nodes))
	}
}

// OnStageComplete implements observability.PipelineHooks.
func (r *Registry) OnStageComplete(_ context.Context, stage observability.Stage, _ int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.StageRuns.WithLabelValues(string(stage), status).Inc()
	r.StageDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// OnProgress implements observability.OptimizerHooks.
func (r *Registry) OnProgress(_ context.Context, iteration int, objective, best float64) {
	r.Iterations.Set(float64(iteration))
	r.ObjectiveCurrent.Set(objective)
	r.ObjectiveBest.Set(best)
}

// OnResult implements observability.OptimizerHooks.
func (r *Registry) OnResult(_ context.Context, initial, best float64, iterations, changeable int) {
	r.ObjectiveInitial.Set(initial)
	r.ObjectiveBest.Set(best)
	r.Iterations.Set(float64(iterations))
	r.ChangeableNodes.Set(float64(changeable))
}

// OnCacheHit implements observability.CacheHooks.
func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheOperations.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheOperations.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheOperations.WithLabelValues(keyType, "set").Inc()
	r.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ observability.PipelineHooks  = (*Registry)(nil)
	_ observability.OptimizerHooks = (*Registry)(nil)
	_ observability.CacheHooks     = (*Registry)(nil)
)
