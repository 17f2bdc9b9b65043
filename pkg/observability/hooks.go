// Package observability lets a binary attach instrumentation to the
// pipeline, the layer-count search and the cache without those packages
// importing a metrics backend.
//
// A value implementing any of [PipelineHooks], [OptimizerHooks] or
// [CacheHooks] is installed with [Register]; the Prometheus registry in
// pkg/metrics implements all three:
//
//	restore := observability.Register(metrics.NewRegistry())
//	defer restore()
//
// Library code emits events through the accessors:
//
//	observability.Pipeline().OnStageStart(ctx, observability.StageOptimize, nodes)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageEstimate Stage = "estimate"
	StageOptimize Stage = "optimize"
	StageBuild    Stage = "build"
	StageWrite    Stage = "write"
)

// PipelineHooks receives stage boundaries from the generation pipeline.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage Stage, nodes int)
	// OnStageComplete receives the stage error, nil on success.
	OnStageComplete(ctx context.Context, stage Stage, nodes int, duration time.Duration, err error)
}

// OptimizerHooks receives events from the layer-count tabu search.
type OptimizerHooks interface {
	// OnProgress fires every progress interval with the current and best
	// objective.
	OnProgress(ctx context.Context, iteration int, objective, best float64)
	OnResult(ctx context.Context, initial, best float64, iterations, changeable int)
}

// CacheHooks receives cache lookups and writes, labelled by key type
// ("layers" or "grid").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPipelineHooks ignores all pipeline events.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, Stage, int)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, Stage, int, time.Duration, error) {}

// NoopOptimizerHooks ignores all optimizer events.
type NoopOptimizerHooks struct{}

func (NoopOptimizerHooks) OnProgress(context.Context, int, float64, float64)    {}
func (NoopOptimizerHooks) OnResult(context.Context, float64, float64, int, int) {}

// NoopCacheHooks ignores all cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type hookSet struct {
	pipeline  PipelineHooks
	optimizer OptimizerHooks
	cache     CacheHooks
}

func noopSet() hookSet {
	return hookSet{NoopPipelineHooks{}, NoopOptimizerHooks{}, NoopCacheHooks{}}
}

var (
	mu     sync.RWMutex
	active = noopSet()
)

func current() hookSet {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Register installs h for every hook interface it implements and returns
// a function that restores the previous hooks.
func Register(h any) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := active
	if p, ok := h.(PipelineHooks); ok {
		active.pipeline = p
	}
	if o, ok := h.(OptimizerHooks); ok {
		active.optimizer = o
	}
	if c, ok := h.(CacheHooks); ok {
		active.cache = c
	}
	return func() {
		mu.Lock()
		active = prev
		mu.Unlock()
	}
}

func set(apply func(*hookSet)) {
	mu.Lock()
	apply(&active)
	mu.Unlock()
}

// SetPipelineHooks installs h as the pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		set(func(s *hookSet) { s.pipeline = h })
	}
}

// SetOptimizerHooks installs h as the optimizer hooks. A nil h is ignored.
func SetOptimizerHooks(h OptimizerHooks) {
	if h != nil {
		set(func(s *hookSet) { s.optimizer = h })
	}
}

// SetCacheHooks installs h as the cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		set(func(s *hookSet) { s.cache = h })
	}
}

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks { return current().pipeline }

// Optimizer returns the installed optimizer hooks.
func Optimizer() OptimizerHooks { return current().optimizer }

// Cache returns the installed cache hooks.
func Cache() CacheHooks { return current().cache }

// Reset restores the no-op hooks.
func Reset() {
	mu.Lock()
	active = noopSet()
	mu.Unlock()
}
