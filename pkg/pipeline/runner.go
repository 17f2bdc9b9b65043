package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/lscgrid/pkg/cache"
	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/observability"
	"github.com/matzehuels/lscgrid/pkg/vgrid"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeLayers = "layers"
	keyTypeGrid   = "grid"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different inputs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete estimate → optimize → build pipeline with caching.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		InputHash: in.Hash(),
	}
	result.Stats.NodeCount = in.Mesh.NodeCount()
	result.Stats.EdgeCount = in.Mesh.EdgeCount()
	logger := opts.Logger.With("run", result.RunID[:8])

	// Stages 1 and 2: layer counts
	layerKey := r.Keyer.LayerKey(result.InputHash, opts.layerKeyOpts())
	layers, hit, err := r.layersWithCache(ctx, layerKey, in, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.NLayer0 = layers.NLayer0
	result.NLayer = layers.NLayer
	result.Optimizer = layers.Optimizer
	result.CacheInfo.LayersHit = hit

	if opt := result.Optimizer; opt != nil {
		logger.Info("optimized layer counts",
			"changeable", opt.Changeable,
			"eligible", opt.Eligible,
			"objective", fmt.Sprintf("%g -> %g", opt.Initial, opt.Best),
			"iterations", opt.Iterations,
			"cached", hit,
			"duration", result.Stats.OptimizeTime)
	}

	// Stage 3: sigma grid
	gridKey := r.Keyer.GridKey(layerKey, gridKeyOpts(opts.Build))
	grid, hit, err := r.gridWithCache(ctx, gridKey, in, layers, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.Grid = grid
	result.CacheInfo.GridHit = hit

	logger.Info("built sigma grid",
		"nodes", grid.Sigma.NodeCount(),
		"nvrt", grid.Sigma.MaxLevel(),
		"linear", grid.Linear,
		"collapsed", grid.Collapsed,
		"flattened", grid.Flattened,
		"cached", hit,
		"duration", result.Stats.BuildTime)

	return result, nil
}

// Layers runs only the estimate and optimize stages, with caching.
func (r *Runner) Layers(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString(), InputHash: in.Hash()}
	result.Stats.NodeCount = in.Mesh.NodeCount()
	result.Stats.EdgeCount = in.Mesh.EdgeCount()

	key := r.Keyer.LayerKey(result.InputHash, opts.layerKeyOpts())
	layers, hit, err := r.layersWithCache(ctx, key, in, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.NLayer0 = layers.NLayer0
	result.NLayer = layers.NLayer
	result.Optimizer = layers.Optimizer
	result.CacheInfo.LayersHit = hit
	return result, nil
}

func (r *Runner) layersWithCache(ctx context.Context, key string, in Input, opts Options, stats *Stats) (*layerPayload, bool, error) {
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if p, err := decodeLayers(data, in.Mesh.NodeCount()); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeLayers)
				return p, true, nil
			}
			opts.Logger.Debug("discarding unreadable cache entry", "key", key)
		} else if err != nil {
			opts.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayers)
	}

	p, err := r.computeLayers(ctx, in, opts, stats)
	if err != nil {
		return nil, false, err
	}

	if data, err := encodeLayers(p); err == nil {
		if err := r.Cache.Set(ctx, key, data, opts.LayerTTL); err != nil {
			opts.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeLayers, len(data))
		}
	}
	return p, false, nil
}

func (r *Runner) computeLayers(ctx context.Context, in Input, opts Options, stats *Stats) (*layerPayload, error) {
	n := in.Mesh.NodeCount()
	h := in.Mesh.Depths()

	var nlayer0 []int
	err := stage(ctx, observability.StageEstimate, n, &stats.EstimateTime, func() error {
		var err error
		nlayer0, err = lsc2.Estimate(in.Eta, h, in.Bounds, opts.Reference)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	opts.Logger.Debug("estimated layer counts", "nodes", n, "duration", stats.EstimateTime)

	p := &layerPayload{NLayer0: nlayer0, NLayer: nlayer0}
	if opts.SkipOptimize {
		return p, nil
	}

	err = stage(ctx, observability.StageOptimize, n, &stats.OptimizeTime, func() error {
		prob, err := tabu.NewProblem(in.Mesh, lsc2.EffectiveDepth(in.Eta, h), nlayer0, in.Bounds, opts.Problem)
		if err != nil {
			return err
		}
		search := opts.Search()
		search.OnProgress = func(pr tabu.Progress) {
			opts.Logger.Debug("tabu search",
				"iteration", pr.Iteration,
				"objective", pr.Objective,
				"best", pr.Best,
				"stall", pr.Stall)
			observability.Optimizer().OnProgress(ctx, pr.Iteration, pr.Objective, pr.Best)
			if opts.OnProgress != nil {
				opts.OnProgress(pr)
			}
		}
		res, err := search.Optimize(ctx, prob)
		if err != nil {
			return err
		}
		observability.Optimizer().OnResult(ctx, res.Initial, res.Best, res.Iterations, res.Changeable)
		p.NLayer = res.NLayer
		p.Optimizer = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return p, nil
}

func (r *Runner) gridWithCache(ctx context.Context, key string, in Input, layers *layerPayload, opts Options, stats *Stats) (*lsc2.BuildOutput, bool, error) {
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if out, err := decodeGrid(data, in.Mesh.NodeCount()); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeGrid)
				return out, true, nil
			}
			opts.Logger.Debug("discarding unreadable cache entry", "key", key)
		} else if err != nil {
			opts.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeGrid)
	}

	n := in.Mesh.NodeCount()
	params := opts.Build
	if opts.Workers > 0 {
		params.Smoother.Workers = opts.Workers
	}

	var out *lsc2.BuildOutput
	err := stage(ctx, observability.StageBuild, n, &stats.BuildTime, func() error {
		var err error
		out, err = lsc2.NewBuilder(params).Build(ctx, lsc2.BuildInput{
			Mesh:     in.Mesh,
			Eta:      in.Eta,
			NLayer:   layers.NLayer,
			DzTarget: in.Bounds.DzTarget,
		})
		if err != nil {
			return err
		}
		return out.Sigma.Validate()
	})
	if err != nil {
		return nil, false, fmt.Errorf("build: %w", err)
	}

	if data, err := encodeGrid(out); err == nil {
		if err := r.Cache.Set(ctx, key, data, opts.GridTTL); err != nil {
			opts.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeGrid, len(data))
		}
	}
	return out, false, nil
}

// Write stores the grid as vgrid.in and, if summaryPath is set, the JSON
// summary.
func (r *Runner) Write(ctx context.Context, res *Result, path, summaryPath string) error {
	var d time.Duration
	return stage(ctx, observability.StageWrite, res.Grid.Sigma.NodeCount(), &d, func() error {
		if err := errors.ValidatePath(path); err != nil {
			return err
		}
		if err := vgrid.WriteFile(path, res.Grid.Sigma); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
		}
		if summaryPath == "" {
			return nil
		}
		if err := vgrid.WriteSummaryFile(summaryPath, res.Summary()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", summaryPath)
		}
		return nil
	})
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// stage runs fn between the pipeline start and complete hooks and records
// its duration. Context cancellation is reported with the CANCELLED code.
func stage(ctx context.Context, s observability.Stage, nodes int, took *time.Duration, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, s, nodes)
	start := time.Now()
	err := fn()
	*took = time.Since(start)
	if err != nil && ctx.Err() != nil {
		err = errors.Wrap(errors.ErrCodeCancelled, err, "%s interrupted", s)
	}
	hooks.OnStageComplete(ctx, s, nodes, *took, err)
	return err
}

// gridKeyOpts drops runtime-only settings from the builder parameters.
func gridKeyOpts(p lsc2.BuildParams) lsc2.BuildParams {
	p.Smoother.Workers = 0
	return p
}
