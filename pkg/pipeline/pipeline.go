// Package pipeline provides the vertical grid generation pipeline for lscgrid.
//
// This package implements the complete estimate → optimize → build pipeline
// used by the CLI. By centralizing this logic, the generate and inspect
// commands share caching, logging, and instrumentation.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Estimate: pick an initial layer count per node from its depth
//  2. Optimize: reconcile neighbouring layer counts with a tabu search
//  3. Build: synthesize the sigma coordinates of every node
//
// The first two stages are cached together under a layer key; the third is
// cached under a grid key derived from the layer key and builder
// parameters.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	in := pipeline.Input{Mesh: m, Eta: lsc2.Level(0), Bounds: bounds}
//	result, err := runner.Execute(ctx, in, pipeline.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = vgrid.WriteFile("vgrid.in", result.Grid.Sigma)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lscgrid/pkg/cache"
	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/mesh"
	"github.com/matzehuels/lscgrid/pkg/vgrid"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a generation run. The exported
// numeric fields are part of the cache keys.
type Options struct {
	// Estimate options
	Reference lsc2.Reference `json:"reference"`

	// Optimize options
	SkipOptimize bool        `json:"skip_optimize,omitempty"`
	Problem      tabu.Params `json:"problem"`
	TabuLength   int         `json:"tabu_length"`
	MaxStall     int         `json:"max_stall"`

	// Build options
	Build lsc2.BuildParams `json:"build"`

	// Runtime options (not part of cache keys)
	Refresh          bool          `json:"-"`
	Workers          int           `json:"-"`
	ProgressInterval int           `json:"-"`
	LayerTTL         time.Duration `json:"-"`
	GridTTL          time.Duration `json:"-"`
	Logger           *log.Logger   `json:"-"`

	// OnProgress, if set, receives tabu search progress.
	OnProgress func(tabu.Progress) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns options with every algorithm at its defaults.
func DefaultOptions() Options {
	o := Options{}
	o.SetDefaults()
	return o
}

// SetDefaults fills zero-valued sections with their defaults.
func (o *Options) SetDefaults() {
	if o.Reference == (lsc2.Reference{}) {
		o.Reference = lsc2.DefaultReference()
	}
	if o.Problem == (tabu.Params{}) {
		o.Problem = tabu.DefaultParams()
	}
	if o.TabuLength == 0 {
		o.TabuLength = tabu.DefaultTabuLength
	}
	if o.MaxStall == 0 {
		o.MaxStall = tabu.DefaultMaxStall
	}
	if o.Build == (lsc2.BuildParams{}) {
		o.Build = lsc2.DefaultBuildParams()
	}
	if o.ProgressInterval == 0 {
		o.ProgressInterval = tabu.DefaultProgressInterval
	}
	if o.LayerTTL == 0 {
		o.LayerTTL = cache.TTLLayers
	}
	if o.GridTTL == 0 {
		o.GridTTL = cache.TTLGrid
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateAndSetDefaults applies defaults and checks the options.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Validate checks option ranges.
func (o *Options) Validate() error {
	switch {
	case o.Reference.NCutoff < 2:
		return errors.New(errors.ErrCodeInvalidConfig, "reference ncutoff must be at least 2")
	case o.TabuLength < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "tabu length must not be negative")
	case o.MaxStall < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max stall must be at least 1")
	case o.Build.Smoother.Iterations < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "smoother iterations must not be negative")
	case o.Build.BoundaryFraction <= 0 || o.Build.BoundaryFraction >= 1:
		return errors.New(errors.ErrCodeInvalidConfig, "boundary fraction must be in (0, 1)")
	}
	return nil
}

// Search returns the tabu search for these options.
func (o *Options) Search() *tabu.Search {
	return &tabu.Search{
		TabuLength:       o.TabuLength,
		MaxStall:         o.MaxStall,
		Workers:          o.Workers,
		ProgressInterval: o.ProgressInterval,
	}
}

// layerKeyOpts is the part of Options that determines layer counts.
type layerKeyOpts struct {
	Reference    lsc2.Reference
	SkipOptimize bool
	Problem      tabu.Params
	TabuLength   int
	MaxStall     int
}

func (o *Options) layerKeyOpts() layerKeyOpts {
	return layerKeyOpts{
		Reference:    o.Reference,
		SkipOptimize: o.SkipOptimize,
		Problem:      o.Problem,
		TabuLength:   o.TabuLength,
		MaxStall:     o.MaxStall,
	}
}

// =============================================================================
// Input and Result
// =============================================================================

// Input is the data a run is computed from.
type Input struct {
	Mesh   *mesh.Mesh
	Eta    lsc2.Surface
	Bounds lsc2.Bounds
}

// Validate checks that the surface and bounds match the mesh.
func (in Input) Validate() error {
	if in.Mesh == nil {
		return errors.New(errors.ErrCodeInvalidInput, "mesh is required")
	}
	n := in.Mesh.NodeCount()
	if err := in.Eta.Validate(n); err != nil {
		return err
	}
	return in.Bounds.Validate(n)
}

// Hash returns a content hash of the mesh, surface, and bounds.
func (in Input) Hash() string {
	m := in.Mesh
	n := m.NodeCount()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i], ys[i] = m.X(i), m.Y(i)
	}
	edges := m.Edges()
	flat := make([]int, 0, 2*len(edges))
	for _, e := range edges {
		flat = append(flat, e[0], e[1])
	}

	var h cache.Hasher
	return h.Floats(xs).Floats(ys).Floats(m.Depths()).Ints(flat).
		Floats(in.Eta.Values(n)).
		Ints(in.Bounds.MinLayer).Ints(in.Bounds.MaxLayer).Floats(in.Bounds.DzTarget).
		Sum()
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and summaries.
	RunID string

	// InputHash is the content hash of the input.
	InputHash string

	// NLayer0 is the depth-based estimate.
	NLayer0 []int

	// NLayer is the layer count after optimization (NLayer0 if skipped).
	NLayer []int

	// Optimizer holds tabu search statistics, or nil if skipped.
	Optimizer *tabu.Result

	// Grid holds the sigma field and builder statistics.
	Grid *lsc2.BuildOutput

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	EstimateTime time.Duration
	OptimizeTime time.Duration
	BuildTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayersHit bool // Whether estimate and optimize results came from cache
	GridHit   bool // Whether the sigma grid came from cache
}

// Summary converts the result to the JSON report written next to vgrid.in.
func (r *Result) Summary() *vgrid.Summary {
	s := &vgrid.Summary{
		RunID:         r.RunID,
		Nodes:         len(r.NLayer),
		NLayer0:       r.NLayer0,
		NLayer:        r.NLayer,
		NLayerRevised: r.Grid.NLayer(),
		NVrt:          r.Grid.Sigma.MaxLevel(),
		Linear:        r.Grid.Linear,
		Collapsed:     r.Grid.Collapsed,
		Flattened:     r.Grid.Flattened,
	}
	if opt := r.Optimizer; opt != nil {
		s.Objective = vgrid.ObjectiveSummary{
			Initial:    opt.Initial,
			Final:      opt.Best,
			Iterations: opt.Iterations,
			Changeable: opt.Changeable,
			Eligible:   opt.Eligible,
		}
	}
	return s
}
