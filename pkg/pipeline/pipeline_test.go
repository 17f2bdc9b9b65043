package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lscgrid/pkg/cache"
	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/mesh"
	"github.com/matzehuels/lscgrid/pkg/observability"
	"github.com/matzehuels/lscgrid/pkg/vgrid"
)

func lineInput(t *testing.T, h ...float64) Input {
	t.Helper()
	n := len(h)
	x := make([]float64, n)
	y := make([]float64, n)
	edges := make([]mesh.Edge, 0, n-1)
	for i := range x {
		x[i] = float64(i)
		if i > 0 {
			edges = append(edges, mesh.Edge{i - 1, i})
		}
	}
	m, err := mesh.New(x, y, h, edges)
	require.NoError(t, err)
	return Input{Mesh: m, Eta: lsc2.Level(0), Bounds: lsc2.UniformBounds(n, 1, 30, 1)}
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, log.New(io.Discard))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.Validate())
	assert.Equal(t, lsc2.DefaultBuildParams(), o.Build)
	assert.Equal(t, lsc2.DefaultReference(), o.Reference)
	assert.Equal(t, cache.TTLGrid, o.GridTTL)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"ncutoff", func(o *Options) { o.Reference.NCutoff = 1 }},
		{"tabu length", func(o *Options) { o.TabuLength = -1 }},
		{"stall", func(o *Options) { o.MaxStall = -3 }},
		{"boundary fraction", func(o *Options) { o.Build.BoundaryFraction = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
		})
	}
}

func TestExecute(t *testing.T) {
	r := newRunner(t)
	in := lineInput(t, 3, 8, 12, 16, 25, 40)

	res, err := r.Execute(context.Background(), in, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.InputHash, 64)
	assert.Equal(t, 6, res.Stats.NodeCount)
	assert.Equal(t, 5, res.Stats.EdgeCount)
	require.NotNil(t, res.Optimizer)
	assert.LessOrEqual(t, res.Optimizer.Best, res.Optimizer.Initial)
	assert.True(t, in.Bounds.Contains(res.NLayer))
	assert.False(t, res.CacheInfo.LayersHit)
	assert.False(t, res.CacheInfo.GridHit)

	f := res.Grid.Sigma
	require.NoError(t, f.Validate())
	for i, nl := range res.Grid.NLayer() {
		assert.LessOrEqual(t, nl, res.NLayer[i], "node %d", i)
		assert.GreaterOrEqual(t, nl, 1, "node %d", i)
	}
}

func TestExecuteCache(t *testing.T) {
	r := newRunner(t)
	in := lineInput(t, 3, 8, 12, 16, 25, 40)
	ctx := context.Background()

	first, err := r.Execute(ctx, in, Options{})
	require.NoError(t, err)

	second, err := r.Execute(ctx, in, Options{})
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.LayersHit)
	assert.True(t, second.CacheInfo.GridHit)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.NLayer, second.NLayer)
	assert.Equal(t, first.Optimizer, second.Optimizer)
	for i := 0; i < first.Grid.Sigma.NodeCount(); i++ {
		assert.InDeltaSlice(t, first.Grid.Sigma.Levels(i), second.Grid.Sigma.Levels(i), 1e-12)
	}

	// a new stretch reuses the layer counts but rebuilds the grid
	opts := DefaultOptions()
	opts.Build.Stretch.Theta = 5
	third, err := r.Execute(ctx, in, opts)
	require.NoError(t, err)
	assert.True(t, third.CacheInfo.LayersHit)
	assert.False(t, third.CacheInfo.GridHit)

	// worker count is not part of the key
	opts = DefaultOptions()
	opts.Workers = 3
	fourth, err := r.Execute(ctx, in, opts)
	require.NoError(t, err)
	assert.True(t, fourth.CacheInfo.GridHit)

	opts = DefaultOptions()
	opts.Refresh = true
	fifth, err := r.Execute(ctx, in, opts)
	require.NoError(t, err)
	assert.False(t, fifth.CacheInfo.LayersHit)
	assert.False(t, fifth.CacheInfo.GridHit)
}

func TestExecuteSkipOptimize(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	in := lineInput(t, 10, 10, 10)

	res, err := r.Execute(context.Background(), in, Options{SkipOptimize: true})
	require.NoError(t, err)
	assert.Nil(t, res.Optimizer)
	assert.Equal(t, res.NLayer0, res.NLayer)
	assert.Zero(t, res.Stats.OptimizeTime)
}

func TestExecuteInvalidInput(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))

	in := lineInput(t, 5, 6, 7)
	in.Bounds.MinLayer[1] = 8
	in.Bounds.MaxLayer[1] = 5
	_, err := r.Execute(context.Background(), in, Options{})
	require.Error(t, err)
	assert.Equal(t, "INVALID_BOUNDS: node 1: minlayer(8) > maxlayer(5)", err.Error())

	in = lineInput(t, 5, 6, 7)
	in.Eta = lsc2.Levels([]float64{0, 0})
	_, err = r.Execute(context.Background(), in, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = r.Execute(context.Background(), Input{}, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestExecuteCancelled(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, lineInput(t, 3, 8, 12, 16), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCancelled))
	assert.True(t, stderrors.Is(err, context.Canceled))
}

type recordingHooks struct {
	mu     sync.Mutex
	stages []observability.Stage
	failed []observability.Stage
}

func (h *recordingHooks) OnStageStart(context.Context, observability.Stage, int) {}

func (h *recordingHooks) OnStageComplete(_ context.Context, s observability.Stage, _ int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, s)
	if err != nil {
		h.failed = append(h.failed, s)
	}
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Execute(context.Background(), lineInput(t, 3, 8, 12), Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, r.Write(context.Background(), res, filepath.Join(dir, "vgrid.in"), ""))

	assert.Equal(t, []observability.Stage{
		observability.StageEstimate,
		observability.StageOptimize,
		observability.StageBuild,
		observability.StageWrite,
	}, hooks.stages)
	assert.Empty(t, hooks.failed)
}

func TestWrite(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Execute(context.Background(), lineInput(t, 3, 8, 12, 16, 25), Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "vgrid.in")
	summary := filepath.Join(dir, "summary.json")
	require.NoError(t, r.Write(context.Background(), res, out, summary))

	got, err := vgrid.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Grid.NLayer(), got.NLayer())

	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), res.RunID)

	s := res.Summary()
	assert.Equal(t, 5, s.Nodes)
	assert.Equal(t, res.Grid.Sigma.MaxLevel(), s.NVrt)
	assert.Equal(t, res.Optimizer.Best, s.Objective.Final)

	err = r.Write(context.Background(), res, "", "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestInputHash(t *testing.T) {
	a := lineInput(t, 3, 8, 12)
	b := lineInput(t, 3, 8, 12)
	assert.Equal(t, a.Hash(), b.Hash())

	b.Bounds.MaxLayer[2] = 29
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := lineInput(t, 3, 8, 12)
	c.Eta = lsc2.Level(0.5)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCodecRejectsWrongSize(t *testing.T) {
	data, err := encodeLayers(&layerPayload{NLayer0: []int{1, 2}, NLayer: []int{1, 2}})
	require.NoError(t, err)
	_, err = decodeLayers(data, 3)
	assert.Error(t, err)

	_, err = decodeGrid([]byte(`{"levels":[[0,-1],[0,-0.5,-1]]}`), 2)
	assert.NoError(t, err)
	_, err = decodeGrid([]byte(`{"levels":[[0,-1]]}`), 2)
	assert.Error(t, err)
	_, err = decodeGrid([]byte(`{"levels":[[0,0.5,-1],[0,-1]]}`), 2)
	assert.Error(t, err, "non-monotone cached grid is rejected")
}
