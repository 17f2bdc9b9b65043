package mesh

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothConstantField(t *testing.T) {
	m := path(t, 10)
	field := make([]float64, 10)
	for i := range field {
		field[i] = 3.5
	}

	got, err := DefaultSmoother().Smooth(context.Background(), m, field, nil)
	require.NoError(t, err)
	for i, v := range got {
		assert.InDelta(t, 3.5, v, 1e-12, "node %d", i)
	}
}

func TestSmoothSingleStep(t *testing.T) {
	m := path(t, 2)
	s := Smoother{Kappa: 1, Dt: 0.2, Iterations: 1}

	got, err := s.Smooth(context.Background(), m, []float64{0, 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got[0], 1e-12)
	assert.InDelta(t, 0.8, got[1], 1e-12)
}

func TestSmoothIsolatedNodeDrifts(t *testing.T) {
	m, err := New([]float64{0, 1, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, []Edge{{0, 1}})
	require.NoError(t, err)

	got, err := DefaultSmoother().Smooth(context.Background(), m, []float64{0, 0, 0}, []float64{0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[2], 1e-9, "20 iterations of dt*bias")
}

func TestSmoothDoesNotModifyInput(t *testing.T) {
	m := path(t, 3)
	field := []float64{0, 10, 0}
	_, err := DefaultSmoother().Smooth(context.Background(), m, field, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 0}, field)
}

func TestSmoothZeroIterations(t *testing.T) {
	m := path(t, 3)
	got, err := Smoother{Kappa: 1, Dt: 0.2}.Smooth(context.Background(), m, []float64{1, 2, 3}, []float64{5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestSmoothParallelMatchesSerial(t *testing.T) {
	const n = parallelThreshold + 1001
	m := path(t, n)
	field := make([]float64, n)
	bias := make([]float64, n)
	for i := range field {
		field[i] = math.Sin(float64(i) / 7)
		bias[i] = 0.01 * float64(i%5)
	}

	serial := DefaultSmoother()
	serial.Workers = 1
	parallel := DefaultSmoother()
	parallel.Workers = 4

	a, err := serial.Smooth(context.Background(), m, field, bias)
	require.NoError(t, err)
	b, err := parallel.Smooth(context.Background(), m, field, bias)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSmoothErrors(t *testing.T) {
	m := path(t, 3)

	_, err := DefaultSmoother().Smooth(context.Background(), m, []float64{1, 2}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = DefaultSmoother().Smooth(context.Background(), m, []float64{1, 2, 3}, []float64{0})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DefaultSmoother().Smooth(ctx, m, []float64{1, 2, 3}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
