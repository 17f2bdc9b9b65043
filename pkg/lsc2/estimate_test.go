package lsc2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lscgrid/pkg/errors"
)

func TestEstimateRegressionPins(t *testing.T) {
	h := []float64{0.1, 2.0, 5.6, 20.0}
	got, err := Estimate(Level(0), h, UniformBounds(4, 1, 1000, 1), DefaultReference())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 10, 24}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestEstimateUniformDepth(t *testing.T) {
	h := []float64{10, 10, 10, 10, 10}
	got, err := Estimate(Level(1), h, UniformBounds(5, 3, 12, 1), DefaultReference())
	require.NoError(t, err)
	assert.Equal(t, []int{12, 12, 12, 12, 12}, got)
}

func TestEstimateClamp(t *testing.T) {
	h := []float64{0.1, 30, -3}
	b := Bounds{
		MinLayer: []int{5, 1, 2},
		MaxLayer: []int{10, 8, 10},
		DzTarget: []float64{1, 1, 1},
	}
	got, err := Estimate(Level(0), h, b, DefaultReference())
	require.NoError(t, err)
	assert.Equal(t, []int{5, 8, 2}, got)
}

func TestEstimatePerNodeSurface(t *testing.T) {
	h := []float64{2, 2}
	got, err := Estimate(Levels([]float64{0, 18}), h, UniformBounds(2, 1, 100, 1), DefaultReference())
	require.NoError(t, err)
	assert.Equal(t, 4, got[0])
	assert.Equal(t, int((20-5.6)+1+float64(DefaultReference().CutoffIndex(DefaultReference().Table(18)))), got[1])
}

func TestEstimateErrors(t *testing.T) {
	ref := DefaultReference()

	t.Run("inverted bounds", func(t *testing.T) {
		b := UniformBounds(3, 1, 10, 1)
		b.MinLayer[1] = 8
		b.MaxLayer[1] = 5
		_, err := Estimate(Level(0), []float64{1, 2, 3}, b, ref)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidBounds))
		assert.Equal(t, "INVALID_BOUNDS: node 1: minlayer(8) > maxlayer(5)", err.Error())
	})

	t.Run("NaN depth", func(t *testing.T) {
		_, err := Estimate(Level(0), []float64{1, math.NaN(), 3, math.NaN()}, UniformBounds(4, 1, 10, 1), ref)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidDepth))
		assert.Equal(t, []int{1, 3}, errors.Nodes(err))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Estimate(Level(0), []float64{1, 2}, UniformBounds(3, 1, 10, 1), ref)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	})

	t.Run("eta length", func(t *testing.T) {
		_, err := Estimate(Levels([]float64{0}), []float64{1, 2}, UniformBounds(2, 1, 10, 1), ref)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	})
}

func TestBoundsValidate(t *testing.T) {
	b := UniformBounds(4, 1, 10, 1)
	assert.NoError(t, b.Validate(4))
	assert.Equal(t, 10, b.GlobalMax())
	assert.True(t, b.Contains([]int{1, 5, 10, 3}))
	assert.False(t, b.Contains([]int{0, 5, 10, 3}))
	assert.False(t, b.Contains([]int{1, 5, 11, 3}))

	b.MinLayer[0], b.MinLayer[2] = 11, 12
	err := b.Validate(4)
	assert.Equal(t, []int{0, 2}, errors.Nodes(err))

	b = UniformBounds(2, 0, 10, 1)
	assert.True(t, errors.Is(b.Validate(2), errors.ErrCodeInvalidBounds))

	b = UniformBounds(2, 1, 10, math.Inf(1))
	assert.True(t, errors.Is(b.Validate(2), errors.ErrCodeInvalidBounds))
}
