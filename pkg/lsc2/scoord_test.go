package lsc2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStretchEndpoints(t *testing.T) {
	for _, st := range []Stretch{
		{Theta: 2, B: 0, Hc: 1},
		{Theta: 5, B: 0.5, Hc: 5},
		{Theta: 0.01, B: 1, Hc: 0},
		{Theta: 1e-4, B: 0.3, Hc: 2},
	} {
		assert.InDelta(t, 0, st.C(0), 1e-9, "c(0) for %+v", st)
		assert.InDelta(t, -1, st.C(-1), 1e-9, "c(-1) for %+v", st)
		assert.InDelta(t, 1.5, st.Z(0, 1.5, 20), 1e-9)
		assert.InDelta(t, -20, st.Z(-1, 1.5, 20), 1e-9)
	}
}

func TestStretchSurfaceConcentration(t *testing.T) {
	st := Stretch{Theta: 5, B: 0, Hc: 1}
	z := st.Profile(11, 0, 50)
	top := z[0] - z[1]
	bottom := z[9] - z[10]
	assert.Less(t, top, bottom, "surface layers must be thinner than bed layers")
}

func TestProfile(t *testing.T) {
	z := DefaultStretch().Profile(6, 0.5, 12)
	assert.Len(t, z, 6)
	assert.Equal(t, 0.5, z[0])
	assert.Equal(t, -12.0, z[5])
	for k := 1; k < len(z); k++ {
		assert.Less(t, z[k], z[k-1])
	}
	assert.Equal(t, []float64{2}, DefaultStretch().Profile(1, 2, 10))
}

func TestReferenceTable(t *testing.T) {
	ref := DefaultReference()
	zz := ref.Table(0)

	assert.Len(t, zz, 19)
	assert.Equal(t, 0.0, zz[0])
	assert.Equal(t, 18.0, zz[18])
	assert.InDelta(t, 0.5774, zz[1], 1e-3)
	assert.InDelta(t, 1.7582, zz[3], 1e-3)
	assert.InDelta(t, 6.0085, zz[9], 1e-3)
	for k := 1; k < len(zz); k++ {
		assert.Greater(t, zz[k], zz[k-1])
	}
	assert.Equal(t, 9, ref.CutoffIndex(zz))
}

func TestSearchSorted(t *testing.T) {
	a := []float64{0, 1, 2, 3}
	assert.Equal(t, 0, searchSorted(a, -1))
	assert.Equal(t, 0, searchSorted(a, 0))
	assert.Equal(t, 2, searchSorted(a, 1.5))
	assert.Equal(t, 2, searchSorted(a, 2))
	assert.Equal(t, 4, searchSorted(a, 10))
	assert.Equal(t, 4, searchSorted(a, math.Inf(1)))
}
