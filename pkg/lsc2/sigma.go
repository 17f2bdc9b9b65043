package lsc2

import (
	"math"

	"github.com/matzehuels/lscgrid/pkg/errors"
)

// sigmaTol is the tolerance for the surface and bed endpoint checks.
const sigmaTol = 1e-6

// SigmaField holds the sigma coordinates of every node, shaped
// (nodes, MaxLevel). Row i has NLevel(i) valid entries ordered from the
// surface (0) to the bed (-1); the remaining slots read as NaN.
type SigmaField struct {
	nlevel   []int
	maxLevel int
	values   []float64
}

// NewSigmaField allocates a NaN-filled field for the given per-node level
// counts. Every count must be at least 2.
func NewSigmaField(nlevel []int) (*SigmaField, error) {
	maxLevel := 0
	var bad []int
	for i, n := range nlevel {
		if n < 2 {
			bad = append(bad, i)
		}
		maxLevel = max(maxLevel, n)
	}
	if len(bad) > 0 {
		return nil, errors.AtNodes(errors.ErrCodeInvalidLayers, bad, "fewer than 2 levels")
	}

	f := &SigmaField{
		nlevel:   append([]int(nil), nlevel...),
		maxLevel: maxLevel,
		values:   make([]float64, len(nlevel)*maxLevel),
	}
	for i := range f.values {
		f.values[i] = math.NaN()
	}
	return f, nil
}

// NodeCount returns the number of nodes.
func (f *SigmaField) NodeCount() int { return len(f.nlevel) }

// MaxLevel returns the largest level count of any node.
func (f *SigmaField) MaxLevel() int { return f.maxLevel }

// NLevel returns the number of valid levels at node i.
func (f *SigmaField) NLevel(i int) int { return f.nlevel[i] }

// NLayer returns the per-node layer counts (levels minus one).
func (f *SigmaField) NLayer() []int {
	out := make([]int, len(f.nlevel))
	for i, n := range f.nlevel {
		out[i] = n - 1
	}
	return out
}

// Valid reports whether level k of node i holds a coordinate.
func (f *SigmaField) Valid(i, k int) bool { return k >= 0 && k < f.nlevel[i] }

// At returns sigma at node i, level k, or NaN for an unused slot.
func (f *SigmaField) At(i, k int) float64 { return f.values[i*f.maxLevel+k] }

// Levels returns the valid sigma run of node i, surface first.
// The returned slice aliases the field.
func (f *SigmaField) Levels(i int) []float64 {
	off := i * f.maxLevel
	return f.values[off : off+f.nlevel[i]]
}

// Row returns the full NaN-padded row of node i.
// The returned slice aliases the field.
func (f *SigmaField) Row(i int) []float64 {
	off := i * f.maxLevel
	return f.values[off : off+f.maxLevel]
}

// SetLevels stores the sigma run of node i. len(sigma) must equal NLevel(i).
func (f *SigmaField) SetLevels(i int, sigma []float64) error {
	if len(sigma) != f.nlevel[i] {
		return errors.AtNode(errors.ErrCodeInvalidLayers, i, "got %d levels, want %d", len(sigma), f.nlevel[i])
	}
	copy(f.Levels(i), sigma)
	return nil
}

// Validate checks that every node starts at 0, ends at -1, and is
// non-increasing in between.
func (f *SigmaField) Validate() error {
	var badEnds, badOrder []int
	for i := range f.nlevel {
		lv := f.Levels(i)
		if math.Abs(lv[0]) > sigmaTol || math.Abs(lv[len(lv)-1]+1) > sigmaTol {
			badEnds = append(badEnds, i)
			continue
		}
		for k := 1; k < len(lv); k++ {
			if !(lv[k] <= lv[k-1]) {
				badOrder = append(badOrder, i)
				break
			}
		}
	}
	if len(badEnds) > 0 {
		return errors.AtNodes(errors.ErrCodeInternal, badEnds, "sigma does not span [0, -1]")
	}
	if len(badOrder) > 0 {
		return errors.AtNodes(errors.ErrCodeInternal, badOrder, "sigma is not monotone")
	}
	return nil
}

// linearSigma returns -linspace(0, 1, n).
func linearSigma(n int) []float64 {
	s := make([]float64, n)
	for k := 1; k < n; k++ {
		s[k] = -float64(k) / float64(n-1)
	}
	s[n-1] = -1
	return s
}
