package lsc2

import (
	"github.com/matzehuels/lscgrid/pkg/errors"
)

// Bounds holds the per-node layer count limits and target layer thickness,
// usually produced by polygon zone assignment.
type Bounds struct {
	MinLayer []int
	MaxLayer []int
	DzTarget []float64
}

// UniformBounds returns Bounds with the same limits at all n nodes.
func UniformBounds(n, minLayer, maxLayer int, dz float64) Bounds {
	b := Bounds{
		MinLayer: make([]int, n),
		MaxLayer: make([]int, n),
		DzTarget: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b.MinLayer[i] = minLayer
		b.MaxLayer[i] = maxLayer
		b.DzTarget[i] = dz
	}
	return b
}

// Len returns the number of nodes covered.
func (b Bounds) Len() int { return len(b.MinLayer) }

// GlobalMax returns the largest MaxLayer value, or 0 for empty bounds.
func (b Bounds) GlobalMax() int {
	m := 0
	for _, v := range b.MaxLayer {
		m = max(m, v)
	}
	return m
}

// Validate checks array lengths against n and the per-node invariants
// 1 <= minlayer <= maxlayer. Offending nodes are reported in the error.
func (b Bounds) Validate(n int) error {
	if err := errors.ValidateLength("minlayer", len(b.MinLayer), n); err != nil {
		return err
	}
	if err := errors.ValidateLength("maxlayer", len(b.MaxLayer), n); err != nil {
		return err
	}
	if err := errors.ValidateLength("dztarget", len(b.DzTarget), n); err != nil {
		return err
	}

	var inverted, empty []int
	for i := 0; i < n; i++ {
		if b.MinLayer[i] < 1 {
			empty = append(empty, i)
		}
		if b.MinLayer[i] > b.MaxLayer[i] {
			inverted = append(inverted, i)
		}
	}
	if len(inverted) == 1 {
		i := inverted[0]
		return errors.AtNode(errors.ErrCodeInvalidBounds, i, "minlayer(%d) > maxlayer(%d)", b.MinLayer[i], b.MaxLayer[i])
	}
	if len(inverted) > 1 {
		return errors.AtNodes(errors.ErrCodeInvalidBounds, inverted, "minlayer > maxlayer")
	}
	if len(empty) > 0 {
		return errors.AtNodes(errors.ErrCodeInvalidBounds, empty, "minlayer < 1")
	}
	return errors.ValidateFinite(errors.ErrCodeInvalidBounds, "dztarget", b.DzTarget)
}

// Contains reports whether nlayer satisfies the bounds at every node.
func (b Bounds) Contains(nlayer []int) bool {
	if len(nlayer) != len(b.MinLayer) {
		return false
	}
	for i, n := range nlayer {
		if n < b.MinLayer[i] || n > b.MaxLayer[i] {
			return false
		}
	}
	return true
}
