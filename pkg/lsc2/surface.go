package lsc2

import (
	"math"

	"github.com/matzehuels/lscgrid/pkg/errors"
)

// Surface is the reference water level eta, either one value for the whole
// mesh or one value per node.
type Surface struct {
	scalar  float64
	perNode []float64
}

// Level returns a Surface with the same eta at every node.
func Level(eta float64) Surface { return Surface{scalar: eta} }

// Levels returns a Surface with a per-node eta. The slice is not copied.
func Levels(eta []float64) Surface { return Surface{perNode: eta} }

// At returns eta at node i.
func (s Surface) At(i int) float64 {
	if s.perNode != nil {
		return s.perNode[i]
	}
	return s.scalar
}

// Uniform reports whether the surface has a single value.
func (s Surface) Uniform() bool { return s.perNode == nil }

// Values returns eta for n nodes.
func (s Surface) Values(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Validate checks that a per-node surface matches n nodes and is finite.
func (s Surface) Validate(n int) error {
	if s.perNode == nil {
		if math.IsNaN(s.scalar) || math.IsInf(s.scalar, 0) {
			return errors.New(errors.ErrCodeInvalidInput, "eta is not finite")
		}
		return nil
	}
	if err := errors.ValidateLength("eta", len(s.perNode), n); err != nil {
		return err
	}
	return errors.ValidateFinite(errors.ErrCodeInvalidInput, "eta", s.perNode)
}

// EffectiveDepth returns eta[i]+h[i] for every node.
func EffectiveDepth(eta Surface, h []float64) []float64 {
	d := make([]float64, len(h))
	for i, hi := range h {
		d[i] = eta.At(i) + hi
	}
	return d
}
