package lsc2

import (
	"github.com/matzehuels/lscgrid/pkg/errors"
)

// Estimate returns the initial layer count of every node from its total
// depth d = eta+h, independent of neighbours:
//
//   - d < HCut: the first reference table index whose depth reaches d,
//     at least 1.
//   - otherwise: the cutoff index plus one layer per unit depth beyond
//     HCut, truncated.
//
// The result is clamped to the node's bounds. Bounds are validated first;
// non-finite depth is rejected with the offending node indices.
func Estimate(eta Surface, h []float64, b Bounds, ref Reference) ([]int, error) {
	n := len(h)
	if err := eta.Validate(n); err != nil {
		return nil, err
	}
	if err := b.Validate(n); err != nil {
		return nil, err
	}
	depth := EffectiveDepth(eta, h)
	if err := errors.ValidateFinite(errors.ErrCodeInvalidDepth, "depth", depth); err != nil {
		return nil, err
	}

	tabs := newTables(ref)
	nlayer := make([]int, n)
	for i, d := range depth {
		zz := tabs.get(eta.At(i))
		var est int
		if d < ref.HCut {
			est = max(searchSorted(zz, d), 1)
		} else {
			est = int((d - ref.HCut) + 1 + float64(ref.CutoffIndex(zz)))
		}
		nlayer[i] = min(max(est, b.MinLayer[i]), b.MaxLayer[i])
	}
	return nlayer, nil
}
