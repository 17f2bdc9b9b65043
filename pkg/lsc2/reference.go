package lsc2

import "sort"

// Reference describes the canonical stretched profile used to estimate
// layer counts and to flatten shallow columns.
type Reference struct {
	// NCutoff is the number of unit steps in the table.
	NCutoff int
	// HCut is the depth below which the table is used directly; deeper
	// columns get one extra layer per unit depth.
	HCut float64
	// Stretch is the S-coordinate used to build the table.
	Stretch Stretch
}

// DefaultReference returns an 18-step table stretched with theta=2, b=0,
// hc=1 and a 5.6 m cutoff.
func DefaultReference() Reference {
	return Reference{
		NCutoff: 18,
		HCut:    5.6,
		Stretch: Stretch{Theta: 2, B: 0, Hc: 1},
	}
}

// Table returns the depths below the surface of the NCutoff+1 reference
// levels for a column with water level eta. The table is increasing with
// zz[0] = 0 and zz[NCutoff] = NCutoff.
func (r Reference) Table(eta float64) []float64 {
	n := r.NCutoff
	href := float64(n) - eta
	zz := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		s := -float64(k) / float64(n)
		zz[k] = eta - r.Stretch.Z(s, eta, href)
	}
	zz[0], zz[n] = 0, float64(n)
	return zz
}

// CutoffIndex returns the table index reached at HCut.
func (r Reference) CutoffIndex(zz []float64) int {
	return searchSorted(zz, r.HCut)
}

// searchSorted returns the first index i with a[i] >= v, or len(a).
func searchSorted(a []float64, v float64) int {
	return sort.SearchFloat64s(a, v)
}

// tables memoizes reference tables by eta for per-node surfaces.
type tables struct {
	ref   Reference
	byEta map[float64][]float64
}

func newTables(ref Reference) *tables {
	return &tables{ref: ref, byEta: make(map[float64][]float64)}
}

func (t *tables) get(eta float64) []float64 {
	if zz, ok := t.byEta[eta]; ok {
		return zz
	}
	zz := t.ref.Table(eta)
	t.byEta[eta] = zz
	return zz
}
