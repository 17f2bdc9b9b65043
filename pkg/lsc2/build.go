package lsc2

import (
	"context"
	"math"

	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/mesh"
)

// BuildParams configures [Builder]. Use [DefaultBuildParams] as a base.
type BuildParams struct {
	Stretch   Stretch
	Reference Reference
	Smoother  mesh.Smoother

	// Raw profile rise per level:
	//   max(MinDz, dztarget)*DzGain + clamp(depth-DeepStart, 0, DeepSpan)/DeepScale
	MinDz     float64
	DzGain    float64
	DeepStart float64
	DeepSpan  float64
	DeepScale float64

	// BoundaryFraction selects the boundary-zone top as this fraction of
	// the way up the node's raw profile.
	BoundaryFraction float64
	// Minimum boundary-zone thickness: max(SnapMin, SnapFrac*depth).
	SnapMin  float64
	SnapFrac float64

	// Columns shallower than FlattenDepth are blended toward the reference
	// profile scaled by clamp((depth-ScaleOffset)/ScaleSpan, ScaleMin, ScaleMax).
	FlattenDepth float64
	ScaleOffset  float64
	ScaleSpan    float64
	ScaleMin     float64
	ScaleMax     float64
	// Accepted window for reference-to-local spacing ratio.
	RatioMin float64
	RatioMax float64

	// Columns shallower than LinearDepth, or whose boundary zone exceeds
	// MaxBoundaryFraction of the depth, get evenly spaced levels.
	LinearDepth         float64
	MaxBoundaryFraction float64
}

// DefaultBuildParams returns the standard builder constants.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		Stretch:   DefaultStretch(),
		Reference: DefaultReference(),
		Smoother:  mesh.DefaultSmoother(),

		MinDz:     0.5,
		DzGain:    0.55,
		DeepStart: 40,
		DeepSpan:  40,
		DeepScale: 8,

		BoundaryFraction: 1.0 / 3.0,
		SnapMin:          0.15,
		SnapFrac:         0.01,

		FlattenDepth: 35,
		ScaleOffset:  4,
		ScaleSpan:    36,
		ScaleMin:     0.8,
		ScaleMax:     1.25,
		RatioMin:     0.7,
		RatioMax:     3.0,

		LinearDepth:         0.2,
		MaxBoundaryFraction: 0.8,
	}
}

// BuildInput is the data consumed by [Builder.Build].
type BuildInput struct {
	Mesh     *mesh.Mesh
	Eta      Surface
	NLayer   []int     // final layer count per node, each >= 1
	DzTarget []float64 // nominal layer thickness per node
}

// BuildOutput is the result of [Builder.Build].
type BuildOutput struct {
	Sigma *SigmaField

	Linear    int // nodes given evenly spaced levels
	Collapsed int // nodes reduced to a single layer
	Flattened int // nodes blended toward the reference profile
}

// NLayer returns the revised per-node layer counts.
func (o *BuildOutput) NLayer() []int { return o.Sigma.NLayer() }

// Builder synthesizes per-node sigma coordinates.
type Builder struct {
	Params BuildParams
}

// NewBuilder returns a Builder with the given parameters.
func NewBuilder(p BuildParams) *Builder {
	return &Builder{Params: p}
}

// Build computes the sigma coordinates of every node. A column keeps its
// requested layer count unless its boundary zone collapses, which leaves a
// single layer; the revised counts are the field's level counts minus one.
//
// The raw near-bed profile is grown level by level with graph diffusion,
// so the result depends on neighbouring columns. Each column is then built
// from the boundary zone, the analytic S-coordinate profile above it, and
// an optional blend toward the reference profile in shallow water.
func (b *Builder) Build(ctx context.Context, in BuildInput) (*BuildOutput, error) {
	if in.Mesh == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mesh is required")
	}
	n := in.Mesh.NodeCount()
	if err := in.Eta.Validate(n); err != nil {
		return nil, err
	}
	if err := errors.ValidateLength("nlayer", len(in.NLayer), n); err != nil {
		return nil, err
	}
	if err := errors.ValidateLength("dztarget", len(in.DzTarget), n); err != nil {
		return nil, err
	}
	var bad []int
	for i, nl := range in.NLayer {
		if nl < 1 {
			bad = append(bad, i)
		}
	}
	if len(bad) > 0 {
		return nil, errors.AtNodes(errors.ErrCodeInvalidLayers, bad, "layer count must be at least 1")
	}

	h := in.Mesh.Depths()
	depth := EffectiveDepth(in.Eta, h)
	if err := errors.ValidateFinite(errors.ErrCodeInvalidDepth, "depth", depth); err != nil {
		return nil, err
	}

	maxLevel := 0
	for _, nl := range in.NLayer {
		maxLevel = max(maxLevel, nl+1)
	}

	raw, below, err := b.rawProfile(ctx, in, h, depth, maxLevel)
	if err != nil {
		return nil, err
	}

	p := b.Params
	tabs := newTables(p.Reference)
	out := &BuildOutput{}
	columns := make([][]float64, n)
	nlevel := make([]int, n)

	for i := 0; i < n; i++ {
		eta := in.Eta.At(i)
		nl := in.NLayer[i] + 1

		var sigma []float64
		switch {
		case depth[i] < p.LinearDepth:
			sigma = linearSigma(nl)
			out.Linear++
		case nl == 2:
			sigma = linearSigma(2)
		default:
			zb := raw[max(1, int(float64(below[i])*p.BoundaryFraction))][i]
			z, frac, flat := b.column(eta, h[i], depth[i], nl, zb, tabs.get(eta))
			switch {
			case len(z) == 2:
				sigma = linearSigma(2)
				out.Collapsed++
			case frac > p.MaxBoundaryFraction:
				sigma = linearSigma(len(z))
				out.Linear++
			default:
				sigma = toSigma(z, eta, depth[i])
				if flat {
					out.Flattened++
				}
			}
		}
		columns[i] = sigma
		nlevel[i] = len(sigma)
	}

	field, err := NewSigmaField(nlevel)
	if err != nil {
		return nil, err
	}
	for i, sigma := range columns {
		if err := field.SetLevels(i, sigma); err != nil {
			return nil, err
		}
	}
	out.Sigma = field
	return out, nil
}

// rawProfile grows the raw geometric profile upward from the bed, one
// level per smoothing pass, for maxLevel passes. Each level is at least the
// one below it and at most eta. Only the lowest levels that the boundary
// zone can select are kept; below counts, per node, the levels that stay
// under eta.
func (b *Builder) rawProfile(ctx context.Context, in BuildInput, h, depth []float64, maxLevel int) ([][]float64, []int, error) {
	p := b.Params
	n := len(h)

	bias := make([]float64, n)
	for i := range bias {
		bias[i] = max(p.MinDz, in.DzTarget[i])*p.DzGain + clamp(depth[i]-p.DeepStart, 0, p.DeepSpan)/p.DeepScale
	}

	keep := max(2, int(float64(maxLevel+1)*p.BoundaryFraction)+1)
	raw := make([][]float64, 0, keep)
	below := make([]int, n)

	cur := make([]float64, n)
	for i := range cur {
		cur[i] = -h[i]
		if cur[i] < in.Eta.At(i) {
			below[i] = 1
		}
	}
	raw = append(raw, cur)

	for lv := 1; lv <= maxLevel; lv++ {
		next, err := p.Smoother.Smooth(ctx, in.Mesh, cur, bias)
		if err != nil {
			return nil, nil, err
		}
		for i := range next {
			eta := in.Eta.At(i)
			next[i] = min(max(next[i], cur[i]), eta)
			if next[i] < eta {
				below[i]++
			}
		}
		if len(raw) < keep {
			raw = append(raw, next)
		}
		cur = next
	}
	return raw, below, nil
}

// column builds the elevation profile of one node from its boundary-zone
// top zb. It returns the profile (surface first), the boundary-zone fraction
// of the depth, and whether the shallow-water blend was applied. The profile
// has nlevel entries unless the boundary zone leaves no room below eta, in
// which case the column collapses to a single layer.
func (b *Builder) column(eta, h, depth float64, nlevel int, zb float64, zz []float64) ([]float64, float64, bool) {
	p := b.Params
	tol := max(p.SnapMin, p.SnapFrac*depth)
	zb = max(zb, -h+tol)
	if zb >= eta-tol {
		return []float64{eta, -h}, 1, false
	}

	st := Stretch{
		Theta: max(1e-4, p.Stretch.Theta*depth/100),
		B:     p.Stretch.B,
		Hc:    max(0, min(p.Stretch.Hc, h)),
	}
	// The analytic profile over the full column is mapped onto eta..zb,
	// giving nlevel-2 levels strictly above the boundary-zone top.
	analytic := st.Profile(nlevel-1, eta, h)
	shrink := (eta - zb) / depth
	z := make([]float64, nlevel)
	for k, a := range analytic {
		z[k] = eta + (a-eta)*shrink
	}
	z[nlevel-2], z[nlevel-1] = zb, -h
	smoothJoint(z, nlevel-2)

	frac := (zb + h) / depth
	flat := false
	if depth < p.FlattenDepth {
		flat = b.flatten(z, eta, depth, zz)
	}
	return z, frac, flat
}

// flatten blends the upper part of a shallow profile toward the scaled
// reference profile. The node's near-bed spacing is the lowest interval
// above the boundary zone. flatten searches from just above the boundary
// zone toward the surface for the deepest level k whose reference spacing
// is comparable to the near-bed spacing, then blends levels 1..k with a
// weight that falls to zero at FlattenDepth. It reports whether a blend
// was applied.
func (b *Builder) flatten(z []float64, eta, depth float64, zz []float64) bool {
	p := b.Params
	w := (p.FlattenDepth - depth) / p.FlattenDepth
	if w <= 0 || len(z) < 4 {
		return false
	}
	scale := clamp((depth-p.ScaleOffset)/p.ScaleSpan, p.ScaleMin, p.ScaleMax)
	nearBed := z[len(z)-3] - z[len(z)-2]
	if nearBed <= 0 {
		return false
	}

	for k := min(len(z)-3, len(zz)-2); k >= 1; k-- {
		ratio := (zz[k+1] - zz[k]) * scale / nearBed
		if ratio < p.RatioMin || ratio > p.RatioMax {
			continue
		}
		if eta-zz[k]*scale <= z[k+1] {
			continue
		}
		for m := 1; m <= k; m++ {
			z[m] = (1-w)*z[m] + w*(eta-zz[m]*scale)
		}
		smoothJoint(z, k)
		return true
	}
	return false
}

// smoothJoint replaces z[j] with the 1-2-1 weighted mean of itself and its
// neighbours.
func smoothJoint(z []float64, j int) {
	if j <= 0 || j >= len(z)-1 {
		return
	}
	z[j] = 0.25*z[j-1] + 0.5*z[j] + 0.25*z[j+1]
}

// toSigma converts elevations to sigma = -clip((eta-z)/depth, 0, 1) with
// exact endpoints. The result is forced non-increasing.
func toSigma(z []float64, eta, depth float64) []float64 {
	s := make([]float64, len(z))
	for k, zk := range z {
		s[k] = -clamp((eta-zk)/depth, 0, 1)
		if k > 0 {
			s[k] = min(s[k], s[k-1])
		}
	}
	s[0], s[len(s)-1] = 0, -1
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
