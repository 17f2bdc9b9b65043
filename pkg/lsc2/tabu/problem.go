// Package tabu reconciles per-node layer counts across the mesh with a tabu
// search.
//
// Neighbouring columns of similar depth should not differ abruptly in layer
// count, or the prism grid folds. A [Problem] captures which nodes may gain
// one layer and which edges are penalized; [Search.Optimize] looks for the
// assignment with the smallest weighted mismatch.
package tabu

import (
	"math"

	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/mesh"
)

// Edge penalty weights per unit of layer difference.
const (
	weightConsistent   = 1.0 // deeper side has more layers
	weightInconsistent = 2.0 // shallower side has more layers
	weightFlat         = 1.5 // equal depths
)

// Params controls problem construction.
type Params struct {
	// Multiplier scales the depth-difference threshold below which an edge
	// is penalized: |da-db| < Multiplier*(da+db)/(na+nb).
	Multiplier float64
	// MinDepth is the depth a node must exceed to be changeable.
	MinDepth float64
}

// DefaultParams returns multiplier 1.5 and minimum depth 1.0.
func DefaultParams() Params {
	return Params{Multiplier: 1.5, MinDepth: 1.0}
}

// arc is one eligible edge as seen from one endpoint.
type arc struct {
	to   int
	sign int // sign of depth[self]-depth[to]
}

// Problem is an immutable layer-count reconciliation instance.
type Problem struct {
	depth   []float64
	nlayer0 []int
	movable []int // changeable nodes, ascending
	edges   []mesh.Edge
	signs   []int // sign of depth[a]-depth[b] per eligible edge
	adj     [][]arc
}

// NewProblem builds a problem from the mesh edges, total depth, initial
// layer counts, and bounds.
//
// A node is changeable when minlayer <= nlayer0 < max(maxlayer over all
// nodes), nlayer0 < its own maxlayer, and its depth exceeds MinDepth. An
// edge is eligible when its endpoint depths are close relative to the local
// layer spacing.
func NewProblem(m *mesh.Mesh, depth []float64, nlayer0 []int, b lsc2.Bounds, p Params) (*Problem, error) {
	n := m.NodeCount()
	if err := errors.ValidateLength("depth", len(depth), n); err != nil {
		return nil, err
	}
	if err := errors.ValidateLength("nlayer", len(nlayer0), n); err != nil {
		return nil, err
	}
	if err := b.Validate(n); err != nil {
		return nil, err
	}
	if err := errors.ValidateFinite(errors.ErrCodeInvalidDepth, "depth", depth); err != nil {
		return nil, err
	}
	var outside []int
	for i, nl := range nlayer0 {
		if nl < b.MinLayer[i] || nl > b.MaxLayer[i] {
			outside = append(outside, i)
		}
	}
	if len(outside) > 0 {
		return nil, errors.AtNodes(errors.ErrCodeInvalidLayers, outside, "initial layer count outside bounds")
	}

	pr := &Problem{
		depth:   append([]float64(nil), depth...),
		nlayer0: append([]int(nil), nlayer0...),
		adj:     make([][]arc, n),
	}

	globalMax := b.GlobalMax()
	for i := 0; i < n; i++ {
		nl := nlayer0[i]
		if b.MinLayer[i] <= nl && nl < globalMax && nl < b.MaxLayer[i] && depth[i] > p.MinDepth {
			pr.movable = append(pr.movable, i)
		}
	}

	for _, e := range m.Edges() {
		a, c := e[0], e[1]
		thresh := p.Multiplier * (depth[a] + depth[c]) / float64(nlayer0[a]+nlayer0[c])
		if math.Abs(depth[a]-depth[c]) >= thresh {
			continue
		}
		s := sign(depth[a] - depth[c])
		pr.edges = append(pr.edges, e)
		pr.signs = append(pr.signs, s)
		pr.adj[a] = append(pr.adj[a], arc{to: c, sign: s})
		pr.adj[c] = append(pr.adj[c], arc{to: a, sign: -s})
	}
	return pr, nil
}

// NodeCount returns the number of nodes.
func (p *Problem) NodeCount() int { return len(p.nlayer0) }

// Initial returns a copy of the initial layer counts.
func (p *Problem) Initial() []int { return append([]int(nil), p.nlayer0...) }

// Changeable returns the indices of nodes that may gain a layer.
func (p *Problem) Changeable() []int { return append([]int(nil), p.movable...) }

// EligibleEdges returns the penalized edges. The slice must not be modified.
func (p *Problem) EligibleEdges() []mesh.Edge { return p.edges }

// Objective returns the weighted layer mismatch of nlayer over the eligible
// edges.
func (p *Problem) Objective(nlayer []int) float64 {
	var total float64
	for k, e := range p.edges {
		total += penalty(nlayer[e[0]]-nlayer[e[1]], p.signs[k])
	}
	return total
}

// EdgePenalties returns the penalty of each eligible edge under nlayer, in
// the order of [Problem.EligibleEdges].
func (p *Problem) EdgePenalties(nlayer []int) []float64 {
	out := make([]float64, len(p.edges))
	for k, e := range p.edges {
		out[k] = penalty(nlayer[e[0]]-nlayer[e[1]], p.signs[k])
	}
	return out
}

// flipBenefit returns the objective decrease from moving node i to nlayer
// value next.
func (p *Problem) flipBenefit(i, next int, nlayer []int) float64 {
	var delta float64
	cur := nlayer[i]
	for _, a := range p.adj[i] {
		other := nlayer[a.to]
		delta += penalty(cur-other, a.sign) - penalty(next-other, a.sign)
	}
	return delta
}

// penalty weights a layer difference by whether it agrees with the depth
// difference of the same edge.
func penalty(layerDiff, depthSign int) float64 {
	if layerDiff == 0 {
		return 0
	}
	d := float64(layerDiff)
	if d < 0 {
		d = -d
	}
	switch {
	case depthSign == 0:
		return weightFlat * d
	case (layerDiff > 0) == (depthSign > 0):
		return weightConsistent * d
	default:
		return weightInconsistent * d
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
