package mesh

import (
	"fmt"
	"slices"
)

// Edge is an undirected connection between two node indices.
type Edge [2]int

// Mesh is an unstructured horizontal mesh: node positions, bed depth, and
// the undirected edges between nodes.
//
// The zero value is not usable - use [New] or [ReadGR3].
type Mesh struct {
	x, y []float64
	h    []float64 // bed depth, positive downward

	edges []Edge

	// compressed adjacency: neighbours of i are nbrs[offsets[i]:offsets[i+1]]
	offsets []int
	nbrs    []int
}

// New builds a mesh from coordinates, bed depth, and an edge list of 0-based
// node indices. Self loops are dropped and duplicate edges (in either
// orientation) are merged, keeping first-occurrence order. The input slices
// are copied.
func New(x, y, h []float64, edges []Edge) (*Mesh, error) {
	n := len(h)
	if n == 0 {
		return nil, ErrEmptyMesh
	}
	if len(x) != n || len(y) != n {
		return nil, fmt.Errorf("%w: x=%d y=%d h=%d", ErrLengthMismatch, len(x), len(y), n)
	}

	m := &Mesh{
		x: slices.Clone(x),
		y: slices.Clone(y),
		h: slices.Clone(h),
	}

	seen := make(map[Edge]struct{}, len(edges))
	m.edges = make([]Edge, 0, len(edges))
	for k, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= n || b < 0 || b >= n {
			return nil, fmt.Errorf("%w: edge %d (%d,%d) with %d nodes", ErrBadEdge, k, a, b, n)
		}
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		key := Edge{a, b}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.edges = append(m.edges, key)
	}

	m.buildAdjacency()
	return m, nil
}

func (m *Mesh) buildAdjacency() {
	n := len(m.h)
	degree := make([]int, n)
	for _, e := range m.edges {
		degree[e[0]]++
		degree[e[1]]++
	}

	m.offsets = make([]int, n+1)
	for i, d := range degree {
		m.offsets[i+1] = m.offsets[i] + d
	}

	m.nbrs = make([]int, m.offsets[n])
	fill := slices.Clone(m.offsets[:n])
	for _, e := range m.edges {
		a, b := e[0], e[1]
		m.nbrs[fill[a]] = b
		fill[a]++
		m.nbrs[fill[b]] = a
		fill[b]++
	}
	for i := 0; i < n; i++ {
		slices.Sort(m.nbrs[m.offsets[i]:m.offsets[i+1]])
	}
}

// NodeCount returns the number of nodes.
func (m *Mesh) NodeCount() int { return len(m.h) }

// EdgeCount returns the number of unique undirected edges.
func (m *Mesh) EdgeCount() int { return len(m.edges) }

// Edges returns the unique edges with the smaller index first.
// The returned slice must not be modified.
func (m *Mesh) Edges() []Edge { return m.edges }

// Neighbors returns the sorted neighbour indices of node i.
// The returned slice must not be modified.
func (m *Mesh) Neighbors(i int) []int {
	return m.nbrs[m.offsets[i]:m.offsets[i+1]]
}

// Degree returns the number of neighbours of node i.
func (m *Mesh) Degree(i int) int { return m.offsets[i+1] - m.offsets[i] }

// X returns the x coordinate of node i.
func (m *Mesh) X(i int) float64 { return m.x[i] }

// Y returns the y coordinate of node i.
func (m *Mesh) Y(i int) float64 { return m.y[i] }

// Depth returns the bed depth of node i (positive downward).
func (m *Mesh) Depth(i int) float64 { return m.h[i] }

// Depths returns a copy of all bed depths.
func (m *Mesh) Depths() []float64 { return slices.Clone(m.h) }
