// Package nodelink renders layer-count mismatch diagrams.
//
// # Overview
//
// The tabu search penalizes mesh edges whose endpoints have similar depth
// but different layer counts. This package draws those edges at their mesh
// coordinates with Graphviz so problem areas can be inspected visually.
//
// # Usage
//
// Convert a problem and layer assignment to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(m, problem, nlayer, nodelink.Options{MismatchOnly: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces an undirected Graphviz graph with node
// positions pinned (neato layout). Node labels show the node index and
// its layer count. Edge colours:
//
//   - grey: equal layer counts
//   - orange: the deeper node has more layers
//   - red: the shallower node has more layers
//
// Penalized edges carry their weighted penalty as a label.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
