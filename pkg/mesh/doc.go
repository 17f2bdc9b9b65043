// Package mesh provides the horizontal mesh graph used by the vertical grid
// generator.
//
// # Overview
//
// A [Mesh] holds node coordinates, bed depth (positive downward), and an
// undirected edge list. Adjacency is precomputed once into a compressed
// neighbour list so the smoothing and optimization algorithms never touch
// the concrete mesh representation:
//
//	m, err := mesh.New(x, y, h, []mesh.Edge{{0, 1}, {1, 2}})
//	for _, j := range m.Neighbors(1) {
//	    // j is 0 or 2
//	}
//
// A Mesh is immutable after construction and safe to share across
// goroutines.
//
// # Reading Meshes
//
// [ReadGR3] and [ReadGR3File] parse the SCHISM hgrid.gr3 text format.
// Element connectivity (triangles and quads) is converted to the unique edge
// list; boundary sections after the elements are ignored.
//
// # Smoothing
//
// [Smoother] performs explicit graph diffusion with a per-node drift term:
//
//	field[i] += dt*kappa*(mean(field[neighbours]) - field[i]) + dt*bias[i]
//
// Each iteration reads the previous iteration's full field. Large meshes are
// processed in parallel chunks with a barrier between iterations.
package mesh
