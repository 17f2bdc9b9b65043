package mesh

import "errors"

var (
	// ErrEmptyMesh is returned when a mesh has no nodes.
	ErrEmptyMesh = errors.New("mesh: no nodes")

	// ErrLengthMismatch is returned when coordinate and depth arrays differ
	// in length, or a field passed to the smoother does not match the mesh.
	ErrLengthMismatch = errors.New("mesh: array length mismatch")

	// ErrBadEdge is returned when an edge references a node outside the mesh.
	ErrBadEdge = errors.New("mesh: edge references unknown node")

	// ErrMalformed is returned for hgrid.gr3 input that cannot be parsed.
	ErrMalformed = errors.New("mesh: malformed hgrid")
)
