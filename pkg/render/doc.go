// Package render provides diagnostic visualizations of generated grids.
//
// The [nodelink] subpackage draws the mesh edges considered by the
// layer-count optimizer, coloured by how well neighbouring layer counts
// agree.
//
// [nodelink]: github.com/matzehuels/lscgrid/pkg/render/nodelink
package render
