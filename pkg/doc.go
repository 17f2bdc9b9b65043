// Package pkg holds the lscgrid libraries.
//
// # Overview
//
// lscgrid generates LSC2 (localized sigma coordinates with shaved cells)
// vertical grids for SCHISM. Every node of the horizontal mesh gets its own
// number of layers; neighbouring nodes of similar depth are nudged toward
// the same count so the grid stays smooth.
//
// # Architecture
//
//	hgrid.gr3 + config
//	       ↓
//	  [mesh], [zones]          nodes, edges, per-node layer bounds
//	       ↓
//	  [lsc2].Estimate          initial layer counts from depth
//	       ↓
//	  [tabu]                   smooth layer counts across edges
//	       ↓
//	  [lsc2].Builder           sigma levels per node
//	       ↓
//	  [vgrid]                  vgrid.in (ivcor=1) and JSON summary
//
// [pipeline] runs these stages with caching ([cache]) and reports them to
// [observability] hooks, which [metrics] exports to Prometheus.
//
// # Quick Start
//
//	m, _ := mesh.ReadGR3File("hgrid.gr3")
//	in := pipeline.Input{Mesh: m, Eta: lsc2.Level(0), Bounds: lsc2.UniformBounds(m.NodeCount(), 1, 40, 1)}
//	r := pipeline.NewRunner(nil, nil, nil)
//	res, err := r.Execute(ctx, in, pipeline.DefaultOptions())
//	err = r.Write(ctx, res, "vgrid.in", "")
//
// [mesh]: github.com/matzehuels/lscgrid/pkg/mesh
// [zones]: github.com/matzehuels/lscgrid/pkg/zones
// [lsc2]: github.com/matzehuels/lscgrid/pkg/lsc2
// [tabu]: github.com/matzehuels/lscgrid/pkg/lsc2/tabu
// [vgrid]: github.com/matzehuels/lscgrid/pkg/vgrid
// [pipeline]: github.com/matzehuels/lscgrid/pkg/pipeline
// [cache]: github.com/matzehuels/lscgrid/pkg/cache
// [observability]: github.com/matzehuels/lscgrid/pkg/observability
// [metrics]: github.com/matzehuels/lscgrid/pkg/metrics
package pkg
