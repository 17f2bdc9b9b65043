// Package zones assigns per-node layer bounds from polygon regions.
//
// A run starts from uniform [Defaults] and applies each [Zone] in order:
// nodes that fall inside a zone's polygon take whichever of min_layer,
// max_layer, and dz_target the zone sets. Later zones override earlier
// ones. Points on a polygon edge count as inside.
package zones

import (
	"fmt"

	"github.com/ctessum/geom"

	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/mesh"
)

// Defaults are the bounds of nodes not covered by any zone.
type Defaults struct {
	MinLayer int
	MaxLayer int
	DzTarget float64
}

// Zone is a polygon region with optional bound overrides.
type Zone struct {
	Name     string
	Polygon  geom.Polygon
	MinLayer *int
	MaxLayer *int
	DzTarget *float64
}

// NewZone builds a zone from an outer ring of [x, y] vertices. The ring
// need not repeat its first vertex.
func NewZone(name string, ring [][2]float64) (Zone, error) {
	if len(ring) < 3 {
		return Zone{}, errors.New(errors.ErrCodeInvalidConfig, "zone %q: polygon needs at least 3 vertices, got %d", name, len(ring))
	}
	pts := make([]geom.Point, len(ring))
	for i, v := range ring {
		pts[i] = geom.Point{X: v[0], Y: v[1]}
	}
	return Zone{Name: name, Polygon: geom.Polygon{pts}}, nil
}

// Report counts the nodes each zone claimed, in zone order. A node inside
// several zones is counted by each of them.
type Report struct {
	Zones  []string
	Counts []int
}

// Assign computes per-node bounds for m. The result is not validated;
// pass it through [lsc2.Bounds.Validate] to catch zones that invert
// min and max layer counts.
func Assign(m *mesh.Mesh, d Defaults, zs []Zone) (lsc2.Bounds, Report, error) {
	n := m.NodeCount()
	b := lsc2.UniformBounds(n, d.MinLayer, d.MaxLayer, d.DzTarget)
	rep := Report{Zones: make([]string, len(zs)), Counts: make([]int, len(zs))}

	for z, zone := range zs {
		rep.Zones[z] = zone.Name
		if err := zone.check(); err != nil {
			return lsc2.Bounds{}, rep, err
		}
		box := zone.Polygon.Bounds()
		for i := 0; i < n; i++ {
			p := geom.Point{X: m.X(i), Y: m.Y(i)}
			if !inBox(p, box) || p.Within(zone.Polygon) == geom.Outside {
				continue
			}
			rep.Counts[z]++
			if zone.MinLayer != nil {
				b.MinLayer[i] = *zone.MinLayer
			}
			if zone.MaxLayer != nil {
				b.MaxLayer[i] = *zone.MaxLayer
			}
			if zone.DzTarget != nil {
				b.DzTarget[i] = *zone.DzTarget
			}
		}
	}
	return b, rep, nil
}

func (z Zone) check() error {
	if len(z.Polygon) == 0 || len(z.Polygon[0]) < 3 {
		return errors.New(errors.ErrCodeInvalidConfig, "zone %q: polygon needs at least 3 vertices", z.Name)
	}
	if z.MinLayer != nil && *z.MinLayer < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "zone %q: min_layer must be at least 1", z.Name)
	}
	if z.MinLayer != nil && z.MaxLayer != nil && *z.MinLayer > *z.MaxLayer {
		return errors.New(errors.ErrCodeInvalidConfig, "zone %q: min_layer(%d) > max_layer(%d)", z.Name, *z.MinLayer, *z.MaxLayer)
	}
	return nil
}

func inBox(p geom.Point, b *geom.Bounds) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// String describes the zone for log output.
func (z Zone) String() string {
	s := z.Name
	if z.MinLayer != nil {
		s += fmt.Sprintf(" min=%d", *z.MinLayer)
	}
	if z.MaxLayer != nil {
		s += fmt.Sprintf(" max=%d", *z.MaxLayer)
	}
	if z.DzTarget != nil {
		s += fmt.Sprintf(" dz=%g", *z.DzTarget)
	}
	return s
}
