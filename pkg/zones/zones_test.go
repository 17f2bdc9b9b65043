package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/mesh"
)

// grid returns a 3x3 lattice of nodes at integer coordinates 0..2.
func grid(t *testing.T) *mesh.Mesh {
	t.Helper()
	var x, y, h []float64
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			x = append(x, float64(i))
			y = append(y, float64(j))
			h = append(h, 10)
		}
	}
	var edges []mesh.Edge
	for j := 0; j < 3; j++ {
		for i := 0; i < 2; i++ {
			edges = append(edges, mesh.Edge{j*3 + i, j*3 + i + 1})
		}
	}
	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			edges = append(edges, mesh.Edge{j*3 + i, (j+1)*3 + i})
		}
	}
	m, err := mesh.New(x, y, h, edges)
	require.NoError(t, err)
	return m
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func zone(t *testing.T, name string, ring [][2]float64) Zone {
	t.Helper()
	z, err := NewZone(name, ring)
	require.NoError(t, err)
	return z
}

func TestAssignDefaults(t *testing.T) {
	b, rep, err := Assign(grid(t), Defaults{MinLayer: 2, MaxLayer: 20, DzTarget: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, b.Len())
	for i := 0; i < 9; i++ {
		assert.Equal(t, 2, b.MinLayer[i])
		assert.Equal(t, 20, b.MaxLayer[i])
		assert.Equal(t, 1.0, b.DzTarget[i])
	}
	assert.Empty(t, rep.Counts)
}

func TestAssignOverrides(t *testing.T) {
	left := zone(t, "left", [][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 2.5}, {-0.5, 2.5}})
	left.MaxLayer = intp(10)

	corner := zone(t, "corner", [][2]float64{{-0.5, -0.5}, {1.5, -0.5}, {1.5, 0.5}, {-0.5, 0.5}})
	corner.MaxLayer = intp(5)
	corner.DzTarget = floatp(0.25)

	b, rep, err := Assign(grid(t), Defaults{MinLayer: 1, MaxLayer: 20, DzTarget: 1}, []Zone{left, corner})
	require.NoError(t, err)

	assert.Equal(t, []int{5, 5, 20, 10, 20, 20, 10, 20, 20}, b.MaxLayer)
	assert.Equal(t, []float64{0.25, 0.25, 1, 1, 1, 1, 1, 1, 1}, b.DzTarget)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 1, 1}, b.MinLayer)
	assert.Equal(t, []string{"left", "corner"}, rep.Zones)
	assert.Equal(t, []int{3, 2}, rep.Counts)
}

func TestAssignEdgeIsInside(t *testing.T) {
	// nodes 0, 1, 2, 5 and 7 lie on the triangle's edges, node 8 outside
	tri := zone(t, "tri", [][2]float64{{-1, 0}, {3, 0}, {-1, 4}})
	tri.MinLayer = intp(3)

	b, rep, err := Assign(grid(t), Defaults{MinLayer: 1, MaxLayer: 20, DzTarget: 1}, []Zone{tri})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 3, 3, 3, 3, 3, 1}, b.MinLayer)
	assert.Equal(t, 8, rep.Counts[0])
}

func TestNewZoneDegenerate(t *testing.T) {
	_, err := NewZone("line", [][2]float64{{0, 0}, {1, 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
	assert.Contains(t, err.Error(), `zone "line"`)
}

func TestAssignRejectsBadZone(t *testing.T) {
	tests := []struct {
		name string
		zone Zone
		want string
	}{
		{"empty polygon", Zone{Name: "empty"}, "at least 3 vertices"},
		{"min below one", func() Zone {
			z := zone(t, "z", [][2]float64{{0, 0}, {1, 0}, {0, 1}})
			z.MinLayer = intp(0)
			return z
		}(), "min_layer must be at least 1"},
		{"inverted", func() Zone {
			z := zone(t, "z", [][2]float64{{0, 0}, {1, 0}, {0, 1}})
			z.MinLayer, z.MaxLayer = intp(8), intp(5)
			return z
		}(), "min_layer(8) > max_layer(5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Assign(grid(t), Defaults{MinLayer: 1, MaxLayer: 20, DzTarget: 1}, []Zone{tt.zone})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssignInvertedAcrossZones(t *testing.T) {
	// each zone is consistent on its own but together they invert node 0
	a := zone(t, "a", [][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}})
	a.MinLayer = intp(8)
	b := zone(t, "b", [][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}})
	b.MaxLayer = intp(5)

	m := grid(t)
	bounds, _, err := Assign(m, Defaults{MinLayer: 1, MaxLayer: 20, DzTarget: 1}, []Zone{a, b})
	require.NoError(t, err)

	err = bounds.Validate(m.NodeCount())
	require.Error(t, err)
	assert.Equal(t, "INVALID_BOUNDS: node 0: minlayer(8) > maxlayer(5)", err.Error())
}

func TestZoneString(t *testing.T) {
	z := zone(t, "harbour", [][2]float64{{0, 0}, {1, 0}, {0, 1}})
	z.MaxLayer = intp(12)
	z.DzTarget = floatp(0.5)
	assert.Equal(t, "harbour max=12 dz=0.5", z.String())
}
