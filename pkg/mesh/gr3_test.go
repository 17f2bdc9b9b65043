package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareGR3 = `two triangles
2 4
1 0.0 0.0 10.0
2 1.0 0.0 12.5
3 1.0 1.0 1.5D+01
4 0.0 1.0 8.0
1 3 1 2 3
2 3 1 3 4
1 = Number of open boundaries
`

func TestReadGR3(t *testing.T) {
	m, err := ReadGR3(strings.NewReader(squareGR3))
	require.NoError(t, err)

	assert.Equal(t, 4, m.NodeCount())
	assert.Equal(t, 5, m.EdgeCount(), "shared diagonal counted once")
	assert.Equal(t, []float64{10, 12.5, 15, 8}, m.Depths())
	assert.Equal(t, []int{1, 2, 3}, m.Neighbors(0))
	assert.Equal(t, []int{0, 2}, m.Neighbors(3))
}

func TestReadGR3Quad(t *testing.T) {
	src := "quad\n1 4\n1 0 0 1\n2 1 0 1\n3 1 1 1\n4 0 1 1\n1 4 1 2 3 4\n"
	m, err := ReadGR3(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 4, m.EdgeCount())
	assert.Equal(t, []int{1, 3}, m.Neighbors(0))
}

func TestReadGR3Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"empty", "", ErrMalformed},
		{"bad header", "x\nfoo bar\n", ErrMalformed},
		{"truncated nodes", "x\n0 2\n1 0 0 1\n", ErrMalformed},
		{"short node", "x\n0 1\n1 0 0\n", ErrMalformed},
		{"bad depth", "x\n0 1\n1 0 0 deep\n", ErrMalformed},
		{"duplicate id", "x\n0 2\n1 0 0 1\n1 1 0 1\n", ErrMalformed},
		{"unknown vertex", "x\n1 2\n1 0 0 1\n2 1 0 1\n1 3 1 2 9\n", ErrBadEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGR3(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadGR3File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hgrid.gr3")
	require.NoError(t, os.WriteFile(p, []byte(squareGR3), 0o644))

	m, err := ReadGR3File(p)
	require.NoError(t, err)
	assert.Equal(t, 4, m.NodeCount())

	_, err = ReadGR3File(filepath.Join(t.TempDir(), "missing.gr3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
