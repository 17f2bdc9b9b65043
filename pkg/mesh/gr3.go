package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadGR3File reads an hgrid.gr3 mesh from path.
func ReadGR3File(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadGR3(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadGR3 parses the SCHISM hgrid.gr3 format:
//
//	<description>
//	<ne> <np>
//	<id> <x> <y> <depth>          (np lines)
//	<id> <nv> <n1> ... <nnv>      (ne lines, 1-based node ids)
//
// Anything after the element table (open and land boundaries) is ignored.
// Node ids need not be contiguous; elements refer to them by id.
func ReadGR3(r io.Reader) (*Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	next := func() ([]string, error) {
		for sc.Scan() {
			line++
			if f := strings.Fields(sc.Text()); len(f) > 0 {
				return f, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unexpected end of input after line %d", ErrMalformed, line)
	}

	// description line may be blank
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	line++

	hdr, err := next()
	if err != nil {
		return nil, err
	}
	if len(hdr) < 2 {
		return nil, fmt.Errorf("%w: line %d: want \"ne np\"", ErrMalformed, line)
	}
	ne, err1 := strconv.Atoi(hdr[0])
	np, err2 := strconv.Atoi(hdr[1])
	if err1 != nil || err2 != nil || ne < 0 || np <= 0 {
		return nil, fmt.Errorf("%w: line %d: bad counts %q", ErrMalformed, line, strings.Join(hdr[:2], " "))
	}

	x := make([]float64, np)
	y := make([]float64, np)
	h := make([]float64, np)
	index := make(map[int]int, np)

	for i := 0; i < np; i++ {
		f, err := next()
		if err != nil {
			return nil, err
		}
		if len(f) < 4 {
			return nil, fmt.Errorf("%w: line %d: node record needs 4 fields", ErrMalformed, line)
		}
		id, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: node id %q", ErrMalformed, line, f[0])
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate node id %d", ErrMalformed, line, id)
		}
		index[id] = i
		for k, dst := range []*float64{&x[i], &y[i], &h[i]} {
			v, err := parseFloat(f[k+1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			*dst = v
		}
	}

	edges := make([]Edge, 0, 3*ne)
	for e := 0; e < ne; e++ {
		f, err := next()
		if err != nil {
			return nil, err
		}
		if len(f) < 2 {
			return nil, fmt.Errorf("%w: line %d: element record too short", ErrMalformed, line)
		}
		nv, err := strconv.Atoi(f[1])
		if err != nil || nv < 2 || len(f) < 2+nv {
			return nil, fmt.Errorf("%w: line %d: bad element vertex count", ErrMalformed, line)
		}
		verts := make([]int, nv)
		for k := 0; k < nv; k++ {
			id, err := strconv.Atoi(f[2+k])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: vertex %q", ErrMalformed, line, f[2+k])
			}
			idx, ok := index[id]
			if !ok {
				return nil, fmt.Errorf("%w: line %d: element references node %d", ErrBadEdge, line, id)
			}
			verts[k] = idx
		}
		for k := 0; k < nv; k++ {
			edges = append(edges, Edge{verts[k], verts[(k+1)%nv]})
		}
	}

	return New(x, y, h, edges)
}

// parseFloat accepts Fortran-style exponents ("1.5D+02") as well as Go syntax.
func parseFloat(s string) (float64, error) {
	if strings.ContainsAny(s, "dD") {
		s = strings.NewReplacer("d", "e", "D", "e").Replace(s)
	}
	return strconv.ParseFloat(s, 64)
}
