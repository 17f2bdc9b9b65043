// Package vgrid reads and writes SCHISM vgrid.in files for LSC2 grids.
//
// The ivcor=1 layout is
//
//	1 !ivcor
//	<nvrt> !nvrt
//	<id> <kbp> <sigma(kbp)> ... <sigma(nvrt)>     (one line per node)
//
// where node ids are 1-based, nvrt is the largest level count in the grid,
// and kbp = nvrt - nlevel + 1 is the 1-based index of the bed level. Each
// line runs from the bed (-1) up to the surface (0), the reverse of the
// in-memory [lsc2.SigmaField] order.
package vgrid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/lscgrid/pkg/lsc2"
)

// IVCor is the vertical coordinate type written and accepted.
const IVCor = 1

// ErrMalformed is returned for vgrid.in input that cannot be parsed.
var ErrMalformed = errors.New("vgrid: malformed file")

// Write writes f in vgrid.in format.
func Write(w io.Writer, f *lsc2.SigmaField) error {
	bw := bufio.NewWriter(w)
	nvrt := f.MaxLevel()
	fmt.Fprintf(bw, "%d !ivcor\n", IVCor)
	fmt.Fprintf(bw, "%d !nvrt\n", nvrt)

	for i := 0; i < f.NodeCount(); i++ {
		lv := f.Levels(i)
		fmt.Fprintf(bw, "%9d %4d", i+1, nvrt-len(lv)+1)
		for k := len(lv) - 1; k >= 0; k-- {
			bw.WriteString(" ")
			bw.WriteString(strconv.FormatFloat(lv[k], 'f', 6, 64))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes f to path, replacing any existing file.
func WriteFile(path string, f *lsc2.SigmaField) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(out, f)
}

// Read parses a vgrid.in file. Nodes must appear in id order starting at 1.
func Read(r io.Reader) (*lsc2.SigmaField, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			if f := strings.Fields(sc.Text()); len(f) > 0 {
				return f, true
			}
		}
		return nil, false
	}

	hdr, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if ivcor, err := strconv.Atoi(hdr[0]); err != nil || ivcor != IVCor {
		return nil, fmt.Errorf("%w: line %d: want ivcor %d, got %q", ErrMalformed, line, IVCor, hdr[0])
	}
	hdr, ok = next()
	if !ok {
		return nil, fmt.Errorf("%w: missing nvrt", ErrMalformed)
	}
	nvrt, err := strconv.Atoi(hdr[0])
	if err != nil || nvrt < 2 {
		return nil, fmt.Errorf("%w: line %d: bad nvrt %q", ErrMalformed, line, hdr[0])
	}

	var columns [][]float64
	for {
		f, ok := next()
		if !ok {
			break
		}
		if len(f) < 2 {
			return nil, fmt.Errorf("%w: line %d: want \"id kbp sigma...\"", ErrMalformed, line)
		}
		id, err1 := strconv.Atoi(f[0])
		kbp, err2 := strconv.Atoi(f[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: line %d: bad id or kbp", ErrMalformed, line)
		}
		if id != len(columns)+1 {
			return nil, fmt.Errorf("%w: line %d: node id %d out of order", ErrMalformed, line, id)
		}
		if kbp < 1 || kbp > nvrt-1 {
			return nil, fmt.Errorf("%w: line %d: kbp %d outside [1, %d]", ErrMalformed, line, kbp, nvrt-1)
		}
		nlevel := nvrt - kbp + 1
		if len(f) != 2+nlevel {
			return nil, fmt.Errorf("%w: line %d: want %d sigma values, got %d", ErrMalformed, line, nlevel, len(f)-2)
		}
		col := make([]float64, nlevel)
		for k := 0; k < nlevel; k++ {
			v, err := strconv.ParseFloat(f[2+k], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: sigma %q", ErrMalformed, line, f[2+k])
			}
			col[nlevel-1-k] = v
		}
		columns = append(columns, col)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformed)
	}

	nlevel := make([]int, len(columns))
	maxLevel := 0
	for i, c := range columns {
		nlevel[i] = len(c)
		maxLevel = max(maxLevel, len(c))
	}
	if maxLevel != nvrt {
		return nil, fmt.Errorf("%w: nvrt is %d but the deepest node has %d levels", ErrMalformed, nvrt, maxLevel)
	}

	field, err := lsc2.NewSigmaField(nlevel)
	if err != nil {
		return nil, err
	}
	for i, c := range columns {
		if err := field.SetLevels(i, c); err != nil {
			return nil, err
		}
	}
	return field, nil
}

// ReadFile reads a vgrid.in file from path.
func ReadFile(path string) (*lsc2.SigmaField, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	field, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return field, nil
}
