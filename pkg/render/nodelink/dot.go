package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/mesh"
)

// Options configures mismatch diagram rendering.
type Options struct {
	// MismatchOnly drops eligible edges whose endpoints already agree.
	MismatchOnly bool

	// Width is the diagram extent in inches along the longer mesh axis.
	// Zero means 20.
	Width float64
}

// Edge colours by penalty class.
const (
	colorMatched      = "grey70"
	colorConsistent   = "darkorange"
	colorInconsistent = "red3"
)

// ToDOT converts the eligible edges of p to an undirected Graphviz graph
// pinned at the mesh coordinates. Nodes are labelled with their index and
// layer count; edges with their penalty under nlayer. The result can be
// rendered with [RenderSVG].
func ToDOT(m *mesh.Mesh, p *tabu.Problem, nlayer []int, opts Options) string {
	edges := p.EligibleEdges()
	pens := p.EdgePenalties(nlayer)

	keep := make([]int, 0, len(edges))
	used := make(map[int]bool)
	for k, e := range edges {
		if opts.MismatchOnly && pens[k] == 0 {
			continue
		}
		keep = append(keep, k)
		used[e[0]], used[e[1]] = true, true
	}

	scale := layoutScale(m, opts.Width)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=10, width=0.3, fixedsize=true];\n")
	buf.WriteString("  edge [fontsize=9];\n")
	buf.WriteString("\n")

	for i := 0; i < m.NodeCount(); i++ {
		if !used[i] {
			continue
		}
		fmt.Fprintf(&buf, "  n%d [label=\"%d\\n%d\", pos=\"%.3f,%.3f!\"];\n",
			i, i, nlayer[i], m.X(i)*scale.k-scale.x0, m.Y(i)*scale.k-scale.y0)
	}

	buf.WriteString("\n")
	for _, k := range keep {
		e := edges[k]
		attrs := []string{fmt.Sprintf("color=%s", edgeColor(nlayer[e[0]]-nlayer[e[1]], pens[k]))}
		if pens[k] > 0 {
			attrs = append(attrs, fmt.Sprintf("label=%q", strconv.FormatFloat(pens[k], 'g', -1, 64)), "penwidth=2")
		}
		fmt.Fprintf(&buf, "  n%d -- n%d [%s];\n", e[0], e[1], strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

type scaling struct{ k, x0, y0 float64 }

// layoutScale maps the mesh bounding box to width inches, origin at the
// lower left corner.
func layoutScale(m *mesh.Mesh, width float64) scaling {
	if width <= 0 {
		width = 20
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < m.NodeCount(); i++ {
		minX, maxX = math.Min(minX, m.X(i)), math.Max(maxX, m.X(i))
		minY, maxY = math.Min(minY, m.Y(i)), math.Max(maxY, m.Y(i))
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 || math.IsInf(span, 0) {
		return scaling{k: 1}
	}
	k := width / span
	return scaling{k: k, x0: minX * k, y0: minY * k}
}

func edgeColor(layerDiff int, pen float64) string {
	switch {
	case pen == 0:
		return colorMatched
	case pen == 2*math.Abs(float64(layerDiff)):
		return colorInconsistent
	default:
		return colorConsistent
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz svg header with one whose
// viewBox starts at the origin, so the output scales cleanly in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
