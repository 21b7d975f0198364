package docs

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	nodeWidth  = 140
	nodeHeight = 40
	gapMain    = 50
	gapCross   = 30
	padding    = 16
)

var (
	reGraphHeader = regexp.MustCompile(`^(?:graph|flowchart)\s*(TD|TB|BT|LR|RL)?\s*$`)
	reArrow       = regexp.MustCompile(`\s*(?:-->|---|-\.->|==>)\s*(?:\|([^|]*)\|)?\s*`)
	reGraphNode   = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*(?:\[([^\]]*)\]|\{([^}]*)\}|\(\(?([^)]*)\)?\))?$`)
)

type graphNode struct {
	id    string
	label string
	layer int
	slot  int
}

type graphEdge struct {
	from, to string
	label    string
}

type graph struct {
	horizontal bool
	nodes      []*graphNode
	byID       map[string]*graphNode
	edges      []graphEdge
}

// parseGraph reads the flowchart subset of the mermaid syntax. Other
// diagram kinds return nil.
func parseGraph(src string) *graph {
	lines := strings.Split(strings.TrimSpace(src), "\n")
	m := reGraphHeader.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil {
		return nil
	}
	g := &graph{horizontal: m[1] == "LR" || m[1] == "RL", byID: make(map[string]*graphNode)}

	node := func(tok string) *graphNode {
		nm := reGraphNode.FindStringSubmatch(strings.TrimSpace(tok))
		if nm == nil {
			return nil
		}
		label := nm[2] + nm[3] + nm[4]
		n, ok := g.byID[nm[1]]
		if !ok {
			n = &graphNode{id: nm[1], label: nm[1]}
			g.byID[n.id] = n
			g.nodes = append(g.nodes, n)
		}
		if label != "" {
			n.label = label
		}
		return n
	}

	for _, line := range lines[1:] {
		line = strings.TrimSuffix(strings.TrimSpace(line), ";")
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		arrows := reArrow.FindAllStringSubmatchIndex(line, -1)
		var prev *graphNode
		start := 0
		label := ""
		for _, a := range append(arrows, []int{len(line), len(line), -1, -1}) {
			n := node(line[start:a[0]])
			if n != nil && prev != nil {
				g.edges = append(g.edges, graphEdge{from: prev.id, to: n.id, label: label})
			}
			prev = n
			start = a[1]
			label = ""
			if a[2] >= 0 {
				label = strings.TrimSpace(line[a[2]:a[3]])
			}
		}
	}
	g.layout()
	return g
}

// layout places every node on the layer after its deepest predecessor.
func (g *graph) layout() {
	for range g.nodes {
		changed := false
		for _, e := range g.edges {
			from, to := g.byID[e.from], g.byID[e.to]
			if from != to && to.layer < from.layer+1 && from.layer+1 < len(g.nodes) {
				to.layer = from.layer + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	slots := make(map[int]int)
	for _, n := range g.nodes {
		n.slot = slots[n.layer]
		slots[n.layer]++
	}
}

func (g *graph) position(n *graphNode) (x, y int) {
	main := padding + n.layer*(g.mainSize()+gapMain)
	cross := padding + n.slot*(g.crossSize()+gapCross)
	if g.horizontal {
		return main, cross
	}
	return cross, main
}

func (g *graph) mainSize() int {
	if g.horizontal {
		return nodeWidth
	}
	return nodeHeight
}

func (g *graph) crossSize() int {
	if g.horizontal {
		return nodeHeight
	}
	return nodeWidth
}

func (g *graph) size() (w, h int) {
	for _, n := range g.nodes {
		x, y := g.position(n)
		w = max(w, x+nodeWidth+padding)
		h = max(h, y+nodeHeight+padding)
	}
	return max(w, 2*padding), max(h, 2*padding)
}

// renderDiagram emits a mermaid block: the drawn SVG plus its zoom controls.
func renderDiagram(id, src string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="mermaid" id="%s" tabindex="0">`, id)

	g := parseGraph(src)
	if g == nil || len(g.nodes) == 0 {
		lines := strings.Split(strings.TrimSpace(src), "\n")
		h := 2*padding + 20*len(lines)
		fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 480 %d" width="480" height="%d" role="img"><g class="mermaid-viewport">`, h, h)
		for i, l := range lines {
			fmt.Fprintf(&b, `<text x="%d" y="%d">%s</text>`, padding, padding+14+20*i, html.EscapeString(strings.TrimSpace(l)))
		}
		b.WriteString(`</g></svg>`)
	} else {
		w, h := g.size()
		fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-roledescription="flowchart">`, w, h, w, h)
		fmt.Fprintf(&b, `<defs><marker id="%s-arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto"><path d="M0,0 L10,5 L0,10 z"/></marker></defs>`, id)
		b.WriteString(`<g class="mermaid-viewport">`)
		for _, e := range g.edges {
			x1, y1, x2, y2 := g.anchors(g.byID[e.from], g.byID[e.to])
			fmt.Fprintf(&b, `<line class="edge" x1="%d" y1="%d" x2="%d" y2="%d" marker-end="url(#%s-arrow)"/>`, x1, y1, x2, y2, id)
			if e.label != "" {
				fmt.Fprintf(&b, `<text class="edge-label" x="%d" y="%d" text-anchor="middle">%s</text>`, (x1+x2)/2, (y1+y2)/2, html.EscapeString(e.label))
			}
		}
		for _, n := range g.nodes {
			x, y := g.position(n)
			fmt.Fprintf(&b, `<g class="node" data-id="%s"><rect x="%d" y="%d" width="%d" height="%d" rx="4"/>`, html.EscapeString(n.id), x, y, nodeWidth, nodeHeight)
			fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" dominant-baseline="middle">%s</text></g>`, x+nodeWidth/2, y+nodeHeight/2, html.EscapeString(n.label))
		}
		b.WriteString(`</g></svg>`)
	}

	b.WriteString(`<div class="mermaid-zoom-menu-controls" role="toolbar">`)
	for _, a := range [][2]string{{"zoomin", "+"}, {"zoomout", "−"}, {"reset", "⟲"}} {
		fmt.Fprintf(&b, `<div class="mermaid-zoom-menu-button" data-action="%s" role="button" tabindex="0">%s</div>`, a[0], a[1])
	}
	b.WriteString("</div></div>\n")
	return b.String()
}

// anchors returns the edge endpoints on the facing sides of two boxes.
func (g *graph) anchors(from, to *graphNode) (x1, y1, x2, y2 int) {
	fx, fy := g.position(from)
	tx, ty := g.position(to)
	if g.horizontal {
		return fx + nodeWidth, fy + nodeHeight/2, tx, ty + nodeHeight/2
	}
	return fx + nodeWidth/2, fy + nodeHeight, tx + nodeWidth/2, ty
}
