package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loomworks/loom/internal/graph"
	"github.com/loomworks/loom/internal/types"
)

// Direction is the primary flow axis of the layout.
type Direction string

const (
	// DirectionTB lays layers out top-to-bottom.
	DirectionTB Direction = "TB"

	// DirectionLR lays layers out left-to-right.
	DirectionLR Direction = "LR"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionTB || d == DirectionLR
}

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection parses a direction string case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "TB":
		return DirectionTB, nil
	case "LR":
		return DirectionLR, nil
	default:
		return "", types.NewError(types.LAYOUT_BAD_DIRECTION, fmt.Sprintf("unknown direction %q", s))
	}
}

// Options tune the spacing and default node extents of the layout.
type Options struct {
	// Gap is the minimum cross-axis gap between nodes within a layer.
	Gap float64

	// LayerGap is the gap between consecutive layers along the flow axis.
	LayerGap float64

	// NodeWidth and NodeHeight are the extents assumed for nodes that do
	// not declare their own.
	NodeWidth  float64
	NodeHeight float64
}

// DefaultOptions returns the standard spacing used by the editor.
func DefaultOptions() Options {
	return Options{
		Gap:        48,
		LayerGap:   96,
		NodeWidth:  180,
		NodeHeight: 72,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Gap <= 0 {
		o.Gap = def.Gap
	}
	if o.LayerGap <= 0 {
		o.LayerGap = def.LayerGap
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = def.NodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = def.NodeHeight
	}
	return o
}

// Result is a computed layout.
type Result struct {
	// Positions maps every node ID to its assigned top-left position.
	Positions map[string]graph.Position

	// Layers maps every node ID to its layer index along the flow axis.
	Layers map[string]int

	// BackEdges lists the IDs of edges excluded from layering because
	// they close a cycle.
	BackEdges []string
}

// Compute assigns a position to every node of the workflow.
//
// Layering is longest-path: every edge points from an earlier layer to a
// later one, except back-edges, which are detected by a depth-first walk
// and excluded so that cycles never block layering or raise an error.
// Within a layer, nodes are ordered by the barycenter of their already
// placed predecessors (ties broken by node ID) and separated by the
// configured minimum gap. Output is reproducible for identical input.
func Compute(w *graph.Workflow, dir Direction, opts Options) (Result, error) {
	if w == nil {
		return Result{}, types.NewError(types.LAYOUT_NIL_WORKFLOW, "workflow is nil")
	}
	if !dir.IsValid() {
		return Result{}, types.NewError(types.LAYOUT_BAD_DIRECTION, fmt.Sprintf("unknown direction %q", dir))
	}
	opts = opts.normalized()

	res := Result{
		Positions: make(map[string]graph.Position, len(w.Nodes)),
		Layers:    make(map[string]int, len(w.Nodes)),
	}
	if len(w.Nodes) == 0 {
		return res, nil
	}

	ids := w.NodeIDs()
	back := markBackEdges(w, ids)

	// Forward adjacency and in-degrees, skipping back-edges and edges
	// with missing endpoints (layout is tolerant; the validator reports).
	forward := make(map[string][]string, len(ids))
	indegree := make(map[string]int, len(ids))
	for _, e := range w.Edges {
		if back[e.ID] {
			res.BackEdges = append(res.BackEdges, e.ID)
			continue
		}
		if _, ok := w.Nodes[e.Source]; !ok {
			continue
		}
		if _, ok := w.Nodes[e.Target]; !ok {
			continue
		}
		forward[e.Source] = append(forward[e.Source], e.Target)
		indegree[e.Target]++
	}

	// Longest-path layering over the forward DAG, processed in
	// topological order with a sorted frontier for stable output.
	layer := make(map[string]int, len(ids))
	frontier := make([]string, 0, len(ids))
	for _, id := range ids {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}
	for len(frontier) > 0 {
		sort.Strings(frontier)
		id := frontier[0]
		frontier = frontier[1:]
		for _, next := range forward[id] {
			if layer[id]+1 > layer[next] {
				layer[next] = layer[id] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				frontier = append(frontier, next)
			}
		}
	}
	maxLayer := 0
	for _, id := range ids {
		res.Layers[id] = layer[id]
		if layer[id] > maxLayer {
			maxLayer = layer[id]
		}
	}

	// Group by layer.
	byLayer := make([][]string, maxLayer+1)
	for _, id := range ids {
		byLayer[layer[id]] = append(byLayer[layer[id]], id)
	}

	// Predecessor lists over forward edges, for barycenter ordering.
	preds := make(map[string][]string, len(ids))
	for src, targets := range forward {
		for _, dst := range targets {
			preds[dst] = append(preds[dst], src)
		}
	}

	crossCenter := make(map[string]float64, len(ids))
	flowCursor := 0.0
	for _, members := range byLayer {
		ordered := orderLayer(members, preds, crossCenter)

		thickness := 0.0
		for _, id := range ordered {
			if ext := flowExtent(w.Nodes[id], dir, opts); ext > thickness {
				thickness = ext
			}
		}

		crossCursor := 0.0
		for _, id := range ordered {
			crossExt := crossExtent(w.Nodes[id], dir, opts)
			switch dir {
			case DirectionTB:
				res.Positions[id] = graph.Position{X: crossCursor, Y: flowCursor}
			case DirectionLR:
				res.Positions[id] = graph.Position{X: flowCursor, Y: crossCursor}
			}
			crossCenter[id] = crossCursor + crossExt/2
			crossCursor += crossExt + opts.Gap
		}

		flowCursor += thickness + opts.LayerGap
	}

	return res, nil
}

// Apply returns a new workflow snapshot with the computed positions set.
func Apply(w *graph.Workflow, res Result) *graph.Workflow {
	out := w.Clone()
	for id, pos := range res.Positions {
		if node, ok := out.Nodes[id]; ok {
			node.Position = pos
		}
	}
	return out
}

// nodeExtents returns the node's declared width and height, falling back
// to the option defaults for zero values.
func nodeExtents(n *graph.NodeRecord, opts Options) (float64, float64) {
	width, height := n.Width, n.Height
	if width <= 0 {
		width = opts.NodeWidth
	}
	if height <= 0 {
		height = opts.NodeHeight
	}
	return width, height
}

// flowExtent is the node's size along the flow axis.
func flowExtent(n *graph.NodeRecord, dir Direction, opts Options) float64 {
	width, height := nodeExtents(n, opts)
	if dir == DirectionLR {
		return width
	}
	return height
}

// crossExtent is the node's size across the flow axis.
func crossExtent(n *graph.NodeRecord, dir Direction, opts Options) float64 {
	width, height := nodeExtents(n, opts)
	if dir == DirectionLR {
		return height
	}
	return width
}

// markBackEdges walks the graph depth-first and flags edges whose target
// is still on the recursion stack. Roots begin at the workflow start so
// the entry node lands in the first layer, then cover remaining nodes in
// sorted order for disconnected components.
func markBackEdges(w *graph.Workflow, ids []string) map[string]bool {
	adj := make(map[string][]graph.EdgeRecord, len(ids))
	for _, e := range w.Edges {
		if _, ok := w.Nodes[e.Source]; !ok {
			continue
		}
		if _, ok := w.Nodes[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e)
	}

	back := make(map[string]bool)
	// Color map: 0 = white (unvisited), 1 = gray (on stack), 2 = black (done)
	color := make(map[string]int, len(ids))

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = 1
		for _, e := range adj[id] {
			switch color[e.Target] {
			case 0:
				dfs(e.Target)
			case 1:
				back[e.ID] = true
			}
		}
		color[id] = 2
	}

	if w.Start != "" {
		if _, ok := w.Nodes[w.Start]; ok {
			dfs(w.Start)
		}
	}
	for _, id := range ids {
		if color[id] == 0 {
			dfs(id)
		}
	}
	return back
}

// orderLayer sorts the members of one layer by the barycenter of their
// placed predecessors; nodes without placed predecessors keep their
// lexicographic position at the end of the layer.
func orderLayer(members []string, preds map[string][]string, crossCenter map[string]float64) []string {
	type keyed struct {
		id   string
		bary float64
		has  bool
	}
	keys := make([]keyed, 0, len(members))
	for _, id := range members {
		sum, count := 0.0, 0
		for _, p := range preds[id] {
			if c, ok := crossCenter[p]; ok {
				sum += c
				count++
			}
		}
		k := keyed{id: id}
		if count > 0 {
			k.bary = sum / float64(count)
			k.has = true
		}
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.has != b.has {
			return a.has
		}
		if a.has && a.bary != b.bary {
			return a.bary < b.bary
		}
		return a.id < b.id
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.id
	}
	return out
}
