package graph

// DefaultCycleLimit caps how many simple cycles FindCycles enumerates.
// Dense cyclic graphs can hold exponentially many simple cycles; beyond
// the cap the report is flagged truncated instead of running forever.
const DefaultCycleLimit = 256

// CycleReport is the result of cycle enumeration.
type CycleReport struct {
	// Cycles holds each detected simple cycle as an ordered node-id
	// sequence that returns to its start, e.g. [A B C A].
	Cycles [][]string `json:"cycles"`

	// Truncated is true when enumeration stopped at the cycle limit.
	Truncated bool `json:"truncated"`
}

// HasCycles reports whether any cycle was found.
func (r CycleReport) HasCycles() bool {
	return len(r.Cycles) > 0
}

// FindCycles enumerates the simple cycles reachable through the given
// edges. A limit <= 0 selects DefaultCycleLimit.
//
// The search is a depth-first walk keeping an explicit recursion stack;
// every back-edge to a node still on the stack emits the stack sub-path
// from that node as one cycle. Roots are tried for every node in first
// appearance order of the edge list, so disconnected components are all
// covered, and adjacency preserves edge order, so output is stable for a
// fixed edge ordering.
func FindCycles(edges []EdgeRecord, limit int) CycleReport {
	if limit <= 0 {
		limit = DefaultCycleLimit
	}

	// Node order and adjacency follow the input edge ordering; no map
	// iteration feeds the walk, keeping the report deterministic.
	var order []string
	adj := make(map[string][]string)
	seen := make(map[string]bool)

	note := func(id string) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, e := range edges {
		note(e.Source)
		note(e.Target)
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	// Color map: 0 = white (unvisited), 1 = gray (on stack), 2 = black (done)
	color := make(map[string]int, len(order))
	stackIndex := make(map[string]int)
	var stack []string

	var report CycleReport

	var dfs func(nodeID string)
	dfs = func(nodeID string) {
		color[nodeID] = 1
		stackIndex[nodeID] = len(stack)
		stack = append(stack, nodeID)

		for _, neighbor := range adj[nodeID] {
			if report.Truncated {
				break
			}
			switch color[neighbor] {
			case 0:
				dfs(neighbor)
			case 1:
				// Back edge: the stack from neighbor to here is a cycle.
				if len(report.Cycles) >= limit {
					report.Truncated = true
					break
				}
				from := stackIndex[neighbor]
				cycle := make([]string, 0, len(stack)-from+1)
				cycle = append(cycle, stack[from:]...)
				cycle = append(cycle, neighbor)
				report.Cycles = append(report.Cycles, cycle)
			}
			// Black neighbors are already fully explored, skip.
		}

		stack = stack[:len(stack)-1]
		delete(stackIndex, nodeID)
		color[nodeID] = 2
	}

	for _, nodeID := range order {
		if report.Truncated {
			break
		}
		if color[nodeID] == 0 {
			dfs(nodeID)
		}
	}

	return report
}

// FindWorkflowCycles runs FindCycles over a workflow's edge list with the
// default limit.
func FindWorkflowCycles(w *Workflow) CycleReport {
	if w == nil {
		return CycleReport{}
	}
	return FindCycles(w.Edges, DefaultCycleLimit)
}
