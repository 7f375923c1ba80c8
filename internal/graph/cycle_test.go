package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeList(pairs ...[2]string) []EdgeRecord {
	edges := make([]EdgeRecord, 0, len(pairs))
	for _, p := range pairs {
		edges = append(edges, NewEdge(p[0], HandleDefault, p[1]))
	}
	return edges
}

func TestFindCycles_SimpleCycle(t *testing.T) {
	edges := edgeList([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})

	report := FindCycles(edges, 0)

	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, report.Cycles[0])
	assert.False(t, report.Truncated)
	assert.True(t, report.HasCycles())
}

func TestFindCycles_Acyclic(t *testing.T) {
	edges := edgeList([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"A", "C"})

	report := FindCycles(edges, 0)

	assert.Empty(t, report.Cycles)
	assert.False(t, report.Truncated)
	assert.False(t, report.HasCycles())
}

func TestFindCycles_DisjointComponents(t *testing.T) {
	// An acyclic chain plus a separate two-node cycle: the cycle must be
	// found even though it is unreachable from the first root.
	edges := edgeList(
		[2]string{"A", "B"},
		[2]string{"B", "C"},
		[2]string{"X", "Y"},
		[2]string{"Y", "X"},
	)

	report := FindCycles(edges, 0)

	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"X", "Y", "X"}, report.Cycles[0])
}

func TestFindCycles_TwoDisjointCycles(t *testing.T) {
	edges := edgeList(
		[2]string{"A", "B"},
		[2]string{"B", "A"},
		[2]string{"X", "Y"},
		[2]string{"Y", "X"},
	)

	report := FindCycles(edges, 0)

	require.Len(t, report.Cycles, 2)
	assert.Equal(t, []string{"A", "B", "A"}, report.Cycles[0])
	assert.Equal(t, []string{"X", "Y", "X"}, report.Cycles[1])
}

func TestFindCycles_SelfLoop(t *testing.T) {
	edges := edgeList([2]string{"poll", "poll"})

	report := FindCycles(edges, 0)

	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"poll", "poll"}, report.Cycles[0])
}

func TestFindCycles_OverlappingCycles(t *testing.T) {
	// Two cycles sharing node A, reached through different back-edges.
	edges := edgeList(
		[2]string{"A", "B"},
		[2]string{"B", "A"},
		[2]string{"B", "C"},
		[2]string{"C", "A"},
	)

	report := FindCycles(edges, 0)

	require.Len(t, report.Cycles, 2)
	assert.Equal(t, []string{"A", "B", "A"}, report.Cycles[0])
	assert.Equal(t, []string{"A", "B", "C", "A"}, report.Cycles[1])
}

func TestFindCycles_Truncation(t *testing.T) {
	// A hub node with many two-node cycles around it.
	var edges []EdgeRecord
	for i := 0; i < 10; i++ {
		spoke := fmt.Sprintf("n%02d", i)
		edges = append(edges, NewEdge("hub", HandleDefault, spoke))
		edges = append(edges, NewEdge(spoke, HandleDefault, "hub"))
	}

	report := FindCycles(edges, 3)

	assert.Len(t, report.Cycles, 3)
	assert.True(t, report.Truncated)
}

func TestFindCycles_Deterministic(t *testing.T) {
	edges := edgeList(
		[2]string{"A", "B"},
		[2]string{"B", "C"},
		[2]string{"C", "A"},
		[2]string{"C", "D"},
		[2]string{"D", "B"},
	)

	first := FindCycles(edges, 0)
	for i := 0; i < 20; i++ {
		again := FindCycles(edges, 0)
		require.Equal(t, first, again, "cycle report must be stable for a fixed edge ordering")
	}
}

func TestFindWorkflowCycles(t *testing.T) {
	w, err := NewWorkflow("loop-flow").
		AddEvalNode("poll", "ctx.ready").
		AddCommandNode("work", "make", "build").
		ConnectHandle("poll", HandleTrue, "work").
		ConnectHandle("poll", HandleFalse, "poll").
		Start("poll").
		Build()
	require.NoError(t, err)

	report := FindWorkflowCycles(w)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"poll", "poll"}, report.Cycles[0])

	assert.False(t, FindWorkflowCycles(nil).HasCycles())
}
