package bab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// subsetSumSolver searches for a subset of a fixed weight list with sum
// closest to (but not exceeding) a target, branching on
// include/exclude for each item in turn. A small, fully-enumerable toy
// problem used to check completeness and determinism, the same role the
// "round to nearest integer" toy problem plays for the engine this one
// is modeled on.
type subsetSumSolver struct {
	weights []int64
	target  int64
}

type subsetNode struct {
	idx      int // next item to decide
	sum      int64
	included []bool
}

func (s *subsetSumSolver) Solve(ctx context.Context, n subsetNode) (NodeResult[[]bool], error) {
	if n.sum > s.target {
		return NodeResult[[]bool]{Kind: Infeasible}, nil
	}
	if n.idx == len(s.weights) {
		return NodeResult[[]bool]{Kind: FeasibleAndClosed, Solution: append([]bool{}, n.included...), Cost: s.target - n.sum}, nil
	}
	// Lower bound: best case is we hit the target exactly from here on.
	return NodeResult[[]bool]{Kind: Bound, Cost: 0}, nil
}

func (s *subsetSumSolver) Branch(n subsetNode, res NodeResult[[]bool]) []subsetNode {
	if n.idx == len(s.weights) {
		return nil
	}
	withIt := subsetNode{idx: n.idx + 1, sum: n.sum + s.weights[n.idx], included: append(append([]bool{}, n.included...), true)}
	withoutIt := subsetNode{idx: n.idx + 1, sum: n.sum, included: append(append([]bool{}, n.included...), false)}
	return []subsetNode{withIt, withoutIt}
}

func (s *subsetSumSolver) Less(a, b subsetNode) bool {
	if a.idx != b.idx {
		return a.idx > b.idx // deeper nodes first: depth-first-ish priority
	}
	return a.sum > b.sum
}

// Bound mirrors the constant lower bound Solve always computes for a
// Bound-kind result: reaching target exactly is always still possible
// in principle, so every node's inherited bound is 0.
func (s *subsetSumSolver) Bound(n subsetNode) int64 {
	return 0
}

func TestBaBFindsOptimum(t *testing.T) {
	solver := &subsetSumSolver{weights: []int64{5, 3, 8, 2}, target: 10}
	out := Run[subsetNode, []bool](context.Background(), solver, subsetNode{}, Options{Workers: 4})
	require.Nil(t, out.Err)
	require.NotNil(t, out.Solution)
	require.EqualValues(t, 0, out.Cost) // 8+2 == 10 exactly
}

func TestBaBDeterministicAcrossWorkerCounts(t *testing.T) {
	solver := &subsetSumSolver{weights: []int64{5, 3, 8, 2, 7, 1}, target: 13}
	out1 := Run[subsetNode, []bool](context.Background(), solver, subsetNode{}, Options{Workers: 1})
	out4 := Run[subsetNode, []bool](context.Background(), solver, subsetNode{}, Options{Workers: 4})
	require.Equal(t, out1.Cost, out4.Cost)
}

func TestBaBNodeLimitStopsEarly(t *testing.T) {
	solver := &subsetSumSolver{weights: []int64{5, 3, 8, 2, 7, 1, 9, 4}, target: 17}
	out := Run[subsetNode, []bool](context.Background(), solver, subsetNode{}, Options{Workers: 2, NodeLimit: 1})
	require.Equal(t, NodeLimit, out.Reason)
}

func TestBaBCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	solver := &subsetSumSolver{weights: []int64{5, 3, 8, 2}, target: 10}
	out := Run[subsetNode, []bool](ctx, solver, subsetNode{}, Options{Workers: 2})
	require.Equal(t, Cancelled, out.Reason)
}
