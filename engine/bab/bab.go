// Package bab implements a domain-agnostic, parallel best-first
// branch-and-bound search. Callers supply a subproblem type and two
// pure functions: Solve (attempt the relaxation at a node) and Branch
// (produce children from a non-closing result). The engine owns the
// shared priority queue, the incumbent, and worker scheduling.
package bab

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Kind classifies a single node's Solve outcome.
type Kind int

const (
	// Infeasible means the node's relaxation has no solution at all;
	// it closes with no children.
	Infeasible Kind = iota
	// Bound means no feasible solution was found at this node but lb
	// is a valid lower bound for the subtree; Branch is called.
	Bound
	// Feasible means a candidate solution was found; Branch is still
	// called, in case deeper nodes can do better.
	Feasible
	// FeasibleAndClosed means the candidate is optimal for this
	// subtree: no branching is attempted.
	FeasibleAndClosed
)

// NodeResult is what the caller's Solve function returns for one node.
type NodeResult[Solution any] struct {
	Kind     Kind
	Solution Solution
	Cost     int64 // objective (Feasible/FeasibleAndClosed) or lower bound (Bound)
}

// Solver is implemented by the caller to define one search.
type Solver[Subproblem, Solution any] interface {
	// Solve attempts the relaxation at s. Must be a pure function of
	// s; may be called concurrently from multiple goroutines on
	// different subproblems, never on the same one.
	Solve(ctx context.Context, s Subproblem) (NodeResult[Solution], error)
	// Branch produces child subproblems given the parent and its
	// NodeResult (Bound or Feasible, never Infeasible/FeasibleAndClosed).
	// Returning no children closes the node.
	Branch(s Subproblem, res NodeResult[Solution]) []Subproblem
	// Less orders two subproblems for the priority queue: it should
	// implement "a's bound is better than b's bound", with ties
	// broken deterministically (e.g. by depth, then insertion order)
	// so that exploration order does not leak into the result.
	Less(a, b Subproblem) bool
	// Bound reports s's own lower bound, inherited from the parent node
	// that produced it (e.g. the parent's NodeResult.Cost). Used to drop
	// stale queue entries at pop time, before paying for a Solve call,
	// once the incumbent has moved past what s could possibly beat.
	Bound(s Subproblem) int64
}

// Reason classifies why Run stopped.
type Reason int

const (
	Exhausted Reason = iota
	NodeLimit
	TimeLimit
	Cancelled
)

// Statistics mirrors the counters a production BaB run reports,
// generalizing the plain textual report of a sequential search into
// fields a caller can log or export.
type Statistics struct {
	NodesExecuted    int64
	NodesInfeasible  int64
	NodesFeasible    int64
	NodesBound       int64
	NodesNewIncumbent int64
	NodesPruned      int64
	TotalSolveTime   time.Duration
	WallClock        time.Duration
}

// Options configures one Run.
type Options struct {
	Workers   int // defaults to runtime.GOMAXPROCS(0) if <= 0
	NodeLimit int64
	TimeLimit time.Duration

	// InitialBound, if HasInitialBound is set, seeds the pruning
	// threshold with a cost a caller has independently verified is
	// achievable (e.g. from a heuristic warm start), without claiming
	// it as an actual Solution: only a node's own Solve result ever
	// populates Outcome.Solution, so a caller can never receive back an
	// answer it did not itself prove.
	InitialBound    int64
	HasInitialBound bool
}

// Outcome is the result of Run.
type Outcome[Solution any] struct {
	Solution *Solution
	Cost     int64
	Reason   Reason
	Stats    Statistics
	Err      error
}

// pqItem is one entry in the shared priority queue.
type pqItem[Subproblem any] struct {
	sub   Subproblem
	index int
}

type priorityQueue[Subproblem any] struct {
	items []*pqItem[Subproblem]
	less  func(a, b Subproblem) bool
}

func (pq *priorityQueue[S]) Len() int { return len(pq.items) }
func (pq *priorityQueue[S]) Less(i, j int) bool {
	return pq.less(pq.items[i].sub, pq.items[j].sub)
}
func (pq *priorityQueue[S]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}
func (pq *priorityQueue[S]) Push(x any) {
	item := x.(*pqItem[S])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}
func (pq *priorityQueue[S]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	pq.items = old[:n-1]
	return item
}

// shared holds everything accessed by more than one worker.
type shared[Subproblem, Solution any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    *priorityQueue[Subproblem]
	active   int64 // nodes queued or currently being solved
	done     bool
	solution *Solution
	cost     int64 // valid iff solution != nil || boundSet
	boundSet bool   // cost holds a caller-supplied bound, with no Solution behind it
	stats    Statistics
	firstErr error
}

// prunable reports whether a node or subtree with the given cost (a
// lower bound for Bound kind, an objective for Feasible/
// FeasibleAndClosed) can no longer improve on what Run already knows.
// A cost that only ties a caller-supplied, not-yet-proven bound
// (boundSet with solution == nil) is never prunable: discarding it
// could be the only remaining path to a proven solution at that cost,
// and Run must never report a bound it cannot back with a Solution.
// Caller holds sh.mu.
func (sh *shared[S, Solution]) prunable(cost int64) bool {
	if sh.solution != nil {
		return cost >= sh.cost
	}
	if sh.boundSet {
		return cost > sh.cost
	}
	return false
}

// Run executes the search to completion, to a node/time limit, or until
// ctx is cancelled, whichever comes first.
func Run[Subproblem, Solution any](ctx context.Context, solver Solver[Subproblem, Solution], root Subproblem, opts Options) Outcome[Solution] {
	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	sh := &shared[Subproblem, Solution]{
		queue: &priorityQueue[Subproblem]{less: solver.Less},
		cost:  -1,
	}
	if opts.HasInitialBound {
		sh.cost = opts.InitialBound
		sh.boundSet = true
	}
	sh.cond = sync.NewCond(&sh.mu)
	heap.Init(sh.queue)
	heap.Push(sh.queue, &pqItem[Subproblem]{sub: root})
	sh.active = 1

	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return runWorker(ctx, solver, sh, opts.NodeLimit)
		})
	}
	// Worker errors are already funneled into sh.firstErr under sh.mu so
	// every worker observes the same fault; g.Wait() just joins them.
	g.Wait()

	reason := Exhausted
	select {
	case <-ctx.Done():
		if opts.TimeLimit > 0 {
			reason = TimeLimit
		} else {
			reason = Cancelled
		}
	default:
		if opts.NodeLimit > 0 && sh.stats.NodesExecuted >= opts.NodeLimit {
			reason = NodeLimit
		}
	}

	sh.stats.WallClock = time.Since(start)

	out := Outcome[Solution]{Cost: sh.cost, Reason: reason, Stats: sh.stats, Err: sh.firstErr}
	if sh.solution != nil {
		out.Solution = sh.solution
	}
	return out
}

// runWorker pops nodes off the shared queue, solves them, and pushes
// children, until the queue and active-work counter are both zero, the
// context is cancelled, a fatal error occurs, or the node limit is hit.
func runWorker[Subproblem, Solution any](ctx context.Context, solver Solver[Subproblem, Solution], sh *shared[Subproblem, Solution], nodeLimit int64) error {
	for {
		sh.mu.Lock()
		for sh.queue.Len() == 0 && sh.active > 0 && !sh.done {
			sh.cond.Wait()
		}
		if sh.done || (sh.queue.Len() == 0 && sh.active == 0) {
			err := sh.firstErr
			sh.mu.Unlock()
			return err
		}
		if ctx.Err() != nil {
			sh.done = true
			sh.mu.Unlock()
			sh.cond.Broadcast()
			return nil
		}
		item := heap.Pop(sh.queue).(*pqItem[Subproblem])
		sub := item.sub

		// Lazily drop a stale queue entry whose own inherited bound can
		// no longer beat the incumbent, without paying for a Solve call.
		if sh.prunable(solver.Bound(sub)) {
			sh.stats.NodesPruned++
			sh.active--
			sh.mu.Unlock()
			sh.cond.Broadcast()
			continue
		}
		sh.mu.Unlock()

		solveStart := time.Now()
		res, err := solver.Solve(ctx, sub)
		elapsed := time.Since(solveStart)

		sh.mu.Lock()
		sh.stats.NodesExecuted++
		sh.stats.TotalSolveTime += elapsed
		if nodeLimit > 0 && sh.stats.NodesExecuted >= nodeLimit {
			sh.done = true
		}

		if err != nil {
			// A solver fault is fatal: abort the run with that error,
			// discarding further progress, per the documented failure
			// semantics (a single node's internal error is not
			// recoverable).
			if sh.firstErr == nil {
				sh.firstErr = err
			}
			sh.done = true
			sh.active--
			ferr := sh.firstErr
			sh.mu.Unlock()
			sh.cond.Broadcast()
			return ferr
		}

		switch res.Kind {
		case Infeasible:
			sh.stats.NodesInfeasible++
			sh.active--
			sh.mu.Unlock()
			sh.cond.Broadcast()

		case Feasible, FeasibleAndClosed:
			sh.stats.NodesFeasible++
			// A tying cost is accepted too whenever no proven solution
			// exists yet: sh.cost may only hold an unverified
			// warm-start bound (boundSet, solution == nil), and this
			// node just proved a real solution achieves it.
			improved := sh.solution == nil || res.Cost < sh.cost
			if improved {
				solCopy := res.Solution
				sh.solution = &solCopy
				sh.cost = res.Cost
				sh.stats.NodesNewIncumbent++
			}
			if res.Kind == FeasibleAndClosed {
				sh.active--
				sh.mu.Unlock()
				sh.cond.Broadcast()
				break
			}
			children := solver.Branch(sub, res)
			sh.enqueueChildren(children, solver.Bound)
			sh.active-- // this node itself is done
			sh.mu.Unlock()
			sh.cond.Broadcast()

		case Bound:
			sh.stats.NodesBound++
			if sh.prunable(res.Cost) {
				sh.stats.NodesPruned++
				sh.active--
				sh.mu.Unlock()
				sh.cond.Broadcast()
				break
			}
			children := solver.Branch(sub, res)
			sh.enqueueChildren(children, solver.Bound)
			sh.active--
			sh.mu.Unlock()
			sh.cond.Broadcast()
		}
	}
}

// enqueueChildren pushes children that are not already provably worse
// than the incumbent. Caller holds sh.mu.
func (sh *shared[Subproblem, Solution]) enqueueChildren(children []Subproblem, bound func(Subproblem) int64) {
	for _, c := range children {
		if sh.prunable(bound(c)) {
			sh.stats.NodesPruned++
			continue
		}
		heap.Push(sh.queue, &pqItem[Subproblem]{sub: c})
		sh.active++
	}
}
