package courseassign

import (
	"context"
	"fmt"
	"sync/atomic"

	"courseassign/engine/bab"
	"courseassign/engine/hungarian"
	"courseassign/engine/model"
)

type violationKind int

const (
	violationNone violationKind = iota
	violationMinSize
	violationRoom
)

// evalResult is the Solution type threaded through the generic bab
// engine: the interpreted assignment from one node's Hungarian solve,
// plus enough bookkeeping for Branch to decide what to do next without
// re-deriving it from scratch.
type evalResult struct {
	assignment *model.Assignment
	attendees  map[int]int
	kind       violationKind
	course     int
}

// solver wires Precomputed + room list into the generic bab.Solver
// interface.
type solver struct {
	pc  *Precomputed
	seq atomic.Int64
}

func newSolver(pc *Precomputed) *solver {
	return &solver{pc: pc}
}

func (s *solver) nextSeq() int64 {
	return s.seq.Add(1)
}

func (s *solver) Solve(ctx context.Context, node *BABNode) (bab.NodeResult[*evalResult], error) {
	// The mandatory-seat rule is already in the costs (a free row pays
	// InfeasibleCost on a mandatory seat), so an unfillable forced-run
	// course shows up as an objective >= InfeasibleCost below; passing the
	// masks as well would turn that routine infeasibility into a matcher
	// error.
	matrix, _, _ := s.pc.BuildMatrix(node)
	res, err := hungarian.Solve(matrix, nil, nil)
	if err != nil {
		return bab.NodeResult[*evalResult]{}, fmt.Errorf("courseassign: hungarian solve failed: %w", err)
	}

	problem := s.pc.Problem
	if res.Objective >= hungarian.Cost(problem.InfeasibleCost) {
		return bab.NodeResult[*evalResult]{Kind: bab.Infeasible}, nil
	}

	assignment, attendees, err := s.interpret(node, res)
	if err != nil {
		return bab.NodeResult[*evalResult]{}, err
	}

	ev := &evalResult{assignment: assignment, attendees: attendees, kind: violationNone}

	if violating, ok := s.findMinSizeViolation(node, attendees); ok {
		ev.kind = violationMinSize
		ev.course = violating
		return bab.NodeResult[*evalResult]{Kind: bab.Bound, Solution: ev, Cost: int64(assignment.Objective)}, nil
	}

	if len(problem.Rooms) > 0 {
		if ok, overflow := fitRooms(problem, node, attendees); !ok {
			ev.kind = violationRoom
			ev.course = overflow
			return bab.NodeResult[*evalResult]{Kind: bab.Bound, Solution: ev, Cost: int64(assignment.Objective)}, nil
		}
	}

	return bab.NodeResult[*evalResult]{Kind: bab.FeasibleAndClosed, Solution: ev, Cost: int64(assignment.Objective)}, nil
}

// interpret converts a Hungarian matching back into a course assignment
// and per-course attendee counts.
func (s *solver) interpret(node *BABNode, res hungarian.Result) (*model.Assignment, map[int]int, error) {
	problem := s.pc.Problem
	courseOf := make([]int, len(problem.Participants))
	for i := range courseOf {
		courseOf[i] = -1
	}
	attendees := make(map[int]int)
	running := make(map[int]bool)

	for _, c := range problem.Courses {
		if !node.EnforcedCancel[c.Index] {
			running[c.Index] = true
			attendees[c.Index] = s.pc.InstructorCount[c.Index]
		}
	}
	for p, c := range s.pc.InstructorOf {
		if c != -1 && running[c] {
			courseOf[p] = c
		}
	}

	for i := 0; i < s.pc.N; i++ {
		if s.pc.RowIsFree[i] {
			p := s.pc.RowParticipant[i]
			if p == -1 {
				continue // structural padding row, no participant behind it
			}
			if instrCourse := s.pc.InstructorOf[p]; instrCourse != -1 && running[instrCourse] {
				continue // pre-assigned to their own running course above
			}
			// An instructor whose own course is cancelled becomes an
			// ordinary free participant: wherever the matching placed
			// them, if it landed on a real running seat, they attend it
			// (at zero cost, per the free-row cost rule).
			j := res.RowToCol[i]
			if c := s.pc.ColCourse[j]; c != -1 && running[c] {
				courseOf[p] = c
				attendees[c]++
			}
			continue
		}
		p := s.pc.RowParticipant[i]
		j := res.RowToCol[i]
		c := s.pc.ColCourse[j]
		if c == -1 || !running[c] {
			return nil, nil, fmt.Errorf("courseassign: internal invariant violation: chooser participant %d matched to non-running/padding column", p)
		}
		courseOf[p] = c
		attendees[c]++
	}

	objective := 0
	for _, p := range problem.Participants {
		if s.pc.InstructorOf[p.Index] != -1 {
			continue
		}
		c := courseOf[p.Index]
		if c == -1 {
			continue
		}
		penalty, chosen := choicePenalty(&p, c)
		if chosen {
			objective += penalty
		} else {
			objective += problem.PenaltyMax
		}
	}

	return &model.Assignment{CourseOf: courseOf, Running: running, Objective: objective}, attendees, nil
}

// findMinSizeViolation returns the course to branch on (the course
// below its minimum with the fewest attendees, ties broken by smallest
// index), per the spec's branching tie-break rule.
func (s *solver) findMinSizeViolation(node *BABNode, attendees map[int]int) (int, bool) {
	best := -1
	bestCount := 0
	for _, c := range s.pc.Problem.Courses {
		if node.EnforcedCancel[c.Index] {
			continue
		}
		a := attendees[c.Index]
		if a < c.MinSize {
			if best == -1 || a < bestCount || (a == bestCount && c.Index < best) {
				best = c.Index
				bestCount = a
			}
		}
	}
	return best, best != -1
}

func (s *solver) Branch(node *BABNode, res bab.NodeResult[*evalResult]) []*BABNode {
	ev := res.Solution
	if ev == nil || ev.kind == violationNone {
		return nil
	}
	problem := s.pc.Problem

	switch ev.kind {
	case violationMinSize:
		c := ev.course
		var children []*BABNode
		if !problem.Courses[c].Fixed {
			cancel := node.clone()
			cancel.EnforcedCancel[c] = true
			cancel.Bound = res.Cost
			cancel.Seq = s.nextSeq()
			children = append(children, cancel)
		}
		run := node.clone()
		run.EnforcedRun[c] = true
		run.Bound = res.Cost
		run.Seq = s.nextSeq()
		children = append(children, run)
		return children

	case violationRoom:
		c := ev.course
		course := &problem.Courses[c]
		newMax := effectiveMax(node, course) - 1
		var children []*BABNode
		if newMax >= course.MinSize {
			shrink := node.clone()
			shrink.MaxSizeOverride[c] = newMax
			shrink.Bound = res.Cost
			shrink.Seq = s.nextSeq()
			children = append(children, shrink)
		}
		if !course.Fixed {
			cancel := node.clone()
			cancel.EnforcedCancel[c] = true
			cancel.Bound = res.Cost
			cancel.Seq = s.nextSeq()
			children = append(children, cancel)
		}
		return children
	}
	return nil
}

func (s *solver) Bound(n *BABNode) int64 {
	return n.Bound
}

func (s *solver) Less(a, b *BABNode) bool {
	if a.Bound != b.Bound {
		return a.Bound < b.Bound
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.Seq < b.Seq
}
