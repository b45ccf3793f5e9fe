// Package courseassign specializes the generic branch-and-bound engine
// and the Hungarian solver to the course-assignment problem: deciding
// which courses run and which participants attend which course.
package courseassign

import (
	"courseassign/engine/hungarian"
	"courseassign/engine/model"
)

// Precomputed is the fixed-size matching skeleton built once per
// problem instance and reused, with varying per-node cost/mask arrays,
// across every branch-and-bound node.
type Precomputed struct {
	Problem *model.Problem

	N int // matrix dimension

	// Row classification, fixed for the whole search.
	RowParticipant []int  // participant index for row i, -1 if structural padding
	RowIsFree      []bool // true: dummy padding row or an instructor (of any course)

	// Column classification, fixed for the whole search.
	ColCourse  []int // course index for column j, -1 if structural padding
	ColSeatIdx []int // seat-slot index within its course's column block

	InstructorOf    []int // participant -> course, -1 if none
	InstructorCount []int // course -> number of instructors
}

// Precompute builds the fixed matching skeleton for problem. Call once
// per solve; reuse across all BaB nodes of that solve.
func Precompute(problem *model.Problem) *Precomputed {
	instrOf := problem.InstructorOf()
	instrCount := make([]int, len(problem.Courses))
	for _, c := range problem.Courses {
		instrCount[c.Index] = len(c.Instructors)
	}

	mTotal := 0
	for _, c := range problem.Courses {
		mTotal += c.MaxSize
	}
	pTotal := len(problem.Participants)
	n := mTotal
	if pTotal > n {
		n = pTotal
	}

	pc := &Precomputed{
		Problem:         problem,
		N:               n,
		RowParticipant:  make([]int, n),
		RowIsFree:       make([]bool, n),
		ColCourse:       make([]int, n),
		ColSeatIdx:      make([]int, n),
		InstructorOf:    instrOf,
		InstructorCount: instrCount,
	}

	for i := 0; i < n; i++ {
		if i < pTotal {
			pc.RowParticipant[i] = i
			pc.RowIsFree[i] = instrOf[i] != -1
		} else {
			pc.RowParticipant[i] = -1
			pc.RowIsFree[i] = true
		}
	}

	col := 0
	for _, c := range problem.Courses {
		for s := 0; s < c.MaxSize; s++ {
			pc.ColCourse[col] = c.Index
			pc.ColSeatIdx[col] = s
			col++
		}
	}
	for ; col < n; col++ {
		pc.ColCourse[col] = -1
		pc.ColSeatIdx[col] = 0
	}

	return pc
}

// effectiveMax returns the node-local maximum size of course c, after
// room-fitting shrink overrides, clamped to the course's real max.
func effectiveMax(node *BABNode, c *model.Course) int {
	if v, ok := node.MaxSizeOverride[c.Index]; ok && v < c.MaxSize {
		return v
	}
	return c.MaxSize
}

// cost returns the matrix entry for row i, column j under node, plus
// whether that column is a mandatory (must-be-filled-by-a-chooser) seat
// of a course being forced to run.
func (pc *Precomputed) cost(node *BABNode, i, j int) (c hungarian.Cost, mandatory bool) {
	inf := hungarian.Cost(pc.Problem.InfeasibleCost)
	penaltyMax := hungarian.Cost(pc.Problem.PenaltyMax)

	courseIdx := pc.ColCourse[j]

	if pc.RowIsFree[i] {
		if courseIdx == -1 {
			return 0, false
		}
		course := &pc.Problem.Courses[courseIdx]
		if node.EnforcedCancel[courseIdx] {
			// A seat of a cancelled course is worse than any real seat or
			// true padding for a free row (an instructor whose own course
			// got cancelled): it should only land there if no running
			// course has room, so it doesn't steal a low column index
			// from a seat that would actually seat them.
			return penaltyMax, false
		}
		if !node.EnforcedRun[courseIdx] {
			return 0, false
		}
		minusInstr := course.MinSize - pc.InstructorCount[courseIdx]
		if pc.ColSeatIdx[j] < minusInstr {
			// Mandatory seat of a forced-run course: a free row must
			// never satisfy it, so the matcher is driven to use a real
			// chooser whenever one exists.
			return inf, true
		}
		return 0, false
	}

	// Chooser row.
	p := pc.RowParticipant[i]
	if courseIdx == -1 {
		return inf, false
	}
	course := &pc.Problem.Courses[courseIdx]
	if node.EnforcedCancel[courseIdx] {
		return inf, false
	}
	maxSeats := effectiveMax(node, course) - pc.InstructorCount[courseIdx]
	if pc.ColSeatIdx[j] >= maxSeats {
		return inf, false
	}

	mandatorySeat := false
	if node.EnforcedRun[courseIdx] {
		minusInstr := course.MinSize - pc.InstructorCount[courseIdx]
		mandatorySeat = pc.ColSeatIdx[j] < minusInstr
	}

	penalty, chosen := choicePenalty(&pc.Problem.Participants[p], courseIdx)
	switch {
	case chosen:
		return hungarian.Cost(penalty), mandatorySeat
	case mandatorySeat:
		return inf, true
	default:
		return penaltyMax, false
	}
}

func choicePenalty(p *model.Participant, course int) (int, bool) {
	for _, ch := range p.Choices {
		if ch.Course == course {
			return ch.Penalty, true
		}
	}
	return 0, false
}

// BuildMatrix materializes the full N x N cost matrix and mandatory
// column mask for node. Called once per node solve; the returned slices
// are owned by the caller (not cached across nodes, since the masks
// depend on node state), matching the ownership rule that each worker's
// cost-matrix buffers belong to it for the duration of one evaluation.
func (pc *Precomputed) BuildMatrix(node *BABNode) (matrix [][]hungarian.Cost, mandatory, dummyRow []bool) {
	n := pc.N
	matrix = make([][]hungarian.Cost, n)
	mandatory = make([]bool, n)
	dummyRow = make([]bool, n)
	for i := 0; i < n; i++ {
		dummyRow[i] = pc.RowIsFree[i]
		row := make([]hungarian.Cost, n)
		for j := 0; j < n; j++ {
			cst, mand := pc.cost(node, i, j)
			row[j] = cst
			if mand {
				mandatory[j] = true
			}
		}
		matrix[i] = row
	}
	return matrix, mandatory, dummyRow
}
