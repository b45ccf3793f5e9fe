package courseassign

import (
	"math"
	"math/rand"

	"courseassign/engine/model"
)

// HeuristicParams tunes the warm-start local search below: a bounded
// number of restarts, each doing incremental-delta hill climbing to a
// local optimum, then escaping it with randomized perturbation, the
// same two-tier restart/perturb structure as the rest of the pack's
// simulated-annealing tuning tools use for their own local searches.
type HeuristicParams struct {
	Restarts   int
	PerturbMin int
	PerturbMax int
}

// DefaultHeuristicParams is tuned for a search budget small enough to
// run once per solve, ahead of the exact branch-and-bound search it
// seeds.
var DefaultHeuristicParams = HeuristicParams{
	Restarts:   6,
	PerturbMin: 1,
	PerturbMax: 4,
}

// heuristicState is the mutable working set for one restart of the warm
// start search: which course each chooser currently attends (-1 if
// unplaced), and which courses are currently treated as running.
type heuristicState struct {
	pc        *Precomputed
	problem   *model.Problem
	courseOf  []int
	running   []bool
	attendees []int
}

// WarmStart searches for a feasible full assignment cheaply, to seed
// the exact search's incumbent bound so early workers have something
// to prune against before the first branch-and-bound node closes. It
// never claims a bound it has not actually verified against every
// invariant the real solver enforces (minimum size, room fit, every
// participant placed): an unverifiable guess would risk pruning away
// the true optimum rather than merely costing some wasted search.
//
// Room-fitting is a hard per-problem decision the exact search makes by
// branching, which this search does not reproduce; if the problem has
// rooms, WarmStart declines rather than risk an infeasible bound.
func WarmStart(pc *Precomputed, params HeuristicParams, rng *rand.Rand) (cost int64, ok bool) {
	problem := pc.Problem
	if len(problem.Rooms) > 0 {
		return 0, false
	}

	best := int64(math.MaxInt64)
	foundAny := false

	for attempt := 0; attempt < max(params.Restarts, 1); attempt++ {
		hs := newHeuristicState(pc)
		if !hs.greedyFill(rng) {
			continue
		}
		if !hs.stabilizeCancellations() {
			continue
		}
		hs.hillClimb()
		if !hs.stabilizeCancellations() {
			continue
		}
		if c, ok := hs.score(); ok {
			foundAny = true
			best = min(best, c)
		}

		// Perturb the converged assignment and re-climb a few times per
		// restart to escape its local optimum, the same
		// perturb-then-reclimb shape the rest of the pack's local
		// search tuning tools use.
		for round := 0; round < 3; round++ {
			hs.perturb(rng, params)
			if !hs.refillFreed() {
				break
			}
			hs.hillClimb()
			if !hs.stabilizeCancellations() {
				break
			}
			c, ok := hs.score()
			if !ok {
				break
			}
			foundAny = true
			best = min(best, c)
		}
	}

	if !foundAny {
		return 0, false
	}
	return best, true
}

func newHeuristicState(pc *Precomputed) *heuristicState {
	problem := pc.Problem
	hs := &heuristicState{
		pc:        pc,
		problem:   problem,
		courseOf:  make([]int, len(problem.Participants)),
		running:   make([]bool, len(problem.Courses)),
		attendees: make([]int, len(problem.Courses)),
	}
	for i := range hs.courseOf {
		hs.courseOf[i] = -1
	}
	instrOf := pc.InstructorOf
	for c := range hs.running {
		hs.running[c] = true
	}
	for p, c := range instrOf {
		if c != -1 {
			hs.courseOf[p] = c
			hs.attendees[c]++
		}
	}
	return hs
}

// capacity returns a course's total seat count, comparable directly
// against hs.attendees[c], which is seeded with the course's instructor
// count and then incremented per participant placed (so it already
// counts instructors, not just choosers).
func (hs *heuristicState) capacity(c int) int {
	return hs.problem.Courses[c].MaxSize
}

// greedyFill places every chooser into the lowest-penalty running
// course that still has room, falling back to any running course with
// room, in a randomized participant order so restarts diversify.
func (hs *heuristicState) greedyFill(rng *rand.Rand) bool {
	order := rng.Perm(len(hs.problem.Participants))
	for _, p := range order {
		if hs.pc.InstructorOf[p] != -1 {
			continue // pre-placed with their own course above
		}
		part := &hs.problem.Participants[p]
		placed := false
		bestPenalty := math.MaxInt
		bestCourse := -1
		for _, ch := range part.Choices {
			if !hs.running[ch.Course] {
				continue
			}
			if hs.attendees[ch.Course] >= hs.capacity(ch.Course) {
				continue
			}
			if ch.Penalty < bestPenalty {
				bestPenalty = ch.Penalty
				bestCourse = ch.Course
			}
		}
		if bestCourse != -1 {
			hs.courseOf[p] = bestCourse
			hs.attendees[bestCourse]++
			placed = true
		} else {
			for c := 0; c < len(hs.problem.Courses); c++ {
				if hs.running[c] && hs.attendees[c] < hs.capacity(c) {
					hs.courseOf[p] = c
					hs.attendees[c]++
					placed = true
					break
				}
			}
		}
		if !placed {
			return false
		}
	}
	return true
}

// stabilizeCancellations cancels any non-fixed running course under its
// minimum size, freeing its participants, and re-fills them into the
// remaining running courses, repeating until stable. It reports false
// as soon as a fixed course is below its minimum (fixed courses are
// never cancelled, matching the branching rule, and this step does not
// move participants into them), or if the freed participants cannot
// all be re-placed.
func (hs *heuristicState) stabilizeCancellations() bool {
	for iter := 0; iter < len(hs.problem.Courses)+1; iter++ {
		changed := false
		for c := range hs.problem.Courses {
			course := &hs.problem.Courses[c]
			if !hs.running[c] || hs.attendees[c] >= course.MinSize {
				continue
			}
			if course.Fixed {
				return false
			}
			hs.cancelCourse(c)
			changed = true
		}
		if !changed {
			return hs.refillFreed()
		}
	}
	return false
}

func (hs *heuristicState) cancelCourse(c int) {
	hs.running[c] = false
	hs.attendees[c] = 0
	for p := range hs.courseOf {
		if hs.courseOf[p] == c {
			hs.courseOf[p] = -1
		}
	}
}

// refillFreed places every currently-unplaced participant (including
// instructors of a just-cancelled course) into a running course with
// room, preferring their best remaining choice.
func (hs *heuristicState) refillFreed() bool {
	for p := range hs.courseOf {
		if hs.courseOf[p] != -1 {
			continue
		}
		part := &hs.problem.Participants[p]
		bestPenalty := math.MaxInt
		bestCourse := -1
		for _, ch := range part.Choices {
			if !hs.running[ch.Course] || hs.attendees[ch.Course] >= hs.capacity(ch.Course) {
				continue
			}
			if ch.Penalty < bestPenalty {
				bestPenalty = ch.Penalty
				bestCourse = ch.Course
			}
		}
		if bestCourse == -1 {
			for c := range hs.problem.Courses {
				if hs.running[c] && hs.attendees[c] < hs.capacity(c) {
					bestCourse = c
					break
				}
			}
		}
		if bestCourse == -1 {
			return false
		}
		hs.courseOf[p] = bestCourse
		hs.attendees[bestCourse]++
	}
	return true
}

// hillClimb repeatedly relocates a single chooser to a strictly
// cheaper running course with room, until no such move remains. It
// never moves an instructor off their own course.
func (hs *heuristicState) hillClimb() {
	for {
		improved := false
		for p := range hs.problem.Participants {
			if hs.pc.InstructorOf[p] != -1 {
				continue
			}
			cur := hs.courseOf[p]
			curPenalty := hs.penaltyFor(p, cur)
			for c := range hs.problem.Courses {
				if c == cur || !hs.running[c] || hs.attendees[c] >= hs.capacity(c) {
					continue
				}
				if hs.penaltyFor(p, c) < curPenalty {
					if cur != -1 {
						hs.attendees[cur]--
					}
					hs.courseOf[p] = c
					hs.attendees[c]++
					improved = true
					break
				}
			}
		}
		if !improved {
			return
		}
	}
}

func (hs *heuristicState) penaltyFor(p, c int) int {
	if c == -1 {
		return hs.problem.PenaltyMax
	}
	penalty, chosen := choicePenalty(&hs.problem.Participants[p], c)
	if chosen {
		return penalty
	}
	return hs.problem.PenaltyMax
}

// perturb knocks a handful of choosers out of their current course so
// the same restart can re-fill and re-climb from a different point, the same
// restart-then-perturb shape as the rest of the pack's local search
// tuning tools use to escape a hill climb's local optimum.
func (hs *heuristicState) perturb(rng *rand.Rand, params HeuristicParams) {
	choosers := make([]int, 0, len(hs.problem.Participants))
	for p := range hs.problem.Participants {
		if hs.pc.InstructorOf[p] == -1 {
			choosers = append(choosers, p)
		}
	}
	if len(choosers) == 0 {
		return
	}
	n := params.PerturbMin + rng.Intn(max(params.PerturbMax-params.PerturbMin+1, 1))
	n = min(n, len(choosers))
	perm := rng.Perm(len(choosers))
	for _, idx := range perm[:n] {
		p := choosers[idx]
		if c := hs.courseOf[p]; c != -1 {
			hs.attendees[c]--
			hs.courseOf[p] = -1
		}
	}
}

// score reports the total objective of the current assignment, exactly
// as the exact search's interpret step would compute it, provided
// every participant ended up placed in a running course.
func (hs *heuristicState) score() (int64, bool) {
	total := 0
	for p := range hs.problem.Participants {
		if hs.pc.InstructorOf[p] != -1 {
			continue
		}
		c := hs.courseOf[p]
		if c == -1 {
			return 0, false
		}
		total += hs.penaltyFor(p, c)
	}
	return int64(total), true
}
