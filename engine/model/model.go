// Package model defines the problem instance and result types shared by
// the Hungarian solver, the branch-and-bound engine and the
// course-assignment specialization.
package model

import (
	"fmt"
	"sort"
)

// Choice is a participant's ranked preference for a course. Smaller
// Penalty means more preferred.
type Choice struct {
	Course  int
	Penalty int
}

// Participant is one event attendee.
type Participant struct {
	Index   int
	Name    string
	Choices []Choice
}

// Course is one offering of the track being solved.
type Course struct {
	Index       int
	Name        string
	MinSize     int
	MaxSize     int
	Instructors []int // participant indices
	Fixed       bool  // cannot be cancelled

	RoomOffset float64
	RoomFactor float64 // defaults to 1 if unset at load time
}

// Problem is the immutable input to a single solve.
type Problem struct {
	Courses      []Course
	Participants []Participant
	Rooms        []float64 // optional, sorted ascending after Validate

	// PenaltyMax and InfeasibleCost are derived magnitudes, computed by
	// Validate from the actual choice penalties rather than hard-coded
	// (spec's "Large cost sentinels" design note).
	PenaltyMax     int
	InfeasibleCost int
}

// InstructorOf maps participant index -> course index they instruct, or
// -1 if none. A participant instructs at most one course.
func (p *Problem) InstructorOf() []int {
	out := make([]int, len(p.Participants))
	for i := range out {
		out[i] = -1
	}
	for _, c := range p.Courses {
		for _, pi := range c.Instructors {
			out[pi] = c.Index
		}
	}
	return out
}

// Validate checks the load-time invariants from the data model and fills
// in derived fields (RoomFactor default, PenaltyMax, InfeasibleCost). It
// also deduplicates a participant's choice list: if the same course
// appears twice, only the first occurrence counts (an explicit resolution
// of an otherwise-unspecified case).
func (p *Problem) Validate() error {
	nc := len(p.Courses)
	np := len(p.Participants)

	for i := range p.Courses {
		if p.Courses[i].Index != i {
			return fmt.Errorf("course %d: Index field does not match position (%d)", i, p.Courses[i].Index)
		}
		if p.Courses[i].RoomFactor == 0 {
			p.Courses[i].RoomFactor = 1
		}
		if p.Courses[i].MinSize < 0 {
			return fmt.Errorf("course %d %q: negative min_size", i, p.Courses[i].Name)
		}
		if p.Courses[i].MaxSize < p.Courses[i].MinSize {
			return fmt.Errorf("course %d %q: max_size %d < min_size %d", i, p.Courses[i].Name, p.Courses[i].MaxSize, p.Courses[i].MinSize)
		}
	}

	instructedBy := map[int]int{} // participant -> course, to detect double-instructing
	for ci := range p.Courses {
		for _, pi := range p.Courses[ci].Instructors {
			if pi < 0 || pi >= np {
				return fmt.Errorf("course %d %q: instructor index %d out of range", ci, p.Courses[ci].Name, pi)
			}
			if prev, ok := instructedBy[pi]; ok && prev != ci {
				return fmt.Errorf("participant %d is an instructor of both course %d and course %d", pi, prev, ci)
			}
			instructedBy[pi] = ci
		}
		if p.Courses[ci].MinSize < len(p.Courses[ci].Instructors) {
			return fmt.Errorf("course %d %q: min_size %d is below its instructor count %d, can never run",
				ci, p.Courses[ci].Name, p.Courses[ci].MinSize, len(p.Courses[ci].Instructors))
		}
	}

	maxPenalty := 0
	for pi := range p.Participants {
		if p.Participants[pi].Index != pi {
			return fmt.Errorf("participant %d: Index field does not match position (%d)", pi, p.Participants[pi].Index)
		}
		seen := make(map[int]bool)
		deduped := make([]Choice, 0, len(p.Participants[pi].Choices))
		instructedCourse, isInstructor := instructedBy[pi]
		for _, ch := range p.Participants[pi].Choices {
			if ch.Course < 0 || ch.Course >= nc {
				return fmt.Errorf("participant %d %q: choice course index %d out of range", pi, p.Participants[pi].Name, ch.Course)
			}
			if ch.Penalty < 0 {
				return fmt.Errorf("participant %d %q: negative penalty for course %d", pi, p.Participants[pi].Name, ch.Course)
			}
			if seen[ch.Course] {
				continue // first occurrence wins
			}
			// An instructor's own course in their choice list is ignored
			// during matching (they never appear as a matching row).
			if isInstructor && ch.Course == instructedCourse {
				seen[ch.Course] = true
				continue
			}
			seen[ch.Course] = true
			deduped = append(deduped, ch)
			if ch.Penalty > maxPenalty {
				maxPenalty = ch.Penalty
			}
		}
		p.Participants[pi].Choices = deduped
	}

	// PENALTY_MAX must exceed any real penalty; INFEASIBLE_COST must
	// exceed PENALTY_MAX by enough that PENALTY_MAX*N can never look
	// infeasible, while COST_MAX*(N+1) stays well inside int64. N must
	// cover the matching's dimension, which is the larger of the total
	// seat count and the participant count.
	seats := 0
	for _, c := range p.Courses {
		seats += c.MaxSize
	}
	n := int64(max(seats, np) + nc + 1)
	p.PenaltyMax = maxPenalty*2 + int(n) + 1
	p.InfeasibleCost = p.PenaltyMax*int(n) + p.PenaltyMax + 1

	sort.Float64s(p.Rooms)
	return nil
}

// InstructorCount returns the number of instructors of course c.
func (p *Problem) InstructorCount(c int) int {
	return len(p.Courses[c].Instructors)
}

// Assignment is the result of a successful solve.
type Assignment struct {
	// CourseOf[p] is the course index participant p attends.
	CourseOf  []int
	Running   map[int]bool
	Objective int
}

// Reason classifies a non-Solution outcome.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInfeasible
	ReasonCancelled
	ReasonInternalError
)

func (r Reason) String() string {
	switch r {
	case ReasonInfeasible:
		return "infeasible"
	case ReasonCancelled:
		return "cancelled"
	case ReasonInternalError:
		return "internal_error"
	default:
		return "none"
	}
}

// Result is what a solve call returns: either a Solution with
// ReasonNone, or a Reason with optional error detail and no Solution.
// A search stopped early (cancellation, time or node limit) after it
// found a solution returns that best solution with ReasonNone; Cancelled
// is returned only when no solution was found before the stop.
type Result struct {
	Solution      *Assignment
	Reason        Reason
	Err           error
	NodesExplored int64
}
