package courseassign

import (
	"math"
	"sort"

	"courseassign/engine/model"
)

const roomEpsilon = 1e-9

// effectiveSize returns the room-fitting size of course c given its
// current attendee count (instructors + assigned choosers).
func effectiveSize(c *model.Course, attendees int) float64 {
	return c.RoomOffset + c.RoomFactor*float64(attendees)
}

// fitRooms attempts a greedy largest-first pairing of running courses
// against the available room list. It returns true if every running
// course fits a distinct room; otherwise it returns the index of the
// smallest (by effective size) course that failed to fit, per the rule
// "pick the smallest course that failed to fit" used to choose the next
// branching target.
func fitRooms(problem *model.Problem, node *BABNode, attendees map[int]int) (ok bool, overflowCourse int) {
	type sized struct {
		course int
		size   float64
	}
	var running []sized
	for _, c := range problem.Courses {
		if node.EnforcedCancel[c.Index] {
			continue
		}
		running = append(running, sized{course: c.Index, size: effectiveSize(&c, attendees[c.Index])})
	}
	sort.Slice(running, func(i, j int) bool { return running[i].size > running[j].size })

	rooms := make([]float64, len(problem.Rooms))
	copy(rooms, problem.Rooms)
	sort.Sort(sort.Reverse(sort.Float64Slice(rooms)))

	overflowCourse = -1
	overflowSize := math.Inf(1)
	for i, c := range running {
		fits := i < len(rooms) && c.size <= rooms[i]+roomEpsilon
		if !fits && c.size < overflowSize {
			overflowSize = c.size
			overflowCourse = c.course
		}
	}
	return overflowCourse == -1, overflowCourse
}
