// Package eventexport reads the partial event-export JSON format used
// by the upstream event-management database, flattens a single track
// into the engine's internal representation, and renders the result
// back as a patch object for re-import.
package eventexport

import (
	"encoding/json"
	"fmt"
	"io"

	"courseassign/engine/model"
)

// Export mirrors the subset of the upstream database export this
// module needs: events carry tracks, tracks carry courses, and
// registrations carry per-track course choices.
type Export struct {
	Event struct {
		Title  string               `json:"title"`
		Tracks map[string]TrackMeta `json:"tracks"`
	} `json:"event"`
	Courses        map[string]Course        `json:"courses"`
	Registrations  map[string]Registration  `json:"registrations"`
}

// TrackMeta names a track; the id used to pick it is the map key.
type TrackMeta struct {
	Title string `json:"title"`
}

// Course is one upstream course record, with per-track segment data.
type Course struct {
	Title       string                  `json:"title"`
	Segments    map[string]CourseTrack  `json:"segments"` // keyed by track id
	InstructorIDs []string              `json:"instructor_ids"`
	Cancelled   bool                    `json:"is_cancelled,omitempty"`
}

// CourseTrack is the per-track sizing/flags for one course.
type CourseTrack struct {
	MinSize    int     `json:"min_size"`
	MaxSize    int     `json:"max_size"`
	Fixed      bool    `json:"fixed,omitempty"`
	RoomOffset float64 `json:"room_offset,omitempty"`
	RoomFactor float64 `json:"room_factor,omitempty"`
}

// Registration is one participant's registration, with choices keyed
// by track id and an optional already-assigned marker used by
// --ignore-assigned (the cancelled marker for --ignore-cancelled is on
// Course).
type Registration struct {
	Name    string                  `json:"name"`
	Choices map[string][]ChoiceJSON `json:"choices"` // track id -> ordered choices
	Assigned map[string]string      `json:"assigned,omitempty"` // track id -> course id, if already fixed
}

// ChoiceJSON is one ranked course choice, course referenced by the
// upstream course id (map key into Export.Courses).
type ChoiceJSON struct {
	CourseID string `json:"course_id"`
	Penalty  int    `json:"penalty"`
}

// Read decodes a partial event-export document.
func Read(r io.Reader) (*Export, error) {
	var exp Export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, fmt.Errorf("eventexport: decode: %w", err)
	}
	return &exp, nil
}

// Flatten reduces exp to a single track's model.Problem. ignoreCancelled
// drops already-cancelled courses from the input entirely instead of
// letting the solver reconsider them; ignoreAssigned treats a
// participant's existing assignment for this track as a pinned
// instructor-style pre-assignment (the "bijection extension" the core
// treats pinning as).
func Flatten(exp *Export, trackID string, ignoreCancelled, ignoreAssigned bool) (*model.Problem, []string, error) {
	if _, ok := exp.Event.Tracks[trackID]; !ok {
		return nil, nil, fmt.Errorf("eventexport: track %q not found in export", trackID)
	}

	var courseIDs []string
	for id, c := range exp.Courses {
		if _, ok := c.Segments[trackID]; !ok {
			continue
		}
		if ignoreCancelled && c.Cancelled {
			continue
		}
		courseIDs = append(courseIDs, id)
	}
	// Deterministic ordering: the upstream export is a map, so fix a
	// stable order before assigning internal indices.
	sortStrings(courseIDs)

	courseIndex := make(map[string]int, len(courseIDs))
	problem := &model.Problem{Courses: make([]model.Course, len(courseIDs))}
	for i, id := range courseIDs {
		courseIndex[id] = i
		seg := exp.Courses[id].Segments[trackID]
		rf := seg.RoomFactor
		if rf == 0 {
			rf = 1
		}
		problem.Courses[i] = model.Course{
			Index:      i,
			Name:       exp.Courses[id].Title,
			MinSize:    seg.MinSize,
			MaxSize:    seg.MaxSize,
			Fixed:      seg.Fixed,
			RoomOffset: seg.RoomOffset,
			RoomFactor: rf,
		}
	}

	var regIDs []string
	for id := range exp.Registrations {
		regIDs = append(regIDs, id)
	}
	sortStrings(regIDs)

	extraInstructors := map[int][]int{} // course index -> participant indices pinned via --ignore-assigned
	problem.Participants = make([]model.Participant, len(regIDs))
	for i, id := range regIDs {
		reg := exp.Registrations[id]
		problem.Participants[i] = model.Participant{Index: i, Name: reg.Name}
		choices, ok := reg.Choices[trackID]
		if !ok {
			continue
		}
		for _, ch := range choices {
			ci, ok := courseIndex[ch.CourseID]
			if !ok {
				continue // chose a course outside this track's enabled set
			}
			problem.Participants[i].Choices = append(problem.Participants[i].Choices, model.Choice{Course: ci, Penalty: ch.Penalty})
		}
		if ignoreAssigned {
			if courseID, ok := reg.Assigned[trackID]; ok {
				if ci, ok := courseIndex[courseID]; ok {
					extraInstructors[ci] = append(extraInstructors[ci], i)
				}
			}
		}
	}

	for ci, pins := range extraInstructors {
		problem.Courses[ci].Instructors = append(problem.Courses[ci].Instructors, pins...)
	}
	// Course instructor lists from the export itself.
	for id, ci := range courseIndex {
		for _, instrID := range exp.Courses[id].InstructorIDs {
			if pi, ok := regIndexOf(regIDs, instrID); ok {
				problem.Courses[ci].Instructors = append(problem.Courses[ci].Instructors, pi)
			}
		}
	}

	if err := problem.Validate(); err != nil {
		return nil, nil, fmt.Errorf("eventexport: %w", err)
	}
	return problem, regIDs, nil
}

func regIndexOf(regIDs []string, id string) (int, bool) {
	for i, r := range regIDs {
		if r == id {
			return i, true
		}
	}
	return -1, false
}

func sortStrings(s []string) {
	// insertion sort is fine: course/registration counts are small
	// relative to the O(n^3) matching work dominating a solve.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Patch is the re-importable result document: per-registration course
// assignment for the solved track, in upstream course-id terms.
type Patch struct {
	TrackID      string            `json:"track_id"`
	Assignment   map[string]string `json:"assignment"` // registration id -> course id
	Objective    int               `json:"objective"`
}

// BuildPatch converts an internal assignment back into upstream ids.
func BuildPatch(trackID string, regIDs, courseIDsByIndex []string, assignment *model.Assignment) Patch {
	p := Patch{TrackID: trackID, Assignment: make(map[string]string, len(regIDs)), Objective: assignment.Objective}
	for i, regID := range regIDs {
		c := assignment.CourseOf[i]
		if c < 0 || c >= len(courseIDsByIndex) {
			continue
		}
		p.Assignment[regID] = courseIDsByIndex[c]
	}
	return p
}

// WritePatch encodes p as JSON.
func WritePatch(w io.Writer, p Patch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
