// Package rooms reads room lists (a room-kind JSON document, or the
// comma-separated list given to --rooms) and renders human-readable
// room/course size summaries.
package rooms

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"courseassign/engine/model"
)

// Kind is one entry of the room-kind list: a named room type available
// in some quantity, all sharing one capacity.
type Kind struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Quantity int    `json:"quantity"`
}

// Read decodes a list of room kinds into a flat, descending-sorted list
// of individual room capacities (a room kind with quantity 3 expands to
// three entries of the same capacity).
func Read(r io.Reader) ([]float64, error) {
	var kinds []Kind
	if err := json.NewDecoder(r).Decode(&kinds); err != nil {
		return nil, fmt.Errorf("rooms: decode: %w", err)
	}
	var sizes []float64
	for _, k := range kinds {
		if k.Quantity < 0 {
			return nil, fmt.Errorf("rooms: kind %q has negative quantity %d", k.Name, k.Quantity)
		}
		for i := 0; i < k.Quantity; i++ {
			sizes = append(sizes, float64(k.Capacity))
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	return sizes, nil
}

// ParseList parses the CLI's "--rooms n,n,..." flag value into a room
// list, in the same units as the room-kind JSON.
func ParseList(csv string) ([]float64, error) {
	var sizes []float64
	cur := 0.0
	haveDigit := false
	flush := func() error {
		if haveDigit {
			sizes = append(sizes, cur)
		}
		cur, haveDigit = 0, false
		return nil
	}
	// A tiny hand-written scanner is enough for a flat comma list of
	// non-negative integers; avoids pulling in a CSV reader for a
	// single CLI flag.
	for _, r := range csv {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + float64(r-'0')
			haveDigit = true
		case r == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		case r == ' ':
			continue
		default:
			return nil, fmt.Errorf("rooms: unexpected character %q in room list", r)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	return sizes, nil
}

// Summarize produces a human-readable per-course room-fit report for
// --print, listing each running course's attendee count alongside its
// effective size (the room capacity it needs); no room is named.
func Summarize(problem *model.Problem, assignment *model.Assignment) []string {
	var lines []string
	for _, c := range problem.Courses {
		if !assignment.Running[c.Index] {
			continue
		}
		attendees := 0
		for _, p := range assignment.CourseOf {
			if p == c.Index {
				attendees++
			}
		}
		size := c.RoomOffset + c.RoomFactor*float64(attendees)
		lines = append(lines, fmt.Sprintf("%s: %d attendees, effective size %.1f", c.Name, attendees, size))
	}
	return lines
}
