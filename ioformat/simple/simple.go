// Package simple reads and writes the "simple format" problem/result
// JSON documents and an equivalent flat CSV representation.
package simple

import (
	"encoding/json"
	"fmt"
	"io"

	"courseassign/engine/model"
)

// courseJSON mirrors the simple-format course entry.
type courseJSON struct {
	Name                  string `json:"name"`
	NumMin                int    `json:"num_min"`
	NumMax                int    `json:"num_max"`
	Instructors           []int  `json:"instructors"`
	RoomOffset            *float64 `json:"room_offset,omitempty"`
	RoomFactor            *float64 `json:"room_factor,omitempty"`
	FixedCourse           bool   `json:"fixed_course,omitempty"`
	HiddenParticipantName bool   `json:"hidden_participant_names,omitempty"`
}

// choiceJSON accepts either a bare course index or {course, penalty}.
type choiceJSON struct {
	Course  int
	Penalty int
}

func (c *choiceJSON) UnmarshalJSON(data []byte) error {
	var bare int
	if err := json.Unmarshal(data, &bare); err == nil {
		c.Course = bare
		c.Penalty = 0
		return nil
	}
	var obj struct {
		Course  int `json:"course"`
		Penalty int `json:"penalty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("simple: choice is neither a bare index nor {course,penalty}: %w", err)
	}
	c.Course = obj.Course
	c.Penalty = obj.Penalty
	return nil
}

func (c choiceJSON) MarshalJSON() ([]byte, error) {
	if c.Penalty == 0 {
		return json.Marshal(c.Course)
	}
	return json.Marshal(struct {
		Course  int `json:"course"`
		Penalty int `json:"penalty"`
	}{c.Course, c.Penalty})
}

type participantJSON struct {
	Name    string       `json:"name"`
	Choices []choiceJSON `json:"choices"`
}

type documentJSON struct {
	Courses      []courseJSON      `json:"courses"`
	Participants []participantJSON `json:"participants"`
}

// resultJSON is the simple-format output document.
type resultJSON struct {
	Assignment []int `json:"assignment"`
}

// Read decodes a simple-format problem document from r.
func Read(r io.Reader) (*model.Problem, error) {
	var doc documentJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("simple: decode: %w", err)
	}

	problem := &model.Problem{
		Courses:      make([]model.Course, len(doc.Courses)),
		Participants: make([]model.Participant, len(doc.Participants)),
	}
	for i, c := range doc.Courses {
		course := model.Course{
			Index:       i,
			Name:        c.Name,
			MinSize:     c.NumMin,
			MaxSize:     c.NumMax,
			Instructors: c.Instructors,
			Fixed:       c.FixedCourse,
			RoomFactor:  1,
		}
		if c.RoomOffset != nil {
			course.RoomOffset = *c.RoomOffset
		}
		if c.RoomFactor != nil {
			course.RoomFactor = *c.RoomFactor
		}
		problem.Courses[i] = course
	}
	for i, p := range doc.Participants {
		choices := make([]model.Choice, len(p.Choices))
		for j, ch := range p.Choices {
			choices[j] = model.Choice{Course: ch.Course, Penalty: ch.Penalty}
		}
		problem.Participants[i] = model.Participant{Index: i, Name: p.Name, Choices: choices}
	}

	if err := problem.Validate(); err != nil {
		return nil, fmt.Errorf("simple: %w", err)
	}
	return problem, nil
}

// WriteResult encodes the simple-format assignment output.
func WriteResult(w io.Writer, assignment *model.Assignment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resultJSON{Assignment: assignment.CourseOf})
}

// WriteInput re-serializes problem in the simple input format.
func WriteInput(w io.Writer, problem *model.Problem) error {
	doc := documentJSON{
		Courses:      make([]courseJSON, len(problem.Courses)),
		Participants: make([]participantJSON, len(problem.Participants)),
	}
	for i, c := range problem.Courses {
		roomOffset, roomFactor := c.RoomOffset, c.RoomFactor
		doc.Courses[i] = courseJSON{
			Name:        c.Name,
			NumMin:      c.MinSize,
			NumMax:      c.MaxSize,
			Instructors: c.Instructors,
			RoomOffset:  &roomOffset,
			RoomFactor:  &roomFactor,
			FixedCourse: c.Fixed,
		}
	}
	for i, p := range problem.Participants {
		choices := make([]choiceJSON, len(p.Choices))
		for j, ch := range p.Choices {
			choices[j] = choiceJSON{Course: ch.Course, Penalty: ch.Penalty}
		}
		doc.Participants[i] = participantJSON{Name: p.Name, Choices: choices}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
