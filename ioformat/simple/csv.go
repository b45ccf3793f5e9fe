package simple

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"courseassign/engine/model"
)

// courseRow is one row of the course-roster CSV: instructors and
// room-fit parameters are flattened into delimited string columns the
// way a spreadsheet-maintained catalogue would hold them.
type courseRow struct {
	Name          string `csv:"name"`
	NumMin        int    `csv:"num_min"`
	NumMax        int    `csv:"num_max"`
	InstructorIDs string `csv:"instructors"` // comma-separated participant indices
	Fixed         bool   `csv:"fixed"`
	RoomOffset    float64 `csv:"room_offset"`
	RoomFactor    float64 `csv:"room_factor"`
}

// choiceRow is one row of the participant choice-list CSV: one row per
// (participant, choice) pair, ordered by rank.
type choiceRow struct {
	ParticipantName string `csv:"participant"`
	Rank            int    `csv:"rank"`
	Course          int    `csv:"course"`
	Penalty         int    `csv:"penalty"`
}

// ReadCSV reads a course roster and a choice list, joining them into a
// Problem by participant name (participants are created in the order
// their name is first seen in the choice list).
func ReadCSV(coursesCSV, choicesCSV io.Reader) (*model.Problem, error) {
	var courseRows []*courseRow
	if err := gocsv.Unmarshal(coursesCSV, &courseRows); err != nil {
		return nil, fmt.Errorf("simple: unmarshal course CSV: %w", err)
	}
	var choiceRows []*choiceRow
	if err := gocsv.Unmarshal(choicesCSV, &choiceRows); err != nil {
		return nil, fmt.Errorf("simple: unmarshal choice CSV: %w", err)
	}

	problem := &model.Problem{Courses: make([]model.Course, len(courseRows))}
	for i, row := range courseRows {
		course := model.Course{
			Index:      i,
			Name:       row.Name,
			MinSize:    row.NumMin,
			MaxSize:    row.NumMax,
			Fixed:      row.Fixed,
			RoomOffset: row.RoomOffset,
			RoomFactor: row.RoomFactor,
		}
		if course.RoomFactor == 0 {
			course.RoomFactor = 1
		}
		for _, tok := range strings.Split(row.InstructorIDs, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			idx, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("simple: course %q: bad instructor index %q: %w", row.Name, tok, err)
			}
			course.Instructors = append(course.Instructors, idx)
		}
		problem.Courses[i] = course
	}

	nameIndex := map[string]int{}
	for _, row := range choiceRows {
		if _, ok := nameIndex[row.ParticipantName]; !ok {
			nameIndex[row.ParticipantName] = len(problem.Participants)
			problem.Participants = append(problem.Participants, model.Participant{
				Index: len(problem.Participants),
				Name:  row.ParticipantName,
			})
		}
		idx := nameIndex[row.ParticipantName]
		problem.Participants[idx].Choices = append(problem.Participants[idx].Choices, model.Choice{
			Course:  row.Course,
			Penalty: row.Penalty,
		})
	}

	if err := problem.Validate(); err != nil {
		return nil, fmt.Errorf("simple: %w", err)
	}
	return problem, nil
}

// WriteAssignmentCSV writes one row per participant: name and assigned
// course index, for sites consuming the result in a spreadsheet.
func WriteAssignmentCSV(w io.Writer, problem *model.Problem, assignment *model.Assignment) error {
	type row struct {
		Participant string `csv:"participant"`
		Course      int    `csv:"course"`
		CourseName  string `csv:"course_name"`
	}
	rows := make([]*row, len(problem.Participants))
	for i, p := range problem.Participants {
		c := assignment.CourseOf[i]
		name := ""
		if c >= 0 && c < len(problem.Courses) {
			name = problem.Courses[c].Name
		}
		rows[i] = &row{Participant: p.Name, Course: c, CourseName: name}
	}
	out, err := gocsv.MarshalString(rows)
	if err != nil {
		return fmt.Errorf("simple: marshal assignment CSV: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
