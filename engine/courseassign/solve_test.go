package courseassign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"courseassign/engine/model"
)

func mustSolve(t *testing.T, problem *model.Problem) model.Result {
	t.Helper()
	require.NoError(t, problem.Validate())
	return Solve(context.Background(), problem, Options{Workers: 2})
}

func TestSolveBothCoursesRunNoContention(t *testing.T) {
	problem := &model.Problem{
		Courses: []model.Course{
			{Index: 0, Name: "A", MinSize: 1, MaxSize: 3, Instructors: []int{0}},
			{Index: 1, Name: "B", MinSize: 1, MaxSize: 2, Instructors: []int{1}},
		},
		Participants: []model.Participant{
			{Index: 0, Name: "instr-a"},
			{Index: 1, Name: "instr-b"},
			{Index: 2, Name: "p2", Choices: []model.Choice{{Course: 0, Penalty: 0}}},
			{Index: 3, Name: "p3", Choices: []model.Choice{{Course: 0, Penalty: 0}}},
		},
	}
	result := mustSolve(t, problem)
	require.Equal(t, model.ReasonNone, result.Reason)
	require.NotNil(t, result.Solution)
	require.Equal(t, 0, result.Solution.Objective)
	require.Equal(t, 0, result.Solution.CourseOf[2])
	require.Equal(t, 0, result.Solution.CourseOf[3])
	require.True(t, result.Solution.Running[0])
	require.True(t, result.Solution.Running[1])
}

func underSubscribedCoursesProblem() *model.Problem {
	return &model.Problem{
		Courses: []model.Course{
			{Index: 0, Name: "A", MinSize: 5, MaxSize: 10, Instructors: []int{0}},
			{Index: 1, Name: "B", MinSize: 2, MaxSize: 8, Instructors: []int{1}},
		},
		Participants: []model.Participant{
			{Index: 0, Name: "instr-a"},
			{Index: 1, Name: "instr-b"},
			{Index: 2, Name: "p2", Choices: []model.Choice{{Course: 1, Penalty: 0}, {Course: 0, Penalty: 1}}},
			{Index: 3, Name: "p3", Choices: []model.Choice{{Course: 1, Penalty: 0}, {Course: 0, Penalty: 1}}},
			{Index: 4, Name: "p4", Choices: []model.Choice{{Course: 1, Penalty: 0}, {Course: 0, Penalty: 1}}},
			{Index: 5, Name: "p5", Choices: []model.Choice{{Course: 1, Penalty: 0}, {Course: 0, Penalty: 1}}},
		},
	}
}

func TestSolveCancelsUnderSubscribedCourse(t *testing.T) {
	problem := underSubscribedCoursesProblem()
	result := mustSolve(t, problem)
	require.Equal(t, model.ReasonNone, result.Reason)
	require.NotNil(t, result.Solution)
	require.Equal(t, 0, result.Solution.Objective)
	require.False(t, result.Solution.Running[0])
	require.True(t, result.Solution.Running[1])
	for _, p := range []int{2, 3, 4, 5} {
		require.Equal(t, 1, result.Solution.CourseOf[p])
	}
}

func TestSolveFixedCourseForcesWorseObjective(t *testing.T) {
	problem := underSubscribedCoursesProblem()
	problem.Courses[0].Fixed = true
	result := mustSolve(t, problem)
	require.Equal(t, model.ReasonNone, result.Reason)
	require.NotNil(t, result.Solution)
	require.True(t, result.Solution.Running[0])
	require.Greater(t, result.Solution.Objective, 0)

	baseline := mustSolve(t, underSubscribedCoursesProblem())
	require.Less(t, baseline.Solution.Objective, result.Solution.Objective)
}

func TestSolveReportsInfeasibleWhenMinCannotBeMet(t *testing.T) {
	problem := &model.Problem{
		Courses: []model.Course{
			{Index: 0, Name: "A", MinSize: 10, MaxSize: 20, Instructors: []int{0}, Fixed: true},
		},
		Participants: []model.Participant{
			{Index: 0, Name: "instr-a"},
			{Index: 1, Name: "p1", Choices: []model.Choice{{Course: 0, Penalty: 0}}},
			{Index: 2, Name: "p2", Choices: []model.Choice{{Course: 0, Penalty: 0}}},
		},
	}
	result := mustSolve(t, problem)
	require.Equal(t, model.ReasonInfeasible, result.Reason)
	require.Nil(t, result.Solution)
}

func TestSolveShrinksCoursesToFitRooms(t *testing.T) {
	problem := &model.Problem{
		Courses: []model.Course{
			{Index: 0, Name: "A", MinSize: 3, MaxSize: 10},
			{Index: 1, Name: "B", MinSize: 3, MaxSize: 10},
		},
		Rooms: []float64{5, 5},
	}
	for i := 0; i < 6; i++ {
		problem.Participants = append(problem.Participants, model.Participant{
			Index: i, Name: "a" + string(rune('0'+i)),
			Choices: []model.Choice{{Course: 0, Penalty: 0}},
		})
	}
	for i := 6; i < 10; i++ {
		problem.Participants = append(problem.Participants, model.Participant{
			Index: i, Name: "b" + string(rune('0'+i-6)),
			Choices: []model.Choice{{Course: 1, Penalty: 0}},
		})
	}

	result := mustSolve(t, problem)
	require.Equal(t, model.ReasonNone, result.Reason)
	require.NotNil(t, result.Solution)

	counts := map[int]int{}
	for _, c := range result.Solution.CourseOf {
		if c != -1 {
			counts[c]++
		}
	}
	for course, n := range counts {
		require.LessOrEqual(t, float64(n), 5.0+roomEpsilon, "course %d overflowed its room", course)
	}
	require.Greater(t, result.Solution.Objective, 0, "shrinking should displace some participants from their first choice")
}

func TestSolveAssignmentIsPermutationAndRespectsBounds(t *testing.T) {
	problem := underSubscribedCoursesProblem()
	result := mustSolve(t, problem)
	require.NotNil(t, result.Solution)

	for _, p := range problem.Participants {
		require.NotEqual(t, -1, result.Solution.CourseOf[p.Index], "participant %d left unassigned", p.Index)
	}

	attendees := map[int]int{}
	for _, c := range result.Solution.CourseOf {
		attendees[c]++
	}
	for _, c := range problem.Courses {
		if !result.Solution.Running[c.Index] {
			require.Equal(t, 0, attendees[c.Index])
			continue
		}
		a := attendees[c.Index]
		require.GreaterOrEqual(t, a, c.MinSize)
		require.LessOrEqual(t, a, c.MaxSize)
	}
}
