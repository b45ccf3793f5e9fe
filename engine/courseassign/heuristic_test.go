package courseassign

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"courseassign/engine/model"
)

func TestWarmStartFindsFeasibleBoundWhenOneExists(t *testing.T) {
	problem := underSubscribedCoursesProblem()
	require.NoError(t, problem.Validate())
	pc := Precompute(problem)

	bound, ok := WarmStart(pc, DefaultHeuristicParams, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	require.GreaterOrEqual(t, bound, int64(0))

	result := mustSolve(t, underSubscribedCoursesProblem())
	require.NotNil(t, result.Solution)
	require.GreaterOrEqual(t, bound, int64(result.Solution.Objective))
}

func TestWarmStartDeclinesWhenFixedCourseCannotReachMinimum(t *testing.T) {
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
	require.NoError(t, problem.Validate())
	pc := Precompute(problem)

	_, ok := WarmStart(pc, DefaultHeuristicParams, rand.New(rand.NewSource(1)))
	require.False(t, ok)
}

func TestWarmStartDeclinesWithRooms(t *testing.T) {
	problem := &model.Problem{
		Courses: []model.Course{
			{Index: 0, Name: "A", MinSize: 1, MaxSize: 10},
		},
		Rooms: []float64{5},
		Participants: []model.Participant{
			{Index: 0, Name: "p0", Choices: []model.Choice{{Course: 0, Penalty: 0}}},
		},
	}
	require.NoError(t, problem.Validate())
	pc := Precompute(problem)

	_, ok := WarmStart(pc, DefaultHeuristicParams, rand.New(rand.NewSource(1)))
	require.False(t, ok)
}

func TestWarmStartNeverMovesInstructors(t *testing.T) {
	problem := underSubscribedCoursesProblem()
	require.NoError(t, problem.Validate())
	pc := Precompute(problem)

	hs := newHeuristicState(pc)
	require.Equal(t, 0, hs.courseOf[0])
	require.Equal(t, 1, hs.courseOf[1])

	require.True(t, hs.greedyFill(rand.New(rand.NewSource(7))))
	hs.hillClimb()
	require.Equal(t, 0, hs.courseOf[0])
	require.Equal(t, 1, hs.courseOf[1])
}
