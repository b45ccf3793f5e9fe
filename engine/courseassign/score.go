package courseassign

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"courseassign/engine/model"
)

// Quality summarizes how good a solution is relative to the best and
// worst theoretically possible outcomes for the same problem.
type Quality struct {
	Objective      int
	BestPossible   int
	WorstPossible  int
	QualityRatio   float64 // 1.0 = every chooser got their top choice, 0.0 = worst case
	MeanPenalty    float64
	MedianPenalty  float64
	P90Penalty     float64
}

// Score computes Quality for a finished assignment against problem.
func Score(problem *model.Problem, assignment *model.Assignment) Quality {
	instructorOf := problem.InstructorOf()
	var penalties []float64
	best, worst := 0, 0

	for _, p := range problem.Participants {
		if instructorOf[p.Index] != -1 {
			continue
		}
		if len(p.Choices) == 0 {
			best += problem.PenaltyMax
		} else {
			min := p.Choices[0].Penalty
			for _, ch := range p.Choices[1:] {
				if ch.Penalty < min {
					min = ch.Penalty
				}
			}
			best += min
		}
		worst += problem.PenaltyMax

		c := assignment.CourseOf[p.Index]
		penalty := problem.PenaltyMax
		if c != -1 {
			if pen, chosen := choicePenalty(&p, c); chosen {
				penalty = pen
			}
		}
		penalties = append(penalties, float64(penalty))
	}

	q := Quality{
		Objective:     assignment.Objective,
		BestPossible:  best,
		WorstPossible: worst,
	}
	if worst > best {
		q.QualityRatio = 1 - float64(assignment.Objective-best)/float64(worst-best)
	} else {
		q.QualityRatio = 1
	}

	if len(penalties) > 0 {
		sort.Float64s(penalties)
		q.MeanPenalty = stat.Mean(penalties, nil)
		q.MedianPenalty = stat.Quantile(0.5, stat.Empirical, penalties, nil)
		q.P90Penalty = stat.Quantile(0.9, stat.Empirical, penalties, nil)
	}
	return q
}
