package courseassign

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"courseassign/engine/bab"
	"courseassign/engine/model"
)

// Options configures one Solve call.
type Options struct {
	Workers          int
	NodeLimit        int64
	TimeLimit        time.Duration
	ReportInfeasible bool
	Logger           *slog.Logger

	// SkipWarmStart disables the local-search warm start that otherwise
	// seeds the branch-and-bound incumbent bound before the exact
	// search begins.
	SkipWarmStart bool
}

// Solve runs the branch-and-bound search over problem and returns the
// proven-optimal assignment, or a first-class Infeasible/Cancelled/
// InternalError result. If the search stops early on cancellation or a
// time or node limit after finding a solution, the best solution found
// so far is returned with ReasonNone; it is not proven optimal.
func Solve(ctx context.Context, problem *model.Problem, opts Options) model.Result {
	runID := uuid.New()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID.String())
	logger.Info("solve starting", "courses", len(problem.Courses), "participants", len(problem.Participants))

	pc := Precompute(problem)
	sv := newSolver(pc)

	babOpts := bab.Options{
		Workers:   opts.Workers,
		NodeLimit: opts.NodeLimit,
		TimeLimit: opts.TimeLimit,
	}
	if !opts.SkipWarmStart {
		seed, _ := runID.MarshalBinary()
		var s int64
		for i, b := range seed {
			s |= int64(b) << uint(8*(i%8))
		}
		rng := rand.New(rand.NewSource(s))
		if bound, ok := WarmStart(pc, DefaultHeuristicParams, rng); ok {
			babOpts.InitialBound = bound
			babOpts.HasInitialBound = true
			logger.Info("warm start found incumbent bound", "bound", bound)
		}
	}

	outcome := bab.Run[*BABNode, *evalResult](ctx, sv, newRootNode(), babOpts)

	logger.Info("solve finished",
		"reason", outcome.Reason,
		"nodes_executed", outcome.Stats.NodesExecuted,
		"wallclock", outcome.Stats.WallClock)

	if outcome.Err != nil {
		return model.Result{Reason: model.ReasonInternalError, Err: outcome.Err, NodesExplored: outcome.Stats.NodesExecuted}
	}

	if outcome.Solution == nil {
		reason := model.ReasonInfeasible
		switch outcome.Reason {
		case bab.Cancelled:
			reason = model.ReasonCancelled
		case bab.TimeLimit, bab.NodeLimit:
			reason = model.ReasonCancelled
		}
		return model.Result{Reason: reason, NodesExplored: outcome.Stats.NodesExecuted}
	}

	ev := *outcome.Solution
	return model.Result{
		Solution:      ev.assignment,
		Reason:        model.ReasonNone,
		NodesExplored: outcome.Stats.NodesExecuted,
	}
}
