// Command courseassign solves a single-track course-assignment problem
// and writes the optimal participant/course assignment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/template"

	"courseassign/engine/courseassign"
	"courseassign/engine/model"
	"courseassign/internal/config"
	"courseassign/internal/obs"
	"courseassign/ioformat/eventexport"
	"courseassign/ioformat/rooms"
	"courseassign/ioformat/simple"
)

const (
	exitOK             = 0
	exitInfeasible     = 1
	exitUsageError     = 2
	exitInternalError  = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("courseassign", flag.ContinueOnError)
	print_ := fs.Bool("print", false, "print a human-readable summary to stderr instead of just writing the result")
	cde := fs.Bool("cde", false, "input/output are partial event-export JSON rather than the simple format")
	track := fs.String("track", "", "track id to solve, required with --cde")
	roomList := fs.String("rooms", "", "comma-separated room capacities, e.g. \"30,30,15\"")
	ignoreCancelled := fs.Bool("ignore-cancelled", false, "drop already-cancelled courses instead of letting the solver reconsider them")
	ignoreAssigned := fs.Bool("ignore-assigned", false, "pin participants already assigned for this track instead of re-solving their placement")
	roomFactorField := fs.String("room-factor-field", "", "unused placeholder for upstream per-field room-factor overrides")
	roomOffsetField := fs.String("room-offset-field", "", "unused placeholder for upstream per-field room-offset overrides")
	reportNoSolution := fs.Bool("report-no-solution", false, "exit 0 without writing a result instead of exit 1 when infeasible")
	workers := fs.Int("workers", 0, "worker goroutines, 0 = GOMAXPROCS")
	nodeLimit := fs.Int64("node-limit", 0, "stop after this many branch-and-bound nodes, 0 = unlimited")
	timeLimit := fs.Duration("time-limit", 0, "stop after this wall-clock duration, 0 = unlimited")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	_ = roomFactorField
	_ = roomOffsetField

	positional := fs.Args()
	if len(positional) < 1 {
		fmt.Fprintln(os.Stderr, "usage: courseassign [flags] <input> [output]")
		return exitUsageError
	}
	inputPath := positional[0]
	outputPath := ""
	if len(positional) > 1 {
		outputPath = positional[1]
	}
	if *cde && *track == "" {
		fmt.Fprintln(os.Stderr, "--track is required with --cde")
		return exitUsageError
	}

	logger := obs.New()
	engineOpts := config.EngineFromEnv()
	if *workers > 0 {
		engineOpts.Workers = *workers
	}
	if *nodeLimit > 0 {
		engineOpts.NodeLimit = *nodeLimit
	}
	if *timeLimit > 0 {
		engineOpts.TimeLimit = *timeLimit
	}

	inFile, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening input: %v\n", err)
		return exitUsageError
	}
	defer inFile.Close()

	var problem *model.Problem
	var regIDs, courseIDs []string
	var eventTitle string
	if *cde {
		exp, err := eventexport.Read(inFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading event export: %v\n", err)
			return exitUsageError
		}
		eventTitle = exp.Event.Title
		problem, regIDs, err = eventexport.Flatten(exp, *track, *ignoreCancelled, *ignoreAssigned)
		if err != nil {
			fmt.Fprintf(os.Stderr, "flattening event export: %v\n", err)
			return exitUsageError
		}
		courseIDs = sortedCourseIDs(exp, *track, *ignoreCancelled)
	} else {
		problem, err = simple.Read(inFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading input: %v\n", err)
			return exitUsageError
		}
	}

	if *roomList != "" {
		sizes, err := rooms.ParseList(*roomList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parsing --rooms: %v\n", err)
			return exitUsageError
		}
		problem.Rooms = sizes
		if err := problem.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "validating problem with rooms: %v\n", err)
			return exitUsageError
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := courseassign.Solve(ctx, problem, courseassign.Options{
		Workers:   engineOpts.Workers,
		NodeLimit: engineOpts.NodeLimit,
		TimeLimit: engineOpts.TimeLimit,
		Logger:    logger,
	})

	if dsn := config.EventExportDSN(); dsn != "" && *cde {
		recordRun(ctx, dsn, eventTitle, *track, problem, result, regIDs, courseIDs, logger)
	}

	switch result.Reason {
	case model.ReasonInternalError:
		fmt.Fprintf(os.Stderr, "internal error: %v\n", result.Err)
		return exitInternalError
	case model.ReasonInfeasible, model.ReasonCancelled:
		if !*reportNoSolution {
			fmt.Fprintln(os.Stderr, "no feasible assignment found")
			return exitInfeasible
		}
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating output: %v\n", err)
			return exitInternalError
		}
		defer f.Close()
		out = f
	}

	if result.Solution != nil {
		if *cde {
			patch := eventexport.BuildPatch(*track, regIDs, courseIDs, result.Solution)
			if err := eventexport.WritePatch(out, patch); err != nil {
				fmt.Fprintf(os.Stderr, "writing patch: %v\n", err)
				return exitInternalError
			}
		} else if err := simple.WriteResult(out, result.Solution); err != nil {
			fmt.Fprintf(os.Stderr, "writing result: %v\n", err)
			return exitInternalError
		}
	}

	if *print_ {
		printSummary(problem, result)
	}

	return exitOK
}

var summaryTemplate = template.Must(template.New("summary").Parse(
	`reason: {{.Reason}}, nodes explored: {{.NodesExplored}}
{{- if .HasSolution}}
objective: {{.Quality.Objective}} (best {{.Quality.BestPossible}}, worst {{.Quality.WorstPossible}}, quality {{printf "%.1f" .QualityPct}}%)
mean penalty: {{printf "%.2f" .Quality.MeanPenalty}}, median: {{printf "%.2f" .Quality.MedianPenalty}}, p90: {{printf "%.2f" .Quality.P90Penalty}}
{{- range .RoomLines}}
{{.}}
{{- end}}
{{- end}}
`))

type summaryData struct {
	Reason        model.Reason
	NodesExplored int64
	HasSolution   bool
	Quality       courseassign.Quality
	QualityPct    float64
	RoomLines     []string
}

func printSummary(problem *model.Problem, result model.Result) {
	data := summaryData{Reason: result.Reason, NodesExplored: result.NodesExplored}
	if result.Solution != nil {
		data.HasSolution = true
		data.Quality = courseassign.Score(problem, result.Solution)
		data.QualityPct = data.Quality.QualityRatio * 100
		if len(problem.Rooms) > 0 {
			data.RoomLines = roomsSummarize(problem, result.Solution)
		}
	}
	if err := summaryTemplate.Execute(os.Stderr, data); err != nil {
		fmt.Fprintf(os.Stderr, "rendering summary: %v\n", err)
	}
}

func roomsSummarize(problem *model.Problem, assignment *model.Assignment) []string {
	return rooms.Summarize(problem, assignment)
}

func sortedCourseIDs(exp *eventexport.Export, trackID string, ignoreCancelled bool) []string {
	var ids []string
	for id, c := range exp.Courses {
		if _, ok := c.Segments[trackID]; ok && !(ignoreCancelled && c.Cancelled) {
			ids = append(ids, id)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func recordRun(ctx context.Context, dsn, eventTitle, track string, problem *model.Problem, result model.Result, regIDs, courseIDs []string, logger interface {
	Error(string, ...any)
}) {
	store, err := eventexport.Open(dsn)
	if err != nil {
		logger.Error("opening event-export store", "err", err)
		return
	}
	defer store.Close()

	var patch *eventexport.Patch
	if result.Solution != nil {
		p := eventexport.BuildPatch(track, regIDs, courseIDs, result.Solution)
		patch = &p
	}
	if _, err := store.RecordRun(ctx, eventTitle, track, problem, result, patch); err != nil {
		logger.Error("recording run", "err", err)
	}
}
