// Command courseassign-serve exposes the course-assignment solver over
// HTTP. Each request runs an independent solve; no branch-and-bound
// search state is kept between requests.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"courseassign/engine/courseassign"
	"courseassign/engine/model"
	"courseassign/internal/config"
	"courseassign/internal/obs"
	"courseassign/ioformat/eventexport"
	"courseassign/ioformat/simple"
)

func main() {
	logger := obs.New()
	engineOpts := config.EngineFromEnv()

	var store *eventexport.Store
	if dsn := config.EventExportDSN(); dsn != "" {
		s, err := eventexport.Open(dsn)
		if err != nil {
			logger.Error("opening event-export store", "err", err)
			os.Exit(1)
		}
		store = s
		defer store.Close()
		logger.Info("connected to event-export database")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/solve", handleSolve(logger, engineOpts, store))
	mux.HandleFunc("GET /healthz", handleHealthz(store))

	addr := ":8080"
	if v := os.Getenv("COURSEASSIGN_ADDR"); v != "" {
		addr = v
	}
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func handleHealthz(store *eventexport.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(); err != nil {
				http.Error(w, "db unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		fmt.Fprintln(w, "ok")
	}
}

type solveRequest struct {
	Problem   *simpleDoc `json:"problem"`
	TimeLimit string     `json:"time_limit,omitempty"`
	NodeLimit int64      `json:"node_limit,omitempty"`
}

// simpleDoc keeps the request's problem as raw JSON so that simple.Read
// decodes it, rather than duplicating that package's JSON schema here.
type simpleDoc = json.RawMessage

func handleSolve(logger *slog.Logger, engineOpts config.Engine, store *eventexport.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req solveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Problem == nil {
			http.Error(w, "problem is required", http.StatusBadRequest)
			return
		}

		problem, err := simple.Read(bytes.NewReader(*req.Problem))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid problem: %v", err), http.StatusBadRequest)
			return
		}

		opts := courseassign.Options{
			Workers:   engineOpts.Workers,
			NodeLimit: engineOpts.NodeLimit,
			TimeLimit: engineOpts.TimeLimit,
			Logger:    logger,
		}
		if req.NodeLimit > 0 {
			opts.NodeLimit = req.NodeLimit
		}
		if req.TimeLimit != "" {
			if d, err := time.ParseDuration(req.TimeLimit); err == nil {
				opts.TimeLimit = d
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()
		result := courseassign.Solve(ctx, problem, opts)

		if store != nil {
			var patch *eventexport.Patch
			if _, err := store.RecordRun(ctx, "", "", problem, result, patch); err != nil {
				logger.Warn("recording run failed", "err", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		switch result.Reason {
		case model.ReasonInfeasible, model.ReasonCancelled:
			w.WriteHeader(http.StatusConflict)
		case model.ReasonInternalError:
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"reason":         result.Reason.String(),
			"nodes_explored": result.NodesExplored,
			"assignment":     solutionCourseOf(result.Solution),
		})
	}
}

func solutionCourseOf(a *model.Assignment) []int {
	if a == nil {
		return nil
	}
	return a.CourseOf
}
