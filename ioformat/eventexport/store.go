package eventexport

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"courseassign/engine/model"
)

//go:embed schema.sql
var schema string

// Store is a Postgres-backed audit trail of solve runs: the problem
// that went in and the patch that came out, for the partial-export
// workflow. It never persists in-progress search state, only finished
// requests and their results.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and applies the schema, the way the server this
// module grew out of applied its schema at startup.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("eventexport: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventexport: connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventexport: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity, for use in a /healthz handler.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// RecordRun inserts a completed run and returns its id. req is stored
// verbatim for audit purposes; patch is nil when the run did not
// produce a solution.
func (s *Store) RecordRun(ctx context.Context, eventTitle, trackID string, req *model.Problem, result model.Result, patch *Patch) (int64, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("eventexport: marshal request: %w", err)
	}
	var patchJSON []byte
	if patch != nil {
		patchJSON, err = json.Marshal(patch)
		if err != nil {
			return 0, fmt.Errorf("eventexport: marshal patch: %w", err)
		}
	}
	var objective *int
	if result.Solution != nil {
		v := result.Solution.Objective
		objective = &v
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO solve_runs (event_title, track_id, request, reason, objective, nodes, patch)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		eventTitle, trackID, reqJSON, result.Reason.String(), objective, result.NodesExplored, nullableJSON(patchJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("eventexport: insert run: %w", err)
	}
	return id, nil
}

// RunSummary is one row of run history, as returned by RecentRuns.
type RunSummary struct {
	ID        int64
	TrackID   string
	Reason    string
	Objective *int
	Nodes     int64
	CreatedAt string
}

// RecentRuns returns the most recent runs for trackID, newest first.
func (s *Store) RecentRuns(ctx context.Context, trackID string, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track_id, reason, objective, nodes, created_at::text
		FROM solve_runs
		WHERE track_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, trackID, limit)
	if err != nil {
		return nil, fmt.Errorf("eventexport: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.TrackID, &r.Reason, &r.Objective, &r.Nodes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("eventexport: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}
