// Package config reads process configuration from environment variables,
// the way the server this module grew out of checked its required
// variables up front in main().
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Engine holds the knobs the BaB/Hungarian engine is tuned with.
type Engine struct {
	Workers   int
	NodeLimit int64 // 0 = unlimited
	TimeLimit time.Duration
}

// EngineFromEnv reads COURSEASSIGN_WORKERS, COURSEASSIGN_NODE_LIMIT and
// COURSEASSIGN_TIME_LIMIT, falling back to sensible defaults.
func EngineFromEnv() Engine {
	e := Engine{Workers: runtime.GOMAXPROCS(0)}
	if v := os.Getenv("COURSEASSIGN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.Workers = n
		}
	}
	if v := os.Getenv("COURSEASSIGN_NODE_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			e.NodeLimit = n
		}
	}
	if v := os.Getenv("COURSEASSIGN_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			e.TimeLimit = d
		}
	}
	return e
}

// RequireEnv returns the names of the given environment variables that
// are unset or empty, for an up-front required-env check like the one
// the server this module grew out of performs in main(). It does not
// exit or log; the caller decides what to do with the list.
func RequireEnv(keys ...string) []string {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// EventExportDSN returns the Postgres DSN for the event-export store,
// or "" if not configured (the store is optional).
func EventExportDSN() string {
	return os.Getenv("COURSEASSIGN_PGCONN")
}
