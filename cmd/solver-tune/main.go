// Command solver-tune measures how the warm-start heuristic in
// engine/courseassign performs across parameter sets, against a real
// problem file, so the defaults it ships with are chosen from data
// rather than guessed.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"courseassign/engine/courseassign"
	"courseassign/ioformat/simple"
)

type runResult struct {
	bound   int64
	ok      bool
	elapsed time.Duration
}

func printStats(label string, results []runResult, runs int) {
	var totalTime time.Duration
	var hits int
	bounds := map[int64]int{}

	for _, r := range results {
		totalTime += r.elapsed
		if r.ok {
			hits++
			bounds[r.bound]++
		}
	}

	fmt.Printf("--- %s ---\n", label)
	fmt.Printf("  avg time: %v\n", totalTime/time.Duration(runs))
	fmt.Printf("  found a feasible bound: %d/%d runs (%.0f%%)\n", hits, runs, float64(hits)/float64(runs)*100)

	if hits == 0 {
		fmt.Println()
		return
	}

	var bestBound int64 = -1
	for b := range bounds {
		if bestBound == -1 || b < bestBound {
			bestBound = b
		}
	}
	fmt.Printf("  best bound seen: %d\n", bestBound)

	var boundList []int64
	for b := range bounds {
		boundList = append(boundList, b)
	}
	sort.Slice(boundList, func(i, j int) bool { return boundList[i] < boundList[j] })
	fmt.Printf("  bound distribution:\n")
	for _, b := range boundList {
		fmt.Printf("    bound %d: %d/%d runs\n", b, bounds[b], hits)
	}
	fmt.Println()
}

func main() {
	path := flag.String("problem", "", "path to a simple-format problem file to tune against")
	runs := flag.Int("runs", 20, "number of warm-start runs per parameter set")
	restarts := flag.String("restarts", "1,3,6,12", "comma-separated restart counts")
	pmin := flag.String("pmin", "1,2", "comma-separated PerturbMin values")
	pmax := flag.String("pmax", "3,4,6", "comma-separated PerturbMax values")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: solver-tune --problem <file> [flags]")
		os.Exit(2)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening problem: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	problem, err := simple.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading problem: %v\n", err)
		os.Exit(1)
	}
	if err := problem.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "validating problem: %v\n", err)
		os.Exit(1)
	}

	pc := courseassign.Precompute(problem)
	fmt.Printf("Courses: %d, Participants: %d, Rooms: %d\n", len(problem.Courses), len(problem.Participants), len(problem.Rooms))
	fmt.Printf("Runs per config: %d\n\n", *runs)

	for _, nr := range parseIntList(*restarts) {
		for _, pn := range parseIntList(*pmin) {
			for _, px := range parseIntList(*pmax) {
				if px < pn {
					continue
				}
				params := courseassign.HeuristicParams{Restarts: nr, PerturbMin: pn, PerturbMax: px}
				var results []runResult
				for run := 0; run < *runs; run++ {
					rng := rand.New(rand.NewSource(int64(run*31337 + 1)))
					start := time.Now()
					bound, ok := courseassign.WarmStart(pc, params, rng)
					results = append(results, runResult{bound: bound, ok: ok, elapsed: time.Since(start)})
				}
				label := fmt.Sprintf("restarts=%d pmin=%d pmax=%d", nr, pn, px)
				printStats(label, results, *runs)
			}
		}
	}
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			result = append(result, v)
		}
	}
	return result
}
