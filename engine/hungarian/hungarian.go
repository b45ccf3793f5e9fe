// Package hungarian solves dense square minimum-cost perfect
// matching via the O(n^3) primal-dual (Jonker-Volgenant / Kuhn-Munkres)
// shortest-augmenting-path method.
package hungarian

import "fmt"

// Cost is the type used for matrix entries and the objective. It must be
// wide enough that CostMax*(n+1) does not overflow; callers are
// responsible for choosing sentinels accordingly (see model.Problem's
// PenaltyMax/InfeasibleCost derivation).
type Cost = int64

const unset = -1

// Result is the outcome of a Solve call.
type Result struct {
	// RowToCol[i] is the column matched to row i.
	RowToCol []int
	// ColToRow[j] is the row matched to column j.
	ColToRow []int
	// U are row potentials, V are column potentials. u_i + v_j <= C[i][j]
	// for all i,j, with equality on every matched pair.
	U, V []Cost
	// Objective is sum C[i, RowToCol[i]].
	Objective Cost
}

// Solve finds a minimum-cost perfect matching on the square cost matrix
// c (c[i][j] is the cost of matching row i to column j). All entries
// must be non-negative. Mask arguments may be nil.
//
// dummyRow[i], if true, marks row i as a padding row, and mandatoryCol[j]
// marks column j as one that must be filled by a "real" row. The masks
// do not steer the matching: if the minimum-cost matching puts a dummy
// row on a mandatory column, Solve returns an error.
//
// The algorithm is deterministic: among equal-cost augmenting paths it
// always prefers the path reaching the smallest column index, so
// identical inputs always produce identical output.
func Solve(c [][]Cost, dummyRow, mandatoryCol []bool) (Result, error) {
	n := len(c)
	for i, row := range c {
		if len(row) != n {
			return Result{}, fmt.Errorf("hungarian: matrix row %d has length %d, want square %d", i, len(row), n)
		}
	}
	if n == 0 {
		return Result{RowToCol: []int{}, ColToRow: []int{}, U: []Cost{}, V: []Cost{}}, nil
	}
	for i, row := range c {
		for j, v := range row {
			if v < 0 {
				return Result{}, fmt.Errorf("hungarian: negative cost at [%d][%d]: %d", i, j, v)
			}
		}
	}

	u := make([]Cost, n)
	v := make([]Cost, n)
	rowToCol := make([]int, n)
	colToRow := make([]int, n)
	for i := range rowToCol {
		rowToCol[i] = unset
	}
	for j := range colToRow {
		colToRow[j] = unset
	}

	// shortest-path scratch buffers, reused across augmentations.
	minSlack := make([]Cost, n)
	slackRow := make([]int, n)
	colVisited := make([]bool, n)
	prevCol := make([]int, n)

	for i0 := 0; i0 < n; i0++ {
		// Augment row i0 via a Dijkstra-like shortest-path search in
		// the reduced-cost graph, per the spec's Hungarian contract.
		for j := 0; j < n; j++ {
			minSlack[j] = reducedCost(c, u, v, i0, j)
			slackRow[j] = i0
			colVisited[j] = false
			prevCol[j] = unset
		}

		curRow := i0
		var matchedCol int = unset

		for {
			j1 := unset
			var best Cost
			// Deterministic: smallest slack, ties broken by ascending
			// column index.
			for j := 0; j < n; j++ {
				if colVisited[j] {
					continue
				}
				if j1 == unset || minSlack[j] < best {
					j1 = j
					best = minSlack[j]
				}
			}
			if j1 == unset {
				return Result{}, fmt.Errorf("hungarian: no augmenting column found for row %d (infeasible square matrix)", i0)
			}

			delta := best
			// Update potentials along the visited frontier.
			u[i0] += delta
			for j := 0; j < n; j++ {
				if colVisited[j] {
					r := colToRow[j]
					u[r] += delta
					v[j] -= delta
				} else {
					minSlack[j] -= delta
				}
			}

			colVisited[j1] = true

			if colToRow[j1] == unset {
				matchedCol = j1
				break
			}

			curRow = colToRow[j1]
			for j := 0; j < n; j++ {
				if colVisited[j] {
					continue
				}
				rc := reducedCost(c, u, v, curRow, j)
				if rc < minSlack[j] {
					minSlack[j] = rc
					slackRow[j] = curRow
					prevCol[j] = j1
				}
			}
		}

		// Walk back along prevCol, re-pointing the augmenting path.
		j := matchedCol
		for j != unset {
			i := slackRow[j]
			prevJ := prevCol[j]
			colToRow[j] = i
			rowToCol[i] = j
			j = prevJ
		}
	}

	// Feasibility / mask post-check: mandatory columns must not have
	// landed on a dummy row.
	if mandatoryCol != nil {
		for j, mand := range mandatoryCol {
			if !mand {
				continue
			}
			r := colToRow[j]
			if r == unset || (dummyRow != nil && dummyRow[r]) {
				return Result{}, fmt.Errorf("hungarian: mandatory column %d matched to dummy or unmatched row", j)
			}
		}
	}

	res := Result{RowToCol: rowToCol, ColToRow: colToRow, U: u, V: v}
	for i := 0; i < n; i++ {
		res.Objective += c[i][rowToCol[i]]
	}

	// Sanity-check dual feasibility: internal invariant, must never
	// silently continue if violated.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if u[i]+v[j] > c[i][j] {
				return Result{}, fmt.Errorf("hungarian: dual feasibility violated at [%d][%d]", i, j)
			}
		}
	}

	return res, nil
}

func reducedCost(c [][]Cost, u, v []Cost, i, j int) Cost {
	return c[i][j] - u[i] - v[j]
}
