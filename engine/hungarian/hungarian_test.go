package hungarian

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func toCostMatrix(rows [][]int64) [][]Cost {
	out := make([][]Cost, len(rows))
	for i, r := range rows {
		out[i] = make([]Cost, len(r))
		for j, v := range r {
			out[i][j] = Cost(v)
		}
	}
	return out
}

func TestSolveKnownRoundTrip(t *testing.T) {
	// Scenario S6.
	c := toCostMatrix([][]int64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	})
	res, err := Solve(c, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 2}, res.RowToCol)
	require.EqualValues(t, 5, res.Objective)
}

func TestSolveIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(12)
		c := make([][]Cost, n)
		for i := range c {
			c[i] = make([]Cost, n)
			for j := range c[i] {
				c[i][j] = Cost(rng.Intn(1000))
			}
		}
		res, err := Solve(c, nil, nil)
		require.NoError(t, err)

		seenCols := make(map[int]bool)
		for i := 0; i < n; i++ {
			j := res.RowToCol[i]
			require.False(t, seenCols[j], "column %d matched twice", j)
			seenCols[j] = true
			require.Equal(t, i, res.ColToRow[j])
		}
	}
}

func TestSolveDualFeasibility(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(10)
		c := make([][]Cost, n)
		for i := range c {
			c[i] = make([]Cost, n)
			for j := range c[i] {
				c[i][j] = Cost(rng.Intn(500))
			}
		}
		res, err := Solve(c, nil, nil)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				require.LessOrEqual(t, res.U[i]+res.V[j], c[i][j])
			}
			j := res.RowToCol[i]
			require.Equal(t, c[i][j], res.U[i]+res.V[j])
		}
	}
}

// bruteForceOptimum exhaustively enumerates all permutations; only used
// for small N in tests.
func bruteForceOptimum(c [][]Cost) Cost {
	n := len(c)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	best := Cost(-1)
	var permute func(k int)
	permute = func(k int) {
		if k == n {
			var sum Cost
			for i := 0; i < n; i++ {
				sum += c[i][perm[i]]
			}
			if best == -1 || sum < best {
				best = sum
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	permute(0)
	return best
}

func TestSolveMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 15; trial++ {
		n := 1 + rng.Intn(8)
		c := make([][]Cost, n)
		for i := range c {
			c[i] = make([]Cost, n)
			for j := range c[i] {
				c[i][j] = Cost(rng.Intn(50))
			}
		}
		res, err := Solve(c, nil, nil)
		require.NoError(t, err)
		require.Equal(t, bruteForceOptimum(c), res.Objective)
	}
}

func TestSolveMandatoryColumnRejectsDummyRow(t *testing.T) {
	c := toCostMatrix([][]int64{
		{0, 0},
		{1, 1},
	})
	dummy := []bool{true, false}
	mandatory := []bool{true, false}
	_, err := Solve(c, dummy, mandatory)
	require.Error(t, err)
}

func TestSolveEmpty(t *testing.T) {
	res, err := Solve(nil, nil, nil)
	require.NoError(t, err)
	require.Empty(t, res.RowToCol)
}
