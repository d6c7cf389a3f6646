package route

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// MaxExactStops is the largest number of non-depot nodes Exact solves
// directly.
const MaxExactStops = 12

// Exact finds the optimal open path from the depot with the Held–Karp
// dynamic program. Larger instances go to Fallback.
type Exact struct {
	Fallback Solver
}

// Solve implements Solver.
func (e Exact) Solve(ctx context.Context, matrix [][]int64, depot int) ([]int, error) {
	if err := validateMatrix(matrix, depot); err != nil {
		return nil, err
	}

	n := len(matrix)
	if n-1 > MaxExactStops {
		if e.Fallback == nil {
			e.Fallback = CheapestArc{}
		}
		zap.L().Warn("route: too many stops for exact solve, using fallback",
			zap.Int("stops", n-1),
			zap.Int("max", MaxExactStops),
		)
		return e.Fallback.Solve(ctx, matrix, depot)
	}
	if n == 1 {
		return []int{depot}, nil
	}

	// nodes are the non-depot indices; bit k of a mask stands for nodes[k].
	nodes := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != depot {
			nodes = append(nodes, i)
		}
	}
	k := len(nodes)
	full := 1<<k - 1

	dp := make([][]int64, 1<<k)
	parent := make([][]int8, 1<<k)
	for mask := range dp {
		dp[mask] = make([]int64, k)
		parent[mask] = make([]int8, k)
		for j := range dp[mask] {
			dp[mask][j] = math.MaxInt64
			parent[mask][j] = -1
		}
	}
	for j := 0; j < k; j++ {
		dp[1<<j][j] = matrix[depot][nodes[j]]
	}

	for mask := 1; mask <= full; mask++ {
		if mask&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := 0; j < k; j++ {
			if mask&(1<<j) == 0 || dp[mask][j] == math.MaxInt64 {
				continue
			}
			for next := 0; next < k; next++ {
				if mask&(1<<next) != 0 {
					continue
				}
				nm := mask | 1<<next
				cand := dp[mask][j] + matrix[nodes[j]][nodes[next]]
				if cand < dp[nm][next] {
					dp[nm][next] = cand
					parent[nm][next] = int8(j)
				}
			}
		}
	}

	last := 0
	for j := 1; j < k; j++ {
		if dp[full][j] < dp[full][last] {
			last = j
		}
	}

	path := make([]int, n)
	path[0] = depot
	mask := full
	for pos := n - 1; pos >= 1; pos-- {
		path[pos] = nodes[last]
		prev := int(parent[mask][last])
		mask ^= 1 << last
		last = prev
	}
	return path, nil
}
