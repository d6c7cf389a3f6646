package route

import (
	"context"

	"go.uber.org/zap"
)

// TwoOpt improves the path produced by First by reversing segments while
// that shortens it. The depot stays first and the far end stays open. Arc
// costs are assumed symmetric.
type TwoOpt struct {
	First         Solver
	MaxIterations int // improving passes; 0 means 1000
}

// Solve implements Solver. When ctx ends during improvement the best path so
// far is returned.
func (t TwoOpt) Solve(ctx context.Context, matrix [][]int64, depot int) ([]int, error) {
	path, err := t.First.Solve(ctx, matrix, depot)
	if err != nil {
		return nil, err
	}
	maxIter := t.MaxIterations
	if maxIter <= 0 {
		maxIter = 1000
	}

	before := Cost(matrix, path)
	passes := improve(ctx, matrix, path, maxIter)
	zap.L().Debug("route: 2-opt",
		zap.Int("passes", passes),
		zap.Int64("before", before),
		zap.Int64("after", Cost(matrix, path)),
	)
	return path, nil
}

// improve applies first-improvement 2-opt moves to path in place and returns
// the number of passes made.
func improve(ctx context.Context, matrix [][]int64, path []int, maxIter int) int {
	n := len(path)
	passes := 0
	for improved := true; improved && passes < maxIter; {
		if ctx.Err() != nil {
			break
		}
		improved = false
		passes++
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if gain(matrix, path, i, j) > 0 {
					reverse(path, i, j)
					improved = true
				}
			}
		}
	}
	return passes
}

// gain is the cost saved by reversing path[i..j].
func gain(matrix [][]int64, path []int, i, j int) int64 {
	a, b := path[i-1], path[i]
	c := path[j]
	removed := matrix[a][b]
	added := matrix[a][c]
	if j+1 < len(path) {
		d := path[j+1]
		removed += matrix[c][d]
		added += matrix[b][d]
	}
	return removed - added
}

func reverse(path []int, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
}
