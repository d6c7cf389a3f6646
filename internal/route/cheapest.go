package route

import (
	"context"
)

// CheapestArc builds a path by repeatedly extending it with the cheapest arc
// from its current end to an unvisited node. Ties go to the lowest index.
type CheapestArc struct{}

// Solve implements Solver.
func (CheapestArc) Solve(ctx context.Context, matrix [][]int64, depot int) ([]int, error) {
	if err := validateMatrix(matrix, depot); err != nil {
		return nil, err
	}

	n := len(matrix)
	visited := make([]bool, n)
	path := make([]int, 0, n)
	path = append(path, depot)
	visited[depot] = true

	cur := depot
	for len(path) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || matrix[cur][j] < matrix[cur][next] {
				next = j
			}
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
	return path, nil
}
