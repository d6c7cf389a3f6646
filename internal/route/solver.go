// Package route orders stops into a single-vehicle open path that starts at a
// fixed depot and minimizes total distance.
package route

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/config"
)

// ErrNoSolution is returned when no feasible path is found, including when
// the time limit expires before a first solution exists.
var ErrNoSolution = eris.New("route: no solution")

// Solver finds a visiting order over a distance matrix. The returned path
// starts at depot and visits every index exactly once.
type Solver interface {
	Solve(ctx context.Context, matrix [][]int64, depot int) ([]int, error)
}

// Strategy names.
const (
	StrategyCheapestArc = "cheapest-arc"
	StrategyExact       = "exact"
)

// New builds the solver described by cfg.
func New(cfg config.RouteConfig) (Solver, error) {
	var s Solver
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategyCheapestArc:
		s = CheapestArc{}
	case StrategyExact:
		s = Exact{Fallback: CheapestArc{}}
	default:
		return nil, eris.Errorf("route: unknown strategy %q", cfg.Strategy)
	}
	if cfg.LocalSearch {
		s = TwoOpt{First: s, MaxIterations: cfg.MaxIterations}
	}
	if cfg.TimeLimit > 0 {
		s = TimeLimit{Solver: s, Limit: cfg.TimeLimit}
	}
	return s, nil
}

// TimeLimit bounds a solver's running time.
type TimeLimit struct {
	Solver Solver
	Limit  time.Duration
}

// Solve implements Solver. Expiry of the limit is reported as ErrNoSolution.
func (t TimeLimit) Solve(ctx context.Context, matrix [][]int64, depot int) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Limit)
	defer cancel()

	start := time.Now()
	path, err := t.Solver.Solve(ctx, matrix, depot)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, eris.Wrapf(ErrNoSolution, "time limit %s exceeded", t.Limit)
		}
		return nil, err
	}
	zap.L().Debug("route: solved",
		zap.Int("points", len(matrix)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return path, nil
}

// validateMatrix checks that matrix is square, non-negative and that depot
// indexes it.
func validateMatrix(matrix [][]int64, depot int) error {
	n := len(matrix)
	if n == 0 {
		return eris.Wrap(ErrNoSolution, "empty matrix")
	}
	if depot < 0 || depot >= n {
		return eris.Wrapf(ErrNoSolution, "depot %d out of range [0,%d)", depot, n)
	}
	for i, row := range matrix {
		if len(row) != n {
			return eris.Wrapf(ErrNoSolution, "row %d has length %d, want %d", i, len(row), n)
		}
		for j, d := range row {
			if d < 0 {
				return eris.Wrapf(ErrNoSolution, "negative distance at [%d][%d]", i, j)
			}
		}
	}
	return nil
}

// Validate checks that path starts at depot and visits each of the n indices
// exactly once.
func Validate(path []int, n, depot int) error {
	if len(path) != n {
		return eris.Errorf("route: path has %d stops, want %d", len(path), n)
	}
	if n == 0 {
		return nil
	}
	if path[0] != depot {
		return eris.Errorf("route: path starts at %d, want depot %d", path[0], depot)
	}
	seen := make([]bool, n)
	for _, idx := range path {
		if idx < 0 || idx >= n {
			return eris.Errorf("route: index %d out of range", idx)
		}
		if seen[idx] {
			return eris.Errorf("route: index %d visited twice", idx)
		}
		seen[idx] = true
	}
	return nil
}

// Cost sums the arcs of path.
func Cost(matrix [][]int64, path []int) int64 {
	var total int64
	for i := 1; i < len(path); i++ {
		total += matrix[path[i-1]][path[i]]
	}
	return total
}
