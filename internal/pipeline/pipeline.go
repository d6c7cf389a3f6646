// Package pipeline runs a planning request through extraction, selection,
// geocoding, distance computation and route solving.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/config"
	"github.com/sells-group/route-cli/internal/distance"
	"github.com/sells-group/route-cli/internal/geocoding"
	"github.com/sells-group/route-cli/internal/manifest"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/route"
)

// Terminal outcomes other than a routed result. Each is returned together
// with a non-nil *Result carrying the counts gathered so far.
var (
	ErrEmptyParse        = eris.New("pipeline: no delivery records found in manifest")
	ErrEmptySelection    = eris.New("pipeline: no category codes selected")
	ErrEmptyFilter       = eris.New("pipeline: no records match the selection")
	ErrNoResolvableStops = eris.New("pipeline: no record could be geocoded")
	ErrRouteInfeasible   = eris.New("pipeline: no feasible route")
)

// Geocoder resolves records to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, records []model.DeliveryRecord, progress geocoding.Progress) (geocoding.Report, error)
}

// Request is one planning request. It is not modified by Run.
type Request struct {
	Lines  []string
	Codes  []string
	City   string
	Origin model.Point // zero means the configured default origin
	Dedupe bool
}

// Pipeline plans routes for manifest requests.
type Pipeline struct {
	extractor     *manifest.Extractor
	geocoder      Geocoder
	solver        route.Solver
	defaultOrigin model.Point
}

// New creates a Pipeline with all dependencies.
func New(extractor *manifest.Extractor, geocoder Geocoder, solver route.Solver, defaultOrigin model.Point) *Pipeline {
	return &Pipeline{
		extractor:     extractor,
		geocoder:      geocoder,
		solver:        solver,
		defaultOrigin: defaultOrigin,
	}
}

// FromConfig wires a Pipeline from configuration: the manifest profile, the
// configured geocoding service and the route solver.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	extractor, err := NewExtractor(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	resolver, err := geocoding.NewFromConfig(cfg.Geocode)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: geocoder")
	}
	solver, err := route.New(cfg.Route)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: solver")
	}
	return New(extractor, resolver, solver, cfg.Pipeline.DefaultOrigin()), nil
}

// NewExtractor loads the configured manifest profile, or the built-in one
// when no profile path is set.
func NewExtractor(cfg config.PipelineConfig) (*manifest.Extractor, error) {
	profile := manifest.DefaultProfile()
	if cfg.ProfilePath != "" {
		p, err := manifest.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: profile")
		}
		profile = p
	}
	return manifest.NewExtractor(profile)
}

// Codes parses lines and returns the distinct normalized category codes with
// their record counts.
func (p *Pipeline) Codes(lines []string) ([]string, map[string]int, error) {
	records := p.extractor.Extract(lines)
	if len(records) == 0 {
		return nil, nil, ErrEmptyParse
	}
	return manifest.Codes(records), manifest.CodeCounts(records), nil
}

// Run executes the planning pipeline. On any terminal outcome other than a
// routed result the returned error is one of the package sentinels (or the
// context error) and the Result still reports the counts reached.
func (p *Pipeline) Run(ctx context.Context, req Request, progress geocoding.Progress) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", result.RunID))
	start := time.Now()

	records := p.extractor.Extract(req.Lines)
	result.Counts.Parsed = len(records)
	if len(records) == 0 {
		return result.fail(log, OutcomeEmptyParse, ErrEmptyParse)
	}

	codes := manifest.NormalizeCodes(req.Codes)
	if len(codes) == 0 {
		return result.fail(log, OutcomeEmptySelection, ErrEmptySelection)
	}

	selected := manifest.Filter(records, manifest.Selection{Codes: codes, City: req.City})
	result.Counts.Filtered = len(selected)
	if len(selected) == 0 {
		return result.fail(log, OutcomeEmptyFilter, ErrEmptyFilter)
	}

	if req.Dedupe {
		selected, result.Dropped = manifest.Dedupe(selected)
	}
	result.Counts.Deduplicated = len(selected)

	log.Info("pipeline: geocoding",
		zap.Strings("codes", codes),
		zap.Int("parsed", result.Counts.Parsed),
		zap.Int("selected", len(selected)),
		zap.Int("dropped", len(result.Dropped)),
	)

	report, err := p.geocoder.Resolve(ctx, selected, progress)
	result.Unresolved = report.Unresolved
	result.Counts.Geocoded = len(report.Resolved)
	result.Counts.Discarded = len(report.Unresolved)
	if err != nil {
		return result, eris.Wrap(err, "pipeline: geocode")
	}
	if len(report.Resolved) == 0 {
		return result.fail(log, OutcomeNoResolvableStops, ErrNoResolvableStops)
	}

	result.Origin = p.defaultOrigin
	if !req.Origin.IsZero() {
		result.Origin = req.Origin
	}

	points := make([]model.Point, len(report.Resolved))
	for i, r := range report.Resolved {
		points[i] = *r.Coordinate
	}
	matrix := distance.Matrix(result.Origin, points)

	path, err := p.solver.Solve(ctx, matrix, 0)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, route.ErrNoSolution) {
			return result, eris.Wrap(err, "pipeline: solve")
		}
		log.Warn("pipeline: solver failed", zap.Error(err))
		return result.fail(log, OutcomeRouteInfeasible, ErrRouteInfeasible)
	}

	routed, err := Assemble(report.Resolved, path)
	if err != nil {
		log.Warn("pipeline: invalid solver path", zap.Ints("path", path), zap.Error(err))
		return result.fail(log, OutcomeRouteInfeasible, ErrRouteInfeasible)
	}

	result.Records = routed
	result.DistanceMeters = route.Cost(matrix, path)
	result.Outcome = OutcomeRouted

	log.Info("pipeline: route planned",
		zap.Int("stops", len(routed)),
		zap.Int("discarded", result.Counts.Discarded),
		zap.Int64("distance_m", result.DistanceMeters),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
