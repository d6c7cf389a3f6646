package pipeline

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/export"
	"github.com/sells-group/route-cli/internal/geocoding"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/route"
)

// Outcome names how a run ended.
type Outcome string

// Outcomes.
const (
	OutcomeRouted            Outcome = "routed"
	OutcomeEmptyParse        Outcome = "empty_parse"
	OutcomeEmptySelection    Outcome = "empty_selection"
	OutcomeEmptyFilter       Outcome = "empty_filter"
	OutcomeNoResolvableStops Outcome = "no_resolvable_stops"
	OutcomeRouteInfeasible   Outcome = "route_infeasible"
)

// Counts tracks how many records survived each stage.
type Counts struct {
	Parsed       int `json:"parsed"`
	Filtered     int `json:"filtered"`
	Deduplicated int `json:"deduplicated"`
	Geocoded     int `json:"geocoded"`
	Discarded    int `json:"discarded"`
}

// Result is the outcome of one planning run.
type Result struct {
	RunID          string                       `json:"run_id"`
	Outcome        Outcome                      `json:"outcome"`
	Origin         model.Point                  `json:"origin"`
	Records        []model.DeliveryRecord       `json:"records"` // routed stops in visit order
	Unresolved     []geocoding.UnresolvedRecord `json:"unresolved"`
	Dropped        []model.DeliveryRecord       `json:"dropped"` // removed as duplicates
	Counts         Counts                       `json:"counts"`
	DistanceMeters int64                        `json:"distance_meters"`
}

func (r *Result) fail(log *zap.Logger, outcome Outcome, err error) (*Result, error) {
	r.Outcome = outcome
	log.Warn("pipeline: run ended without a route",
		zap.String("outcome", string(outcome)),
		zap.Int("parsed", r.Counts.Parsed),
		zap.Int("filtered", r.Counts.Filtered),
		zap.Int("geocoded", r.Counts.Geocoded),
		zap.Int("discarded", r.Counts.Discarded),
	)
	return r, err
}

// Route returns the routed stops ready for export.
func (r *Result) Route(labelPrefix string) export.Route {
	return export.Route{
		Origin:         r.Origin,
		Stops:          r.Records,
		DistanceMeters: r.DistanceMeters,
		LabelPrefix:    labelPrefix,
	}
}

// Assemble maps a solved path onto the resolved records and returns them
// sorted by visit order.
func Assemble(resolved []model.DeliveryRecord, path []int) ([]model.DeliveryRecord, error) {
	routed, err := route.AssignVisitOrder(resolved, path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(routed, func(i, j int) bool {
		return *routed[i].VisitOrder < *routed[j].VisitOrder
	})
	return routed, nil
}

// OutcomeOf maps a Run error to its outcome. Errors that are not pipeline
// outcomes (cancellation, I/O) map to the empty Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeRouted
	case errors.Is(err, ErrEmptyParse):
		return OutcomeEmptyParse
	case errors.Is(err, ErrEmptySelection):
		return OutcomeEmptySelection
	case errors.Is(err, ErrEmptyFilter):
		return OutcomeEmptyFilter
	case errors.Is(err, ErrNoResolvableStops):
		return OutcomeNoResolvableStops
	case errors.Is(err, ErrRouteInfeasible):
		return OutcomeRouteInfeasible
	default:
		return ""
	}
}
