// Package geocoding resolves delivery records to coordinates one at a time
// under a paced retry policy.
package geocoding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/route-cli/internal/config"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/resilience"
	"github.com/sells-group/route-cli/pkg/geocode"
)

// Unresolved reasons.
const (
	ReasonTimeout  = "timeout"
	ReasonNotFound = "not_found"
	ReasonInvalid  = "invalid_coordinate"
	ReasonError    = "error"
)

// Progress is called after every record with the number of records handled
// so far and the total.
type Progress func(done, total int)

// UnresolvedRecord is a record that could not be geocoded.
type UnresolvedRecord struct {
	Record   model.DeliveryRecord `json:"record"`
	Reason   string               `json:"reason"`
	Attempts int                  `json:"attempts"`
	Err      error                `json:"-"`
}

// Report summarizes one resolution run.
type Report struct {
	Resolved   []model.DeliveryRecord
	Unresolved []UnresolvedRecord
	Attempts   int // service calls made, memo hits excluded
	MemoHits   int
}

// Options tunes the resolver's policy.
type Options struct {
	RegionSuffix    string
	MaxAttempts     int
	RetryBackoff    time.Duration
	Pacing          time.Duration
	RelaxedFallback bool
}

// Option overrides a resolver collaborator.
type Option func(*Resolver)

// WithPacer replaces the rate limiter that spaces service calls.
func WithPacer(p resilience.Pacer) Option {
	return func(r *Resolver) {
		r.pacer = p
	}
}

// WithSleep replaces the retry backoff timer.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Resolver) {
		r.sleep = fn
	}
}

// Resolver geocodes records sequentially.
type Resolver struct {
	lookuper geocode.Lookuper
	pacer    resilience.Pacer
	sleep    func(ctx context.Context, d time.Duration) error
	opts     Options
}

// NewResolver creates a Resolver over l. Service calls are spaced by at
// least opts.Pacing.
func NewResolver(l geocode.Lookuper, opts Options, extra ...Option) *Resolver {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	limit := rate.Inf
	if opts.Pacing > 0 {
		limit = rate.Every(opts.Pacing)
	}
	r := &Resolver{
		lookuper: l,
		pacer:    rate.NewLimiter(limit, 1),
		opts:     opts,
	}
	for _, o := range extra {
		o(r)
	}
	return r
}

// NewFromConfig builds the configured service client and a Resolver over it.
func NewFromConfig(cfg config.GeocodeConfig) (*Resolver, error) {
	opts := []geocode.Option{
		geocode.WithTimeout(cfg.Timeout),
		geocode.WithUserAgent(cfg.UserAgent),
		geocode.WithEmail(cfg.Email),
		geocode.WithCountryCodes(cfg.CountryCodes),
	}
	// base_url only addresses Nominatim mirrors.
	if cfg.BaseURL != "" && (cfg.Provider == "" || strings.EqualFold(cfg.Provider, "nominatim")) {
		opts = append(opts, geocode.WithBaseURL(cfg.BaseURL))
	}
	l, err := geocode.New(cfg.Provider, cfg.GoogleAPIKey, opts...)
	if err != nil {
		return nil, err
	}
	return NewResolver(l, Options{
		RegionSuffix:    cfg.RegionSuffix,
		MaxAttempts:     cfg.MaxAttempts,
		RetryBackoff:    cfg.RetryBackoff,
		Pacing:          cfg.Pacing,
		RelaxedFallback: cfg.RelaxedFallback,
	}), nil
}

// Query returns the service query for rec.
func (r *Resolver) Query(rec model.DeliveryRecord) string {
	return withSuffix(rec.FormattedAddress, r.opts.RegionSuffix)
}

// relaxedQuery drops the street, leaving the neighborhood centroid.
func (r *Resolver) relaxedQuery(rec model.DeliveryRecord) string {
	return withSuffix(strings.Join([]string{rec.Neighborhood, rec.City, rec.PostalCode}, ", "), r.opts.RegionSuffix)
}

func withSuffix(q, suffix string) string {
	if suffix == "" {
		return q
	}
	return q + ", " + suffix
}

// Resolve geocodes records in order. Cancellation is honored between records;
// a record whose lookup was cut short is neither resolved nor reported, and
// the partial report is returned with the context error.
func (r *Resolver) Resolve(ctx context.Context, records []model.DeliveryRecord, progress Progress) (Report, error) {
	var report Report
	memo := geocode.NewMemo()
	total := len(records)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "geocoding: canceled")
		}

		coord, attempts, hits, err := r.resolveOne(ctx, memo, rec)
		report.Attempts += attempts
		report.MemoHits += hits

		if err != nil && ctx.Err() != nil {
			return report, eris.Wrap(ctx.Err(), "geocoding: canceled")
		}

		if err != nil {
			u := UnresolvedRecord{Record: rec, Reason: reason(err), Attempts: attempts, Err: err}
			report.Unresolved = append(report.Unresolved, u)
			zap.L().Warn("geocoding: record unresolved",
				zap.Int("line", rec.Line),
				zap.String("sequence", rec.Sequence),
				zap.String("address", rec.FormattedAddress),
				zap.String("reason", u.Reason),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		} else {
			report.Resolved = append(report.Resolved, rec.WithCoordinate(coord))
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	zap.L().Info("geocoding: complete",
		zap.Int("records", total),
		zap.Int("resolved", len(report.Resolved)),
		zap.Int("unresolved", len(report.Unresolved)),
		zap.Int("attempts", report.Attempts),
		zap.Int("memo_hits", report.MemoHits),
	)
	return report, nil
}

func (r *Resolver) resolveOne(ctx context.Context, memo *geocode.Memo, rec model.DeliveryRecord) (model.Coordinate, int, int, error) {
	coord, attempts, hits, err := r.lookup(ctx, memo, r.Query(rec))
	if err == nil || !r.opts.RelaxedFallback || !errors.Is(err, geocode.ErrNotFound) {
		return coord, attempts, hits, err
	}

	coord, more, moreHits, relaxedErr := r.lookup(ctx, memo, r.relaxedQuery(rec))
	attempts += more
	hits += moreHits
	if relaxedErr != nil {
		// Report the street-level failure, the fallback was best effort.
		return model.Coordinate{}, attempts, hits, err
	}
	zap.L().Debug("geocoding: resolved by neighborhood",
		zap.Int("line", rec.Line),
		zap.String("neighborhood", rec.Neighborhood),
	)
	return coord, attempts, hits, nil
}

func (r *Resolver) lookup(ctx context.Context, memo *geocode.Memo, query string) (model.Coordinate, int, int, error) {
	res, attempts, hits, err := r.fetch(ctx, memo, query)
	if err != nil {
		return model.Coordinate{}, attempts, hits, err
	}

	c := model.Coordinate{Lat: res.Latitude, Lng: res.Longitude}
	if !validCoordinate(c) {
		return model.Coordinate{}, attempts, hits, eris.Wrapf(errInvalidCoordinate, "geocoding: %q -> (%f, %f)", query, c.Lat, c.Lng)
	}
	return c, attempts, hits, nil
}

// fetch answers from the memo when it can, otherwise calls the service under
// the paced retry policy.
func (r *Resolver) fetch(ctx context.Context, memo *geocode.Memo, query string) (*geocode.Result, int, int, error) {
	if res, ok := memo.Get(query); ok {
		if res == nil {
			return nil, 0, 1, eris.Wrapf(geocode.ErrNotFound, "geocoding: %q (remembered)", query)
		}
		return res, 0, 1, nil
	}

	cfg := resilience.FixedInterval(r.opts.MaxAttempts, r.opts.RetryBackoff)
	cfg.Pacer = r.pacer
	cfg.Sleep = r.sleep
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, geocode.ErrTimeout) }
	cfg.OnRetry = resilience.RetryLogger("geocode", "lookup")

	res, attempts, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*geocode.Result, error) {
		return r.lookuper.Lookup(ctx, query)
	})
	if err == nil && res == nil {
		err = eris.Wrapf(geocode.ErrNotFound, "geocoding: %q (empty result)", query)
	}
	memo.Put(query, res, err)
	return res, attempts, 0, err
}

var errInvalidCoordinate = eris.New("geocoding: coordinate out of range")

func validCoordinate(c model.Coordinate) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180 && !c.IsZero()
}

func reason(err error) string {
	switch {
	case errors.Is(err, geocode.ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, geocode.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, errInvalidCoordinate):
		return ReasonInvalid
	default:
		return ReasonError
	}
}
