// Package metrics instruments repositories with Prometheus counters and
// latency histograms.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// Operation label values.
const (
	OpInsert   = "insert"
	OpFetchAll = "fetch_all"
	OpFetchOne = "fetch_one"
	OpDelete   = "delete"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeUnknown  = "unknown"
)

// RepositoryMetrics holds the collectors shared by instrumented repositories.
type RepositoryMetrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewRepositoryMetrics registers the repository collectors with reg. A nil
// reg leaves them unregistered.
func NewRepositoryMetrics(reg prometheus.Registerer) *RepositoryMetrics {
	factory := promauto.With(reg)
	return &RepositoryMetrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_repository_operations_total",
				Help: "Total number of repository operations",
			},
			[]string{"backend", "operation", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokedex_repository_operation_duration_seconds",
				Help:    "Repository operation latency in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"backend", "operation"},
		),
	}
}

// Repository wraps a types.Repository and records every call. Errors pass
// through unchanged.
type Repository struct {
	next    types.Repository
	backend string
	m       *RepositoryMetrics
}

var _ types.Repository = (*Repository)(nil)

// Instrument wraps repo, labelling its metrics with backend.
func Instrument(repo types.Repository, backend string, m *RepositoryMetrics) *Repository {
	return &Repository{next: repo, backend: backend, m: m}
}

// Unwrap returns the instrumented repository.
func (r *Repository) Unwrap() types.Repository { return r.next }

func (r *Repository) observe(op string, start time.Time, err error) {
	r.m.Duration.WithLabelValues(r.backend, op).Observe(time.Since(start).Seconds())
	r.m.Operations.WithLabelValues(r.backend, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, types.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, types.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeUnknown
	}
}

func (r *Repository) Insert(ctx context.Context, number types.Number, name types.Name, ts types.Types) (types.Pokemon, error) {
	start := time.Now()
	p, err := r.next.Insert(ctx, number, name, ts)
	r.observe(OpInsert, start, err)
	return p, err
}

func (r *Repository) FetchAll(ctx context.Context) ([]types.Pokemon, error) {
	start := time.Now()
	pokemons, err := r.next.FetchAll(ctx)
	r.observe(OpFetchAll, start, err)
	return pokemons, err
}

func (r *Repository) FetchOne(ctx context.Context, number types.Number) (types.Pokemon, error) {
	start := time.Now()
	p, err := r.next.FetchOne(ctx, number)
	r.observe(OpFetchOne, start, err)
	return p, err
}

func (r *Repository) Delete(ctx context.Context, number types.Number) error {
	start := time.Now()
	err := r.next.Delete(ctx, number)
	r.observe(OpDelete, start, err)
	return err
}
