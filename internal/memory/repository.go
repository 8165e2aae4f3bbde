// Package memory implements an in-process Repository backed by a
// mutex-guarded slice. It is the reference backend and the usual test double;
// WithError builds a repository whose every operation fails.
package memory

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

var _ types.Repository = (*Repository)(nil)

// Repository stores pokemons in memory. All four operations take the lock
// exactly once and hold it for their whole scan-then-mutate.
type Repository struct {
	mu       sync.Mutex
	pokemons []types.Pokemon
	poisoned bool // set when an operation panicked while holding mu

	failing bool // fault injection, fixed at construction
	logger  *zap.Logger
}

// Option configures a Repository at construction.
type Option func(*Repository)

// WithError makes every operation return types.ErrUnknown before touching
// the collection.
func WithError() Option {
	return func(r *Repository) { r.failing = true }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty in-memory repository.
func New(opts ...Option) *Repository {
	r := &Repository{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("memory")
	return r
}

// locked runs fn with the collection lock held. A panic inside fn poisons the
// repository: it is reported as ErrUnknown now and on every later call.
func (r *Repository) locked(op string, fn func() error) (err error) {
	if r.failing {
		return types.ErrUnknown
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned {
		r.logger.Error("collection lock is poisoned", zap.String("op", op))
		return types.ErrUnknown
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.poisoned = true
			r.logger.Error("panic while holding collection lock",
				zap.String("op", op), zap.Any("panic", rec))
			err = types.ErrUnknown
		}
	}()

	return fn()
}

// indexOf returns the position of number in the collection or -1.
// The caller must hold r.mu.
func (r *Repository) indexOf(number types.Number) int {
	return slices.IndexFunc(r.pokemons, func(p types.Pokemon) bool {
		return p.Number == number
	})
}

// Insert appends a new pokemon after checking for a number collision.
func (r *Repository) Insert(_ context.Context, number types.Number, name types.Name, ts types.Types) (types.Pokemon, error) {
	var pokemon types.Pokemon
	err := r.locked("insert", func() error {
		if r.indexOf(number) >= 0 {
			return types.ErrConflict
		}
		pokemon = types.NewPokemon(number, name, ts)
		r.pokemons = append(r.pokemons, pokemon)
		return nil
	})
	if err != nil {
		return types.Pokemon{}, err
	}
	return pokemon, nil
}

// FetchAll returns a sorted copy of the collection.
func (r *Repository) FetchAll(_ context.Context) ([]types.Pokemon, error) {
	var pokemons []types.Pokemon
	err := r.locked("fetch_all", func() error {
		pokemons = slices.Clone(r.pokemons)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pokemons == nil {
		pokemons = []types.Pokemon{}
	}
	types.SortByNumber(pokemons)
	return pokemons, nil
}

// FetchOne returns the pokemon with the given number.
func (r *Repository) FetchOne(_ context.Context, number types.Number) (types.Pokemon, error) {
	var pokemon types.Pokemon
	err := r.locked("fetch_one", func() error {
		i := r.indexOf(number)
		if i < 0 {
			return types.ErrNotFound
		}
		pokemon = r.pokemons[i]
		return nil
	})
	if err != nil {
		return types.Pokemon{}, err
	}
	return pokemon, nil
}

// Delete removes the pokemon with the given number.
func (r *Repository) Delete(_ context.Context, number types.Number) error {
	return r.locked("delete", func() error {
		i := r.indexOf(number)
		if i < 0 {
			return types.ErrNotFound
		}
		r.pokemons = slices.Delete(r.pokemons, i, i+1)
		return nil
	})
}

// Len returns the number of stored pokemons, ignoring fault injection.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pokemons)
}
