package types

import (
	"context"
	"errors"
)

// Repository is the storage boundary for pokemons. Every backend (memory,
// sqlite, airtable) implements it with the same observable behavior:
// conflicts are detected by Number alone, FetchAll is ordered by ascending
// Number, and a missing Number is always reported as ErrNotFound.
//
// Implementations return the sentinel errors below unwrapped. Diagnostic
// detail is logged by the backend and never carried in the error.
type Repository interface {
	// Insert stores a new pokemon.
	// Returns ErrConflict if the number is already present.
	Insert(ctx context.Context, number Number, name Name, types Types) (Pokemon, error)

	// FetchAll returns every pokemon ordered by ascending number.
	FetchAll(ctx context.Context) ([]Pokemon, error)

	// FetchOne returns the pokemon with the given number.
	// Returns ErrNotFound if no such pokemon exists.
	FetchOne(ctx context.Context, number Number) (Pokemon, error)

	// Delete removes the pokemon with the given number.
	// Returns ErrNotFound if no such pokemon exists.
	Delete(ctx context.Context, number Number) error
}

// Repository operation errors.
var (
	ErrConflict = errors.New("pokemon already exists")
	ErrNotFound = errors.New("pokemon not found")
	ErrUnknown  = errors.New("unknown repository error")
)

// Entity constructor errors. They do not say which rule was broken.
var (
	ErrInvalidNumber = errors.New("invalid pokemon number")
	ErrInvalidName   = errors.New("invalid pokemon name")
	ErrInvalidTypes  = errors.New("invalid pokemon types")
)

// IsInvalid reports whether err came from one of the entity constructors.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidNumber) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidTypes)
}
