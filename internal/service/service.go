// Package service holds the use cases the HTTP API and the CLI call. Each
// one builds the entity from raw input, so invalid input is rejected with
// ErrBadRequest before the repository is reached, and returns repository
// errors unchanged.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// ErrBadRequest reports input that fails entity validation.
var ErrBadRequest = errors.New("bad request")

// CreateRequest is the raw input for Create.
type CreateRequest struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
}

// PokemonResponse is the transport form of a pokemon.
type PokemonResponse struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
}

// NewPokemonResponse converts an entity.
func NewPokemonResponse(p types.Pokemon) PokemonResponse {
	return PokemonResponse{
		Number: p.Number.Int(),
		Name:   p.Name.String(),
		Types:  p.Types.Strings(),
	}
}

// Service runs use cases against one repository.
type Service struct {
	repo   types.Repository
	logger *zap.Logger
}

// New returns a Service over repo.
func New(repo types.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("service")}
}

// Create validates req and inserts it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (PokemonResponse, error) {
	p, err := types.ParsePokemon(req.Number, req.Name, req.Types)
	if err != nil {
		s.logger.Debug("rejecting create", zap.Int("number", req.Number), zap.Error(err))
		return PokemonResponse{}, ErrBadRequest
	}

	created, err := s.repo.Insert(ctx, p.Number, p.Name, p.Types)
	if err != nil {
		return PokemonResponse{}, err
	}
	return NewPokemonResponse(created), nil
}

// FetchAll returns every stored pokemon in ascending number order.
func (s *Service) FetchAll(ctx context.Context) ([]PokemonResponse, error) {
	pokemons, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PokemonResponse, len(pokemons))
	for i, p := range pokemons {
		out[i] = NewPokemonResponse(p)
	}
	return out, nil
}

// FetchOne returns the pokemon stored under number.
func (s *Service) FetchOne(ctx context.Context, number int) (PokemonResponse, error) {
	n, err := s.parseNumber(number)
	if err != nil {
		return PokemonResponse{}, err
	}
	p, err := s.repo.FetchOne(ctx, n)
	if err != nil {
		return PokemonResponse{}, err
	}
	return NewPokemonResponse(p), nil
}

// Delete removes the pokemon stored under number.
func (s *Service) Delete(ctx context.Context, number int) error {
	n, err := s.parseNumber(number)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, n)
}

func (s *Service) parseNumber(number int) (types.Number, error) {
	n, err := types.NewNumber(number)
	if err != nil {
		s.logger.Debug("rejecting number", zap.Int("number", number), zap.Error(err))
		return 0, ErrBadRequest
	}
	return n, nil
}
