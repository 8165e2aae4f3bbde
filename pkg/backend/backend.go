// Package backend provides the public factory for pokedex repositories.
// It selects an implementation from types.Config while keeping the backend
// packages internal.
package backend

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/internal/airtable"
	"github.com/mesh-intelligence/pokedex/internal/memory"
	"github.com/mesh-intelligence/pokedex/internal/sqlite"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// Open validates cfg and returns the repository it names. Relational
// backends are connected and their schema created; the airtable backend
// checks its table once. Release the result with Close.
//
// Example:
//
//	repo, err := backend.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pokedex",
//	}, logger)
//	defer backend.Close(repo)
func Open(ctx context.Context, cfg types.Config, logger *zap.Logger) (types.Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case types.BackendMemory:
		return memory.New(memory.WithLogger(logger)), nil

	case types.BackendSQLite, types.BackendPostgres:
		sqlCfg := sqlite.Config{Driver: sqlite.DriverSQLite, DSN: cfg.SQLiteDSN()}
		if cfg.Backend == types.BackendPostgres {
			sqlCfg = sqlite.Config{Driver: sqlite.DriverPostgres, DSN: cfg.SQL.DSN}
		}
		b, err := sqlite.New(ctx, sqlCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
		}
		return b, nil

	case types.BackendAirtable:
		r, err := airtable.New(ctx, airtable.Config{
			APIKey:      cfg.Airtable.APIKey,
			WorkspaceID: cfg.Airtable.WorkspaceID,
			BaseURL:     cfg.Airtable.BaseURL,
			Table:       cfg.Airtable.Table,
			Timeout:     cfg.Airtable.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open airtable backend: %w", err)
		}
		return r, nil
	}

	return nil, types.ErrBackendUnknown
}

// Close releases repo if its backend holds resources. Decorators that expose
// the wrapped repository through Unwrap are looked through.
func Close(repo types.Repository) error {
	for repo != nil {
		if c, ok := repo.(io.Closer); ok {
			return c.Close()
		}
		u, ok := repo.(interface{ Unwrap() types.Repository })
		if !ok {
			return nil
		}
		repo = u.Unwrap()
	}
	return nil
}
