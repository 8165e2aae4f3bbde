package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/pokedex/internal/airtable"
	"github.com/mesh-intelligence/pokedex/internal/airtable/airtabletest"
	"github.com/mesh-intelligence/pokedex/internal/memory"
	"github.com/mesh-intelligence/pokedex/internal/metrics"
	"github.com/mesh-intelligence/pokedex/internal/repotest"
	"github.com/mesh-intelligence/pokedex/internal/sqlite"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := Open(ctx, types.Config{Backend: types.BackendMemory}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.IsType(t, &memory.Repository{}, repo)
		assert.NoError(t, Close(repo))
	})

	t.Run("sqlite default file under data dir", func(t *testing.T) {
		dir := t.TempDir()
		repo, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: dir}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.IsType(t, &sqlite.Backend{}, repo)
		repotest.Insert(t, repo, repotest.MustPokemon(t, 25, "Pikachu", "Electric"))
		require.NoError(t, Close(repo))

		_, err = os.Stat(filepath.Join(dir, types.DefaultDatabaseFile))
		assert.NoError(t, err)
	})

	t.Run("airtable", func(t *testing.T) {
		srv := airtabletest.NewServer(t)
		repo, err := Open(ctx, types.Config{
			Backend: types.BackendAirtable,
			Airtable: types.AirtableConfig{
				APIKey:      airtabletest.APIKey,
				WorkspaceID: airtabletest.Workspace,
				BaseURL:     srv.BaseURL(),
				Table:       airtabletest.Table,
			},
		}, nil)
		require.NoError(t, err)
		assert.IsType(t, &airtable.Repository{}, repo)
		assert.NoError(t, Close(repo))
	})

	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
	}{
		{name: "empty backend", cfg: types.Config{}, wantErr: types.ErrBackendEmpty},
		{name: "unknown backend", cfg: types.Config{Backend: "mongo"}, wantErr: types.ErrBackendUnknown},
		{name: "postgres without dsn", cfg: types.Config{Backend: types.BackendPostgres}, wantErr: types.ErrDSNEmpty},
		{name: "airtable without key", cfg: types.Config{Backend: types.BackendAirtable}, wantErr: types.ErrAPIKeyEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := Open(ctx, tt.cfg, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, repo)
		})
	}

	t.Run("sqlite open failure", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "missing", "pokedex.db")
		_, err := Open(ctx, types.Config{Backend: types.BackendSQLite, SQL: types.SQLConfig{DSN: dsn}}, nil)
		assert.Error(t, err)
	})

	t.Run("airtable connectivity failure", func(t *testing.T) {
		srv := airtabletest.NewServer(t)
		_, err := Open(ctx, types.Config{
			Backend: types.BackendAirtable,
			Airtable: types.AirtableConfig{
				APIKey:      "WRONG",
				WorkspaceID: airtabletest.Workspace,
				BaseURL:     srv.BaseURL(),
			},
		}, nil)
		assert.Error(t, err)
	})
}

func TestClose_LooksThroughDecorators(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, zaptest.NewLogger(t))
	require.NoError(t, err)

	wrapped := metrics.Instrument(repo, types.BackendSQLite, metrics.NewRepositoryMetrics(nil))
	require.NoError(t, Close(wrapped))

	_, err = repo.FetchAll(ctx)
	assert.ErrorIs(t, err, types.ErrUnknown, "the wrapped backend is closed")
	assert.NoError(t, Close(metrics.Instrument(memory.New(), types.BackendMemory, metrics.NewRepositoryMetrics(nil))))
}
