package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/pokedex/internal/repotest"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// newTestBackend opens a fresh sqlite database in a temp directory.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), types.DefaultDatabaseFile)
	b, err := New(context.Background(), Config{Driver: DriverSQLite, DSN: dsn}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackend_Conformance(t *testing.T) {
	newRepo := func(t *testing.T) types.Repository { return newTestBackend(t) }
	repotest.Run(t, newRepo)
	repotest.RunConcurrent(t, newRepo)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), types.DefaultDatabaseFile)

	b, err := New(ctx, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	repotest.Insert(t, b, repotest.MustPokemon(t, 25, "Pikachu", "Electric"))
	require.NoError(t, b.Close())

	b, err = New(ctx, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.FetchOne(ctx, types.Number(25))
	require.NoError(t, err)
	assert.Equal(t, types.Name("Pikachu"), got.Name)
}

func TestNew_UnreachableDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "dir", types.DefaultDatabaseFile)
	_, err := New(context.Background(), Config{Driver: DriverSQLite, DSN: dsn}, nil)
	assert.Error(t, err)
}

func TestBackend_DeleteCascadesTypes(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	repotest.Insert(t, b, repotest.MustPokemon(t, 6, "Charizard", "Fire", "Flying"))

	require.NoError(t, b.Delete(ctx, types.Number(6)))

	var count int
	require.NoError(t, b.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM types WHERE pokemon_number = 6"))
	assert.Equal(t, 0, count, "deleting a pokemon removes its types")
}

func TestBackend_EnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	var enabled int
	require.NoError(t, b.db.GetContext(ctx, &enabled, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, enabled)

	_, err := b.db.ExecContext(ctx, "INSERT INTO types (pokemon_number, position, name) VALUES (7, 0, 'Water')")
	assert.Error(t, err, "a type row needs its pokemon")
}

func TestBackend_InsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// Make the second statement of the transaction fail.
	_, err := b.db.ExecContext(ctx, "DROP TABLE types")
	require.NoError(t, err)

	p := repotest.MustPokemon(t, 25, "Pikachu", "Electric")
	_, err = b.Insert(ctx, p.Number, p.Name, p.Types)
	assert.ErrorIs(t, err, types.ErrUnknown)

	var count int
	require.NoError(t, b.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM pokemons"))
	assert.Equal(t, 0, count, "header row must be rolled back")
}

func TestBackend_InvalidStoredRows(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
	}{
		{
			name: "empty name",
			setup: []string{
				"INSERT INTO pokemons (number, name) VALUES (25, '')",
				"INSERT INTO types (pokemon_number, position, name) VALUES (25, 0, 'Electric')",
			},
		},
		{
			name: "unknown type",
			setup: []string{
				"INSERT INTO pokemons (number, name) VALUES (25, 'Pikachu')",
				"INSERT INTO types (pokemon_number, position, name) VALUES (25, 0, 'Plasma')",
			},
		},
		{
			name: "no types",
			setup: []string{
				"INSERT INTO pokemons (number, name) VALUES (25, 'Pikachu')",
			},
		},
		{
			name: "number out of range",
			setup: []string{
				"INSERT INTO pokemons (number, name) VALUES (0, 'MissingNo')",
				"INSERT INTO types (pokemon_number, position, name) VALUES (0, 0, 'Normal')",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := newTestBackend(t)
			for _, stmt := range tt.setup {
				_, err := b.db.ExecContext(ctx, stmt)
				require.NoError(t, err)
			}

			_, err := b.FetchAll(ctx)
			assert.ErrorIs(t, err, types.ErrUnknown)
		})
	}

	t.Run("fetch one surfaces invalid row as unknown", func(t *testing.T) {
		ctx := context.Background()
		b := newTestBackend(t)
		_, err := b.db.ExecContext(ctx, "INSERT INTO pokemons (number, name) VALUES (25, 'Pikachu')")
		require.NoError(t, err)

		_, err = b.FetchOne(ctx, types.Number(25))
		assert.ErrorIs(t, err, types.ErrUnknown)
	})
}

func TestBackend_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, b.db.Close())

	p := repotest.MustPokemon(t, 25, "Pikachu", "Electric")
	_, err := b.Insert(ctx, p.Number, p.Name, p.Types)
	assert.ErrorIs(t, err, types.ErrUnknown)

	_, err = b.FetchAll(ctx)
	assert.ErrorIs(t, err, types.ErrUnknown)

	_, err = b.FetchOne(ctx, p.Number)
	assert.ErrorIs(t, err, types.ErrUnknown)

	assert.ErrorIs(t, b.Delete(ctx, p.Number), types.ErrUnknown)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}), "foreign key violation is not a conflict")
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)", withForeignKeys("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)", withForeignKeys("file:a.db?mode=rwc"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)", withForeignKeys("a.db?_pragma=foreign_keys(1)"))
}
