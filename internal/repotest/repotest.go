// Package repotest holds the behavioral test suite that every
// types.Repository implementation must pass. Backend packages call Run from
// their own tests with a constructor for a fresh, empty repository.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// Factory returns a new, empty repository for one subtest.
type Factory func(t *testing.T) types.Repository

// MustPokemon builds a valid pokemon or fails the test.
func MustPokemon(t *testing.T, number int, name string, ts ...string) types.Pokemon {
	t.Helper()
	p, err := types.ParsePokemon(number, name, ts)
	require.NoError(t, err)
	return p
}

// Insert stores p through repo and fails the test on error.
func Insert(t *testing.T, repo types.Repository, p types.Pokemon) {
	t.Helper()
	_, err := repo.Insert(context.Background(), p.Number, p.Name, p.Types)
	require.NoError(t, err)
}

func numbers(pokemons []types.Pokemon) []int {
	out := make([]int, len(pokemons))
	for i, p := range pokemons {
		out[i] = p.Number.Int()
	}
	return out
}

// Run executes the shared repository behavior suite.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("insert then fetch one returns the same values", func(t *testing.T) {
		repo := newRepo(t)
		want := MustPokemon(t, 6, "Charizard", "Fire", "Flying")

		got, err := repo.Insert(ctx, want.Number, want.Name, want.Types)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "insert returns the stored pokemon")

		fetched, err := repo.FetchOne(ctx, want.Number)
		require.NoError(t, err)
		assert.Equal(t, want.Number, fetched.Number)
		assert.Equal(t, want.Name, fetched.Name)
		assert.Equal(t, []string{"Fire", "Flying"}, fetched.Types.Strings())
	})

	t.Run("second insert of same number conflicts and keeps the first", func(t *testing.T) {
		repo := newRepo(t)
		pikachu := MustPokemon(t, 25, "Pikachu", "Electric")
		raichu := MustPokemon(t, 25, "Raichu", "Electric")

		_, err := repo.Insert(ctx, pikachu.Number, pikachu.Name, pikachu.Types)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, raichu.Number, raichu.Name, raichu.Types)
		assert.ErrorIs(t, err, types.ErrConflict)

		got, err := repo.FetchOne(ctx, pikachu.Number)
		require.NoError(t, err)
		assert.Equal(t, types.Name("Pikachu"), got.Name)
		assert.Equal(t, []string{"Electric"}, got.Types.Strings())

		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("fetch all on empty store returns empty list", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("fetch all is ordered by number regardless of insertion order", func(t *testing.T) {
		repo := newRepo(t)
		for _, p := range []types.Pokemon{
			MustPokemon(t, 150, "Mewtwo", "Psychic"),
			MustPokemon(t, 4, "Charmander", "Fire"),
			MustPokemon(t, 25, "Pikachu", "Electric"),
			MustPokemon(t, 1, "Bulbasaur", "Grass", "Poison"),
		} {
			Insert(t, repo, p)
		}

		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 25, 150}, numbers(all))
		assert.Equal(t, []string{"Grass", "Poison"}, all[0].Types.Strings())
	})

	t.Run("fetch one of absent number is not found", func(t *testing.T) {
		repo := newRepo(t)
		n, err := types.NewNumber(898)
		require.NoError(t, err)

		_, err = repo.FetchOne(ctx, n)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("delete of absent number is not found and leaves the store unchanged", func(t *testing.T) {
		repo := newRepo(t)
		Insert(t, repo, MustPokemon(t, 25, "Pikachu", "Electric"))

		err := repo.Delete(ctx, types.Number(26))
		assert.ErrorIs(t, err, types.ErrNotFound)

		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete of present number removes exactly that pokemon", func(t *testing.T) {
		repo := newRepo(t)
		Insert(t, repo, MustPokemon(t, 4, "Charmander", "Fire"))
		Insert(t, repo, MustPokemon(t, 25, "Pikachu", "Electric"))
		Insert(t, repo, MustPokemon(t, 26, "Raichu", "Electric"))

		require.NoError(t, repo.Delete(ctx, types.Number(25)))

		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 26}, numbers(all))

		_, err = repo.FetchOne(ctx, types.Number(25))
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("number can be reused after delete", func(t *testing.T) {
		repo := newRepo(t)
		Insert(t, repo, MustPokemon(t, 25, "Pikachu", "Electric"))
		require.NoError(t, repo.Delete(ctx, types.Number(25)))

		Insert(t, repo, MustPokemon(t, 25, "Raichu", "Electric", "Fairy"))

		got, err := repo.FetchOne(ctx, types.Number(25))
		require.NoError(t, err)
		assert.Equal(t, types.Name("Raichu"), got.Name)
		assert.Equal(t, []string{"Electric", "Fairy"}, got.Types.Strings())
	})
}

// RunConcurrent checks that concurrent inserts of one number produce exactly
// one success. Backends without app-level serialization skip it.
func RunConcurrent(t *testing.T, newRepo Factory) {
	t.Run("concurrent inserts of one number yield a single winner", func(t *testing.T) {
		repo := newRepo(t)
		p := MustPokemon(t, 133, "Eevee", "Normal")

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			conflicts int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Insert(context.Background(), p.Number, p.Name, p.Types)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, types.ErrConflict):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, workers-1, conflicts)
	})
}
