package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

var _ types.Repository = (*Backend)(nil)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the driver and connection string.
type Config struct {
	Driver string
	DSN    string
}

// Backend implements types.Repository over a relational database. It holds a
// single connection; every operation, including the multi-statement insert
// transaction, runs under mu so callers serialize on the connection.
type Backend struct {
	mu     sync.Mutex
	db     *sqlx.DB
	logger *zap.Logger
}

// pokemonRow is a header row as stored, before validation.
type pokemonRow struct {
	Number int    `db:"number"`
	Name   string `db:"name"`
}

// New opens the database, pins it to one connection, verifies connectivity
// and creates the schema if it does not exist.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := cfg.DSN
	if driver == DriverSQLite {
		dsn = withForeignKeys(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Backend{
		db:     db,
		logger: logger.Named("sqlite").With(zap.String("driver", driver)),
	}, nil
}

// withForeignKeys adds the foreign_keys pragma to a sqlite DSN so that
// deleting a pokemon cascades to its types on every connection.
func withForeignKeys(dsn string) string {
	const pragma = "_pragma=foreign_keys(1)"
	if strings.Contains(dsn, pragma) {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragma
	}
	return dsn + "?" + pragma
}

// Close releases the database handle.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

// Insert writes the header row and one row per type in a single
// transaction. Nothing is committed unless every statement succeeds.
func (b *Backend) Insert(ctx context.Context, number types.Number, name types.Name, ts types.Types) (types.Pokemon, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.logger.With(zap.Int("number", number.Int()))

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error("beginning transaction", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, b.db.Rebind(insertPokemonSQL), number.Int(), name.String()); err != nil {
		if isUniqueViolation(err) {
			return types.Pokemon{}, types.ErrConflict
		}
		log.Error("inserting pokemon", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}

	for i, t := range ts.Strings() {
		if _, err := tx.ExecContext(ctx, b.db.Rebind(insertTypeSQL), number.Int(), i, t); err != nil {
			log.Error("inserting type", zap.String("type", t), zap.Error(err))
			return types.Pokemon{}, types.ErrUnknown
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("committing transaction", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}

	return types.NewPokemon(number, name, ts), nil
}

// FetchAll reads every header row in number order and assembles each
// pokemon with its types.
func (b *Backend) FetchAll(ctx context.Context) ([]types.Pokemon, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.fetchPokemonRows(ctx, nil)
	if err != nil {
		b.logger.Error("fetching pokemon rows", zap.Error(err))
		return nil, types.ErrUnknown
	}

	pokemons := make([]types.Pokemon, 0, len(rows))
	for _, row := range rows {
		p, err := b.assemble(ctx, row)
		if err != nil {
			b.logger.Error("assembling pokemon", zap.Int("number", row.Number), zap.Error(err))
			return nil, types.ErrUnknown
		}
		pokemons = append(pokemons, p)
	}

	// Presentation order does not depend on the query plan.
	types.SortByNumber(pokemons)
	return pokemons, nil
}

// FetchOne returns the pokemon stored under number.
func (b *Backend) FetchOne(ctx context.Context, number types.Number) (types.Pokemon, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.logger.With(zap.Int("number", number.Int()))

	rows, err := b.fetchPokemonRows(ctx, &number)
	if err != nil {
		log.Error("fetching pokemon row", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}
	if len(rows) == 0 {
		return types.Pokemon{}, types.ErrNotFound
	}

	p, err := b.assemble(ctx, rows[0])
	if err != nil {
		log.Error("assembling pokemon", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}
	return p, nil
}

// Delete removes the header row; the foreign key cascade removes its types.
func (b *Backend) Delete(ctx context.Context, number types.Number) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.logger.With(zap.Int("number", number.Int()))

	res, err := b.db.ExecContext(ctx, b.db.Rebind(deletePokemonSQL), number.Int())
	if err != nil {
		log.Error("deleting pokemon", zap.Error(err))
		return types.ErrUnknown
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Error("reading affected rows", zap.Error(err))
		return types.ErrUnknown
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// fetchPokemonRows selects header rows, optionally filtered by number.
// The caller must hold b.mu.
func (b *Backend) fetchPokemonRows(ctx context.Context, number *types.Number) ([]pokemonRow, error) {
	query := selectPokemons
	var args []any
	if number != nil {
		query += " WHERE number = ?"
		args = append(args, number.Int())
	}
	query += " ORDER BY number ASC"

	var rows []pokemonRow
	if err := b.db.SelectContext(ctx, &rows, b.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// fetchTypeRows selects the type names of one pokemon in stored order.
// The caller must hold b.mu.
func (b *Backend) fetchTypeRows(ctx context.Context, number int) ([]string, error) {
	var names []string
	if err := b.db.SelectContext(ctx, &names, b.db.Rebind(selectTypesSQL), number); err != nil {
		return nil, err
	}
	return names, nil
}

// errInvalidRow marks stored data that fails entity validation.
var errInvalidRow = errors.New("stored row fails validation")

// assemble reads the types of row and re-validates the whole record through
// the entity constructors. The caller must hold b.mu.
func (b *Backend) assemble(ctx context.Context, row pokemonRow) (types.Pokemon, error) {
	names, err := b.fetchTypeRows(ctx, row.Number)
	if err != nil {
		return types.Pokemon{}, fmt.Errorf("fetching types: %w", err)
	}
	p, err := types.ParsePokemon(row.Number, row.Name, names)
	if err != nil {
		return types.Pokemon{}, fmt.Errorf("%w: %w", errInvalidRow, err)
	}
	return p, nil
}
