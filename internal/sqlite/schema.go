// Package sqlite implements the relational Repository backend. The same code
// serves SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq); queries are
// written with ? placeholders and rebound per driver through sqlx.
package sqlite

// Schema DDL. Both statements are valid SQLite and PostgreSQL.
const (
	createPokemons = `CREATE TABLE IF NOT EXISTS pokemons (
    number INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);`

	// position keeps the order of a pokemon's types across the round trip.
	createTypes = `CREATE TABLE IF NOT EXISTS types (
    pokemon_number INTEGER NOT NULL REFERENCES pokemons(number) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (pokemon_number, position)
);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createPokemons,
	createTypes,
}

// Statements used by the backend, with ? placeholders.
const (
	insertPokemonSQL = `INSERT INTO pokemons (number, name) VALUES (?, ?)`
	insertTypeSQL    = `INSERT INTO types (pokemon_number, position, name) VALUES (?, ?, ?)`
	selectPokemons   = `SELECT number, name FROM pokemons`
	selectTypesSQL   = `SELECT name FROM types WHERE pokemon_number = ? ORDER BY position ASC`
	deletePokemonSQL = `DELETE FROM pokemons WHERE number = ?`
)
