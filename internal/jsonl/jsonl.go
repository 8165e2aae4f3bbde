// Package jsonl dumps a repository to a JSON Lines file and loads one back.
// Files are written with a temp-file, fsync, rename sequence so a reader
// never sees a partial dump.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// Record is one line of a dump.
type Record struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
}

// ImportResult counts what Import did with each line.
type ImportResult struct {
	Imported int
	Skipped  int // already present
	Invalid  int // malformed JSON or failed validation
}

// Export writes every pokemon in repo to path, one per line in ascending
// number order, and returns how many were written.
func Export(ctx context.Context, repo types.Repository, path string) (int, error) {
	pokemons, err := repo.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching pokemons: %w", err)
	}

	lines := make([][]byte, 0, len(pokemons))
	for _, p := range pokemons {
		line, err := json.Marshal(Record{Number: p.Number.Int(), Name: p.Name.String(), Types: p.Types.Strings()})
		if err != nil {
			return 0, fmt.Errorf("marshaling pokemon %d: %w", p.Number.Int(), err)
		}
		lines = append(lines, line)
	}

	if err := writeLines(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// Import inserts every valid line of path into repo. Numbers already present
// are skipped; malformed or invalid lines are counted and skipped. Any other
// repository failure stops the import.
func Import(ctx context.Context, repo types.Repository, path string, logger *zap.Logger) (ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res ImportResult

	lines, err := readLines(path)
	if err != nil {
		return res, err
	}

	for i, line := range lines {
		log := logger.With(zap.String("file", path), zap.Int("line", i+1))

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn("skipping malformed line", zap.Error(err))
			res.Invalid++
			continue
		}
		p, err := types.ParsePokemon(rec.Number, rec.Name, rec.Types)
		if types.IsInvalid(err) {
			log.Warn("skipping invalid pokemon", zap.Error(err))
			res.Invalid++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("parsing line %d: %w", i+1, err)
		}

		_, err = repo.Insert(ctx, p.Number, p.Name, p.Types)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, types.ErrConflict):
			res.Skipped++
		default:
			return res, fmt.Errorf("inserting pokemon %d: %w", p.Number.Int(), err)
		}
	}
	return res, nil
}

// readLines returns the non-empty lines of path.
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// writeLines replaces path atomically with lines.
func writeLines(path string, lines [][]byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
