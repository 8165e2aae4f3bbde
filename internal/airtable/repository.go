// Package airtable implements a Repository backed by an Airtable table
// reached over its REST API. Every operation is one or two blocking round
// trips with no retry; records read back are validated again before use.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/pkg/types"
)

var _ types.Repository = (*Repository)(nil)

// Defaults applied by New.
const (
	DefaultBaseURL = "https://api.airtable.com/v0"
	DefaultTable   = "pokemons"
)

// Config holds the connection parameters.
type Config struct {
	APIKey      string
	WorkspaceID string
	BaseURL     string // default DefaultBaseURL
	Table       string // default DefaultTable
	Timeout     time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Construction errors.
var (
	ErrMissingAPIKey    = errors.New("airtable api key is required")
	ErrMissingWorkspace = errors.New("airtable workspace id is required")
)

// Repository implements types.Repository over the Airtable REST API. Its
// fields are fixed at construction; concurrent calls may overlap on the
// network, so two callers racing to insert the same number can both pass
// the existence check.
type Repository struct {
	url    string
	client *client
	logger *zap.Logger
}

// recordList is the list/create envelope. Offset is set on a list page when
// more pages follow.
type recordList struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type record struct {
	ID     string `json:"id,omitempty"`
	Fields fields `json:"fields"`
}

type fields struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
}

// row is a remote record that passed validation.
type row struct {
	id      string
	pokemon types.Pokemon
}

// New builds the repository and checks the table with one authenticated
// list call. It fails if the endpoint is unreachable or rejects the key.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Repository, error) {
	r, err := newRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := r.client.do(ctx, http.MethodGet, r.url, nil); err != nil {
		return nil, fmt.Errorf("check airtable: %w", err)
	}
	return r, nil
}

// newRepository builds the repository without touching the network.
func newRepository(cfg Config, logger *zap.Logger) (*Repository, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WorkspaceID == "" {
		return nil, ErrMissingWorkspace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	return &Repository{
		url:    strings.TrimRight(base, "/") + "/" + url.PathEscape(cfg.WorkspaceID) + "/" + url.PathEscape(table),
		client: newClient(cfg.APIKey, cfg.Timeout, cfg.HTTPClient),
		logger: logger.Named("airtable"),
	}, nil
}

// Insert checks that no record carries number, then creates one.
func (r *Repository) Insert(ctx context.Context, number types.Number, name types.Name, ts types.Types) (types.Pokemon, error) {
	log := r.logger.With(zap.Int("number", number.Int()))

	rows, err := r.fetchRows(ctx, &number)
	if err != nil {
		log.Error("checking for existing record", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}
	if len(rows) > 0 {
		return types.Pokemon{}, types.ErrConflict
	}

	body := recordList{Records: []record{{
		Fields: fields{
			Number: number.Int(),
			Name:   name.String(),
			Types:  ts.Strings(),
		},
	}}}
	if err := r.client.post(ctx, r.url, body); err != nil {
		log.Error("creating record", zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}

	return types.NewPokemon(number, name, ts), nil
}

// FetchAll lists the table sorted by number. Any invalid record fails the
// whole call.
func (r *Repository) FetchAll(ctx context.Context) ([]types.Pokemon, error) {
	rows, err := r.fetchRows(ctx, nil)
	if err != nil {
		r.logger.Error("listing records", zap.Error(err))
		return nil, types.ErrUnknown
	}

	pokemons := make([]types.Pokemon, len(rows))
	for i, row := range rows {
		pokemons[i] = row.pokemon
	}
	types.SortByNumber(pokemons)
	return pokemons, nil
}

// FetchOne returns the record filtered by number.
func (r *Repository) FetchOne(ctx context.Context, number types.Number) (types.Pokemon, error) {
	rows, err := r.fetchRows(ctx, &number)
	if err != nil {
		r.logger.Error("fetching record", zap.Int("number", number.Int()), zap.Error(err))
		return types.Pokemon{}, types.ErrUnknown
	}
	if len(rows) == 0 {
		return types.Pokemon{}, types.ErrNotFound
	}
	return rows[0].pokemon, nil
}

// Delete looks up the record id for number and deletes that record.
func (r *Repository) Delete(ctx context.Context, number types.Number) error {
	log := r.logger.With(zap.Int("number", number.Int()))

	rows, err := r.fetchRows(ctx, &number)
	if err != nil {
		log.Error("looking up record", zap.Error(err))
		return types.ErrUnknown
	}
	if len(rows) == 0 {
		return types.ErrNotFound
	}

	if err := r.client.delete(ctx, r.url+"/"+url.PathEscape(rows[0].id)); err != nil {
		log.Error("deleting record", zap.String("record_id", rows[0].id), zap.Error(err))
		return types.ErrUnknown
	}
	return nil
}

// errMissingID reports a listed record without a record id.
var errMissingID = errors.New("record has no id")

// fetchRows lists records, filtered by number when given, and validates each
// one. It follows the offset cursor until the last page; a failed page fails
// the whole listing. Records whose number differs from the filter are dropped.
func (r *Repository) fetchRows(ctx context.Context, number *types.Number) ([]row, error) {
	q := url.Values{}
	if number != nil {
		q.Set("filterByFormula", fmt.Sprintf("number=%d", number.Int()))
	} else {
		q.Set("sort[0][field]", "number")
	}

	var rows []row
	seen := make(map[string]bool)
	for {
		var list recordList
		if err := r.client.get(ctx, r.url+"?"+q.Encode(), &list); err != nil {
			return nil, err
		}

		for _, rec := range list.Records {
			if rec.ID == "" {
				return nil, errMissingID
			}
			p, err := types.ParsePokemon(rec.Fields.Number, rec.Fields.Name, rec.Fields.Types)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.ID, err)
			}
			if number != nil && p.Number != *number {
				continue
			}
			rows = append(rows, row{id: rec.ID, pokemon: p})
		}

		if list.Offset == "" {
			return rows, nil
		}
		if seen[list.Offset] {
			return nil, fmt.Errorf("offset %q repeated", list.Offset)
		}
		seen[list.Offset] = true
		q.Set("offset", list.Offset)
	}
}
