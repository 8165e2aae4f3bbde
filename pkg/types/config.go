package types

import (
	"errors"
	"path/filepath"
	"time"
)

// Config holds backend selection and parameters for pkg/backend.Open.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	SQL      SQLConfig      `json:"sql" yaml:"sql" mapstructure:"sql"`
	Airtable AirtableConfig `json:"airtable" yaml:"airtable" mapstructure:"airtable"`
}

// SQLConfig configures the relational backends.
type SQLConfig struct {
	// DSN is the driver connection string. For sqlite an empty DSN selects
	// DefaultDatabaseFile under DataDir.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// AirtableConfig configures the remote backend.
type AirtableConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	WorkspaceID string        `json:"workspace_id" yaml:"workspace_id" mapstructure:"workspace_id"`
	BaseURL     string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Table       string        `json:"table" yaml:"table" mapstructure:"table"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendAirtable = "airtable"
)

// DefaultDatabaseFile is the sqlite file created under DataDir when no DSN
// is configured.
const DefaultDatabaseFile = "pokedex.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDSNEmpty       = errors.New("sql dsn must not be empty")
	ErrAPIKeyEmpty    = errors.New("airtable api key must not be empty")
	ErrWorkspaceEmpty = errors.New("airtable workspace id must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendAirtable: true,
}

// Validate checks that the Config is well-formed for its backend. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendPostgres:
		if c.SQL.DSN == "" {
			return ErrDSNEmpty
		}
	case BackendAirtable:
		if c.Airtable.APIKey == "" {
			return ErrAPIKeyEmpty
		}
		if c.Airtable.WorkspaceID == "" {
			return ErrWorkspaceEmpty
		}
	}
	return nil
}

// SQLiteDSN returns the configured DSN, or the default database file under
// DataDir when none is set.
func (c Config) SQLiteDSN() string {
	if c.SQL.DSN != "" {
		return c.SQL.DSN
	}
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, DefaultDatabaseFile)
}
