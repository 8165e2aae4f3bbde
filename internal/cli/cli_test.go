package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pokedex/internal/memory"
	"github.com/mesh-intelligence/pokedex/internal/paths"
	"github.com/mesh-intelligence/pokedex/internal/service"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// harness runs the CLI against isolated config and data directories.
type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
	opts      []Option
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	for _, key := range []string{
		paths.EnvConfigDir, "POKEDEX_BACKEND", "POKEDEX_DATA_DIR", "POKEDEX_SQL_DSN",
		"POKEDEX_LOG_LEVEL", "POKEDEX_HTTP_ADDR",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &harness{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
		opts:      append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...),
	}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...)
	opts := append([]Option{WithOutput(&stdout, &stderr)}, h.opts...)
	code := Run(full, opts...)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// captureOpener records the config it is asked to open and serves repo.
func captureOpener(repo types.Repository, got *types.Config) Option {
	return WithOpener(func(_ context.Context, cfg types.Config, _ *zap.Logger) (types.Repository, error) {
		*got = cfg
		return repo, nil
	})
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	res := h.run("version")
	assert.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "pokedex v"+Version)
	assert.Contains(t, res.stdout, modulePath)
}

func TestInit(t *testing.T) {
	h := newHarness(t)

	res := h.run("init")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Pokedex initialized successfully")

	data, err := os.ReadFile(filepath.Join(h.configDir, "config.yaml"))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, h.dataDir, cfg.DataDir)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)

	_, err = os.Stat(filepath.Join(h.dataDir, types.DefaultDatabaseFile))
	assert.NoError(t, err)

	t.Run("keeps an existing config", func(t *testing.T) {
		path := filepath.Join(h.configDir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend: memory\n"), 0o644))
		res := h.run("init")
		require.Equal(t, exitSuccess, res.code, res.stderr)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "backend: memory\n", string(data))
	})
}

func TestCatalogCommands_SQLite(t *testing.T) {
	h := newHarness(t)

	res := h.run("create", "--number", "25", "--name", "Pikachu", "--types", "Electric")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t, "Number: 25\nName: Pikachu\nTypes: [\"Electric\"]\n", res.stdout)

	res = h.run("create", "--number", "6", "--name", "Charizard", "--types", "Fire,Flying")
	require.Equal(t, exitSuccess, res.code, res.stderr)

	res = h.run("get", "25")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t, "Number: 25\nName: Pikachu\nTypes: [\"Electric\"]\n", res.stdout)

	res = h.run("list")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t,
		"Number: 6\nName: Charizard\nTypes: [\"Fire\",\"Flying\"]\n\n"+
			"Number: 25\nName: Pikachu\nTypes: [\"Electric\"]\n",
		res.stdout)

	res = h.run("--json", "get", "6")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	var got service.PokemonResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, service.PokemonResponse{Number: 6, Name: "Charizard", Types: []string{"Fire", "Flying"}}, got)

	res = h.run("delete", "25")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t, "Deleted pokemon 25\n", res.stdout)

	res = h.run("get", "25")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "pokemon not found")
}

func TestCatalogCommands_UserErrors(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, exitSuccess, h.run("create", "--number", "25", "--name", "Pikachu", "--types", "Electric").code)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "invalid number", args: []string{"create", "--number", "0", "--name", "Missingno", "--types", "Normal"}, wantMsg: "invalid request"},
		{name: "unknown type", args: []string{"create", "--number", "26", "--name", "Raichu", "--types", "electric"}, wantMsg: "invalid request"},
		{name: "missing types", args: []string{"create", "--number", "26", "--name", "Raichu"}, wantMsg: "invalid request"},
		{name: "duplicate", args: []string{"create", "--number", "25", "--name", "Raichu", "--types", "Electric"}, wantMsg: "pokemon already exists"},
		{name: "get absent", args: []string{"get", "150"}, wantMsg: "pokemon not found"},
		{name: "get zero", args: []string{"get", "0"}, wantMsg: "invalid request"},
		{name: "get non-integer", args: []string{"get", "pikachu"}, wantMsg: "invalid request"},
		{name: "delete absent", args: []string{"delete", "150"}, wantMsg: "pokemon not found"},
		{name: "missing argument", args: []string{"get"}, wantMsg: "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.run(tt.args...)
			assert.Equal(t, exitUserError, res.code)
			assert.Contains(t, res.stderr, tt.wantMsg)
		})
	}
}

func TestBadLogLevelWithoutOverride(t *testing.T) {
	h := newHarness(t)
	h.opts = nil
	res := h.run("--log-level", "loud", "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "parse log level")
}

func TestSystemErrors(t *testing.T) {
	t.Run("backend failure", func(t *testing.T) {
		var cfg types.Config
		h := newHarness(t, captureOpener(memory.New(memory.WithError()), &cfg))
		res := h.run("list")
		assert.Equal(t, exitSysError, res.code)
		assert.Contains(t, res.stderr, "an unknown error occurred")
	})

	t.Run("open failure", func(t *testing.T) {
		h := newHarness(t, WithOpener(func(context.Context, types.Config, *zap.Logger) (types.Repository, error) {
			return nil, errors.New("connection refused")
		}))
		res := h.run("list")
		assert.Equal(t, exitSysError, res.code)
		assert.Contains(t, res.stderr, "connection refused")
	})

	t.Run("unknown backend", func(t *testing.T) {
		h := newHarness(t)
		res := h.run("--backend", "mongo", "list")
		assert.Equal(t, exitSysError, res.code)
		assert.Contains(t, res.stderr, "unknown backend")
	})

	t.Run("malformed config file", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, os.MkdirAll(h.configDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(h.configDir, "config.yaml"), []byte("backend: [\n"), 0o644))
		res := h.run("list")
		assert.Equal(t, exitSysError, res.code)
		assert.Contains(t, res.stderr, "read config")
	})
}

func TestConfigPrecedence(t *testing.T) {
	writeConfig := func(t *testing.T, h *harness, body string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(h.configDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(h.configDir, "config.yaml"), []byte(body), 0o644))
	}

	t.Run("defaults", func(t *testing.T) {
		var cfg types.Config
		h := newHarness(t, captureOpener(memory.New(), &cfg))
		require.Equal(t, exitSuccess, h.run("list").code)
		assert.Equal(t, types.BackendSQLite, cfg.Backend)
		assert.Equal(t, h.dataDir, cfg.DataDir)
		assert.Equal(t, 10*time.Second, cfg.Airtable.Timeout)
	})

	t.Run("config file", func(t *testing.T) {
		var cfg types.Config
		h := newHarness(t, captureOpener(memory.New(), &cfg))
		writeConfig(t, h, "backend: airtable\nairtable:\n  api_key: key\n  workspace_id: app1\n  timeout: 3s\n")
		require.Equal(t, exitSuccess, h.run("list").code)
		assert.Equal(t, types.BackendAirtable, cfg.Backend)
		assert.Equal(t, "key", cfg.Airtable.APIKey)
		assert.Equal(t, "app1", cfg.Airtable.WorkspaceID)
		assert.Equal(t, 3*time.Second, cfg.Airtable.Timeout)
	})

	t.Run("environment over config file", func(t *testing.T) {
		var cfg types.Config
		h := newHarness(t, captureOpener(memory.New(), &cfg))
		writeConfig(t, h, "backend: sqlite\n")
		t.Setenv("POKEDEX_BACKEND", "postgres")
		t.Setenv("POKEDEX_SQL_DSN", "postgres://localhost/pokedex")
		require.Equal(t, exitSuccess, h.run("list").code)
		assert.Equal(t, types.BackendPostgres, cfg.Backend)
		assert.Equal(t, "postgres://localhost/pokedex", cfg.SQL.DSN)
	})

	t.Run("flag over environment", func(t *testing.T) {
		var cfg types.Config
		h := newHarness(t, captureOpener(memory.New(), &cfg))
		t.Setenv("POKEDEX_BACKEND", "postgres")
		require.Equal(t, exitSuccess, h.run("--backend", "memory", "list").code)
		assert.Equal(t, types.BackendMemory, cfg.Backend)
	})
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, exitSuccess, h.run("create", "--number", "25", "--name", "Pikachu", "--types", "Electric").code)
	require.Equal(t, exitSuccess, h.run("create", "--number", "1", "--name", "Bulbasaur", "--types", "Grass,Poison").code)

	dump := filepath.Join(t.TempDir(), "dump.jsonl")
	res := h.run("export", dump)
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Exported 2 pokemon")

	other := newHarness(t)
	res = other.run("import", dump)
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t, "Imported 2, skipped 0 existing, 0 invalid\n", res.stdout)

	res = other.run("import", dump)
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Equal(t, "Imported 0, skipped 2 existing, 0 invalid\n", res.stdout)

	res = other.run("import", filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Equal(t, exitUserError, res.code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "bad request", err: service.ErrBadRequest, want: exitUserError},
		{name: "conflict", err: types.ErrConflict, want: exitUserError},
		{name: "not found", err: types.ErrNotFound, want: exitUserError},
		{name: "unknown", err: types.ErrUnknown, want: exitSysError},
		{name: "wrapped unknown", err: errors.Join(errors.New("export"), types.ErrUnknown), want: exitSysError},
		{name: "tagged system", err: sysError(errors.New("disk full")), want: exitSysError},
		{name: "untagged", err: errors.New("unknown flag"), want: exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
