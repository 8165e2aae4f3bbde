package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pokedex/internal/airtable"
	"github.com/mesh-intelligence/pokedex/internal/api"
	"github.com/mesh-intelligence/pokedex/internal/logging"
	"github.com/mesh-intelligence/pokedex/internal/paths"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "POKEDEX"
)

// Config keys.
const (
	cfgKeyBackend           = "backend"
	cfgKeyDataDir           = "data_dir"
	cfgKeySQLDSN            = "sql.dsn"
	cfgKeyAirtableAPIKey    = "airtable.api_key"
	cfgKeyAirtableWorkspace = "airtable.workspace_id"
	cfgKeyAirtableBaseURL   = "airtable.base_url"
	cfgKeyAirtableTable     = "airtable.table"
	cfgKeyAirtableTimeout   = "airtable.timeout"
	cfgKeyHTTPAddr          = "http.addr"
	cfgKeyLogLevel          = "log.level"
	cfgKeyLogFormat         = "log.format"
)

const defaultAirtableTimeout = 10 * time.Second

// settings is the resolved configuration of one invocation.
type settings struct {
	ConfigDir string
	Backend   types.Config
	HTTPAddr  string
	LogLevel  string
	LogFormat string
}

// newViper returns a viper instance with defaults and POKEDEX_* environment
// overrides; every key has a default so AutomaticEnv can see it.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeySQLDSN, "")
	v.SetDefault(cfgKeyAirtableAPIKey, "")
	v.SetDefault(cfgKeyAirtableWorkspace, "")
	v.SetDefault(cfgKeyAirtableBaseURL, airtable.DefaultBaseURL)
	v.SetDefault(cfgKeyAirtableTable, airtable.DefaultTable)
	v.SetDefault(cfgKeyAirtableTimeout, defaultAirtableTimeout)
	v.SetDefault(cfgKeyHTTPAddr, api.DefaultAddr)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, logging.FormatConsole)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := newViper()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// loadSettings resolves directories, reads config.yaml and applies flags.
// Precedence per key: flag > environment > config.yaml > default.
func loadSettings(f rootFlags) (settings, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}
	if f.backend != "" {
		v.Set(cfgKeyBackend, f.backend)
	}
	if f.logLevel != "" {
		v.Set(cfgKeyLogLevel, f.logLevel)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(f.dataDir, cfg.DataDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	return settings{
		ConfigDir: configDir,
		Backend:   cfg,
		HTTPAddr:  v.GetString(cfgKeyHTTPAddr),
		LogLevel:  v.GetString(cfgKeyLogLevel),
		LogFormat: v.GetString(cfgKeyLogFormat),
	}, nil
}
