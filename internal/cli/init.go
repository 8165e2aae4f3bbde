package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configFile is the document init writes to config.yaml.
type configFile struct {
	Backend string      `yaml:"backend"`
	DataDir string      `yaml:"data_dir,omitempty"`
	HTTP    httpSection `yaml:"http"`
	Log     logSection  `yaml:"log"`
}

type httpSection struct {
	Addr string `yaml:"addr"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pokedex configuration and storage",
		Long: "Create the configuration and data directories, write a default\n" +
			"config.yaml if none exists, then open the configured backend once.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	s := a.settings

	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}
	configPath := filepath.Join(s.ConfigDir, configFileExt)
	if err := writeConfigIfMissing(configPath, s); err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	_, release, err := a.openRepo(cmd.Context())
	if err != nil {
		return err
	}
	release()

	fmt.Fprintln(cmd.OutOrStdout(), "Pokedex initialized successfully")
	fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", configPath)
	return nil
}

// writeConfigIfMissing creates config.yaml from the resolved settings. An
// existing file is left untouched.
func writeConfigIfMissing(path string, s settings) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		Backend: s.Backend.Backend,
		DataDir: s.Backend.DataDir,
		HTTP:    httpSection{Addr: s.HTTPAddr},
		Log:     logSection{Level: s.LogLevel, Format: s.LogFormat},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
