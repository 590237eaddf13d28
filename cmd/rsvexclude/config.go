package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/rsvexclude/internal/archive"
	"github.com/tinytelemetry/rsvexclude/internal/logsource"
	"github.com/tinytelemetry/rsvexclude/internal/model"
	"github.com/tinytelemetry/rsvexclude/internal/pipeline"
)

// appConfig mirrors config.toml. Keys keep the names EasyNPC users already
// have in their config files. OutputDir names the parent the output folder
// is created in.
type appConfig struct {
	EasyNpcProfilePath string   `mapstructure:"EasyNpcProfilePath"`
	ExcludePlugins     []string `mapstructure:"ExcludePlugins"`
	OutputDir          string   `mapstructure:"OutputDir"`
	Archiver           string   `mapstructure:"Archiver"`
	ArchiverPath       string   `mapstructure:"ArchiverPath"`
	StateDB            string   `mapstructure:"StateDB"`
	MaxLineSize        int      `mapstructure:"MaxLineSize"`
}

// flagKeys binds command line flags to config keys. Flags win over the file.
var flagKeys = map[string]string{
	"profile":       "EasyNpcProfilePath",
	"output-dir":    "OutputDir",
	"archiver":      "Archiver",
	"archiver-path": "ArchiverPath",
	"state-db":      "StateDB",
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// findConfigPath returns explicit when set, else the first config.toml beside
// the executable or in the working directory.
func findConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", pipeline.ErrConfigNotFound, explicit)
			}
			return "", fmt.Errorf("config: stat %s: %w", explicit, err)
		}
		return explicit, nil
	}

	var candidates []string
	if dir := executableDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, model.DefaultConfigName))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, model.DefaultConfigName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: looked for %s", pipeline.ErrConfigNotFound, strings.Join(candidates, ", "))
}

func loadConfig(configPath string, flags *pflag.FlagSet) (pipeline.Config, error) {
	var cfg appConfig

	path, err := findConfigPath(configPath)
	if err != nil {
		return pipeline.Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("RSVEXCLUDE")
	v.AutomaticEnv()

	v.SetDefault("EasyNpcProfilePath", model.DefaultProfilePath)
	v.SetDefault("ExcludePlugins", model.DefaultExcludePlugins)
	v.SetDefault("OutputDir", executableDir())
	v.SetDefault("Archiver", archive.KindSevenZip)
	v.SetDefault("ArchiverPath", archive.DefaultSevenZipBinary)
	v.SetDefault("StateDB", "")
	v.SetDefault("MaxLineSize", logsource.DefaultMaxLineSize)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return pipeline.Config{}, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return pipeline.Config{}, fmt.Errorf("%w: %s", pipeline.ErrConfigNotFound, path)
		}
		return pipeline.Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return pipeline.Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.EasyNpcProfilePath) == "" {
		return pipeline.Config{}, fmt.Errorf("config: EasyNpcProfilePath is empty in %s", path)
	}
	if cfg.MaxLineSize < 0 {
		return pipeline.Config{}, fmt.Errorf("config: invalid MaxLineSize: %d", cfg.MaxLineSize)
	}

	return pipeline.Config{
		ConfigPath:     v.ConfigFileUsed(),
		ProfilePath:    cfg.EasyNpcProfilePath,
		ExcludePlugins: cfg.ExcludePlugins,
		OutputDir:      cfg.OutputDir,
		Archiver:       cfg.Archiver,
		ArchiverPath:   cfg.ArchiverPath,
		StateDB:        cfg.StateDB,
		MaxLineSize:    cfg.MaxLineSize,
	}, nil
}
