package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
)

const (
	DefaultLogGroup    = "/aws/omics/WorkflowLog"
	DefaultLogLimit    = 100
	MaxLogLimit        = 10000
	DefaultRegionsTTL  = 3600
	defaultDropInDir   = "config.d"
	defaultMaxFailed   = 25
	defaultConcurrency = 4
)

type Config struct {
	Region    string          `toml:"region"`
	Profile   string          `toml:"profile"`
	Toolsets  []string        `toml:"toolsets"`
	ReadOnly  bool            `toml:"read_only"`
	LogLevel  string          `toml:"log_level"`
	LogFormat string          `toml:"log_format"`
	Timeouts  TimeoutConfig   `toml:"timeouts"`
	Cache     CacheConfig     `toml:"cache"`
	Logs      LogsConfig      `toml:"logs"`
	Diagnosis DiagnosisConfig `toml:"diagnosis"`
	Analysis  AnalysisConfig  `toml:"analysis"`
}

// TimeoutConfig is an optional per-tool deadline layered over the SDK's own
// HTTP timeouts. Zero values leave calls bounded only by the caller's context.
type TimeoutConfig struct {
	DefaultSeconds int            `toml:"default_seconds"`
	MaxSeconds     int            `toml:"max_seconds"`
	PerTool        map[string]int `toml:"per_tool"`
}

type CacheConfig struct {
	// RegionsTTLSeconds caches GetSupportedRegions results. Negative disables.
	RegionsTTLSeconds int `toml:"regions_ttl_seconds"`
}

type LogsConfig struct {
	LogGroup     string `toml:"log_group"`
	DefaultLimit int    `toml:"default_limit"`
	MaxLimit     int    `toml:"max_limit"`
}

type DiagnosisConfig struct {
	MaxFailedTasks int  `toml:"max_failed_tasks"`
	LogLimit       int  `toml:"log_limit"`
	Concurrency    int  `toml:"concurrency"`
	SkipRoleCheck  bool `toml:"skip_role_check"`
}

type AnalysisConfig struct {
	MaxManifestEvents int `toml:"max_manifest_events"`
}

type Overrides struct {
	Region    *string
	Profile   *string
	Toolsets  *[]string
	ReadOnly  *bool
	LogLevel  *string
	LogFormat *string
}

func DefaultConfig() Config {
	return Config{
		Toolsets:  []string{"omics", "ecr"},
		LogLevel:  "info",
		LogFormat: "text",
		Cache:     CacheConfig{RegionsTTLSeconds: DefaultRegionsTTL},
		Logs: LogsConfig{
			LogGroup:     DefaultLogGroup,
			DefaultLimit: DefaultLogLimit,
			MaxLimit:     MaxLogLimit,
		},
		Diagnosis: DiagnosisConfig{
			MaxFailedTasks: defaultMaxFailed,
			LogLimit:       DefaultLogLimit,
			Concurrency:    defaultConcurrency,
		},
		Analysis: AnalysisConfig{MaxManifestEvents: MaxLogLimit},
	}
}

// DropInDir returns the drop-in directory that sits next to a config file.
func DropInDir(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), defaultDropInDir)
}

func Load(path string, dir string, overrides Overrides) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		if err := merge(&cfg, fileCfg); err != nil {
			return cfg, err
		}
	}

	if dir != "" {
		files, err := dropInFiles(dir)
		if err != nil {
			return cfg, err
		}
		for _, file := range files {
			fileCfg, err := readFile(file)
			if err != nil {
				return cfg, err
			}
			if err := merge(&cfg, fileCfg); err != nil {
				return cfg, err
			}
		}
	}

	applyOverrides(&cfg, overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for _, id := range c.Toolsets {
		if strings.TrimSpace(id) == "" {
			return errors.New("config: toolset id must not be empty")
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Logs.MaxLimit <= 0 || c.Logs.MaxLimit > MaxLogLimit {
		return fmt.Errorf("config: logs.max_limit must be between 1 and %d", MaxLogLimit)
	}
	if c.Logs.DefaultLimit <= 0 || c.Logs.DefaultLimit > c.Logs.MaxLimit {
		return fmt.Errorf("config: logs.default_limit must be between 1 and %d", c.Logs.MaxLimit)
	}
	if c.Diagnosis.Concurrency <= 0 {
		return errors.New("config: diagnosis.concurrency must be positive")
	}
	return nil
}

func readFile(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func dropInFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// merge lays non-zero values of src over dst. Slices are replaced, maps are
// merged key by key.
func merge(dst *Config, src Config) error {
	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	return nil
}

func applyOverrides(cfg *Config, overrides Overrides) {
	if overrides.Region != nil {
		cfg.Region = *overrides.Region
	}
	if overrides.Profile != nil {
		cfg.Profile = *overrides.Profile
	}
	if overrides.Toolsets != nil {
		cfg.Toolsets = append([]string{}, (*overrides.Toolsets)...)
	}
	if overrides.ReadOnly != nil {
		cfg.ReadOnly = *overrides.ReadOnly
	}
	if overrides.LogLevel != nil {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.LogFormat != nil {
		cfg.LogFormat = *overrides.LogFormat
	}
}
