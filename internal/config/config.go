// Package config provides configuration management for the harvester.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Section names.
const (
	SectionDefault = "default"
	SectionSecrets = "secrets"
	SectionLogging = "logging"
	SectionMetrics = "metrics"
)

// Defaults applied after loading.
const (
	DefaultTag        = "irve"
	DefaultPageSize   = 1000
	DefaultSchemaPath = "schema.json"
	DefaultTimeoutSec = 60
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultMetricsJob = "irve_harvester"

	// WorkingDirEnv overrides the base directory of the data tree.
	WorkingDirEnv = "WORKING_DIR"
)

// Configuration validation errors.
var (
	ErrMissingDefaultSection = errors.New("config section [default] is required")
	ErrMissingSecretsSection = errors.New("config section [secrets] is required")
	ErrMissingDomain         = errors.New("default.domain is required")
	ErrMissingDatasetID      = errors.New("default.dataset_id is required")
	ErrInvalidPageSize       = errors.New("default.page_size must be at least 1")
	ErrInvalidTimeout        = errors.New("default.timeout_sec must be at least 1")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'console' or 'json'")
	ErrUnsupportedFormat     = errors.New("unsupported config file extension")
)

// Config represents the complete harvester configuration.
type Config struct {
	Secrets map[string]string `yaml:"secrets"`
	Default DefaultConfig     `yaml:"default"`
	Logging LoggingConfig     `yaml:"logging"`
	Metrics MetricsConfig     `yaml:"metrics"`

	sections map[string]bool
}

// DefaultConfig contains the catalog and validation settings.
type DefaultConfig struct {
	Domain     string `yaml:"domain" ini:"domain"`
	DatasetID  string `yaml:"dataset_id" ini:"dataset_id"`
	Tag        string `yaml:"tag" ini:"tag"`
	SchemaPath string `yaml:"schema" ini:"schema"`
	PageSize   int    `yaml:"page_size" ini:"page_size"`
	TimeoutSec int    `yaml:"timeout_sec" ini:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" ini:"level"`
	Format string `yaml:"format" ini:"format"`
}

// MetricsConfig defines where run metrics are pushed.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" ini:"pushgateway_url"`
	Job            string `yaml:"job" ini:"job"`
}

// LoadConfig loads configuration from an INI or YAML file, picked by extension.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg", "":
		cfg, err = loadINI(path)
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadINI(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{sections: make(map[string]bool)}

	for _, name := range []string{SectionDefault, SectionSecrets, SectionLogging, SectionMetrics} {
		cfg.sections[name] = file.HasSection(name)
	}

	if cfg.sections[SectionDefault] {
		if err := file.Section(SectionDefault).StrictMapTo(&cfg.Default); err != nil {
			return nil, fmt.Errorf("failed to parse [default]: %w", err)
		}
	}

	if cfg.sections[SectionSecrets] {
		cfg.Secrets = file.Section(SectionSecrets).KeysHash()
	}

	if cfg.sections[SectionLogging] {
		if err := file.Section(SectionLogging).StrictMapTo(&cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to parse [logging]: %w", err)
		}
	}

	if cfg.sections[SectionMetrics] {
		if err := file.Section(SectionMetrics).StrictMapTo(&cfg.Metrics); err != nil {
			return nil, fmt.Errorf("failed to parse [metrics]: %w", err)
		}
	}

	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// A section written as "secrets:" with no keys decodes to a nil map,
	// so presence is read from the raw document.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.sections = make(map[string]bool)
	for name := range raw {
		cfg.sections[name] = true
	}

	return &cfg, nil
}

// ApplyDefaults fills optional settings left empty by the file.
func (c *Config) ApplyDefaults() {
	if c.Default.Tag == "" {
		c.Default.Tag = DefaultTag
	}

	if c.Default.PageSize == 0 {
		c.Default.PageSize = DefaultPageSize
	}

	if c.Default.SchemaPath == "" {
		c.Default.SchemaPath = DefaultSchemaPath
	}

	if c.Default.TimeoutSec == 0 {
		c.Default.TimeoutSec = DefaultTimeoutSec
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}

	if c.Secrets == nil {
		c.Secrets = map[string]string{}
	}
}

// HasSection reports whether the loaded file declared the named section.
func (c *Config) HasSection(name string) bool {
	return c.sections[name]
}

// MarkSections records sections as present, for configs built in code.
func (c *Config) MarkSections(names ...string) {
	if c.sections == nil {
		c.sections = make(map[string]bool)
	}

	for _, name := range names {
		c.sections[name] = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.HasSection(SectionDefault) {
		return ErrMissingDefaultSection
	}

	if !c.HasSection(SectionSecrets) {
		return ErrMissingSecretsSection
	}

	if c.Default.Domain == "" {
		return ErrMissingDomain
	}

	if c.Default.DatasetID == "" {
		return ErrMissingDatasetID
	}

	if c.Default.PageSize < 1 {
		return ErrInvalidPageSize
	}

	if c.Default.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// Timeout returns the HTTP timeout duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Default.TimeoutSec) * time.Second
}

// Redacted returns a copy safe to print, with secret values masked.
func (c *Config) Redacted() *Config {
	out := *c

	out.Secrets = make(map[string]string, len(c.Secrets))
	for key := range c.Secrets {
		out.Secrets[key] = "***"
	}

	return &out
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Domain: %s, Tag: %s, PageSize: %d, Schema: %s}",
		c.Default.Domain,
		c.Default.Tag,
		c.Default.PageSize,
		c.Default.SchemaPath,
	)
}

// ResolveWorkingDir returns $WORKING_DIR when set, else the current directory.
func ResolveWorkingDir() (string, error) {
	if dir := os.Getenv(WorkingDirEnv); dir != "" {
		return dir, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}

	return dir, nil
}

// DataRoot returns the root of the data tree under the working directory.
func DataRoot(workingDir string) string {
	return filepath.Join(workingDir, "data")
}

// DayDir returns the dated run directory {data_root}/{YYYYMMDD}.
func DayDir(dataRoot string, day time.Time) string {
	return filepath.Join(dataRoot, day.Format("20060102"))
}
