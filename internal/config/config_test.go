package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, name)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigINI is a minimal valid configuration.
const validConfigINI = `
[default]
domain = www.data.gouv.fr
dataset_id = 5448d3e0c751df01f85d0572

[secrets]
api_key = s3cr3t
`

const validConfigYAML = `
default:
  domain: demo.data.gouv.fr
  dataset_id: "abc"
  page_size: 50
  schema: schemas/irve.json
secrets:
logging:
  level: debug
  format: json
metrics:
  pushgateway_url: http://localhost:9091
`

func TestLoadConfig_ValidINI(t *testing.T) {
	configPath := createTempConfigFile(t, "config.ini", validConfigINI)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Default.Domain != "www.data.gouv.fr" {
		t.Errorf("Expected domain 'www.data.gouv.fr', got '%s'", cfg.Default.Domain)
	}

	if cfg.Default.DatasetID != "5448d3e0c751df01f85d0572" {
		t.Errorf("Unexpected dataset_id '%s'", cfg.Default.DatasetID)
	}

	if cfg.Secrets["api_key"] != "s3cr3t" {
		t.Errorf("Expected secret to be loaded, got %v", cfg.Secrets)
	}

	// Defaults
	if cfg.Default.Tag != DefaultTag {
		t.Errorf("Expected default tag %s, got %s", DefaultTag, cfg.Default.Tag)
	}

	if cfg.Default.PageSize != DefaultPageSize {
		t.Errorf("Expected default page size %d, got %d", DefaultPageSize, cfg.Default.PageSize)
	}

	if cfg.Default.SchemaPath != DefaultSchemaPath {
		t.Errorf("Expected default schema %s, got %s", DefaultSchemaPath, cfg.Default.SchemaPath)
	}

	if cfg.Timeout() != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.Timeout())
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "config.yaml", validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Default.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.Default.PageSize)
	}

	if cfg.Default.SchemaPath != "schemas/irve.json" {
		t.Errorf("Unexpected schema path %s", cfg.Default.SchemaPath)
	}

	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Unexpected logging config %+v", cfg.Logging)
	}

	if cfg.Metrics.PushgatewayURL != "http://localhost:9091" {
		t.Errorf("Unexpected pushgateway url %s", cfg.Metrics.PushgatewayURL)
	}

	if cfg.Metrics.Job != DefaultMetricsJob {
		t.Errorf("Expected default job name, got %s", cfg.Metrics.Job)
	}
}

func TestLoadConfig_EmptySecretsSectionIsEnough(t *testing.T) {
	configPath := createTempConfigFile(t, "config.ini", "[default]\ndomain = d\ndataset_id = x\n[secrets]\n")

	if _, err := LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
}

func TestLoadConfig_MissingSections(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{
			name:    "INI without default",
			file:    "config.ini",
			content: "[secrets]\nkey = v\n",
			wantErr: ErrMissingDefaultSection,
		},
		{
			name:    "INI without secrets",
			file:    "config.ini",
			content: "[default]\ndomain = d\ndataset_id = x\n",
			wantErr: ErrMissingSecretsSection,
		},
		{
			name:    "YAML without secrets",
			file:    "config.yml",
			content: "default:\n  domain: d\n  dataset_id: x\n",
			wantErr: ErrMissingSecretsSection,
		},
		{
			name:    "Missing domain",
			file:    "config.ini",
			content: "[default]\ndataset_id = x\n[secrets]\n",
			wantErr: ErrMissingDomain,
		},
		{
			name:    "Missing dataset id",
			file:    "config.ini",
			content: "[default]\ndomain = d\n[secrets]\n",
			wantErr: ErrMissingDatasetID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := createTempConfigFile(t, tt.file, tt.content)

			_, err := LoadConfig(configPath)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.ini")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "config.yaml", "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	configPath := createTempConfigFile(t, "config.toml", "")

	_, err := LoadConfig(configPath)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Default: DefaultConfig{Domain: "d", DatasetID: "x"}}
		cfg.MarkSections(SectionDefault, SectionSecrets)
		cfg.ApplyDefaults()

		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: nil},
		{name: "page size", mutate: func(c *Config) { c.Default.PageSize = -1 }, wantErr: ErrInvalidPageSize},
		{name: "timeout", mutate: func(c *Config) { c.Default.TimeoutSec = -5 }, wantErr: ErrInvalidTimeout},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: ErrInvalidLogLevel},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_RedactedYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "config.ini", validConfigINI)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	data, err := cfg.Redacted().YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "s3cr3t") {
		t.Errorf("Secret value leaked into rendered config:\n%s", out)
	}

	if !strings.Contains(out, "api_key: '***'") && !strings.Contains(out, `api_key: "***"`) {
		t.Errorf("Expected masked api_key in rendered config:\n%s", out)
	}

	if cfg.Secrets["api_key"] != "s3cr3t" {
		t.Error("Redacted must not modify the original config")
	}
}

func TestResolveWorkingDir(t *testing.T) {
	t.Setenv(WorkingDirEnv, "/srv/irve")

	dir, err := ResolveWorkingDir()
	if err != nil {
		t.Fatalf("ResolveWorkingDir failed: %v", err)
	}

	if dir != "/srv/irve" {
		t.Errorf("Expected WORKING_DIR value, got %s", dir)
	}

	t.Setenv(WorkingDirEnv, "")

	dir, err = ResolveWorkingDir()
	if err != nil {
		t.Fatalf("ResolveWorkingDir failed: %v", err)
	}

	cwd, _ := os.Getwd()
	if dir != cwd {
		t.Errorf("Expected current directory %s, got %s", cwd, dir)
	}
}

func TestDayDir(t *testing.T) {
	day := time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)

	got := DayDir(DataRoot("/work"), day)
	want := filepath.Join("/work", "data", "20240305")

	if got != want {
		t.Errorf("DayDir = %s, want %s", got, want)
	}
}

func TestLoadConfig_MalformedNumbers(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "page_size", content: "[default]\ndomain = d\ndataset_id = x\npage_size = abc\n[secrets]\n"},
		{name: "timeout_sec", content: "[default]\ndomain = d\ndataset_id = x\ntimeout_sec = 1O\n[secrets]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := createTempConfigFile(t, "config.ini", tt.content)

			_, err := LoadConfig(configPath)
			if err == nil {
				t.Fatalf("Expected error for malformed %s, got nil", tt.name)
			}

			if !strings.Contains(err.Error(), "[default]") {
				t.Errorf("Expected error to name the section, got %v", err)
			}
		})
	}
}
