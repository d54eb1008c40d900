package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models inflow.yml.
type Config struct {
	Storage struct {
		Backend     string `yaml:"backend"`
		Namespace   string `yaml:"namespace"`
		PostgresDSN string `yaml:"postgres_dsn"`
		SeedFile    string `yaml:"seed_file"`
	} `yaml:"storage"`
	Model struct {
		Profile       string `yaml:"profile"`
		DocumentLinks string `yaml:"document_links"`
	} `yaml:"model"`
	Session struct {
		Mode string `yaml:"mode"`
	} `yaml:"session"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with inflow init --write-config", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory, BackendNone:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config.storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config.storage.backend must be one of sqlite, postgres, memory, none")
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("config.storage.namespace is required")
	}
	if strings.ContainsAny(c.Storage.Namespace, " \t\n") {
		return fmt.Errorf("config.storage.namespace must not contain whitespace")
	}
	switch c.Model.Profile {
	case "categorized", "legacy":
	default:
		return fmt.Errorf("config.model.profile must be 'categorized' or 'legacy'")
	}
	switch c.Model.DocumentLinks {
	case "task_id", "description":
	default:
		return fmt.Errorf("config.model.document_links must be 'task_id' or 'description'")
	}
	switch c.Session.Mode {
	case "shared", "isolated":
	default:
		return fmt.Errorf("config.session.mode must be 'shared' or 'isolated'")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "inflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string { return defaultTemplate }

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("config: default template: %v", err))
	}
	return &cfg
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `storage:
  # sqlite | postgres | memory | none
  backend: sqlite
  namespace: inflow
  postgres_dsn: ""
  # optional seed document replacing the built-in demo data
  seed_file: ""

model:
  # categorized | legacy
  profile: categorized
  # task_id | description
  document_links: task_id

session:
  # shared | isolated
  mode: shared

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
