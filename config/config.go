package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cassina/langgraphgo-checkpoint-firestore/log"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendSqlite    = "sqlite"
)

// Config describes a checkpoint saver and the document store behind it.
type Config struct {
	// Backend selects the document store. Defaults to "firestore".
	Backend string `yaml:"backend"`

	// LogLevel is one of debug, info, warn, error or none. Defaults to info.
	LogLevel string `yaml:"log_level"`

	Collections     CollectionsConfig `yaml:"collections"`
	ListPageSize    int               `yaml:"list_page_size"`
	DeleteBatchSize int               `yaml:"delete_batch_size"`

	Firestore FirestoreConfig `yaml:"firestore"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Sqlite    SqliteConfig    `yaml:"sqlite"`
}

// CollectionsConfig names the two collections. Empty names keep the defaults.
type CollectionsConfig struct {
	Checkpoints string `yaml:"checkpoints"`
	Writes      string `yaml:"writes"`
}

type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	DatabaseID      string `yaml:"database_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	TableName  string `yaml:"table_name"`
	// InitSchema creates the documents table on open.
	InitSchema bool `yaml:"init_schema"`
}

type SqliteConfig struct {
	Path      string `yaml:"path"`
	TableName string `yaml:"table_name"`
}

// FromFile loads a YAML configuration file.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return FromYAML(data)
}

// FromYAML parses YAML data. ${VAR} and $VAR references are replaced with
// environment variables before parsing, and the result is validated.
func FromYAML(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fills defaults and checks that the selected backend is usable.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFirestore
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.ListPageSize < 0 || c.DeleteBatchSize < 0 {
		return fmt.Errorf("invalid config: page and batch sizes must not be negative")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("invalid config: firestore.project_id is required")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("invalid config: redis.addr is required")
		}
	case BackendPostgres:
		if c.Postgres.ConnString == "" {
			return fmt.Errorf("invalid config: postgres.conn_string is required")
		}
	case BackendSqlite:
		if c.Sqlite.Path == "" {
			return fmt.Errorf("invalid config: sqlite.path is required")
		}
	default:
		return fmt.Errorf("invalid config: unknown backend %q", c.Backend)
	}
	return nil
}
