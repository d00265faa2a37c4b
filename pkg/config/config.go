// Package config loads provgraph settings from a YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/provenance-graph/pkg/persistence"
	"github.com/dd0wney/provenance-graph/pkg/pgstore"
	"github.com/dd0wney/provenance-graph/pkg/snapshot"
	"github.com/dd0wney/provenance-graph/pkg/validation"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the complete provgraph configuration.
type Config struct {
	Store       StoreConfig        `yaml:"store"`
	Persistence persistence.Config `yaml:"persistence"`
	Log         LogConfig          `yaml:"log"`
	Versioning  VersioningConfig   `yaml:"versioning"`
	Import      ImportConfig       `yaml:"import"`
	Snapshot    snapshot.Config    `yaml:"snapshot"`
	// Catalog is a YAML catalog file; empty uses the built-in catalog.
	Catalog string `yaml:"catalog"`
}

// StoreConfig selects and locates the graph store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// DataFile is a snapshot the memory backend loads on start and saves on
	// exit. Empty keeps the store purely in memory.
	DataFile string `yaml:"dataFile"`
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int32  `yaml:"maxConns"`
}

// PGOptions converts the store settings for pgstore.Connect.
func (s StoreConfig) PGOptions() pgstore.Options {
	return pgstore.Options{URI: s.URI, User: s.User, Password: s.Password, MaxConns: s.MaxConns}
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// VersioningConfig sets the default options of version computation.
type VersioningConfig struct {
	StudyScope bool `yaml:"studyScope"`
	Transitive bool `yaml:"transitive"`
}

type ImportConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Store:       StoreConfig{Backend: BackendMemory, MaxConns: 4},
		Persistence: persistence.DefaultConfig(),
		Log:         LogConfig{Level: "info"},
		Versioning:  VersioningConfig{Transitive: true},
		Import:      ImportConfig{Workers: 8},
		Snapshot:    snapshot.Config{Prefix: "provgraph"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from the environment. DB_URI, DB_USER and
// DB_PASSWORD locate the database; other variables carry a PROVGRAPH_ prefix.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("DB_URI", &c.Store.URI)
	str("DB_USER", &c.Store.User)
	str("DB_PASSWORD", &c.Store.Password)
	str("PROVGRAPH_STORE", &c.Store.Backend)
	str("PROVGRAPH_DATA_FILE", &c.Store.DataFile)
	str("PROVGRAPH_LOG_LEVEL", &c.Log.Level)
	str("PROVGRAPH_CATALOG", &c.Catalog)
	str("PROVGRAPH_SNAPSHOT_BUCKET", &c.Snapshot.Bucket)
	str("PROVGRAPH_SNAPSHOT_PREFIX", &c.Snapshot.Prefix)
	str("PROVGRAPH_SNAPSHOT_REGION", &c.Snapshot.Region)
	str("PROVGRAPH_SNAPSHOT_ENDPOINT", &c.Snapshot.Endpoint)
	str("PROVGRAPH_SNAPSHOT_ACCESS_KEY_ID", &c.Snapshot.AccessKeyID)
	str("PROVGRAPH_SNAPSHOT_SECRET_ACCESS_KEY", &c.Snapshot.SecretAccessKey)

	if v, ok := lookup("PROVGRAPH_STORE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROVGRAPH_STORE_TIMEOUT: %w", err)
		}
		c.Persistence.StoreTimeout = d
	}
	if v, ok := lookup("PROVGRAPH_IMPORT_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROVGRAPH_IMPORT_WORKERS: %w", err)
		}
		c.Import.Workers = n
	}
	if err := boolean("PROVGRAPH_STUDY_SCOPE", &c.Versioning.StudyScope); err != nil {
		return err
	}
	return boolean("PROVGRAPH_TRANSITIVE", &c.Versioning.Transitive)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config")
	cv.OneOf("store.backend", c.Store.Backend, []string{BackendMemory, BackendPostgres}).
		When(c.Store.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("store.uri", c.Store.URI).
				When(c.Store.URI != "", func(cv *validation.ConfigValidator) {
					cv.URL("store.uri", c.Store.URI, "postgres", "postgresql")
				}).
				Positive("store.maxConns", int(c.Store.MaxConns))
		}).
		RangeDuration("persistence.storeTimeout", c.Persistence.StoreTimeout, time.Millisecond, time.Hour).
		OneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"}).
		RangeInt("import.workers", c.Import.Workers, 1, 256).
		When(c.Snapshot.Endpoint != "", func(cv *validation.ConfigValidator) {
			cv.URL("snapshot.endpoint", c.Snapshot.Endpoint, "http", "https")
		}).
		When(c.Snapshot.AccessKeyID != "" || c.Snapshot.SecretAccessKey != "", func(cv *validation.ConfigValidator) {
			cv.Required("snapshot.accessKeyId", c.Snapshot.AccessKeyID).
				Required("snapshot.secretAccessKey", c.Snapshot.SecretAccessKey)
		}).
		Custom("persistence", func() error { return validation.Struct(c.Persistence) })
	return cv.Validate()
}
