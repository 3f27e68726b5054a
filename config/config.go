// Package config loads foldstore's runtime configuration from YAML, in the
// style of fluxor's and buckley's own pkg/config packages: a plain struct
// with yaml tags, loaded with gopkg.in/yaml.v3 and validated by hand rather
// than through a schema library.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects which store.Adapter family a Config describes.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
	BackendSQLite   Backend = "sqlite"
	BackendDocument Backend = "document"
)

// AccessStrategyKind names one of the five access.Strategy constructors.
type AccessStrategyKind string

const (
	AccessUnoptimized      AccessStrategyKind = "unoptimized"
	AccessLatestKnownEvent AccessStrategyKind = "latest_known_event"
	AccessSnapshot         AccessStrategyKind = "snapshot"
	AccessRollingState     AccessStrategyKind = "rolling_state"
	AccessRollingSnapshots AccessStrategyKind = "rolling_snapshots"
)

// CachePolicyKind names one of cache.Policy's two window behaviors, plus
// "none" to run without a cache at all.
type CachePolicyKind string

const (
	CacheNone    CachePolicyKind = "none"
	CacheSliding CachePolicyKind = "sliding"
	CacheFixed   CachePolicyKind = "fixed"
)

// Config is the top-level configuration document for a foldstore-backed
// service: one backend connection plus the category-level tuning spec §6
// calls out (batch size, max batches, cache strategy, access strategy, tip
// size for the document backend).
type Config struct {
	Backend Backend `yaml:"backend"`

	Postgres ConnectionConfig `yaml:"postgres,omitempty"`
	MySQL    ConnectionConfig `yaml:"mysql,omitempty"`
	SQLite   SQLiteConfig     `yaml:"sqlite,omitempty"`
	Document ConnectionConfig `yaml:"document,omitempty"`

	BatchSize     int `yaml:"batchSize"`
	MaxBatchReads int `yaml:"maxBatches"`

	// TipMaxEvents only applies to Backend: document.
	TipMaxEvents int `yaml:"tipMaxEvents"`

	AccessStrategy AccessStrategyKind `yaml:"accessStrategy"`

	Cache CacheConfig `yaml:"cache"`

	// RequireLeader asks adapters to serve reads from a strongly consistent
	// replica when the backend has a choice. Maps to category.LoadOptions.
	RequireLeader bool `yaml:"requireLeader"`
}

// ConnectionConfig is a connection string plus pool sizing, shared by the
// SQL and document backends.
type ConnectionConfig struct {
	DSN         string `yaml:"dsn"`
	MaxOpenConn int    `yaml:"maxOpenConn"`
}

// SQLiteConfig points at an embedded database file rather than a DSN.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig configures cache.New.
type CacheConfig struct {
	Policy CachePolicyKind `yaml:"policy"`
	Window Duration        `yaml:"window"`
}

// Duration wraps time.Duration so YAML documents can write "20m"/"1h"
// instead of a raw nanosecond count, via yaml.v3's Unmarshaler interface.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load reads and parses a YAML config file at path, then validates it.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is supplied by the caller at process startup, not
	// derived from untrusted request input.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with foldstore's documented defaults applied,
// matching relational.Config's and document.Config's own zero-value
// defaulting (batch size 500, no batch limit, sliding 20-minute cache).
func Default() Config {
	return Config{
		BatchSize:      500,
		MaxBatchReads:  0,
		TipMaxEvents:   10,
		AccessStrategy: AccessUnoptimized,
		Cache: CacheConfig{
			Policy: CacheSliding,
			Window: Duration(20 * time.Minute),
		},
	}
}

// Validate rejects a Config that names an unknown backend, access
// strategy, or cache policy, or that is missing the connection details its
// chosen backend needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: backend postgres requires postgres.dsn")
		}
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("config: backend mysql requires mysql.dsn")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("config: backend sqlite requires sqlite.path")
		}
	case BackendDocument:
		if c.Document.DSN == "" {
			return fmt.Errorf("config: backend document requires document.dsn")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	switch c.AccessStrategy {
	case AccessUnoptimized, AccessLatestKnownEvent, AccessSnapshot, AccessRollingState, AccessRollingSnapshots:
	default:
		return fmt.Errorf("config: unknown access strategy %q", c.AccessStrategy)
	}

	switch c.Cache.Policy {
	case CacheNone, CacheSliding, CacheFixed:
	default:
		return fmt.Errorf("config: unknown cache policy %q", c.Cache.Policy)
	}

	if c.BatchSize < 0 {
		return fmt.Errorf("config: batchSize must be >= 0, got %d", c.BatchSize)
	}
	if c.MaxBatchReads < 0 {
		return fmt.Errorf("config: maxBatches must be >= 0, got %d", c.MaxBatchReads)
	}
	if c.AccessStrategy == AccessLatestKnownEvent && c.Cache.Policy != CacheNone {
		return fmt.Errorf("config: access strategy latest_known_event is not compatible with a cache")
	}

	return nil
}
