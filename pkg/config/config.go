// Package config loads engine configuration from environment variables,
// the same PRISTINE_-prefixed shape the teacher uses for its own
// NornicDB-compatible settings.
//
// Configuration is loaded with LoadFromEnv() and checked with Validate()
// before a repository is opened.
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	s, err := store.OpenBadgerStore(cfg.Store.BadgerOptions())
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/orneryd/pristine/pkg/store"
)

// Config holds every environment-derived setting a pristine repository
// needs to open its store, run output, and log.
type Config struct {
	Store  StoreConfig
	Output OutputConfig
	Log    LogConfig
}

// StoreConfig controls which store.Store implementation a repository opens
// and how it is opened.
type StoreConfig struct {
	// DataDir is the directory badger keeps its LSM tree under.
	DataDir string
	// InMemory, when true, opens an ephemeral badger instance (or the pure
	// in-memory store, via UseMemoryStore) instead of writing to DataDir.
	InMemory bool
	// SyncWrites forces an fsync on every commit; off by default for
	// throughput, matching the teacher's own default.
	SyncWrites bool
	// UseMemoryStore selects store.NewMemoryStore over badger entirely,
	// for tests and short-lived tooling invocations.
	UseMemoryStore bool
}

// OutputConfig controls pkg/output's worker pool and name-conflict behavior.
type OutputConfig struct {
	// Workers is the size of the file-rendering worker pool passed as
	// output.Options.NWorkers.
	Workers int
	// OutputNameConflicts mirrors output.Options.OutputNameConflicts.
	OutputNameConflicts bool
}

// LogConfig holds the logging settings LoadFromEnv reads and Validate
// checks. repo.Open does not pass them on: it always wires up
// telemetry.NewStdLogger().
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string
	// Format is one of text or json.
	Format string
}

// LoadFromEnv reads every PRISTINE_* environment variable, applying
// sensible defaults so LoadFromEnv() can be called with nothing set.
//
// Recognised variables:
//
//	PRISTINE_DATA_DIR           directory for badger's data (default "./pristine-data")
//	PRISTINE_IN_MEMORY          "true" opens an ephemeral badger instance (default false)
//	PRISTINE_MEMORY_STORE       "true" uses the in-memory Store instead of badger (default false)
//	PRISTINE_SYNC_WRITES        "true" fsyncs every commit (default false)
//	PRISTINE_OUTPUT_WORKERS     worker pool size for pkg/output (default 4)
//	PRISTINE_OUTPUT_NAME_CONFLICTS  "true" disambiguates name conflicts instead of dropping them (default false)
//	PRISTINE_LOG_LEVEL          DEBUG, INFO, WARN, or ERROR (default "INFO")
//	PRISTINE_LOG_FORMAT         text or json (default "text")
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Store.DataDir = getEnv("PRISTINE_DATA_DIR", "./pristine-data")
	cfg.Store.InMemory = getEnvBool("PRISTINE_IN_MEMORY", false)
	cfg.Store.UseMemoryStore = getEnvBool("PRISTINE_MEMORY_STORE", false)
	cfg.Store.SyncWrites = getEnvBool("PRISTINE_SYNC_WRITES", false)

	cfg.Output.Workers = getEnvInt("PRISTINE_OUTPUT_WORKERS", 4)
	cfg.Output.OutputNameConflicts = getEnvBool("PRISTINE_OUTPUT_NAME_CONFLICTS", false)

	cfg.Log.Level = strings.ToUpper(getEnv("PRISTINE_LOG_LEVEL", "INFO"))
	cfg.Log.Format = getEnv("PRISTINE_LOG_FORMAT", "text")

	return cfg
}

// Validate checks Config for values that would fail later in confusing
// ways rather than at startup.
func (c *Config) Validate() error {
	if !c.Store.UseMemoryStore && !c.Store.InMemory && c.Store.DataDir == "" {
		return fmt.Errorf("config: data dir required unless in-memory store is used")
	}
	if c.Output.Workers < 1 {
		return fmt.Errorf("config: output workers must be >= 1, got %d", c.Output.Workers)
	}
	switch c.Log.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	return nil
}

// BadgerOptions projects StoreConfig onto store.BadgerOptions.
func (s StoreConfig) BadgerOptions() store.BadgerOptions {
	return store.BadgerOptions{
		DataDir:    s.DataDir,
		InMemory:   s.InMemory,
		SyncWrites: s.SyncWrites,
	}
}

// OpenStore opens the store.Store this Config selects: the pure in-memory
// implementation if UseMemoryStore is set, otherwise badger.
func (c *Config) OpenStore() (store.Store, error) {
	if c.Store.UseMemoryStore {
		return store.NewMemoryStore(), nil
	}
	return store.OpenBadgerStore(c.Store.BadgerOptions())
}

// String returns a representation safe for logging; there is nothing
// sensitive in this Config, unlike the teacher's (no JWT secrets, no
// passwords), so it is simply a straight dump of every field.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, InMemory: %v, SyncWrites: %v, UseMemoryStore: %v, OutputWorkers: %d, OutputNameConflicts: %v, LogLevel: %s, LogFormat: %s}",
		c.Store.DataDir, c.Store.InMemory, c.Store.SyncWrites, c.Store.UseMemoryStore,
		c.Output.Workers, c.Output.OutputNameConflicts, c.Log.Level, c.Log.Format,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
