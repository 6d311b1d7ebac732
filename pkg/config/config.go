// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Indexer, Search, Logging, Metrics, Redis, Kafka, Postgres).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// IndexerConfig controls where the collection is read from, where index files
// are written, and how blocks are processed.
type IndexerConfig struct {
	CollectionRoot    string `yaml:"collectionRoot"`
	OutputDir         string `yaml:"outputDir"`
	IndexName         string `yaml:"indexName"`
	Codec             string `yaml:"codec"`
	Workers           int    `yaml:"workers"`
	KeepIntermediate  bool   `yaml:"keepIntermediate"`
	DictionaryBackend string `yaml:"dictionaryBackend"`
}

// SearchConfig controls result limits and BM25 defaults.
type SearchConfig struct {
	DefaultLimit int     `yaml:"defaultLimit"`
	MaxResults   int     `yaml:"maxResults"`
	BM25K1       float64 `yaml:"bm25K1"`
	BM25B        float64 `yaml:"bm25B"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run ledger.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, and fails if the result does not validate.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings the indexer and searcher cannot run with.
func (c *Config) Validate() error {
	switch c.Indexer.Codec {
	case "fixed", "vbyte":
	default:
		return fmt.Errorf("invalid indexer.codec %q: want fixed or vbyte", c.Indexer.Codec)
	}
	switch c.Indexer.DictionaryBackend {
	case "bolt", "badger":
	default:
		return fmt.Errorf("invalid indexer.dictionaryBackend %q: want bolt or badger", c.Indexer.DictionaryBackend)
	}
	if c.Indexer.Workers <= 0 {
		return fmt.Errorf("invalid indexer.workers %d: must be positive", c.Indexer.Workers)
	}
	if err := validateIndexName(c.Indexer.IndexName); err != nil {
		return err
	}
	if c.Search.BM25K1 < 0 || c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("invalid bm25 parameters k1=%v b=%v", c.Search.BM25K1, c.Search.BM25B)
	}
	return nil
}

// validateIndexName keeps the global index files off the dictionary and
// intermediate index files written to the same directory.
func validateIndexName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("indexer.indexName must not be empty")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return fmt.Errorf("invalid indexer.indexName %q: must be a single file name", name)
	case name == "terms" || name == "docs" || strings.HasPrefix(name, "intermediate_index_"):
		return fmt.Errorf("invalid indexer.indexName %q: reserved", name)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Indexer: IndexerConfig{
			CollectionRoot:    "collections",
			OutputDir:         "index",
			IndexName:         "main_index",
			Codec:             "vbyte",
			Workers:           4,
			DictionaryBackend: "bolt",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			BM25K1:       1.2,
			BM25B:        0.75,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "bsbi-cache-invalidator",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "bsbi",
			User:            "bsbi",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// applyEnvOverrides reads BSBI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BSBI_COLLECTION_ROOT"); v != "" {
		cfg.Indexer.CollectionRoot = v
	}
	if v := os.Getenv("BSBI_OUTPUT_DIR"); v != "" {
		cfg.Indexer.OutputDir = v
	}
	if v := os.Getenv("BSBI_INDEX_NAME"); v != "" {
		cfg.Indexer.IndexName = v
	}
	if v := os.Getenv("BSBI_CODEC"); v != "" {
		cfg.Indexer.Codec = v
	}
	if v := os.Getenv("BSBI_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("BSBI_DICTIONARY_BACKEND"); v != "" {
		cfg.Indexer.DictionaryBackend = v
	}
	if v := os.Getenv("BSBI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BSBI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BSBI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("BSBI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("BSBI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BSBI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("BSBI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("BSBI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}
