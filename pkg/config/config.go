// Package config loads and validates the pipeline configuration from a YAML
// file with environment-variable overrides. The resulting *Config is built
// once at process start and handed to every component constructor.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

// Config is the top-level configuration. The flat keys mirror the pipeline's
// option names; nested sections configure supporting infrastructure.
type Config struct {
	DataDir       string  `yaml:"data_dir"`
	IndexDir      string  `yaml:"index_dir"`
	Analyzer      string  `yaml:"analyzer"`
	StopwordsFile string  `yaml:"stopwords_file"`
	Similarity    string  `yaml:"similarity"`
	K1            float64 `yaml:"k1"`
	B             float64 `yaml:"b"`
	Overwrite     bool    `yaml:"overwrite"`

	Queries        string `yaml:"queries"`
	RankingDir     string `yaml:"ranking_dir"`
	EvaluationFile string `yaml:"evaluation_file"`
	ReferenceFile  string `yaml:"reference_file"`

	QueryType     string `yaml:"query_type"`
	Slop          int    `yaml:"slop"`
	MaxEdits      int    `yaml:"maxEdits"`
	PrefixLength  int    `yaml:"prefix_length"`
	MaxExpansions int    `yaml:"max_expansions"`
	TopK          int    `yaml:"top_k"`
	Cutoffs       []int  `yaml:"cutoffs"`

	Search     SearchConfig     `yaml:"search"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SearchConfig controls the search phase fan-out.
type SearchConfig struct {
	Workers int `yaml:"workers"`
}

// EvaluationConfig selects where evaluation records are upserted. The CSV
// evaluation_file is always written; Store adds a database mirror.
type EvaluationConfig struct {
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlitePath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds the ranking cache connection. The cache is only used
// when Enabled is set.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig controls publication of evaluation records.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus scrape endpoint and the optional
// pushgateway push performed when a run finishes.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	PushURL string `yaml:"pushUrl"`
	Job     string `yaml:"job"`
}

// Load reads a YAML config file (if provided) on top of the defaults and
// applies IRB_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.Newf(apperrors.ErrNotFound, "config file %s", path)
			}
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrConfiguration, "parsing config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config populated with the pipeline defaults.
func Default() *Config {
	return &Config{
		IndexDir:       "index",
		Analyzer:       "standard",
		StopwordsFile:  "resources/spacy_stopwords.txt",
		Similarity:     "bm25",
		K1:             1.2,
		B:              0.75,
		RankingDir:     "rankings",
		EvaluationFile: "evaluation.csv",
		QueryType:      "free_text",
		Slop:           0,
		MaxEdits:       2,
		PrefixLength:   1,
		MaxExpansions:  50,
		TopK:           10,
		Cutoffs:        []int{1, 3, 5, 10},
		Search: SearchConfig{
			Workers: 4,
		},
		Evaluation: EvaluationConfig{
			Store:      "csv",
			SQLitePath: "evaluation.db",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "irbench",
			User:            "irbench",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "irbench.evaluations",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Job:  "irbench",
		},
	}
}

// Validate checks the corpus and index locations and then every option range.
// Names of analyzers, similarities and query types are checked by the
// packages that own them.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return apperrors.New(apperrors.ErrConfiguration, "data_dir is required")
	}
	if c.IndexDir == "" {
		return apperrors.New(apperrors.ErrConfiguration, "index_dir is required")
	}
	return c.ValidateOptions()
}

// ValidateOptions checks option ranges and the evaluation store name without
// requiring data_dir or index_dir.
func (c *Config) ValidateOptions() error {
	if c.K1 < 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "k1 must be >= 0, got %v", c.K1)
	}
	if c.B < 0 || c.B > 1 {
		return apperrors.Newf(apperrors.ErrConfiguration, "b must be in [0, 1], got %v", c.B)
	}
	if c.Slop < 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "slop must be >= 0, got %d", c.Slop)
	}
	if c.TopK < 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "top_k must be >= 0, got %d", c.TopK)
	}
	for _, k := range c.Cutoffs {
		if k <= 0 {
			return apperrors.Newf(apperrors.ErrConfiguration, "cutoffs must be positive, got %d", k)
		}
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = 1
	}
	switch c.Evaluation.Store {
	case "csv", "sqlite", "postgres":
	default:
		return apperrors.Newf(apperrors.ErrConfiguration, "unknown evaluation store %q", c.Evaluation.Store)
	}
	return nil
}

// RequireSearch reports a configuration error when options needed by the
// search phase are missing.
func (c *Config) RequireSearch() error {
	if c.Queries == "" {
		return apperrors.New(apperrors.ErrConfiguration, "queries is required")
	}
	if c.RankingDir == "" {
		return apperrors.New(apperrors.ErrConfiguration, "ranking_dir is required")
	}
	return nil
}

// RequireEvaluation reports a configuration error when options needed by the
// evaluation phase are missing.
func (c *Config) RequireEvaluation() error {
	if c.ReferenceFile == "" {
		return apperrors.New(apperrors.ErrConfiguration, "reference_file is required")
	}
	if c.EvaluationFile == "" {
		return apperrors.New(apperrors.ErrConfiguration, "evaluation_file is required")
	}
	if len(c.Cutoffs) == 0 {
		return apperrors.New(apperrors.ErrConfiguration, "at least one cutoff is required")
	}
	return nil
}

// applyEnvOverrides reads IRB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IRB_INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
	if v := os.Getenv("IRB_ANALYZER"); v != "" {
		cfg.Analyzer = v
	}
	if v := os.Getenv("IRB_SIMILARITY"); v != "" {
		cfg.Similarity = v
	}
	if v := os.Getenv("IRB_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.K1 = f
		}
	}
	if v := os.Getenv("IRB_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.B = f
		}
	}
	if v := os.Getenv("IRB_QUERY_TYPE"); v != "" {
		cfg.QueryType = v
	}
	if v := os.Getenv("IRB_SEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Workers = n
		}
	}
	if v := os.Getenv("IRB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IRB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IRB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IRB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IRB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IRB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IRB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IRB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IRB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("IRB_METRICS_PUSH_URL"); v != "" {
		cfg.Metrics.PushURL = v
	}
}
