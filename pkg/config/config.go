// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Tokenizer, Corpus, Crawler, Search, Postgres, Kafka,
// Redis, Logging, Metrics, Tracing).
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
	Server    ServerConfig    `yaml:"server"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of API requests one client may make per
	// RateWindow. Zero disables limiting.
	RateLimit   int           `yaml:"rateLimit"`
	RateWindow  time.Duration `yaml:"rateWindow"`
	CORSOrigins []string      `yaml:"corsOrigins"`
}

// TokenizerConfig selects the word-segmentation backend.
//
// Segmenter is "bleve" or "uax29". Analyzer names a bleve analyzer
// ("standard", "simple", "en", "cjk", ...) and is ignored by uax29, which
// instead honours StopWords and Stem.
type TokenizerConfig struct {
	Segmenter string `yaml:"segmenter"`
	Analyzer  string `yaml:"analyzer"`
	StopWords bool   `yaml:"stopWords"`
	Stem      bool   `yaml:"stem"`
}

// CorpusConfig describes where documents come from.
type CorpusConfig struct {
	Dir        string        `yaml:"dir"`
	Extensions []string      `yaml:"extensions"`
	Encoding   string        `yaml:"encoding"`
	Watch      bool          `yaml:"watch"`
	Debounce   time.Duration `yaml:"debounce"`
	Postgres   bool          `yaml:"postgres"`
	// LoadTimeout bounds one full corpus load during a rebuild.
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// CrawlerConfig controls fetching web pages into the corpus.
type CrawlerConfig struct {
	URLs        []string      `yaml:"urls"`
	SaveDir     string        `yaml:"saveDir"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
	UserAgent   string        `yaml:"userAgent"`
	// RequestsPerSecond caps the crawl request rate. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// SearchConfig controls query limits and snippet sizes.
type SearchConfig struct {
	MaxResults     int `yaml:"maxResults"`
	DefaultLimit   int `yaml:"defaultLimit"`
	ContextWindow  int `yaml:"contextWindow"`
	MaxQueryLength int `yaml:"maxQueryLength"`
	MaxSnippets    int `yaml:"maxSnippets"`
	SuggestLimit   int `yaml:"suggestLimit"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for the search pipeline.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
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

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Tokenizer: TokenizerConfig{
			Segmenter: "bleve",
			Analyzer:  "standard",
		},
		Corpus: CorpusConfig{
			Dir:         "data/corpus",
			Extensions:  []string{".txt"},
			Encoding:    "utf-8",
			Debounce:    500 * time.Millisecond,
			LoadTimeout: 2 * time.Minute,
		},
		Crawler: CrawlerConfig{
			Concurrency: 4,
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
			UserAgent:   "docsearch/1.0",
		},
		Search: SearchConfig{
			MaxResults:     100,
			DefaultLimit:   10,
			ContextWindow:  20,
			MaxQueryLength: 1024,
			MaxSnippets:    5,
			SuggestLimit:   10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "docsearch-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Tokenizer.Segmenter {
	case "bleve", "uax29":
	default:
		return fmt.Errorf("tokenizer.segmenter must be bleve or uax29, got %q", c.Tokenizer.Segmenter)
	}
	if c.Search.ContextWindow < 0 {
		return fmt.Errorf("search.contextWindow must not be negative")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.defaultLimit must be positive and at most search.maxResults")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be positive")
	}
	return nil
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("DS_TOKENIZER_SEGMENTER"); v != "" {
		cfg.Tokenizer.Segmenter = v
	}
	if v := os.Getenv("DS_TOKENIZER_ANALYZER"); v != "" {
		cfg.Tokenizer.Analyzer = v
	}
	if v := os.Getenv("DS_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("DS_CORPUS_ENCODING"); v != "" {
		cfg.Corpus.Encoding = v
	}
	if v := os.Getenv("DS_CORPUS_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Corpus.Watch = b
		}
	}
	if v := os.Getenv("DS_CRAWLER_URLS"); v != "" {
		cfg.Crawler.URLs = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_SEARCH_CONTEXT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.ContextWindow = n
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
