package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Storage struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory clickhouse"`
	} `yaml:"storage"`

	ClickHouse struct {
		Addr        []string      `yaml:"addr" default:"[\"localhost:9000\"]"`
		Database    string        `yaml:"database" default:"koltrack"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"1h"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled  bool          `yaml:"enabled"`
		Brokers  []string      `yaml:"brokers" default:"[\"localhost:9092\"]"`
		Topic    string        `yaml:"topic" default:"kol-swaps"`
		GroupID  string        `yaml:"group_id" default:"koltrack"`
		MinBytes int           `yaml:"min_bytes" default:"1000"`
		MaxBytes int           `yaml:"max_bytes" default:"1000000"`
		MaxWait  time.Duration `yaml:"max_wait" default:"500ms"`
	} `yaml:"kafka"`

	Chainstream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		Wallets        []string      `yaml:"wallets"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"chainstream"`

	Tracker struct {
		HistoryLimit         int           `yaml:"history_limit" default:"100" validate:"gt=0"`
		RecentWindow         int           `yaml:"recent_window" default:"20" validate:"gt=0"`
		MinSmallBuy          float64       `yaml:"min_small_buy" default:"1"`
		TypicalSizeTolerance float64       `yaml:"typical_size_tolerance" default:"1"`
		MaxHoldSample        time.Duration `yaml:"max_hold_sample" default:"24h"`
		PatternCacheTTL      time.Duration `yaml:"pattern_cache_ttl" default:"1m"`
	} `yaml:"tracker"`

	Leaderboard struct {
		Windows     []int         `yaml:"windows" default:"[24,48,168]" validate:"min=1,dive,gt=0"`
		Limit       int           `yaml:"limit" default:"10" validate:"gt=0"`
		Interval    time.Duration `yaml:"interval" default:"1h"`
		Parallelism int           `yaml:"parallelism" default:"4" validate:"gt=0"`
	} `yaml:"leaderboard"`
}

// Load reads a YAML configuration file, applies defaults, and
// validates the result. A missing file is not an error; defaults and
// environment overrides still apply.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
			// run on defaults
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&c)

	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("KOLTRACK_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CLICKHOUSE_ADDR"); v != "" {
		c.ClickHouse.Addr = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CHAINSTREAM_URL"); v != "" {
		c.Chainstream.URL = v
		c.Chainstream.Enabled = true
	}
	if v := os.Getenv("CHAINSTREAM_API_KEY"); v != "" {
		c.Chainstream.APIKey = v
	}
	if v := os.Getenv("KOL_WALLETS"); v != "" {
		c.Chainstream.Wallets = strings.Split(v, ",")
	}
}
