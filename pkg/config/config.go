package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimitRPS    float64       `yaml:"rate_limit_rps"`
		RateLimitBurst  int           `yaml:"rate_limit_burst"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled"`
		Path          string        `yaml:"path"`
		SlowThreshold time.Duration `yaml:"slow_threshold"`
	} `yaml:"metrics"`
	Scanner struct {
		Period      string        `yaml:"period"`
		Lookback    int           `yaml:"lookback"`
		UseLog      bool          `yaml:"use_log"`
		TPPct       float64       `yaml:"tp_pct"`
		SLPct       float64       `yaml:"sl_pct"`
		Horizon     int           `yaml:"horizon"`
		Concurrency int           `yaml:"concurrency"`
		Timeout     time.Duration `yaml:"timeout"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
		BarsTTL     time.Duration `yaml:"bars_ttl"`
		JobTTL      time.Duration `yaml:"job_ttl"`
		MaxSymbols  int           `yaml:"max_symbols"`
	} `yaml:"scanner"`
	Provider struct {
		YahooURL   string        `yaml:"yahoo_url"`
		StooqURL   string        `yaml:"stooq_url"`
		Retries    int           `yaml:"retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		Timeout    time.Duration `yaml:"timeout"`
		RPS        float64       `yaml:"rps"`
		Burst      int           `yaml:"burst"`
		Breaker    struct {
			MaxRequests         uint32        `yaml:"max_requests"`
			Interval            time.Duration `yaml:"interval"`
			Timeout             time.Duration `yaml:"timeout"`
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
		} `yaml:"breaker"`
	} `yaml:"provider"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Topics       struct {
			Signals      string `yaml:"signals"`
			Bars         string `yaml:"bars"`
			ScanRequests string `yaml:"scan_requests"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Schedule struct {
		Enabled    bool     `yaml:"enabled"`
		Cron       string   `yaml:"cron"`
		RunOnStart bool     `yaml:"run_on_start"`
		Watchlist  []string `yaml:"watchlist"`
	} `yaml:"schedule"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("WATCHLIST"); v != "" {
		c.Schedule.Watchlist = splitList(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Scanner.Period == "" {
		c.Scanner.Period = "2y"
	}
	if c.Scanner.Lookback == 0 {
		c.Scanner.Lookback = 200
	}
	if c.Scanner.TPPct == 0 {
		c.Scanner.TPPct = 5
	}
	if c.Scanner.SLPct == 0 {
		c.Scanner.SLPct = 3
	}
	if c.Scanner.Horizon == 0 {
		c.Scanner.Horizon = 10
	}
	if c.Scanner.Concurrency <= 0 {
		c.Scanner.Concurrency = 4
	}
	if c.Scanner.Timeout == 0 {
		c.Scanner.Timeout = 60 * time.Second
	}
	if c.Scanner.CacheTTL == 0 {
		c.Scanner.CacheTTL = 10 * time.Minute
	}
	if c.Scanner.BarsTTL == 0 {
		c.Scanner.BarsTTL = 30 * time.Minute
	}
	if c.Scanner.JobTTL == 0 {
		c.Scanner.JobTTL = time.Hour
	}
	if c.Scanner.MaxSymbols == 0 {
		c.Scanner.MaxSymbols = 50
	}
	if c.Provider.YahooURL == "" {
		c.Provider.YahooURL = "https://query1.finance.yahoo.com"
	}
	if c.Provider.StooqURL == "" {
		c.Provider.StooqURL = "https://stooq.com"
	}
	if c.Provider.Retries == 0 {
		c.Provider.Retries = 3
	}
	if c.Provider.RetryDelay == 0 {
		c.Provider.RetryDelay = 800 * time.Millisecond
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 15 * time.Second
	}
	if c.Kafka.Topics.Signals == "" {
		c.Kafka.Topics.Signals = "railscan.signals"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scanner.Lookback < 60 {
		return fmt.Errorf("scanner.lookback must be >= 60, got %d", c.Scanner.Lookback)
	}
	if c.Scanner.TPPct <= 0 || c.Scanner.SLPct <= 0 {
		return fmt.Errorf("scanner.tp_pct and scanner.sl_pct must be positive")
	}
	if c.Scanner.SLPct >= 100 {
		return fmt.Errorf("scanner.sl_pct must be below 100, got %v", c.Scanner.SLPct)
	}
	if c.Scanner.Horizon < 1 {
		return fmt.Errorf("scanner.horizon must be positive, got %d", c.Scanner.Horizon)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Schedule.Enabled && len(c.Schedule.Watchlist) == 0 {
		return fmt.Errorf("schedule.watchlist cannot be empty when schedule is enabled")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
