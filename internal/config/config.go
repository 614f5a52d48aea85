package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingBotToken is returned by Validate when no Telegram token is configured
var ErrMissingBotToken = errors.New("BOT_TOKEN is required")

// ErrInvalidQuizPoints is returned by Validate when a correct answer would not raise the score
var ErrInvalidQuizPoints = errors.New("quiz.points must be positive")

// Config represents the application configuration
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Steam       SteamConfig       `yaml:"steam"`
	OpenDota    OpenDotaConfig    `yaml:"opendota"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Sync        SyncConfig        `yaml:"sync"`
	Server      ServerConfig      `yaml:"server"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Quiz        QuizConfig        `yaml:"quiz"`
	Log         LogConfig         `yaml:"log"`
}

// TelegramConfig holds bot API configuration
type TelegramConfig struct {
	Token       string  `yaml:"token"`
	PollTimeout int     `yaml:"poll_timeout"`
	Workers     int     `yaml:"workers"`
	SendRate    float64 `yaml:"send_rate"`
	SendBurst   int     `yaml:"send_burst"`
	Debug       bool    `yaml:"debug"`
}

// SteamConfig holds the Steam Web API settings used for vanity URL resolution.
// An empty APIKey disables vanity resolution.
type SteamConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// OpenDotaConfig holds stats API configuration
type OpenDotaConfig struct {
	BaseURL           string        `yaml:"base_url"`
	ProfileTimeout    time.Duration `yaml:"profile_timeout"`
	MatchesTimeout    time.Duration `yaml:"matches_timeout"`
	BenchmarksTimeout time.Duration `yaml:"benchmarks_timeout"`
	HeroesTimeout     time.Duration `yaml:"heroes_timeout"`
	HeroesFile        string        `yaml:"heroes_file"`
}

// DatabaseConfig holds storage configuration. A postgres:// or postgresql://
// URL selects the networked engine, anything else the embedded SQLite file.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// UsePostgres reports whether the configured URL selects the networked engine
func (c *DatabaseConfig) UsePostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig holds activity publisher and consumer configuration
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	RetryAttempts int           `yaml:"retry_attempts"`
	Timeout       time.Duration `yaml:"timeout"`
	GroupID       string        `yaml:"group_id"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
}

// SyncConfig holds leaderboard mirror rebuild configuration
type SyncConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig holds status HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LeaderboardConfig holds leaderboard-specific configuration
type LeaderboardConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// QuizConfig holds quiz scoring configuration
type QuizConfig struct {
	Points int64 `yaml:"points"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SlogLevel maps the configured level name to a slog level
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// DefaultConfig returns a configuration with all defaults and environment overrides
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Sync.Enabled = true
	return cfg
}

// Validate checks the settings the process cannot start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingBotToken
	}
	if c.Quiz.Points <= 0 {
		return ErrInvalidQuizPoints
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled without brokers")
	}
	return nil
}

// applyEnv lets the well-known deployment variables override the file
func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("STEAM_API_KEY"); v != "" {
		c.Steam.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Telegram defaults
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}
	if c.Telegram.Workers == 0 {
		c.Telegram.Workers = 32
	}
	if c.Telegram.SendRate == 0 {
		c.Telegram.SendRate = 25
	}
	if c.Telegram.SendBurst == 0 {
		c.Telegram.SendBurst = 5
	}

	// Steam defaults
	if c.Steam.BaseURL == "" {
		c.Steam.BaseURL = "https://api.steampowered.com"
	}
	if c.Steam.Timeout == 0 {
		c.Steam.Timeout = 10 * time.Second
	}

	// OpenDota defaults
	if c.OpenDota.BaseURL == "" {
		c.OpenDota.BaseURL = "https://api.opendota.com/api"
	}
	if c.OpenDota.ProfileTimeout == 0 {
		c.OpenDota.ProfileTimeout = 10 * time.Second
	}
	if c.OpenDota.MatchesTimeout == 0 {
		c.OpenDota.MatchesTimeout = 15 * time.Second
	}
	if c.OpenDota.BenchmarksTimeout == 0 {
		c.OpenDota.BenchmarksTimeout = 15 * time.Second
	}
	if c.OpenDota.HeroesTimeout == 0 {
		c.OpenDota.HeroesTimeout = 15 * time.Second
	}
	if c.OpenDota.HeroesFile == "" {
		c.OpenDota.HeroesFile = "hero_names.json"
	}

	// Database defaults
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "dota2_bot.db"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.MinConnections == 0 {
		c.Database.MinConnections = 1
	}
	if c.Database.MaxConnLifetime == 0 {
		c.Database.MaxConnLifetime = 1 * time.Hour
	}
	if c.Database.MaxConnIdleTime == 0 {
		c.Database.MaxConnIdleTime = 30 * time.Minute
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// Kafka defaults
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "bot-activity"
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.Timeout == 0 {
		c.Kafka.Timeout = 5 * time.Second
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "bot-activity-tail"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 50
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 2 * time.Second
	}

	// Sync defaults
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 10 * time.Minute
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Leaderboard defaults
	if c.Leaderboard.DefaultLimit == 0 {
		c.Leaderboard.DefaultLimit = 10
	}
	if c.Leaderboard.MaxLimit == 0 {
		c.Leaderboard.MaxLimit = 100
	}

	if c.Quiz.Points == 0 {
		c.Quiz.Points = 10
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
