package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModePerConnection = "per_connection"
	ModeShared        = "shared"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Provider ProviderConfig `mapstructure:"provider"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type AppConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type StreamConfig struct {
	Mode           string        `mapstructure:"mode" validate:"oneof=per_connection shared"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"gte=1"`
	WindowSize     int           `mapstructure:"window_size" validate:"gte=2"`
}

type ProviderConfig struct {
	Name      string        `mapstructure:"name" validate:"oneof=yahoo polygon"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key" validate:"required_if=Name polygon"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

type CatalogConfig struct {
	File         string        `mapstructure:"file"`    // empty: embedded defaults
	Tickers      []string      `mapstructure:"tickers"` // optional subset, in display order
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotKey string        `mapstructure:"snapshot_key" validate:"required"`
	Channel     string        `mapstructure:"channel" validate:"required"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl" validate:"gt=0"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Load .env into the process environment when present
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "stream.poll_interval" -> "STREAM_POLL_INTERVAL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "stream.mode", "stream.poll_interval", "stream.fetch_timeout", "stream.max_concurrency", "stream.window_size")
	bindEnv(v, "provider.name", "provider.base_url", "provider.api_key", "provider.timeout", "provider.user_agent")
	bindEnv(v, "catalog.file", "catalog.tickers", "catalog.fetch_timeout")
	bindEnv(v, "redis.addr", "redis.password", "redis.db", "redis.snapshot_key", "redis.channel", "redis.snapshot_ttl")
	bindEnv(v, "kafka.brokers", "kafka.topic")
	bindEnv(v, "archive.enabled")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Stream.Mode == ModeShared && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required in %s stream mode", ModeShared)
	}
	if c.Archive.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when archiving is enabled")
	}
	return nil
}

// Default returns the configuration LoadConfig produces with an empty environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("stream.mode", ModePerConnection)
	v.SetDefault("stream.poll_interval", 10*time.Second)
	v.SetDefault("stream.fetch_timeout", 5*time.Second)
	v.SetDefault("stream.max_concurrency", 1)
	v.SetDefault("stream.window_size", 60)

	v.SetDefault("provider.name", "yahoo")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (compatible; marketstream/1.0)")

	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.tickers", []string{})
	v.SetDefault("catalog.fetch_timeout", 8*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_key", "marketstream:snapshot:latest")
	v.SetDefault("redis.channel", "marketstream.snapshots")
	v.SetDefault("redis.snapshot_ttl", time.Hour)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_snapshots")

	v.SetDefault("archive.enabled", false)
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
