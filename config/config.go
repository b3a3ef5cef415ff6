package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	Store          string   `mapstructure:"store"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	CookieDomain   string   `mapstructure:"cookie_domain"`
}

type PostgresConfig struct {
	DB       string `mapstructure:"db"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
}

// DSN builds a lib/pq connection URL.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type GraphQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ClientConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SessionFile       string        `mapstructure:"session_file"`
	MinReloadInterval time.Duration `mapstructure:"min_reload_interval"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
}

// Load reads configuration from an optional file, the process environment
// and a .env file in the working directory, in increasing priority of the
// first two. A missing .env is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Server.Store != StoreMemory && cfg.Server.Store != StorePostgres {
		return nil, fmt.Errorf("unknown store %q", cfg.Server.Store)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.store", StoreMemory)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")

	v.SetDefault("redis.ttl", time.Minute)

	v.SetDefault("kafka.topic", "poll-registry-events")
	v.SetDefault("kafka.group_id", "poll-registry-listener")

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("graphql.enabled", true)
	v.SetDefault("graphql.path", "/graphql")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.session_file", ".pollctl-session.yaml")
	v.SetDefault("client.min_reload_interval", 10*time.Second)
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.addr", "POLLREG_ADDR")
	_ = v.BindEnv("server.store", "POLLREG_STORE")
	_ = v.BindEnv("server.allowed_origins", "POLLREG_ALLOWED_ORIGINS")
	_ = v.BindEnv("server.cookie_domain", "POLLREG_COOKIE_DOMAIN")

	_ = v.BindEnv("postgres.db", "POSTGRES_DB")
	_ = v.BindEnv("postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("postgres.port", "POSTGRES_PORT")

	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.ttl", "POLLREG_CACHE_TTL")

	_ = v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	_ = v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")

	_ = v.BindEnv("auth.secret", "JWT_SECRET")
	_ = v.BindEnv("auth.token_ttl", "POLLREG_TOKEN_TTL")

	_ = v.BindEnv("graphql.enabled", "POLLREG_GRAPHQL")
	_ = v.BindEnv("graphql.path", "POLLREG_GRAPHQL_PATH")

	_ = v.BindEnv("client.base_url", "POLLREG_URL")
	_ = v.BindEnv("client.session_file", "POLLREG_SESSION_FILE")
	_ = v.BindEnv("client.min_reload_interval", "POLLREG_RELOAD_INTERVAL")
	_ = v.BindEnv("client.confirm_timeout", "POLLREG_CONFIRM_TIMEOUT")
}
