package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	JWT       JWTConfig       `yaml:"jwt"`
	Logger    LoggerConfig    `yaml:"logger"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type LedgerConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	RevocationPurge time.Duration `yaml:"revocation_purge_interval"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Pretty     bool   `yaml:"pretty"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	path := os.Getenv("FUNDS_CONFIG")
	if path == "" {
		path = "./config.yaml"
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Ledger.DefaultPageSize <= 0 {
		c.Ledger.DefaultPageSize = 20
	}
	if c.Ledger.MaxPageSize <= 0 {
		c.Ledger.MaxPageSize = 100
	}
	if c.JWT.TokenTTL <= 0 {
		c.JWT.TokenTTL = 24 * time.Hour
	}
	if c.JWT.RevocationPurge <= 0 {
		c.JWT.RevocationPurge = time.Hour
	}
}
