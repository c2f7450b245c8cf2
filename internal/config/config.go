// Package config loads service configuration from an optional .env
// file, an optional YAML file (CONFIG_PATH), and environment variables,
// in that order: env always wins. The per-chama lending policy is NOT
// here — LoanConfig is data, loaded from the chama row per operation.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type MySQLConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	DB   string `yaml:"db"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
	// IdempotencyTTLSecs bounds how long a finished response is
	// replayable from the cache. The DB-level unique keys stay
	// authoritative after it expires.
	IdempotencyTTLSecs int `yaml:"idempotency_ttl_seconds"`
}

// WorkerConfig drives the penalty-accrual daemon: how often a sweep
// starts and how wide its per-loan fan-out may go.
type WorkerConfig struct {
	AccrualIntervalMins int `yaml:"accrual_interval_minutes"`
	WorkerCount         int `yaml:"worker_count"`
	BufferSize          int `yaml:"buffer_size"`
}

type Config struct {
	App    AppConfig    `yaml:"app"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Worker WorkerConfig `yaml:"worker"`
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load builds the configuration. A missing .env or YAML file is not an
// error; both exist for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.App.Port = getenv("APP_PORT", c.App.Port)
	c.App.LogLevel = getenv("LOG_LEVEL", c.App.LogLevel)

	c.MySQL.Host = getenv("MYSQL_HOST", c.MySQL.Host)
	c.MySQL.Port = getenv("MYSQL_PORT", c.MySQL.Port)
	c.MySQL.DB = getenv("MYSQL_DB", c.MySQL.DB)
	c.MySQL.User = getenv("MYSQL_USER", c.MySQL.User)
	c.MySQL.Pass = getenv("MYSQL_PASS", c.MySQL.Pass)

	c.Redis.Addr = getenv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.DB = getenvInt("REDIS_DB", c.Redis.DB)
	c.Redis.IdempotencyTTLSecs = getenvInt("IDEMPOTENCY_TTL_SECONDS", c.Redis.IdempotencyTTLSecs)

	c.Worker.AccrualIntervalMins = getenvInt("ACCRUAL_INTERVAL_MINUTES", c.Worker.AccrualIntervalMins)
	c.Worker.WorkerCount = getenvInt("WORKER_COUNT", c.Worker.WorkerCount)
	c.Worker.BufferSize = getenvInt("BUFFER_SIZE", c.Worker.BufferSize)
}

func (c *Config) applyDefaults() {
	if c.App.Port == "" {
		c.App.Port = "8080"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = "mysql"
	}
	if c.MySQL.Port == "" {
		c.MySQL.Port = "3306"
	}
	if c.MySQL.DB == "" {
		c.MySQL.DB = "chama"
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "chama"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "redis:6379"
	}
	if c.Redis.IdempotencyTTLSecs <= 0 {
		c.Redis.IdempotencyTTLSecs = 300
	}
	if c.Worker.AccrualIntervalMins <= 0 {
		c.Worker.AccrualIntervalMins = 60
	}
	if c.Worker.WorkerCount <= 0 {
		c.Worker.WorkerCount = 4
	}
	if c.Worker.BufferSize <= 0 {
		c.Worker.BufferSize = 64
	}
}

func (c *Config) Validate() error {
	if c.MySQL.Host == "" || c.MySQL.Port == "" || c.MySQL.DB == "" || c.MySQL.User == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQL.Port); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQL.Port, err)
	}
	if c.App.Port == "" {
		return errors.New("missing APP_PORT")
	}
	if c.Worker.WorkerCount > 64 {
		return fmt.Errorf("worker.worker_count %d is unreasonably high (max 64)", c.Worker.WorkerCount)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQL.Host, c.MySQL.Port) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQL.User, c.MySQL.Pass, c.mysqlAddr(), c.MySQL.DB)
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.Redis.IdempotencyTTLSecs) * time.Second
}

func (c *Config) AccrualInterval() time.Duration {
	return time.Duration(c.Worker.AccrualIntervalMins) * time.Minute
}
