package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all collector configuration
type Config struct {
	DB                DBConfig
	Redis             RedisConfig
	HTTPAddr          string
	PublicURL         string // base URL embedded in bootstrap commands and the install script
	AgentIntervalSec  int    // nominal agent report interval, embedded in the install script
	OfflineTimeoutSec int    // seconds of silence before a node is classified offline
}

// DBConfig holds database configuration
type DBConfig struct {
	SQLitePath string
	MySQLDSN   string // When set, MySQL is used instead of SQLite
}

// RedisConfig holds Redis configuration for the optional event publisher
type RedisConfig struct {
	Addr     string // Empty disables event publishing
	Password string
	DB       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DB: DBConfig{
			SQLitePath: getEnv("SQLITE_PATH", "data/imonitor.db"),
			MySQLDSN:   getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		PublicURL:         getEnv("IMONITOR_PUBLIC_URL", "http://127.0.0.1:8080"),
		AgentIntervalSec:  getEnvInt("IMONITOR_AGENT_INTERVAL", 5),
		OfflineTimeoutSec: getEnvInt("IMONITOR_OFFLINE_TIMEOUT", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromINI loads configuration from an INI file with environment variable override.
// Priority: ENV > INI > default.
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	cfg := &Config{
		DB: DBConfig{
			SQLitePath: getValue("SQLITE_PATH", "db", "sqlite_path", "data/imonitor.db"),
			MySQLDSN:   getValue("MYSQL_DSN", "db", "mysql_dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", ""),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		HTTPAddr:          getValue("HTTP_ADDR", "http", "addr", ":8080"),
		PublicURL:         getValue("IMONITOR_PUBLIC_URL", "http", "public_url", "http://127.0.0.1:8080"),
		AgentIntervalSec:  getValueInt("IMONITOR_AGENT_INTERVAL", "agent", "interval_sec", 5),
		OfflineTimeoutSec: getValueInt("IMONITOR_OFFLINE_TIMEOUT", "agent", "offline_timeout_sec", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.SQLitePath == "" && c.DB.MySQLDSN == "" {
		return fmt.Errorf("SQLITE_PATH or MYSQL_DSN is required")
	}
	if c.AgentIntervalSec <= 0 {
		return fmt.Errorf("IMONITOR_AGENT_INTERVAL must be positive")
	}
	if c.OfflineTimeoutSec <= 0 {
		return fmt.Errorf("IMONITOR_OFFLINE_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
