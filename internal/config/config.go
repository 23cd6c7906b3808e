package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Production ProductionConfig
	Worker     WorkerConfig
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxConns     int
	MaxIdleConns int
}

// SecurityConfig holds auth settings
type SecurityConfig struct {
	JWTSecret      string
	TokenLifetime  time.Duration
	BCryptCost     int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// ProductionConfig holds defaults for the production core
type ProductionConfig struct {
	DefaultBatchSize int
	CompanyCode      string
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	OverdueScanCron string
	ScanBatchSize   int
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         os.Getenv("USER"),
			DBName:       "cultivation_portal",
			SSLMode:      "disable",
			MaxConns:     25,
			MaxIdleConns: 5,
		},
		Security: SecurityConfig{
			JWTSecret:     "dev-secret-change-me",
			TokenLifetime: 24 * time.Hour,
			BCryptCost:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Production: ProductionConfig{
			DefaultBatchSize: 50,
			CompanyCode:      "MAIN",
		},
		Worker: WorkerConfig{
			OverdueScanCron: "0 */15 * * * *",
			ScanBatchSize:   200,
		},
	}

	overrideWithEnv(config)

	if config.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.DBName = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		config.Database.SSLMode = mode
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if size := os.Getenv("DEFAULT_BATCH_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil && s > 0 {
			config.Production.DefaultBatchSize = s
		}
	}
	if code := os.Getenv("COMPANY_CODE"); code != "" {
		config.Production.CompanyCode = code
	}
	if expr := os.Getenv("OVERDUE_SCAN_CRON"); expr != "" {
		config.Worker.OverdueScanCron = expr
	}
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
