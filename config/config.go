// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Treasury  TreasuryConfig
	Service   ServiceConfig
	JWTSecret string
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string
}

// TreasuryConfig points at the payout rail that executes outbound
// transfers on escrow's behalf.
type TreasuryConfig struct {
	BaseURL string
	APIKey  string
}

// ServiceConfig fixes the escrow instance served by this process: its
// identifier, the fulfiller it fronts, the opening fee and the three
// role identities.
type ServiceConfig struct {
	ServiceID    uint64
	FulfillerRef string
	Fee          uint64
	Router       string
	Manager      string
	Beneficiary  string
}

func Load(logger *zap.Logger) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8032"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "escrow"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "redis"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
			Channel:  getEnv("REDIS_EVENT_CHANNEL", "escrow:events"),
		},
		Treasury: TreasuryConfig{
			BaseURL: getEnv("TREASURY_BASE_URL", ""),
			APIKey:  getEnv("TREASURY_API_KEY", ""),
		},
		Service: ServiceConfig{
			ServiceID:    getEnvAsUint64("ESCROW_SERVICE_ID", 0),
			FulfillerRef: getEnv("ESCROW_FULFILLER_REF", ""),
			Fee:          getEnvAsUint64("ESCROW_FEE", 0),
			Router:       getEnv("ESCROW_ROUTER_ID", ""),
			Manager:      getEnv("ESCROW_MANAGER_ID", ""),
			Beneficiary:  getEnv("ESCROW_BENEFICIARY_ID", ""),
		},
		JWTSecret: getEnv("JWT_SECRET", ""),
	}

	if cfg.Service.ServiceID == 0 {
		return nil, fmt.Errorf("ESCROW_SERVICE_ID must be a positive integer")
	}
	if cfg.Service.Router == "" || cfg.Service.Manager == "" || cfg.Service.Beneficiary == "" {
		return nil, fmt.Errorf("ESCROW_ROUTER_ID, ESCROW_MANAGER_ID and ESCROW_BENEFICIARY_ID are required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Treasury.BaseURL == "" {
		logger.Warn("TREASURY_BASE_URL is empty, outbound payouts will fail")
	}

	logger.Info("configuration loaded",
		zap.Uint64("service_id", cfg.Service.ServiceID),
		zap.String("fulfiller_ref", cfg.Service.FulfillerRef),
		zap.Uint64("fee", cfg.Service.Fee))

	return cfg, nil
}

// DatabaseURL assembles the pgx connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// RedisAddr assembles the host:port pair for the redis client.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
