package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Operator  OperatorConfig
	Attack    AttackConfig
	Challenge ChallengeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds database configuration. With Enabled false the
// gateway keeps run history in memory.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// OperatorConfig seeds the operator account at startup.
type OperatorConfig struct {
	Username string
	Password string
}

// AttackConfig holds the oracle and recovery defaults for demo runs.
type AttackConfig struct {
	Algorithm  string
	Mode       string
	Padding    string
	Workers    int
	MaxQueries int64
	Filler     byte
}

// ChallengeConfig holds remote challenge session settings.
type ChallengeConfig struct {
	TTL         time.Duration
	MaxSessions int
	// Secret is used for sessions created without one.
	Secret string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "ecbbreaker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Operator: OperatorConfig{
			Username: getEnv("OPERATOR_USERNAME", "operator"),
			Password: getEnv("OPERATOR_PASSWORD", ""),
		},
		Attack: AttackConfig{
			Algorithm:  getEnv("ATTACK_ALGORITHM", "AES"),
			Mode:       getEnv("ATTACK_MODE", "ECB"),
			Padding:    getEnv("ATTACK_PADDING", "PKCS7"),
			Workers:    getEnvInt("ATTACK_WORKERS", 8),
			MaxQueries: int64(getEnvInt("ATTACK_MAX_QUERIES", 1<<20)),
			Filler:     getEnvByte("ATTACK_FILLER", 'A'),
		},
		Challenge: ChallengeConfig{
			TTL:         getEnvDuration("CHALLENGE_TTL", 30*time.Minute),
			MaxSessions: getEnvInt("CHALLENGE_MAX_SESSIONS", 1000),
			Secret:      getEnv("CHALLENGE_SECRET", "Rollin' in my 5.0"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvByte takes the first byte of the variable.
func getEnvByte(key string, defaultValue byte) byte {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value[0]
	}
	return defaultValue
}

// String returns a string representation of the config
func (c *Config) String() string {
	db := "in-memory"
	if c.Database.Enabled {
		db = fmt.Sprintf("postgres://%s@%s:%d/%s", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Database)
	}
	return fmt.Sprintf(`
Server: %s:%d
Database: %s
JWT Secret: ***
Operator: %s
Attack: %s/%s/%s workers=%d max_queries=%d filler=%q
Challenge TTL: %s`,
		c.Server.Host, c.Server.Port,
		db,
		c.Operator.Username,
		strings.ToUpper(c.Attack.Algorithm), c.Attack.Mode, c.Attack.Padding,
		c.Attack.Workers, c.Attack.MaxQueries, c.Attack.Filler,
		c.Challenge.TTL,
	)
}
