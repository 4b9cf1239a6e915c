package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxChunkSize is the largest chunk the backing store accepts in one transaction
const MaxChunkSize = 500

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Snapshot import configuration
	Import ImportConfig

	// Background drift correction
	Sync SyncConfig

	// Hospital units and the keywords that resolve to them
	Units UnitsConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// ImportConfig holds snapshot analysis and commit settings
type ImportConfig struct {
	ChunkSize        int
	MaxSnapshotBytes int64
	PageSize         int
}

// SyncConfig holds drift corrector settings
type SyncConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// UnitsConfig holds the unit vocabulary in declaration order
type UnitsConfig struct {
	Default  string
	Keywords []UnitKeywords
}

// UnitKeywords lists the tokens that identify one unit
type UnitKeywords struct {
	Code     string
	Keywords []string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	units, err := ParseUnitKeywords(getEnv("UNIT_KEYWORDS", "HAB=belem,belém,hab;HABA=barcarena,haba"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "ministry_roster"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Import: ImportConfig{
			ChunkSize:        getIntEnv("IMPORT_CHUNK_SIZE", 400),
			MaxSnapshotBytes: getInt64Env("MAX_SNAPSHOT_BYTES", 10*1024*1024), // 10MB
			PageSize:         getIntEnv("REPORT_PAGE_SIZE", 50),
		},
		Sync: SyncConfig{
			Enabled:  getBoolEnv("SYNC_ENABLED", true),
			Debounce: getDurationEnv("SYNC_DEBOUNCE", 3*time.Second),
		},
		Units: UnitsConfig{
			Default:  getEnv("DEFAULT_UNIT", "HAB"),
			Keywords: units,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Import.ChunkSize <= 0 || c.Import.ChunkSize > MaxChunkSize {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be between 1 and %d, got %d", MaxChunkSize, c.Import.ChunkSize)
	}
	if c.Import.PageSize <= 0 {
		return fmt.Errorf("REPORT_PAGE_SIZE must be positive")
	}
	if len(c.Units.Keywords) == 0 {
		return fmt.Errorf("UNIT_KEYWORDS must declare at least one unit")
	}
	return nil
}

// UnitCodes returns the configured unit codes in declaration order
func (u UnitsConfig) UnitCodes() []string {
	codes := make([]string, 0, len(u.Keywords))
	for _, k := range u.Keywords {
		codes = append(codes, k.Code)
	}
	return codes
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// ParseUnitKeywords parses "CODE=kw1,kw2;CODE2=kw3" into an ordered vocabulary
func ParseUnitKeywords(raw string) ([]UnitKeywords, error) {
	var units []UnitKeywords
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, list, ok := strings.Cut(part, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid UNIT_KEYWORDS entry %q", part)
		}
		entry := UnitKeywords{Code: code}
		for _, kw := range strings.Split(list, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				entry.Keywords = append(entry.Keywords, kw)
			}
		}
		units = append(units, entry)
	}
	return units, nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
