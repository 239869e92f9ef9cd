package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds process-level settings loaded from the environment.
type Config struct {
	Port        string
	DBPath      string
	ScanConfig  string
	LogLevel    string
	LogFormat   string
	Environment string
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "data/market_data.db"),
		ScanConfig:  getEnv("SCAN_CONFIG", "config/scanner.yaml"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	AppConfig = config
	return config, nil
}

// InitDB opens the SQLite database, creating its directory when needed.
func InitDB() (*gorm.DB, error) {
	if dir := filepath.Dir(AppConfig.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logLevel := gormlogger.Error
	if AppConfig.Environment != "production" {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(sqlite.Open(AppConfig.DBPath+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", AppConfig.DBPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	// SQLite tolerates a single writer; keep the pool small.
	sqlDB.SetMaxOpenConns(1)

	DB = db
	return db, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
