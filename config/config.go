package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultJWTSecret = "your-very-strong-access-secret"

type Config struct {
	App struct {
		Env            string
		Port           string
		LogLevel       string
		AllowedOrigins []string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	JWT struct {
		Secret        string
		ExpiryMinutes int
	}
	Redis struct {
		Enabled      bool
		Addr         string
		Password     string
		DB           int
		StreamMaxLen int64
		LatestTTL    time.Duration
	}
	Scoring struct {
		DefaultOvers            int
		FreeHitOnNoBall         bool
		FreeHitOnBoundaryNoBall bool
		QueueDepth              int
		PendingCommandTTL       time.Duration
		// Empty means the embedded vocabulary.
		VocabularyPath string
	}
	Broadcast struct {
		QueueSize       int
		ClientBuffer    int
		SnapshotTimeout time.Duration
	}
}

// Global DB instance, accessible after ConnectDB() is called via Initialize.
var DB *gorm.DB

var appConfig *Config
var once sync.Once

// LoadConfig loads configuration from the environment, reading .env first
// when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on system environment variables.")
	}

	cfg := &Config{}
	var err error

	// --- App Configuration ---
	cfg.App.Env = getEnv("APP_ENV", "development")
	cfg.App.Port = getEnv("PORT", "8088")
	cfg.App.LogLevel = getEnv("LOG_LEVEL", "INFO")
	cfg.App.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", []string{"*"})

	// --- Database Configuration ---
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "password")
	cfg.DB.Name = getEnv("DB_NAME", "crease")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// --- JWT Configuration ---
	cfg.JWT.Secret = getEnv("JWT_ACCESS_TOKEN_SECRET", defaultJWTSecret)
	if cfg.JWT.ExpiryMinutes, err = getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 15); err != nil {
		return nil, err
	}

	// --- Redis Configuration ---
	if cfg.Redis.Enabled, err = getEnvAsBool("REDIS_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxLen, err := getEnvAsInt("REDIS_STREAM_MAXLEN", 10000)
	if err != nil {
		return nil, err
	}
	cfg.Redis.StreamMaxLen = int64(maxLen)
	if cfg.Redis.LatestTTL, err = getEnvAsDuration("REDIS_LATEST_TTL", 6*time.Hour); err != nil {
		return nil, err
	}

	// --- Scoring Configuration ---
	if cfg.Scoring.DefaultOvers, err = getEnvAsInt("DEFAULT_OVERS", 20); err != nil {
		return nil, err
	}
	if cfg.Scoring.FreeHitOnNoBall, err = getEnvAsBool("FREE_HIT_ON_NO_BALL", true); err != nil {
		return nil, err
	}
	if cfg.Scoring.FreeHitOnBoundaryNoBall, err = getEnvAsBool("FREE_HIT_ON_BOUNDARY_NO_BALL", true); err != nil {
		return nil, err
	}
	if cfg.Scoring.QueueDepth, err = getEnvAsInt("MATCH_QUEUE_DEPTH", 64); err != nil {
		return nil, err
	}
	if cfg.Scoring.PendingCommandTTL, err = getEnvAsDuration("PENDING_COMMAND_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	cfg.Scoring.VocabularyPath = getEnv("VOCABULARY_PATH", "")

	// --- Broadcast Configuration ---
	if cfg.Broadcast.QueueSize, err = getEnvAsInt("BROADCAST_QUEUE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.Broadcast.ClientBuffer, err = getEnvAsInt("BROADCAST_CLIENT_BUFFER", 256); err != nil {
		return nil, err
	}
	if cfg.Broadcast.SnapshotTimeout, err = getEnvAsDuration("BROADCAST_SNAPSHOT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.Scoring.DefaultOvers < 1 || cfg.Scoring.DefaultOvers > 50 {
		return nil, fmt.Errorf("env var DEFAULT_OVERS: must be between 1 and 50, got %d", cfg.Scoring.DefaultOvers)
	}
	if cfg.JWT.Secret == defaultJWTSecret {
		slog.Warn("Using default JWT secret. Set JWT_ACCESS_TOKEN_SECRET for production.")
	}
	if cfg.DB.Password == "password" && cfg.App.Env == "production" {
		slog.Warn("Using default DB password in production. Set DB_PASSWORD.")
	}

	appConfig = cfg
	return cfg, nil
}

// DSN is the key/value connection string understood by both pgx and lib/pq.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DB.Host,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.Port,
		c.DB.SSLMode,
	)
}

// gormConfig translates driver errors into gorm's sentinels; the event log
// relies on gorm.ErrDuplicatedKey to spot a concurrent writer.
func gormConfig(env string) *gorm.Config {
	c := &gorm.Config{TranslateError: true}
	if env == "development" {
		c.Logger = logger.Default.LogMode(logger.Info) // Log SQL queries in development
	} else {
		c.Logger = logger.Default.LogMode(logger.Silent)
	}
	return c
}

// ConnectDB opens the gorm connection and sets the global DB.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(cfg.App.Env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = gormDB
	slog.Info("Successfully connected to database", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return gormDB, nil
}

// Initialize loads the configuration and connects to the database, once.
func Initialize() error {
	var loadErr error
	once.Do(func() {
		loadedCfg, err := LoadConfig()
		if err != nil {
			loadErr = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		if _, err = ConnectDB(loadedCfg); err != nil {
			loadErr = fmt.Errorf("failed to connect to database during initialization: %w", err)
			return
		}
	})
	return loadErr
}

// GetConfig returns the loaded application configuration. It exits if
// Initialize has not run.
func GetConfig() *Config {
	if appConfig == nil {
		log.Fatal("Configuration not loaded. Call config.Initialize() first.")
	}
	return appConfig
}

// Helper function to get an environment variable or return a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected integer, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected boolean, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected duration such as 90s, got '%s'", key, valueStr)
	}
	return value, nil
}

// Comma separated; blank entries are dropped.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
