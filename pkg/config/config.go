package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Local       LocalLibraryConfig
	CloudDrive  CloudDriveConfig
	AIGen       AIGenConfig
	Sync        SyncConfig
}

// AppConfig holds server settings
type AppConfig struct {
	Port     string `validate:"required"`
	Env      string
	LogDir   string `validate:"required"`
	LogLevel string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string
	TimeZone string
}

// RedisConfig holds the fingerprint cache settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ObjectStoreConfig holds S3-compatible blob store settings
type ObjectStoreConfig struct {
	Endpoint  string `validate:"required"`
	Region    string `validate:"required"`
	Bucket    string `validate:"required"`
	AccessKey string `validate:"required"`
	SecretKey string `validate:"required"`
	UseSSL    bool
	PathStyle bool
	PartSize  int64 `validate:"min=5242880"`
}

// LocalLibraryConfig holds the local export directory settings
type LocalLibraryConfig struct {
	Enabled bool
	RootDir string
}

// CloudDriveConfig holds the cloud photo source settings
type CloudDriveConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

// AIGenConfig holds the AI image service settings
type AIGenConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
}

// SyncConfig holds orchestrator settings
type SyncConfig struct {
	BatchSize      int `validate:"min=1"`
	MaxConcurrent  int `validate:"min=1"`
	FetchRetries   int `validate:"min=1"`
	UploadRetries  int `validate:"min=1"`
	CronExpression string
	ScheduleSyncs  bool
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables win
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Port:     getEnv("APP_PORT", "8080"),
			Env:      getEnv("APP_ENV", "development"),
			LogDir:   getEnv("LOG_DIR", "logs"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "photovault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_FINGERPRINT_TTL", 24*time.Hour),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnv("STORE_ENDPOINT", "s3.amazonaws.com"),
			Region:    getEnv("STORE_REGION", "us-east-1"),
			Bucket:    getEnv("STORE_BUCKET", "photovault"),
			AccessKey: getEnv("STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORE_SECRET_KEY", ""),
			UseSSL:    getEnvBool("STORE_USE_SSL", true),
			PathStyle: getEnvBool("STORE_PATH_STYLE", false),
			PartSize:  getEnvInt64("STORE_PART_SIZE", 8*1024*1024),
		},
		Local: LocalLibraryConfig{
			Enabled: getEnvBool("LOCAL_ENABLED", false),
			RootDir: getEnv("LOCAL_ROOT_DIR", ""),
		},
		CloudDrive: CloudDriveConfig{
			Enabled:      getEnvBool("CLOUDDRIVE_ENABLED", false),
			ClientID:     getEnv("CLOUDDRIVE_CLIENT_ID", ""),
			ClientSecret: getEnv("CLOUDDRIVE_CLIENT_SECRET", ""),
			RefreshToken: getEnv("CLOUDDRIVE_REFRESH_TOKEN", ""),
			FolderID:     getEnv("CLOUDDRIVE_FOLDER_ID", ""),
		},
		AIGen: AIGenConfig{
			Enabled: getEnvBool("AIGEN_ENABLED", false),
			BaseURL: getEnv("AIGEN_BASE_URL", ""),
			APIKey:  getEnv("AIGEN_API_KEY", ""),
		},
		Sync: SyncConfig{
			BatchSize:      getEnvInt("SYNC_BATCH_SIZE", 100),
			MaxConcurrent:  getEnvInt("SYNC_MAX_CONCURRENT", 4),
			FetchRetries:   getEnvInt("SYNC_FETCH_RETRIES", 5),
			UploadRetries:  getEnvInt("SYNC_UPLOAD_RETRIES", 3),
			CronExpression: getEnv("SYNC_CRON", "0 * * * *"),
			ScheduleSyncs:  getEnvBool("SYNC_SCHEDULED", false),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DSN builds the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
