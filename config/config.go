package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultBcryptCost = 12
)

type Config struct {
	ServerPort int
	ClientURL  string
	Database   DatabaseConfig
	Auth       AuthConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	MQ         MQConfig
	Storage    StorageConfig
}

type DatabaseConfig struct {
	// URL overrides the discrete connection fields when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type AuthConfig struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	BcryptCost         int
	AllowAdminRegister bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type MQConfig struct {
	// Backend is "rabbitmq", "pubsub" or empty to disable event publishing.
	Backend  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL          string
	Exchange     string
	QueueDurable bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
	TopicPrefix     string
}

type StorageConfig struct {
	// Backend is "minio", "gcs" or empty to disable post covers.
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
	Bucket          string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		URL:      getEnv("DB_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "blog"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "blog_db"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	authConfig := AuthConfig{
		AccessSecret:       strings.TrimSpace(getEnv("JWT_ACCESS_SECRET", "")),
		RefreshSecret:      strings.TrimSpace(getEnv("JWT_REFRESH_SECRET", "")),
		AccessTTL:          getEnvTTL("ACCESS_TOKEN_ACTIVE_TIME", defaultAccessTTL),
		RefreshTTL:         getEnvTTL("REFRESH_TOKEN_ACTIVE_TIME", defaultRefreshTTL),
		BcryptCost:         getEnvInt("AUTH_BCRYPT_COST", defaultBcryptCost),
		AllowAdminRegister: getEnvBool("AUTH_ALLOW_ADMIN_SIGNUP", false),
	}

	return Config{
		ServerPort: getEnvInt("PORT", getEnvInt("SERVER_PORT", 8080)),
		ClientURL:  getEnv("CLIENT_URL", ""),
		Database:   dbConfig,
		Auth:       authConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		MQ: MQConfig{
			Backend: strings.ToLower(getEnv("MQ_BACKEND", "")),
			RabbitMQ: RabbitMQConfig{
				URL:          getEnv("RABBITMQ_URL", ""),
				Exchange:     getEnv("RABBITMQ_EXCHANGE", "blog.events"),
				QueueDurable: getEnvBool("RABBITMQ_DURABLE", true),
			},
			PubSub: PubSubConfig{
				ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				TopicPrefix:     getEnv("PUBSUB_TOPIC_PREFIX", "blog-"),
			},
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "")),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "blog-covers"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
				Bucket:          getEnv("GCS_BUCKET", ""),
			},
		},
	}
}

// Validate reports configuration the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_ACTIVE_TIME must be positive"))
	}
	if c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_ACTIVE_TIME must be positive"))
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		errs = append(errs, fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend))
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

// getEnvTTL returns zero for values that cannot be parsed so Validate rejects them.
func getEnvTTL(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	ttl, err := ParseTTL(valueStr)
	if err != nil {
		return 0
	}
	return ttl
}

// Largest second and day counts that fit in a time.Duration.
const (
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)
	maxTTLDays    = math.MaxInt64 / int64(24*time.Hour)
)

// ParseTTL accepts Go durations ("15m", "1h30m"), whole days ("7d") and bare seconds ("900").
func ParseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if seconds > maxTTLSeconds || seconds < -maxTTLSeconds {
			return 0, fmt.Errorf("duration %q out of range", raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		if n > maxTTLDays || n < -maxTTLDays {
			return 0, fmt.Errorf("duration %q out of range", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}
