package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAccessTokenTTL  = 900 * time.Second
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type Config struct {
	ServerPort  int
	FrontendURL string
	CORSOrigin  string
	Database    DatabaseConfig
	JWT         JWTConfig
	SMTP        SMTPConfig
	Storage     StorageConfig
	Minio       MinioConfig
	GCS         GCSConfig
	Events      EventsConfig
	RabbitMQ    RabbitMQConfig
	PubSub      PubSubConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// JWTConfig holds signing parameters for the access/refresh token pair.
// Secret is required; the server refuses to start without it.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// StorageConfig selects the object-storage backend used for uploads.
// Backend is one of "minio", "gcs", or "" (uploads disabled).
type StorageConfig struct {
	Backend   string
	PublicURL string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// EventsConfig selects the event-publisher backend.
// Backend is one of "rabbitmq", "pubsub", or "" (events disabled).
type EventsConfig struct {
	Backend string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "myapp"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "myapp_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	jwtConfig := JWTConfig{
		Secret:     getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvSeconds("JWT_ACCESS_EXPIRES_IN", defaultAccessTokenTTL),
		RefreshTTL: getEnvSeconds("JWT_REFRESH_EXPIRES_IN", defaultRefreshTokenTTL),
	}

	smtpConfig := SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@localhost"),
	}

	return Config{
		ServerPort:  getEnvInt("SERVER_PORT", 3000),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:5173"),
		Database:    dbConfig,
		JWT:         jwtConfig,
		SMTP:        smtpConfig,
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", ""),
			PublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "my-app-uploads"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
		Events: EventsConfig{
			Backend: getEnv("EVENTS_BACKEND", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvSeconds reads a duration expressed as an integer number of seconds.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
			return time.Duration(value) * time.Second
		}
	}
	return defaultValue
}
