package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	LogLevel   string
	Database   DatabaseConfig
	JWT        JWTConfig
	AI         AIConfig
	Wiki       WikiConfig
	Events     EventsConfig
	Archive    ArchiveConfig
}

type DatabaseConfig struct {
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	UseSSL      bool
	AutoMigrate bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// AIConfig describes the chat-completion endpoint used by /api/ai/ask.
type AIConfig struct {
	BaseURL    string
	Token      string
	Model      string
	APIVersion string
	Timeout    time.Duration
}

type WikiConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// EventsConfig selects the audit event backend. An empty Backend disables publishing.
type EventsConfig struct {
	Backend  string
	Channel  string
	Timeout  time.Duration
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL          string
	QueueDurable bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

// ArchiveConfig selects the transcript archive backend. An empty Backend disables archiving.
type ArchiveConfig struct {
	Backend string
	Timeout time.Duration
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
	Bucket          string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		URL:         getEnv("DATABASE_URL", ""),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnvInt("DB_PORT", 5432),
		User:        getEnv("DB_USER", "historyguide"),
		Password:    getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "historyguide_db"),
		UseSSL:      getEnvBool("DB_USE_SSL", false),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Database:   dbConfig,
		JWT: JWTConfig{
			Secret: strings.TrimSpace(getEnv("JWT_SECRET", "")),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		AI: AIConfig{
			BaseURL:    getEnv("AI_BASE_URL", "https://models.inference.ai.azure.com"),
			Token:      getEnv("GITHUB_TOKEN", ""),
			Model:      getEnv("AI_MODEL", "gpt-4o-mini"),
			APIVersion: getEnv("AI_API_VERSION", "2023-10-16"),
			Timeout:    getEnvDuration("AI_TIMEOUT", 60*time.Second),
		},
		Wiki: WikiConfig{
			BaseURL:   getEnv("WIKI_BASE_URL", "https://en.wikipedia.org/api/rest_v1"),
			UserAgent: getEnv("WIKI_USER_AGENT", "historyguide-apiserver/1.0"),
			Timeout:   getEnvDuration("WIKI_TIMEOUT", 10*time.Second),
		},
		Events: EventsConfig{
			Backend: strings.ToLower(getEnv("EVENTS_BACKEND", "")),
			Channel: getEnv("EVENTS_CHANNEL", "historyguide.events"),
			Timeout: getEnvDuration("EVENTS_TIMEOUT", 5*time.Second),
			RabbitMQ: RabbitMQConfig{
				URL:          getEnv("RABBITMQ_URL", ""),
				QueueDurable: getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			},
			PubSub: PubSubConfig{
				ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			},
		},
		Archive: ArchiveConfig{
			Backend: strings.ToLower(getEnv("ARCHIVE_BACKEND", "")),
			Timeout: getEnvDuration("ARCHIVE_TIMEOUT", 10*time.Second),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "historyguide-transcripts"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				Bucket:          getEnv("GCS_BUCKET", "historyguide-transcripts"),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			},
		},
	}
}

// Validate reports configuration that must be present before the server starts.
func (c Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL))
	}
	switch c.Events.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", c.Events.Backend))
	}
	switch c.Archive.Backend {
	case "", "minio", "gcs":
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.Archive.Backend))
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
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
