package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Event drivers supported by the domain event publisher.
const (
	EventsDriverNone      = "none"
	EventsDriverGoChannel = "gochannel"
	EventsDriverKafka     = "kafka"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Enrollment EnrollmentConfig
	GradeCache GradeCacheConfig
	Events     EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EnrollmentConfig carries institutional enrollment policy.
type EnrollmentConfig struct {
	// RequireApproval makes new enrollments start as pending instead of active.
	RequireApproval bool
}

// GradeCacheConfig governs the section grade listing cache.
type GradeCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// EventsConfig selects where domain events are published.
type EventsConfig struct {
	Driver       string
	KafkaBrokers []string
	TopicPrefix  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Enrollment = EnrollmentConfig{
		RequireApproval: v.GetBool("ENROLLMENT_REQUIRE_APPROVAL"),
	}

	cfg.GradeCache = GradeCacheConfig{
		Enabled: v.GetBool("ENABLE_GRADE_CACHE"),
		TTL:     parseDuration(v.GetString("GRADE_CACHE_TTL"), 5*time.Minute),
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("EVENTS_DRIVER")))
	switch driver {
	case EventsDriverGoChannel, EventsDriverKafka:
	default:
		driver = EventsDriverNone
	}
	cfg.Events = EventsConfig{
		Driver:       driver,
		KafkaBrokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		TopicPrefix:  v.GetString("EVENTS_TOPIC_PREFIX"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academic_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENROLLMENT_REQUIRE_APPROVAL", false)
	v.SetDefault("ENABLE_GRADE_CACHE", false)
	v.SetDefault("GRADE_CACHE_TTL", "5m")

	v.SetDefault("EVENTS_DRIVER", EventsDriverNone)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_TOPIC_PREFIX", "academic")
}

// SetConfigFile bypasses viper's not-found detection, so a missing .env surfaces as a path error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
