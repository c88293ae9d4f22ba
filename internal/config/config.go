package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Server
	Port        string
	AppEnv      string
	CORSOrigins []string
	BaseURL     string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis
	RedisURL string

	// Sessions
	JWTSecret          string
	SessionIdleTimeout time.Duration
	SessionTokenTTL    time.Duration
	SessionCookieName  string

	// Identity
	AdminEmail string

	// Ride form times without an offset are read in this location
	AppTimeZone *time.Location

	// Storage
	UploadDir          string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSS3Bucket        string

	// Firebase
	FirebaseServiceAccountPath string
	FirebaseRidesTopic         string

	// Observability
	SentryDSN string
	LogFile   string
	LogLevel  string
}

// Load reads the process configuration. A missing .env file is not an error;
// the environment alone is enough in containers.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		CORSOrigins: parseCSV(getEnv("CORS_ORIGINS", "*")),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "unipool"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),

		RedisURL: getEnv("REDIS_URL", "redis://redis:6379"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		SessionIdleTimeout: parseDuration(getEnv("SESSION_IDLE_TIMEOUT", "60m"), 60*time.Minute),
		SessionTokenTTL:    parseDuration(getEnv("SESSION_TOKEN_TTL", "24h"), 24*time.Hour),
		SessionCookieName:  getEnv("SESSION_COOKIE_NAME", "unipool_session"),

		AdminEmail: strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", "admin@unipool.com"))),

		AppTimeZone: parseLocation(getEnv("APP_TIMEZONE", "Local")),

		UploadDir:          getEnv("UPLOAD_DIR", "/app/uploads"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),

		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		FirebaseRidesTopic:         getEnv("FIREBASE_RIDES_TOPIC", "unipool-rides"),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		LogFile:   getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=" + c.DBTimeZone
}

// S3Enabled reports whether all AWS settings needed for S3 uploads are present.
func (c *Config) S3Enabled() bool {
	return c.AWSRegion != "" && c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "" && c.AWSS3Bucket != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.WithError(err).WithField("timezone", name).Warn("Unknown APP_TIMEZONE, falling back to local time")
		return time.Local
	}
	return loc
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
