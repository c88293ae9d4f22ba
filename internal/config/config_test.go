package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("AWS_REGION", "")

	cfg := Load()

	assert.Equal(t, 60*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "admin@unipool.com", cfg.AdminEmail)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.S3Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "15m")
	t.Setenv("ADMIN_EMAIL", "  Root@Campus.EDU ")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "root@campus.edu", cfg.AdminEmail)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.UTC, cfg.AppTimeZone)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Hour, parseDuration("soon", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("-5m", time.Hour))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Hour))
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable", DBTimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
