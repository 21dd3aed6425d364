package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "foodgram", cfg.DBName)
	assert.Equal(t, "media", cfg.MediaRoot)
	assert.Equal(t, "/media/", cfg.MediaURL)
	assert.Equal(t, "data/ingredients.csv", cfg.IngredientsCSV)
	assert.Equal(t, "data/tags.csv", cfg.TagsCSV)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoadConfigRejectsBadRedisDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "foodgram",
		DBPassword: "secret",
		DBName:     "foodgram",
		DBSSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=foodgram password=secret dbname=foodgram sslmode=disable",
		cfg.DSN(),
	)
}

func TestRedisEnabled(t *testing.T) {
	assert.False(t, (&Config{}).RedisEnabled())
	assert.True(t, (&Config{RedisHost: "redis"}).RedisEnabled())
	assert.True(t, (&Config{RedisURL: "redis://redis:6379/0"}).RedisEnabled())
}
