package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "review-service", cfg.KafkaConsumerGroup)
	assert.Equal(t, "http://localhost:8010", cfg.PublicBaseURL())
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("REVIEW_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_MinioNeedsCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", StorageMinio)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MINIO_ACCESS_KEY")

	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "review-images", cfg.MinioBucket)
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "STORAGE_DRIVER"))
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE")
}

func TestPublicBaseURL_Override(t *testing.T) {
	c := &Config{HTTPPort: 8010, BaseURL: "https://reviews.fitvibe.example"}
	assert.Equal(t, "https://reviews.fitvibe.example", c.PublicBaseURL())
}
