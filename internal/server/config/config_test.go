package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, 15*time.Minute, c.PresignExpiry)
	assert.Equal(t, "media", c.S3Bucket)
	assert.NotEmpty(t, c.DatabaseDSN)
}

func Test_parseJson_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	b, err := json.Marshal(map[string]any{
		"endpoint_addr":  ":9090",
		"database_dsn":   "postgres://u:p@host:5432/db",
		"presign_expiry": "30m",
		"s3_bucket":      "inspections",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "postgres://u:p@host:5432/db", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, cfg.PresignExpiry)
	assert.Equal(t, "inspections", cfg.S3Bucket)
	// untouched fields keep defaults
	assert.Equal(t, "secretKey", cfg.SecretKey)
}

func Test_parseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-a", ":7070", "-b", "field-media", "-x", "5"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, "field-media", cfg.S3Bucket)
	assert.Equal(t, 5*time.Minute, cfg.PresignExpiry)
}
