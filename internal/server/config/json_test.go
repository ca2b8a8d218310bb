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

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"endpoint_addr_grpc":        "www.example:9000",
		"database_dsn":              "postgres://db/skillhub",
		"secret_key":                "my_secret_key",
		"s3_root_user":              "user",
		"s3_root_password":          "password",
		"s3_bucket":                 "bucket",
		"s3_region":                 "region",
		"s3_base_endpoint":          "base_endpoint",
		"storage_breaker_threshold": 3,
		"log_level":                 "warn",
		"log_format":                "text",
		"cleanup_workers":           2,
		"cleanup_queue_size":        16,
		"cleanup_max_elapsed":       "30s",
		"cleanup_sweep_interval":    "2m",
		"fallback_scan_window":      50,
		"reservation_ttl":           "72h",
		"moderation_rules_file":     "rules.json",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db/skillhub", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, int64(3), cfg.StorageBreakerThreshold)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, 2, cfg.CleanupWorkers)
		assert.Equal(t, 16, cfg.CleanupQueueSize)
		assert.Equal(t, 30*time.Second, cfg.CleanupMaxElapsed)
		assert.Equal(t, 2*time.Minute, cfg.CleanupSweepInterval)
		assert.Equal(t, 50, cfg.FallbackScanWindow)
		assert.Equal(t, 72*time.Hour, cfg.ReservationTTL)
		assert.Equal(t, "rules.json", cfg.ModerationRulesFile)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "debug"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
		assert.Equal(t, 200, cfg.FallbackScanWindow)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrGRPC: "defaults:1234", ReservationTTL: time.Hour}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, time.Hour, cfg.ReservationTTL)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
