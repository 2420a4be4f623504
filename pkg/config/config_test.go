package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		FileEnv, "HTTP_ADDR", "STORE_BACKEND", "STORE_CONFIG", "DATABASE_URL",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"POSTGRES_SSLMODE", "POSTGRES_CONNECT_ATTEMPTS", "POSTGRES_CONNECT_DELAY",
		"CATEGORIES_FILE", "MAX_UPLOAD_BYTES", "ARCHIVE_BUCKET", "ARCHIVE_PREFIX", "ARCHIVE_ENDPOINT",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		if val, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, val) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, uint(5), cfg.Postgres.ConnectAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_CONNECT_ATTEMPTS", "9")
	t.Setenv("POSTGRES_CONNECT_DELAY", "250ms")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("ARCHIVE_BUCKET", "uploads")
	t.Setenv("STORE_CONFIG", `{"x":1}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, uint(9), cfg.Postgres.ConnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Postgres.ConnectDelay)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "uploads", cfg.ArchiveBucket)
	assert.JSONEq(t, `{"x":1}`, string(cfg.StoreConfig))
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "spendsort.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"HTTP_ADDR": ":7000",
		"POSTGRES_DB": "ledger",
		"CATEGORIES_FILE": "/etc/spendsort/categories.yaml"
	}`), 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("HTTP_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.HTTPAddr)
	assert.Equal(t, "ledger", cfg.Postgres.Database)
	assert.Equal(t, "/etc/spendsort/categories.yaml", cfg.CategoriesFile)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "nope.json"))

	_, err := Load()
	assert.ErrorContains(t, err, "loading config file")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxUploadBytes = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.StoreConfig = json.RawMessage(`{oops`)
	assert.EqualError(t, bad.Validate(), "STORE_CONFIG is not valid JSON")

	bad = cfg
	bad.StoreBackend = ""
	assert.Error(t, bad.Validate())
}

func TestStoreSettings(t *testing.T) {
	cfg := Default()
	cfg.Postgres.User = "app"
	cfg.Postgres.ConnectDelay = 3 * time.Second

	raw, err := cfg.StoreSettings()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "localhost", got["host"])
	assert.Equal(t, "app", got["user"])
	assert.InDelta(t, 3, got["connectDelay"], 0)
	assert.NotContains(t, got, "url")

	cfg.DatabaseURL = "postgres://x@y/z"
	raw, err = cfg.StoreSettings()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "postgres://x@y/z", got["url"])

	cfg.StoreConfig = json.RawMessage(`{"url":"explicit"}`)
	raw, err = cfg.StoreSettings()
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"explicit"}`, string(raw))

	mem := Default()
	mem.StoreBackend = "memory"
	raw, err = mem.StoreSettings()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestLogging(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"

	lc := cfg.Logging()
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.True(t, lc.JSON)
}
