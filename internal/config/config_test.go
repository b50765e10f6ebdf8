package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Addr)
	assert.Equal(t, "./db/migrations", cfg.MigrationsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 2*time.Second, cfg.WaitPollInterval())
}

func TestLoadFile_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdreview.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":9000"
base_url = "https://review.example.com/"
redis_url = "redis://cache:6379/0"
wait_poll_interval_ms = 500
`), 0o644))

	t.Setenv("MDREVIEW_ADDR", ":9100")
	t.Setenv("MDREVIEW_MEILI_URL", "http://meili:7700")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr, "env overrides file")
	assert.Equal(t, "https://review.example.com", cfg.BaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.Equal(t, "http://meili:7700", cfg.MeiliURL)
	assert.Equal(t, 500*time.Millisecond, cfg.WaitPollInterval())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
