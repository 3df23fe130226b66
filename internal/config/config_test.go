package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "git", cfg.GitBinary)
	assert.Equal(t, 60, cfg.PollIntervalSeconds)
	assert.Equal(t, 5, cfg.SettleSeconds)
	assert.Equal(t, 0, cfg.CommandTimeoutSeconds)
	assert.Equal(t, maxOutputBytes, cfg.OutputLimitBytes)
	assert.True(t, cfg.AutoWatch)
	assert.Empty(t, cfg.ContentRoots)
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{PollIntervalSeconds: 30, SettleSeconds: 2, CommandTimeoutSeconds: 10}
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.Settle())
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout())
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("values are read from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
git_binary: /usr/local/bin/git
poll_interval_seconds: 15
settle_seconds: 1
command_timeout_seconds: "30"
auto_watch: "off"
debug_log: /tmp/gitmon.log
content_roots:
  - /src/one
  - /src/two
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/usr/local/bin/git", cfg.GitBinary)
		assert.Equal(t, 15, cfg.PollIntervalSeconds)
		assert.Equal(t, 1, cfg.SettleSeconds)
		assert.Equal(t, 30, cfg.CommandTimeoutSeconds)
		assert.False(t, cfg.AutoWatch)
		assert.Equal(t, "/tmp/gitmon.log", cfg.DebugLog)
		assert.Equal(t, []string{"/src/one", "/src/two"}, cfg.ContentRoots)
	})

	t.Run("out-of-range values are clamped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
poll_interval_seconds: 0
settle_seconds: -4
command_timeout_seconds: -1
output_limit_bytes: 999999999999
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.PollIntervalSeconds)
		assert.Equal(t, 0, cfg.SettleSeconds)
		assert.Equal(t, 0, cfg.CommandTimeoutSeconds)
		assert.Equal(t, maxOutputBytes, cfg.OutputLimitBytes)
	})

	t.Run("malformed yaml falls back to defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("[unclosed"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("xdg lookup when no path is given", func(t *testing.T) {
		confDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", confDir)
		require.NoError(t, os.MkdirAll(filepath.Join(confDir, "gitmon"), 0o750))
		data := "git_binary: /opt/git\n"
		require.NoError(t, os.WriteFile(filepath.Join(confDir, "gitmon", "config.yaml"), []byte(data), 0o600))

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "/opt/git", cfg.GitBinary)
	})
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name  string
		value any
		def   bool
		want  bool
	}{
		{"nil uses default", nil, true, true},
		{"bool passthrough", false, true, false},
		{"int nonzero", 1, false, true},
		{"int zero", 0, true, false},
		{"yes string", "yes", false, true},
		{"off string", " OFF ", true, false},
		{"garbage uses default", "maybe", true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, coerceBool(tc.value, tc.def))
		})
	}
}

func TestCoerceInt(t *testing.T) {
	assert.Equal(t, 7, coerceInt(nil, 7))
	assert.Equal(t, 3, coerceInt(3, 7))
	assert.Equal(t, 42, coerceInt(" 42 ", 7))
	assert.Equal(t, 7, coerceInt("x", 7))
	assert.Equal(t, 7, coerceInt("", 7))
}

func TestNormalizeList(t *testing.T) {
	assert.Nil(t, normalizeList(nil))
	assert.Equal(t, []string{"/one"}, normalizeList(" /one "))
	assert.Nil(t, normalizeList("  "))
	assert.Equal(t, []string{"/a", "/b"}, normalizeList([]any{"/a", nil, " /b ", ""}))
	assert.Nil(t, normalizeList(12))
}

func TestExpandPath(t *testing.T) {
	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := expandPath("~/logs/gitmon.log")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "logs/gitmon.log"), got)
	})

	t.Run("environment variables expand", func(t *testing.T) {
		t.Setenv("GITMON_TEST_DIR", "/var/data")
		got, err := expandPath("$GITMON_TEST_DIR/log")
		require.NoError(t, err)
		assert.Equal(t, "/var/data/log", got)
	})
}
