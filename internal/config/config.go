// Package config loads the gitmon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// defaultPollIntervalSeconds is how often the change monitor
	// rescans its content roots.
	defaultPollIntervalSeconds = 60
	// defaultSettleSeconds is the grace period after scanning before
	// invalidations are published, giving git time to settle its own
	// on-disk state.
	defaultSettleSeconds = 5
	// maxOutputBytes is the hard ceiling on captured command output.
	maxOutputBytes = 128 * 1024 * 1024
)

// Config holds the gitmon runtime settings.
type Config struct {
	GitBinary             string
	PollIntervalSeconds   int
	SettleSeconds         int
	CommandTimeoutSeconds int
	OutputLimitBytes      int
	DebugLog              string
	AutoWatch             bool
	ContentRoots          []string
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *Config {
	return &Config{
		GitBinary:           "git",
		PollIntervalSeconds: defaultPollIntervalSeconds,
		SettleSeconds:       defaultSettleSeconds,
		OutputLimitBytes:    maxOutputBytes,
		AutoWatch:           true,
	}
}

// PollInterval returns the monitor poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Settle returns the post-scan grace period as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// CommandTimeout returns the per-command timeout; zero disables it.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}
	switch v := value.(type) {
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	}
	return defaultVal
}

func normalizeList(value any) []string {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return nil
		}
		return []string{text}
	case []any:
		var items []string
		for _, item := range v {
			if item == nil {
				continue
			}
			text := strings.TrimSpace(fmt.Sprintf("%v", item))
			if text != "" {
				items = append(items, text)
			}
		}
		return items
	}
	return nil
}

func parseConfig(data map[string]any) *Config {
	cfg := DefaultConfig()

	if binary, ok := data["git_binary"].(string); ok {
		binary = strings.TrimSpace(binary)
		if binary != "" {
			cfg.GitBinary = binary
		}
	}
	if debugLog, ok := data["debug_log"].(string); ok {
		debugLog = strings.TrimSpace(debugLog)
		if debugLog != "" {
			cfg.DebugLog = debugLog
		}
	}

	cfg.PollIntervalSeconds = coerceInt(data["poll_interval_seconds"], defaultPollIntervalSeconds)
	if cfg.PollIntervalSeconds < 1 {
		cfg.PollIntervalSeconds = 1
	}
	cfg.SettleSeconds = coerceInt(data["settle_seconds"], defaultSettleSeconds)
	if cfg.SettleSeconds < 0 {
		cfg.SettleSeconds = 0
	}
	cfg.CommandTimeoutSeconds = coerceInt(data["command_timeout_seconds"], 0)
	if cfg.CommandTimeoutSeconds < 0 {
		cfg.CommandTimeoutSeconds = 0
	}
	cfg.OutputLimitBytes = coerceInt(data["output_limit_bytes"], maxOutputBytes)
	if cfg.OutputLimitBytes < 1 || cfg.OutputLimitBytes > maxOutputBytes {
		cfg.OutputLimitBytes = maxOutputBytes
	}
	cfg.AutoWatch = coerceBool(data["auto_watch"], true)
	cfg.ContentRoots = normalizeList(data["content_roots"])

	return cfg
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// LoadConfig reads the configuration from a YAML file. An empty path
// looks in the XDG config directory; a missing or malformed file yields
// the defaults.
func LoadConfig(configPath string) (*Config, error) {
	var candidates []string
	if configPath != "" {
		expanded, err := expandPath(configPath)
		if err != nil {
			return DefaultConfig(), err
		}
		candidates = []string{expanded}
	} else {
		base := filepath.Join(getConfigDir(), "gitmon")
		candidates = []string{
			filepath.Join(base, "config.yaml"),
			filepath.Join(base, "config.yml"),
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path) // #nosec G304 -- the path is the user's own config file
		if err != nil {
			continue
		}
		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return DefaultConfig(), nil
		}
		return parseConfig(yamlData), nil
	}
	return DefaultConfig(), nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}
