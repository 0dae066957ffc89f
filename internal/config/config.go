package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathEnv overrides the config file location.
const PathEnv = "ENVCHAIN_CONFIG"

// Config holds optional user settings loaded from ~/.envchain/config.yaml.
// Command line options and environment variables take precedence.
type Config struct {
	KeychainDir string `yaml:"keychain_dir"`
	AuditLog    string `yaml:"audit_log"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultPath returns $ENVCHAIN_CONFIG, or ~/.envchain/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".envchain", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error. A leading ~/ in path values
// is expanded.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.KeychainDir = expandHome(cfg.KeychainDir)
	cfg.AuditLog = expandHome(cfg.AuditLog)
	return cfg, nil
}

// Level parses s ("debug", "info", "warn" or "error"). An empty s yields
// fallback.
func Level(s string, fallback slog.Level) (slog.Level, error) {
	if s == "" {
		return fallback, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return fallback, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
