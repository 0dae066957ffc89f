package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `keychain_dir: /Users/me/keychains
audit_log: /var/log/envchain.jsonl
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KeychainDir != "/Users/me/keychains" {
		t.Errorf("KeychainDir = %q, want %q", cfg.KeychainDir, "/Users/me/keychains")
	}
	if cfg.AuditLog != "/var/log/envchain.jsonl" {
		t.Errorf("AuditLog = %q, want %q", cfg.AuditLog, "/var/log/envchain.jsonl")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("cfg = %+v, want empty", *cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("cfg = %+v, want empty", *cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("cfg = %+v, want empty", *cfg)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `keychain_dir: /Users/me/keychains
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KeychainDir != "/Users/me/keychains" {
		t.Errorf("KeychainDir = %q, want %q", cfg.KeychainDir, "/Users/me/keychains")
	}
	if cfg.AuditLog != "" {
		t.Errorf("AuditLog = %q, want empty", cfg.AuditLog)
	}
}

func TestLoadCommentsOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `# keychain_dir: /Users/me/keychains
# log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("cfg = %+v, want empty", *cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("keychain_dir: [unterminated\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("keychain_dir: ~/keychains\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, "keychains"); cfg.KeychainDir != want {
		t.Errorf("KeychainDir = %q, want %q", cfg.KeychainDir, want)
	}
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "/etc/envchain.yaml")
	if got := DefaultPath(); got != "/etc/envchain.yaml" {
		t.Errorf("DefaultPath() = %q, want %q", got, "/etc/envchain.yaml")
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelWarn, true},
	}
	for _, tt := range tests {
		got, err := Level(tt.in, slog.LevelWarn)
		if (err != nil) != tt.wantErr {
			t.Errorf("Level(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
