package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabase, EnvPort, EnvLogLevel, EnvShareTTL} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Expected defaults %+v, got %+v", Default(), cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "shelver.yaml")
	content := "database: /var/lib/shelver/site.db\nport: \"9000\"\nlog_level: debug\nshare_ttl: 2d\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/shelver/site.db" {
		t.Errorf("Expected database from file, got %s", cfg.DatabasePath)
	}
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %s", cfg.Port)
	}
	if cfg.ShareTTL != 48*time.Hour {
		t.Errorf("Expected share ttl 48h, got %s", cfg.ShareTTL)
	}

	t.Setenv(EnvPort, "7000")
	t.Setenv(EnvShareTTL, "0")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Expected env to override file port, got %s", cfg.Port)
	}
	if cfg.ShareTTL != 0 {
		t.Errorf("Expected env to disable share expiry, got %s", cfg.ShareTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level from file, got %s", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad env ttl", env: map[string]string{EnvShareTTL: "soon"}},
		{name: "bad log level", env: map[string]string{EnvLogLevel: "loud"}},
		{name: "bad yaml", file: "port: [unclosed"},
		{name: "bad file ttl", file: "share_ttl: -3d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "cfg.yaml")
				if err := os.WriteFile(path, []byte(tt.file), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Duration
		wantErr  bool
	}{
		{"0", 0, false},
		{"90m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{" 1d ", 24 * time.Hour, false},
		{"-1h", 0, true},
		{"xd", 0, true},
		{"106751d", 106751 * 24 * time.Hour, false},
		{"106752d", 0, true},
		{"200000d", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTTL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTTL(%q): expected error %v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseTTL(%q): expected %s, got %s", tt.in, tt.expected, got)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, expected := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error %v", in, err)
			continue
		}
		if got != expected {
			t.Errorf("ParseLevel(%q): expected %s, got %s", in, expected, got)
		}
	}
}
