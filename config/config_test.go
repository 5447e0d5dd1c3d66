package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vulca")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("STATUS_SCHEDULER_INTERVAL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("STORAGE_BUCKET_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.SchedulerInterval != 30*time.Second {
		t.Fatalf("expected 30s interval, got %s", cfg.SchedulerInterval)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("origins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if cfg.StorageEnabled() {
		t.Fatalf("storage must be disabled without a bucket")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database", map[string]string{"DATABASE_URL": "", "JWT_SECRET_KEY": "s"}},
		{"missing jwt", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": ""}},
		{"bad port", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SERVER_PORT": "http"}},
		{"port range", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SERVER_PORT": "70000"}},
		{"bad interval", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "STATUS_SCHEDULER_INTERVAL": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SERVER_PORT", "")
			t.Setenv("STATUS_SCHEDULER_INTERVAL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
