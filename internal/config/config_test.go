package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/centralcompras/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")

		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if cfg.HTTP.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.HTTP.Port)
		}
		if cfg.Database.Backend != "postgres" || cfg.Database.MigrationsPath != "" {
			t.Errorf("unexpected database config %+v", cfg.Database)
		}
		if cfg.Idempotency.Backend != "postgres" || cfg.Idempotency.TTL != 24*time.Hour {
			t.Errorf("unexpected idempotency config %+v", cfg.Idempotency)
		}
		if cfg.Events.Backend != "log" {
			t.Errorf("expected log events backend, got %s", cfg.Events.Backend)
		}
		if cfg.Orders.StrictTransitions {
			t.Error("expected permissive transitions by default")
		}
		if cfg.Service.Name != "centralcompras-api" {
			t.Errorf("unexpected service name %s", cfg.Service.Name)
		}
	})

	t.Run("builds the database url from parts", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_NAME", "compras")

		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if !strings.HasPrefix(cfg.Database.URL, "postgres://postgres:postgres@db:5432/compras?") {
			t.Errorf("unexpected url %s", cfg.Database.URL)
		}
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("IDEMPOTENCY_BACKEND", "redis")
		t.Setenv("IDEMPOTENCY_TTL", "90m")
		t.Setenv("REDIS_ADDRESS", "cache:6379")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("ORDERS_STRICT_TRANSITIONS", "true")
		t.Setenv("STORAGE_BACKEND", "memory")
		t.Setenv("EVENTS_BACKEND", "pubsub")
		t.Setenv("PUBSUB_PROJECT_ID", "compras")

		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Idempotency.Backend != "redis" || cfg.Idempotency.TTL != 90*time.Minute {
			t.Errorf("unexpected idempotency config %+v", cfg.Idempotency)
		}
		if cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 2 {
			t.Errorf("unexpected redis config %+v", cfg.Redis)
		}
		if !cfg.Orders.StrictTransitions {
			t.Error("expected strict transitions")
		}
		if cfg.Database.Backend != "memory" {
			t.Errorf("expected memory storage, got %s", cfg.Database.Backend)
		}
		if cfg.Events.PubSubProject != "compras" || cfg.Events.CreatedTopic != "orders-created" {
			t.Errorf("unexpected events config %+v", cfg.Events)
		}
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port", "API_HTTP_PORT", "http"},
		{"unknown storage backend", "STORAGE_BACKEND", "mysql"},
		{"unknown idempotency backend", "IDEMPOTENCY_BACKEND", "disk"},
		{"malformed ttl", "IDEMPOTENCY_TTL", "a day"},
		{"malformed redis db", "REDIS_DB", "zero"},
		{"pubsub without project", "EVENTS_BACKEND", "pubsub"},
		{"malformed sample rate", "OTEL_SAMPLE_RATE", "all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PUBSUB_PROJECT_ID", "")
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
