package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "u:p@tcp(db:3306)/judge"
redis:
  addr: "redis:6379"
minio:
  bucket: "archive"
engine:
  baseURL: "http://judge0:2358"
  maxRetries: -1
  poll:
    interval: 500ms
execute:
  limits:
    submit:
      cpuTimeSeconds: 5
`)
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Server.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Engine.BaseURL != "http://judge0:2358" || cfg.Engine.MaxRetries != -1 || cfg.Engine.MaxBatchSize != 20 {
		t.Fatalf("unexpected engine config %+v", cfg.Engine.Config)
	}
	if cfg.Engine.Poll.Interval != 500*time.Millisecond || cfg.Engine.Poll.MaxAttempts != 30 {
		t.Fatalf("unexpected poll config %+v", cfg.Engine.Poll)
	}
	if cfg.Execute.Limits.Submit.CPUTimeSeconds != 5 || cfg.Execute.Limits.Submit.MemoryKB != 128000 || cfg.Execute.Limits.Run.CPUTimeSeconds != 2 {
		t.Fatalf("unexpected limits %+v", cfg.Execute.Limits)
	}
	if cfg.Execute.SourceBucket != "archive" || cfg.Execute.SolvedTopic != "problem.solved" {
		t.Fatalf("unexpected execute defaults %+v", cfg.Execute)
	}
}

func TestLoadAppConfigRequiresCollaborators(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no database", body: "redis:\n  addr: r:6379\nengine:\n  baseURL: http://e\n"},
		{name: "no redis", body: "database:\n  dsn: x\nengine:\n  baseURL: http://e\n"},
		{name: "no engine", body: "database:\n  dsn: x\nredis:\n  addr: r:6379\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadAppConfig(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := loadAppConfig(filepath.Join("..", "..", "configs", "judge_service.yaml"))
	if err != nil {
		t.Fatalf("load sample config failed: %v", err)
	}
	if cfg.Execute.Timeouts.Engine != 75*time.Second {
		t.Fatalf("unexpected engine timeout %v", cfg.Execute.Timeouts.Engine)
	}
}
