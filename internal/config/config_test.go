package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Embedding.Provider)
	}
	if cfg.Scoring.PoolSize != 5 {
		t.Errorf("expected pool size 5, got %d", cfg.Scoring.PoolSize)
	}
	if cfg.Enrichment.Tier1Threshold != 0.20 {
		t.Errorf("expected tier1 threshold 0.20, got %v", cfg.Enrichment.Tier1Threshold)
	}
	if len(cfg.Digest.Sections) == 0 {
		t.Error("expected digest sections to be populated")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
embedding:
  provider: openai
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Embedding.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Embedding.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Embedding.OllamaURL)
	}
	if cfg.Enrichment.OrgQuantile != 0.90 {
		t.Errorf("expected default org quantile, got %v", cfg.Enrichment.OrgQuantile)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Enrichment.Tier1Categories) == 0 {
		t.Error("expected tier1 categories to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DatabasePath() != "/custom/path/ppi.db" {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}
