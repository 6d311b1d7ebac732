package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexer.IndexName != "main_index" || cfg.Indexer.Codec != "vbyte" {
		t.Fatalf("unexpected indexer defaults: %+v", cfg.Indexer)
	}
	if cfg.Search.BM25K1 != 1.2 || cfg.Search.BM25B != 0.75 || cfg.Search.DefaultLimit != 10 {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
indexer:
  codec: fixed
  workers: 2
  outputDir: /tmp/idx
redis:
  cacheTTL: 90s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BSBI_INDEX_NAME", "global")
	t.Setenv("BSBI_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexer.Codec != "fixed" || cfg.Indexer.Workers != 2 || cfg.Indexer.OutputDir != "/tmp/idx" {
		t.Fatalf("file values not applied: %+v", cfg.Indexer)
	}
	if cfg.Indexer.DictionaryBackend != "bolt" {
		t.Fatalf("default lost after partial file: %q", cfg.Indexer.DictionaryBackend)
	}
	if cfg.Redis.CacheTTL != 90*time.Second {
		t.Fatalf("cacheTTL = %v", cfg.Redis.CacheTTL)
	}
	if cfg.Indexer.IndexName != "global" {
		t.Fatalf("env override not applied: %q", cfg.Indexer.IndexName)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("kafka env override not applied: %+v", cfg.Kafka)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"codec", func(c *Config) { c.Indexer.Codec = "gamma" }},
		{"backend", func(c *Config) { c.Indexer.DictionaryBackend = "leveldb" }},
		{"workers", func(c *Config) { c.Indexer.Workers = 0 }},
		{"index name", func(c *Config) { c.Indexer.IndexName = "" }},
		{"index name terms", func(c *Config) { c.Indexer.IndexName = "terms" }},
		{"index name docs", func(c *Config) { c.Indexer.IndexName = "docs" }},
		{"index name intermediate", func(c *Config) { c.Indexer.IndexName = "intermediate_index_0" }},
		{"index name path", func(c *Config) { c.Indexer.IndexName = "../main" }},
		{"bm25 b", func(c *Config) { c.Search.BM25B = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
