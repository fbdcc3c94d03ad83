package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.BlobBackend != "memory" {
		t.Fatalf("BlobBackend = %q, want memory", cfg.BlobBackend)
	}
}

func TestLoadTrackerDefaults(t *testing.T) {
	cfg, err := LoadTracker()
	if err != nil {
		t.Fatalf("LoadTracker() error = %v", err)
	}
	if cfg.MaxShards != 20 {
		t.Fatalf("MaxShards = %d, want 20", cfg.MaxShards)
	}
	if cfg.MinWait != 500*time.Millisecond {
		t.Fatalf("MinWait = %v, want 500ms", cfg.MinWait)
	}
	if cfg.ArchiveEpoch != "2025-07-20" {
		t.Fatalf("ArchiveEpoch = %q", cfg.ArchiveEpoch)
	}
}

func TestLoadTrackerParseTypes(t *testing.T) {
	t.Setenv("MAX_SHARDS", "5")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("POLL_MODE", "fallback")

	cfg, err := LoadTracker()
	if err != nil {
		t.Fatalf("LoadTracker() error = %v", err)
	}
	if cfg.MaxShards != 5 {
		t.Fatalf("MaxShards = %d, want 5", cfg.MaxShards)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 3s", cfg.UpstreamTimeout)
	}
	if cfg.PollMode != "fallback" {
		t.Fatalf("PollMode = %q", cfg.PollMode)
	}
}
