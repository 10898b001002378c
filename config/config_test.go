package config

import (
	"testing"
	"time"

	"github.com/etnz/costbasis"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CBS_ADDR", "CBS_DB_PATH", "CBS_METHOD", "CBS_OVERSELL", "CBS_CLASSIFICATION", "CBS_CACHE_TTL", "CBS_WORKERS"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "localhost:5080" || cfg.Database.Path != "./data/costbasis.db" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Engine.Method != costbasis.FIFO || cfg.Engine.Oversell != costbasis.RejectOversell {
		t.Errorf("Engine = %+v, want FIFO rejecting oversells", cfg.Engine)
	}
	if cfg.Server.CacheTTL != 5*time.Minute || cfg.Workers != 4 {
		t.Errorf("CacheTTL, Workers = %v, %d", cfg.Server.CacheTTL, cfg.Workers)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CBS_METHOD", "AVERAGE_COST")
	t.Setenv("CBS_OVERSELL", "zero-cost")
	t.Setenv("CBS_CLASSIFICATION", "TRANSFER=dispose")
	t.Setenv("CBS_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CBS_SNAPSHOT_SCHEDULE", "@daily")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Method != costbasis.AverageCost || cfg.Engine.Oversell != costbasis.ZeroCostShort {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if got := cfg.Engine.Classification.Classify(costbasis.Transfer); got != costbasis.Dispose {
		t.Errorf("Classify(TRANSFER) = %s, want dispose", got)
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %q", got)
	}
	if cfg.Server.SnapshotSchedule != "@daily" {
		t.Errorf("SnapshotSchedule = %q", cfg.Server.SnapshotSchedule)
	}

	e := cfg.NewEngine(nil)
	if e.Method != costbasis.AverageCost {
		t.Errorf("NewEngine().Method = %s", e.Method)
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string]string{
		"CBS_METHOD":         "fifo",
		"CBS_OVERSELL":       "short",
		"CBS_CLASSIFICATION": "BUY=ignore",
		"CBS_CACHE_TTL":      "soon",
		"CBS_WORKERS":        "many",
	}
	for key, value := range testCases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q error = nil", key, value)
			}
		})
	}
}
