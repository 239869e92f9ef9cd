package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadScanConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadScanConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scan.LookbackDays != 190 {
		t.Fatalf("lookback = %d, want 190", cfg.Scan.LookbackDays)
	}
	if cfg.Fetcher.MaxWorkers != 2 || cfg.Fetcher.BatchSize != 50 {
		t.Fatalf("fetcher defaults = %+v", cfg.Fetcher)
	}
	if cfg.RateLimits["binance"].MaxRequests != 1200 {
		t.Fatalf("binance limit = %+v", cfg.RateLimits["binance"])
	}
}

func TestLoadScanConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.yaml")
	content := `
scan:
  lookback_days: 90
  retention_days: 120
turtle:
  min_price: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadScanConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scan.LookbackDays != 90 || cfg.Scan.RetentionDays != 120 {
		t.Fatalf("scan = %+v", cfg.Scan)
	}
	if cfg.Turtle.MinPrice != 5 {
		t.Fatalf("turtle min price = %v, want override", cfg.Turtle.MinPrice)
	}
	// Untouched sections keep their defaults.
	if cfg.BNF.DeviationThreshold != -0.20 {
		t.Fatalf("bnf threshold = %v, want default", cfg.BNF.DeviationThreshold)
	}
}

func TestScanConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		mutate func(*ScanConfig)
	}{
		{"zero lookback", func(c *ScanConfig) { c.Scan.LookbackDays = 0 }},
		{"retention below lookback", func(c *ScanConfig) { c.Scan.RetentionDays = 10 }},
		{"zero workers", func(c *ScanConfig) { c.Fetcher.MaxWorkers = 0 }},
		{"zero batch", func(c *ScanConfig) { c.Fetcher.BatchSize = 0 }},
		{"bad rate limit", func(c *ScanConfig) {
			c.RateLimits["binance"] = RateLimit{MaxRequests: 0, Window: time.Minute}
		}},
		{"positive bnf threshold", func(c *ScanConfig) { c.BNF.DeviationThreshold = 0.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScanConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}

	if err := DefaultScanConfig().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}
