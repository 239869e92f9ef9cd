package datafetcher

import (
	"context"
	"testing"
	"time"

	"market-scanner/config"
)

func TestRateLimiterEnforcesQuota(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(map[string]config.RateLimit{
		"binance": {MaxRequests: 3, Window: time.Minute},
	})
	r.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx, "binance"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if used := r.Used("binance"); used != 3 {
		t.Fatalf("used = %d, want 3", used)
	}

	// Quota exhausted: a cancelled context must surface instead of a grant.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := r.Wait(cancelled, "binance"); err == nil {
		t.Fatal("wait granted a fourth slot inside the window")
	}

	// Window slides: old slots expire and admission resumes.
	now = now.Add(61 * time.Second)
	if used := r.Used("binance"); used != 0 {
		t.Fatalf("used after window = %d, want 0", used)
	}
	if err := r.Wait(ctx, "binance"); err != nil {
		t.Fatalf("wait after window: %v", err)
	}
}

func TestRateLimiterFallsBackToDefault(t *testing.T) {
	r := NewRateLimiter(map[string]config.RateLimit{
		"default": {MaxRequests: 1, Window: time.Minute},
	})
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if err := r.Wait(context.Background(), "unknown-provider"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if used := r.Used("unknown-provider"); used != 1 {
		t.Fatalf("used = %d, want 1", used)
	}
}

func TestRateLimiterUnlimitedWithoutConfig(t *testing.T) {
	r := NewRateLimiter(nil)
	for i := 0; i < 100; i++ {
		if err := r.Wait(context.Background(), "anything"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}
