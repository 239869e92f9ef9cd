package strategies

import (
	"testing"

	"market-scanner/config"
	"market-scanner/models"
)

func coiledSpringUnderTest() *CoiledSpring {
	return NewCoiledSpring(config.DefaultScanConfig().CoiledSpring)
}

// coiledBars builds a 120-bar series whose last bar satisfies all five
// conditions: wide 3-month range, contracted volatility, bullish alignment,
// majority up-days, contracted volume.
func coiledBars() []models.InstrumentBar {
	bars := flatBars(120, 110, 600000)
	last := &bars[119]
	last.DiffPct3Mo = ptr(0.35)
	last.SD10 = ptr(0.01)
	last.SD60 = ptr(0.5)
	last.EMA20 = ptr(110)
	last.SMA50 = ptr(105)
	last.SMA100 = ptr(100)
	last.PriceUpDays120 = ptr(80)
	last.Vol10 = ptr(40)
	last.Vol60 = ptr(100)
	return bars
}

func TestCoiledSpringFiresWhenAllConditionsHold(t *testing.T) {
	s := coiledSpringUnderTest()

	signals := s.DetectSignals("BTCUSDT", coiledBars())
	if len(signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(signals))
	}
	sig := signals[0].(models.CoiledSpringSignal)

	// sd10 0.01 -> 40; alignment 15 + up-strength 80/120 -> 15; ratio 0.4 ->
	// 20; sd60 0.5 -> 10.
	if sig.VolatilityScore != 40 {
		t.Errorf("volatility score = %v, want 40", sig.VolatilityScore)
	}
	if sig.TrendScore != 30 {
		t.Errorf("trend score = %v, want 30", sig.TrendScore)
	}
	if sig.VolumeScore != 20 {
		t.Errorf("volume score = %v, want 20", sig.VolumeScore)
	}
	if sig.HistoryScore != 10 {
		t.Errorf("history score = %v, want 10", sig.HistoryScore)
	}
	if sig.Total != sig.VolatilityScore+sig.TrendScore+sig.VolumeScore+sig.HistoryScore {
		t.Fatalf("total %v is not the sum of its sub-scores", sig.Total)
	}
}

// Four of five conditions is not enough; each broken condition alone must
// silence the strategy.
func TestCoiledSpringRequiresAllFiveConditions(t *testing.T) {
	s := coiledSpringUnderTest()

	breakers := []struct {
		name  string
		apply func(last *models.InstrumentBar)
	}{
		{"narrow 3-month range", func(b *models.InstrumentBar) { b.DiffPct3Mo = ptr(0.2) }},
		{"volatility not contracted", func(b *models.InstrumentBar) { b.SD10 = ptr(0.3) }},
		{"averages not aligned", func(b *models.InstrumentBar) { b.SMA50 = ptr(120) }},
		{"trend too weak", func(b *models.InstrumentBar) { b.PriceUpDays120 = ptr(50) }},
		{"volume not contracted", func(b *models.InstrumentBar) { b.Vol10 = ptr(90) }},
	}

	for _, tt := range breakers {
		t.Run(tt.name, func(t *testing.T) {
			bars := coiledBars()
			tt.apply(&bars[119])
			if got := s.DetectSignals("BTCUSDT", bars); len(got) != 0 {
				t.Fatalf("signals = %d, want none with %s", len(got), tt.name)
			}
		})
	}
}

func TestCoiledSpringPreChecks(t *testing.T) {
	s := coiledSpringUnderTest()

	t.Run("too few rows", func(t *testing.T) {
		if got := s.DetectSignals("BTCUSDT", coiledBars()[:119]); len(got) != 0 {
			t.Fatalf("signals = %d, want none", len(got))
		}
	})

	t.Run("missing indicators", func(t *testing.T) {
		bars := coiledBars()
		bars[119].SD60 = nil
		if got := s.DetectSignals("BTCUSDT", bars); len(got) != 0 {
			t.Fatalf("signals = %d, want none", len(got))
		}
	})

	t.Run("price below minimum", func(t *testing.T) {
		bars := coiledBars()
		bars[119].Close = 5
		if got := s.DetectSignals("BTCUSDT", bars); len(got) != 0 {
			t.Fatalf("signals = %d, want none", len(got))
		}
	})
}

func TestCoiledSpringVolumeTiers(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.35, 20},
		{0.4, 20}, // exact boundary takes the higher tier
		{0.5, 15},
		{0.6, 10},
		{0.7, 5},
		{0.8, 0},
	}
	for _, tt := range tests {
		_, _, got, _ := coiledSpringScores(0.01, 0.5, true, 0.7, tt.ratio)
		if got != tt.want {
			t.Errorf("ratio %.2f: score = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}
