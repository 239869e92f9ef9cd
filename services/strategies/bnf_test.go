package strategies

import (
	"testing"

	"market-scanner/config"
	"market-scanner/models"
)

func bnfUnderTest() *BNF {
	return NewBNF(config.DefaultScanConfig().BNF)
}

func bnfBars(close, ma25, volume float64) []models.InstrumentBar {
	bars := flatBars(30, close, volume)
	last := &bars[29]
	last.MA25 = ptr(ma25)
	deviation := (close - ma25) / ma25
	last.DeviationRate = ptr(deviation)
	last.VolumeRatio = ptr(1.0)
	return bars
}

func TestBNFFiresOnDeepDeviation(t *testing.T) {
	s := bnfUnderTest()

	// 21% below the 25-day average.
	signals := s.DetectSignals("BTCUSDT", bnfBars(79, 100, 600000))
	if len(signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(signals))
	}
	sig := signals[0].(models.BNFSignal)
	if sig.DeviationScore != 40 {
		t.Fatalf("deviation score = %v, want 40 for -0.21", sig.DeviationScore)
	}
	if sig.VolumeScore != 10 {
		t.Fatalf("volume score = %v, want 10 for ratio 1.0", sig.VolumeScore)
	}
	if sig.Total != sig.DeviationScore+sig.VolumeScore {
		t.Fatalf("total %v is not the sum of its sub-scores", sig.Total)
	}
}

func TestBNFStaysSilentAboveThreshold(t *testing.T) {
	s := bnfUnderTest()

	// Only 19% below: no signal.
	if signals := s.DetectSignals("BTCUSDT", bnfBars(81, 100, 600000)); len(signals) != 0 {
		t.Fatalf("signals = %d, want none at -0.19", len(signals))
	}
}

func TestBNFDeviationTiers(t *testing.T) {
	tests := []struct {
		deviation float64
		want      float64
	}{
		{-0.26, 60},
		{-0.25, 60},
		{-0.23, 50},
		{-0.21, 40},
		{-0.20, 30},
	}
	for _, tt := range tests {
		got, _ := bnfScores(tt.deviation, 1.0)
		if got != tt.want {
			t.Errorf("deviation %.2f: score = %v, want %v", tt.deviation, got, tt.want)
		}
	}
}

func TestBNFPreChecks(t *testing.T) {
	s := bnfUnderTest()

	tests := []struct {
		name string
		bars []models.InstrumentBar
	}{
		{"too few rows", bnfBars(79, 100, 600000)[:29]},
		{"price below minimum", bnfBars(7.9, 10, 600000)},
		{"volume below minimum", bnfBars(79, 100, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.DetectSignals("BTCUSDT", tt.bars); len(got) != 0 {
				t.Fatalf("signals = %d, want none", len(got))
			}
		})
	}

	t.Run("missing MA25", func(t *testing.T) {
		bars := flatBars(30, 79, 600000)
		if got := s.DetectSignals("BTCUSDT", bars); len(got) != 0 {
			t.Fatalf("signals = %d, want none without MA25", len(got))
		}
	})
}
