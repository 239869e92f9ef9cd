package analysis

import (
	"math"
	"testing"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
)

func series(closes []float64) []models.InstrumentBar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.InstrumentBar, len(closes))
	for i, c := range closes {
		bars[i] = models.InstrumentBar{
			Symbol: "X",
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeHandlesShortSeries(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	out := e.Compute(series([]float64{1, 2, 3}))
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	// No window is satisfied yet; all derived columns stay null.
	last := out[2]
	if last.MA25 != nil || last.SMA50 != nil || last.SD60 != nil || last.PriceUpDays120 != nil {
		t.Fatal("derived columns set before their windows are full")
	}
	if e.Compute(nil) != nil {
		t.Fatal("empty input should come back empty")
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	in := series(make([]float64, 30))
	for i := range in {
		in[i].Close = float64(i + 1)
	}

	_ = e.Compute(in)
	for _, b := range in {
		if b.MA25 != nil || b.ATR != nil {
			t.Fatal("input slice was mutated")
		}
	}
}

func TestComputeMA25(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1) // 1..25, mean 13
	}
	out := NewEngine(zerolog.Nop()).Compute(series(closes))

	if out[23].MA25 != nil {
		t.Fatal("MA25 set one bar before the window fills")
	}
	got := out[24].MA25
	if got == nil || !almostEqual(*got, 13) {
		t.Fatalf("MA25 = %v, want 13", got)
	}
	dev := out[24].DeviationRate
	if dev == nil || !almostEqual(*dev, (25.0-13)/13) {
		t.Fatalf("deviation = %v, want %.6f", dev, (25.0-13)/13)
	}
}

func TestRollingStdIsSampleStd(t *testing.T) {
	out := rollingStd([]float64{1, 2, 3, 4, 5}, 5)
	// Sample standard deviation of 1..5 is sqrt(2.5).
	if !almostEqual(out[4], math.Sqrt(2.5)) {
		t.Fatalf("std = %v, want sqrt(2.5)", out[4])
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("std[%d] = %v, want NaN before the window fills", i, out[i])
		}
	}
}

func TestRollingExtremes(t *testing.T) {
	maxes := rollingMax([]float64{3, 1, 4, 1, 5}, 3)
	if maxes[2] != 4 || maxes[3] != 4 || maxes[4] != 5 {
		t.Fatalf("rollingMax = %v", maxes)
	}
	mins := rollingMin([]float64{3, 1, 4, 1, 5}, 3)
	if mins[2] != 1 || mins[3] != 1 || mins[4] != 1 {
		t.Fatalf("rollingMin = %v", mins)
	}
}

func TestUpDayCountRequiresFullWindow(t *testing.T) {
	closes := make([]float64, 130)
	for i := range closes {
		closes[i] = float64(i) // strictly rising
	}
	out := upDayCount(closes, 120)

	if !math.IsNaN(out[118]) {
		t.Fatal("count set before a full window of history")
	}
	// The first bar counts as flat, so the window at index 119 holds 119
	// up days out of 120.
	if out[119] != 119 {
		t.Fatalf("count = %v, want 119 at the first full window", out[119])
	}
	if out[120] != 120 {
		t.Fatalf("count = %v, want 120 for a strictly rising series", out[120])
	}
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	high := []float64{10, 15}
	low := []float64{9, 14}
	closes := []float64{9.5, 14.5}

	tr := trueRange(high, low, closes)
	if tr[0] != 1 {
		t.Fatalf("tr[0] = %v, want high-low fallback", tr[0])
	}
	// Gap up: |high - prevClose| dominates.
	if !almostEqual(tr[1], 5.5) {
		t.Fatalf("tr[1] = %v, want 5.5", tr[1])
	}
}

func TestMomentumFractionalChange(t *testing.T) {
	out := momentum([]float64{100, 0, 0, 0, 0, 110}, 5)
	if !almostEqual(out[5], 0.1) {
		t.Fatalf("momentum = %v, want 0.1", out[5])
	}
}

func TestRSIBounds(t *testing.T) {
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(i)
	}
	out := relativeStrength(rising, 14)
	if out[29] != 100 {
		t.Fatalf("RSI of a strictly rising series = %v, want 100", out[29])
	}

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = float64(100 - i)
	}
	out = relativeStrength(falling, 14)
	if out[29] != 0 {
		t.Fatalf("RSI of a strictly falling series = %v, want 0", out[29])
	}
}
