package validation

import (
	"math"
	"testing"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
)

func day(n int) time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func newTestValidator() *Validator {
	return New(0.5, 3, 5, zerolog.Nop())
}

func TestValidateRejectsBrokenSeries(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		bars []models.InstrumentBar
	}{
		{"empty", nil},
		{"non-positive price", []models.InstrumentBar{
			{Symbol: "X", Date: day(0), Open: 0, High: 1, Low: 1, Close: 1, Volume: 1},
		}},
		{"negative volume", []models.InstrumentBar{
			{Symbol: "X", Date: day(0), Open: 1, High: 2, Low: 1, Close: 1, Volume: -1},
		}},
		{"duplicate dates", []models.InstrumentBar{
			{Symbol: "X", Date: day(0), Open: 1, High: 2, Low: 1, Close: 1, Volume: 1},
			{Symbol: "X", Date: day(0), Open: 1, High: 2, Low: 1, Close: 1, Volume: 1},
		}},
		{"high below low", []models.InstrumentBar{
			{Symbol: "X", Date: day(0), Open: 1, High: 1, Low: 2, Close: 1, Volume: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rep := v.Validate("X", tt.bars); rep.Valid {
				t.Fatalf("series accepted, errors=%v", rep.Errors)
			}
		})
	}
}

func TestValidateWarnsWithoutRejecting(t *testing.T) {
	v := newTestValidator()

	// Clean prices but one zero-volume day and one large move.
	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(0), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000},
		{Symbol: "X", Date: day(1), Open: 100, High: 161, Low: 99, Close: 160, Volume: 0},
		{Symbol: "X", Date: day(2), Open: 160, High: 161, Low: 159, Close: 160, Volume: 1000},
	}
	rep := v.Validate("X", bars)
	if !rep.Valid {
		t.Fatalf("series rejected: %v", rep.Errors)
	}
	if len(rep.Warnings) == 0 {
		t.Fatal("expected warnings for zero volume and large move")
	}
}

// The documented repair contract: after Clean, every surviving row has
// high >= max(open, close), low <= min(open, close) and volume >= 0.
func TestCleanRepairInvariant(t *testing.T) {
	v := newTestValidator()

	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 500},
		{Symbol: "X", Date: day(1), Open: 100, High: 95, Low: 105, Close: 102, Volume: -5},
		{Symbol: "X", Date: day(2), Open: 50, High: 40, Low: 60, Close: 45, Volume: 0},
		{Symbol: "X", Date: day(3), Open: 20, High: 25, Low: 15, Close: 22, Volume: 800},
	}

	out := v.Clean("X", bars)
	if len(out) == 0 {
		t.Fatal("cleaner dropped every row")
	}
	for _, b := range out {
		if b.High < math.Max(b.Open, b.Close) {
			t.Errorf("%s: high %.2f below max(open, close)", b.Date.Format("2006-01-02"), b.High)
		}
		if b.Low > math.Min(b.Open, b.Close) {
			t.Errorf("%s: low %.2f above min(open, close)", b.Date.Format("2006-01-02"), b.Low)
		}
		if b.Volume < 0 {
			t.Errorf("%s: negative volume %.2f", b.Date.Format("2006-01-02"), b.Volume)
		}
	}
}

func TestCleanRepairsInvertedBar(t *testing.T) {
	v := newTestValidator()

	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(0), Open: 100, High: 103, Low: 98, Close: 101, Volume: 1000},
		{Symbol: "X", Date: day(1), Open: 100, High: 95, Low: 105, Close: 102, Volume: -5},
		{Symbol: "X", Date: day(2), Open: 102, High: 104, Low: 100, Close: 103, Volume: 1200},
	}

	out := v.Clean("X", bars)
	if len(out) != 3 {
		t.Fatalf("cleaned %d rows, want 3", len(out))
	}

	repaired := out[1]
	if repaired.High < 102 {
		t.Errorf("high = %.2f, want >= 102", repaired.High)
	}
	if repaired.Low > 100 {
		t.Errorf("low = %.2f, want <= 100", repaired.Low)
	}
	// Negative volume repaired by interpolating the neighbors.
	if repaired.Volume != 1100 {
		t.Errorf("volume = %.2f, want 1100", repaired.Volume)
	}
}

func TestCleanDeduplicatesLastWins(t *testing.T) {
	v := newTestValidator()

	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Symbol: "X", Date: day(0), Open: 10, High: 12, Low: 9, Close: 99, Volume: 100},
	}

	out := v.Clean("X", bars)
	if len(out) != 1 {
		t.Fatalf("cleaned %d rows, want 1", len(out))
	}
	if out[0].Close != 99 {
		t.Fatalf("close = %.2f, want the later row's 99", out[0].Close)
	}
}

func TestCleanSortsOutOfOrderRows(t *testing.T) {
	v := newTestValidator()

	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(2), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Symbol: "X", Date: day(0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Symbol: "X", Date: day(1), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
	}

	out := v.Clean("X", bars)
	for i := 1; i < len(out); i++ {
		if !out[i-1].Date.Before(out[i].Date) {
			t.Fatalf("rows not sorted: %s before %s", out[i-1].Date, out[i].Date)
		}
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	v := newTestValidator()

	bars := []models.InstrumentBar{
		{Symbol: "X", Date: day(0), Open: 100, High: 95, Low: 105, Close: 102, Volume: -5},
		{Symbol: "X", Date: day(1), Open: 100, High: 103, Low: 98, Close: 101, Volume: 1000},
	}

	once := v.Clean("X", bars)
	twice := v.Clean("X", once)
	if len(once) != len(twice) {
		t.Fatalf("row count changed on second clean: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("row %d changed on second clean: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestInterpolateFillsInteriorGaps(t *testing.T) {
	series := []float64{10, math.NaN(), math.NaN(), 40}
	interpolate(series)
	if series[1] != 20 || series[2] != 30 {
		t.Fatalf("interpolated = %v, want [10 20 30 40]", series)
	}
}
