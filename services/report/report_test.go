package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
)

func testSignals() map[string][]models.Signal {
	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return map[string][]models.Signal{
		models.StrategyTurtle: {
			models.TurtleSignal{
				Symbol: "BTCUSDT", Type: models.SignalTurtleSystem1, Date: d,
				Price: 101, ATR: 2, UnitSize: 500, StopLossPrice: 97,
				BreakoutHigh: 100, VolumeRatio: 2, Momentum5D: 0.05,
				BreakoutScore: 40, VolumeScore: 35, MomentumScore: 25, Total: 100,
			},
		},
		models.StrategyBNF: {
			models.BNFSignal{
				Symbol: "ETHUSDT", Date: d, Price: 79, MA25: 100,
				DeviationRate: -0.21, VolumeRatio: 1.0,
				DeviationScore: 40, VolumeScore: 10, Total: 50,
			},
		},
		models.StrategyCoiledSpring: nil,
	}
}

func TestWriteCSVCreatesPerStrategyFiles(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, filepath.Join(dir, "history.json"), zerolog.Nop())
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := g.WriteCSV(testSignals(), date); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	for _, name := range []string{
		"turtle_signals_2024-06-01.csv",
		"bnf_signals_2024-06-01.csv",
		"summary_2024-06-01.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing report file %s: %v", name, err)
		}
	}
	// Empty strategies get no file.
	if _, err := os.Stat(filepath.Join(dir, "coiled_spring_signals_2024-06-01.csv")); err == nil {
		t.Error("empty strategy produced a report file")
	}

	f, err := os.Open(filepath.Join(dir, "summary_2024-06-01.csv"))
	if err != nil {
		t.Fatalf("open summary: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if len(rows) != 3 { // header + two signals
		t.Fatalf("summary rows = %d, want 3", len(rows))
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, filepath.Join(dir, "history.json"), zerolog.Nop())
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	history, err := g.LoadHistory()
	if err != nil {
		t.Fatalf("load empty history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("fresh history has %d entries", len(history))
	}

	if err := g.AppendHistory(testSignals(), date); err != nil {
		t.Fatalf("append: %v", err)
	}
	// A rerun for the same date replaces, not duplicates.
	if err := g.AppendHistory(testSignals(), date); err != nil {
		t.Fatalf("second append: %v", err)
	}

	history, err = g.LoadHistory()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	day, ok := history["2024-06-01"]
	if !ok {
		t.Fatal("scan date missing from history")
	}
	if len(day[models.StrategyTurtle]) != 1 || len(day[models.StrategyBNF]) != 1 {
		t.Fatalf("history day = %+v, want one turtle and one bnf entry", day)
	}
	if got := day[models.StrategyTurtle][0]; got.Symbol != "BTCUSDT" || got.Score != 100 {
		t.Fatalf("turtle entry = %+v", got)
	}
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, filepath.Join(dir, "history.json"), zerolog.Nop())
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := g.WriteWorkbook(testSignals(), date); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "signals_2024-06-01.xlsx")); err != nil {
		t.Fatalf("missing workbook: %v", err)
	}
}
