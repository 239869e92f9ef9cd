package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Generator writes scan results out as CSV files, an Excel workbook, and a
// rolling JSON history.
type Generator struct {
	outputDir   string
	historyFile string
	log         zerolog.Logger
}

// New creates a report generator rooted at outputDir.
func New(outputDir, historyFile string, log zerolog.Logger) *Generator {
	return &Generator{outputDir: outputDir, historyFile: historyFile, log: log}
}

// HistoryEntry is one persisted signal in the JSON history.
type HistoryEntry struct {
	Symbol string    `json:"symbol"`
	Type   string    `json:"signal_type"`
	Date   time.Time `json:"signal_date"`
	Price  float64   `json:"price"`
	Score  float64   `json:"total_score"`
}

// History maps scan date to strategy name to signals.
type History map[string]map[string][]HistoryEntry

// WriteCSV writes one CSV per strategy plus a cross-strategy summary, all
// stamped with the scan date. Strategies with no signals are skipped.
func (g *Generator) WriteCSV(signals map[string][]models.Signal, date time.Time) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	stamp := date.Format("2006-01-02")

	for strategy, list := range signals {
		if len(list) == 0 {
			continue
		}
		path := filepath.Join(g.outputDir, fmt.Sprintf("%s_signals_%s.csv", strategy, stamp))
		if err := g.writeStrategyCSV(path, list); err != nil {
			return err
		}
	}

	return g.writeSummaryCSV(filepath.Join(g.outputDir, fmt.Sprintf("summary_%s.csv", stamp)), signals)
}

func (g *Generator) writeStrategyCSV(path string, list []models.Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(signalHeader(list[0])); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	for _, s := range list {
		if err := w.Write(signalRow(s)); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}
	}
	return nil
}

func (g *Generator) writeSummaryCSV(path string, signals map[string][]models.Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"strategy", "symbol", "signal_type", "signal_date", "price", "total_score"}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	for _, strategy := range sortedKeys(signals) {
		for _, s := range signals[strategy] {
			row := []string{
				strategy,
				s.SignalSymbol(),
				s.SignalType(),
				s.SignalDate().Format("2006-01-02"),
				fmt.Sprintf("%.4f", s.ReferencePrice()),
				fmt.Sprintf("%.0f", s.TotalScore()),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
	}
	return nil
}

// WriteWorkbook writes one Excel workbook with a sheet per strategy.
func (g *Generator) WriteWorkbook(signals map[string][]models.Signal, date time.Time) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	wb := excelize.NewFile()
	defer wb.Close()

	first := true
	for _, strategy := range sortedKeys(signals) {
		list := signals[strategy]
		if len(list) == 0 {
			continue
		}
		if first {
			if err := wb.SetSheetName("Sheet1", strategy); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := wb.NewSheet(strategy); err != nil {
			return fmt.Errorf("add sheet %s: %w", strategy, err)
		}

		rows := [][]string{signalHeader(list[0])}
		for _, s := range list {
			rows = append(rows, signalRow(s))
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return fmt.Errorf("sheet %s row %d: %w", strategy, i+1, err)
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := wb.SetSheetRow(strategy, cell, &values); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", strategy, i+1, err)
			}
		}
	}
	if first {
		return nil // nothing to write
	}

	path := filepath.Join(g.outputDir, fmt.Sprintf("signals_%s.xlsx", date.Format("2006-01-02")))
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	g.log.Info().Str("path", path).Msg("wrote signal workbook")
	return nil
}

// AppendHistory merges the scan's signals into the JSON history file under
// the scan date, replacing any earlier run for the same date.
func (g *Generator) AppendHistory(signals map[string][]models.Signal, date time.Time) error {
	history, err := g.LoadHistory()
	if err != nil {
		return err
	}

	day := map[string][]HistoryEntry{}
	for strategy, list := range signals {
		for _, s := range list {
			day[strategy] = append(day[strategy], HistoryEntry{
				Symbol: s.SignalSymbol(),
				Type:   s.SignalType(),
				Date:   s.SignalDate(),
				Price:  s.ReferencePrice(),
				Score:  s.TotalScore(),
			})
		}
	}
	history[date.Format("2006-01-02")] = day

	if err := os.MkdirAll(filepath.Dir(g.historyFile), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	b, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(g.historyFile, b, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// LoadHistory reads the JSON history; a missing file is an empty history.
func (g *Generator) LoadHistory() (History, error) {
	b, err := os.ReadFile(g.historyFile)
	if err != nil {
		if os.IsNotExist(err) {
			return History{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	var history History
	if err := json.Unmarshal(b, &history); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return history, nil
}

func signalHeader(s models.Signal) []string {
	switch s.(type) {
	case models.TurtleSignal:
		return []string{"symbol", "signal_type", "signal_date", "price", "atr", "unit_size",
			"stop_loss_price", "breakout_high", "volume_ratio", "momentum_5d",
			"breakout_score", "volume_score", "momentum_score", "total_score"}
	case models.BNFSignal:
		return []string{"symbol", "signal_date", "price", "ma25", "deviation_rate",
			"volume_ratio", "deviation_score", "volume_score", "total_score"}
	case models.CoiledSpringSignal:
		return []string{"symbol", "signal_date", "price", "volatility_10d", "volatility_60d",
			"volume_ratio", "up_trend_strength", "volatility_score", "trend_score",
			"volume_score", "history_score", "total_score"}
	default:
		return []string{"symbol", "signal_type", "signal_date", "price", "total_score"}
	}
}

func signalRow(s models.Signal) []string {
	switch v := s.(type) {
	case models.TurtleSignal:
		return []string{v.Symbol, v.Type, v.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", v.Price), fmt.Sprintf("%.4f", v.ATR), fmt.Sprintf("%d", v.UnitSize),
			fmt.Sprintf("%.4f", v.StopLossPrice), fmt.Sprintf("%.4f", v.BreakoutHigh),
			fmt.Sprintf("%.2f", v.VolumeRatio), fmt.Sprintf("%.4f", v.Momentum5D),
			fmt.Sprintf("%.0f", v.BreakoutScore), fmt.Sprintf("%.0f", v.VolumeScore),
			fmt.Sprintf("%.0f", v.MomentumScore), fmt.Sprintf("%.0f", v.Total)}
	case models.BNFSignal:
		return []string{v.Symbol, v.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", v.Price), fmt.Sprintf("%.4f", v.MA25),
			fmt.Sprintf("%.4f", v.DeviationRate), fmt.Sprintf("%.2f", v.VolumeRatio),
			fmt.Sprintf("%.0f", v.DeviationScore), fmt.Sprintf("%.0f", v.VolumeScore),
			fmt.Sprintf("%.0f", v.Total)}
	case models.CoiledSpringSignal:
		return []string{v.Symbol, v.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", v.Price), fmt.Sprintf("%.4f", v.Volatility10D),
			fmt.Sprintf("%.4f", v.Volatility60D), fmt.Sprintf("%.2f", v.VolumeRatio),
			fmt.Sprintf("%.2f", v.UpTrendStrength), fmt.Sprintf("%.0f", v.VolatilityScore),
			fmt.Sprintf("%.0f", v.TrendScore), fmt.Sprintf("%.0f", v.VolumeScore),
			fmt.Sprintf("%.0f", v.HistoryScore), fmt.Sprintf("%.0f", v.Total)}
	default:
		return []string{s.SignalSymbol(), s.SignalType(), s.SignalDate().Format("2006-01-02"),
			fmt.Sprintf("%.4f", s.ReferencePrice()), fmt.Sprintf("%.0f", s.TotalScore())}
	}
}

func sortedKeys(m map[string][]models.Signal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
