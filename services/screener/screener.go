package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"market-scanner/config"
	"market-scanner/models"
	"market-scanner/services/analysis"
	"market-scanner/services/datafetcher"
	"market-scanner/services/report"
	"market-scanner/services/store"
	"market-scanner/services/strategies"
	"market-scanner/services/universe"
	"market-scanner/services/validation"

	"github.com/rs/zerolog"
)

// Screener drives the whole pipeline: resolve the universe, fetch the
// missing bars, clean and persist them, enrich with indicators, evaluate
// strategies, and write reports.
type Screener struct {
	cfg       *config.ScanConfig
	store     *store.Store
	universe  *universe.Service
	fetcher   *datafetcher.Fetcher
	validator *validation.Validator
	engine    *analysis.Engine
	registry  *strategies.Registry
	reporter  *report.Generator
	log       zerolog.Logger
}

// New wires the pipeline components together.
func New(cfg *config.ScanConfig, st *store.Store, uni *universe.Service,
	fetcher *datafetcher.Fetcher, validator *validation.Validator,
	engine *analysis.Engine, registry *strategies.Registry,
	reporter *report.Generator, log zerolog.Logger) *Screener {
	return &Screener{
		cfg:       cfg,
		store:     st,
		universe:  uni,
		fetcher:   fetcher,
		validator: validator,
		engine:    engine,
		registry:  registry,
		reporter:  reporter,
		log:       log,
	}
}

// ScanResult is one pipeline run's output.
type ScanResult struct {
	Date        time.Time                  `json:"date"`
	Instruments int                        `json:"instruments"`
	Signals     map[string][]models.Signal `json:"signals"`
	Failed      []datafetcher.Failure      `json:"failed,omitempty"`
}

// UpdateDatabase runs the data half of the pipeline for the given symbols
// (nil means the configured universe): resolve missing ranges, fetch, clean,
// persist raw bars, recompute indicators over the full window, persist the
// enriched rows, and prune beyond retention. Per-instrument failures do not
// abort the run.
func (s *Screener) UpdateDatabase(ctx context.Context, symbols []string, lookbackDays int) ([]datafetcher.Failure, error) {
	asOf := models.Day(time.Now().UTC())
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.Scan.LookbackDays
	}

	if len(symbols) == 0 {
		var err error
		symbols, err = s.universe.Symbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve universe: %w", err)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe is empty")
	}
	s.log.Info().Int("instruments", len(symbols)).Msg("updating database")

	starts, err := s.store.Resolve(symbols, asOf, lookbackDays)
	if err != nil {
		return nil, err
	}
	if len(starts) == 0 {
		s.log.Info().Msg("all instruments up to date")
		return nil, nil
	}

	fetched, failures, err := s.fetcher.FetchBatch(ctx, starts, asOf)
	if err != nil {
		return failures, err
	}

	// Clean per instrument and persist the raw bars.
	bySymbol := groupBySymbol(fetched)
	var raw []models.InstrumentBar
	updated := make([]string, 0, len(bySymbol))
	for symbol, bars := range bySymbol {
		rep := s.validator.Validate(symbol, bars)
		if !rep.Valid {
			s.log.Warn().Str("symbol", symbol).Strs("errors", rep.Errors).Msg("repairing series")
		}
		cleaned := s.validator.Clean(symbol, bars)
		if len(cleaned) == 0 {
			failures = append(failures, datafetcher.Failure{Symbol: symbol, Reason: "no usable rows after cleaning"})
			continue
		}
		raw = append(raw, cleaned...)
		updated = append(updated, symbol)
	}
	if len(raw) > 0 {
		if err := s.store.Save(raw); err != nil {
			return failures, fmt.Errorf("save raw bars: %w", err)
		}
	}

	// Indicators need the full window, not just the fetched delta.
	if err := s.recomputeIndicators(updated, asOf, lookbackDays); err != nil {
		return failures, err
	}

	if _, err := s.store.Prune(s.cfg.Scan.RetentionDays); err != nil {
		return failures, err
	}

	s.log.Info().Int("updated", len(updated)).Int("failed", len(failures)).Msg("database update done")
	return failures, nil
}

func (s *Screener) recomputeIndicators(symbols []string, asOf time.Time, lookbackDays int) error {
	if len(symbols) == 0 {
		return nil
	}
	start := asOf.AddDate(0, 0, -lookbackDays)
	window, err := s.store.Load(symbols, start, asOf)
	if err != nil {
		return err
	}

	var enriched []models.InstrumentBar
	for _, bars := range groupBySymbol(window) {
		enriched = append(enriched, s.engine.Compute(bars)...)
	}
	if len(enriched) == 0 {
		return nil
	}
	if err := s.store.Save(enriched); err != nil {
		return fmt.Errorf("save enriched bars: %w", err)
	}
	return nil
}

// RunPipeline executes the full scan. Unknown strategy names fail before any
// network or database work. forceUpdate always refreshes data first;
// skipUpdate never does; otherwise data older than one day triggers a
// refresh.
func (s *Screener) RunPipeline(ctx context.Context, strategyNames []string, forceUpdate, skipUpdate bool, lookbackDays int) (*ScanResult, error) {
	selected, err := s.registry.Resolve(strategyNames)
	if err != nil {
		return nil, err
	}

	asOf := models.Day(time.Now().UTC())
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.Scan.LookbackDays
	}
	result := &ScanResult{Date: asOf, Signals: make(map[string][]models.Signal)}

	if forceUpdate || (!skipUpdate && s.dataStale(asOf)) {
		failures, err := s.UpdateDatabase(ctx, nil, lookbackDays)
		result.Failed = failures
		if err != nil {
			return result, err
		}
	}

	symbols, err := s.universe.Symbols(ctx)
	if err != nil {
		return result, fmt.Errorf("resolve universe: %w", err)
	}

	start := asOf.AddDate(0, 0, -lookbackDays)
	window, err := s.store.Load(symbols, start, asOf)
	if err != nil {
		return result, err
	}
	bySymbol := groupBySymbol(window)
	result.Instruments = len(bySymbol)
	if len(bySymbol) == 0 {
		return result, fmt.Errorf("no bar data available")
	}

	orderedSymbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		orderedSymbols = append(orderedSymbols, symbol)
	}
	sort.Strings(orderedSymbols)

	for _, strategy := range selected {
		var signals []models.Signal
		for _, symbol := range orderedSymbols {
			signals = append(signals, s.detect(strategy, symbol, bySymbol[symbol])...)
		}
		sort.SliceStable(signals, func(i, j int) bool {
			return signals[i].TotalScore() > signals[j].TotalScore()
		})
		result.Signals[strategy.Name()] = signals
		s.log.Info().Str("strategy", strategy.Name()).Int("signals", len(signals)).Msg("strategy done")
	}

	if s.reporter != nil && hasSignals(result.Signals) {
		if err := s.reporter.WriteCSV(result.Signals, asOf); err != nil {
			s.log.Error().Err(err).Msg("could not write CSV reports")
		}
		if err := s.reporter.WriteWorkbook(result.Signals, asOf); err != nil {
			s.log.Error().Err(err).Msg("could not write workbook")
		}
		if err := s.reporter.AppendHistory(result.Signals, asOf); err != nil {
			s.log.Error().Err(err).Msg("could not update history")
		}
	}
	return result, nil
}

// detect evaluates one strategy against one instrument. A panicking evaluator
// is logged and treated as zero signals, so a single bad series never aborts
// the run.
func (s *Screener) detect(strategy strategies.Strategy, symbol string, bars []models.InstrumentBar) (signals []models.Signal) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Str("strategy", strategy.Name()).Str("symbol", symbol).
				Interface("panic", rec).Msg("strategy evaluation failed")
			signals = nil
		}
	}()
	return strategy.DetectSignals(symbol, bars)
}

func (s *Screener) dataStale(asOf time.Time) bool {
	latest, ok, err := s.store.LatestDate("")
	if err != nil || !ok {
		return true
	}
	return int(asOf.Sub(latest).Hours()/24) > 1
}

// Status describes the store and its freshness tier.
type Status struct {
	store.Stats
	Freshness string `json:"data_freshness"`
}

// DatabaseStatus reports store stats plus a freshness tier derived from the
// latest stored date: current, yesterday, recent (within 3 days), outdated,
// or no_data.
func (s *Screener) DatabaseStatus() (Status, error) {
	stats, err := s.store.Stats()
	if err != nil {
		return Status{}, err
	}
	st := Status{Stats: stats, Freshness: "no_data"}
	if stats.RecordCount == 0 {
		return st, nil
	}

	latest, ok, err := s.store.LatestDate("")
	if err != nil {
		return st, err
	}
	if !ok {
		return st, nil
	}

	switch days := int(models.Day(time.Now().UTC()).Sub(latest).Hours() / 24); {
	case days <= 0:
		st.Freshness = "current"
	case days == 1:
		st.Freshness = "yesterday"
	case days <= 3:
		st.Freshness = "recent"
	default:
		st.Freshness = "outdated"
	}
	return st, nil
}

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPeriods  int    `json:"min_periods"`
}

// Strategies lists the registered strategies.
func (s *Screener) Strategies() []StrategyInfo {
	var infos []StrategyInfo
	for _, name := range s.registry.Names() {
		strategy, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, StrategyInfo{
			Name:        strategy.Name(),
			Description: strategy.Describe(),
			MinPeriods:  strategy.MinPeriods(),
		})
	}
	return infos
}

// PruneStore deletes bars older than the retention window.
func (s *Screener) PruneStore() (int64, error) {
	return s.store.Prune(s.cfg.Scan.RetentionDays)
}

// History returns the persisted signal history.
func (s *Screener) History() (report.History, error) {
	if s.reporter == nil {
		return report.History{}, nil
	}
	return s.reporter.LoadHistory()
}

func groupBySymbol(bars []models.InstrumentBar) map[string][]models.InstrumentBar {
	out := make(map[string][]models.InstrumentBar)
	for _, b := range bars {
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	for symbol := range out {
		list := out[symbol]
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		out[symbol] = list
	}
	return out
}

func hasSignals(signals map[string][]models.Signal) bool {
	for _, list := range signals {
		if len(list) > 0 {
			return true
		}
	}
	return false
}
