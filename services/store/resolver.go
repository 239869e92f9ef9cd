package store

import (
	"fmt"
	"time"

	"market-scanner/models"
)

// Resolve computes, per instrument, the earliest missing date to fetch.
//
// Only the latest stored date per instrument is consulted: a hole strictly
// before the latest date is never detected or backfilled. Instruments already
// covered through asOf are omitted from the result, and the start is clamped
// so it never reaches further back than the lookback horizon. An instrument
// whose resolved start would land after asOf is logged and skipped rather
// than failing the batch.
func (s *Store) Resolve(symbols []string, asOf time.Time, lookbackDays int) (map[string]time.Time, error) {
	asOf = models.Day(asOf)
	horizon := asOf.AddDate(0, 0, -lookbackDays)

	starts := make(map[string]time.Time)
	for _, symbol := range symbols {
		latest, ok, err := s.LatestDate(symbol)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", symbol, err)
		}

		start := horizon
		if ok {
			if !latest.Before(asOf) {
				continue // up to date
			}
			start = latest.AddDate(0, 0, 1)
			if start.Before(horizon) {
				start = horizon
			}
		}
		if asOf.Before(start) {
			s.log.Warn().Str("symbol", symbol).
				Str("start", start.Format("2006-01-02")).
				Str("as_of", asOf.Format("2006-01-02")).
				Msg("resolved start after as-of date, skipping instrument")
			continue
		}
		starts[symbol] = start
	}
	return starts, nil
}
