package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"market-scanner/config"
	"market-scanner/models"

	"github.com/rs/zerolog"
)

var errEmptyPayload = errors.New("provider returned no bars")

// Failure records one instrument the fetcher could not complete.
type Failure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Fetcher downloads daily bars for many instruments through a bounded worker
// pool, batching requests with a cooldown between batches so sustained scans
// stay inside provider quotas even before the rate limiter kicks in.
type Fetcher struct {
	provider OHLCVProvider
	limiter  *RateLimiter
	cfg      *config.ScanConfig
	log      zerolog.Logger
}

// NewFetcher wires a provider and limiter into a fetcher.
func NewFetcher(provider OHLCVProvider, limiter *RateLimiter, cfg *config.ScanConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{provider: provider, limiter: limiter, cfg: cfg, log: log}
}

// FetchBatch fetches [start, end] per instrument, where starts maps symbol to
// its first missing date. Instruments whose range is inverted are failed up
// front without touching the network. The call returns all bars fetched so
// far plus a failure per instrument that errored out or was still unfinished
// when the wait timeout expired; it only returns a non-nil error when the
// context itself is cancelled.
func (f *Fetcher) FetchBatch(ctx context.Context, starts map[string]time.Time, end time.Time) ([]models.InstrumentBar, []Failure, error) {
	end = models.Day(end)

	symbols := make([]string, 0, len(starts))
	var failures []Failure
	for symbol, start := range starts {
		if models.Day(start).After(end) {
			failures = append(failures, Failure{
				Symbol: symbol,
				Reason: fmt.Sprintf("start %s after end %s", models.Day(start).Format("2006-01-02"), end.Format("2006-01-02")),
			})
			continue
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var bars []models.InstrumentBar
	batchSize := f.cfg.Fetcher.BatchSize
	for i := 0; i < len(symbols); i += batchSize {
		if err := ctx.Err(); err != nil {
			return bars, failures, err
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return bars, failures, ctx.Err()
			case <-time.After(f.cfg.Fetcher.BatchCooldown):
			}
		}

		batch := symbols[i:min(i+batchSize, len(symbols))]
		f.log.Info().Int("batch", i/batchSize+1).Int("size", len(batch)).Msg("fetching batch")

		batchBars, batchFailures := f.fetchOne(ctx, batch, starts, end)
		bars = append(bars, batchBars...)
		failures = append(failures, batchFailures...)
	}
	return bars, failures, ctx.Err()
}

type fetchResult struct {
	symbol string
	bars   []models.InstrumentBar
	err    error
}

// fetchOne runs one batch through the worker pool and waits for completions
// up to the configured wait timeout. Instruments still running at the timeout
// are reported as failures; their goroutines are cancelled and drain in the
// background.
func (f *Fetcher) fetchOne(parent context.Context, batch []string, starts map[string]time.Time, end time.Time) ([]models.InstrumentBar, []Failure) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make(chan fetchResult, len(batch))
	slots := make(chan struct{}, f.cfg.Fetcher.MaxWorkers)
	for _, symbol := range batch {
		go func(symbol string) {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				results <- fetchResult{symbol: symbol, err: ctx.Err()}
				return
			}
			defer func() { <-slots }()

			bars, err := f.fetchWithRetry(ctx, symbol, starts[symbol], end)
			results <- fetchResult{symbol: symbol, bars: bars, err: err}
		}(symbol)
	}

	var bars []models.InstrumentBar
	var failures []Failure
	done := make(map[string]bool, len(batch))
	timeout := time.After(f.cfg.Fetcher.WaitTimeout)
	for len(done) < len(batch) {
		select {
		case res := <-results:
			done[res.symbol] = true
			if res.err != nil {
				f.log.Warn().Str("symbol", res.symbol).Err(res.err).Msg("fetch failed")
				failures = append(failures, Failure{Symbol: res.symbol, Reason: res.err.Error()})
				continue
			}
			bars = append(bars, res.bars...)
		case <-timeout:
			cancel()
			for _, symbol := range batch {
				if !done[symbol] {
					failures = append(failures, Failure{Symbol: symbol, Reason: "timed out waiting for fetch"})
				}
			}
			return bars, failures
		}
	}
	return bars, failures
}

// fetchWithRetry retries transient failures with doubling delays. The rate
// limiter is consulted before every attempt, retries included. An empty
// payload on a successful call counts as a failed attempt, so an instrument
// with no data ends up in the failure list instead of silently vanishing.
func (f *Fetcher) fetchWithRetry(ctx context.Context, symbol string, start, end time.Time) ([]models.InstrumentBar, error) {
	var lastErr error
	delay := f.cfg.Fetcher.RetryDelay
	for attempt := 1; attempt <= f.cfg.Fetcher.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := f.limiter.Wait(ctx, f.provider.Name()); err != nil {
			return nil, err
		}
		bars, err := f.provider.FetchDaily(ctx, symbol, start, end)
		if err == nil {
			if len(bars) > 0 {
				return bars, nil
			}
			err = errEmptyPayload
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.log.Debug().Str("symbol", symbol).Int("attempt", attempt).Err(err).Msg("fetch attempt failed")
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.cfg.Fetcher.MaxRetries, lastErr)
}
