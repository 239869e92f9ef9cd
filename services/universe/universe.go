package universe

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"market-scanner/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// Service resolves the instrument universe to scan. Symbols come from a local
// CSV override when present, otherwise from a cached CoinGecko market-cap
// ranking refreshed when the cache goes stale.
type Service struct {
	cfg    *config.ScanConfig
	client *resty.Client
	log    zerolog.Logger
}

// New creates a universe service.
func New(cfg *config.ScanConfig, log zerolog.Logger) *Service {
	client := resty.New().
		SetBaseURL(coingeckoBaseURL).
		SetTimeout(cfg.Fetcher.Timeout).
		SetHeader("Accept", "application/json")
	return &Service{cfg: cfg, client: client, log: log}
}

// pairsCache is the on-disk shape of the cached CoinGecko ranking.
type pairsCache struct {
	FetchedAt time.Time `json:"fetched_at"`
	Symbols   []string  `json:"symbols"`
}

type coingeckoMarket struct {
	Symbol      string  `json:"symbol"`
	MarketCap   float64 `json:"market_cap"`
	TotalVolume float64 `json:"total_volume"`
}

// Symbols returns the universe. The CSV file wins when it exists; otherwise
// the cached ranking is used until it is older than the staleness window, at
// which point it is refreshed from CoinGecko. A failed refresh falls back to
// the stale cache rather than emptying the universe.
func (s *Service) Symbols(ctx context.Context) ([]string, error) {
	if symbols, err := s.fromFile(); err != nil {
		return nil, err
	} else if len(symbols) > 0 {
		s.log.Info().Int("count", len(symbols)).Str("file", s.cfg.Universe.SymbolFile).Msg("universe from symbol file")
		return symbols, nil
	}

	cache, cacheErr := s.loadCache()
	stale := cacheErr != nil ||
		time.Since(cache.FetchedAt) > time.Duration(s.cfg.Universe.StaleAfterDays)*24*time.Hour

	if !stale {
		return cache.Symbols, nil
	}

	symbols, err := s.refresh(ctx)
	if err != nil {
		if cacheErr == nil && len(cache.Symbols) > 0 {
			s.log.Warn().Err(err).Msg("universe refresh failed, using stale cache")
			return cache.Symbols, nil
		}
		return nil, fmt.Errorf("refresh universe: %w", err)
	}
	return symbols, nil
}

func (s *Service) fromFile() ([]string, error) {
	f, err := os.Open(s.cfg.Universe.SymbolFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open symbol file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read symbol file: %w", err)
	}

	var symbols []string
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(rec[0]))
		if symbol == "" || symbol == "SYMBOL" {
			continue
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// refresh pulls the market-cap ranking, filters by cap and volume, converts
// coin tickers to USDT pairs, and rewrites the cache.
func (s *Service) refresh(ctx context.Context) ([]string, error) {
	var markets []coingeckoMarket
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"order":       "market_cap_desc",
			"per_page":    fmt.Sprintf("%d", s.cfg.Universe.Limit),
			"page":        "1",
		}).
		SetResult(&markets).
		Get("/coins/markets")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, m := range markets {
		if m.MarketCap < s.cfg.Universe.MinMarketCap || m.TotalVolume < s.cfg.Universe.MinVolume24H {
			continue
		}
		ticker := strings.ToUpper(m.Symbol)
		if ticker == "" || strings.HasSuffix(ticker, "USD") || seen[ticker] {
			continue
		}
		seen[ticker] = true
		symbols = append(symbols, ticker+"USDT")
	}
	sort.Strings(symbols)

	if err := s.saveCache(pairsCache{FetchedAt: time.Now().UTC(), Symbols: symbols}); err != nil {
		s.log.Warn().Err(err).Msg("could not write universe cache")
	}
	s.log.Info().Int("count", len(symbols)).Msg("universe refreshed")
	return symbols, nil
}

func (s *Service) loadCache() (pairsCache, error) {
	var cache pairsCache
	b, err := os.ReadFile(s.cfg.Universe.PairsFile)
	if err != nil {
		return cache, err
	}
	if err := json.Unmarshal(b, &cache); err != nil {
		return cache, fmt.Errorf("parse universe cache: %w", err)
	}
	return cache, nil
}

func (s *Service) saveCache(cache pairsCache) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.Universe.PairsFile), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cfg.Universe.PairsFile, b, 0o644)
}
