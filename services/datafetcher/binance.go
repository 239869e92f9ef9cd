package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-scanner/models"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	binanceBaseURL   = "https://api.binance.com"
	binanceKlinesMax = 1000
)

// OHLCVProvider fetches daily bars for one instrument over [start, end].
type OHLCVProvider interface {
	// Name keys the provider's rate limit bucket.
	Name() string
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]models.InstrumentBar, error)
}

// BinanceProvider pulls daily klines from the Binance spot REST API.
type BinanceProvider struct {
	client *resty.Client
}

// NewBinanceProvider creates a provider with its own HTTP client.
func NewBinanceProvider(timeout time.Duration) *BinanceProvider {
	client := resty.New().
		SetBaseURL(binanceBaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &BinanceProvider{client: client}
}

func (p *BinanceProvider) Name() string { return "binance" }

// FetchDaily returns one bar per day in [start, end], both inclusive. Binance
// caps a klines page at 1000 rows, so the range is paged until exhausted.
func (p *BinanceProvider) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]models.InstrumentBar, error) {
	start = models.Day(start)
	end = models.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("fetch %s: end %s before start %s", symbol,
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var bars []models.InstrumentBar
	cursor := start
	for !cursor.After(end) {
		page, err := p.fetchPage(ctx, symbol, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		bars = append(bars, page...)
		cursor = models.Day(page[len(page)-1].Date).AddDate(0, 0, 1)
	}
	return bars, nil
}

func (p *BinanceProvider) fetchPage(ctx context.Context, symbol string, start, end time.Time) ([]models.InstrumentBar, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  "1d",
			"startTime": fmt.Sprintf("%d", start.UnixMilli()),
			"endTime":   fmt.Sprintf("%d", end.AddDate(0, 0, 1).UnixMilli()-1),
			"limit":     fmt.Sprintf("%d", binanceKlinesMax),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}

	// Klines come as arrays of mixed numbers and string-encoded decimals:
	// [openTime, open, high, low, close, volume, closeTime, ...].
	var raw [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("decode %s klines: %w", symbol, err)
	}

	bars := make([]models.InstrumentBar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("decode %s klines: row has %d fields", symbol, len(k))
		}
		var openMillis int64
		if err := json.Unmarshal(k[0], &openMillis); err != nil {
			return nil, fmt.Errorf("decode %s open time: %w", symbol, err)
		}
		bar := models.InstrumentBar{
			Symbol: symbol,
			Date:   models.Day(time.UnixMilli(openMillis).UTC()),
		}
		for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
			v, err := decimalField(k[i+1])
			if err != nil {
				return nil, fmt.Errorf("decode %s klines: %w", symbol, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func decimalField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
