package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScanConfig is the scan/strategy parameter file. Missing sections fall back
// to the defaults below; Validate failures are fatal and abort the run before
// any fetch.
type ScanConfig struct {
	Scan struct {
		LookbackDays  int     `yaml:"lookback_days"`
		RetentionDays int     `yaml:"retention_days"`
		AccountValue  float64 `yaml:"account_value"`
		Timeframe     string  `yaml:"timeframe"`
	} `yaml:"scan"`

	Fetcher struct {
		MaxWorkers   int           `yaml:"max_workers"`
		BatchSize    int           `yaml:"batch_size"`
		BatchCooldown time.Duration `yaml:"batch_cooldown"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
		Timeout      time.Duration `yaml:"timeout"`
		WaitTimeout  time.Duration `yaml:"wait_timeout"`
	} `yaml:"fetcher"`

	RateLimits map[string]RateLimit `yaml:"rate_limits"`

	Validation struct {
		MaxPriceDeviation float64 `yaml:"max_price_deviation"`
		MaxDateGapDays    int     `yaml:"max_date_gap_days"`
		VolumeOutlierZ    float64 `yaml:"volume_outlier_z"`
	} `yaml:"validation"`

	Universe struct {
		SymbolFile     string  `yaml:"symbol_file"`
		PairsFile      string  `yaml:"pairs_file"`
		Limit          int     `yaml:"limit"`
		MinMarketCap   float64 `yaml:"min_market_cap"`
		MinVolume24H   float64 `yaml:"min_volume_24h"`
		StaleAfterDays int     `yaml:"stale_after_days"`
	} `yaml:"universe"`

	Report struct {
		OutputDir   string `yaml:"output_dir"`
		HistoryFile string `yaml:"history_file"`
	} `yaml:"report"`

	Schedule struct {
		ScanAt  string `yaml:"scan_at"`
		PruneAt string `yaml:"prune_at"`
	} `yaml:"schedule"`

	Turtle       TurtleConfig       `yaml:"turtle"`
	BNF          BNFConfig          `yaml:"bnf"`
	CoiledSpring CoiledSpringConfig `yaml:"coiled_spring"`
}

// RateLimit caps requests per provider over a trailing window.
type RateLimit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// TurtleConfig holds turtle strategy parameters.
type TurtleConfig struct {
	ATRPeriod    int     `yaml:"atr_period"`
	System1Entry int     `yaml:"system1_entry"`
	System2Entry int     `yaml:"system2_entry"`
	System1Exit  int     `yaml:"system1_exit"`
	System2Exit  int     `yaml:"system2_exit"`
	StopLossATR  float64 `yaml:"stop_loss_atr"`
	RiskPerTrade float64 `yaml:"risk_per_trade"`
	MinPrice     float64 `yaml:"min_price"`
	MinVolume    float64 `yaml:"min_volume"`
	MinPeriods   int     `yaml:"min_periods"`
}

// BNFConfig holds deviation strategy parameters.
type BNFConfig struct {
	MAPeriod           int     `yaml:"ma_period"`
	DeviationThreshold float64 `yaml:"deviation_threshold"`
	MinPrice           float64 `yaml:"min_price"`
	MinVolume          float64 `yaml:"min_volume"`
	MinPeriods         int     `yaml:"min_periods"`
}

// CoiledSpringConfig holds coiled-spring strategy parameters.
type CoiledSpringConfig struct {
	VolatilityThreshold     float64 `yaml:"volatility_threshold"`
	VolatilityContractRatio float64 `yaml:"volatility_contract_ratio"`
	VolumeContractRatio     float64 `yaml:"volume_contract_ratio"`
	TrendDaysThreshold      float64 `yaml:"trend_days_threshold"`
	TrendPeriod             int     `yaml:"trend_period"`
	MinPrice                float64 `yaml:"min_price"`
	MinVolume               float64 `yaml:"min_volume"`
	MinPeriods              int     `yaml:"min_periods"`
}

// DefaultScanConfig returns the built-in parameter set.
func DefaultScanConfig() *ScanConfig {
	c := &ScanConfig{}
	c.Scan.LookbackDays = 190
	c.Scan.RetentionDays = 190
	c.Scan.AccountValue = 100000
	c.Scan.Timeframe = "1d"

	c.Fetcher.MaxWorkers = 2
	c.Fetcher.BatchSize = 50
	c.Fetcher.BatchCooldown = 3 * time.Second
	c.Fetcher.MaxRetries = 3
	c.Fetcher.RetryDelay = time.Second
	c.Fetcher.Timeout = 30 * time.Second
	c.Fetcher.WaitTimeout = 10 * time.Minute

	c.RateLimits = map[string]RateLimit{
		"binance":   {MaxRequests: 1200, Window: time.Minute},
		"coingecko": {MaxRequests: 50, Window: time.Minute},
		"default":   {MaxRequests: 100, Window: time.Minute},
	}

	c.Validation.MaxPriceDeviation = 0.5
	c.Validation.MaxDateGapDays = 3
	c.Validation.VolumeOutlierZ = 5

	c.Universe.SymbolFile = "data/symbols.csv"
	c.Universe.PairsFile = "data/crypto_pairs.json"
	c.Universe.Limit = 200
	c.Universe.MinMarketCap = 100_000_000
	c.Universe.MinVolume24H = 1_000_000
	c.Universe.StaleAfterDays = 7

	c.Report.OutputDir = "data/reports"
	c.Report.HistoryFile = "data/signals_history.json"

	c.Schedule.ScanAt = "16:30"
	c.Schedule.PruneAt = "01:00"

	c.Turtle = TurtleConfig{
		ATRPeriod:    20,
		System1Entry: 20,
		System2Entry: 55,
		System1Exit:  10,
		System2Exit:  20,
		StopLossATR:  2.0,
		RiskPerTrade: 0.01,
		MinPrice:     10,
		MinVolume:    500000,
		MinPeriods:   60,
	}
	c.BNF = BNFConfig{
		MAPeriod:           25,
		DeviationThreshold: -0.20,
		MinPrice:           10,
		MinVolume:          500000,
		MinPeriods:         30,
	}
	c.CoiledSpring = CoiledSpringConfig{
		VolatilityThreshold:     0.3,
		VolatilityContractRatio: 0.5,
		VolumeContractRatio:     0.55,
		TrendDaysThreshold:      60,
		TrendPeriod:             120,
		MinPrice:                10,
		MinVolume:               500000,
		MinPeriods:              120,
	}
	return c
}

// LoadScanConfig reads the YAML parameter file, layered over the defaults.
// A missing file is not an error; an unparseable or invalid one is.
func LoadScanConfig(path string) (*ScanConfig, error) {
	c := DefaultScanConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read scan config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse scan config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate scan config: %w", err)
	}
	return c, nil
}

// Validate checks the parameter combinations the pipeline depends on.
func (c *ScanConfig) Validate() error {
	if c.Scan.LookbackDays <= 0 {
		return fmt.Errorf("scan.lookback_days must be positive")
	}
	if c.Scan.RetentionDays < c.Scan.LookbackDays {
		return fmt.Errorf("scan.retention_days must cover scan.lookback_days")
	}
	if c.Fetcher.MaxWorkers <= 0 {
		return fmt.Errorf("fetcher.max_workers must be positive")
	}
	if c.Fetcher.BatchSize <= 0 {
		return fmt.Errorf("fetcher.batch_size must be positive")
	}
	for name, rl := range c.RateLimits {
		if rl.MaxRequests <= 0 || rl.Window <= 0 {
			return fmt.Errorf("rate_limits.%s: max_requests and window must be positive", name)
		}
	}
	if c.BNF.DeviationThreshold >= 0 {
		return fmt.Errorf("bnf.deviation_threshold must be negative")
	}
	if c.CoiledSpring.TrendPeriod <= 0 {
		return fmt.Errorf("coiled_spring.trend_period must be positive")
	}
	return nil
}
