package strategies

import (
	"market-scanner/config"
	"market-scanner/models"
)

// CoiledSpring looks for instruments consolidating after a volatile stretch:
// a wide 3-month range, contracted short-term volatility and volume, bullish
// moving-average alignment, and a majority of up-days over the trend window.
// All five conditions must hold on the latest bar for a signal to fire.
type CoiledSpring struct {
	cfg config.CoiledSpringConfig
}

// NewCoiledSpring creates the coiled-spring strategy.
func NewCoiledSpring(cfg config.CoiledSpringConfig) *CoiledSpring {
	return &CoiledSpring{cfg: cfg}
}

func (c *CoiledSpring) Name() string { return models.StrategyCoiledSpring }

func (c *CoiledSpring) Describe() string {
	return "Coiled spring: fires when all five consolidation conditions hold at once " +
		"(wide 3-month range, contracted 10-day volatility and volume, EMA20>SMA50>SMA100, " +
		"majority up-days over 120 bars). Scored on volatility contraction (40), trend (30), " +
		"volume contraction (20) and historical volatility (10)."
}

func (c *CoiledSpring) MinPeriods() int { return c.cfg.MinPeriods }

func (c *CoiledSpring) DetectSignals(symbol string, bars []models.InstrumentBar) []models.Signal {
	if len(bars) < c.cfg.TrendPeriod || len(bars) < c.cfg.MinPeriods {
		return nil
	}

	last := bars[len(bars)-1]
	if last.Close < c.cfg.MinPrice || last.Volume < c.cfg.MinVolume {
		return nil
	}
	if last.EMA20 == nil || last.SMA50 == nil || last.SMA100 == nil ||
		last.SD10 == nil || last.SD60 == nil ||
		last.Vol10 == nil || last.Vol60 == nil ||
		last.DiffPct3Mo == nil || last.PriceUpDays120 == nil {
		return nil
	}

	sd10, sd60 := *last.SD10, *last.SD60
	vol10, vol60 := *last.Vol10, *last.Vol60
	ema20, sma50, sma100 := *last.EMA20, *last.SMA50, *last.SMA100
	upDays := *last.PriceUpDays120

	wideRange := *last.DiffPct3Mo > c.cfg.VolatilityThreshold
	priceContract := sd10 < sd60*c.cfg.VolatilityContractRatio
	maAligned := ema20 > sma50 && sma50 > sma100
	upTrend := upDays > c.cfg.TrendDaysThreshold
	volContract := vol10 < vol60*c.cfg.VolumeContractRatio
	if !wideRange || !priceContract || !maAligned || !upTrend || !volContract {
		return nil
	}

	upStrength := upDays / float64(c.cfg.TrendPeriod)
	volumeRatio := 1.0
	if vol60 > 0 {
		volumeRatio = vol10 / vol60
	}

	volatilityScore, trendScore, volumeScore, historyScore :=
		coiledSpringScores(sd10, sd60, maAligned, upStrength, volumeRatio)

	return []models.Signal{models.CoiledSpringSignal{
		Symbol:          symbol,
		Date:            last.Date,
		Price:           last.Close,
		Volatility10D:   sd10,
		Volatility60D:   sd60,
		EMA20:           ema20,
		SMA50:           sma50,
		SMA100:          sma100,
		VolumeRatio:     volumeRatio,
		UpTrendStrength: upStrength,
		VolatilityScore: volatilityScore,
		TrendScore:      trendScore,
		VolumeScore:     volumeScore,
		HistoryScore:    historyScore,
		Total:           volatilityScore + trendScore + volumeScore + historyScore,
	}}
}

// coiledSpringScores applies the fixed tier tables. An exact boundary value
// always takes the higher-scoring tier.
func coiledSpringScores(sd10, sd60 float64, maAligned bool, upStrength, volumeRatio float64) (volatility, trend, volume, history float64) {
	switch {
	case sd10 <= 0.01:
		volatility = 40
	case sd10 <= 0.02:
		volatility = 30
	case sd10 <= 0.03:
		volatility = 20
	case sd10 <= 0.05:
		volatility = 10
	default:
		volatility = 0
	}

	if maAligned {
		trend += 15
	}
	switch {
	case upStrength >= 0.6:
		trend += 15
	case upStrength >= 0.55:
		trend += 10
	case upStrength >= 0.5:
		trend += 5
	}

	switch {
	case volumeRatio <= 0.4:
		volume = 20
	case volumeRatio <= 0.5:
		volume = 15
	case volumeRatio <= 0.6:
		volume = 10
	case volumeRatio <= 0.7:
		volume = 5
	default:
		volume = 0
	}

	switch {
	case sd60 >= 0.4:
		history = 10
	case sd60 >= 0.3:
		history = 5
	}
	return volatility, trend, volume, history
}
