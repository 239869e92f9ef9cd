package analysis

import (
	"math"

	"market-scanner/models"

	"github.com/rs/zerolog"
)

// Periods used by the indicator superset. Every strategy reads a subset, but
// the engine always computes all columns so enriched rows stay comparable
// across strategies in the store.
const (
	atrPeriod      = 20
	rsiPeriod      = 14
	entryShort     = 20
	entryLong      = 55
	exitShort      = 10
	exitLong       = 20
	volumePeriod   = 20
	bnfMAPeriod    = 25
	emaPeriod      = 20
	smaMidPeriod   = 50
	smaLongPeriod  = 100
	sdShortPeriod  = 10
	sdLongPeriod   = 60
	volShortPeriod = 10
	volLongPeriod  = 60
	rangePeriod    = 60
	trendPeriod    = 120
)

// Engine derives the indicator superset over a daily series. It owns no
// state; Compute is deterministic and side-effect free.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an indicator engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// Compute returns a copy of bars with all derived columns filled in. Existing
// columns are never removed or reordered. On an internal error the engine
// logs and returns the input unchanged rather than a partially-enriched
// series; callers treat "no new columns" as the soft-failure signal.
func (e *Engine) Compute(bars []models.InstrumentBar) (out []models.InstrumentBar) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().Interface("panic", rec).Msg("indicator computation failed")
			out = bars
		}
	}()

	if len(bars) == 0 {
		return bars
	}

	out = make([]models.InstrumentBar, len(bars))
	copy(out, bars)

	n := len(out)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range out {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = b.Volume
	}

	tr := trueRange(high, low, closes)
	atr := rollingMean(tr, atrPeriod)
	high20 := rollingMax(high, entryShort)
	high55 := rollingMax(high, entryLong)
	low10 := rollingMin(low, exitShort)
	low20 := rollingMin(low, exitLong)

	volume20 := rollingMean(volume, volumePeriod)
	volumeRatio := make([]float64, n)
	for i := range volumeRatio {
		if volume20[i] > 0 {
			volumeRatio[i] = volume[i] / volume20[i]
		} else {
			volumeRatio[i] = math.NaN()
		}
	}

	change5 := momentum(closes, 5)
	change20 := momentum(closes, 20)
	rsi := relativeStrength(closes, rsiPeriod)

	ma25 := rollingMean(closes, bnfMAPeriod)
	deviation := make([]float64, n)
	for i := range deviation {
		if !math.IsNaN(ma25[i]) && ma25[i] != 0 {
			deviation[i] = (closes[i] - ma25[i]) / ma25[i]
		} else {
			deviation[i] = math.NaN()
		}
	}

	ema20 := exponentialMA(closes, emaPeriod)
	sma50 := rollingMean(closes, smaMidPeriod)
	sma100 := rollingMean(closes, smaLongPeriod)
	sd10 := rollingStd(closes, sdShortPeriod)
	sd60 := rollingStd(closes, sdLongPeriod)
	vol10 := rollingMean(volume, volShortPeriod)
	vol60 := rollingMean(volume, volLongPeriod)

	high60 := rollingMax(high, rangePeriod)
	low60 := rollingMin(low, rangePeriod)
	diffPct := make([]float64, n)
	for i := range diffPct {
		if !math.IsNaN(high60[i]) && high60[i] != 0 {
			diffPct[i] = (high60[i] - low60[i]) / high60[i]
		} else {
			diffPct[i] = math.NaN()
		}
	}

	upDays := upDayCount(closes, trendPeriod)

	for i := range out {
		out[i].ATR = ptr(atr[i])
		out[i].High20 = ptr(high20[i])
		out[i].High55 = ptr(high55[i])
		out[i].Low10 = ptr(low10[i])
		out[i].Low20 = ptr(low20[i])
		out[i].Volume20 = ptr(volume20[i])
		out[i].VolumeRatio = ptr(volumeRatio[i])
		out[i].PriceChange5D = ptr(change5[i])
		out[i].PriceChange20D = ptr(change20[i])
		out[i].RSI = ptr(rsi[i])
		out[i].MA25 = ptr(ma25[i])
		out[i].DeviationRate = ptr(deviation[i])
		out[i].EMA20 = ptr(ema20[i])
		out[i].SMA50 = ptr(sma50[i])
		out[i].SMA100 = ptr(sma100[i])
		out[i].SD10 = ptr(sd10[i])
		out[i].SD60 = ptr(sd60[i])
		out[i].Vol10 = ptr(vol10[i])
		out[i].Vol60 = ptr(vol60[i])
		out[i].High60 = ptr(high60[i])
		out[i].Low60 = ptr(low60[i])
		out[i].DiffPct3Mo = ptr(diffPct[i])
		out[i].PriceUpDays120 = ptr(upDays[i])
	}
	return out
}

// ptr converts a possibly-NaN value into a nullable column.
func ptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// element falls back to high-low.
func trueRange(high, low, closes []float64) []float64 {
	tr := make([]float64, len(high))
	for i := range tr {
		hl := high[i] - low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

func rollingMean(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	var sum float64
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStd is the sample standard deviation over the window (ddof=1).
func rollingStd(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += series[j]
		}
		mean := sum / float64(window)
		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := series[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(window-1))
	}
	return out
}

func rollingMax(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	for i := window - 1; i < len(series); i++ {
		m := series[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if series[j] > m {
				m = series[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollingMin(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	for i := window - 1; i < len(series); i++ {
		m := series[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if series[j] < m {
				m = series[j]
			}
		}
		out[i] = m
	}
	return out
}

// exponentialMA seeds with the SMA of the first window, then smooths with
// k = 2/(window+1).
func exponentialMA(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	if len(series) < window {
		return out
	}
	var seed float64
	for i := 0; i < window; i++ {
		seed += series[i]
	}
	prev := seed / float64(window)
	out[window-1] = prev
	k := 2.0 / float64(window+1)
	for i := window; i < len(series); i++ {
		prev = (series[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// momentum is the fractional change over period days.
func momentum(series []float64, period int) []float64 {
	out := nanSlice(len(series))
	for i := period; i < len(series); i++ {
		if series[i-period] != 0 {
			out[i] = (series[i] - series[i-period]) / series[i-period]
		}
	}
	return out
}

// relativeStrength is the Wilder RSI.
func relativeStrength(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= period {
		return out
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// upDayCount is the rolling count of closes above the prior close, requiring
// a full window of history. The first bar has no prior close and counts as
// flat, so the window is already valid at index window-1.
func upDayCount(closes []float64, window int) []float64 {
	up := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i] > closes[i-1] {
			up[i] = 1
		}
	}
	out := nanSlice(len(closes))
	var sum float64
	for i := range up {
		sum += up[i]
		if i >= window {
			sum -= up[i-window]
		}
		if i >= window-1 {
			out[i] = sum
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
