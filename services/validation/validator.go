package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
)

// Report is the outcome of validating one instrument's series. Errors reject
// the series; warnings flag it but let it through.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator checks and repairs raw OHLCV batches, one instrument at a time.
type Validator struct {
	maxPriceDeviation float64
	maxGapDays        int
	volumeOutlierZ    float64
	log               zerolog.Logger
}

// New creates a Validator. Zero thresholds fall back to the built-in
// defaults (50% daily move, 3-day gap, 5 sigma volume).
func New(maxPriceDeviation float64, maxGapDays int, volumeOutlierZ float64, log zerolog.Logger) *Validator {
	if maxPriceDeviation <= 0 {
		maxPriceDeviation = 0.5
	}
	if maxGapDays <= 0 {
		maxGapDays = 3
	}
	if volumeOutlierZ <= 0 {
		volumeOutlierZ = 5
	}
	return &Validator{
		maxPriceDeviation: maxPriceDeviation,
		maxGapDays:        maxGapDays,
		volumeOutlierZ:    volumeOutlierZ,
		log:               log,
	}
}

// Validate inspects a series without modifying it.
func (v *Validator) Validate(symbol string, bars []models.InstrumentBar) Report {
	r := Report{Valid: true}

	if len(bars) == 0 {
		r.Valid = false
		r.Errors = append(r.Errors, "series is empty")
		return r
	}

	seen := make(map[time.Time]int)
	duplicates := 0
	nonPositive := 0
	negativeVolume := 0
	inverted := 0

	for _, b := range bars {
		d := models.Day(b.Date)
		seen[d]++
		if seen[d] == 2 {
			duplicates++
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			nonPositive++
		}
		if b.Volume < 0 {
			negativeVolume++
		}
		if b.High < b.Low {
			inverted++
		}
	}

	if nonPositive > 0 {
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("%d rows with non-positive prices", nonPositive))
	}
	if negativeVolume > 0 {
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("%d rows with negative volume", negativeVolume))
	}
	if duplicates > 0 {
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("%d duplicate dates", duplicates))
	}
	if inverted > 0 {
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("%d rows with high below low", inverted))
	}

	v.collectWarnings(bars, &r)

	if !r.Valid {
		v.log.Warn().Str("symbol", symbol).Strs("errors", r.Errors).Msg("series rejected")
	}
	return r
}

func (v *Validator) collectWarnings(bars []models.InstrumentBar, r *Report) {
	ohlcFlags := 0
	zeroVolume := 0
	bigMoves := 0
	outOfOrder := 0
	gaps := 0

	var volSum, volSumSq float64
	for _, b := range bars {
		volSum += b.Volume
		volSumSq += b.Volume * b.Volume
	}
	n := float64(len(bars))
	volMean := volSum / n
	volStd := math.Sqrt(math.Max(0, volSumSq/n-volMean*volMean))

	outliers := 0
	for i, b := range bars {
		if b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
			ohlcFlags++
		}
		if b.Volume == 0 {
			zeroVolume++
		}
		if volStd > 0 && (b.Volume-volMean)/volStd > v.volumeOutlierZ {
			outliers++
		}
		if i > 0 {
			prev := bars[i-1]
			if prev.Close > 0 {
				move := math.Abs(b.Close-prev.Close) / prev.Close
				if move > v.maxPriceDeviation {
					bigMoves++
				}
			}
			if b.Date.Before(prev.Date) {
				outOfOrder++
			}
			if days := int(models.Day(b.Date).Sub(models.Day(prev.Date)).Hours() / 24); days > v.maxGapDays {
				gaps++
			}
		}
	}

	if ohlcFlags > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d rows with high/low outside open/close", ohlcFlags))
	}
	if bigMoves > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d daily moves beyond %.0f%%", bigMoves, v.maxPriceDeviation*100))
	}
	if zeroVolume > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d zero-volume days", zeroVolume))
	}
	if outliers > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d volume outliers beyond %.0f sigma", outliers, v.volumeOutlierZ))
	}
	if outOfOrder > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d rows out of date order", outOfOrder))
	}
	if gaps > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d date gaps beyond %d days", gaps, v.maxGapDays))
	}
}

// Clean repairs a series unconditionally and idempotently: dedup by date with
// the last row winning, sort by date, clamp high/low around open/close, zero
// out negative volume and interpolate zero-volume runs, interpolate remaining
// missing values with a column-mean fallback, and finally drop rows that are
// still broken. Clean never fails; on an internal panic the input is returned
// unchanged.
func (v *Validator) Clean(symbol string, bars []models.InstrumentBar) (out []models.InstrumentBar) {
	defer func() {
		if rec := recover(); rec != nil {
			v.log.Error().Str("symbol", symbol).Interface("panic", rec).
				Msg("cleaner failed, returning series unmodified")
			out = bars
		}
	}()

	if len(bars) == 0 {
		return bars
	}

	// Deduplicate by date, last write wins.
	byDate := make(map[time.Time]models.InstrumentBar, len(bars))
	order := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		d := models.Day(b.Date)
		if _, ok := byDate[d]; !ok {
			order = append(order, d)
		}
		b.Date = d
		byDate[d] = b
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	cleaned := make([]models.InstrumentBar, 0, len(order))
	for _, d := range order {
		cleaned = append(cleaned, byDate[d])
	}

	// Repair OHLC inversions instead of discarding rows.
	for i := range cleaned {
		b := &cleaned[i]
		origHigh := b.High
		b.High = max4(b.High, b.Low, b.Open, b.Close)
		b.Low = min4(b.Low, origHigh, b.Open, b.Close)
	}

	// Volume: negatives become zero, then zero runs are interpolated.
	volume := make([]float64, len(cleaned))
	for i, b := range cleaned {
		volume[i] = b.Volume
		if volume[i] < 0 {
			volume[i] = 0
		}
		if volume[i] == 0 {
			volume[i] = math.NaN()
		}
	}
	interpolate(volume)
	fillMean(volume)
	for i := range cleaned {
		cleaned[i].Volume = volume[i]
	}

	// Remaining missing numeric values: interpolate, then column mean.
	for _, col := range []func(*models.InstrumentBar) *float64{
		func(b *models.InstrumentBar) *float64 { return &b.Open },
		func(b *models.InstrumentBar) *float64 { return &b.High },
		func(b *models.InstrumentBar) *float64 { return &b.Low },
		func(b *models.InstrumentBar) *float64 { return &b.Close },
	} {
		series := make([]float64, len(cleaned))
		for i := range cleaned {
			series[i] = *col(&cleaned[i])
		}
		interpolate(series)
		fillMean(series)
		for i := range cleaned {
			*col(&cleaned[i]) = series[i]
		}
	}

	// Drop rows that are beyond repair.
	out = cleaned[:0]
	for _, b := range cleaned {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			continue
		}
		if b.High < b.Low || b.Volume < 0 {
			continue
		}
		if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) ||
			math.IsNaN(b.Close) || math.IsNaN(b.Volume) {
			continue
		}
		out = append(out, b)
	}

	if len(out) != len(bars) {
		v.log.Debug().Str("symbol", symbol).Int("in", len(bars)).Int("out", len(out)).
			Msg("cleaned series")
	}
	return out
}

// interpolate fills interior NaN runs linearly between their neighbors.
// Leading and trailing NaNs are left for fillMean.
func interpolate(series []float64) {
	prev := -1
	for i := 0; i < len(series); i++ {
		if math.IsNaN(series[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (series[i] - series[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				series[j] = series[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}

// fillMean replaces any NaN left after interpolation with the column mean.
func fillMean(series []float64) {
	var sum float64
	var n int
	for _, v := range series {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)
	for i := range series {
		if math.IsNaN(series[i]) {
			series[i] = mean
		}
	}
}

func max4(a, b, c, d float64) float64 {
	return math.Max(math.Max(a, b), math.Max(c, d))
}

func min4(a, b, c, d float64) float64 {
	return math.Min(math.Min(a, b), math.Min(c, d))
}
