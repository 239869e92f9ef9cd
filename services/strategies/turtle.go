package strategies

import (
	"market-scanner/config"
	"market-scanner/models"
)

// Turtle implements the two classic breakout systems. System 1 enters on a
// close above the prior 20-day high, system 2 on a close above the prior
// 55-day high; both can fire on the same bar.
type Turtle struct {
	cfg          config.TurtleConfig
	accountValue float64
}

// NewTurtle creates the turtle strategy.
func NewTurtle(cfg config.TurtleConfig, accountValue float64) *Turtle {
	return &Turtle{cfg: cfg, accountValue: accountValue}
}

func (t *Turtle) Name() string { return models.StrategyTurtle }

func (t *Turtle) Describe() string {
	return "Turtle breakout: enters when the close exceeds the prior 20-day high (system 1) " +
		"or 55-day high (system 2), sized by ATR with a 2-ATR stop. " +
		"Scored on breakout distance (40), volume ratio (35) and 5-day momentum (25)."
}

func (t *Turtle) MinPeriods() int { return t.cfg.MinPeriods }

// DetectSignals checks only the latest bar. The breakout reference is the
// rolling high as of the previous bar, so a new all-time high counts as a
// breakout instead of comparing the close against its own day's range.
func (t *Turtle) DetectSignals(symbol string, bars []models.InstrumentBar) []models.Signal {
	if len(bars) < 2 || len(bars) < t.cfg.MinPeriods {
		return nil
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	if last.Close < t.cfg.MinPrice || last.Volume < t.cfg.MinVolume {
		return nil
	}
	atr := fval(last.ATR, 0)
	if atr <= 0 {
		return nil
	}

	var signals []models.Signal
	if high20 := fval(prev.High20, 0); high20 > 0 && last.Close > high20 {
		signals = append(signals, t.buildSignal(symbol, last, models.SignalTurtleSystem1, high20, t.cfg.System1Entry))
	}
	if high55 := fval(prev.High55, 0); high55 > 0 && last.Close > high55 {
		signals = append(signals, t.buildSignal(symbol, last, models.SignalTurtleSystem2, high55, t.cfg.System2Entry))
	}
	return signals
}

func (t *Turtle) buildSignal(symbol string, last models.InstrumentBar, signalType string, breakoutHigh float64, entryDays int) models.TurtleSignal {
	atr := fval(last.ATR, 0)
	volumeRatio := fval(last.VolumeRatio, 1.0)
	momentum := fval(last.PriceChange5D, 0)

	unitSize := 0
	if atr > 0 {
		unitSize = int(t.accountValue * t.cfg.RiskPerTrade / atr)
	}

	breakoutPct := 0.0
	if breakoutHigh > 0 {
		breakoutPct = (last.Close - breakoutHigh) / breakoutHigh * 100
	}
	breakoutScore, volumeScore, momentumScore := turtleScores(breakoutPct, volumeRatio, momentum)

	return models.TurtleSignal{
		Symbol:         symbol,
		Type:           signalType,
		Date:           last.Date,
		Price:          last.Close,
		ATR:            atr,
		UnitSize:       unitSize,
		StopLossPrice:  last.Close - t.cfg.StopLossATR*atr,
		BreakoutHigh:   breakoutHigh,
		DaysInBreakout: entryDays,
		Volume:         last.Volume,
		VolumeRatio:    volumeRatio,
		PriceChangePct: fval(last.PriceChange20D, 0) * 100,
		Momentum5D:     momentum,
		BreakoutScore:  breakoutScore,
		VolumeScore:    volumeScore,
		MomentumScore:  momentumScore,
		Total:          breakoutScore + volumeScore + momentumScore,
	}
}

// turtleScores applies the fixed tier tables. An exact boundary value always
// takes the higher-scoring tier.
func turtleScores(breakoutPct, volumeRatio, momentum float64) (breakout, volume, mom float64) {
	switch {
	case breakoutPct > 0 && breakoutPct <= 2:
		breakout = 40
	case breakoutPct > 2 && breakoutPct <= 5:
		breakout = 30
	case breakoutPct > 5 && breakoutPct <= 10:
		breakout = 15
	default:
		breakout = 5
	}

	switch {
	case volumeRatio >= 2.0:
		volume = 35
	case volumeRatio >= 1.5:
		volume = 28
	case volumeRatio >= 1.2:
		volume = 20
	default:
		volume = 12
	}

	switch {
	case momentum >= 0.05:
		mom = 25
	case momentum >= 0.03:
		mom = 20
	case momentum >= 0.01:
		mom = 15
	case momentum > 0:
		mom = 8
	default:
		mom = 0
	}
	return breakout, volume, mom
}
