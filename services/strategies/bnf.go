package strategies

import (
	"market-scanner/config"
	"market-scanner/models"
)

// BNF is a mean-reversion strategy: it buys when the close has fallen at
// least 20% below its 25-day moving average.
type BNF struct {
	cfg config.BNFConfig
}

// NewBNF creates the BNF strategy.
func NewBNF(cfg config.BNFConfig) *BNF {
	return &BNF{cfg: cfg}
}

func (b *BNF) Name() string { return models.StrategyBNF }

func (b *BNF) Describe() string {
	return "BNF mean reversion: buys when the close deviates 20% or more below the " +
		"25-day moving average. Scored on deviation depth (60) and volume ratio (40)."
}

func (b *BNF) MinPeriods() int { return b.cfg.MinPeriods }

func (b *BNF) DetectSignals(symbol string, bars []models.InstrumentBar) []models.Signal {
	if len(bars) < b.cfg.MinPeriods {
		return nil
	}

	last := bars[len(bars)-1]
	if last.Close < b.cfg.MinPrice || last.Volume < b.cfg.MinVolume {
		return nil
	}
	if last.MA25 == nil || last.DeviationRate == nil {
		return nil
	}

	deviation := *last.DeviationRate
	if deviation > b.cfg.DeviationThreshold {
		return nil
	}

	volumeRatio := fval(last.VolumeRatio, 1.0)
	deviationScore, volumeScore := bnfScores(deviation, volumeRatio)

	return []models.Signal{models.BNFSignal{
		Symbol:         symbol,
		Date:           last.Date,
		Price:          last.Close,
		MA25:           *last.MA25,
		DeviationRate:  deviation,
		Volume:         last.Volume,
		VolumeRatio:    volumeRatio,
		DeviationScore: deviationScore,
		VolumeScore:    volumeScore,
		Total:          deviationScore + volumeScore,
	}}
}

func bnfScores(deviation, volumeRatio float64) (deviationScore, volumeScore float64) {
	switch {
	case deviation <= -0.25:
		deviationScore = 60
	case deviation <= -0.23:
		deviationScore = 50
	case deviation <= -0.21:
		deviationScore = 40
	case deviation <= -0.20:
		deviationScore = 30
	default:
		deviationScore = 0
	}

	switch {
	case volumeRatio >= 2.0:
		volumeScore = 40
	case volumeRatio >= 1.5:
		volumeScore = 30
	case volumeRatio >= 1.2:
		volumeScore = 20
	case volumeRatio >= 1.0:
		volumeScore = 10
	default:
		volumeScore = 5
	}
	return deviationScore, volumeScore
}
