package models

import "time"

// Strategy names accepted by the screener.
const (
	StrategyTurtle       = "turtle"
	StrategyBNF          = "bnf"
	StrategyCoiledSpring = "coiled_spring"
)

// Signal type identifiers.
const (
	SignalTurtleSystem1 = "system1_entry"
	SignalTurtleSystem2 = "system2_entry"
	SignalBNFBuy        = "bnf_buy"
	SignalCoiledSpring  = "coiled_spring"
)

// Signal is the common surface of every strategy's scored output. Signals are
// transient pipeline output; they are never written back into InstrumentBar.
type Signal interface {
	StrategyName() string
	SignalSymbol() string
	SignalType() string
	SignalDate() time.Time
	TotalScore() float64
	ReferencePrice() float64
}

// TurtleSignal is a breakout entry from one of the two turtle systems.
type TurtleSignal struct {
	Symbol         string    `json:"symbol"`
	Type           string    `json:"signal_type"` // system1_entry or system2_entry
	Date           time.Time `json:"signal_date"`
	Price          float64   `json:"price"`
	ATR            float64   `json:"atr"`
	UnitSize       int       `json:"unit_size"`
	StopLossPrice  float64   `json:"stop_loss_price"`
	BreakoutHigh   float64   `json:"breakout_high"`
	DaysInBreakout int       `json:"days_in_breakout"`
	Volume         float64   `json:"volume"`
	VolumeRatio    float64   `json:"volume_ratio"`
	PriceChangePct float64   `json:"price_change_pct"`
	Momentum5D     float64   `json:"momentum_5d"`
	BreakoutScore  float64   `json:"breakout_score"`
	VolumeScore    float64   `json:"volume_score"`
	MomentumScore  float64   `json:"momentum_score"`
	Total          float64   `json:"total_score"`
}

func (s TurtleSignal) StrategyName() string    { return StrategyTurtle }
func (s TurtleSignal) SignalSymbol() string    { return s.Symbol }
func (s TurtleSignal) SignalType() string      { return s.Type }
func (s TurtleSignal) SignalDate() time.Time   { return s.Date }
func (s TurtleSignal) TotalScore() float64     { return s.Total }
func (s TurtleSignal) ReferencePrice() float64 { return s.Price }

// BNFSignal is a mean-reversion buy fired on deep negative deviation from the
// 25-day moving average.
type BNFSignal struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"signal_date"`
	Price          float64   `json:"price"`
	MA25           float64   `json:"ma25"`
	DeviationRate  float64   `json:"deviation_rate"`
	Volume         float64   `json:"volume"`
	VolumeRatio    float64   `json:"volume_ratio"`
	DeviationScore float64   `json:"deviation_score"`
	VolumeScore    float64   `json:"volume_score"`
	Total          float64   `json:"total_score"`
}

func (s BNFSignal) StrategyName() string    { return StrategyBNF }
func (s BNFSignal) SignalSymbol() string    { return s.Symbol }
func (s BNFSignal) SignalType() string      { return SignalBNFBuy }
func (s BNFSignal) SignalDate() time.Time   { return s.Date }
func (s BNFSignal) TotalScore() float64     { return s.Total }
func (s BNFSignal) ReferencePrice() float64 { return s.Price }

// CoiledSpringSignal fires when all five consolidation conditions hold at once.
type CoiledSpringSignal struct {
	Symbol          string    `json:"symbol"`
	Date            time.Time `json:"signal_date"`
	Price           float64   `json:"price"`
	Volatility10D   float64   `json:"volatility_10d"`
	Volatility60D   float64   `json:"volatility_60d"`
	EMA20           float64   `json:"ema_20"`
	SMA50           float64   `json:"sma_50"`
	SMA100          float64   `json:"sma_100"`
	VolumeRatio     float64   `json:"volume_ratio"`
	UpTrendStrength float64   `json:"up_trend_strength"`
	VolatilityScore float64   `json:"volatility_score"`
	TrendScore      float64   `json:"trend_score"`
	VolumeScore     float64   `json:"volume_score"`
	HistoryScore    float64   `json:"history_score"`
	Total           float64   `json:"total_score"`
}

func (s CoiledSpringSignal) StrategyName() string    { return StrategyCoiledSpring }
func (s CoiledSpringSignal) SignalSymbol() string    { return s.Symbol }
func (s CoiledSpringSignal) SignalType() string      { return SignalCoiledSpring }
func (s CoiledSpringSignal) SignalDate() time.Time   { return s.Date }
func (s CoiledSpringSignal) TotalScore() float64     { return s.Total }
func (s CoiledSpringSignal) ReferencePrice() float64 { return s.Price }
