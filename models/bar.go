package models

import (
	"time"

	"gorm.io/gorm"
)

// InstrumentBar is one daily OHLCV row for one instrument, plus the nullable
// indicator superset written back by the analysis engine. The (date, symbol)
// pair is the logical primary key; Save in the store enforces at most one row
// per key.
type InstrumentBar struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	Symbol string    `gorm:"uniqueIndex:idx_date_symbol;index;not null;size:32" json:"symbol"`
	Date   time.Time `gorm:"uniqueIndex:idx_date_symbol;index;not null" json:"date"`

	Open   float64 `gorm:"not null" json:"open"`
	High   float64 `gorm:"not null" json:"high"`
	Low    float64 `gorm:"not null" json:"low"`
	Close  float64 `gorm:"not null" json:"close"`
	Volume float64 `gorm:"not null" json:"volume"`

	// Turtle indicators
	ATR            *float64 `json:"atr,omitempty"`
	High20         *float64 `json:"high_20,omitempty"`
	Low10          *float64 `json:"low_10,omitempty"`
	High55         *float64 `json:"high_55,omitempty"`
	Low20          *float64 `json:"low_20,omitempty"`
	Volume20       *float64 `json:"volume_20,omitempty"`
	VolumeRatio    *float64 `json:"volume_ratio,omitempty"`
	PriceChange5D  *float64 `json:"price_change_5d,omitempty"`
	PriceChange20D *float64 `json:"price_change_20d,omitempty"`
	RSI            *float64 `json:"rsi,omitempty"`

	// BNF indicators
	MA25          *float64 `json:"ma25,omitempty"`
	DeviationRate *float64 `json:"deviation_rate,omitempty"`

	// Coiled-spring indicators
	EMA20          *float64 `json:"ema_20,omitempty"`
	SMA50          *float64 `json:"sma_50,omitempty"`
	SMA100         *float64 `json:"sma_100,omitempty"`
	SD10           *float64 `json:"sd_10,omitempty"`
	SD60           *float64 `json:"sd_60,omitempty"`
	Vol10          *float64 `json:"vol_10,omitempty"`
	Vol60          *float64 `json:"vol_60,omitempty"`
	High60         *float64 `json:"high_60,omitempty"`
	Low60          *float64 `json:"low_60,omitempty"`
	DiffPct3Mo     *float64 `json:"diff_pct_3mo,omitempty"`
	PriceUpDays120 *float64 `json:"price_up_days_120,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of struct renames.
func (InstrumentBar) TableName() string {
	return "instrument_bars"
}

// Day truncates a timestamp to a UTC calendar date. All bar dates are stored
// normalized so that (date, symbol) comparisons are exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MigrateScannerModels runs database migrations for scanner models.
func MigrateScannerModels(db *gorm.DB) error {
	return db.AutoMigrate(&InstrumentBar{})
}
