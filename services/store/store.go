package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"market-scanner/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Store persists InstrumentBar rows in SQLite through gorm. A coarse mutex
// serializes writers; SQLite itself is opened with a single-connection pool.
type Store struct {
	db     *gorm.DB
	dbPath string
	mu     sync.Mutex
	log    zerolog.Logger
}

// Stats summarizes store contents.
type Stats struct {
	RecordCount     int64  `json:"record_count"`
	InstrumentCount int64  `json:"instrument_count"`
	FirstDate       string `json:"first_date"`
	LastDate        string `json:"last_date"`
	SizeBytes       int64  `json:"size_bytes"`
}

// New creates a Store and runs migrations.
func New(db *gorm.DB, dbPath string, log zerolog.Logger) (*Store, error) {
	if err := models.MigrateScannerModels(db); err != nil {
		return nil, fmt.Errorf("migrate scanner models: %w", err)
	}
	return &Store{db: db, dbPath: dbPath, log: log}, nil
}

// Save upserts bars. Any existing row with the same (date, symbol) key is
// deleted before the incoming row is inserted, so repeated saves over
// overlapping ranges converge on one row per key with the last call winning.
// The whole call runs in one transaction.
func (s *Store) Save(bars []models.InstrumentBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range bars {
			bars[i].ID = 0
			bars[i].Date = models.Day(bars[i].Date)
			res := tx.Where("date = ? AND symbol = ?", bars[i].Date, bars[i].Symbol).
				Delete(&models.InstrumentBar{})
			if res.Error != nil {
				return fmt.Errorf("delete stale row %s %s: %w",
					bars[i].Symbol, bars[i].Date.Format("2006-01-02"), res.Error)
			}
		}
		if err := tx.CreateInBatches(bars, 200).Error; err != nil {
			return fmt.Errorf("insert bars: %w", err)
		}
		return nil
	})
}

// Load returns bars ordered by (symbol, date) ascending. A nil or empty
// symbol set means all instruments; zero time bounds are open-ended, both
// bounds inclusive.
func (s *Store) Load(symbols []string, start, end time.Time) ([]models.InstrumentBar, error) {
	q := s.db.Model(&models.InstrumentBar{})
	if len(symbols) > 0 {
		q = q.Where("symbol IN ?", symbols)
	}
	if !start.IsZero() {
		q = q.Where("date >= ?", models.Day(start))
	}
	if !end.IsZero() {
		q = q.Where("date <= ?", models.Day(end))
	}

	var bars []models.InstrumentBar
	if err := q.Order("symbol ASC, date ASC").Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	return bars, nil
}

// LatestDate returns the most recent stored date, scoped to one symbol when
// given, or across the whole store when symbol is empty. ok is false when no
// rows match.
func (s *Store) LatestDate(symbol string) (time.Time, bool, error) {
	q := s.db.Model(&models.InstrumentBar{})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}

	var bar models.InstrumentBar
	err := q.Order("date DESC").First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest date: %w", err)
	}
	return models.Day(bar.Date), true, nil
}

// Prune deletes rows older than retainDays before now and reclaims file space
// with VACUUM. VACUUM is skipped when nothing was deleted.
func (s *Store) Prune(retainDays int) (int64, error) {
	cutoff := models.Day(time.Now().UTC().AddDate(0, 0, -retainDays))

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Where("date < ?", cutoff).Delete(&models.InstrumentBar{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune bars: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		if err := s.db.Exec("VACUUM").Error; err != nil {
			return res.RowsAffected, fmt.Errorf("vacuum: %w", err)
		}
		s.log.Info().Int64("deleted", res.RowsAffected).
			Str("cutoff", cutoff.Format("2006-01-02")).
			Msg("pruned old bars")
	}
	return res.RowsAffected, nil
}

// Stats reports record/instrument counts, the covered date range, and the
// database file size.
func (s *Store) Stats() (Stats, error) {
	var st Stats

	if err := s.db.Model(&models.InstrumentBar{}).Count(&st.RecordCount).Error; err != nil {
		return st, fmt.Errorf("count records: %w", err)
	}
	if err := s.db.Model(&models.InstrumentBar{}).
		Distinct("symbol").Count(&st.InstrumentCount).Error; err != nil {
		return st, fmt.Errorf("count instruments: %w", err)
	}

	if st.RecordCount > 0 {
		var first, last models.InstrumentBar
		if err := s.db.Order("date ASC").First(&first).Error; err != nil {
			return st, fmt.Errorf("first date: %w", err)
		}
		if err := s.db.Order("date DESC").First(&last).Error; err != nil {
			return st, fmt.Errorf("last date: %w", err)
		}
		st.FirstDate = first.Date.Format("2006-01-02")
		st.LastDate = last.Date.Format("2006-01-02")
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}
