package store

import (
	"time"

	"github.com/tunevault/tunevault/internal/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	cacheKindPositive = "positive"
	cacheKindNegative = "negative"
)

// CacheGet returns the raw stored value, whether it is a negative entry,
// and the capture time, or ok=false if absent (spec §4.6).
func (s *Store) CacheGet(key string) (value []byte, negative bool, capturedAt time.Time, ok bool, err error) {
	var row apiCacheRow
	dbErr := s.db.Where("key = ?", key).First(&row).Error
	if dbErr == gorm.ErrRecordNotFound {
		return nil, false, time.Time{}, false, nil
	}
	if dbErr != nil {
		return nil, false, time.Time{}, false, apperrors.New(dbErr).
			Component("store").Category(apperrors.CategoryIO).Build()
	}
	return row.Value, row.Kind == cacheKindNegative, row.CapturedAt, true, nil
}

// CachePut writes (or overwrites) a cache entry (spec §4.6: "single-writer
// serialization; readers non-blocking").
func (s *Store) CachePut(key string, value []byte, negative bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := cacheKindPositive
	if negative {
		kind = cacheKindNegative
	}
	row := apiCacheRow{Key: key, Value: value, Kind: kind, CapturedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// EvictExpired deletes cache rows older than the given per-kind TTLs.
func (s *Store) EvictExpired(positiveTTL, negativeTTL time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	res := s.db.Where("kind = ? AND captured_at < ?", cacheKindPositive, now.Add(-positiveTTL)).
		Or("kind = ? AND captured_at < ?", cacheKindNegative, now.Add(-negativeTTL)).
		Delete(&apiCacheRow{})
	if res.Error != nil {
		return 0, apperrors.New(res.Error).Component("store").Category(apperrors.CategoryIO).Build()
	}
	return res.RowsAffected, nil
}
