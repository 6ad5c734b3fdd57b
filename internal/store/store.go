package store

import (
	"fmt"
	"sync"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/logging"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var storeLogger = logging.Module("store")

// Store wraps a gorm.DB for the tracks/move_ledger/api_cache tables.
// Concurrency: single-writer serialization (mu), non-blocking readers,
// matching spec §4.6/§5's shared-resource contract; gorm.io/driver/sqlite
// itself serializes writers at the driver level, this mutex additionally
// orders the higher-level multi-statement operations (e.g. ledger append +
// reversal-state update) that must not interleave.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open opens (and migrates) the embedded database named by Settings.Store
// (spec §6).
func Open(s *conf.Settings) (*Store, error) {
	var dialector gorm.Dialector
	switch s.Store.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(s.Store.DSN)
	case "mysql":
		dialector = mysql.Open(s.Store.DSN)
	default:
		return nil, apperrors.Newf("unknown store driver %q", s.Store.Driver).
			Component("store").Category(apperrors.CategoryConfiguration).Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, apperrors.New(err).Component("store").Category(apperrors.CategoryIO).
			Context("driver", s.Store.Driver).Build()
	}

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		return nil, err
	}
	return st, nil
}

// OpenInMemory is a convenience constructor for tests.
func OpenInMemory() (*Store, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&trackRow{}, &moveLedgerRow{}, &apiCacheRow{}, &schemaVersionRow{}); err != nil {
		return apperrors.New(err).Component("store").Category(apperrors.CategoryIO).
			Context("operation", "migrate").Build()
	}
	var v schemaVersionRow
	err := s.db.First(&v).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		v = schemaVersionRow{ID: 1, Version: currentSchemaVersion}
		if err := s.db.Create(&v).Error; err != nil {
			return fmt.Errorf("store: seed schema_version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: read schema_version: %w", err)
	default:
		if v.Version != currentSchemaVersion {
			storeLogger.Warn("schema version mismatch, continuing with best-effort migration",
				"have", v.Version, "want", currentSchemaVersion)
			v.Version = currentSchemaVersion
			s.db.Save(&v)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
