// Package store persists Tracks, the move ledger, and the response cache in
// a single embedded database file (spec §6), with schema migrations run at
// Open (spec §6, §9).
package store

import "time"

// trackRow is the gorm model backing the "tracks" table (spec §6).
// Queryable columns are kept scalar; everything else is JSON-encoded, since
// this table exists purely for batch-resume lookups and audit, not for
// relational queries across tracks.
type trackRow struct {
	BatchID         string `gorm:"primaryKey;column:batch_id"`
	Path            string `gorm:"primaryKey;column:path"`
	State           string `gorm:"column:state;index"`
	Error           string `gorm:"column:error"`
	ChosenCandidate string `gorm:"column:chosen_candidate_json"`
	DestPath        string `gorm:"column:dest_path"`
	TrackJSON       string `gorm:"column:track_json"` // full Track snapshot
	UpdatedAt       time.Time
}

func (trackRow) TableName() string { return "tracks" }

// moveLedgerRow is the gorm model backing the "move_ledger" table
// (spec §3, §6). IDs are monotonic and assigned by the database.
type moveLedgerRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement;column:id"`
	BatchID      string `gorm:"column:batch_id;index"`
	OriginalPath string `gorm:"column:original_path"`
	BackupPath   string `gorm:"column:backup_path"`
	CurrentPath  string `gorm:"column:current_path"`
	Operation    string `gorm:"column:operation"`
	Reversal     string `gorm:"column:reversal"`
	Timestamp    time.Time
}

func (moveLedgerRow) TableName() string { return "move_ledger" }

// apiCacheRow is the gorm model backing the "api_cache" table (spec §3,
// §4.6, §6).
type apiCacheRow struct {
	Key        string `gorm:"primaryKey;column:key"`
	Value      []byte `gorm:"column:value"`
	Kind       string `gorm:"column:kind"` // "positive" | "negative"
	CapturedAt time.Time
}

func (apiCacheRow) TableName() string { return "api_cache" }

// schemaVersionRow tracks the applied schema version (spec §6: "Schema is
// versioned; migrations run at open").
type schemaVersionRow struct {
	ID      uint `gorm:"primaryKey"`
	Version int
}

func (schemaVersionRow) TableName() string { return "schema_version" }

const currentSchemaVersion = 1
