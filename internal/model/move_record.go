package model

import "time"

// OperationKind distinguishes which mutation a MoveRecord represents
// (spec §3).
type OperationKind string

const (
	OpTagOnly       OperationKind = "tag_only"
	OpMove          OperationKind = "move"
	OpMoveWithTags  OperationKind = "move_with_tags"
)

// ReversalState tracks whether a MoveRecord can still be undone (spec §3).
type ReversalState string

const (
	Reversible ReversalState = "reversible"
	Reversed   ReversalState = "reversed"
	Broken     ReversalState = "broken"
)

// MoveRecord is an append-only ledger entry (spec §3).
type MoveRecord struct {
	ID           uint64
	BatchID      string
	OriginalPath string
	BackupPath   string // empty if keep_originals was false
	CurrentPath  string
	Operation    OperationKind
	Timestamp    time.Time
	Reversal     ReversalState
	DryRun       bool // speculative record that does not survive the batch
}
