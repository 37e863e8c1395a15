package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EVMSnapshot is a frozen monthly aggregate for one scope. ControlAccountID is
// nil for the program-wide row. Grain: (program_id, control_account_id,
// snapshot_month) — the generator upserts on that key, never duplicates.
// Derived data: rebuildable from evm_data at any time.
type EVMSnapshot struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ProgramID        uuid.UUID       `json:"program_id" db:"program_id"`
	ControlAccountID *uuid.UUID      `json:"control_account_id,omitempty" db:"control_account_id"`
	SnapshotMonth    time.Time       `json:"snapshot_month" db:"snapshot_month"`
	BCWS             decimal.Decimal `json:"bcws" db:"bcws"`
	BCWP             decimal.Decimal `json:"bcwp" db:"bcwp"`
	ACWP             decimal.Decimal `json:"acwp" db:"acwp"`
	EAC              decimal.Decimal `json:"eac" db:"eac"`
	CPI              decimal.Decimal `json:"cpi" db:"cpi"`
	SPI              decimal.Decimal `json:"spi" db:"spi"`
	CV               decimal.Decimal `json:"cv" db:"cv"`
	SV               decimal.Decimal `json:"sv" db:"sv"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// SnapshotScopeResult reports the outcome of snapshot generation for one scope.
type SnapshotScopeResult struct {
	ControlAccountID *uuid.UUID `json:"control_account_id,omitempty"`
	ProgramWide      bool       `json:"program_wide"`
	Success          bool       `json:"success"`
	Error            string     `json:"error,omitempty"`
}

// SnapshotReport is the per-scope rollup for one (program, month) generation run.
type SnapshotReport struct {
	ProgramID     uuid.UUID             `json:"program_id"`
	SnapshotMonth time.Time             `json:"snapshot_month"`
	Scopes        []SnapshotScopeResult `json:"scopes"`
	Succeeded     int                   `json:"succeeded"`
	Failed        int                   `json:"failed"`
}

// AllFailed reports whether no scope produced a snapshot.
func (r *SnapshotReport) AllFailed() bool {
	return r.Succeeded == 0 && r.Failed > 0
}
