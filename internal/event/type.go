package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BatchEventQueue     = "evm_batch_events"
	IndicatorAlertQueue = "evm_indicator_alerts"
)

// BatchCompletedEvent announces the final status of an ingestion batch after
// snapshot generation.
type BatchCompletedEvent struct {
	BatchID      uuid.UUID `json:"batch_id"`
	ProgramID    uuid.UUID `json:"program_id"`
	Status       string    `json:"status"`
	RowsInserted int       `json:"rows_inserted"`
	RowsFailed   int       `json:"rows_failed"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// IndicatorAlertEvent flags a scope whose cumulative performance index fell
// below the configured threshold during snapshot generation.
type IndicatorAlertEvent struct {
	ProgramID        uuid.UUID       `json:"program_id"`
	ControlAccountID *uuid.UUID      `json:"control_account_id,omitempty"`
	SnapshotMonth    time.Time       `json:"snapshot_month"`
	Indicator        string          `json:"indicator"` // CPI or SPI
	Value            decimal.Decimal `json:"value"`
	Threshold        decimal.Decimal `json:"threshold"`
	OccurredAt       time.Time       `json:"occurred_at"`
}
