package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// EVM DATA POINTS (TIME-SERIES)
// ============================================================================

// EVMData is a single ingested cost/schedule record. The value is meaningful
// only jointly with (cobra_set, results); indicator computations filter on
// results = Dollars and one cobra_set. Rows are immutable outside batch
// re-ingestion.
type EVMData struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ControlAccountID *uuid.UUID      `json:"control_account_id,omitempty" db:"control_account_id"`
	WorkPackageID    *uuid.UUID      `json:"work_package_id,omitempty" db:"work_package_id"`
	BatchID          *uuid.UUID      `json:"batch_id,omitempty" db:"batch_id"`
	Resource         string          `json:"resource" db:"resource"`
	EOC              ElementOfCost   `json:"eoc" db:"eoc"`
	Results          ResultUnit      `json:"results" db:"results"`
	CAM              string          `json:"cam" db:"cam"`
	CobraSet         CobraSet        `json:"cobra_set" db:"cobra_set"`
	Date             time.Time       `json:"date" db:"date"`
	Value            decimal.Decimal `json:"value" db:"value"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// BaseQuantities holds the four raw EVM totals for a scope at one time cut,
// plus the BAC proxy (cumulative BCWS). All indicators derive from these.
type BaseQuantities struct {
	BCWS decimal.Decimal `json:"bcws"`
	BCWP decimal.Decimal `json:"bcwp"`
	ACWP decimal.Decimal `json:"acwp"`
	EAC  decimal.Decimal `json:"eac"`
	BAC  decimal.Decimal `json:"bac"`
}

// IndicatorSet is the reporting payload for a scope in one query mode.
type IndicatorSet struct {
	Mode IndicatorMode   `json:"mode"`
	BCWS decimal.Decimal `json:"bcws"`
	BCWP decimal.Decimal `json:"bcwp"`
	ACWP decimal.Decimal `json:"acwp"`
	EAC  decimal.Decimal `json:"eac"`
	BAC  decimal.Decimal `json:"bac"`
	CPI  decimal.Decimal `json:"cpi"`
	SPI  decimal.Decimal `json:"spi"`
	CV   decimal.Decimal `json:"cv"`
	SV   decimal.Decimal `json:"sv"`
}
