package models

import "github.com/shopspring/decimal"

type CreateProgramRequest struct {
	Name        string `json:"name"`
	ProgramCode string `json:"program_code"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`   // YYYY-MM-DD
}

type CreateControlAccountRequest struct {
	ProgramID   string `json:"program_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateWorkPackageRequest struct {
	ControlAccountID string `json:"control_account_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

// DataPointRow is one parsed CSV record, already column-mapped by the
// ingestion pipeline. Scope references are optional; categorical fields are
// validated against the closed enum sets per row.
type DataPointRow struct {
	ControlAccountID *string         `json:"control_account_id,omitempty"`
	WorkPackageID    *string         `json:"work_package_id,omitempty"`
	Resource         string          `json:"resource"`
	EOC              string          `json:"eoc"`
	Results          string          `json:"results"`
	CAM              string          `json:"cam"`
	CobraSet         string          `json:"cobra_set"`
	Date             string          `json:"date"` // YYYY-MM-DD
	Value            decimal.Decimal `json:"value"`
}

type RecordDataPointsRequest struct {
	ProgramID  string `json:"program_id"`
	SourceFile string `json:"source_file"`
	// ReplaceBatchID replaces a previously ingested batch wholesale; this is
	// the only path that removes existing data points.
	ReplaceBatchID *string        `json:"replace_batch_id,omitempty"`
	Rows           []DataPointRow `json:"rows"`
}

type GenerateSnapshotsRequest struct {
	ProgramID string `json:"program_id"`
	Month     string `json:"month"` // YYYY-MM
}
