package models

import (
	"time"

	"github.com/google/uuid"
)

// IngestionBatch tracks one CSV ingestion through
// pending -> processing -> completed | failed.
type IngestionBatch struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	ProgramID    uuid.UUID   `json:"program_id" db:"program_id"`
	SourceFile   string      `json:"source_file" db:"source_file"`
	Status       BatchStatus `json:"status" db:"status"`
	RowsReceived int         `json:"rows_received" db:"rows_received"`
	RowsInserted int         `json:"rows_inserted" db:"rows_inserted"`
	RowsFailed   int         `json:"rows_failed" db:"rows_failed"`
	ErrorDetail  *string     `json:"error_detail,omitempty" db:"error_detail"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// RowFailure is a per-row ingestion diagnostic. Failures are isolated; they
// never abort the batch on their own.
type RowFailure struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
}

// IngestionReport is returned to the ingestion pipeline after recording a batch.
type IngestionReport struct {
	BatchID      uuid.UUID    `json:"batch_id"`
	RowsReceived int          `json:"rows_received"`
	RowsInserted int          `json:"rows_inserted"`
	Failures     []RowFailure `json:"failures,omitempty"`
	Months       []time.Time  `json:"months"`
}
