package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type IngestionBatchRepository struct {
	db *sqlx.DB
}

func NewIngestionBatchRepository(db *sqlx.DB) *IngestionBatchRepository {
	return &IngestionBatchRepository{db: db}
}

func (r *IngestionBatchRepository) Create(ctx context.Context, batch *models.IngestionBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = models.BatchPending
	}
	batch.CreatedAt = time.Now()
	batch.UpdatedAt = time.Now()

	query := `
		INSERT INTO ingestion_batch (
			id, program_id, source_file, status,
			rows_received, rows_inserted, rows_failed, error_detail,
			created_at, updated_at
		) VALUES (
			:id, :program_id, :source_file, :status,
			:rows_received, :rows_inserted, :rows_failed, :error_detail,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, batch)
	if err != nil {
		return fmt.Errorf("failed to create ingestion batch: %w", err)
	}

	return nil
}

func (r *IngestionBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestionBatch, error) {
	var batch models.IngestionBatch
	query := `SELECT * FROM ingestion_batch WHERE id = $1`

	err := r.db.GetContext(ctx, &batch, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: ingestion batch not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get ingestion batch: %w", err)
	}

	return &batch, nil
}

func (r *IngestionBatchRepository) GetByProgramID(ctx context.Context, programID uuid.UUID) ([]models.IngestionBatch, error) {
	var batches []models.IngestionBatch
	query := `SELECT * FROM ingestion_batch WHERE program_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &batches, query, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion batches: %w", err)
	}

	return batches, nil
}

// UpdateStatus advances the batch state machine and records the error detail
// for failed or partially failed runs.
func (r *IngestionBatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BatchStatus, errorDetail *string) error {
	if !models.IsValidBatchStatus(status) {
		return fmt.Errorf("invalid batch status: %s", status)
	}

	query := `
		UPDATE ingestion_batch SET
			status = $1, error_detail = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, status, errorDetail, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("not_found: ingestion batch not found: %s", id)
	}

	return nil
}

// UpdateCounts records the row-level outcome of the insert phase.
func (r *IngestionBatchRepository) UpdateCounts(ctx context.Context, id uuid.UUID, received, inserted, failed int) error {
	query := `
		UPDATE ingestion_batch SET
			rows_received = $1, rows_inserted = $2, rows_failed = $3, updated_at = $4
		WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query, received, inserted, failed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch counts: %w", err)
	}

	return nil
}
