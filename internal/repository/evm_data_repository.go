package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// EVMDataRepository is the value store: read-only aggregation primitives over
// ingested data points, plus the batch insert path used by ingestion.
type EVMDataRepository struct {
	db *sqlx.DB
}

func NewEVMDataRepository(db *sqlx.DB) *EVMDataRepository {
	return &EVMDataRepository{db: db}
}

// LatestValue resolves the most recent reporting date for (scope, cobra_set,
// Dollars) and sums every matching value at exactly that date. The point value
// is the sum across contributing resource rows, not a single record. Absence
// of data yields zero; each cobra_set resolves its own latest date.
func (r *EVMDataRepository) LatestValue(ctx context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	var query string
	var args []any

	if scope.IsProgramWide() {
		query = `
			SELECT COALESCE(SUM(d.value), 0)
			FROM evm_data d
			JOIN control_account ca ON ca.id = d.control_account_id
			WHERE ca.program_id = $1
				AND d.cobra_set = $2
				AND d.results = 'Dollars'
				AND d.date = (
					SELECT MAX(d2.date)
					FROM evm_data d2
					JOIN control_account ca2 ON ca2.id = d2.control_account_id
					WHERE ca2.program_id = $1
						AND d2.cobra_set = $2
						AND d2.results = 'Dollars'
				)`
		args = []any{scope.ProgramID, set}
	} else {
		query = `
			SELECT COALESCE(SUM(value), 0)
			FROM evm_data
			WHERE control_account_id = $1
				AND cobra_set = $2
				AND results = 'Dollars'
				AND date = (
					SELECT MAX(date)
					FROM evm_data
					WHERE control_account_id = $1
						AND cobra_set = $2
						AND results = 'Dollars'
				)`
		args = []any{scope.ControlAccountID, set}
	}

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, args...)
	if err != nil {
		slog.Error("failed to get latest value", "program_id", scope.ProgramID, "cobra_set", set, "error", err)
		return decimal.Zero, fmt.Errorf("failed to get latest value: %w", err)
	}

	return total, nil
}

// CumulativeValue sums matching Dollars values across all reporting dates.
func (r *EVMDataRepository) CumulativeValue(ctx context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	return r.cumulative(ctx, scope, set, nil)
}

// CumulativeValueThrough sums matching Dollars values for dates within and
// before the given month. This is the snapshot "as of month" cut, distinct
// from the unbounded live cumulative.
func (r *EVMDataRepository) CumulativeValueThrough(ctx context.Context, scope models.Scope, set models.CobraSet, month time.Time) (decimal.Decimal, error) {
	cutoff := startOfMonth(month).AddDate(0, 1, 0)
	return r.cumulative(ctx, scope, set, &cutoff)
}

func (r *EVMDataRepository) cumulative(ctx context.Context, scope models.Scope, set models.CobraSet, before *time.Time) (decimal.Decimal, error) {
	var query string
	var args []any

	if scope.IsProgramWide() {
		query = `
			SELECT COALESCE(SUM(d.value), 0)
			FROM evm_data d
			JOIN control_account ca ON ca.id = d.control_account_id
			WHERE ca.program_id = $1
				AND d.cobra_set = $2
				AND d.results = 'Dollars'`
		args = []any{scope.ProgramID, set}
		if before != nil {
			query += ` AND d.date < $3`
			args = append(args, *before)
		}
	} else {
		query = `
			SELECT COALESCE(SUM(value), 0)
			FROM evm_data
			WHERE control_account_id = $1
				AND cobra_set = $2
				AND results = 'Dollars'`
		args = []any{scope.ControlAccountID, set}
		if before != nil {
			query += ` AND date < $3`
			args = append(args, *before)
		}
	}

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, args...)
	if err != nil {
		slog.Error("failed to get cumulative value", "program_id", scope.ProgramID, "cobra_set", set, "error", err)
		return decimal.Zero, fmt.Errorf("failed to get cumulative value: %w", err)
	}

	return total, nil
}

// InsertBatch writes validated data points in one transaction.
func (r *EVMDataRepository) InsertBatch(ctx context.Context, points []models.EVMData) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO evm_data (
			id, control_account_id, work_package_id, batch_id,
			resource, eoc, results, cam, cobra_set, date, value, created_at
		) VALUES (
			:id, :control_account_id, :work_package_id, :batch_id,
			:resource, :eoc, :results, :cam, :cobra_set, :date, :value, :created_at
		)`

	for i := range points {
		if points[i].ID == uuid.Nil {
			points[i].ID = uuid.New()
		}
		points[i].CreatedAt = time.Now()

		if _, err := tx.NamedExecContext(ctx, query, points[i]); err != nil {
			return fmt.Errorf("failed to insert data point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit data points: %w", err)
	}

	return nil
}

// DeleteByBatchID removes a previously ingested batch. Re-ingestion replaces a
// batch wholesale; individual rows are never edited.
func (r *EVMDataRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evm_data WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch data points: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
