package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert inserts or overwrites the snapshot for (program, control account,
// month). The natural-key constraint makes regeneration idempotent and
// resolves concurrent writers last-write-wins at the storage layer.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *models.EVMSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	now := time.Now()
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now

	query := `
		INSERT INTO evm_snapshot (
			id, program_id, control_account_id, snapshot_month,
			bcws, bcwp, acwp, eac, cpi, spi, cv, sv,
			created_at, updated_at
		) VALUES (
			:id, :program_id, :control_account_id, :snapshot_month,
			:bcws, :bcwp, :acwp, :eac, :cpi, :spi, :cv, :sv,
			:created_at, :updated_at
		)
		ON CONFLICT ON CONSTRAINT uq_evm_snapshot_scope_month DO UPDATE SET
			bcws = EXCLUDED.bcws,
			bcwp = EXCLUDED.bcwp,
			acwp = EXCLUDED.acwp,
			eac = EXCLUDED.eac,
			cpi = EXCLUDED.cpi,
			spi = EXCLUDED.spi,
			cv = EXCLUDED.cv,
			sv = EXCLUDED.sv,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, snapshot)
	if err != nil {
		slog.Error("failed to upsert snapshot",
			"program_id", snapshot.ProgramID,
			"control_account_id", snapshot.ControlAccountID,
			"snapshot_month", snapshot.SnapshotMonth,
			"error", err)
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetSeries returns the stored snapshots for a scope within [from, to],
// ordered by month ascending for trend rendering.
func (r *SnapshotRepository) GetSeries(ctx context.Context, scope models.Scope, from, to time.Time) ([]models.EVMSnapshot, error) {
	var snapshots []models.EVMSnapshot
	var query string
	var args []any

	if scope.IsProgramWide() {
		query = `
			SELECT * FROM evm_snapshot
			WHERE program_id = $1
				AND control_account_id IS NULL
				AND snapshot_month >= $2
				AND snapshot_month <= $3
			ORDER BY snapshot_month ASC`
		args = []any{scope.ProgramID, from, to}
	} else {
		query = `
			SELECT * FROM evm_snapshot
			WHERE program_id = $1
				AND control_account_id = $2
				AND snapshot_month >= $3
				AND snapshot_month <= $4
			ORDER BY snapshot_month ASC`
		args = []any{scope.ProgramID, scope.ControlAccountID, from, to}
	}

	err := r.db.SelectContext(ctx, &snapshots, query, args...)
	if err != nil {
		slog.Error("failed to get snapshot series", "program_id", scope.ProgramID, "error", err)
		return nil, fmt.Errorf("failed to get snapshot series: %w", err)
	}

	return snapshots, nil
}
