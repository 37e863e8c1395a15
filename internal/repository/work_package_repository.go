package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evm-service/internal/models"
	"evm-service/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type WorkPackageRepository struct {
	db *sqlx.DB
}

func NewWorkPackageRepository(db *sqlx.DB) *WorkPackageRepository {
	return &WorkPackageRepository{db: db}
}

func (r *WorkPackageRepository) Create(ctx context.Context, wp *models.WorkPackage) error {
	if wp.ID == uuid.Nil {
		wp.ID = uuid.New()
	}
	wp.CreatedAt = time.Now()
	wp.UpdatedAt = time.Now()

	query := `
		INSERT INTO work_package (
			id, control_account_id, name, description, created_at, updated_at
		) VALUES (
			:id, :control_account_id, :name, :description, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, wp)
	if err != nil {
		return fmt.Errorf("failed to create work package: %w", err)
	}

	return nil
}

func (r *WorkPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkPackage, error) {
	var wp models.WorkPackage
	query := `SELECT * FROM work_package WHERE id = $1`

	err := r.db.GetContext(ctx, &wp, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: work package not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get work package: %w", err)
	}

	return &wp, nil
}

func (r *WorkPackageRepository) GetByControlAccountID(ctx context.Context, controlAccountID uuid.UUID) ([]models.WorkPackage, error) {
	var wps []models.WorkPackage
	query := `SELECT * FROM work_package WHERE control_account_id = $1 ORDER BY name`

	err := r.db.SelectContext(ctx, &wps, query, controlAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work packages by control account: %w", err)
	}

	return wps, nil
}

func (r *WorkPackageRepository) Delete(id uuid.UUID) error {
	query := `DELETE FROM work_package WHERE id = $1`

	err := utils.ExecWithCheck(r.db, query, utils.ExecDelete, id)
	if err != nil {
		return fmt.Errorf("failed to delete work package: %w", err)
	}
	return nil
}
