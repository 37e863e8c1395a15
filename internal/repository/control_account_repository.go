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

type ControlAccountRepository struct {
	db *sqlx.DB
}

func NewControlAccountRepository(db *sqlx.DB) *ControlAccountRepository {
	return &ControlAccountRepository{db: db}
}

func (r *ControlAccountRepository) Create(ctx context.Context, account *models.ControlAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	query := `
		INSERT INTO control_account (
			id, program_id, name, description, created_at, updated_at
		) VALUES (
			:id, :program_id, :name, :description, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return fmt.Errorf("failed to create control account: %w", err)
	}

	return nil
}

func (r *ControlAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ControlAccount, error) {
	var account models.ControlAccount
	query := `SELECT * FROM control_account WHERE id = $1`

	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: control account not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get control account: %w", err)
	}

	return &account, nil
}

// GetByProgramID lists every control account under a program; the snapshot
// generator iterates this set.
func (r *ControlAccountRepository) GetByProgramID(ctx context.Context, programID uuid.UUID) ([]models.ControlAccount, error) {
	var accounts []models.ControlAccount
	query := `SELECT * FROM control_account WHERE program_id = $1 ORDER BY name`

	err := r.db.SelectContext(ctx, &accounts, query, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get control accounts by program: %w", err)
	}

	return accounts, nil
}

func (r *ControlAccountRepository) Update(ctx context.Context, account *models.ControlAccount) error {
	account.UpdatedAt = time.Now()

	query := `
		UPDATE control_account SET
			name = :name, description = :description, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return fmt.Errorf("failed to update control account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("not_found: control account not found: %s", account.ID)
	}

	return nil
}

// Delete removes a control account; work packages and data points cascade.
func (r *ControlAccountRepository) Delete(id uuid.UUID) error {
	query := `DELETE FROM control_account WHERE id = $1`

	err := utils.ExecWithCheck(r.db, query, utils.ExecDelete, id)
	if err != nil {
		return fmt.Errorf("failed to delete control account: %w", err)
	}
	return nil
}
