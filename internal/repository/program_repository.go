package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"evm-service/internal/models"
	"evm-service/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProgramRepository struct {
	db *sqlx.DB
}

func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == uuid.Nil {
		program.ID = uuid.New()
	}
	program.CreatedAt = time.Now()
	program.UpdatedAt = time.Now()

	query := `
		INSERT INTO program (
			id, name, program_code, description, start_date, end_date, created_at, updated_at
		) VALUES (
			:id, :name, :program_code, :description, :start_date, :end_date, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}

	return nil
}

func (r *ProgramRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	var program models.Program
	query := `SELECT * FROM program WHERE id = $1`

	err := r.db.GetContext(ctx, &program, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			slog.Warn("program not found", "program_id", id)
			return nil, fmt.Errorf("not_found: program not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	return &program, nil
}

func (r *ProgramRepository) GetByCode(ctx context.Context, code string) (*models.Program, error) {
	var program models.Program
	query := `SELECT * FROM program WHERE program_code = $1`

	err := r.db.GetContext(ctx, &program, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: program not found: %s", code)
		}
		return nil, fmt.Errorf("failed to get program by code: %w", err)
	}

	return &program, nil
}

func (r *ProgramRepository) GetAll(ctx context.Context) ([]models.Program, error) {
	var programs []models.Program
	query := `SELECT * FROM program ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &programs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get programs: %w", err)
	}

	return programs, nil
}

func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now()

	query := `
		UPDATE program SET
			name = :name, program_code = :program_code, description = :description,
			start_date = :start_date, end_date = :end_date, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("not_found: program not found: %s", program.ID)
	}

	return nil
}

// Delete removes a program; control accounts, work packages, data points and
// snapshots cascade at the storage layer.
func (r *ProgramRepository) Delete(id uuid.UUID) error {
	query := `DELETE FROM program WHERE id = $1`

	err := utils.ExecWithCheck(r.db, query, utils.ExecDelete, id)
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}
	return nil
}
