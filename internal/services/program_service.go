package services

import (
	"context"
	"fmt"
	"time"

	"evm-service/internal/models"
	"evm-service/internal/repository"

	"github.com/google/uuid"
)

// ProgramService handles the administrative hierarchy:
// Program -> ControlAccount -> WorkPackage.
type ProgramService struct {
	programs     *repository.ProgramRepository
	accounts     *repository.ControlAccountRepository
	workPackages *repository.WorkPackageRepository
}

func NewProgramService(
	programs *repository.ProgramRepository,
	accounts *repository.ControlAccountRepository,
	workPackages *repository.WorkPackageRepository,
) *ProgramService {
	return &ProgramService{
		programs:     programs,
		accounts:     accounts,
		workPackages: workPackages,
	}
}

func (s *ProgramService) CreateProgram(ctx context.Context, req models.CreateProgramRequest) (*models.Program, error) {
	if req.Name == "" || req.ProgramCode == "" {
		return nil, fmt.Errorf("badrequest: name and program_code are required")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("badrequest: invalid start_date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("badrequest: invalid end_date: %w", err)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("badrequest: end_date before start_date")
	}

	program := &models.Program{
		Name:        req.Name,
		ProgramCode: req.ProgramCode,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, err
	}
	return program, nil
}

func (s *ProgramService) GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	return s.programs.GetByID(ctx, id)
}

func (s *ProgramService) ListPrograms(ctx context.Context) ([]models.Program, error) {
	return s.programs.GetAll(ctx)
}

// DeleteProgram removes a program and everything under it.
func (s *ProgramService) DeleteProgram(id uuid.UUID) error {
	return s.programs.Delete(id)
}

func (s *ProgramService) CreateControlAccount(ctx context.Context, req models.CreateControlAccountRequest) (*models.ControlAccount, error) {
	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("badrequest: invalid program_id: %w", err)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("badrequest: name is required")
	}

	// The owning program must exist; FK violations surface as opaque storage
	// errors otherwise.
	if _, err := s.programs.GetByID(ctx, programID); err != nil {
		return nil, err
	}

	account := &models.ControlAccount{
		ProgramID:   programID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *ProgramService) GetControlAccount(ctx context.Context, id uuid.UUID) (*models.ControlAccount, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *ProgramService) ListControlAccounts(ctx context.Context, programID uuid.UUID) ([]models.ControlAccount, error) {
	return s.accounts.GetByProgramID(ctx, programID)
}

func (s *ProgramService) DeleteControlAccount(id uuid.UUID) error {
	return s.accounts.Delete(id)
}

func (s *ProgramService) CreateWorkPackage(ctx context.Context, req models.CreateWorkPackageRequest) (*models.WorkPackage, error) {
	accountID, err := uuid.Parse(req.ControlAccountID)
	if err != nil {
		return nil, fmt.Errorf("badrequest: invalid control_account_id: %w", err)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("badrequest: name is required")
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	wp := &models.WorkPackage{
		ControlAccountID: accountID,
		Name:             req.Name,
		Description:      req.Description,
	}
	if err := s.workPackages.Create(ctx, wp); err != nil {
		return nil, err
	}
	return wp, nil
}

func (s *ProgramService) ListWorkPackages(ctx context.Context, controlAccountID uuid.UUID) ([]models.WorkPackage, error) {
	return s.workPackages.GetByControlAccountID(ctx, controlAccountID)
}

func (s *ProgramService) DeleteWorkPackage(id uuid.UUID) error {
	return s.workPackages.Delete(id)
}
