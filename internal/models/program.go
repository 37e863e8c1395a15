package models

import (
	"time"

	"github.com/google/uuid"
)

// Program is the root scope for all EVM queries.
type Program struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ProgramCode string    `json:"program_code" db:"program_code"`
	Description string    `json:"description" db:"description"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type ControlAccount struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProgramID   uuid.UUID `json:"program_id" db:"program_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type WorkPackage struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ControlAccountID uuid.UUID `json:"control_account_id" db:"control_account_id"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Scope identifies the aggregation scope for indicator queries: one control
// account, or program-wide when ControlAccountID is nil.
type Scope struct {
	ProgramID        uuid.UUID  `json:"program_id"`
	ControlAccountID *uuid.UUID `json:"control_account_id,omitempty"`
}

// ProgramWide returns the program-level pseudo-scope for a program.
func ProgramWide(programID uuid.UUID) Scope {
	return Scope{ProgramID: programID}
}

// ForControlAccount returns the scope of a single control account.
func ForControlAccount(programID, controlAccountID uuid.UUID) Scope {
	return Scope{ProgramID: programID, ControlAccountID: &controlAccountID}
}

// IsProgramWide reports whether the scope aggregates across all control
// accounts under the program.
func (s Scope) IsProgramWide() bool {
	return s.ControlAccountID == nil
}
