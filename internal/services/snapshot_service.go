package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"evm-service/internal/event"
	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ControlAccountLister enumerates the control accounts the generator visits.
type ControlAccountLister interface {
	GetByProgramID(ctx context.Context, programID uuid.UUID) ([]models.ControlAccount, error)
}

// SnapshotStore persists frozen monthly aggregates keyed by (scope, month).
type SnapshotStore interface {
	Upsert(ctx context.Context, snapshot *models.EVMSnapshot) error
	GetSeries(ctx context.Context, scope models.Scope, from, to time.Time) ([]models.EVMSnapshot, error)
}

// BatchTracker advances the ingestion batch state machine.
type BatchTracker interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BatchStatus, errorDetail *string) error
}

// EventPublisher pushes batch and alert events to the message broker.
type EventPublisher interface {
	PublishBatchCompleted(ctx context.Context, evt event.BatchCompletedEvent) error
	PublishIndicatorAlert(ctx context.Context, evt event.IndicatorAlertEvent) error
}

type SnapshotService struct {
	accounts  ControlAccountLister
	store     ValueStore
	snapshots SnapshotStore
	batches   BatchTracker
	publisher EventPublisher

	// Cumulative CPI/SPI below this threshold raises an alert; zero values
	// mean "no signal yet" and never alert.
	alertThreshold decimal.Decimal
}

// NewSnapshotService builds the snapshot generator. publisher may be nil when
// the broker is unavailable; generation then proceeds without events.
func NewSnapshotService(
	accounts ControlAccountLister,
	store ValueStore,
	snapshots SnapshotStore,
	batches BatchTracker,
	publisher EventPublisher,
	alertThreshold decimal.Decimal,
) *SnapshotService {
	return &SnapshotService{
		accounts:       accounts,
		store:          store,
		snapshots:      snapshots,
		batches:        batches,
		publisher:      publisher,
		alertThreshold: alertThreshold,
	}
}

// GenerateSnapshots upserts one snapshot row per control account under the
// program, plus the program-wide row, for the given month. A scope failure is
// isolated and reported; sibling scopes still generate.
func (s *SnapshotService) GenerateSnapshots(ctx context.Context, programID uuid.UUID, month time.Time) (*models.SnapshotReport, error) {
	month = monthStart(month)

	accounts, err := s.accounts.GetByProgramID(ctx, programID)
	if err != nil {
		slog.Error("failed to list control accounts for snapshot run", "program_id", programID, "error", err)
		return nil, fmt.Errorf("failed to list control accounts: %w", err)
	}

	report := &models.SnapshotReport{
		ProgramID:     programID,
		SnapshotMonth: month,
	}

	for _, account := range accounts {
		scope := models.ForControlAccount(programID, account.ID)
		result := models.SnapshotScopeResult{ControlAccountID: scope.ControlAccountID, Success: true}

		if err := s.snapshotScope(ctx, scope, month); err != nil {
			slog.Error("snapshot generation failed for control account",
				"program_id", programID, "control_account_id", account.ID, "month", month, "error", err)
			result.Success = false
			result.Error = err.Error()
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Scopes = append(report.Scopes, result)
	}

	programScope := models.ProgramWide(programID)
	programResult := models.SnapshotScopeResult{ProgramWide: true, Success: true}
	if err := s.snapshotScope(ctx, programScope, month); err != nil {
		slog.Error("snapshot generation failed for program-wide scope",
			"program_id", programID, "month", month, "error", err)
		programResult.Success = false
		programResult.Error = err.Error()
		report.Failed++
	} else {
		report.Succeeded++
	}
	report.Scopes = append(report.Scopes, programResult)

	return report, nil
}

// snapshotScope computes cumulative-to-date totals through the snapshot month
// and freezes them with their derived indicators.
func (s *SnapshotService) snapshotScope(ctx context.Context, scope models.Scope, month time.Time) error {
	bcws, err := s.store.CumulativeValueThrough(ctx, scope, models.SetBCWS, month)
	if err != nil {
		return fmt.Errorf("aggregate BCWS: %w", err)
	}
	bcwp, err := s.store.CumulativeValueThrough(ctx, scope, models.SetBCWP, month)
	if err != nil {
		return fmt.Errorf("aggregate BCWP: %w", err)
	}
	acwp, err := s.store.CumulativeValueThrough(ctx, scope, models.SetACWP, month)
	if err != nil {
		return fmt.Errorf("aggregate ACWP: %w", err)
	}
	eac, err := s.store.CumulativeValueThrough(ctx, scope, models.SetEAC, month)
	if err != nil {
		return fmt.Errorf("aggregate EAC: %w", err)
	}

	snapshot := &models.EVMSnapshot{
		ProgramID:        scope.ProgramID,
		ControlAccountID: scope.ControlAccountID,
		SnapshotMonth:    month,
		BCWS:             bcws,
		BCWP:             bcwp,
		ACWP:             acwp,
		EAC:              eac,
		CPI:              CostPerformanceIndex(bcwp, acwp),
		SPI:              SchedulePerformanceIndex(bcwp, bcws),
		CV:               CostVariance(bcwp, acwp),
		SV:               ScheduleVariance(bcwp, bcws),
	}

	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	s.raiseAlerts(ctx, snapshot)
	return nil
}

func (s *SnapshotService) raiseAlerts(ctx context.Context, snapshot *models.EVMSnapshot) {
	if s.publisher == nil || s.alertThreshold.IsZero() {
		return
	}

	checks := []struct {
		name  string
		value decimal.Decimal
	}{
		{"CPI", snapshot.CPI},
		{"SPI", snapshot.SPI},
	}

	for _, check := range checks {
		if check.value.IsZero() || check.value.GreaterThanOrEqual(s.alertThreshold) {
			continue
		}
		evt := event.IndicatorAlertEvent{
			ProgramID:        snapshot.ProgramID,
			ControlAccountID: snapshot.ControlAccountID,
			SnapshotMonth:    snapshot.SnapshotMonth,
			Indicator:        check.name,
			Value:            check.value,
			Threshold:        s.alertThreshold,
			OccurredAt:       time.Now(),
		}
		if err := s.publisher.PublishIndicatorAlert(ctx, evt); err != nil {
			slog.Warn("failed to publish indicator alert",
				"program_id", snapshot.ProgramID, "indicator", check.name, "error", err)
		}
	}
}

// GetSnapshotSeries returns stored snapshots for a scope, month ascending.
func (s *SnapshotService) GetSnapshotSeries(ctx context.Context, scope models.Scope, from, to time.Time) ([]models.EVMSnapshot, error) {
	return s.snapshots.GetSeries(ctx, scope, monthStart(from), monthStart(to))
}

// ProcessBatch runs snapshot generation for every month an ingestion batch
// touched and drives the batch's processing -> completed | failed transition.
// The batch fails only when no fully successful snapshot set could be
// produced; partial scope failures are recorded in the error detail.
func (s *SnapshotService) ProcessBatch(ctx context.Context, batch *models.IngestionBatch, months []time.Time) {
	if err := s.batches.UpdateStatus(ctx, batch.ID, models.BatchProcessing, nil); err != nil {
		slog.Error("failed to mark batch processing", "batch_id", batch.ID, "error", err)
	}

	var failures []string
	anySucceeded := false

	for _, month := range months {
		report, err := s.GenerateSnapshots(ctx, batch.ProgramID, month)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", month.Format("2006-01"), err))
			continue
		}
		if report.Succeeded > 0 {
			anySucceeded = true
		}
		for _, scope := range report.Scopes {
			if !scope.Success {
				failures = append(failures, fmt.Sprintf("%s: %s", month.Format("2006-01"), scope.Error))
			}
		}
	}

	status := models.BatchCompleted
	var errorDetail *string
	if len(failures) > 0 {
		detail := strings.Join(failures, "; ")
		errorDetail = &detail
		if !anySucceeded {
			status = models.BatchFailed
		}
	}

	if err := s.batches.UpdateStatus(ctx, batch.ID, status, errorDetail); err != nil {
		slog.Error("failed to finalize batch status", "batch_id", batch.ID, "error", err)
	}

	if s.publisher != nil {
		evt := event.BatchCompletedEvent{
			BatchID:      batch.ID,
			ProgramID:    batch.ProgramID,
			Status:       string(status),
			RowsInserted: batch.RowsInserted,
			RowsFailed:   batch.RowsFailed,
			OccurredAt:   time.Now(),
		}
		if err := s.publisher.PublishBatchCompleted(ctx, evt); err != nil {
			slog.Warn("failed to publish batch event", "batch_id", batch.ID, "error", err)
		}
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
