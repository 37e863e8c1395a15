package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"evm-service/internal/models"
	"evm-service/internal/worker"

	"github.com/google/uuid"
)

// DataPointWriter is the write surface of the value store.
type DataPointWriter interface {
	InsertBatch(ctx context.Context, points []models.EVMData) error
	DeleteByBatchID(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// BatchStore persists ingestion batch tracking rows.
type BatchStore interface {
	Create(ctx context.Context, batch *models.IngestionBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IngestionBatch, error)
	GetByProgramID(ctx context.Context, programID uuid.UUID) ([]models.IngestionBatch, error)
	UpdateCounts(ctx context.Context, id uuid.UUID, received, inserted, failed int) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BatchStatus, errorDetail *string) error
}

type IngestionService struct {
	data       DataPointWriter
	batches    BatchStore
	snapshots  *SnapshotService
	indicators *IndicatorService
	pool       *worker.WorkingPool
}

// NewIngestionService builds the ingestion entry point. pool may be nil;
// snapshot generation then runs inline on the request path.
func NewIngestionService(
	data DataPointWriter,
	batches BatchStore,
	snapshots *SnapshotService,
	indicators *IndicatorService,
	pool *worker.WorkingPool,
) *IngestionService {
	return &IngestionService{
		data:       data,
		batches:    batches,
		snapshots:  snapshots,
		indicators: indicators,
		pool:       pool,
	}
}

// RecordDataPoints validates and inserts a parsed batch. Malformed rows are
// isolated per-row diagnostics; they never abort the batch on their own.
// Snapshot generation for every month the batch touched is enqueued after the
// insert commits, and the batch status is driven by its outcome.
func (s *IngestionService) RecordDataPoints(ctx context.Context, req models.RecordDataPointsRequest) (*models.IngestionReport, error) {
	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("badrequest: invalid program id: %w", err)
	}

	batch := &models.IngestionBatch{
		ProgramID:    programID,
		SourceFile:   req.SourceFile,
		Status:       models.BatchPending,
		RowsReceived: len(req.Rows),
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create ingestion batch: %w", err)
	}

	points, failures, months := s.validateRows(batch.ID, req.Rows)

	if req.ReplaceBatchID != nil {
		oldID, err := uuid.Parse(*req.ReplaceBatchID)
		if err != nil {
			return nil, fmt.Errorf("badrequest: invalid replace batch id: %w", err)
		}
		deleted, err := s.data.DeleteByBatchID(ctx, oldID)
		if err != nil {
			s.failBatch(ctx, batch.ID, err)
			return nil, err
		}
		slog.Info("replaced prior batch", "old_batch_id", oldID, "rows_deleted", deleted)
	}

	if err := s.data.InsertBatch(ctx, points); err != nil {
		s.failBatch(ctx, batch.ID, err)
		return nil, fmt.Errorf("failed to insert data points: %w", err)
	}

	batch.RowsInserted = len(points)
	batch.RowsFailed = len(failures)
	if err := s.batches.UpdateCounts(ctx, batch.ID, batch.RowsReceived, batch.RowsInserted, batch.RowsFailed); err != nil {
		slog.Error("failed to update batch counts", "batch_id", batch.ID, "error", err)
	}

	if s.indicators != nil {
		s.indicators.InvalidateProgram(ctx, models.ProgramWide(programID))
	}

	s.dispatchSnapshots(ctx, batch, months)

	return &models.IngestionReport{
		BatchID:      batch.ID,
		RowsReceived: batch.RowsReceived,
		RowsInserted: batch.RowsInserted,
		Failures:     failures,
		Months:       months,
	}, nil
}

func (s *IngestionService) dispatchSnapshots(ctx context.Context, batch *models.IngestionBatch, months []time.Time) {
	if len(months) == 0 {
		// Nothing usable landed; the batch outcome is already in the counts.
		status := models.BatchCompleted
		if batch.RowsInserted == 0 && batch.RowsFailed > 0 {
			status = models.BatchFailed
		}
		if err := s.batches.UpdateStatus(ctx, batch.ID, status, nil); err != nil {
			slog.Error("failed to finalize empty batch", "batch_id", batch.ID, "error", err)
		}
		return
	}

	if s.pool == nil {
		s.snapshots.ProcessBatch(ctx, batch, months)
		return
	}

	s.pool.SubmitJob(func(jobCtx context.Context) error {
		s.snapshots.ProcessBatch(jobCtx, batch, months)
		return nil
	})
}

// GetBatch returns a single ingestion batch with its current status.
func (s *IngestionService) GetBatch(ctx context.Context, id uuid.UUID) (*models.IngestionBatch, error) {
	return s.batches.GetByID(ctx, id)
}

// ListBatches returns every ingestion batch recorded for a program, newest first.
func (s *IngestionService) ListBatches(ctx context.Context, programID uuid.UUID) ([]models.IngestionBatch, error) {
	return s.batches.GetByProgramID(ctx, programID)
}

func (s *IngestionService) failBatch(ctx context.Context, batchID uuid.UUID, cause error) {
	detail := cause.Error()
	if err := s.batches.UpdateStatus(ctx, batchID, models.BatchFailed, &detail); err != nil {
		slog.Error("failed to mark batch failed", "batch_id", batchID, "error", err)
	}
}

// validateRows checks every row against the closed category sets and collects
// per-row diagnostics for the rest. Returns the distinct reporting months of
// the accepted rows, ascending.
func (s *IngestionService) validateRows(batchID uuid.UUID, rows []models.DataPointRow) ([]models.EVMData, []models.RowFailure, []time.Time) {
	var points []models.EVMData
	var failures []models.RowFailure
	monthSet := make(map[time.Time]struct{})

	for i, row := range rows {
		point, err := s.validateRow(batchID, row)
		if err != nil {
			failures = append(failures, models.RowFailure{RowIndex: i, Reason: err.Error()})
			continue
		}
		points = append(points, *point)
		monthSet[monthStart(point.Date)] = struct{}{}
	}

	months := make([]time.Time, 0, len(monthSet))
	for month := range monthSet {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	return points, failures, months
}

func (s *IngestionService) validateRow(batchID uuid.UUID, row models.DataPointRow) (*models.EVMData, error) {
	eoc := models.ElementOfCost(row.EOC)
	if !models.IsValidElementOfCost(eoc) {
		return nil, fmt.Errorf("invalid eoc: %q", row.EOC)
	}

	results := models.ResultUnit(row.Results)
	if !models.IsValidResultUnit(results) {
		return nil, fmt.Errorf("invalid results: %q", row.Results)
	}

	cobraSet := models.CobraSet(row.CobraSet)
	if !models.IsValidCobraSet(cobraSet) {
		return nil, fmt.Errorf("invalid cobra_set: %q", row.CobraSet)
	}

	date, err := time.Parse("2006-01-02", row.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %q", row.Date)
	}

	point := &models.EVMData{
		BatchID:  &batchID,
		Resource: row.Resource,
		EOC:      eoc,
		Results:  results,
		CAM:      row.CAM,
		CobraSet: cobraSet,
		Date:     date,
		Value:    row.Value,
	}

	if row.ControlAccountID != nil {
		id, err := uuid.Parse(*row.ControlAccountID)
		if err != nil {
			return nil, fmt.Errorf("invalid control_account_id: %q", *row.ControlAccountID)
		}
		point.ControlAccountID = &id
	}

	if row.WorkPackageID != nil {
		id, err := uuid.Parse(*row.WorkPackageID)
		if err != nil {
			return nil, fmt.Errorf("invalid work_package_id: %q", *row.WorkPackageID)
		}
		point.WorkPackageID = &id
	}

	return point, nil
}
