package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type fakeDataWriter struct {
	inserted  []models.EVMData
	deletedBy []uuid.UUID
}

func (f *fakeDataWriter) InsertBatch(_ context.Context, points []models.EVMData) error {
	f.inserted = append(f.inserted, points...)
	return nil
}

func (f *fakeDataWriter) DeleteByBatchID(_ context.Context, batchID uuid.UUID) (int64, error) {
	f.deletedBy = append(f.deletedBy, batchID)
	return 10, nil
}

type fakeBatchStore struct {
	batches map[uuid.UUID]*models.IngestionBatch
	changes []statusChange
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: make(map[uuid.UUID]*models.IngestionBatch)}
}

func (f *fakeBatchStore) Create(_ context.Context, batch *models.IngestionBatch) error {
	batch.ID = uuid.New()
	stored := *batch
	f.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatchStore) GetByID(_ context.Context, id uuid.UUID) (*models.IngestionBatch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, fmt.Errorf("not_found: batch %s", id)
	}
	return batch, nil
}

func (f *fakeBatchStore) GetByProgramID(_ context.Context, programID uuid.UUID) ([]models.IngestionBatch, error) {
	var result []models.IngestionBatch
	for _, batch := range f.batches {
		if batch.ProgramID == programID {
			result = append(result, *batch)
		}
	}
	return result, nil
}

func (f *fakeBatchStore) UpdateCounts(_ context.Context, id uuid.UUID, received, inserted, failed int) error {
	batch := f.batches[id]
	batch.RowsReceived = received
	batch.RowsInserted = inserted
	batch.RowsFailed = failed
	return nil
}

func (f *fakeBatchStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.BatchStatus, detail *string) error {
	f.batches[id].Status = status
	f.batches[id].ErrorDetail = detail
	f.changes = append(f.changes, statusChange{status: status, detail: detail})
	return nil
}

type ingestionFixture struct {
	programID uuid.UUID
	data      *fakeDataWriter
	batches   *fakeBatchStore
	service   *IngestionService
}

// newIngestionFixture wires the ingestion path over in-memory stores with
// inline (poolless) snapshot dispatch.
func newIngestionFixture() *ingestionFixture {
	fixture := &ingestionFixture{
		programID: uuid.New(),
		data:      &fakeDataWriter{},
		batches:   newFakeBatchStore(),
	}
	snapshots := NewSnapshotService(
		&fakeAccountLister{}, newFakeScopedValueStore(), newFakeSnapshotStore(), fixture.batches, nil,
		decimal.Zero)
	fixture.service = NewIngestionService(fixture.data, fixture.batches, snapshots, nil, nil)
	return fixture
}

func validRow(set models.CobraSet, date string, value string) models.DataPointRow {
	return models.DataPointRow{
		Resource: "ENG-SR",
		EOC:      string(models.EOCLabor),
		Results:  string(models.ResultDollars),
		CAM:      "J. Rivera",
		CobraSet: string(set),
		Date:     date,
		Value:    decimal.RequireFromString(value),
	}
}

// ============================================================================
// TEST SUITE 1: BATCH RECORDING
// ============================================================================

func TestRecordDataPoints_MixedValidity(t *testing.T) {
	fixture := newIngestionFixture()

	rows := []models.DataPointRow{
		validRow(models.SetBCWS, "2026-01-31", "100"),
		validRow(models.SetBCWP, "2026-01-31", "80"),
		validRow(models.SetACWP, "2026-01-31", "90"),
	}
	badSet := validRow(models.SetBCWS, "2026-01-31", "5")
	badSet.CobraSet = "FORECAST"
	badDate := validRow(models.SetBCWS, "Jan 31 2026", "5")
	rows = append(rows, badSet, badDate)

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID:  fixture.programID.String(),
		SourceFile: "cobra_export_jan.csv",
		Rows:       rows,
	})

	assert.NoError(t, err, "row-level failures must not fail the batch")
	assert.Equal(t, 5, report.RowsReceived)
	assert.Equal(t, 3, report.RowsInserted)
	assert.Len(t, report.Failures, 2)
	assert.Equal(t, 3, report.Failures[0].RowIndex)
	assert.Contains(t, report.Failures[0].Reason, "cobra_set")
	assert.Equal(t, 4, report.Failures[1].RowIndex)
	assert.Contains(t, report.Failures[1].Reason, "date")

	assert.Len(t, fixture.data.inserted, 3, "only the valid rows reach storage")

	batch, err := fixture.service.GetBatch(context.Background(), report.BatchID)
	assert.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, batch.Status, "a batch with surviving rows completes")
	assert.Equal(t, 3, batch.RowsInserted)
	assert.Equal(t, 2, batch.RowsFailed)
}

func TestRecordDataPoints_AllRowsInvalid(t *testing.T) {
	fixture := newIngestionFixture()

	bad := validRow(models.SetBCWS, "2026-01-31", "5")
	bad.EOC = "Overhead"

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: fixture.programID.String(),
		Rows:      []models.DataPointRow{bad, bad},
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, report.RowsInserted)
	assert.Len(t, report.Failures, 2)
	assert.Empty(t, report.Months)

	batch, _ := fixture.service.GetBatch(context.Background(), report.BatchID)
	assert.Equal(t, models.BatchFailed, batch.Status, "a batch where nothing landed fails")
}

func TestRecordDataPoints_InvalidProgramID(t *testing.T) {
	fixture := newIngestionFixture()

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: "not-a-uuid",
		Rows:      []models.DataPointRow{validRow(models.SetBCWS, "2026-01-31", "5")},
	})

	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "badrequest")
	assert.Empty(t, fixture.data.inserted)
}

func TestRecordDataPoints_MonthsDistinctAscending(t *testing.T) {
	fixture := newIngestionFixture()

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: fixture.programID.String(),
		Rows: []models.DataPointRow{
			validRow(models.SetBCWS, "2026-03-31", "10"),
			validRow(models.SetBCWS, "2026-01-15", "10"),
			validRow(models.SetBCWS, "2026-01-31", "10"),
			validRow(models.SetBCWS, "2026-02-28", "10"),
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []time.Time{
		month(2026, time.January),
		month(2026, time.February),
		month(2026, time.March),
	}, report.Months, "two January dates collapse into one month")
}

func TestRecordDataPoints_ReplacePriorBatch(t *testing.T) {
	fixture := newIngestionFixture()
	oldBatchID := uuid.New().String()

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID:      fixture.programID.String(),
		ReplaceBatchID: &oldBatchID,
		Rows:           []models.DataPointRow{validRow(models.SetACWP, "2026-02-28", "75")},
	})

	assert.NoError(t, err)
	assert.Len(t, fixture.data.deletedBy, 1, "replacement is the only path that deletes data points")
	assert.Equal(t, oldBatchID, fixture.data.deletedBy[0].String())
	assert.Equal(t, 1, report.RowsInserted)
}

// ============================================================================
// TEST SUITE 2: ROW VALIDATION
// ============================================================================

func TestValidateRow_ScopeReferences(t *testing.T) {
	fixture := newIngestionFixture()
	accountID := uuid.New().String()
	wpID := uuid.New().String()

	row := validRow(models.SetBCWP, "2026-04-30", "12.50")
	row.ControlAccountID = &accountID
	row.WorkPackageID = &wpID

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: fixture.programID.String(),
		Rows:      []models.DataPointRow{row},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.RowsInserted)
	point := fixture.data.inserted[0]
	assert.Equal(t, accountID, point.ControlAccountID.String())
	assert.Equal(t, wpID, point.WorkPackageID.String())
	assert.NotNil(t, point.BatchID, "every point carries its batch for replacement")
}

func TestValidateRow_BadScopeReference(t *testing.T) {
	fixture := newIngestionFixture()
	badRef := "123"

	row := validRow(models.SetBCWP, "2026-04-30", "12.50")
	row.ControlAccountID = &badRef

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: fixture.programID.String(),
		Rows:      []models.DataPointRow{row},
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, report.RowsInserted)
	assert.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Reason, "control_account_id")
}

func TestValidateRow_InvalidCategories(t *testing.T) {
	fixture := newIngestionFixture()

	badEOC := validRow(models.SetBCWS, "2026-04-30", "1")
	badEOC.EOC = "Travel"
	badResults := validRow(models.SetBCWS, "2026-04-30", "1")
	badResults.Results = "Euros"

	report, err := fixture.service.RecordDataPoints(context.Background(), models.RecordDataPointsRequest{
		ProgramID: fixture.programID.String(),
		Rows:      []models.DataPointRow{badEOC, badResults},
	})

	assert.NoError(t, err)
	assert.Len(t, report.Failures, 2)
	assert.Contains(t, report.Failures[0].Reason, "eoc")
	assert.Contains(t, report.Failures[1].Reason, "results")
}
