package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"evm-service/internal/event"
	"evm-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func scopeKey(scope models.Scope) string {
	if scope.IsProgramWide() {
		return scope.ProgramID.String() + "/program"
	}
	return scope.ProgramID.String() + "/" + scope.ControlAccountID.String()
}

// fakeScopedValueStore answers cumulative-through queries per (scope, set).
type fakeScopedValueStore struct {
	values map[string]map[models.CobraSet]decimal.Decimal
}

func newFakeScopedValueStore() *fakeScopedValueStore {
	return &fakeScopedValueStore{values: make(map[string]map[models.CobraSet]decimal.Decimal)}
}

func (f *fakeScopedValueStore) set(scope models.Scope, set models.CobraSet, value decimal.Decimal) {
	key := scopeKey(scope)
	if f.values[key] == nil {
		f.values[key] = make(map[models.CobraSet]decimal.Decimal)
	}
	f.values[key][set] = value
}

func (f *fakeScopedValueStore) LatestValue(_ context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	return f.values[scopeKey(scope)][set], nil
}

func (f *fakeScopedValueStore) CumulativeValue(_ context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	return f.values[scopeKey(scope)][set], nil
}

func (f *fakeScopedValueStore) CumulativeValueThrough(_ context.Context, scope models.Scope, set models.CobraSet, _ time.Time) (decimal.Decimal, error) {
	return f.values[scopeKey(scope)][set], nil
}

type fakeAccountLister struct {
	accounts []models.ControlAccount
}

func (f *fakeAccountLister) GetByProgramID(_ context.Context, _ uuid.UUID) ([]models.ControlAccount, error) {
	return f.accounts, nil
}

// fakeSnapshotStore keeps one row per (scope, month), mirroring the unique
// constraint the real table enforces.
type fakeSnapshotStore struct {
	rows        map[string]models.EVMSnapshot
	upsertCalls int
	failScopes  map[string]error
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{
		rows:       make(map[string]models.EVMSnapshot),
		failScopes: make(map[string]error),
	}
}

func snapshotKey(snapshot *models.EVMSnapshot) string {
	scope := models.Scope{ProgramID: snapshot.ProgramID, ControlAccountID: snapshot.ControlAccountID}
	return scopeKey(scope) + "@" + snapshot.SnapshotMonth.Format("2006-01")
}

func (f *fakeSnapshotStore) Upsert(_ context.Context, snapshot *models.EVMSnapshot) error {
	scope := models.Scope{ProgramID: snapshot.ProgramID, ControlAccountID: snapshot.ControlAccountID}
	if err := f.failScopes[scopeKey(scope)]; err != nil {
		return err
	}
	f.upsertCalls++
	f.rows[snapshotKey(snapshot)] = *snapshot
	return nil
}

func (f *fakeSnapshotStore) GetSeries(_ context.Context, scope models.Scope, from, to time.Time) ([]models.EVMSnapshot, error) {
	var series []models.EVMSnapshot
	for _, row := range f.rows {
		rowScope := models.Scope{ProgramID: row.ProgramID, ControlAccountID: row.ControlAccountID}
		if scopeKey(rowScope) != scopeKey(scope) {
			continue
		}
		if row.SnapshotMonth.Before(from) || row.SnapshotMonth.After(to) {
			continue
		}
		series = append(series, row)
	}
	return series, nil
}

type statusChange struct {
	status models.BatchStatus
	detail *string
}

type fakeBatchTracker struct {
	changes []statusChange
}

func (f *fakeBatchTracker) UpdateStatus(_ context.Context, _ uuid.UUID, status models.BatchStatus, detail *string) error {
	f.changes = append(f.changes, statusChange{status: status, detail: detail})
	return nil
}

type fakePublisher struct {
	batchEvents []event.BatchCompletedEvent
	alerts      []event.IndicatorAlertEvent
}

func (f *fakePublisher) PublishBatchCompleted(_ context.Context, evt event.BatchCompletedEvent) error {
	f.batchEvents = append(f.batchEvents, evt)
	return nil
}

func (f *fakePublisher) PublishIndicatorAlert(_ context.Context, evt event.IndicatorAlertEvent) error {
	f.alerts = append(f.alerts, evt)
	return nil
}

type snapshotFixture struct {
	programID uuid.UUID
	accounts  *fakeAccountLister
	store     *fakeScopedValueStore
	snapshots *fakeSnapshotStore
	batches   *fakeBatchTracker
	publisher *fakePublisher
	service   *SnapshotService
}

func newSnapshotFixture(threshold string, accountIDs ...uuid.UUID) *snapshotFixture {
	programID := uuid.New()
	accounts := &fakeAccountLister{}
	for i, id := range accountIDs {
		accounts.accounts = append(accounts.accounts, models.ControlAccount{
			ID:        id,
			ProgramID: programID,
			Name:      fmt.Sprintf("CA-%d", i+1),
		})
	}

	fixture := &snapshotFixture{
		programID: programID,
		accounts:  accounts,
		store:     newFakeScopedValueStore(),
		snapshots: newFakeSnapshotStore(),
		batches:   &fakeBatchTracker{},
		publisher: &fakePublisher{},
	}
	fixture.service = NewSnapshotService(
		fixture.accounts, fixture.store, fixture.snapshots, fixture.batches, fixture.publisher,
		decimal.RequireFromString(threshold))
	return fixture
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// TEST SUITE 1: SNAPSHOT GENERATION
// ============================================================================

func TestGenerateSnapshots_AllScopes(t *testing.T) {
	accountID := uuid.New()
	fixture := newSnapshotFixture("0", accountID)
	accountScope := models.ForControlAccount(fixture.programID, accountID)
	programScope := models.ProgramWide(fixture.programID)

	fixture.store.set(accountScope, models.SetBCWS, d("100"))
	fixture.store.set(accountScope, models.SetBCWP, d("80"))
	fixture.store.set(accountScope, models.SetACWP, d("100"))
	fixture.store.set(accountScope, models.SetEAC, d("300"))
	fixture.store.set(programScope, models.SetBCWS, d("100"))
	fixture.store.set(programScope, models.SetBCWP, d("80"))
	fixture.store.set(programScope, models.SetACWP, d("100"))
	fixture.store.set(programScope, models.SetEAC, d("300"))

	report, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.March))

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded, "one control account scope plus the program-wide scope")
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.AllFailed())
	assert.Len(t, fixture.snapshots.rows, 2)

	row, ok := fixture.snapshots.rows[snapshotKey(&models.EVMSnapshot{
		ProgramID:        fixture.programID,
		ControlAccountID: &accountID,
		SnapshotMonth:    month(2026, time.March),
	})]
	assert.True(t, ok, "the control account row should exist")
	assert.True(t, row.CPI.Equal(d("0.8")), "frozen CPI should be 80/100, got %s", row.CPI)
	assert.True(t, row.SV.Equal(d("-20")))
	assert.True(t, row.EAC.Equal(d("300")))
}

func TestGenerateSnapshots_MonthNormalized(t *testing.T) {
	fixture := newSnapshotFixture("0")

	report, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID,
		time.Date(2026, time.March, 17, 14, 30, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Equal(t, month(2026, time.March), report.SnapshotMonth, "mid-month timestamps should snap to the month start")
}

func TestGenerateSnapshots_RerunOverwrites(t *testing.T) {
	// Snapshot generation is idempotent per (scope, month): rerunning after a
	// data correction replaces the frozen values without creating duplicates.
	fixture := newSnapshotFixture("0")
	programScope := models.ProgramWide(fixture.programID)
	fixture.store.set(programScope, models.SetBCWP, d("80"))
	fixture.store.set(programScope, models.SetACWP, d("100"))

	_, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.March))
	assert.NoError(t, err)

	// Correction lands: actuals were overstated.
	fixture.store.set(programScope, models.SetACWP, d("90"))

	_, err = fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.March))
	assert.NoError(t, err)

	assert.Len(t, fixture.snapshots.rows, 1, "rerun must overwrite, never duplicate")
	for _, row := range fixture.snapshots.rows {
		assert.True(t, row.ACWP.Equal(d("90")), "rerun should freeze the corrected actuals")
		assert.True(t, row.CV.Equal(d("-10")))
	}
}

func TestGenerateSnapshots_ScopeFailureIsolated(t *testing.T) {
	badAccountID := uuid.New()
	goodAccountID := uuid.New()
	fixture := newSnapshotFixture("0", badAccountID, goodAccountID)
	fixture.snapshots.failScopes[scopeKey(models.ForControlAccount(fixture.programID, badAccountID))] =
		errors.New("deadlock detected")

	report, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.April))

	assert.NoError(t, err, "a scope failure must not fail the run")
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Succeeded, "the sibling account and the program-wide scope still generate")
	assert.Len(t, fixture.snapshots.rows, 2)

	var failed *models.SnapshotScopeResult
	for i := range report.Scopes {
		if !report.Scopes[i].Success {
			failed = &report.Scopes[i]
		}
	}
	assert.NotNil(t, failed)
	assert.Equal(t, badAccountID, *failed.ControlAccountID)
	assert.Contains(t, failed.Error, "deadlock detected")
}

// ============================================================================
// TEST SUITE 2: INDICATOR ALERTS
// ============================================================================

func TestGenerateSnapshots_AlertBelowThreshold(t *testing.T) {
	fixture := newSnapshotFixture("0.9")
	programScope := models.ProgramWide(fixture.programID)
	fixture.store.set(programScope, models.SetBCWS, d("100"))
	fixture.store.set(programScope, models.SetBCWP, d("80"))
	fixture.store.set(programScope, models.SetACWP, d("100"))

	_, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.May))

	assert.NoError(t, err)
	assert.Len(t, fixture.publisher.alerts, 2, "both CPI 0.8 and SPI 0.8 sit below 0.9")
	for _, alert := range fixture.publisher.alerts {
		assert.True(t, alert.Value.Equal(d("0.8")))
		assert.True(t, alert.Threshold.Equal(d("0.9")))
	}
}

func TestGenerateSnapshots_NoAlertOnZeroIndicators(t *testing.T) {
	// An empty scope has CPI = SPI = 0, which is "no signal yet", not a
	// critical variance.
	fixture := newSnapshotFixture("0.9")

	_, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.May))

	assert.NoError(t, err)
	assert.Empty(t, fixture.publisher.alerts)
}

func TestGenerateSnapshots_NoAlertWhenHealthy(t *testing.T) {
	fixture := newSnapshotFixture("0.9")
	programScope := models.ProgramWide(fixture.programID)
	fixture.store.set(programScope, models.SetBCWS, d("100"))
	fixture.store.set(programScope, models.SetBCWP, d("95"))
	fixture.store.set(programScope, models.SetACWP, d("100"))

	_, err := fixture.service.GenerateSnapshots(context.Background(), fixture.programID, month(2026, time.May))

	assert.NoError(t, err)
	assert.Empty(t, fixture.publisher.alerts, "CPI and SPI of 0.95 are at or above the threshold")
}

// ============================================================================
// TEST SUITE 3: BATCH STATE MACHINE
// ============================================================================

func TestProcessBatch_Completed(t *testing.T) {
	fixture := newSnapshotFixture("0")
	batch := &models.IngestionBatch{ID: uuid.New(), ProgramID: fixture.programID, RowsInserted: 42}

	fixture.service.ProcessBatch(context.Background(), batch,
		[]time.Time{month(2026, time.January), month(2026, time.February)})

	assert.Len(t, fixture.batches.changes, 2)
	assert.Equal(t, models.BatchProcessing, fixture.batches.changes[0].status)
	assert.Equal(t, models.BatchCompleted, fixture.batches.changes[1].status)
	assert.Nil(t, fixture.batches.changes[1].detail)

	assert.Len(t, fixture.publisher.batchEvents, 1)
	assert.Equal(t, string(models.BatchCompleted), fixture.publisher.batchEvents[0].Status)
	assert.Equal(t, 42, fixture.publisher.batchEvents[0].RowsInserted)

	assert.Len(t, fixture.snapshots.rows, 2, "one program-wide row per touched month")
}

func TestProcessBatch_PartialFailureStillCompletes(t *testing.T) {
	badAccountID := uuid.New()
	fixture := newSnapshotFixture("0", badAccountID)
	fixture.snapshots.failScopes[scopeKey(models.ForControlAccount(fixture.programID, badAccountID))] =
		errors.New("disk full")
	batch := &models.IngestionBatch{ID: uuid.New(), ProgramID: fixture.programID}

	fixture.service.ProcessBatch(context.Background(), batch, []time.Time{month(2026, time.January)})

	final := fixture.batches.changes[len(fixture.batches.changes)-1]
	assert.Equal(t, models.BatchCompleted, final.status, "the program-wide scope succeeded, so the batch completes")
	assert.NotNil(t, final.detail, "the scope failure must be recorded")
	assert.Contains(t, *final.detail, "disk full")
}

func TestProcessBatch_FailsWhenNoScopeSucceeds(t *testing.T) {
	badAccountID := uuid.New()
	fixture := newSnapshotFixture("0", badAccountID)
	fixture.snapshots.failScopes[scopeKey(models.ForControlAccount(fixture.programID, badAccountID))] =
		errors.New("relation missing")
	fixture.snapshots.failScopes[scopeKey(models.ProgramWide(fixture.programID))] =
		errors.New("relation missing")
	batch := &models.IngestionBatch{ID: uuid.New(), ProgramID: fixture.programID}

	fixture.service.ProcessBatch(context.Background(), batch, []time.Time{month(2026, time.January)})

	final := fixture.batches.changes[len(fixture.batches.changes)-1]
	assert.Equal(t, models.BatchFailed, final.status)
	assert.Contains(t, *final.detail, "relation missing")
	assert.Equal(t, string(models.BatchFailed), fixture.publisher.batchEvents[0].Status)
}
