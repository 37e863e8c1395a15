package services

import (
	"context"
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

// fakeValueStore serves canned per-set totals, keeping latest and cumulative
// answers separate so mode routing is observable.
type fakeValueStore struct {
	latest     map[models.CobraSet]decimal.Decimal
	cumulative map[models.CobraSet]decimal.Decimal

	latestCalls     []models.CobraSet
	cumulativeCalls []models.CobraSet
}

func newFakeValueStore() *fakeValueStore {
	return &fakeValueStore{
		latest:     make(map[models.CobraSet]decimal.Decimal),
		cumulative: make(map[models.CobraSet]decimal.Decimal),
	}
}

func (f *fakeValueStore) LatestValue(_ context.Context, _ models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	f.latestCalls = append(f.latestCalls, set)
	return f.latest[set], nil
}

func (f *fakeValueStore) CumulativeValue(_ context.Context, _ models.Scope, set models.CobraSet) (decimal.Decimal, error) {
	f.cumulativeCalls = append(f.cumulativeCalls, set)
	return f.cumulative[set], nil
}

func (f *fakeValueStore) CumulativeValueThrough(_ context.Context, _ models.Scope, set models.CobraSet, _ time.Time) (decimal.Decimal, error) {
	return f.cumulative[set], nil
}

// ============================================================================
// TEST SUITE 1: MODE ROUTING
// ============================================================================

func TestGetIndicators_LatestMode(t *testing.T) {
	store := newFakeValueStore()
	// Two resource rows at the latest date already summed by the store: 100+50.
	store.latest[models.SetBCWS] = d("150")
	store.latest[models.SetBCWP] = d("120")
	store.latest[models.SetACWP] = d("160")
	store.cumulative[models.SetEAC] = d("900")
	store.cumulative[models.SetBCWS] = d("850")

	service := NewIndicatorService(store, nil)
	scope := models.ProgramWide(uuid.New())

	set, err := service.GetIndicators(context.Background(), scope, models.ModeLatest)

	assert.NoError(t, err)
	assert.True(t, set.BCWS.Equal(d("150")), "latest BCWS should come from the latest-value query")
	assert.True(t, set.BCWP.Equal(d("120")))
	assert.True(t, set.ACWP.Equal(d("160")))
	assert.True(t, set.CPI.Equal(d("0.75")), "CPI should be 120/160, got %s", set.CPI)
	assert.True(t, set.SPI.Equal(d("0.8")), "SPI should be 120/150, got %s", set.SPI)
	assert.ElementsMatch(t, []models.CobraSet{models.SetBCWS, models.SetBCWP, models.SetACWP}, store.latestCalls,
		"latest mode should fetch exactly the three time-phased sets as latest values")
}

func TestGetIndicators_CumulativeMode(t *testing.T) {
	store := newFakeValueStore()
	store.cumulative[models.SetBCWS] = d("1000")
	store.cumulative[models.SetBCWP] = d("800")
	store.cumulative[models.SetACWP] = d("1000")
	store.cumulative[models.SetEAC] = d("1500")

	service := NewIndicatorService(store, nil)
	scope := models.ForControlAccount(uuid.New(), uuid.New())

	set, err := service.GetIndicators(context.Background(), scope, models.ModeCumulative)

	assert.NoError(t, err)
	assert.Empty(t, store.latestCalls, "cumulative mode should never issue latest-value queries")
	assert.True(t, set.CPI.Equal(d("0.8")), "CPI should be 800/1000, got %s", set.CPI)
	assert.True(t, set.CV.Equal(d("-200")))
}

func TestGetIndicators_EACAndBACAlwaysCumulative(t *testing.T) {
	store := newFakeValueStore()
	store.latest[models.SetBCWS] = d("10")
	store.cumulative[models.SetBCWS] = d("500")
	store.cumulative[models.SetEAC] = d("750")

	service := NewIndicatorService(store, nil)

	set, err := service.GetIndicators(context.Background(), models.ProgramWide(uuid.New()), models.ModeLatest)

	assert.NoError(t, err)
	assert.True(t, set.EAC.Equal(d("750")), "EAC should be the cumulative rollup even in latest mode")
	assert.True(t, set.BAC.Equal(d("500")), "BAC should be cumulative BCWS even in latest mode")
	assert.True(t, set.BCWS.Equal(d("10")), "time-phased BCWS should still be the latest value")
}

func TestGetIndicators_InvalidMode(t *testing.T) {
	service := NewIndicatorService(newFakeValueStore(), nil)

	set, err := service.GetIndicators(context.Background(), models.ProgramWide(uuid.New()), "monthly")

	assert.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "badrequest")
}

// ============================================================================
// TEST SUITE 2: ABSENT DATA
// ============================================================================

func TestGetIndicators_NoDataYieldsAllZeros(t *testing.T) {
	// A brand new program has no rows anywhere; both modes must answer with a
	// complete all-zero payload rather than an error.
	service := NewIndicatorService(newFakeValueStore(), nil)
	scope := models.ProgramWide(uuid.New())

	for _, mode := range []models.IndicatorMode{models.ModeLatest, models.ModeCumulative} {
		set, err := service.GetIndicators(context.Background(), scope, mode)

		assert.NoError(t, err, "mode %s", mode)
		assert.True(t, set.BCWS.IsZero())
		assert.True(t, set.CPI.IsZero())
		assert.True(t, set.SPI.IsZero())
		assert.True(t, set.CV.IsZero())
		assert.True(t, set.SV.IsZero())
		assert.True(t, set.BAC.IsZero())
	}
}

// ============================================================================
// TEST SUITE 3: CACHE KEYS
// ============================================================================

func TestIndicatorCacheKey_DistinguishesScopeAndMode(t *testing.T) {
	programID := uuid.New()
	accountID := uuid.New()

	programLatest := indicatorCacheKey(models.ProgramWide(programID), models.ModeLatest)
	programCumulative := indicatorCacheKey(models.ProgramWide(programID), models.ModeCumulative)
	accountLatest := indicatorCacheKey(models.ForControlAccount(programID, accountID), models.ModeLatest)

	assert.NotEqual(t, programLatest, programCumulative, "modes must not share cache entries")
	assert.NotEqual(t, programLatest, accountLatest, "scopes must not share cache entries")
	assert.Contains(t, programLatest, programID.String(), "invalidation scans by program ID prefix")
	assert.Contains(t, accountLatest, programID.String())
}
