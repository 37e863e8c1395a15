package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"evm-service/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ValueStore is the read-only query surface of the data point store. All
// methods yield zero (not an error) when no matching data exists.
type ValueStore interface {
	LatestValue(ctx context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error)
	CumulativeValue(ctx context.Context, scope models.Scope, set models.CobraSet) (decimal.Decimal, error)
	CumulativeValueThrough(ctx context.Context, scope models.Scope, set models.CobraSet, month time.Time) (decimal.Decimal, error)
}

const indicatorCacheTTL = 5 * time.Minute

type IndicatorService struct {
	store ValueStore
	cache *redis.Client
}

// NewIndicatorService builds the live indicator query service. cache may be
// nil; indicator reads then always hit the store.
func NewIndicatorService(store ValueStore, cache *redis.Client) *IndicatorService {
	return &IndicatorService{
		store: store,
		cache: cache,
	}
}

// GetIndicators returns {CPI, SPI, CV, SV, BCWS, BCWP, ACWP, EAC, BAC} for a
// scope. In latest mode BCWS/BCWP/ACWP are summed at each set's own most
// recent reporting date; EAC and BAC are always cumulative rollups.
func (s *IndicatorService) GetIndicators(ctx context.Context, scope models.Scope, mode models.IndicatorMode) (*models.IndicatorSet, error) {
	if !models.IsValidIndicatorMode(mode) {
		return nil, fmt.Errorf("badrequest: invalid indicator mode: %s", mode)
	}

	if cached := s.cacheGet(ctx, scope, mode); cached != nil {
		return cached, nil
	}

	quantities, err := s.fetchBaseQuantities(ctx, scope, mode)
	if err != nil {
		return nil, err
	}

	set := DeriveIndicatorSet(mode, *quantities)
	s.cachePut(ctx, scope, mode, &set)

	return &set, nil
}

func (s *IndicatorService) fetchBaseQuantities(ctx context.Context, scope models.Scope, mode models.IndicatorMode) (*models.BaseQuantities, error) {
	fetch := s.store.CumulativeValue
	if mode == models.ModeLatest {
		fetch = s.store.LatestValue
	}

	bcws, err := fetch(ctx, scope, models.SetBCWS)
	if err != nil {
		slog.Error("failed to fetch BCWS", "program_id", scope.ProgramID, "mode", mode, "error", err)
		return nil, err
	}

	bcwp, err := fetch(ctx, scope, models.SetBCWP)
	if err != nil {
		slog.Error("failed to fetch BCWP", "program_id", scope.ProgramID, "mode", mode, "error", err)
		return nil, err
	}

	acwp, err := fetch(ctx, scope, models.SetACWP)
	if err != nil {
		slog.Error("failed to fetch ACWP", "program_id", scope.ProgramID, "mode", mode, "error", err)
		return nil, err
	}

	// EAC is an externally supplied rollup, BAC is the full planned baseline;
	// both are cumulative regardless of query mode.
	eac, err := s.store.CumulativeValue(ctx, scope, models.SetEAC)
	if err != nil {
		slog.Error("failed to fetch EAC", "program_id", scope.ProgramID, "error", err)
		return nil, err
	}

	bac, err := s.store.CumulativeValue(ctx, scope, models.SetBCWS)
	if err != nil {
		slog.Error("failed to fetch BAC", "program_id", scope.ProgramID, "error", err)
		return nil, err
	}

	return &models.BaseQuantities{
		BCWS: bcws,
		BCWP: bcwp,
		ACWP: acwp,
		EAC:  eac,
		BAC:  bac,
	}, nil
}

// ============================================================================
// CACHE (best effort; cache faults never fail an indicator read)
// ============================================================================

func indicatorCacheKey(scope models.Scope, mode models.IndicatorMode) string {
	if scope.IsProgramWide() {
		return fmt.Sprintf("evm:indicators:%s:program:%s", scope.ProgramID, mode)
	}
	return fmt.Sprintf("evm:indicators:%s:%s:%s", scope.ProgramID, scope.ControlAccountID, mode)
}

func (s *IndicatorService) cacheGet(ctx context.Context, scope models.Scope, mode models.IndicatorMode) *models.IndicatorSet {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.Get(ctx, indicatorCacheKey(scope, mode)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("indicator cache read failed", "error", err)
		}
		return nil
	}

	var set models.IndicatorSet
	if err := json.Unmarshal(payload, &set); err != nil {
		slog.Warn("indicator cache payload invalid", "error", err)
		return nil
	}
	return &set
}

func (s *IndicatorService) cachePut(ctx context.Context, scope models.Scope, mode models.IndicatorMode, set *models.IndicatorSet) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, indicatorCacheKey(scope, mode), payload, indicatorCacheTTL).Err(); err != nil {
		slog.Warn("indicator cache write failed", "error", err)
	}
}

// InvalidateProgram drops cached indicators for a program after ingestion or
// snapshot regeneration touches its data.
func (s *IndicatorService) InvalidateProgram(ctx context.Context, scope models.Scope) {
	if s.cache == nil {
		return
	}

	pattern := fmt.Sprintf("evm:indicators:%s:*", scope.ProgramID)
	iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Warn("indicator cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Warn("indicator cache scan failed", "error", err)
	}
}
