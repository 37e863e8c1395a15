package services

import (
	"evm-service/internal/models"

	"github.com/shopspring/decimal"
)

// Pure indicator math over already-fetched base quantities. Keeping these
// free of storage access makes them independently unit-testable and safe for
// any number of concurrent reporting callers.
//
// Divide-by-zero policy: a zero denominator yields a zero indicator, never an
// error or NaN. Zero actual cost or zero planned value means "no signal yet"
// and must not propagate a mathematical error to reporting layers.

// CostPerformanceIndex returns BCWP / ACWP, or zero when ACWP is zero.
func CostPerformanceIndex(bcwp, acwp decimal.Decimal) decimal.Decimal {
	if acwp.IsZero() {
		return decimal.Zero
	}
	return bcwp.Div(acwp)
}

// SchedulePerformanceIndex returns BCWP / BCWS, or zero when BCWS is zero.
func SchedulePerformanceIndex(bcwp, bcws decimal.Decimal) decimal.Decimal {
	if bcws.IsZero() {
		return decimal.Zero
	}
	return bcwp.Div(bcws)
}

// CostVariance returns BCWP - ACWP.
func CostVariance(bcwp, acwp decimal.Decimal) decimal.Decimal {
	return bcwp.Sub(acwp)
}

// ScheduleVariance returns BCWP - BCWS.
func ScheduleVariance(bcwp, bcws decimal.Decimal) decimal.Decimal {
	return bcwp.Sub(bcws)
}

// DeriveIndicatorSet computes the full indicator payload for one set of base
// quantities.
func DeriveIndicatorSet(mode models.IndicatorMode, q models.BaseQuantities) models.IndicatorSet {
	return models.IndicatorSet{
		Mode: mode,
		BCWS: q.BCWS,
		BCWP: q.BCWP,
		ACWP: q.ACWP,
		EAC:  q.EAC,
		BAC:  q.BAC,
		CPI:  CostPerformanceIndex(q.BCWP, q.ACWP),
		SPI:  SchedulePerformanceIndex(q.BCWP, q.BCWS),
		CV:   CostVariance(q.BCWP, q.ACWP),
		SV:   ScheduleVariance(q.BCWP, q.BCWS),
	}
}
