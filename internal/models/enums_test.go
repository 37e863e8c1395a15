package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsValidElementOfCost(t *testing.T) {
	assert.True(t, IsValidElementOfCost(EOCLabor))
	assert.True(t, IsValidElementOfCost(EOCMaterial))
	assert.True(t, IsValidElementOfCost(EOCODC))
	assert.True(t, IsValidElementOfCost(EOCPCL))
	assert.False(t, IsValidElementOfCost("Travel"))
	assert.False(t, IsValidElementOfCost("labor"), "categories are case sensitive")
	assert.False(t, IsValidElementOfCost(""))
}

func TestIsValidResultUnit(t *testing.T) {
	assert.True(t, IsValidResultUnit(ResultDollars))
	assert.True(t, IsValidResultUnit(ResultFTE))
	assert.True(t, IsValidResultUnit(ResultHours))
	assert.True(t, IsValidResultUnit(ResultDirect))
	assert.False(t, IsValidResultUnit("Euros"))
	assert.False(t, IsValidResultUnit(""))
}

func TestIsValidCobraSet(t *testing.T) {
	for _, set := range []CobraSet{SetEAC, SetCEAC, SetBCWP, SetBCWS, SetACWP, SetBAC} {
		assert.True(t, IsValidCobraSet(set), "set %s", set)
	}
	assert.False(t, IsValidCobraSet("FORECAST"))
	assert.False(t, IsValidCobraSet("bcws"), "sets are case sensitive")
	assert.False(t, IsValidCobraSet(""))
}

func TestIsValidBatchStatus(t *testing.T) {
	for _, status := range []BatchStatus{BatchPending, BatchProcessing, BatchCompleted, BatchFailed} {
		assert.True(t, IsValidBatchStatus(status), "status %s", status)
	}
	assert.False(t, IsValidBatchStatus("cancelled"))
	assert.False(t, IsValidBatchStatus(""))
}

func TestIsValidIndicatorMode(t *testing.T) {
	assert.True(t, IsValidIndicatorMode(ModeLatest))
	assert.True(t, IsValidIndicatorMode(ModeCumulative))
	assert.False(t, IsValidIndicatorMode("monthly"))
	assert.False(t, IsValidIndicatorMode(""))
}

func TestScope(t *testing.T) {
	programID := uuid.New()
	accountID := uuid.New()

	programScope := ProgramWide(programID)
	assert.True(t, programScope.IsProgramWide())
	assert.Nil(t, programScope.ControlAccountID)

	accountScope := ForControlAccount(programID, accountID)
	assert.False(t, accountScope.IsProgramWide())
	assert.Equal(t, accountID, *accountScope.ControlAccountID)
	assert.Equal(t, programID, accountScope.ProgramID)
}
