package models

type ElementOfCost string

const (
	EOCLabor    ElementOfCost = "Labor"
	EOCMaterial ElementOfCost = "Material"
	EOCODC      ElementOfCost = "ODC"
	EOCPCL      ElementOfCost = "PCL"
)

type ResultUnit string

const (
	ResultDollars ResultUnit = "Dollars"
	ResultFTE     ResultUnit = "FTE"
	ResultHours   ResultUnit = "Hours"
	ResultDirect  ResultUnit = "Direct"
)

type CobraSet string

const (
	SetEAC  CobraSet = "EAC"
	SetCEAC CobraSet = "CEAC"
	SetBCWP CobraSet = "BCWP"
	SetBCWS CobraSet = "BCWS"
	SetACWP CobraSet = "ACWP"
	SetBAC  CobraSet = "BAC"
)

type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

type IndicatorMode string

const (
	ModeLatest     IndicatorMode = "latest"
	ModeCumulative IndicatorMode = "cumulative"
)

// IsValidElementOfCost checks if an element-of-cost category is valid
func IsValidElementOfCost(eoc ElementOfCost) bool {
	switch eoc {
	case EOCLabor, EOCMaterial, EOCODC, EOCPCL:
		return true
	default:
		return false
	}
}

// IsValidResultUnit checks if a result-unit category is valid
func IsValidResultUnit(r ResultUnit) bool {
	switch r {
	case ResultDollars, ResultFTE, ResultHours, ResultDirect:
		return true
	default:
		return false
	}
}

// IsValidCobraSet checks if an EVM set category is valid
func IsValidCobraSet(s CobraSet) bool {
	switch s {
	case SetEAC, SetCEAC, SetBCWP, SetBCWS, SetACWP, SetBAC:
		return true
	default:
		return false
	}
}

// IsValidBatchStatus checks if an ingestion batch status is valid
func IsValidBatchStatus(status BatchStatus) bool {
	switch status {
	case BatchPending, BatchProcessing, BatchCompleted, BatchFailed:
		return true
	default:
		return false
	}
}

// IsValidIndicatorMode checks if an indicator query mode is valid
func IsValidIndicatorMode(mode IndicatorMode) bool {
	switch mode {
	case ModeLatest, ModeCumulative:
		return true
	default:
		return false
	}
}
