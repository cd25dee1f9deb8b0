// Package assembler implements the Context Assembler: a time-budgeted
// gatherer that fans out to the Telemetry Store Adapter and the Analytics
// Kernel to build the structured bundle the Prompt Builder renders into
// the initial prompt.
package assembler

import (
	"wattwise/internal/analytics"
	"wattwise/internal/domain"
)

// Step records one named assembly step's outcome for the bundle's meta
// trace: what ran, how long it took, and whether it succeeded.
type Step struct {
	Label      string `json:"label"`
	DurationMs int64  `json:"durationMs"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Meta describes the assembly run itself: the step trace, total duration,
// the budget it ran under, and whether the budget cut work short.
type Meta struct {
	Steps      []Step `json:"steps"`
	DurationMs int64  `json:"durationMs"`
	MaxMs      int64  `json:"maxMs"`
	Truncated  bool   `json:"truncated"`
}

// BatteryFacts is the small set of install-level facts the prompt leads
// with, independent of any time-windowed analytics.
type BatteryFacts struct {
	RatedCapacityAh  float64         `json:"ratedCapacityAh"`
	ReferenceVoltage float64         `json:"referenceVoltage"`
	CycleCount       domain.OptInt   `json:"cycleCount"`
	Chemistry        domain.OptString `json:"chemistry"`
	BrandNewLikely   bool            `json:"brandNewLikely"`
}

// AnalyticResult pairs a kernel function's success value with its
// insufficient-data outcome; at most one is non-nil, mirroring the
// kernel's own two-pointer return shape so callers never need a sentinel.
// Both are nil when the analytic was not run (e.g. sync mode).
type AnalyticResult[T any] struct {
	Value        *T                        `json:"value,omitempty"`
	Insufficient *analytics.InsufficientData `json:"insufficientData,omitempty"`
}

func ok[T any](v *T) AnalyticResult[T] { return AnalyticResult[T]{Value: v} }

func short[T any](ins *analytics.InsufficientData) AnalyticResult[T] {
	return AnalyticResult[T]{Insufficient: ins}
}

// AnalyticsBundle is the Analytics Kernel's general-purpose outputs,
// independent of the usage-pattern, prediction, and budget sections which
// the bundle exposes separately because the prompt and the tool layer
// both address them by their own names.
type AnalyticsBundle struct {
	LoadProfile      AnalyticResult[analytics.LoadProfile]      `json:"loadProfile"`
	EnergyBalance    AnalyticResult[analytics.EnergyBalance]    `json:"energyBalance"`
	SolarPerformance AnalyticResult[analytics.SolarPerformance] `json:"solarPerformance"`
	BatteryHealth    AnalyticResult[analytics.BatteryHealth]    `json:"batteryHealth"`
	Trends           AnalyticResult[analytics.Trends]           `json:"trends"`
	WeatherImpact    AnalyticResult[analytics.WeatherImpact]    `json:"weatherImpact"`
}

// UsagePatternsBundle mirrors analyze_usage_patterns's two pattern types.
type UsagePatternsBundle struct {
	Daily     AnalyticResult[analytics.LoadProfile] `json:"daily"`
	Anomalies AnalyticResult[analytics.Anomalies]   `json:"anomalies"`
}

// EnergyBudgetScenario is one planning scenario's generation/consumption
// figures, mirroring calculate_energy_budget's result shape.
type EnergyBudgetScenario struct {
	GenerationWh        float64 `json:"generationWh"`
	ConsumptionWh       float64 `json:"consumptionWh"`
	NetWh               float64 `json:"netWh"`
	SolarSufficiencyPct float64 `json:"solarSufficiencyPct"`
}

// EnergyBudgetsBundle preloads the two scenarios the assembler itself
// computes; "emergency" is left for the tool, since the prompt's
// preloaded context only ever needs current/worst-case framing.
type EnergyBudgetsBundle struct {
	Current   *EnergyBudgetScenario `json:"current,omitempty"`
	WorstCase *EnergyBudgetScenario `json:"worstCase,omitempty"`
}

// PredictionsBundle mirrors predict_battery_trends's two metric labels.
// Both are populated from the same underlying decay-model computation:
// the kernel produces one unified capacity-decay forecast, and "capacity"
// versus "lifetime" are this engine's two framings of that single result,
// not two distinct computations.
type PredictionsBundle struct {
	Capacity AnalyticResult[analytics.PredictiveModels] `json:"capacity"`
	Lifetime AnalyticResult[analytics.PredictiveModels] `json:"lifetime"`
}

// HourBucket is one sparse hourly sample within a daily rollup.
type HourBucket struct {
	Hour      int     `json:"hour"`
	AvgVoltage float64 `json:"avgVoltage"`
	AvgSOC     float64 `json:"avgSoc"`
	Count      int     `json:"count"`
}

// DailyRollup is one day's summary within the 90-day rollup.
type DailyRollup struct {
	Date            string       `json:"date"`
	AvgSOC          float64      `json:"avgSoc"`
	GenerationWh    float64      `json:"generationWh"`
	ConsumptionWh   float64      `json:"consumptionWh"`
	HourlyBreakdown []HourBucket `json:"hourlyBreakdown,omitempty"`
}

// Bundle is the composite value the assembler builds: everything the
// Prompt Builder needs to render the initial prompt and context summary.
type Bundle struct {
	SystemProfile *domain.SystemProfile `json:"systemProfile"`
	BatteryFacts  BatteryFacts          `json:"batteryFacts"`

	InitialSummary AnalyticResult[analytics.EnergyBalance] `json:"initialSummary"`
	Analytics      AnalyticsBundle                         `json:"analytics"`
	UsagePatterns  UsagePatternsBundle                      `json:"usagePatterns"`
	EnergyBudgets  EnergyBudgetsBundle                      `json:"energyBudgets"`
	Predictions    PredictionsBundle                        `json:"predictions"`

	Weather       *domain.WeatherObservation           `json:"weather,omitempty"`
	NightDischarge AnalyticResult[analytics.NightDischarge] `json:"nightDischarge"`
	SolarVariance *analytics.SolarVariance             `json:"solarVariance,omitempty"`

	DailyRollup90d  []DailyRollup     `json:"dailyRollup90d,omitempty"`
	RecentSnapshots []domain.Snapshot `json:"recentSnapshots,omitempty"`

	Meta Meta `json:"meta"`
}
