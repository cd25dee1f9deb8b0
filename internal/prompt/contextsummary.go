package prompt

import (
	"time"

	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
)

// SnapshotDelta is the change between two consecutive recent snapshots,
// newest first, matching store.Store.RecentSnapshots's ordering.
type SnapshotDelta struct {
	Timestamp  time.Time      `json:"timestamp"`
	SOCDelta   domain.OptFloat `json:"socDelta"`
	VoltageDelta domain.OptFloat `json:"voltageDelta"`
}

// ContextSummary mirrors the prompt's content in a machine-consumable
// shape for the caller's UI.
type ContextSummary struct {
	SOC      domain.OptFloat `json:"soc"`
	Voltage  domain.OptFloat `json:"voltage"`
	Power    domain.OptFloat `json:"power"`

	AutonomyHours domain.OptFloat `json:"autonomyHours"`
	AutonomyDays  domain.OptFloat `json:"autonomyDays"`

	WorstCaseDaysToDepletion domain.OptFloat `json:"worstCaseDaysToDepletion"`
	PredictedDaysToThreshold domain.OptFloat `json:"predictedDaysToThreshold"`

	AnomalyCount int `json:"anomalyCount"`

	Weather *domain.WeatherObservation `json:"weather,omitempty"`

	RecentSnapshotDeltas []SnapshotDelta `json:"recentSnapshotDeltas,omitempty"`

	Truncated bool `json:"truncated"`
}

// BuildContextSummary derives the UI-facing summary from the current
// snapshot and the assembled bundle.
func BuildContextSummary(snapshot domain.Snapshot, bundle *assembler.Bundle) ContextSummary {
	summary := ContextSummary{
		SOC:     snapshot.SOC,
		Voltage: snapshot.Voltage,
		Power:   snapshot.Power,
	}
	if bundle == nil {
		return summary
	}

	summary.Truncated = bundle.Meta.Truncated
	summary.Weather = bundle.Weather

	if eb := bundle.Analytics.EnergyBalance.Value; eb != nil {
		summary.AutonomyHours = eb.AutonomyHours
		summary.AutonomyDays = eb.AutonomyDays
	} else if eb := bundle.InitialSummary.Value; eb != nil {
		summary.AutonomyHours = eb.AutonomyHours
		summary.AutonomyDays = eb.AutonomyDays
	}

	summary.WorstCaseDaysToDepletion = worstCaseDaysToDepletion(bundle.BatteryFacts, bundle.EnergyBudgets.WorstCase)

	if pred := bundle.Predictions.Lifetime.Value; pred != nil {
		summary.PredictedDaysToThreshold = domain.Known(pred.EnsembleDaysToThreshold)
	}

	if an := bundle.UsagePatterns.Anomalies.Value; an != nil {
		summary.AnomalyCount = len(an.Events)
	}

	summary.RecentSnapshotDeltas = recentSnapshotDeltas(bundle.RecentSnapshots)

	return summary
}

// worstCaseDaysToDepletion estimates how many days the worst-case daily
// net energy deficit would take to empty the rated pack capacity. This is
// the builder's own derivation — the kernel has no "days" field on an
// energy-budget scenario — so it is only ever produced when the
// worst-case scenario is a net deficit and the pack's rated capacity is
// known.
func worstCaseDaysToDepletion(facts assembler.BatteryFacts, worst *assembler.EnergyBudgetScenario) domain.OptFloat {
	if worst == nil || worst.NetWh >= 0 {
		return domain.Unknown[float64]()
	}
	capacityWh := facts.RatedCapacityAh * facts.ReferenceVoltage
	if capacityWh <= 0 {
		return domain.Unknown[float64]()
	}
	return domain.Known(capacityWh / -worst.NetWh)
}

// recentSnapshotDeltas computes SOC/voltage deltas between each recent
// snapshot and the one immediately after it in the newest-first slice.
func recentSnapshotDeltas(snapshots []domain.Snapshot) []SnapshotDelta {
	if len(snapshots) < 2 {
		return nil
	}
	deltas := make([]SnapshotDelta, 0, len(snapshots)-1)
	for i := 0; i < len(snapshots)-1; i++ {
		cur, prev := snapshots[i], snapshots[i+1]
		delta := SnapshotDelta{Timestamp: cur.Timestamp}
		if a, ok1 := cur.SOC.Get(); ok1 {
			if b, ok2 := prev.SOC.Get(); ok2 {
				delta.SOCDelta = domain.Known(a - b)
			}
		}
		if a, ok1 := cur.Voltage.Get(); ok1 {
			if b, ok2 := prev.Voltage.Get(); ok2 {
				delta.VoltageDelta = domain.Known(a - b)
			}
		}
		deltas = append(deltas, delta)
	}
	return deltas
}
