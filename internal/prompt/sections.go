package prompt

import (
	"fmt"
	"strings"

	"wattwise/internal/analytics"
	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
)

// renderContextSections renders one headed block per non-null analytic
// area in the bundle, with an explicit "insufficient data" note wherever
// a kernel function came back short instead of a value.
func renderContextSections(bundle *assembler.Bundle, snapshot domain.Snapshot) string {
	var b strings.Builder
	b.WriteString("CONTEXT:")
	b.WriteString(section("CURRENT SNAPSHOT", renderCurrentSnapshot(snapshot)))

	if bundle == nil {
		b.WriteString("\n\n(no further context was assembled for this run)")
		return b.String()
	}

	b.WriteString(section("SYSTEM PROFILE", renderSystemProfile(bundle)))
	b.WriteString(section("BATTERY FACTS", renderBatteryFacts(bundle.BatteryFacts)))
	if len(bundle.RecentSnapshots) > 0 {
		b.WriteString(section("RECENT SNAPSHOTS", renderRecentSnapshots(bundle.RecentSnapshots)))
	}
	b.WriteString(sectionResult("7-DAY ENERGY SUMMARY", bundle.InitialSummary, renderEnergyBalance))
	b.WriteString(sectionResult("LOAD PROFILE", bundle.Analytics.LoadProfile, renderLoadProfile))
	b.WriteString(sectionResult("ENERGY BALANCE", bundle.Analytics.EnergyBalance, renderEnergyBalance))
	b.WriteString(sectionResult("SOLAR PERFORMANCE", bundle.Analytics.SolarPerformance, renderSolarPerformance))
	b.WriteString(sectionResult("BATTERY HEALTH", bundle.Analytics.BatteryHealth, renderBatteryHealth))
	b.WriteString(sectionResult("TRENDS", bundle.Analytics.Trends, renderTrends))
	b.WriteString(sectionResult("WEATHER IMPACT", bundle.Analytics.WeatherImpact, renderWeatherImpact))
	b.WriteString(sectionResult("NIGHT DISCHARGE", bundle.NightDischarge, renderNightDischarge))
	b.WriteString(sectionResult("USAGE ANOMALIES", bundle.UsagePatterns.Anomalies, renderAnomalies))
	b.WriteString(sectionResult("BATTERY LIFETIME PREDICTION", bundle.Predictions.Lifetime, renderPredictions))
	b.WriteString(section("ENERGY BUDGETS", renderEnergyBudgets(bundle.EnergyBudgets)))
	b.WriteString(section("CURRENT WEATHER", renderWeather(bundle.Weather)))

	if bundle.Meta.Truncated {
		b.WriteString("\n\n[NOTE] Context assembly was truncated by its time budget; some sections above may be absent even though data may exist.")
	}

	return b.String()
}

func section(heading, body string) string {
	return fmt.Sprintf("\n\n## %s\n%s", heading, body)
}

// sectionResult renders a headed block for one AnalyticResult, falling
// back to an explicit insufficient-data note when the kernel could not
// compute it.
func sectionResult[T any](heading string, r assembler.AnalyticResult[T], render func(*T) string) string {
	if r.Insufficient != nil {
		return section(heading, fmt.Sprintf("Insufficient data: need at least %d records, have %d.", r.Insufficient.MinimumRequired, r.Insufficient.Actual))
	}
	if r.Value == nil {
		return section(heading, "Not computed for this run.")
	}
	return section(heading, render(r.Value))
}

func renderSystemProfile(bundle *assembler.Bundle) string {
	p := bundle.SystemProfile
	if p == nil {
		return "No registered system profile; treat nominal voltage/capacity as unknown."
	}
	chem, _ := p.Chemistry.Get()
	loc := "unknown"
	if p.Location != nil {
		loc = fmt.Sprintf("%.3f, %.3f", p.Location.Latitude, p.Location.Longitude)
	}
	return fmt.Sprintf("Name: %s | Chemistry: %s | Nominal voltage: %.1fV | Rated capacity: %.0fAh | Location: %s", p.Name, orUnknown(chem), p.NominalVoltage, p.RatedCapacity, loc)
}

func renderBatteryFacts(f assembler.BatteryFacts) string {
	cycles, cyclesKnown := f.CycleCount.Get()
	chem, chemKnown := f.Chemistry.Get()
	lines := []string{
		fmt.Sprintf("Rated capacity: %.0fAh at %.1fV reference", f.RatedCapacityAh, f.ReferenceVoltage),
	}
	if cyclesKnown {
		lines = append(lines, fmt.Sprintf("Cycle count: %d%s", cycles, ifThen(f.BrandNewLikely, " (likely new/near-new pack)", "")))
	} else {
		lines = append(lines, "Cycle count: unknown")
	}
	if chemKnown {
		lines = append(lines, "Chemistry: "+chem)
	}
	return strings.Join(lines, "\n")
}

// renderCurrentSnapshot surfaces the live BMS reading passed into this run
// directly, so the model has real numbers to reason over before it ever
// considers calling a tool.
func renderCurrentSnapshot(s domain.Snapshot) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Timestamp: %s", s.Timestamp.UTC().Format("2006-01-02T15:04:05Z")))

	if v, ok := s.Voltage.Get(); ok {
		lines = append(lines, fmt.Sprintf("Voltage: %.2fV", v))
	} else {
		lines = append(lines, "Voltage: unknown")
	}
	if c, ok := s.Current.Get(); ok {
		lines = append(lines, fmt.Sprintf("Current: %.2fA", c))
	} else {
		lines = append(lines, "Current: unknown")
	}
	if p, ok := s.Power.Get(); ok {
		lines = append(lines, fmt.Sprintf("Power: %.0fW", p))
	} else {
		lines = append(lines, "Power: unknown")
	}
	if soc, ok := s.SOC.Get(); ok {
		lines = append(lines, fmt.Sprintf("SOC: %.1f%%", soc))
	} else {
		lines = append(lines, "SOC: unknown")
	}
	if t, ok := s.Temperature.Get(); ok {
		lines = append(lines, fmt.Sprintf("Temperature: %.1f°C", t))
	} else {
		lines = append(lines, "Temperature: unknown")
	}
	if len(s.CellVoltages) > 0 {
		diff, ok := s.CellVoltageDiff.Get()
		diffStr := "unknown"
		if ok {
			diffStr = fmt.Sprintf("%.3fV", diff)
		}
		lines = append(lines, fmt.Sprintf("Cell voltages: %d cells, max-min diff %s", len(s.CellVoltages), diffStr))
	}
	if len(s.ActiveAlerts) > 0 {
		lines = append(lines, "Active alerts: "+strings.Join(s.ActiveAlerts, ", "))
	} else {
		lines = append(lines, "Active alerts: none")
	}
	return strings.Join(lines, "\n")
}

// renderRecentSnapshots lists the most recent readings newest-first, one
// line each, for the model to eyeball short-term movement without a tool
// call.
func renderRecentSnapshots(snapshots []domain.Snapshot) string {
	var lines []string
	for _, s := range snapshots {
		v, _ := s.Voltage.Get()
		soc, _ := s.SOC.Get()
		p, _ := s.Power.Get()
		lines = append(lines, fmt.Sprintf("%s | Voltage: %.2fV | SOC: %.1f%% | Power: %.0fW",
			s.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), v, soc, p))
	}
	return strings.Join(lines, "\n")
}

func renderEnergyBalance(v *analytics.EnergyBalance) string {
	autonomyH, autonomyKnown := v.AutonomyHours.Get()
	autonomyLine := "Battery autonomy: unknown"
	if autonomyKnown {
		autonomyLine = fmt.Sprintf("Battery autonomy: %.1f hours at current load", autonomyH)
	}
	return fmt.Sprintf("Avg generation: %.0fWh/day | Avg consumption: %.0fWh/day | Solar sufficiency: %.0f%% | %s | Days analyzed: %d",
		v.AvgGenerationWh, v.AvgConsumptionWh, v.SolarSufficiencyPct, autonomyLine, len(v.Days))
}

func renderLoadProfile(v *analytics.LoadProfile) string {
	return fmt.Sprintf("Interpretation: %s | Baseload: %.0fW | Night avg: %.0fW | Day avg: %.0fW | Peak hour: %02d:00",
		v.Interpretation, v.BaseloadWatts, v.NightAverageWatts, v.DayAverageWatts, v.PeakHour)
}

func renderSolarPerformance(v *analytics.SolarPerformance) string {
	return fmt.Sprintf("Actual: %.0fWh/day | Expected: %.0fWh/day | Performance ratio: %.0f%% (%s) | Charging periods observed: %d",
		v.ActualDailyWh, v.ExpectedDailyWh, v.PerformanceRatio, v.PerformanceBucket, len(v.Periods))
}

func renderBatteryHealth(v *analytics.BatteryHealth) string {
	return fmt.Sprintf("Health score: %d/100 (%s) | Cell imbalance: %s | Temperature: %s", v.Score, v.Recommendation, v.Imbalance.Status, v.Temperature.Status)
}

func renderTrends(v *analytics.Trends) string {
	var parts []string
	if v.SOC != nil {
		parts = append(parts, fmt.Sprintf("SOC %s (%.2f%%/day, %s confidence)", v.SOC.Trend, v.SOC.SlopePerDay, v.SOC.Confidence))
	}
	if v.Voltage != nil {
		parts = append(parts, fmt.Sprintf("Voltage %s (%s confidence)", v.Voltage.Trend, v.Voltage.Confidence))
	}
	if v.Current != nil {
		parts = append(parts, fmt.Sprintf("Current %s (%s confidence)", v.Current.Trend, v.Current.Confidence))
	}
	if len(parts) == 0 {
		return "No metric had enough known points for a trend."
	}
	return strings.Join(parts, " | ")
}

func renderWeatherImpact(v *analytics.WeatherImpact) string {
	return fmt.Sprintf("Clear-day avg charge current: %.1fA (%d days) | Overcast avg: %.1fA (%d days) | Cloud-induced reduction: %.0f%%",
		v.AvgChargeCurrentClearDays, v.ClearDayCount, v.AvgChargeCurrentOvercastDays, v.OvercastDayCount, v.CloudInducedReductionPct)
}

func renderNightDischarge(v *analytics.NightDischarge) string {
	base := fmt.Sprintf("Total night discharge: %.1fAh across %d run(s)", v.TotalNightAh, len(v.Runs))
	if v.SolarVariance == nil {
		return base
	}
	return base + "\n" + fmt.Sprintf("Solar variance: expected %.1fAh, actual %.1fAh (%.0f%%, %s) — %s",
		v.SolarVariance.ExpectedAh, v.SolarVariance.ActualAh, v.SolarVariance.VariancePct, toleranceWord(v.SolarVariance.WithinTolerance), v.SolarVariance.Recommendation)
}

func renderAnomalies(v *analytics.Anomalies) string {
	if len(v.Events) == 0 {
		return "No anomalies flagged in the analyzed window."
	}
	return fmt.Sprintf("%d anomal(y/ies) flagged (most recent first available via getSystemAnalytics/analyze_usage_patterns).", len(v.Events))
}

func renderPredictions(v *analytics.PredictiveModels) string {
	return fmt.Sprintf("Ensemble service-life estimate: %.0f days to 80%% capacity retention (never confuse this with battery autonomy).", v.EnsembleDaysToThreshold)
}

func renderEnergyBudgets(b assembler.EnergyBudgetsBundle) string {
	if b.Current == nil && b.WorstCase == nil {
		return "Not computed for this run."
	}
	var lines []string
	if b.Current != nil {
		lines = append(lines, fmt.Sprintf("Current: generation %.0fWh, consumption %.0fWh, net %.0fWh", b.Current.GenerationWh, b.Current.ConsumptionWh, b.Current.NetWh))
	}
	if b.WorstCase != nil {
		lines = append(lines, fmt.Sprintf("Worst case (10th pct generation / 90th pct consumption): generation %.0fWh, consumption %.0fWh, net %.0fWh", b.WorstCase.GenerationWh, b.WorstCase.ConsumptionWh, b.WorstCase.NetWh))
	}
	return strings.Join(lines, "\n")
}

func renderWeather(w *domain.WeatherObservation) string {
	if w == nil {
		return "Not available for this run."
	}
	clouds, _ := w.Clouds.Get()
	temp, _ := w.Temp.Get()
	cond, _ := w.Condition.Get()
	return fmt.Sprintf("Temp: %.1f°C | Clouds: %.0f%% | Condition: %s", temp, clouds, orUnknown(cond))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func ifThen(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func toleranceWord(within bool) string {
	if within {
		return "within tolerance"
	}
	return "outside tolerance"
}
