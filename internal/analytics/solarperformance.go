package analytics

import (
	"sort"

	"wattwise/internal/domain"
)

const solarPerformanceMinRecords = 24

const (
	solarExpectedPeakSunHours = 5.0

	solarRatioExcellent = 80.0
	solarRatioGood      = 60.0
	solarRatioFair      = 40.0
)

// ChargingPeriod is one maximal run of charging samples (current > 0.5A)
// observed during solar hours.
type ChargingPeriod struct {
	Start      domain.OptTime `json:"start"`
	End        domain.OptTime `json:"end"`
	DurationHr float64        `json:"durationHours"`
	EnergyWh   float64        `json:"energyWh"`
}

// SolarPerformance is the §4.B.3 result.
type SolarPerformance struct {
	Periods            []ChargingPeriod `json:"periods"`
	ActualDailyWh      float64          `json:"actualDailyWh"`
	ExpectedDailyWh    float64          `json:"expectedDailyWh"`
	PerformanceRatio   float64          `json:"performanceRatioPct"`
	PerformanceBucket  string           `json:"performanceBucket"` // excellent|good|fair|poor
}

// ComputeSolarPerformance detects maximal charging runs during solar hours
// and compares observed energy against an expected-daily-solar model.
// Requires a configured solar charge-current rating and at least 24 records.
func ComputeSolarPerformance(records []domain.HistoricalRecord, profile *domain.SystemProfile) (*SolarPerformance, *InsufficientData) {
	if len(records) < solarPerformanceMinRecords {
		return nil, insufficient(solarPerformanceMinRecords, len(records))
	}
	if profile == nil {
		return nil, insufficient(solarPerformanceMinRecords, len(records))
	}
	maxSolarCurrent, ok := profile.MaxSolarChargeCurrent.Get()
	if !ok {
		return nil, insufficient(solarPerformanceMinRecords, len(records))
	}

	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var periods []ChargingPeriod
	var cur *ChargingPeriod
	var curEnergy float64
	var days = map[string]bool{}

	flush := func() {
		if cur != nil {
			cur.EnergyWh = curEnergy
			periods = append(periods, *cur)
			cur = nil
			curEnergy = 0
		}
	}

	for i, r := range sorted {
		current, ok := r.Analysis.Current.Get()
		isCharging := ok && current > chargeCurrentThreshold && isSolarHour(r.Timestamp.Hour())
		days[r.Timestamp.Format("2006-01-02")] = true

		if isCharging {
			power, hasPower := r.Analysis.Power.Get()
			if cur == nil {
				cur = &ChargingPeriod{Start: domain.Known(r.Timestamp), End: domain.Known(r.Timestamp)}
			} else {
				cur.End = domain.Known(r.Timestamp)
			}
			if hasPower && i > 0 {
				if dt, ok := clampedDelta(sorted[i-1].Timestamp, r.Timestamp); ok {
					w := power
					if w < 0 {
						w = -w
					}
					curEnergy += w * dt.Hours()
				}
			}
			if start, hasStart := cur.Start.Get(); hasStart {
				if end, hasEnd := cur.End.Get(); hasEnd {
					cur.DurationHr = end.Sub(start).Hours()
				}
			}
		} else {
			flush()
		}
	}
	flush()

	var totalEnergy float64
	for _, p := range periods {
		totalEnergy += p.EnergyWh
	}
	numDays := len(days)
	if numDays == 0 {
		numDays = 1
	}
	actualDaily := totalEnergy / float64(numDays)
	expectedDaily := maxSolarCurrent * profile.NominalVoltage * solarExpectedPeakSunHours

	ratio := 0.0
	if expectedDaily > 0 {
		ratio = actualDaily / expectedDaily * 100.0
	}

	bucket := "poor"
	switch {
	case ratio >= solarRatioExcellent:
		bucket = "excellent"
	case ratio >= solarRatioGood:
		bucket = "good"
	case ratio >= solarRatioFair:
		bucket = "fair"
	}

	return &SolarPerformance{
		Periods:           periods,
		ActualDailyWh:     actualDaily,
		ExpectedDailyWh:   expectedDaily,
		PerformanceRatio:  ratio,
		PerformanceBucket: bucket,
	}, nil
}
