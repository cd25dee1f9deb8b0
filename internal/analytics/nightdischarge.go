package analytics

import (
	"sort"

	"wattwise/internal/domain"
)

const (
	nightRunMinNightFraction = 0.5 // ≥50% of a run's samples must fall in [18:00,06:00)

	solarVarianceTolerancePct = 15.0

	modeledSunHoursClear   = 5.0 // hours, at 0% cloud cover
	modeledSunHoursOvercast = 2.0 // hours, at 100% cloud cover
)

// DischargeRun is one contiguous discharge segment.
type DischargeRun struct {
	Start     domain.OptTime `json:"start"`
	End       domain.OptTime `json:"end"`
	IsNight   bool           `json:"isNight"`
	TotalAh   float64        `json:"totalAh"`
	Hours     float64        `json:"hours"`
	AvgA      float64        `json:"avgA"`
	AvgWeightedW float64     `json:"avgWeightedW"`
}

// SolarVariance compares the modeled expected solar charge against the
// observed charging current for the window.
type SolarVariance struct {
	ExpectedAh      float64 `json:"expectedAh"`
	ActualAh        float64 `json:"actualAh"`
	DaytimeLoadAh   float64 `json:"daytimeLoadAh"` // expected - actual
	VariancePct     float64 `json:"variancePct"`
	WithinTolerance bool    `json:"withinTolerance"`
	Recommendation  string  `json:"recommendation"`
}

// NightDischarge is the §4.B.10 result.
type NightDischarge struct {
	Runs          []DischargeRun `json:"runs"`
	TotalNightAh  float64        `json:"totalNightAh"`
	SolarVariance *SolarVariance `json:"solarVariance,omitempty"`
}

// ComputeNightDischarge extracts contiguous discharge runs, tags each as
// night or day, and compares modeled-vs-observed solar charge current.
func ComputeNightDischarge(records []domain.HistoricalRecord, weather []domain.WeatherObservation) (*NightDischarge, *InsufficientData) {
	if len(records) == 0 {
		return nil, insufficient(1, 0)
	}

	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var runs []DischargeRun
	var runRecords []domain.HistoricalRecord

	flush := func() {
		if len(runRecords) == 0 {
			return
		}
		runs = append(runs, buildDischargeRun(runRecords))
		runRecords = nil
	}

	for _, r := range sorted {
		current, ok := r.Analysis.Current.Get()
		if ok && current <= dischargeCurrentThreshold {
			runRecords = append(runRecords, r)
		} else {
			flush()
		}
	}
	flush()

	result := &NightDischarge{Runs: runs}
	for _, run := range runs {
		if run.IsNight {
			result.TotalNightAh += run.TotalAh
		}
	}

	result.SolarVariance = computeSolarVariance(sorted, weather)

	return result, nil
}

func buildDischargeRun(records []domain.HistoricalRecord) DischargeRun {
	run := DischargeRun{
		Start: domain.Known(records[0].Timestamp),
		End:   domain.Known(records[len(records)-1].Timestamp),
	}
	nightCount := 0
	var totalAh, weightedW, ampHoursSum float64
	for i, r := range records {
		if isNightHour(r.Timestamp.Hour()) {
			nightCount++
		}
		current, ok := r.Analysis.Current.Get()
		if !ok {
			continue
		}
		amps := current
		if amps < 0 {
			amps = -amps
		}
		if i > 0 {
			if dt, ok := clampedDelta(records[i-1].Timestamp, r.Timestamp); ok {
				hrs := dt.Hours()
				totalAh += amps * hrs
				if power, ok := r.Analysis.Power.Get(); ok {
					w := power
					if w < 0 {
						w = -w
					}
					weightedW += w * hrs
				}
			}
		}
		ampHoursSum += amps
	}
	run.IsNight = float64(nightCount)/float64(len(records)) >= nightRunMinNightFraction
	run.TotalAh = totalAh
	if start, ok := run.Start.Get(); ok {
		if end, ok2 := run.End.Get(); ok2 {
			run.Hours = end.Sub(start).Hours()
		}
	}
	if len(records) > 0 {
		run.AvgA = ampHoursSum / float64(len(records))
	}
	if run.Hours > 0 {
		run.AvgWeightedW = weightedW / run.Hours
	}
	return run
}

func computeSolarVariance(sorted []domain.HistoricalRecord, weather []domain.WeatherObservation) *SolarVariance {
	var actualAh float64
	for i, r := range sorted {
		current, ok := r.Analysis.Current.Get()
		if !ok || current < chargeCurrentThreshold {
			continue
		}
		if i == 0 {
			continue
		}
		dt, ok := clampedDelta(sorted[i-1].Timestamp, r.Timestamp)
		if !ok {
			continue
		}
		actualAh += current * dt.Hours()
	}

	avgClouds := avgCloudCover(weather)
	sunHours := modeledSunHoursClear - (modeledSunHoursClear-modeledSunHoursOvercast)*(avgClouds/100.0)

	var avgMaxCurrent float64
	var n int
	for _, r := range sorted {
		if current, ok := r.Analysis.Current.Get(); ok && current >= chargeCurrentThreshold {
			avgMaxCurrent += current
			n++
		}
	}
	if n > 0 {
		avgMaxCurrent /= float64(n)
	}

	expectedAh := avgMaxCurrent * sunHours

	variancePct := 0.0
	if expectedAh > 0 {
		variancePct = (actualAh - expectedAh) / expectedAh * 100.0
	}
	withinTolerance := variancePct >= -solarVarianceTolerancePct && variancePct <= solarVarianceTolerancePct

	recommendation := "Solar charging is within expectation."
	if !withinTolerance {
		if variancePct < 0 {
			if avgClouds > weatherHighCloudThreshold {
				recommendation = "Lower charging is consistent with overcast weather; no panel issue indicated."
			} else {
				recommendation = "Charging is below expectation despite favorable weather; verify panel output and wiring."
			}
		} else {
			recommendation = "Charging exceeds the modeled expectation; review the solar-capacity configuration."
		}
	}

	return &SolarVariance{
		ExpectedAh:      expectedAh,
		ActualAh:        actualAh,
		DaytimeLoadAh:   expectedAh - actualAh,
		VariancePct:     variancePct,
		WithinTolerance: withinTolerance,
		Recommendation:  recommendation,
	}
}

func avgCloudCover(weather []domain.WeatherObservation) float64 {
	var vals []float64
	for _, w := range weather {
		if c, ok := w.Clouds.Get(); ok {
			vals = append(vals, c)
		}
	}
	return mean(vals)
}
