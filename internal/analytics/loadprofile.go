package analytics

import "wattwise/internal/domain"

const loadProfileMinRecords = 24

// LoadProfile is the 24-hour and day-of-week discharge profile.
type LoadProfile struct {
	HourlyAverageWatts   [24]float64 `json:"hourlyAverageWatts"`
	WeekdayAverageWatts  [7]float64  `json:"weekdayAverageWatts"` // 0=Sunday
	NightAverageWatts    float64     `json:"nightAverageWatts"`
	DayAverageWatts      float64     `json:"dayAverageWatts"`
	BaseloadWatts        float64     `json:"baseloadWatts"`
	PeakHour             int         `json:"peakHour"`
	Interpretation       string      `json:"interpretation"` // night-heavy | day-heavy | balanced
}

const loadProfileRatioThreshold = 1.5

// ComputeLoadProfile aggregates watts per hour-of-day and per weekday over
// discharge samples (current < -0.5A). Requires at least 24 records.
func ComputeLoadProfile(records []domain.HistoricalRecord) (*LoadProfile, *InsufficientData) {
	if len(records) < loadProfileMinRecords {
		return nil, insufficient(loadProfileMinRecords, len(records))
	}

	var hourSum, hourCount [24]float64
	var weekdaySum, weekdayCount [7]float64

	for _, r := range records {
		current, ok := r.Analysis.Current.Get()
		if !ok || current >= dischargeCurrentThreshold {
			continue
		}
		power, ok := r.Analysis.Power.Get()
		if !ok {
			continue
		}
		watts := -power // discharge power reported as positive load
		if watts < 0 {
			watts = -watts
		}
		hour := r.Timestamp.Hour()
		weekday := int(r.Timestamp.Weekday())
		hourSum[hour] += watts
		hourCount[hour]++
		weekdaySum[weekday] += watts
		weekdayCount[weekday]++
	}

	profile := &LoadProfile{}
	peakHour, peakVal := 0, -1.0
	baseload := -1.0
	var nightSum, nightN, daySum, dayN float64

	for h := 0; h < 24; h++ {
		if hourCount[h] > 0 {
			avg := hourSum[h] / hourCount[h]
			profile.HourlyAverageWatts[h] = avg
			if avg > peakVal {
				peakVal, peakHour = avg, h
			}
			if baseload < 0 || avg < baseload {
				baseload = avg
			}
			if isNightHour(h) {
				nightSum += avg
				nightN++
			} else {
				daySum += avg
				dayN++
			}
		}
	}
	for d := 0; d < 7; d++ {
		if weekdayCount[d] > 0 {
			profile.WeekdayAverageWatts[d] = weekdaySum[d] / weekdayCount[d]
		}
	}

	if baseload < 0 {
		baseload = 0
	}
	profile.BaseloadWatts = baseload
	profile.PeakHour = peakHour
	if nightN > 0 {
		profile.NightAverageWatts = nightSum / nightN
	}
	if dayN > 0 {
		profile.DayAverageWatts = daySum / dayN
	}

	switch {
	case profile.NightAverageWatts > profile.DayAverageWatts*loadProfileRatioThreshold:
		profile.Interpretation = "night-heavy"
	case profile.DayAverageWatts > profile.NightAverageWatts*loadProfileRatioThreshold:
		profile.Interpretation = "day-heavy"
	default:
		profile.Interpretation = "balanced"
	}

	return profile, nil
}
