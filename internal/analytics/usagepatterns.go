package analytics

import (
	"sort"

	"wattwise/internal/domain"
)

const usagePatternsMinRecords = 72

// Cycle is one alternating charge-then-discharge (or discharge-then-charge)
// segment, identified purely by the sign of current.
type Cycle struct {
	Start       domain.OptTime `json:"start"`
	End         domain.OptTime `json:"end"`
	DurationHr  float64        `json:"durationHours"`
	DepthOfSOC  float64        `json:"depthOfSOC"` // SOC drop observed during the cycle's discharge leg
	IsDischarge bool           `json:"isDischarge"`
}

// UsagePatterns is the §4.B.5 result.
type UsagePatterns struct {
	Cycles           []Cycle `json:"cycles"`
	AvgDepthOfSOC    float64 `json:"avgDepthOfSOC"`
	AvgDurationHr    float64 `json:"avgDurationHours"`
	DeepestDischarge float64 `json:"deepestDischarge"`
	CyclesPerDay     float64 `json:"cyclesPerDay"`
	PatternTag       string  `json:"patternTag"` // light|moderate|heavy
}

const (
	usagePatternLightCyclesPerDay    = 1.0
	usagePatternModerateCyclesPerDay = 2.5
)

// ComputeUsagePatterns builds alternating charge/discharge cycles by sign
// of current (|I|>0.5A) and summarizes their depth, duration, and
// frequency. Requires at least 72 records.
func ComputeUsagePatterns(records []domain.HistoricalRecord) (*UsagePatterns, *InsufficientData) {
	if len(records) < usagePatternsMinRecords {
		return nil, insufficient(usagePatternsMinRecords, len(records))
	}

	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	type sample struct {
		r           domain.HistoricalRecord
		isDischarge bool
	}
	var samples []sample
	for _, r := range sorted {
		current, ok := r.Analysis.Current.Get()
		if !ok {
			continue
		}
		if current <= dischargeCurrentThreshold {
			samples = append(samples, sample{r, true})
		} else if current >= chargeCurrentThreshold {
			samples = append(samples, sample{r, false})
		}
	}
	if len(samples) == 0 {
		return &UsagePatterns{PatternTag: "light"}, nil
	}

	var cycles []Cycle
	segStart := 0
	for i := 1; i <= len(samples); i++ {
		if i == len(samples) || samples[i].isDischarge != samples[segStart].isDischarge {
			first, last := samples[segStart].r, samples[i-1].r
			c := Cycle{
				Start:       domain.Known(first.Timestamp),
				End:         domain.Known(last.Timestamp),
				DurationHr:  last.Timestamp.Sub(first.Timestamp).Hours(),
				IsDischarge: samples[segStart].isDischarge,
			}
			if startSOC, ok1 := first.Analysis.SOC.Get(); ok1 {
				if endSOC, ok2 := last.Analysis.SOC.Get(); ok2 {
					c.DepthOfSOC = startSOC - endSOC
					if !c.IsDischarge {
						c.DepthOfSOC = -c.DepthOfSOC
					}
				}
			}
			cycles = append(cycles, c)
			segStart = i
		}
	}

	var depths, durations []float64
	var deepest float64
	for _, c := range cycles {
		if !c.IsDischarge {
			continue
		}
		depths = append(depths, c.DepthOfSOC)
		durations = append(durations, c.DurationHr)
		if c.DepthOfSOC > deepest {
			deepest = c.DepthOfSOC
		}
	}

	patterns := &UsagePatterns{
		Cycles:           cycles,
		AvgDepthOfSOC:    mean(depths),
		AvgDurationHr:    mean(durations),
		DeepestDischarge: deepest,
	}

	firstTS, lastTS := sorted[0].Timestamp, sorted[len(sorted)-1].Timestamp
	totalDays := lastTS.Sub(firstTS).Hours() / 24.0
	dischargeCycles := 0
	for _, c := range cycles {
		if c.IsDischarge {
			dischargeCycles++
		}
	}
	if totalDays > 0 {
		patterns.CyclesPerDay = float64(dischargeCycles) / totalDays
	}

	switch {
	case patterns.CyclesPerDay >= usagePatternModerateCyclesPerDay:
		patterns.PatternTag = "heavy"
	case patterns.CyclesPerDay >= usagePatternLightCyclesPerDay:
		patterns.PatternTag = "moderate"
	default:
		patterns.PatternTag = "light"
	}

	return patterns, nil
}
