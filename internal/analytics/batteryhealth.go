package analytics

import (
	"wattwise/internal/domain"
)

const batteryHealthMinRecords = 10 // capacity-retention sample floor

const (
	imbalanceExcellentMV = 30.0
	imbalanceGoodMV      = 50.0
	imbalanceFairMV      = 100.0

	tempOptimalLowC  = 15.0
	tempOptimalHighC = 25.0
	tempCriticalLowC = 0.0
	tempCriticalHighC = 45.0

	capacityRetentionMinSOC = 80.0

	healthPenaltyImbalanceFair     = 10
	healthPenaltyImbalancePoor     = 25
	healthPenaltyTempSuboptimal    = 10
	healthPenaltyTempCritical      = 25
	healthPenaltyCycleLifeElevated = 15
	healthPenaltyCycleLifeCritical = 30
)

// ImbalanceStats is the cell-voltage-spread summary in millivolts.
type ImbalanceStats struct {
	AvgMV  float64 `json:"avgMV"`
	MaxMV  float64 `json:"maxMV"`
	Status string  `json:"status"` // excellent|good|fair|poor
}

// TemperatureStats is the pack-temperature summary in degrees Celsius.
type TemperatureStats struct {
	AvgC   float64 `json:"avgC"`
	MaxC   float64 `json:"maxC"`
	MinC   float64 `json:"minC"`
	Status string  `json:"status"` // optimal|suboptimal|critical
}

// CapacityRetention reports the fraction of rated capacity still observed
// at high state of charge.
type CapacityRetention struct {
	RetentionPct float64 `json:"retentionPct"`
	SampleCount  int     `json:"sampleCount"`
}

// CycleLifeStatus compares observed cycle count against the
// chemistry-dependent expected life.
type CycleLifeStatus struct {
	CycleCount     int     `json:"cycleCount"`
	ExpectedCycles int     `json:"expectedCycles"`
	UsedPct        float64 `json:"usedPct"`
	Status         string  `json:"status"` // healthy|elevated|critical
}

// BatteryHealth is the §4.B.4 composite result.
type BatteryHealth struct {
	Imbalance         ImbalanceStats     `json:"imbalance"`
	Temperature       TemperatureStats   `json:"temperature"`
	CapacityRetention *CapacityRetention `json:"capacityRetention,omitempty"`
	CycleLife         *CycleLifeStatus   `json:"cycleLife,omitempty"`
	Score             int                `json:"score"` // 0-100
	Recommendation    string             `json:"recommendation"`
}

// ComputeBatteryHealth aggregates cell-imbalance, temperature, capacity
// retention, and cycle-life into a single composite score with an
// actionable recommendation. Requires at least 10 records.
func ComputeBatteryHealth(records []domain.HistoricalRecord, profile *domain.SystemProfile, current *domain.Snapshot) (*BatteryHealth, *InsufficientData) {
	if len(records) < batteryHealthMinRecords {
		return nil, insufficient(batteryHealthMinRecords, len(records))
	}

	health := &BatteryHealth{Score: 100}

	health.Imbalance = computeImbalanceStats(records)
	switch health.Imbalance.Status {
	case "fair":
		health.Score -= healthPenaltyImbalanceFair
	case "poor":
		health.Score -= healthPenaltyImbalancePoor
	}

	health.Temperature = computeTemperatureStats(records)
	switch health.Temperature.Status {
	case "suboptimal":
		health.Score -= healthPenaltyTempSuboptimal
	case "critical":
		health.Score -= healthPenaltyTempCritical
	}

	if retention := computeCapacityRetention(records); retention != nil {
		health.CapacityRetention = retention
	}

	var chemistry domain.OptString
	if profile != nil {
		chemistry = profile.Chemistry
	}
	if current != nil {
		if cycles, ok := current.CycleCount.Get(); ok {
			if !chemistry.IsKnown() {
				chemistry = current.Chemistry
			}
			expected := domain.ExpectedCycleLife(chemistry)
			usedPct := float64(cycles) / float64(expected) * 100.0
			status := "healthy"
			switch {
			case usedPct >= 100:
				status = "critical"
				health.Score -= healthPenaltyCycleLifeCritical
			case usedPct >= 80:
				status = "elevated"
				health.Score -= healthPenaltyCycleLifeElevated
			}
			health.CycleLife = &CycleLifeStatus{
				CycleCount:     cycles,
				ExpectedCycles: expected,
				UsedPct:        usedPct,
				Status:         status,
			}
		}
	}

	if health.Score < 0 {
		health.Score = 0
	}
	if health.Score > 100 {
		health.Score = 100
	}

	health.Recommendation = buildHealthRecommendation(health)

	return health, nil
}

func computeImbalanceStats(records []domain.HistoricalRecord) ImbalanceStats {
	var sum, max float64
	var n int
	for _, r := range records {
		cells := r.Analysis.CellVoltages
		if len(cells) < 2 {
			continue
		}
		lo, hi := cells[0], cells[0]
		for _, v := range cells[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		spreadMV := (hi - lo) * 1000.0
		sum += spreadMV
		if spreadMV > max {
			max = spreadMV
		}
		n++
	}
	stats := ImbalanceStats{Status: "excellent"}
	if n == 0 {
		return stats
	}
	stats.AvgMV = sum / float64(n)
	stats.MaxMV = max
	switch {
	case stats.AvgMV <= imbalanceExcellentMV:
		stats.Status = "excellent"
	case stats.AvgMV <= imbalanceGoodMV:
		stats.Status = "good"
	case stats.AvgMV <= imbalanceFairMV:
		stats.Status = "fair"
	default:
		stats.Status = "poor"
	}
	return stats
}

func computeTemperatureStats(records []domain.HistoricalRecord) TemperatureStats {
	var temps []float64
	for _, r := range records {
		if t, ok := r.Analysis.Temperature.Get(); ok {
			temps = append(temps, t)
		}
	}
	stats := TemperatureStats{Status: "optimal"}
	if len(temps) == 0 {
		return stats
	}
	stats.AvgC = mean(temps)
	stats.MinC, stats.MaxC = temps[0], temps[0]
	critical := false
	for _, t := range temps {
		if t < stats.MinC {
			stats.MinC = t
		}
		if t > stats.MaxC {
			stats.MaxC = t
		}
		if t < tempCriticalLowC || t > tempCriticalHighC {
			critical = true
		}
	}
	switch {
	case critical:
		stats.Status = "critical"
	case stats.AvgC < tempOptimalLowC || stats.AvgC > tempOptimalHighC:
		stats.Status = "suboptimal"
	default:
		stats.Status = "optimal"
	}
	return stats
}

func computeCapacityRetention(records []domain.HistoricalRecord) *CapacityRetention {
	var pct []float64
	for _, r := range records {
		soc, ok := r.Analysis.SOC.Get()
		if !ok || soc < capacityRetentionMinSOC {
			continue
		}
		remaining, ok1 := r.Analysis.RemainingCapacity.Get()
		full, ok2 := r.Analysis.FullCapacity.Get()
		if !ok1 || !ok2 || full <= 0 {
			continue
		}
		pct = append(pct, remaining/full*100.0)
	}
	if len(pct) < 10 {
		return nil
	}
	return &CapacityRetention{RetentionPct: mean(pct), SampleCount: len(pct)}
}

func buildHealthRecommendation(health *BatteryHealth) string {
	switch {
	case health.Score >= 90:
		return "Pack is in excellent condition; continue routine monitoring."
	case health.Score >= 70:
		return "Pack shows minor wear; review imbalance and temperature trends at the next maintenance window."
	case health.Score >= 50:
		return "Pack health is degraded; schedule a capacity test and inspect cell balancing soon."
	default:
		return "Pack health is poor; prioritize inspection and consider replacement planning."
	}
}
