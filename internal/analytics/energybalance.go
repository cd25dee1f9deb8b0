package analytics

import (
	"sort"

	"wattwise/internal/domain"
)

const energyBalanceMinRecords = 48

const dataQualitySuppressThreshold = 60.0 // percent

// DayEnergy is one day's generation/consumption totals in Wh.
type DayEnergy struct {
	Date              string  `json:"date"` // YYYY-MM-DD
	GenerationWh      float64 `json:"generationWh"`
	ConsumptionWh     float64 `json:"consumptionWh"`
	NetWh             float64 `json:"netWh"`
	DataQualityPercent float64 `json:"dataQualityPercent"`
}

// EnergyBalance is the §4.B.2 result: per-day energy accounting plus
// autonomy (runtime until empty — never service life).
type EnergyBalance struct {
	Days                []DayEnergy `json:"days"`
	AvgGenerationWh     float64     `json:"avgGenerationWh"`
	AvgConsumptionWh    float64     `json:"avgConsumptionWh"`
	SolarSufficiencyPct float64     `json:"solarSufficiencyPct"`
	AutonomyHours       domain.OptFloat `json:"autonomyHours"`
	AutonomyDays        domain.OptFloat `json:"autonomyDays"`
	DeficitSuppressed   bool        `json:"deficitSuppressed"`
	DeficitWh           domain.OptFloat `json:"deficitWh"`
}

const autonomyDepthOfDischarge = 0.8

// ComputeEnergyBalance integrates |power|*Δt between adjacent records into
// per-day generation/consumption, and reports battery autonomy from the
// current snapshot's capacity, voltage and SOC divided by the window's
// average load (average daily consumption / 24h).
func ComputeEnergyBalance(records []domain.HistoricalRecord, current *domain.Snapshot) (*EnergyBalance, *InsufficientData) {
	if len(records) < energyBalanceMinRecords {
		return nil, insufficient(energyBalanceMinRecords, len(records))
	}

	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	type dayAcc struct {
		gen, cons float64
		samples   int
	}
	byDay := map[string]*dayAcc{}
	var order []string

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		dt, ok := clampedDelta(prev.Timestamp, cur.Timestamp)
		if !ok {
			continue
		}
		power, ok := cur.Analysis.Power.Get()
		if !ok {
			continue
		}
		hours := dt.Hours()
		wh := power * hours
		if wh < 0 {
			wh = -wh
		}

		day := cur.Timestamp.Format("2006-01-02")
		acc, exists := byDay[day]
		if !exists {
			acc = &dayAcc{}
			byDay[day] = acc
			order = append(order, day)
		}
		acc.samples++
		if power > 0 {
			acc.gen += wh
		} else if power < 0 {
			acc.cons += wh
		}
	}

	sort.Strings(order)

	var days []DayEnergy
	var totalGen, totalCons float64
	for _, day := range order {
		acc := byDay[day]
		quality := float64(acc.samples) / 24.0 * 100.0
		if quality > 100 {
			quality = 100
		}
		days = append(days, DayEnergy{
			Date:               day,
			GenerationWh:       acc.gen,
			ConsumptionWh:      acc.cons,
			NetWh:              acc.gen - acc.cons,
			DataQualityPercent: quality,
		})
		totalGen += acc.gen
		totalCons += acc.cons
	}
	if len(days) == 0 {
		return nil, insufficient(energyBalanceMinRecords, len(records))
	}

	avgGen := totalGen / float64(len(days))
	avgCons := totalCons / float64(len(days))

	sufficiency := 100.0
	if avgCons > 0 {
		sufficiency = avgGen / avgCons * 100.0
		if sufficiency > 100 {
			sufficiency = 100
		}
	}

	balance := &EnergyBalance{
		Days:                days,
		AvgGenerationWh:     avgGen,
		AvgConsumptionWh:    avgCons,
		SolarSufficiencyPct: sufficiency,
	}

	avgQuality := 0.0
	for _, d := range days {
		avgQuality += d.DataQualityPercent
	}
	avgQuality /= float64(len(days))

	if avgQuality < dataQualitySuppressThreshold {
		balance.DeficitSuppressed = true
	} else {
		deficit := avgCons - avgGen
		tolerance := avgCons * 0.10
		if deficit > tolerance {
			balance.DeficitWh = domain.Known(deficit)
		}
	}

	if current != nil {
		if soc, ok := current.SOC.Get(); ok {
			if full, ok2 := current.FullCapacity.Get(); ok2 && avgCons > 0 {
				// Per the autonomy formula, the load is the windowed average
				// consumption, not a single instantaneous reading.
				avgLoadWatts := avgCons / 24.0
				if avgLoadWatts > 0 {
					// capacity (Ah) * voltage isn't known here; battery "capacity" in
					// the autonomy formula is the Ah rating times the reference
					// voltage supplied by the caller via the snapshot's own voltage.
					voltage, hasV := current.Voltage.Get()
					if hasV {
						capacityWh := full * voltage
						hours := capacityWh * (soc / 100.0) * autonomyDepthOfDischarge / avgLoadWatts
						balance.AutonomyHours = domain.Known(hours)
						balance.AutonomyDays = domain.Known(hours / 24.0)
					}
				}
			}
		}
	}

	return balance, nil
}
