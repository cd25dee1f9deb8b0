// Package domain holds the telemetry data model shared by every component:
// the snapshot shape fed in by callers, the historical record shape read
// from the store, and the system/weather context that analytics and the
// prompt layer both consume.
package domain

import "time"

type OptFloat = Optional[float64]
type OptInt = Optional[int]
type OptString = Optional[string]
type OptTime = Optional[time.Time]

// Snapshot is the most recent instantaneous BMS reading. Every numeric
// field is independently nullable: a BMS may report a subset of metrics.
type Snapshot struct {
	Voltage                 OptFloat   `json:"voltage"`
	Current                 OptFloat   `json:"current"` // signed: positive = charging
	Power                   OptFloat   `json:"power"`
	SOC                     OptFloat   `json:"soc"`
	RemainingCapacity       OptFloat   `json:"remainingCapacity"`
	FullCapacity            OptFloat   `json:"fullCapacity"`
	CellVoltages            []float64  `json:"cellVoltages,omitempty"`
	CellVoltageDiff         OptFloat   `json:"cellVoltageDiff"`
	Temperature             OptFloat   `json:"temperature"`
	MOSTemperature          OptFloat   `json:"mosTemperature"`
	CycleCount              OptInt     `json:"cycleCount"`
	Chemistry               OptString  `json:"chemistry"`
	Timestamp                time.Time `json:"timestamp"`
	ActiveAlerts            []string   `json:"activeAlerts,omitempty"`
}

// HistoricalRecord is one persisted telemetry row. Records are returned by
// the store in ascending timestamp order; gaps over two hours between
// adjacent records are non-integrable by the analytics kernel.
type HistoricalRecord struct {
	SystemID  string             `json:"systemId"`
	Timestamp time.Time          `json:"timestamp"`
	Analysis  Snapshot           `json:"analysis"`
	Weather   *WeatherObservation `json:"weather,omitempty"`
	Alerts    []string           `json:"alerts,omitempty"`
}

// Location is a system's geographic position, used for weather and solar
// lookups.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SystemProfile describes the installation a stream of snapshots belongs to.
type SystemProfile struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Chemistry                OptString `json:"chemistry"`
	NominalVoltage           float64   `json:"nominalVoltage"`
	RatedCapacity            float64   `json:"ratedCapacity"`
	MaxSolarChargeCurrent    OptFloat  `json:"maxSolarChargeCurrent"`
	MaxGeneratorChargeCurrent OptFloat `json:"maxGeneratorChargeCurrent"`
	Location                 *Location `json:"location,omitempty"`
	AssociatedDevices         []string  `json:"associatedDevices,omitempty"`
}

// WeatherObservation is a single point-in-time weather reading relevant to
// solar-charging analyses.
type WeatherObservation struct {
	Timestamp time.Time `json:"timestamp"`
	Temp      OptFloat  `json:"temp"`
	Clouds    OptFloat  `json:"clouds"` // 0-100%
	UVI       OptFloat  `json:"uvi"`
	Condition OptString `json:"condition"`
}

// LiFePO4ExpectedCycles and OtherChemistryExpectedCycles are the hard-coded
// expected-life constants named as an explicit open-question policy, not a
// physical fact, in the health scorer.
const (
	LiFePO4ExpectedCycles       = 3000
	OtherChemistryExpectedCycles = 1000
)

// IsLiFePO4 reports whether a chemistry tag should use the LiFePO4 cycle
// constant. Unknown chemistry falls back to the conservative "other" figure.
func IsLiFePO4(chem OptString) bool {
	v, ok := chem.Get()
	if !ok {
		return false
	}
	switch v {
	case "LiFePO4", "lifepo4", "LFP", "lfp":
		return true
	default:
		return false
	}
}

// ExpectedCycleLife returns the chemistry-dependent expected cycle count.
func ExpectedCycleLife(chem OptString) int {
	if IsLiFePO4(chem) {
		return LiFePO4ExpectedCycles
	}
	return OtherChemistryExpectedCycles
}

// BrandNewThresholdCycles is the cycle count at or below which a pack is
// considered likely brand-new for prompt-framing purposes.
const BrandNewThresholdCycles = 50

// BrandNewLikely reports whether the pack's cycle count suggests a recent
// install.
func BrandNewLikely(cycleCount OptInt) bool {
	n, ok := cycleCount.Get()
	return ok && n <= BrandNewThresholdCycles
}
