package tools

import "wattwise/internal/domain"

// metricSelector extracts one named metric from a snapshot.
func metricSelector(metric string) (func(domain.Snapshot) (float64, bool), bool) {
	switch metric {
	case "voltage":
		return func(s domain.Snapshot) (float64, bool) { return s.Voltage.Get() }, true
	case "current":
		return func(s domain.Snapshot) (float64, bool) { return s.Current.Get() }, true
	case "power":
		return func(s domain.Snapshot) (float64, bool) { return s.Power.Get() }, true
	case "soc":
		return func(s domain.Snapshot) (float64, bool) { return s.SOC.Get() }, true
	case "capacity":
		return func(s domain.Snapshot) (float64, bool) { return s.RemainingCapacity.Get() }, true
	case "temperature":
		return func(s domain.Snapshot) (float64, bool) { return s.Temperature.Get() }, true
	case "cell_voltage_difference":
		return func(s domain.Snapshot) (float64, bool) { return s.CellVoltageDiff.Get() }, true
	default:
		return nil, false
	}
}

// validMetrics is the enum accepted by request_bms_data's metric parameter.
var validMetrics = []string{"all", "voltage", "current", "power", "soc", "capacity", "temperature", "cell_voltage_difference"}

func isValidMetric(m string) bool {
	for _, v := range validMetrics {
		if v == m {
			return true
		}
	}
	return false
}
