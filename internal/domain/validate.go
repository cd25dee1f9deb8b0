package domain

import (
	"fmt"

	"wattwise/internal/engineerr"
)

const (
	socMin = 0.0
	socMax = 100.0

	cellVoltageMin = 2.0
	cellVoltageMax = 4.5

	temperatureMax = 100.0

	voltageSumWarnDeltaV     = 0.5
	voltageSumCriticalDeltaV = 1.0

	powerWarnRatio     = 0.10
	powerCriticalRatio = 0.50

	remainingOverFullTolerance = 1.05
)

// ValidateSnapshot checks the physical invariants in section 3 of the
// telemetry data model and returns one ValidationError per violation. A
// violated invariant is recorded, never raised: the reasoning loop keeps
// going with a snapshot it still considers useful.
func ValidateSnapshot(s Snapshot) []*engineerr.ValidationError {
	var out []*engineerr.ValidationError

	if soc, ok := s.SOC.Get(); ok && (soc < socMin || soc > socMax) {
		out = append(out, &engineerr.ValidationError{
			Field: "soc", Critical: true,
			Message: "state of charge outside [0,100]",
		})
	}

	for i, v := range s.CellVoltages {
		if v < cellVoltageMin || v > cellVoltageMax {
			out = append(out, &engineerr.ValidationError{
				Field: "cellVoltages", Critical: true,
				Message: fmt.Sprintf("cell[%d]=%.3fV outside [2.0,4.5]V", i, v),
			})
		}
	}

	if t, ok := s.Temperature.Get(); ok && (t <= 0 || t > temperatureMax) {
		out = append(out, &engineerr.ValidationError{
			Field: "temperature", Critical: true,
			Message: "temperature outside (0,100] C",
		})
	}

	if overall, ok := s.Voltage.Get(); ok && len(s.CellVoltages) > 0 {
		sum := 0.0
		for _, v := range s.CellVoltages {
			sum += v
		}
		delta := sum - overall
		if delta < 0 {
			delta = -delta
		}
		switch {
		case delta > voltageSumCriticalDeltaV:
			out = append(out, &engineerr.ValidationError{
				Field: "voltage", Critical: true,
				Message: "sum of cell voltages deviates from overall voltage by more than 1.0V",
			})
		case delta > voltageSumWarnDeltaV:
			out = append(out, &engineerr.ValidationError{
				Field: "voltage", Critical: false,
				Message: "sum of cell voltages deviates from overall voltage by more than 0.5V",
			})
		}
	}

	if power, ok := s.Power.Get(); ok {
		if current, ok2 := s.Current.Get(); ok2 {
			if overall, ok3 := s.Voltage.Get(); ok3 {
				expected := current * overall
				if expected != 0 {
					ratio := (power - expected) / expected
					if ratio < 0 {
						ratio = -ratio
					}
					switch {
					case ratio > powerCriticalRatio:
						out = append(out, &engineerr.ValidationError{
							Field: "power", Critical: true,
							Message: "power deviates from current*voltage by more than 50%",
						})
					case ratio > powerWarnRatio:
						out = append(out, &engineerr.ValidationError{
							Field: "power", Critical: false,
							Message: "power deviates from current*voltage by more than 10%",
						})
					}
				}
			}
		}
	}

	if remaining, ok := s.RemainingCapacity.Get(); ok {
		if full, ok2 := s.FullCapacity.Get(); ok2 && full > 0 {
			if remaining > full*remainingOverFullTolerance {
				out = append(out, &engineerr.ValidationError{
					Field: "remainingCapacity", Critical: true,
					Message: "remaining capacity exceeds full capacity by more than 5%",
				})
			}
		}
	}

	return out
}
