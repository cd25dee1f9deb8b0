package analytics

import (
	"sort"
	"time"

	"wattwise/internal/domain"
)

const anomaliesMinPoints = 50

const anomalySigmaThreshold = 3.0

const rapidSOCChangeThreshold = 20.0 // |ΔSOC| within the window below

// AnomalyEvent is one flagged point.
type AnomalyEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"` // voltage|current|temperature|soc
	Value     float64   `json:"value"`
	Severity  string    `json:"severity"` // critical|high|medium
	Reason    string    `json:"reason"`
}

// Anomalies is the §4.B.7 result.
type Anomalies struct {
	Events []AnomalyEvent `json:"events"`
}

// ComputeAnomalies flags points more than 3σ from the window mean for
// voltage, current, and temperature, plus rapid SOC swings of more than 20
// points within under an hour. Requires at least 50 points.
func ComputeAnomalies(records []domain.HistoricalRecord) (*Anomalies, *InsufficientData) {
	if len(records) < anomaliesMinPoints {
		return nil, insufficient(anomaliesMinPoints, len(records))
	}

	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	anomalies := &Anomalies{}

	anomalies.Events = append(anomalies.Events, sigmaFlag(sorted, "voltage", "high",
		func(s domain.Snapshot) (float64, bool) { return s.Voltage.Get() })...)
	anomalies.Events = append(anomalies.Events, sigmaFlag(sorted, "current", "medium",
		func(s domain.Snapshot) (float64, bool) { return s.Current.Get() })...)
	anomalies.Events = append(anomalies.Events, sigmaFlag(sorted, "temperature", "critical",
		func(s domain.Snapshot) (float64, bool) { return s.Temperature.Get() })...)

	for i := 1; i < len(sorted); i++ {
		prevSOC, ok1 := sorted[i-1].Analysis.SOC.Get()
		curSOC, ok2 := sorted[i].Analysis.SOC.Get()
		if !ok1 || !ok2 {
			continue
		}
		dt := sorted[i].Timestamp.Sub(sorted[i-1].Timestamp)
		if dt <= 0 || dt >= time.Hour {
			continue
		}
		delta := curSOC - prevSOC
		if delta < 0 {
			delta = -delta
		}
		if delta > rapidSOCChangeThreshold {
			anomalies.Events = append(anomalies.Events, AnomalyEvent{
				Timestamp: sorted[i].Timestamp,
				Metric:    "soc",
				Value:     curSOC,
				Severity:  "high",
				Reason:    "rapid SOC change",
			})
		}
	}

	sort.Slice(anomalies.Events, func(i, j int) bool {
		return anomalies.Events[i].Timestamp.Before(anomalies.Events[j].Timestamp)
	})

	return anomalies, nil
}

func sigmaFlag(records []domain.HistoricalRecord, metric, severity string, selector func(domain.Snapshot) (float64, bool)) []AnomalyEvent {
	vals, recs := recordsWithKnown(records, selector)
	if len(vals) < 2 {
		return nil
	}
	m := mean(vals)
	sd := stddev(vals)
	if sd == 0 {
		return nil
	}
	var events []AnomalyEvent
	for i, v := range vals {
		z := (v - m) / sd
		if z < 0 {
			z = -z
		}
		if z > anomalySigmaThreshold {
			events = append(events, AnomalyEvent{
				Timestamp: recs[i].Timestamp,
				Metric:    metric,
				Value:     v,
				Severity:  severity,
				Reason:    "value more than 3σ from window mean",
			})
		}
	}
	return events
}
