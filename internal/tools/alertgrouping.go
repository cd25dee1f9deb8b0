package tools

import (
	"sort"

	"wattwise/internal/domain"
)

// AlertEvent summarizes one run of consecutive snapshots carrying the same
// alert tag.
type AlertEvent struct {
	Tag               string  `json:"tag"`
	EventCount        int     `json:"eventCount"`
	TotalOccurrences  int     `json:"totalOccurrences"`
	AvgDurationHours  float64 `json:"avgDurationHours"`
	AvgSOCAtTrigger   float64 `json:"avgSOCAtTrigger"`
}

// GroupAlertEvents groups consecutive snapshots carrying the same alert tag
// into events. An event closes when the tag is absent from a snapshot, or
// when SOC crosses back over a recovery threshold while the tag is present.
// Grouping is deterministic and idempotent: regrouping the same sequence
// of records produces identical events.
func GroupAlertEvents(records []domain.HistoricalRecord, recoverySOCThreshold float64) []AlertEvent {
	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	type alertRun struct {
		tag          string
		start, end   domain.HistoricalRecord
		count        int
		socAtTrigger float64
	}
	openRuns := map[string]*alertRun{}
	closed := map[string][]alertRun{}
	seenTag := map[string]bool{}
	var tagOrder []string

	closeRun := func(tag string) {
		if r, ok := openRuns[tag]; ok {
			closed[tag] = append(closed[tag], *r)
			delete(openRuns, tag)
		}
	}

	prevSOCBelowThreshold := map[string]bool{}

	for _, r := range sorted {
		present := map[string]bool{}
		for _, tag := range r.Alerts {
			present[tag] = true
		}

		for tag := range openRuns {
			if !present[tag] {
				closeRun(tag)
				continue
			}
			if soc, ok := r.Analysis.SOC.Get(); ok {
				wasBelow := prevSOCBelowThreshold[tag]
				isBelow := soc < recoverySOCThreshold
				if wasBelow && !isBelow {
					closeRun(tag)
				}
				prevSOCBelowThreshold[tag] = isBelow
			}
		}

		// Walk the record's own alert slice (not the set) so tags first seen
		// together are ordered the same way on every run.
		handled := map[string]bool{}
		for _, tag := range r.Alerts {
			if handled[tag] {
				continue
			}
			handled[tag] = true
			existing, ok := openRuns[tag]
			if !ok {
				soc, _ := r.Analysis.SOC.Get()
				if !seenTag[tag] {
					seenTag[tag] = true
					tagOrder = append(tagOrder, tag)
				}
				openRuns[tag] = &alertRun{tag: tag, start: r, end: r, count: 1, socAtTrigger: soc}
				prevSOCBelowThreshold[tag] = soc < recoverySOCThreshold
				continue
			}
			existing.end = r
			existing.count++
		}
	}
	for tag := range openRuns {
		closeRun(tag)
	}

	var events []AlertEvent
	for _, tag := range tagOrder {
		runs := closed[tag]
		var totalOcc int
		var totalDurationHr float64
		var totalSOC float64
		for _, rn := range runs {
			totalOcc += rn.count
			totalDurationHr += rn.end.Timestamp.Sub(rn.start.Timestamp).Hours()
			totalSOC += rn.socAtTrigger
		}
		n := len(runs)
		if n == 0 {
			continue
		}
		events = append(events, AlertEvent{
			Tag:              tag,
			EventCount:       n,
			TotalOccurrences: totalOcc,
			AvgDurationHours: totalDurationHr / float64(n),
			AvgSOCAtTrigger:  totalSOC / float64(n),
		})
	}

	return events
}
