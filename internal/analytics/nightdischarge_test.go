package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/domain"
)

func TestComputeNightDischarge_TagsNightRunsBySampleMajority(t *testing.T) {
	base := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC) // 20:00, night
	var records []domain.HistoricalRecord
	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		records = append(records, domain.HistoricalRecord{
			SystemID:  "sys1",
			Timestamp: ts,
			Analysis: domain.Snapshot{
				Current:   domain.Known(-5.0),
				Power:     domain.Known(-60.0),
				Timestamp: ts,
			},
		})
	}

	result, insufficient := ComputeNightDischarge(records, nil)
	require.Nil(t, insufficient)
	require.Len(t, result.Runs, 1)
	require.True(t, result.Runs[0].IsNight)
	require.Greater(t, result.TotalNightAh, 0.0)
}

func TestComputeNightDischarge_SolarVarianceWithinToleranceFlag(t *testing.T) {
	base := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	var records []domain.HistoricalRecord
	for i := 0; i < 12; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		records = append(records, domain.HistoricalRecord{
			SystemID:  "sys1",
			Timestamp: ts,
			Analysis: domain.Snapshot{
				Current:   domain.Known(10.0),
				Timestamp: ts,
			},
		})
	}
	weather := []domain.WeatherObservation{
		{Timestamp: base, Clouds: domain.Known(10.0)},
	}

	result, insufficient := ComputeNightDischarge(records, weather)
	require.Nil(t, insufficient)
	require.NotNil(t, result.SolarVariance)
	require.InDelta(t, 0.0, result.SolarVariance.VariancePct, 1e-6)
	require.True(t, result.SolarVariance.WithinTolerance)
}

func TestComputeNightDischarge_DaytimeLoadAhIsExpectedMinusActual(t *testing.T) {
	base := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	var records []domain.HistoricalRecord
	for i := 0; i < 12; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		records = append(records, domain.HistoricalRecord{
			SystemID:  "sys1",
			Timestamp: ts,
			Analysis: domain.Snapshot{
				Current:   domain.Known(2.0), // much lower than modeled expectation
				Timestamp: ts,
			},
		})
	}
	weather := []domain.WeatherObservation{
		{Timestamp: base, Clouds: domain.Known(5.0)},
	}

	result, insufficient := ComputeNightDischarge(records, weather)
	require.Nil(t, insufficient)
	require.InDelta(t, result.SolarVariance.ExpectedAh-result.SolarVariance.ActualAh, result.SolarVariance.DaytimeLoadAh, 1e-9)
	require.False(t, result.SolarVariance.WithinTolerance)
}
