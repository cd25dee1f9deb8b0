package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/domain"
)

func trendRecords(n int, socAt func(i int) float64) []domain.HistoricalRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.HistoricalRecord
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		records = append(records, domain.HistoricalRecord{
			SystemID:  "sys1",
			Timestamp: ts,
			Analysis: domain.Snapshot{
				SOC:       domain.Known(socAt(i)),
				Voltage:   domain.Known(13.0),
				Current:   domain.Known(-1.0),
				Timestamp: ts,
			},
		})
	}
	return records
}

func TestComputeTrends_InsufficientData(t *testing.T) {
	_, insufficient := ComputeTrends(trendRecords(10, func(i int) float64 { return 50 }))
	require.NotNil(t, insufficient)
}

func TestComputeTrends_StrictlyLinearInputHasHighRSquared(t *testing.T) {
	records := trendRecords(60, func(i int) float64 { return 90.0 - float64(i)*0.1 })
	trends, insufficient := ComputeTrends(records)
	require.Nil(t, insufficient)
	require.NotNil(t, trends.SOC)
	require.GreaterOrEqual(t, trends.SOC.RSquared, 0.999)
	require.Equal(t, "high", trends.SOC.Confidence)
	require.Equal(t, "falling", trends.SOC.Trend)
}

func TestComputeTrends_RSquaredBoundedToUnitInterval(t *testing.T) {
	records := trendRecords(60, func(i int) float64 {
		if i%2 == 0 {
			return 40
		}
		return 90
	})
	trends, insufficient := ComputeTrends(records)
	require.Nil(t, insufficient)
	require.GreaterOrEqual(t, trends.SOC.RSquared, 0.0)
	require.LessOrEqual(t, trends.SOC.RSquared, 1.0)
}

func TestOLSLinearRegression_TwoPoints(t *testing.T) {
	slope, intercept, r2 := olsLinearRegression([]float64{0, 1}, []float64{1, 3})
	require.InDelta(t, 2.0, slope, 1e-9)
	require.InDelta(t, 1.0, intercept, 1e-9)
	require.GreaterOrEqual(t, r2, 0.0)
	require.LessOrEqual(t, r2, 1.0)
}
