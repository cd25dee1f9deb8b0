package analytics

import (
	"math"

	"wattwise/internal/domain"
)

const predictiveModelsMinSamples = 10

const (
	predictiveWeightExponential = 0.40
	predictiveWeightLinear      = 0.35
	predictiveWeightCycleBased  = 0.25

	weibullShape = 2.5
	weibullScaleFactor = 1.2 // scale = 1.2 * days-to-threshold

	capacityThresholdPct = 80.0 // "end of useful life" retention threshold
)

// DecayFit is one capacity-over-time model fit.
type DecayFit struct {
	Method       string  `json:"method"` // exponential|linear|cycle_based
	DaysToThreshold float64 `json:"daysToThreshold"`
}

// FailureProbability is a Weibull-style point on the failure curve.
type FailureProbability struct {
	Days        int     `json:"days"`
	Probability float64 `json:"probability"`
}

// PredictiveModels is the §4.B.9 result. Terminology: this is service
// life — time until the pack should be replaced — never runtime/autonomy.
type PredictiveModels struct {
	Exponential       DecayFit              `json:"exponential"`
	Linear            DecayFit              `json:"linear"`
	CycleBased        DecayFit              `json:"cycleBased"`
	EnsembleDaysToThreshold float64          `json:"ensembleDaysToThreshold"`
	FailureCurve      []FailureProbability  `json:"failureCurve"`
}

// ComputePredictiveModels fits capacity decay using exponential, linear,
// and cycle-based models over high-SOC capacity samples, combines them
// into a weighted ensemble, and derives a Weibull failure-probability
// curve for 30/90/365 days. Requires at least 10 high-SOC samples.
func ComputePredictiveModels(records []domain.HistoricalRecord, profile *domain.SystemProfile, current *domain.Snapshot) (*PredictiveModels, *InsufficientData) {
	type sample struct {
		days     float64
		capacity float64
	}
	var samples []sample
	var base int64
	first := true
	for _, r := range records {
		soc, ok1 := r.Analysis.SOC.Get()
		remaining, ok2 := r.Analysis.RemainingCapacity.Get()
		if !ok1 || !ok2 || soc < capacityRetentionMinSOC {
			continue
		}
		if first {
			base = r.Timestamp.Unix()
			first = false
		}
		samples = append(samples, sample{
			days:     float64(r.Timestamp.Unix()-base) / 86400.0,
			capacity: remaining,
		})
	}
	if len(samples) < predictiveModelsMinSamples {
		return nil, insufficient(predictiveModelsMinSamples, len(samples))
	}

	var xs, ys, lnys []float64
	for _, s := range samples {
		xs = append(xs, s.days)
		ys = append(ys, s.capacity)
		if s.capacity > 0 {
			lnys = append(lnys, math.Log(s.capacity))
		} else {
			lnys = append(lnys, 0)
		}
	}
	c0 := ys[0]
	threshold := c0 * capacityThresholdPct / 100.0

	// Exponential: C(t) = C0 * exp(-k*t); OLS on ln(C) = ln(C0) - k*t.
	slopeLn, lnIntercept, _ := olsLinearRegression(xs, lnys)
	k := -slopeLn
	expDaysToThreshold := math.Inf(1)
	if k > 0 {
		expDaysToThreshold = math.Log(threshold/math.Exp(lnIntercept)) / -k
	}

	// Linear: C(t) = a + b*t.
	slope, intercept, _ := olsLinearRegression(xs, ys)
	linDaysToThreshold := math.Inf(1)
	if slope < 0 {
		linDaysToThreshold = (threshold - intercept) / slope
	}

	// Cycle-based: remaining cycles to expected life, converted to days
	// using the observed cycling rate over the sample window.
	cycleDaysToThreshold := math.Inf(1)
	if current != nil {
		if cycles, ok := current.CycleCount.Get(); ok {
			expected := domain.ExpectedCycleLife(current.Chemistry)
			if profile != nil && profile.Chemistry.IsKnown() {
				expected = domain.ExpectedCycleLife(profile.Chemistry)
			}
			remaining := float64(expected - cycles)
			windowDays := xs[len(xs)-1] - xs[0]
			if remaining > 0 && windowDays > 0 && len(samples) > 1 {
				cyclesObservedPerDay := float64(len(samples)) / windowDays / 24.0 // rough: 24 high-SOC samples ~ one cycle peak
				if cyclesObservedPerDay > 0 {
					cycleDaysToThreshold = remaining / cyclesObservedPerDay
				}
			}
		}
	}

	ensemble := weightedEnsemble(expDaysToThreshold, linDaysToThreshold, cycleDaysToThreshold)

	models := &PredictiveModels{
		Exponential: DecayFit{Method: "exponential", DaysToThreshold: expDaysToThreshold},
		Linear:      DecayFit{Method: "linear", DaysToThreshold: linDaysToThreshold},
		CycleBased:  DecayFit{Method: "cycle_based", DaysToThreshold: cycleDaysToThreshold},
		EnsembleDaysToThreshold: ensemble,
	}

	for _, horizon := range []int{30, 90, 365} {
		models.FailureCurve = append(models.FailureCurve, FailureProbability{
			Days:        horizon,
			Probability: weibullCDF(float64(horizon), weibullShape, weibullScaleFactor*ensemble),
		})
	}

	return models, nil
}

func weightedEnsemble(exp, lin, cycle float64) float64 {
	type term struct {
		value, weight float64
	}
	terms := []term{
		{exp, predictiveWeightExponential},
		{lin, predictiveWeightLinear},
		{cycle, predictiveWeightCycleBased},
	}
	var weightedSum, totalWeight float64
	for _, t := range terms {
		if math.IsInf(t.value, 0) || math.IsNaN(t.value) {
			continue
		}
		weightedSum += t.value * t.weight
		totalWeight += t.weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// weibullCDF returns the Weibull cumulative failure probability at t given
// shape k and scale lambda.
func weibullCDF(t, shape, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return 1 - math.Exp(-math.Pow(t/scale, shape))
}
