package assembler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wattwise/internal/analytics"
	"wattwise/internal/domain"
	"wattwise/internal/store"
	"wattwise/internal/weather"
)

const (
	// ModeSync is the lean, tool-driven preload: the reasoning loop is
	// expected to fetch anything missing itself.
	ModeSync = "sync"
	// ModeBackground is the fully preloaded context for non-interactive
	// runs with a generous time budget.
	ModeBackground = "background"
)

const (
	initialSummaryWindowDays = 7
	recentSnapshotCountSync  = 24
	dailyRollupWindowDays    = 90
	fullLookbackWindowDays   = 60
	maxAnalyticsConcurrency  = 4
)

// Options configures one Assemble call.
type Options struct {
	Mode  string        // ModeSync | ModeBackground
	MaxMs time.Duration // elapsed-time budget; zero means the mode's own default
}

// Assembler fans out to the store and the analytics kernel to build a
// Bundle, skipping remaining work once its time budget is spent.
type Assembler struct {
	Store   store.Store
	Weather weather.Client
}

// stepRunner tracks elapsed time against a budget and records each named
// step's outcome into the bundle's meta trace.
type stepRunner struct {
	start     time.Time
	budget    time.Duration
	steps     []Step
	truncated bool
}

func (r *stepRunner) budgetExceeded() bool {
	return r.budget > 0 && time.Since(r.start) > r.budget
}

// run executes fn if the budget allows, recording its outcome. Steps that
// arrive after the budget is exhausted are skipped and marked in meta.
func (r *stepRunner) run(label string, fn func() error) bool {
	if r.budgetExceeded() {
		r.truncated = true
		r.steps = append(r.steps, Step{Label: label, Success: false, Error: "skipped: time budget exceeded"})
		return false
	}
	stepStart := time.Now()
	err := fn()
	step := Step{Label: label, DurationMs: time.Since(stepStart).Milliseconds(), Success: err == nil}
	if err != nil {
		step.Error = err.Error()
	}
	r.steps = append(r.steps, step)
	return err == nil
}

// Assemble builds the context bundle for one reasoning-loop invocation.
func (a *Assembler) Assemble(ctx context.Context, systemID string, snapshot domain.Snapshot, logger *zerolog.Logger, opts Options) *Bundle {
	budget := opts.MaxMs
	if budget <= 0 {
		if opts.Mode == ModeBackground {
			budget = 45 * time.Second
		} else {
			budget = 5 * time.Second
		}
	}

	runner := &stepRunner{start: time.Now(), budget: budget}
	bundle := &Bundle{}

	if logger != nil {
		logger.Debug().Str("systemId", systemID).Str("mode", opts.Mode).Dur("budget", budget).Msg("assembling context bundle")
	}

	var profile *domain.SystemProfile
	runner.run("system_profile", func() error {
		p, err := a.Store.System(ctx, systemID)
		if err != nil {
			return err
		}
		profile = p
		bundle.SystemProfile = p
		return nil
	})

	runner.run("battery_facts", func() error {
		bundle.BatteryFacts = buildBatteryFacts(profile, snapshot)
		return nil
	})

	now := time.Now()
	var initialRecords []domain.HistoricalRecord
	runner.run("initial_summary", func() error {
		records, err := a.Store.Records(ctx, systemID, now.AddDate(0, 0, -initialSummaryWindowDays), now)
		if err != nil {
			return err
		}
		initialRecords = records
		balance, insufficientData := analytics.ComputeEnergyBalance(records, &snapshot)
		bundle.InitialSummary = resultOrShort(balance, insufficientData)
		return nil
	})

	runner.run("recent_snapshots", func() error {
		snapshots, err := a.Store.RecentSnapshots(ctx, systemID, recentSnapshotCountSync)
		if err != nil {
			return err
		}
		bundle.RecentSnapshots = snapshots
		return nil
	})

	runner.run("night_discharge", func() error {
		records := initialRecords
		if records == nil {
			fetched, err := a.Store.Records(ctx, systemID, now.AddDate(0, 0, -initialSummaryWindowDays), now)
			if err != nil {
				return err
			}
			records = fetched
		}
		discharge, insufficientData := analytics.ComputeNightDischarge(records, weatherObservationsFrom(records))
		bundle.NightDischarge = resultOrShort(discharge, insufficientData)
		if discharge != nil {
			bundle.SolarVariance = discharge.SolarVariance
		}
		return nil
	})

	runner.run("current_weather", func() error {
		if profile == nil || profile.Location == nil || a.Weather == nil {
			return nil
		}
		obs, err := a.Weather.CurrentWeather(ctx, profile.Location.Latitude, profile.Location.Longitude, nil)
		if err != nil {
			return err
		}
		bundle.Weather = obs
		return nil
	})

	if opts.Mode != ModeBackground {
		runner.steps = append(runner.steps, Step{Label: "analytics_full", Success: false, Error: "skipped: sync mode defers to tools"})
		runner.steps = append(runner.steps, Step{Label: "predictions", Success: false, Error: "skipped: sync mode defers to tools"})
		runner.steps = append(runner.steps, Step{Label: "energy_budgets", Success: false, Error: "skipped: sync mode defers to tools"})
		runner.steps = append(runner.steps, Step{Label: "daily_rollup_90d", Success: false, Error: "skipped: sync mode defers to tools"})
		return finalizeBundle(bundle, runner, logger)
	}

	var fullRecords []domain.HistoricalRecord
	runner.run("full_lookback_records", func() error {
		records, err := a.Store.Records(ctx, systemID, now.AddDate(0, 0, -fullLookbackWindowDays), now)
		if err != nil {
			return err
		}
		fullRecords = records
		return nil
	})

	runner.run("daily_rollup_90d", func() error {
		records, err := a.Store.Records(ctx, systemID, now.AddDate(0, 0, -dailyRollupWindowDays), now)
		if err != nil {
			return err
		}
		bundle.DailyRollup90d = buildDailyRollup(records)
		return nil
	})

	if !runner.budgetExceeded() {
		runAnalyticsFanOut(runner, bundle, fullRecords, profile, &snapshot)
	} else {
		runner.truncated = true
	}

	return finalizeBundle(bundle, runner, logger)
}

func finalizeBundle(bundle *Bundle, runner *stepRunner, logger *zerolog.Logger) *Bundle {
	bundle.Meta = Meta{
		Steps:      runner.steps,
		DurationMs: time.Since(runner.start).Milliseconds(),
		MaxMs:      runner.budget.Milliseconds(),
		Truncated:  runner.truncated,
	}
	if logger != nil {
		evt := logger.Debug()
		if runner.truncated {
			evt = logger.Warn()
		}
		evt.Int("steps", len(runner.steps)).Int64("durationMs", bundle.Meta.DurationMs).Bool("truncated", runner.truncated).Msg("context bundle assembled")
	}
	return bundle
}

func resultOrShort[T any](v *T, ins *analytics.InsufficientData) AnalyticResult[T] {
	if ins != nil {
		return short[T](ins)
	}
	return ok(v)
}

// runAnalyticsFanOut evaluates the remaining kernel functions concurrently
// (they are pure and side-effect-free) under a small concurrency cap,
// mirroring the tool executor's bounded-parallel dispatch discipline.
func runAnalyticsFanOut(runner *stepRunner, bundle *Bundle, records []domain.HistoricalRecord, profile *domain.SystemProfile, snapshot *domain.Snapshot) {
	sem := make(chan struct{}, maxAnalyticsConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	labeled := func(label string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			start := time.Now()
			fn()
			mu.Lock()
			runner.steps = append(runner.steps, Step{Label: label, DurationMs: time.Since(start).Milliseconds(), Success: true})
			mu.Unlock()
		}()
	}

	labeled("load_profile", func() {
		v, ins := analytics.ComputeLoadProfile(records)
		mu.Lock()
		bundle.Analytics.LoadProfile = resultOrShort(v, ins)
		bundle.UsagePatterns.Daily = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("energy_balance", func() {
		v, ins := analytics.ComputeEnergyBalance(records, snapshot)
		mu.Lock()
		bundle.Analytics.EnergyBalance = resultOrShort(v, ins)
		if v != nil {
			bundle.EnergyBudgets.Current = &EnergyBudgetScenario{
				GenerationWh:        v.AvgGenerationWh,
				ConsumptionWh:       v.AvgConsumptionWh,
				SolarSufficiencyPct: v.SolarSufficiencyPct,
				NetWh:               v.AvgGenerationWh - v.AvgConsumptionWh,
			}
			bundle.EnergyBudgets.WorstCase = worstCaseScenario(v.Days)
		}
		mu.Unlock()
	})
	labeled("solar_performance", func() {
		v, ins := analytics.ComputeSolarPerformance(records, profile)
		mu.Lock()
		bundle.Analytics.SolarPerformance = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("battery_health", func() {
		v, ins := analytics.ComputeBatteryHealth(records, profile, snapshot)
		mu.Lock()
		bundle.Analytics.BatteryHealth = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("trends", func() {
		v, ins := analytics.ComputeTrends(records)
		mu.Lock()
		bundle.Analytics.Trends = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("weather_impact", func() {
		v, ins := analytics.ComputeWeatherImpact(records)
		mu.Lock()
		bundle.Analytics.WeatherImpact = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("anomalies", func() {
		v, ins := analytics.ComputeAnomalies(records)
		mu.Lock()
		bundle.UsagePatterns.Anomalies = resultOrShort(v, ins)
		mu.Unlock()
	})
	labeled("predictive_models", func() {
		v, ins := analytics.ComputePredictiveModels(records, profile, snapshot)
		mu.Lock()
		bundle.Predictions.Capacity = resultOrShort(v, ins)
		bundle.Predictions.Lifetime = resultOrShort(v, ins)
		mu.Unlock()
	})

	wg.Wait()
}

func worstCaseScenario(days []analytics.DayEnergy) *EnergyBudgetScenario {
	if len(days) == 0 {
		return nil
	}
	gen := percentile(days, 10.0, func(d analytics.DayEnergy) float64 { return d.GenerationWh })
	cons := percentile(days, 90.0, func(d analytics.DayEnergy) float64 { return d.ConsumptionWh })
	scenario := &EnergyBudgetScenario{GenerationWh: gen, ConsumptionWh: cons, NetWh: gen - cons}
	if cons > 0 {
		scenario.SolarSufficiencyPct = gen / cons * 100.0
		if scenario.SolarSufficiencyPct > 100 {
			scenario.SolarSufficiencyPct = 100
		}
	}
	return scenario
}

func percentile(days []analytics.DayEnergy, p float64, selector func(analytics.DayEnergy) float64) float64 {
	vals := make([]float64, 0, len(days))
	for _, d := range days {
		vals = append(vals, selector(d))
	}
	sort.Float64s(vals)
	rank := int(p/100.0*float64(len(vals)-1) + 0.5)
	if rank < 0 {
		rank = 0
	}
	if rank >= len(vals) {
		rank = len(vals) - 1
	}
	return vals[rank]
}

func buildBatteryFacts(profile *domain.SystemProfile, snapshot domain.Snapshot) BatteryFacts {
	facts := BatteryFacts{
		CycleCount: snapshot.CycleCount,
		Chemistry:  snapshot.Chemistry,
	}
	if profile != nil {
		facts.RatedCapacityAh = profile.RatedCapacity
		facts.ReferenceVoltage = profile.NominalVoltage
		if profile.Chemistry.IsKnown() {
			facts.Chemistry = profile.Chemistry
		}
	}
	facts.BrandNewLikely = domain.BrandNewLikely(facts.CycleCount)
	return facts
}

func weatherObservationsFrom(records []domain.HistoricalRecord) []domain.WeatherObservation {
	var out []domain.WeatherObservation
	for _, r := range records {
		if r.Weather != nil {
			out = append(out, *r.Weather)
		}
	}
	return out
}

func buildDailyRollup(records []domain.HistoricalRecord) []DailyRollup {
	type hourAcc struct {
		voltageSum, socSum float64
		count              int
	}
	type dayAcc struct {
		socSum, socCount         float64
		generationWh, consumptionWh float64
		hours                    map[int]*hourAcc
	}
	byDay := map[string]*dayAcc{}
	var order []string

	for i, r := range records {
		day := r.Timestamp.Format("2006-01-02")
		acc, exists := byDay[day]
		if !exists {
			acc = &dayAcc{hours: map[int]*hourAcc{}}
			byDay[day] = acc
			order = append(order, day)
		}
		if soc, ok := r.Analysis.SOC.Get(); ok {
			acc.socSum += soc
			acc.socCount++
			hour := r.Timestamp.Hour()
			hAcc, ok := acc.hours[hour]
			if !ok {
				hAcc = &hourAcc{}
				acc.hours[hour] = hAcc
			}
			hAcc.socSum += soc
			hAcc.count++
			if v, ok := r.Analysis.Voltage.Get(); ok {
				hAcc.voltageSum += v
			}
		}
		if i == 0 {
			continue
		}
		dt, ok := clampedDelta(records[i-1].Timestamp, r.Timestamp)
		if !ok {
			continue
		}
		if power, ok := r.Analysis.Power.Get(); ok {
			wh := power * dt.Hours()
			if wh > 0 {
				acc.generationWh += wh
			} else {
				acc.consumptionWh += -wh
			}
		}
	}

	out := make([]DailyRollup, 0, len(order))
	for _, day := range order {
		acc := byDay[day]
		rollup := DailyRollup{Date: day, GenerationWh: acc.generationWh, ConsumptionWh: acc.consumptionWh}
		if acc.socCount > 0 {
			rollup.AvgSOC = acc.socSum / acc.socCount
		}
		hours := make([]int, 0, len(acc.hours))
		for h := range acc.hours {
			hours = append(hours, h)
		}
		sort.Ints(hours)
		for _, h := range hours {
			hAcc := acc.hours[h]
			rollup.HourlyBreakdown = append(rollup.HourlyBreakdown, HourBucket{
				Hour:       h,
				AvgVoltage: hAcc.voltageSum / float64(hAcc.count),
				AvgSOC:     hAcc.socSum / float64(hAcc.count),
				Count:      hAcc.count,
			})
		}
		out = append(out, rollup)
	}
	return out
}

// clampedDelta mirrors the kernel's own Δt clamp: deltas outside (0,2h]
// are non-integrable and dropped.
func clampedDelta(prev, next time.Time) (time.Duration, bool) {
	dt := next.Sub(prev)
	if dt <= 0 || dt > 2*time.Hour {
		return 0, false
	}
	return dt, true
}
