package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
	"wattwise/internal/engineerr"
	"wattwise/internal/llm"
	"wattwise/internal/runner"
	"wattwise/internal/store"
	"wattwise/internal/tools"
	"wattwise/internal/weather"
)

// E1: no history, live snapshot only, sync mode — single iteration to a
// final answer that reports autonomy from the snapshot alone, with a
// confidence penalty for never calling a tool.
func TestE2E_E1_NoHistoryLiveSnapshotOnly(t *testing.T) {
	st := store.NewMemoryStore()
	var capturedPrompt string
	provider := &recordingProvider{
		reply:    `{"final_answer": "## KEY FINDINGS\nAutonomy is roughly 1.67h at the current load.\n\n## RECOMMENDATIONS\n🟡 (current snapshot) Monitor load; no historical data is available yet."}`,
		captured: &capturedPrompt,
	}
	registry := tools.NewCatalog(st, noWeather{})

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	snapshot := domain.Snapshot{
		Voltage:      domain.Known(52.1),
		Current:      domain.Known(-12.0),
		SOC:          domain.Known(48.0),
		FullCapacity: domain.Known(660.0),
		Timestamp:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e1",
		Snapshot: snapshot,
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Iterations)
	require.False(t, result.UsedFunctionCalling)
	require.LessOrEqual(t, result.Insights.Confidence, 85)
	require.Contains(t, result.Insights.FormattedText, "## KEY FINDINGS")
	require.Contains(t, result.Insights.FormattedText, "## RECOMMENDATIONS")
	require.Contains(t, capturedPrompt, "CURRENT SNAPSHOT")
	require.Contains(t, capturedPrompt, "Voltage: 52.10V")
	require.Contains(t, capturedPrompt, "Current: -12.00A")
	require.Contains(t, capturedPrompt, "SOC: 48.0%")
}

// E2: 30 days of hourly records with a sustained generation/consumption
// gap beyond the ±10% tolerance surface a flagged deficit at full data
// quality, and the prompt carries the underlying averages so the model
// can ground a recommendation in the numbers rather than the weather.
func TestE2E_E2_SustainedDeficitFlaggedAtFullDataQuality(t *testing.T) {
	st := store.NewMemoryStore()
	// The sync-mode assembler's 7-day summary window is anchored to the
	// wall clock, so the fixture spans the 30 days up to now rather than
	// a fixed calendar date.
	base := time.Now().UTC().AddDate(0, 0, -30)
	var records []domain.HistoricalRecord
	for d := 0; d < 30; d++ {
		for h := 0; h < 24; h++ {
			ts := base.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			// 6 daylight hours generate 250W (1500Wh/day); the other 18
			// hours draw 133.33W (2400Wh/day), a ~900Wh/day deficit.
			power := -133.333333
			if h >= 9 && h < 15 {
				power = 250.0
			}
			records = append(records, domain.HistoricalRecord{
				SystemID:  "sys-e2",
				Timestamp: ts,
				Analysis: domain.Snapshot{
					Power:     domain.Known(power),
					SOC:       domain.Known(55.0),
					Voltage:   domain.Known(52.0),
					Timestamp: ts,
				},
			})
		}
	}
	st.SeedRecords("sys-e2", records)
	st.SeedSystem(domain.SystemProfile{
		ID:             "sys-e2",
		NominalVoltage: 51.2,
		RatedCapacity:  280.0,
		Location:       &domain.Location{Latitude: 40.0, Longitude: -105.0},
	})

	var capturedPrompt string
	provider := &recordingProvider{
		reply: `{"final_answer": "## KEY FINDINGS\nThe pack is running a sustained ~900Wh/day deficit; generation is well below consumption even with low cloud cover, so the array itself is worth checking before blaming weather.\n\n## RECOMMENDATIONS\n🟡 Verify panel output and wiring rather than attributing the shortfall to weather."}`,
		captured: &capturedPrompt,
	}
	registry := tools.NewCatalog(st, &lowCloudWeather{})

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: &lowCloudWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e2",
		Snapshot: domain.Snapshot{SOC: domain.Known(55.0), FullCapacity: domain.Known(280.0), Timestamp: base.AddDate(0, 0, 29).Add(23 * time.Hour)},
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Contains(t, capturedPrompt, "Avg generation: 1500Wh/day")
	require.Contains(t, capturedPrompt, "Avg consumption: 2400Wh/day")
	require.Contains(t, capturedPrompt, "Solar sufficiency: 62%")
	require.Contains(t, result.Insights.FormattedText, "blaming weather")
}

// lowCloudWeather reports a clear-sky observation (clouds well under 30%)
// so the prompt's weather context cannot itself explain a shortfall.
type lowCloudWeather struct{}

func (lowCloudWeather) CurrentWeather(ctx context.Context, lat, lon float64, timestamp *time.Time) (*domain.WeatherObservation, error) {
	return &domain.WeatherObservation{Clouds: domain.Known(15.0), Temp: domain.Known(18.0), Condition: domain.Known("clear")}, nil
}

func (lowCloudWeather) SolarEstimate(ctx context.Context, loc domain.Location, panelWatts float64, start, end time.Time) (*weather.SolarEstimate, error) {
	return nil, nil
}

// E3: a brand-new pack (cycleCount=12) surfaces brandNewLikely in the
// context summary and the prompt carries the recent-install note.
func TestE2E_E3_BrandNewPackNotedInPrompt(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedSystem(domain.SystemProfile{ID: "sys-e3", NominalVoltage: 51.2, RatedCapacity: 280})
	var capturedPrompt string
	provider := &recordingProvider{reply: `{"final_answer": "## KEY FINDINGS\nPack is new; no decline claims.\n\n## RECOMMENDATIONS\n🟢 Continue monitoring as it breaks in."}`, captured: &capturedPrompt}
	registry := tools.NewCatalog(st, noWeather{})

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	snapshot := domain.Snapshot{
		SOC:        domain.Known(80.0),
		CycleCount: domain.Known(12),
		Timestamp:  time.Now().UTC(),
	}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e3",
		Snapshot: snapshot,
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Contains(t, capturedPrompt, "new or near-new")
}

// E4: a total deadline of 3s against a provider that sleeps 5s yields a
// typed Deadline error after the first iteration, with OnError invoked
// exactly once and OnFinalAnswer never invoked.
func TestE2E_E4_DeadlineBreach(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{replies: []string{`{"final_answer": "too late"}`}, delays: []time.Duration{5 * time.Second}}
	registry := tools.NewCatalog(st, noWeather{})

	deps := Deps{
		Assembler: &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:       provider,
		Tools:     registry,
		Model:     "test-model",
		RunnerOptions: runner.Options{
			MaxIterations:    5,
			IterationTimeout: 10 * time.Second,
			TotalTimeout:     3 * time.Second,
		},
	}

	errCount := 0
	finalCount := 0
	hooks := runner.Hooks{
		OnError:       func(err error) { errCount++ },
		OnFinalAnswer: func(text string) { finalCount++ },
	}

	_, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e4",
		Snapshot: domain.Snapshot{SOC: domain.Known(50.0), Timestamp: time.Now().UTC()},
		Mode:     assembler.ModeSync,
		Hooks:    hooks,
	})
	require.Error(t, err)
	var deadline *engineerr.Deadline
	require.ErrorAs(t, err, &deadline)
	require.Equal(t, "total", deadline.Scope)
	require.Equal(t, 1, errCount)
	require.Equal(t, 0, finalCount)
}

// E5: a tool result with 850 points is compacted to at most 82 points and
// annotated, and the loop still reaches a final answer within the
// iteration limit.
func TestE2E_E5_LargeToolPayloadCompacted(t *testing.T) {
	st := store.NewMemoryStore()
	var capturedPrompt string
	provider := &sequencedProvider{
		replies: []string{
			`{"tool_call": "request_bms_data", "parameters": {"systemId": "sys-e5"}}`,
			`{"final_answer": "## KEY FINDINGS\nData reviewed.\n\n## RECOMMENDATIONS\n🟢 none"}`,
		},
		captured: &capturedPrompt,
	}

	oversized := make([]int, 850)
	for i := range oversized {
		oversized[i] = i
	}
	payload, _ := json.Marshal(map[string]any{"data": oversized})
	registry := &fixedResultRegistry{schemas: tools.NewCatalog(st, noWeather{}).Schemas(), result: payload}

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e5",
		Snapshot: domain.Snapshot{SOC: domain.Known(50.0), Timestamp: time.Now().UTC()},
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Iterations)
	require.Len(t, result.ToolCalls, 1)

	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(result.ToolCalls[0].Result, &obj))
	var data []json.RawMessage
	require.NoError(t, json.Unmarshal(obj["data"], &data))
	require.LessOrEqual(t, len(data), 82)
	require.Contains(t, string(obj["_compactionNote"]), "resampled")
	require.Contains(t, capturedPrompt, "_compactionNote")
}

// E6: a non-JSON first reply that reads like a data request is recovered
// into a restate-JSON turn rather than surfacing a ParseError, and the
// second iteration's proper tool_call proceeds normally.
func TestE2E_E6_NonJSONReplyRecovers(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{replies: []string{
		"Let me request more data on voltage for the past week.",
		`{"tool_call": "request_bms_data", "parameters": {"systemId": "sys-e6"}}`,
		`{"final_answer": "## KEY FINDINGS\nResolved.\n\n## RECOMMENDATIONS\n🟢 none"}`,
	}}
	registry := tools.NewCatalog(st, noWeather{})

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys-e6",
		Snapshot: domain.Snapshot{SOC: domain.Known(50.0), Timestamp: time.Now().UTC()},
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Iterations)
	require.Len(t, result.ToolCalls, 1)
}

// recordingProvider answers with a fixed reply and captures the prompt it
// was sent, for assertions on prompt content.
type recordingProvider struct {
	reply    string
	captured *string
}

func (p *recordingProvider) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	if len(msgs) > 0 {
		*p.captured = msgs[0].Content
	}
	return p.reply, nil
}

// sequencedProvider is like fakeProvider but also records the transcript
// sent on its final call, for assertions on what the model actually saw.
type sequencedProvider struct {
	replies  []string
	calls    int
	captured *string
}

func (p *sequencedProvider) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	reply := p.replies[p.calls]
	if len(msgs) > 0 && p.captured != nil {
		*p.captured = msgs[len(msgs)-1].Content
	}
	if p.calls < len(p.replies)-1 {
		p.calls++
	}
	return reply, nil
}

// fixedResultRegistry dispatches every tool call to the same canned
// result, regardless of which tool was named.
type fixedResultRegistry struct {
	schemas []tools.Schema
	result  json.RawMessage
}

func (r *fixedResultRegistry) Schemas() []tools.Schema { return r.schemas }
func (r *fixedResultRegistry) Register(t tools.Tool)   {}
func (r *fixedResultRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	return r.result, nil
}
