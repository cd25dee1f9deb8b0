package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
	"wattwise/internal/llm"
	"wattwise/internal/runner"
	"wattwise/internal/store"
	"wattwise/internal/tools"
	"wattwise/internal/weather"
)

type fakeProvider struct {
	replies []string
	delays  []time.Duration
	calls   int
}

func (p *fakeProvider) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	i := p.calls
	if i < len(p.delays) && p.delays[i] > 0 {
		select {
		case <-time.After(p.delays[i]):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	reply := p.replies[i]
	if p.calls < len(p.replies)-1 {
		p.calls++
	}
	return reply, nil
}

type noWeather struct{}

func (noWeather) CurrentWeather(ctx context.Context, lat, lon float64, timestamp *time.Time) (*domain.WeatherObservation, error) {
	return nil, nil
}

func (noWeather) SolarEstimate(ctx context.Context, loc domain.Location, panelWatts float64, start, end time.Time) (*weather.SolarEstimate, error) {
	return nil, nil
}

func TestGenerate_NoHistorySyncModeFinalAnswerFirstTurn(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{replies: []string{`{"final_answer": "## KEY FINDINGS\nLooks nominal.\n\n## RECOMMENDATIONS\n🟢 none needed"}`}}
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
		SystemID: "sys1",
		Snapshot: snapshot,
		Mode:     assembler.ModeSync,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Iterations)
	require.False(t, result.UsedFunctionCalling)
	require.Contains(t, result.Insights.FormattedText, "KEY FINDINGS")
	require.LessOrEqual(t, result.Insights.Confidence, 85)
	require.Equal(t, "unknown", result.Insights.HealthStatus)
}

func TestGenerate_ToolCallRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedSystem(domain.SystemProfile{ID: "sys1", NominalVoltage: 51.2, RatedCapacity: 280})
	provider := &fakeProvider{replies: []string{
		`{"tool_call": "request_bms_data", "parameters": {"systemId": "sys1"}}`,
		`{"final_answer": "## KEY FINDINGS\nok.\n\n## RECOMMENDATIONS\n🟢 none"}`,
	}}
	registry := tools.NewCatalog(st, noWeather{})

	deps := Deps{
		Assembler:     &assembler.Assembler{Store: st, Weather: noWeather{}},
		LLM:           provider,
		Tools:         registry,
		Model:         "test-model",
		RunnerOptions: runner.Options{MaxIterations: 5, IterationTimeout: time.Second, TotalTimeout: 5 * time.Second},
	}

	var toolCallSeen bool
	hooks := runner.Hooks{OnToolCall: func(iteration int, tool string, params json.RawMessage) { toolCallSeen = true }}

	result, err := Generate(context.Background(), deps, Input{
		SystemID: "sys1",
		Snapshot: domain.Snapshot{SOC: domain.Known(50.0), Timestamp: time.Now().UTC()},
		Mode:     assembler.ModeSync,
		Hooks:    hooks,
	})
	require.NoError(t, err)
	require.True(t, toolCallSeen)
	require.True(t, result.UsedFunctionCalling)
	require.Len(t, result.ToolCalls, 1)
}
