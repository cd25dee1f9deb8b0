package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	val  any
	err  error
}

func (s stubTool) Name() string { return s.name }
func (s stubTool) Schema() Schema {
	return Schema{Name: s.name, Description: "stub"}
}
func (s stubTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	return s.val, s.err
}

func TestRegistry_DispatchNotFound(t *testing.T) {
	r := NewRegistry()
	payload, err := r.Dispatch(context.Background(), "missing", nil)
	require.NoError(t, err)

	var decoded errorPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.True(t, decoded.Error)
	require.Equal(t, "missing", decoded.Tool)
}

func TestRegistry_DispatchToolErrorNeverEscapes(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "boom", err: errors.New("downstream failed")})

	payload, err := r.Dispatch(context.Background(), "boom", nil)
	require.NoError(t, err)

	var decoded errorPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.True(t, decoded.Error)
	require.Contains(t, decoded.Message, "downstream failed")
}

func TestRegistry_DispatchSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "ok", val: map[string]any{"value": 42}})

	payload, err := r.Dispatch(context.Background(), "ok", nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.EqualValues(t, 42, decoded["value"])
}

func TestRegistry_SchemasPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "b"})
	r.Register(stubTool{name: "a"})
	r.Register(stubTool{name: "c"})

	schemas := r.Schemas()
	require.Len(t, schemas, 3)
	require.Equal(t, []string{"b", "a", "c"}, []string{schemas[0].Name, schemas[1].Name, schemas[2].Name})
}

func TestRecordingRegistry_EmitsEvent(t *testing.T) {
	var events []DispatchEvent
	base := NewRegistry()
	base.Register(stubTool{name: "ok", val: "done"})
	rec := NewRecordingRegistry(base, func(e DispatchEvent) { events = append(events, e) })

	_, err := rec.Dispatch(context.Background(), "ok", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "ok", events[0].Name)
}
