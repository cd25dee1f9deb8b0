// Package tools implements the fixed tool catalog the reasoning loop may
// invoke: a registry of named, parameterized operations, each backed by
// the Analytics Kernel or the Telemetry Store Adapter, dispatched through
// an executor that never lets a tool failure escape as a Go error.
package tools

import (
	"context"
	"encoding/json"
)

// Parameter documents one field of a tool's schema for prompt rendering.
type Parameter struct {
	Name        string
	Type        string // "string" | "number" | "integer" | "boolean" | "enum" | "object"
	Required    bool
	Description string
	Enum        []string
}

// Schema is a tool's catalog entry: enough to render both the prompt's
// serialized tool list and a human-facing description.
type Schema struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Tool is an executable capability the model can call by name.
type Tool interface {
	Name() string
	Schema() Schema
	Call(ctx context.Context, raw json.RawMessage) (any, error)
}

// Registry keeps track of tools and dispatches calls by name. Dispatch
// never returns a Go error for a tool-level failure: it reports
// {error:true, tool, message} as the payload so the runner can always
// append a user turn instead of aborting.
type Registry interface {
	Schemas() []Schema
	Dispatch(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error)
	Register(t Tool)
}

type defaultRegistry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry returns a basic in-memory registry.
func NewRegistry() Registry {
	return &defaultRegistry{byName: make(map[string]Tool)}
}

func (r *defaultRegistry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.byName[t.Name()] = t
}

func (r *defaultRegistry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Schema())
	}
	return out
}

// errorPayload is never an ambiguous type: every tool failure renders to
// exactly this shape so the prompt layer can recognize it uniformly.
type errorPayload struct {
	Error   bool   `json:"error"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func (r *defaultRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	t, ok := r.byName[name]
	if !ok {
		b, _ := json.Marshal(errorPayload{Error: true, Tool: name, Message: "tool not found"})
		return b, nil
	}
	val, err := t.Call(ctx, raw)
	if err != nil {
		b, _ := json.Marshal(errorPayload{Error: true, Tool: name, Message: err.Error()})
		return b, nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		eb, _ := json.Marshal(errorPayload{Error: true, Tool: name, Message: "failed to encode result: " + err.Error()})
		return eb, nil
	}
	return b, nil
}
