package tools

import (
	"context"
	"encoding/json"
)

// GetSystemHistoryTool is a deprecated alias for request_bms_data, kept
// only for backward compatibility. It redirects every call unchanged;
// callers should migrate to request_bms_data directly.
type GetSystemHistoryTool struct {
	Delegate *RequestBMSDataTool
}

func (t *GetSystemHistoryTool) Name() string { return "getSystemHistory" }

func (t *GetSystemHistoryTool) Schema() Schema {
	schema := t.Delegate.Schema()
	schema.Name = "getSystemHistory"
	schema.Description = "Deprecated alias for request_bms_data; may be removed."
	return schema
}

func (t *GetSystemHistoryTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	return t.Delegate.Call(ctx, raw)
}
