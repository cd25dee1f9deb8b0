package insights

import "wattwise/internal/runner"

// Result is the full payload the engine's entry point returns, per the
// external interface: the formatted insights alongside the run's tool
// trace and bookkeeping.
type Result struct {
	Insights            *Payload               `json:"insights"`
	ToolCalls           []runner.ToolCallRecord `json:"toolCalls"`
	Iterations          int                    `json:"iterations"`
	UsedFunctionCalling  bool                   `json:"usedFunctionCalling"`
	Warning             string                 `json:"warning,omitempty"`
}
