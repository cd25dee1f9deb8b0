package tools

import (
	"wattwise/internal/store"
	"wattwise/internal/weather"
)

// NewCatalog builds the fixed tool registry described in the external
// interface: the seven named tools plus the deprecated getSystemHistory
// alias, all registered in a stable, documented order.
func NewCatalog(st store.Store, weatherClient weather.Client) Registry {
	reg := NewRegistry()

	bmsData := &RequestBMSDataTool{Store: st}

	reg.Register(bmsData)
	reg.Register(&SystemAnalyticsTool{Store: st})
	reg.Register(&WeatherDataTool{Client: weatherClient})
	reg.Register(&SolarEstimateTool{Client: weatherClient})
	reg.Register(&PredictBatteryTrendsTool{Store: st})
	reg.Register(&AnalyzeUsagePatternsTool{Store: st})
	reg.Register(&CalculateEnergyBudgetTool{Store: st})
	reg.Register(&GetSystemHistoryTool{Delegate: bmsData})

	return reg
}
