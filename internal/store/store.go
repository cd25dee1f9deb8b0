// Package store is the Telemetry Store Adapter: a small typed, retryable
// surface over historical records, system profiles, and cached prediction
// models. The engine treats the store as read-only except for caching
// derived prediction models with a 24h TTL.
package store

import (
	"context"
	"encoding/json"
	"time"

	"wattwise/internal/domain"
)

// ModelTTL is the expiry window for cached prediction models.
const ModelTTL = 24 * time.Hour

// Store is the adapter surface the Analytics Kernel, Tool Catalog, and
// Context Assembler read through. Every method degrades to a typed
// engineerr.StoreError on exhausted retries rather than panicking; callers
// are expected to substitute insufficient-data results.
type Store interface {
	// Records returns the ordered sequence of historical records for a
	// system within [from,to], ascending by timestamp.
	Records(ctx context.Context, systemID string, from, to time.Time) ([]domain.HistoricalRecord, error)

	// System returns the profile for a system, or (nil, nil) if unknown.
	System(ctx context.Context, systemID string) (*domain.SystemProfile, error)

	// RecentSnapshots returns up to n most-recent snapshots, newest first.
	RecentSnapshots(ctx context.Context, systemID string, n int) ([]domain.Snapshot, error)

	// CachedModel returns a previously cached prediction model for
	// (systemID, kind), or (nil, false, nil) if absent or expired.
	CachedModel(ctx context.Context, systemID, kind string) (json.RawMessage, bool, error)

	// PutCachedModel upserts a prediction model with a 24h expiry.
	PutCachedModel(ctx context.Context, systemID, kind string, model json.RawMessage) error

	// Close releases underlying resources.
	Close()
}
