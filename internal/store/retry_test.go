package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wattwise/internal/engineerr"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), "op", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestWithRetry_DegradesToStoreError(t *testing.T) {
	_, err := withRetry(context.Background(), "op", func(ctx context.Context) (string, error) {
		return "", errors.New("permanent")
	})
	require.Error(t, err)

	var storeErr *engineerr.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "op", storeErr.Op)
	require.True(t, errors.Is(err, engineerr.ErrStore))
}
