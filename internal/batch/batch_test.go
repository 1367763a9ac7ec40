package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failOn(bad map[string]bool, calls *[]string) func(context.Context, string) error {
	return func(_ context.Context, item string) error {
		*calls = append(*calls, item)
		if bad[item] {
			return errors.New("rejected " + item)
		}
		return nil
	}
}

func TestRunAll_ContinuesPastFailures(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	var calls []string

	res := RunAll(context.Background(), items, failOn(map[string]bool{"b": true, "d": true}, &calls))

	assert.Equal(t, items, calls)
	require.Len(t, res.Outcomes, len(items))
	assert.Equal(t, 2, res.SuccessCount())
	assert.Equal(t, 2, res.FailureCount())
	assert.True(t, res.AnySucceeded())

	first, ok := res.FirstFailure()
	require.True(t, ok)
	assert.Equal(t, "b", first.Item)
}

func TestRunAll_AllFail(t *testing.T) {
	var calls []string
	res := RunAll(context.Background(), []string{"x", "y"}, failOn(map[string]bool{"x": true, "y": true}, &calls))

	assert.False(t, res.AnySucceeded())
	assert.Equal(t, 2, res.Attempted())
}

func TestRunAll_Empty(t *testing.T) {
	var calls []string
	res := RunAll(context.Background(), nil, failOn(nil, &calls))

	assert.Empty(t, calls)
	assert.Equal(t, 0, res.Attempted())
	assert.False(t, res.AnySucceeded())
	_, ok := res.FirstFailure()
	assert.False(t, ok)
}

func TestRunUntilFailure_StopsAtFirstFailure(t *testing.T) {
	items := []string{"1", "2", "3", "4", "5"}

	for k := 1; k <= len(items); k++ {
		var calls []string
		failing := items[k-1]

		res := RunUntilFailure(context.Background(), items, failOn(map[string]bool{failing: true}, &calls))

		assert.Equal(t, items[:k], calls, "items after %s must not be attempted", failing)
		assert.Equal(t, k, res.Attempted())
		assert.Equal(t, k-1, res.SuccessCount())

		first, ok := res.FirstFailure()
		require.True(t, ok)
		assert.Equal(t, failing, first.Item)
	}
}

func TestRunUntilFailure_AllSucceed(t *testing.T) {
	var calls []string
	res := RunUntilFailure(context.Background(), []string{"a", "b"}, failOn(nil, &calls))

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, 0, res.FailureCount())
}
