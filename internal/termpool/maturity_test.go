package termpool

import (
	"testing"

	"termpool/core"

	"github.com/bmizerany/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolID(t *testing.T) {
	interval := DefaultInterval

	data := map[int64]int64{
		0:                interval,
		1:                interval,
		interval - 1:     interval,
		interval:         2 * interval,
		interval + 1:     2 * interval,
		10*interval + 10: 11 * interval,
	}

	for ts, want := range data {
		assert.Equal(t, want, PoolID(interval, ts))
	}
}

func TestState(t *testing.T) {
	interval := DefaultInterval
	now := 10*interval + 100

	cases := map[string]struct {
		maturity int64
		want     PoolState
	}{
		"none":        {0, PoolStateNone},
		"invalid":     {11*interval + 1, PoolStateInvalid},
		"matured":     {9 * interval, PoolStateMatured},
		"valid near":  {11 * interval, PoolStateValid},
		"valid far":   {(10 + DefaultMaxFuturePools) * interval, PoolStateValid},
		"not ready":   {(11 + DefaultMaxFuturePools) * interval, PoolStateNotReady},
		"matured now": {10 * interval, PoolStateMatured},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, State(interval, now, c.maturity, DefaultMaxFuturePools))
		})
	}
}

func TestRequireState(t *testing.T) {
	interval := DefaultInterval
	now := 10*interval + 100

	err := RequireState(interval, now, 11*interval, DefaultMaxFuturePools, PoolStateValid, PoolStateNone)
	require.Nil(t, err)

	// matured accepted as the alternative
	err = RequireState(interval, now, 9*interval, DefaultMaxFuturePools, PoolStateValid, PoolStateMatured)
	require.Nil(t, err)

	err = RequireState(interval, now, 9*interval, DefaultMaxFuturePools, PoolStateValid, PoolStateNone)
	assert.Equal(t, core.ErrUnmatchedPoolState, err)

	err = RequireState(interval, now, 9*interval+7, DefaultMaxFuturePools, PoolStateValid, PoolStateMatured)
	assert.Equal(t, core.ErrInvalidPoolID, err)

	// a nonexistent pool never matches, not even the PoolStateNone sentinel
	err = RequireState(interval, now, 0, DefaultMaxFuturePools, PoolStateValid, PoolStateNone)
	assert.Equal(t, core.ErrUnmatchedPoolState, err)

	err = RequireState(interval, now, -interval, DefaultMaxFuturePools, PoolStateValid, PoolStateNone)
	assert.Equal(t, core.ErrUnmatchedPoolState, err)
}

func TestSecondsOverdue(t *testing.T) {
	assert.Equal(t, int64(0), SecondsOverdue(100, 50))
	assert.Equal(t, int64(0), SecondsOverdue(100, 100))
	assert.Equal(t, int64(42), SecondsOverdue(100, 142))
}
