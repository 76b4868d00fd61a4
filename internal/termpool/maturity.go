package termpool

import (
	"termpool/core"
)

const (
	// SecondsPerDay seconds per day
	SecondsPerDay int64 = 86400
	// DefaultInterval maturity pool interval, one week
	DefaultInterval int64 = 7 * 86400
	// DefaultMaxFuturePools default open horizon
	DefaultMaxFuturePools = 12
)

// PoolState lifecycle state of a maturity pool
type PoolState int

const (
	// PoolStateNone no pool
	PoolStateNone PoolState = iota
	// PoolStateInvalid maturity not aligned to the interval
	PoolStateInvalid
	// PoolStateMatured maturity in the past
	PoolStateMatured
	// PoolStateValid pool open for operations
	PoolStateValid
	// PoolStateNotReady maturity beyond the farthest open pool
	PoolStateNotReady
)

func (s PoolState) String() string {
	switch s {
	case PoolStateNone:
		return "NONE"
	case PoolStateInvalid:
		return "INVALID"
	case PoolStateMatured:
		return "MATURED"
	case PoolStateValid:
		return "VALID"
	case PoolStateNotReady:
		return "NOT_READY"
	}
	return "UNKNOWN"
}

// PoolID the identifier of the pool enclosing timestamp: the next interval
// boundary after flooring.
func PoolID(interval, timestamp int64) int64 {
	return timestamp - timestamp%interval + interval
}

// State lifecycle state of the pool at maturity as seen at now
func State(interval, now, maturity int64, maxFuturePools int) PoolState {
	if maturity <= 0 {
		return PoolStateNone
	}
	if maturity%interval != 0 {
		return PoolStateInvalid
	}
	if maturity < now {
		return PoolStateMatured
	}
	if maturity > now-now%interval+interval*int64(maxFuturePools) {
		return PoolStateNotReady
	}
	return PoolStateValid
}

// RequireState fails unless the pool at maturity is in the required or the
// alternative state. PoolStateNone as alternative means no alternative: a
// nonexistent pool never satisfies the gate.
func RequireState(interval, now, maturity int64, maxFuturePools int, required, alternative PoolState) error {
	state := State(interval, now, maturity, maxFuturePools)
	if state == PoolStateInvalid {
		return core.ErrInvalidPoolID
	}
	if state == PoolStateNone || (state != required && state != alternative) {
		return core.ErrUnmatchedPoolState
	}
	return nil
}

// SecondsOverdue seconds past maturity, zero before it
func SecondsOverdue(maturity, now int64) int64 {
	if now <= maturity {
		return 0
	}
	return now - maturity
}
