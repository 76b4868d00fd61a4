package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unkown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden caller not authorized for the entry point
	ErrOperationForbidden ErrorCode = 100001
	// ErrAlreadyInitialized market registered twice
	ErrAlreadyInitialized ErrorCode = 100002
	// ErrReentrantCall mutating entry point re-entered before the in-flight operation finished
	ErrReentrantCall ErrorCode = 100003

	// ErrMarketNotFound no market
	ErrMarketNotFound ErrorCode = 100100
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrSupplyNotFound no supply position
	ErrSupplyNotFound ErrorCode = 100102
	// ErrBorrowNotFound no borrow position
	ErrBorrowNotFound ErrorCode = 100103
	// ErrInvalidPrice invalid price
	ErrInvalidPrice ErrorCode = 100104

	// ErrInvalidPoolID maturity not aligned to the pool interval
	ErrInvalidPoolID ErrorCode = 100200
	// ErrUnmatchedPoolState pool not in the lifecycle state the operation requires
	ErrUnmatchedPoolState ErrorCode = 100201
	// ErrExcessiveSlippage realized amount violates the caller bound
	ErrExcessiveSlippage ErrorCode = 100202
	// ErrInsufficientReserve smart pool debt cap exceeded
	ErrInsufficientReserve ErrorCode = 100203
	// ErrInsufficientEarnings unassigned earnings would go negative
	ErrInsufficientEarnings ErrorCode = 100204

	// ErrInsufficientLiquidity post-action shortfall
	ErrInsufficientLiquidity ErrorCode = 100300
	// ErrSeizeTooMuch borrower collateral balance below the computed seize amount
	ErrSeizeTooMuch ErrorCode = 100301
	// ErrLiquidateNotAllowed borrower has no shortfall
	ErrLiquidateNotAllowed ErrorCode = 100302
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
