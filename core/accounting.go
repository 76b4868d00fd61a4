package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Transactor runs fn atomically against the backing store; *db.DB satisfies it.
type Transactor interface {
	Tx(fn func(tx *db.DB) error) error
}

// BorrowResult realized amounts of a borrow
type BorrowResult struct {
	TotalOwed        decimal.Decimal `json:"total_owed"`
	EarningsReserve  decimal.Decimal `json:"earnings_reserve"`
	EarningsTreasury decimal.Decimal `json:"earnings_treasury"`
}

// DepositResult realized amounts of a deposit
type DepositResult struct {
	TotalCredited   decimal.Decimal `json:"total_credited"`
	EarningsReserve decimal.Decimal `json:"earnings_reserve"`
}

// WithdrawResult realized amounts of a withdraw
type WithdrawResult struct {
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	EarningsReserve  decimal.Decimal `json:"earnings_reserve"`
	EarningsTreasury decimal.Decimal `json:"earnings_treasury"`
}

// RepayResult realized amounts of a repay
type RepayResult struct {
	Spare            decimal.Decimal `json:"spare"`
	DebtCovered      decimal.Decimal `json:"debt_covered"`
	EarningsReserve  decimal.Decimal `json:"earnings_reserve"`
	EarningsTreasury decimal.Decimal `json:"earnings_treasury"`
}

// SeizeResult realized amounts of a seize
type SeizeResult struct {
	Seized      decimal.Decimal `json:"seized"`
	ProtocolFee decimal.Decimal `json:"protocol_fee"`
}

// AccountSnapshot cross-maturity balances of one account in one market,
// in raw token units
type AccountSnapshot struct {
	UserID   string          `json:"user_id"`
	AssetID  string          `json:"asset_id"`
	Supplied decimal.Decimal `json:"supplied"`
	// outstanding debt including the current overdue penalty
	Borrowed decimal.Decimal `json:"borrowed"`
}

// IPoolAccounting per-market accounting engine, the unit of market state.
// Operations are atomic: either every ledger mutation commits or none does.
type IPoolAccounting interface {
	AssetID() string

	Deposit(ctx context.Context, now time.Time, maturity int64, supplier string, amount, minAmountRequired decimal.Decimal) (*DepositResult, error)
	Borrow(ctx context.Context, now time.Time, maturity int64, borrower string, amount, maxAmountAllowed decimal.Decimal) (*BorrowResult, error)
	Withdraw(ctx context.Context, now time.Time, maturity int64, redeemer string, amount, minAmountRequired decimal.Decimal) (*WithdrawResult, error)
	Repay(ctx context.Context, now time.Time, maturity int64, borrower string, amount, maxAmountAllowed decimal.Decimal) (*RepayResult, error)

	// LiquidateRepay is the liquidation variant of Repay: it runs inside the
	// caller's transaction and skips the caller-level gating, liquidation
	// itself being the authorization.
	LiquidateRepay(ctx context.Context, tx *db.DB, now time.Time, maturity int64, borrower string, amount decimal.Decimal) (*RepayResult, error)
	// Seize transfers collateral from the borrower's supply position to the
	// liquidator inside the caller's transaction.
	Seize(ctx context.Context, tx *db.DB, now time.Time, maturity int64, borrower, liquidator string, amount decimal.Decimal) (*SeizeResult, error)

	GetAccountSnapshot(ctx context.Context, userID string, now time.Time) (*AccountSnapshot, error)
	GetTotalBorrows(ctx context.Context, now time.Time) (decimal.Decimal, error)
	// AccrueAll settles unassigned earnings on every open pool of the market
	AccrueAll(ctx context.Context, now time.Time) error
}

// ILiquidityAuditor cross-market collateral/debt aggregation and gating
type ILiquidityAuditor interface {
	EnterMarket(ctx context.Context, userID, assetID string) error
	ExitMarket(ctx context.Context, userID, assetID string) error
	EnteredMarkets(ctx context.Context, userID string) ([]string, error)

	// AccountLiquidity common-unit collateral surplus and shortfall, optionally
	// simulating a redeem/borrow against one market
	AccountLiquidity(ctx context.Context, userID string, now time.Time, modifyAssetID string, redeemAmount, borrowAmount decimal.Decimal) (liquidity, shortfall decimal.Decimal, err error)

	BorrowAllowed(ctx context.Context, userID, assetID string, amount decimal.Decimal, now time.Time) error
	WithdrawAllowed(ctx context.Context, userID, assetID string, amount decimal.Decimal, now time.Time) error

	// SeizeAmount collateral units seized for repaying repayAmount of debt
	SeizeAmount(ctx context.Context, repayAmount decimal.Decimal, borrowMarket, collateralMarket *Market) (decimal.Decimal, error)
}
