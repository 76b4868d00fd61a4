package views

import (
	"termpool/core"

	"github.com/shopspring/decimal"
)

// Market market view
type Market struct {
	core.Market
	SmartPoolAvailable decimal.Decimal `json:"smart_pool_available"`
	TotalBorrows       decimal.Decimal `json:"total_borrows"`
	Pools              []*Pool         `json:"pools,omitempty"`
}

// Pool maturity pool view
type Pool struct {
	Maturity            int64           `json:"maturity"`
	State               string          `json:"state"`
	Supplied            decimal.Decimal `json:"supplied"`
	Borrowed            decimal.Decimal `json:"borrowed"`
	SuppliedFromReserve decimal.Decimal `json:"supplied_from_reserve"`
	UnassignedEarnings  decimal.Decimal `json:"unassigned_earnings"`
	BorrowRate          decimal.Decimal `json:"borrow_rate"`
}

// Liquidity account liquidity view
type Liquidity struct {
	UserID    string          `json:"user_id"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Markets   []string        `json:"markets"`
}

// AccountSnapshot account snapshot view
type AccountSnapshot struct {
	core.AccountSnapshot
	Symbol string `json:"symbol"`
}
