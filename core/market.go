package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Market market info. Amount columns are raw token units held as decimals;
// the smart pool counters are shared by every maturity pool of the market.
type Market struct {
	ID       uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID  string `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol   string `sql:"size:20;unique_index:symbol_idx" json:"symbol"`
	Decimals int32  `sql:"default:8" json:"decimals"`
	// 智能池可用流动性
	SmartPoolSupply decimal.Decimal `sql:"type:decimal(32,16)" json:"smart_pool_supply"`
	// sum of liquidity drawn by all maturity pools, never above SmartPoolCap
	SmartPoolBorrowed decimal.Decimal `sql:"type:decimal(32,16)" json:"smart_pool_borrowed"`
	// fee income already attributed to the smart pool backers
	SmartPoolEarnings decimal.Decimal `sql:"type:decimal(32,16)" json:"smart_pool_earnings"`
	// maxSPDebt, hard cap on SmartPoolBorrowed
	SmartPoolCap decimal.Decimal `sql:"type:decimal(32,16)" json:"smart_pool_cap"`
	// 平台保留金
	Reserves decimal.Decimal `sql:"type:decimal(32,16)" json:"reserves"`
	// 平台保留金率 (0, 1)
	ReserveFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"reserve_factor"`
	// 抵押因子 = 可借贷价值 / 抵押资产价值
	CollateralFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"collateral_factor"`
	// 清算激励因子 (0, 1)
	LiquidationIncentive decimal.Decimal `sql:"type:decimal(20,8)" json:"liquidation_incentive"`
	// 清算人最大可清算的资产比例 [0.05, 0.9]
	CloseFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"close_factor"`
	// protocol share of every seize, e.g. 0.028
	SeizeShare decimal.Decimal `sql:"type:decimal(20,8)" json:"seize_share"`
	// overdue interest per second past maturity
	PenaltyRate decimal.Decimal `sql:"type:decimal(20,16)" json:"penalty_rate"`
	// 基础利率 per year
	BaseRate decimal.Decimal `sql:"type:decimal(20,8)" json:"base_rate"`
	// The multiplier of utilization rate that gives the slope of the interest rate. per year
	Multiplier decimal.Decimal `sql:"type:decimal(20,8)" json:"multiplier"`
	// The multiplier after hitting a specified utilization point. per year
	JumpMultiplier decimal.Decimal `sql:"type:decimal(20,8)" json:"jump_multiplier"`
	// Kink
	Kink decimal.Decimal `sql:"type:decimal(20,8)" json:"kink"`
	// how many future maturity pools are open for new positions
	MaxFuturePools int             `sql:"default:12" json:"max_future_pools"`
	Price          decimal.Decimal `sql:"type:decimal(32,16)" json:"price"`
	Version        int64           `sql:"default:0" json:"version"`
	CreatedAt      time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SmartPoolAvailable liquidity the maturity pools may still draw
func (m *Market) SmartPoolAvailable() decimal.Decimal {
	return m.SmartPoolCap.Sub(m.SmartPoolBorrowed)
}

// IMarketStore market store interface
type IMarketStore interface {
	Save(ctx context.Context, tx *db.DB, market *Market) error
	Find(ctx context.Context, assetID string) (*Market, error)
	FindBySymbol(ctx context.Context, symbol string) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
	Update(ctx context.Context, tx *db.DB, market *Market) error
}

// IRateService interest rate model, consumed as a black box of utilization
type IRateService interface {
	// RateToBorrow rate locked in for borrowing from the pool until maturity
	RateToBorrow(ctx context.Context, market *Market, pool *MaturityPool, now time.Time) decimal.Decimal
	// YieldForDeposit depositor share of unassigned earnings and the reserve fee
	// carved out of it
	YieldForDeposit(ctx context.Context, market *Market, pool *MaturityPool, amount decimal.Decimal) (yield, reserveFee decimal.Decimal)
	// PenaltyRate overdue rate per second
	PenaltyRate(ctx context.Context, market *Market) decimal.Decimal
}

// IPriceOracleService price oracle service interface
type IPriceOracleService interface {
	GetUnderlyingPrice(ctx context.Context, market *Market) (decimal.Decimal, error)
	PullPriceTicker(ctx context.Context, assetID string, t time.Time) (*PriceTicker, error)
}

// PriceTicker price ticker from the oracle endpoint
type PriceTicker struct {
	AssetID string          `json:"asset_id"`
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
}
