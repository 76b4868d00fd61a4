package rate

import (
	"context"
	"time"

	"termpool/core"
	"termpool/internal/termpool"

	"github.com/shopspring/decimal"
)

type rateService struct{}

// New new rate service backed by the jump-rate curve, parameterized per market
func New() core.IRateService {
	return &rateService{}
}

func (s *rateService) RateToBorrow(ctx context.Context, market *core.Market, pool *core.MaturityPool, now time.Time) decimal.Decimal {
	utilization := termpool.UtilizationRate(pool.Borrowed, pool.Supplied, market.SmartPoolCap)
	return termpool.RateToBorrow(
		pool.Maturity,
		now.UTC().Unix(),
		utilization,
		market.BaseRate,
		market.Multiplier,
		market.JumpMultiplier,
		market.Kink,
	)
}

func (s *rateService) YieldForDeposit(ctx context.Context, market *core.Market, pool *core.MaturityPool, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return termpool.YieldForDeposit(pool.SuppliedFromReserve, pool.UnassignedEarnings, amount, market.ReserveFactor)
}

func (s *rateService) PenaltyRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return market.PenaltyRate
}
