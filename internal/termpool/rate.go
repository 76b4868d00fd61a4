package termpool

import (
	"github.com/shopspring/decimal"
)

var (
	// SecondsPerYear seconds per year
	SecondsPerYear = decimal.NewFromInt(31536000)
	// CloseFactorMin min of close factor, must be strictly greater than this value
	CloseFactorMin = decimal.NewFromFloat(0.05)
	// CloseFactorMax max of close factor, must not exceed this value
	CloseFactorMax = decimal.NewFromFloat(0.9)
	// CollateralFactorMax max of collateral factor [0, 0.9]
	CollateralFactorMax = decimal.NewFromFloat(0.9)
	// LiquidationIncentiveMin must be no less than this value
	LiquidationIncentiveMin = decimal.NewFromFloat(0.01)
	// LiquidationIncentiveMax must be no greater than this value
	LiquidationIncentiveMax = decimal.NewFromFloat(0.9)
	// MaxPrecision max precision
	MaxPrecision int32 = 16
)

// UtilizationRate utilization of the backing behind a maturity pool
// utilization_rate = pool.borrowed / (pool.supplied + market.smart_pool_cap)
func UtilizationRate(borrowed, supplied, smartPoolCap decimal.Decimal) decimal.Decimal {
	total := supplied.Add(smartPoolCap)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return borrowed.Div(total).Truncate(MaxPrecision)
}

// GetAnnualBorrowRate jump-rate curve at the given utilization
func GetAnnualBorrowRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink decimal.Decimal) decimal.Decimal {
	if kink.Equal(decimal.Zero) ||
		utilizationRate.LessThanOrEqual(kink) {
		return utilizationRate.Mul(multiplier).Add(baseRate).Truncate(MaxPrecision)
	}

	normalRate := kink.Mul(multiplier).Add(baseRate)
	excessUtilRate := utilizationRate.Sub(kink)
	return excessUtilRate.Mul(jumpMultiplier).Add(normalRate).Truncate(MaxPrecision)
}

// RateToBorrow fee rate locked in when borrowing now until maturity: the
// annual curve rate scaled by the remaining pool life.
func RateToBorrow(maturity, now int64, utilizationRate, baseRate, multiplier, jumpMultiplier, kink decimal.Decimal) decimal.Decimal {
	secondsLeft := maturity - now
	if secondsLeft <= 0 {
		return decimal.Zero
	}

	annual := GetAnnualBorrowRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink)
	return annual.Mul(decimal.NewFromInt(secondsLeft)).Div(SecondsPerYear).Truncate(MaxPrecision)
}

// YieldForDeposit depositor share of the pool's unassigned earnings. A deposit
// only earns against the smart pool debt it retires, so the share is
// proportional to min(amount, suppliedFromReserve) over suppliedFromReserve;
// the reserve fee rate carves the backers' cut out of the gross yield.
// Returns what the depositor keeps and the reserve fee; the pool's unassigned
// earnings must come down by their sum.
func YieldForDeposit(suppliedFromReserve, unassignedEarnings, amount, reserveFeeRate decimal.Decimal) (yield, reserveFee decimal.Decimal) {
	if !suppliedFromReserve.IsPositive() || !amount.IsPositive() {
		return decimal.Zero, decimal.Zero
	}

	gross := unassignedEarnings.
		Mul(decimal.Min(amount, suppliedFromReserve)).
		Div(suppliedFromReserve).
		Truncate(MaxPrecision)
	reserveFee = gross.Mul(reserveFeeRate).Truncate(MaxPrecision)
	yield = gross.Sub(reserveFee)
	return
}

// PenaltyAmount overdue penalty on debt at ratePerSecond, secondsOverdue past maturity
func PenaltyAmount(debt, ratePerSecond decimal.Decimal, secondsOverdue int64) decimal.Decimal {
	if secondsOverdue <= 0 {
		return decimal.Zero
	}

	return debt.Mul(ratePerSecond).Mul(decimal.NewFromInt(secondsOverdue)).Truncate(MaxPrecision)
}
