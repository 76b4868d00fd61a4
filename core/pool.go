package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MaturityPool per-maturity aggregate state of one market. Created zero-valued
// on first access to a maturity date and never destroyed; matured pools stay
// queryable but reject principal operations.
type MaturityPool struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID string `sql:"size:36;unique_index:pool_idx" json:"asset_id"`
	// pool identifier, unix seconds aligned to the pool interval
	Maturity int64 `sql:"unique_index:pool_idx" json:"maturity"`
	// principal deposited by maturity pool suppliers
	Supplied decimal.Decimal `sql:"type:decimal(32,16)" json:"supplied"`
	// principal lent out of this pool
	Borrowed decimal.Decimal `sql:"type:decimal(32,16)" json:"borrowed"`
	// liquidity currently drawn from the smart pool, max(0, borrowed-supplied)
	SuppliedFromReserve decimal.Decimal `sql:"type:decimal(32,16)" json:"supplied_from_reserve"`
	// fee income not yet attributed, amortized linearly until maturity
	UnassignedEarnings decimal.Decimal `sql:"type:decimal(32,16)" json:"unassigned_earnings"`
	// last timestamp AccrueEarnings settled up to, unix seconds
	LastAccrual int64     `json:"last_accrual"`
	Version     int64     `sql:"default:0" json:"version"`
	CreatedAt   time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IPoolStore maturity pool store interface
type IPoolStore interface {
	Save(ctx context.Context, tx *db.DB, pool *MaturityPool) error
	// FindOrCreate returns the pool at (assetID, maturity), zero-valued if absent
	FindOrCreate(ctx context.Context, tx *db.DB, assetID string, maturity int64) (*MaturityPool, error)
	Find(ctx context.Context, assetID string, maturity int64) (*MaturityPool, error)
	FindByAsset(ctx context.Context, assetID string) ([]*MaturityPool, error)
	Update(ctx context.Context, tx *db.DB, pool *MaturityPool) error
}

// AccrueEarnings releases unassigned earnings proportional to the time elapsed
// since the last accrual, straight-line over the pool's remaining life.
// Returns the amount released to the smart pool backers. Must run before any
// balance-changing operation on the pool.
func (p *MaturityPool) AccrueEarnings(now int64) decimal.Decimal {
	if p.LastAccrual >= p.Maturity {
		// fee income arriving after maturity has no remaining life to amortize
		// over; it releases whole on the next accrual
		earnings := p.UnassignedEarnings
		p.UnassignedEarnings = decimal.Zero
		p.LastAccrual = now
		return earnings
	}

	secondsTotal := p.Maturity - p.LastAccrual
	secondsElapsed := now - p.LastAccrual
	if secondsElapsed <= 0 {
		return decimal.Zero
	}
	if secondsElapsed > secondsTotal {
		secondsElapsed = secondsTotal
	}

	earnings := p.UnassignedEarnings.
		Mul(decimal.NewFromInt(secondsElapsed)).
		Div(decimal.NewFromInt(secondsTotal)).
		Truncate(MaxPrecision)

	p.UnassignedEarnings = p.UnassignedEarnings.Sub(earnings)
	if now < p.Maturity {
		p.LastAccrual = now
	} else {
		// past maturity nothing is left unassigned
		earnings = earnings.Add(p.UnassignedEarnings)
		p.UnassignedEarnings = decimal.Zero
		p.LastAccrual = now
	}

	return earnings
}

// AddFee locks new fee income into the unassigned earnings of the pool
func (p *MaturityPool) AddFee(amount decimal.Decimal) {
	p.UnassignedEarnings = p.UnassignedEarnings.Add(amount)
}

// RemoveFee takes a discount out of the unassigned earnings; the caller must
// not ask for more than is available.
func (p *MaturityPool) RemoveFee(amount decimal.Decimal) error {
	if amount.GreaterThan(p.UnassignedEarnings) {
		return ErrInsufficientEarnings
	}
	p.UnassignedEarnings = p.UnassignedEarnings.Sub(amount)
	return nil
}

// BorrowFromReserve lends amount out of the pool. Whatever the pool's own
// supply cannot cover is drawn from the smart pool, counted once against the
// draw already outstanding. reserveBorrowed is the market-wide smart pool debt
// before the call; the new total must stay within maxDebt.
func (p *MaturityPool) BorrowFromReserve(amount, reserveBorrowed, maxDebt decimal.Decimal) (decimal.Decimal, error) {
	newBorrowed := p.Borrowed.Add(amount)

	drawn := decimal.Zero
	if newBorrowed.GreaterThan(p.Supplied) {
		needed := newBorrowed.Sub(p.Supplied)
		drawn = needed.Sub(p.SuppliedFromReserve)
		if drawn.IsNegative() {
			drawn = decimal.Zero
		}
		if reserveBorrowed.Add(drawn).GreaterThan(maxDebt) {
			return decimal.Zero, ErrInsufficientReserve
		}
		p.SuppliedFromReserve = p.SuppliedFromReserve.Add(drawn)
	}

	p.Borrowed = newBorrowed
	return drawn, nil
}

// DepositToReserve credits new supply to the pool. The incoming amount first
// retires the pool's smart pool draw; the returned portion is what the shared
// counter comes down by.
func (p *MaturityPool) DepositToReserve(amount decimal.Decimal) decimal.Decimal {
	repaid := decimal.Min(p.SuppliedFromReserve, amount)
	p.Supplied = p.Supplied.Add(amount)
	p.SuppliedFromReserve = p.SuppliedFromReserve.Sub(repaid)
	return repaid
}

// RepayToReserve settles repaid principal against the pool, paying the smart
// pool draw down first. Returns the reduction of the shared counter.
func (p *MaturityPool) RepayToReserve(amount decimal.Decimal) decimal.Decimal {
	repaid := decimal.Min(p.SuppliedFromReserve, amount)
	p.Borrowed = p.Borrowed.Sub(amount)
	p.SuppliedFromReserve = p.SuppliedFromReserve.Sub(repaid)
	return repaid
}

// WithdrawFromReserve removes supply from the pool; if the outstanding borrows
// are no longer covered the gap is drawn from the smart pool, subject to the
// same cap as a borrow.
func (p *MaturityPool) WithdrawFromReserve(amount, reserveBorrowed, maxDebt decimal.Decimal) (decimal.Decimal, error) {
	p.Supplied = p.Supplied.Sub(amount)

	drawn := decimal.Zero
	if p.Borrowed.GreaterThan(p.Supplied) {
		needed := p.Borrowed.Sub(p.Supplied)
		drawn = needed.Sub(p.SuppliedFromReserve)
		if drawn.IsNegative() {
			drawn = decimal.Zero
		}
		if reserveBorrowed.Add(drawn).GreaterThan(maxDebt) {
			p.Supplied = p.Supplied.Add(amount)
			return decimal.Zero, ErrInsufficientReserve
		}
		p.SuppliedFromReserve = p.SuppliedFromReserve.Add(drawn)
	}

	return drawn, nil
}

// DistributeFee splits a fee between the pool depositors and the smart pool
// backers, proportional to how much of the funded principal the smart pool
// carried. A zero principal means nothing was backed: everything stays with
// the depositors.
func DistributeFee(fee, suppliedByReserve, principal decimal.Decimal) (toUnassigned, toBackers decimal.Decimal) {
	if !principal.IsPositive() {
		return fee, decimal.Zero
	}

	toBackers = fee.Mul(suppliedByReserve).Div(principal).Truncate(MaxPrecision)
	if toBackers.GreaterThan(fee) {
		toBackers = fee
	}
	toUnassigned = fee.Sub(toBackers)
	return
}
