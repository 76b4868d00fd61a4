package pool

import (
	"context"
	"sync/atomic"
	"time"

	"termpool/core"
	"termpool/internal/termpool"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Accounting per-market accounting engine. Every mutating operation takes the
// re-entrancy guard for its whole duration and commits all ledger writes in a
// single transaction, so an operation either applies completely or not at all.
type Accounting struct {
	assetID      string
	interval     int64
	db           core.Transactor
	marketStore  core.IMarketStore
	poolStore    core.IPoolStore
	supplyStore  core.ISupplyStore
	borrowStore  core.IBorrowStore
	accountStore core.IAccountStore
	rateService  core.IRateService
	auditor      core.ILiquidityAuditor

	busy int32
}

// New new pool accounting engine for one market
func New(
	database core.Transactor,
	marketStore core.IMarketStore,
	poolStore core.IPoolStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	accountStore core.IAccountStore,
	rateService core.IRateService,
	assetID string,
	interval int64,
) *Accounting {
	if interval <= 0 {
		interval = termpool.DefaultInterval
	}

	return &Accounting{
		assetID:      assetID,
		interval:     interval,
		db:           database,
		marketStore:  marketStore,
		poolStore:    poolStore,
		supplyStore:  supplyStore,
		borrowStore:  borrowStore,
		accountStore: accountStore,
		rateService:  rateService,
	}
}

// SetAuditor wires the cross-market liquidity gate; without one borrow and
// withdraw run ungated.
func (s *Accounting) SetAuditor(auditor core.ILiquidityAuditor) {
	s.auditor = auditor
}

// AssetID the market this engine accounts for
func (s *Accounting) AssetID() string {
	return s.assetID
}

// enter takes the re-entrancy guard; the returned release runs on every exit
// path, failure included.
func (s *Accounting) enter() (func(), error) {
	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		return nil, core.ErrReentrantCall
	}
	return func() { atomic.StoreInt32(&s.busy, 0) }, nil
}

// Deposit supplies amount to the maturity pool. The depositor earns a share of
// the pool's unassigned earnings proportional to the smart pool debt the
// deposit retires.
func (s *Accounting) Deposit(ctx context.Context, now time.Time, maturity int64, supplier string, amount, minAmountRequired decimal.Decimal) (*core.DepositResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	log := logger.FromContext(ctx).WithField("service", "pool_accounting")
	nowUnix := now.UTC().Unix()

	var result core.DepositResult
	err = s.db.Tx(func(tx *db.DB) error {
		market, err := s.marketStore.Find(ctx, s.assetID)
		if err != nil {
			return err
		}

		if err := termpool.RequireState(s.interval, nowUnix, maturity, market.MaxFuturePools, termpool.PoolStateValid, termpool.PoolStateNone); err != nil {
			return err
		}

		pool, err := s.poolStore.FindOrCreate(ctx, tx, s.assetID, maturity)
		if err != nil {
			return err
		}

		accrued := pool.AccrueEarnings(nowUnix)

		yield, reserveFee := s.rateService.YieldForDeposit(ctx, market, pool, amount)
		totalCredited := amount.Add(yield)
		if totalCredited.LessThan(minAmountRequired) {
			return core.ErrExcessiveSlippage
		}

		if err := pool.RemoveFee(yield.Add(reserveFee)); err != nil {
			return err
		}

		repaid := pool.DepositToReserve(amount)
		market.SmartPoolBorrowed = market.SmartPoolBorrowed.Sub(repaid)
		market.SmartPoolEarnings = market.SmartPoolEarnings.Add(accrued).Add(reserveFee)

		if err := s.addSupply(ctx, tx, supplier, maturity, core.Position{Principal: amount, Fee: yield}); err != nil {
			return err
		}

		if err := s.poolStore.Update(ctx, tx, pool); err != nil {
			return err
		}
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		result = core.DepositResult{
			TotalCredited:   totalCredited,
			EarningsReserve: accrued.Add(reserveFee),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("deposit %s to %d credited %s", amount, maturity, result.TotalCredited)
	return &result, nil
}

// Borrow draws amount from the maturity pool, smart pool backed when the pool
// itself is undersupplied. The commission is priced at the utilization after
// the draw and locked into the borrower's position.
func (s *Accounting) Borrow(ctx context.Context, now time.Time, maturity int64, borrower string, amount, maxAmountAllowed decimal.Decimal) (*core.BorrowResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	if s.auditor != nil {
		if err := s.auditor.BorrowAllowed(ctx, borrower, s.assetID, amount, now); err != nil {
			return nil, err
		}
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	nowUnix := now.UTC().Unix()

	var result core.BorrowResult
	err = s.db.Tx(func(tx *db.DB) error {
		market, err := s.marketStore.Find(ctx, s.assetID)
		if err != nil {
			return err
		}

		if err := termpool.RequireState(s.interval, nowUnix, maturity, market.MaxFuturePools, termpool.PoolStateValid, termpool.PoolStateNone); err != nil {
			return err
		}

		pool, err := s.poolStore.FindOrCreate(ctx, tx, s.assetID, maturity)
		if err != nil {
			return err
		}

		accrued := pool.AccrueEarnings(nowUnix)

		drawn, err := pool.BorrowFromReserve(amount, market.SmartPoolBorrowed, market.SmartPoolCap)
		if err != nil {
			return err
		}
		market.SmartPoolBorrowed = market.SmartPoolBorrowed.Add(drawn)

		feeRate := s.rateService.RateToBorrow(ctx, market, pool, now)
		fee := amount.Mul(feeRate).Truncate(core.MaxPrecision)
		totalOwed := amount.Add(fee)
		if totalOwed.GreaterThan(maxAmountAllowed) {
			return core.ErrExcessiveSlippage
		}

		toUnassigned, toBackers := core.DistributeFee(fee, drawn, amount)
		pool.AddFee(toUnassigned)
		treasury := toBackers.Mul(market.ReserveFactor).Truncate(core.MaxPrecision)
		reserveEarnings := toBackers.Sub(treasury).Add(accrued)
		market.Reserves = market.Reserves.Add(treasury)
		market.SmartPoolEarnings = market.SmartPoolEarnings.Add(reserveEarnings)

		if err := s.addBorrow(ctx, tx, borrower, maturity, core.Position{Principal: amount, Fee: fee}); err != nil {
			return err
		}

		if err := s.poolStore.Update(ctx, tx, pool); err != nil {
			return err
		}
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		result = core.BorrowResult{
			TotalOwed:        totalOwed,
			EarningsReserve:  reserveEarnings,
			EarningsTreasury: treasury,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Withdraw gives up amount of the redeemer's position. Before maturity the
// redeemer forfeits a discount priced as if the withdrawn liquidity had been
// borrowed instead; the forfeit is distributed like any other fee.
func (s *Accounting) Withdraw(ctx context.Context, now time.Time, maturity int64, redeemer string, amount, minAmountRequired decimal.Decimal) (*core.WithdrawResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	if s.auditor != nil {
		if err := s.auditor.WithdrawAllowed(ctx, redeemer, s.assetID, amount, now); err != nil {
			return nil, err
		}
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	nowUnix := now.UTC().Unix()

	var result core.WithdrawResult
	err = s.db.Tx(func(tx *db.DB) error {
		market, err := s.marketStore.Find(ctx, s.assetID)
		if err != nil {
			return err
		}

		if err := termpool.RequireState(s.interval, nowUnix, maturity, market.MaxFuturePools, termpool.PoolStateValid, termpool.PoolStateMatured); err != nil {
			return err
		}

		supply, err := s.supplyStore.Find(ctx, redeemer, s.assetID, maturity)
		if err != nil {
			return err
		}
		if supply == nil || supply.ID == 0 {
			return core.ErrSupplyNotFound
		}

		pool, err := s.poolStore.FindOrCreate(ctx, tx, s.assetID, maturity)
		if err != nil {
			return err
		}

		accrued := pool.AccrueEarnings(nowUnix)

		position := supply.Position()
		amount = decimal.Min(amount, position.FullAmount())

		amountDiscounted := amount
		if nowUnix < maturity {
			feeRate := s.rateService.RateToBorrow(ctx, market, pool, now)
			amountDiscounted = amount.
				Div(decimal.New(1, 0).Add(feeRate)).
				Truncate(core.MaxPrecision)
		}
		if amountDiscounted.LessThan(minAmountRequired) {
			return core.ErrExcessiveSlippage
		}

		drawn, err := pool.WithdrawFromReserve(amountDiscounted, market.SmartPoolBorrowed, market.SmartPoolCap)
		if err != nil {
			return err
		}
		market.SmartPoolBorrowed = market.SmartPoolBorrowed.Add(drawn)

		forfeited := amount.Sub(amountDiscounted)
		toUnassigned, toBackers := core.DistributeFee(forfeited, drawn, amountDiscounted)
		pool.AddFee(toUnassigned)
		treasury := toBackers.Mul(market.ReserveFactor).Truncate(core.MaxPrecision)
		reserveEarnings := toBackers.Sub(treasury).Add(accrued)
		market.Reserves = market.Reserves.Add(treasury)
		market.SmartPoolEarnings = market.SmartPoolEarnings.Add(reserveEarnings)

		supply.SetPosition(position.ReduceProportionally(amount))
		if err := s.settleSupply(ctx, tx, supply); err != nil {
			return err
		}

		if err := s.poolStore.Update(ctx, tx, pool); err != nil {
			return err
		}
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		result = core.WithdrawResult{
			AmountPaid:       amountDiscounted,
			EarningsReserve:  reserveEarnings,
			EarningsTreasury: treasury,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Repay settles up to amount against the borrower's position. Overdue debt
// carries a per-second penalty; early repayment earns a discount out of the
// pool's unassigned earnings. Overpayment comes back as spare.
func (s *Accounting) Repay(ctx context.Context, now time.Time, maturity int64, borrower string, amount, maxAmountAllowed decimal.Decimal) (*core.RepayResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	var result *core.RepayResult
	err = s.db.Tx(func(tx *db.DB) error {
		var err error
		result, err = s.repay(ctx, tx, now, maturity, borrower, amount, maxAmountAllowed)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// LiquidateRepay is the liquidation variant of Repay: it joins the caller's
// transaction and skips the caller-level gating, the liquidation itself being
// the authorization.
func (s *Accounting) LiquidateRepay(ctx context.Context, tx *db.DB, now time.Time, maturity int64, borrower string, amount decimal.Decimal) (*core.RepayResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	return s.repay(ctx, tx, now, maturity, borrower, amount, amount)
}

func (s *Accounting) repay(ctx context.Context, tx *db.DB, now time.Time, maturity int64, borrower string, amount, maxAmountAllowed decimal.Decimal) (*core.RepayResult, error) {
	nowUnix := now.UTC().Unix()

	market, err := s.marketStore.Find(ctx, s.assetID)
	if err != nil {
		return nil, err
	}

	if err := termpool.RequireState(s.interval, nowUnix, maturity, market.MaxFuturePools, termpool.PoolStateValid, termpool.PoolStateMatured); err != nil {
		return nil, err
	}

	borrow, err := s.borrowStore.Find(ctx, borrower, s.assetID, maturity)
	if err != nil {
		return nil, err
	}
	if borrow == nil || borrow.ID == 0 {
		return nil, core.ErrBorrowNotFound
	}

	pool, err := s.poolStore.FindOrCreate(ctx, tx, s.assetID, maturity)
	if err != nil {
		return nil, err
	}

	accrued := pool.AccrueEarnings(nowUnix)

	position := borrow.Position()
	total := position.FullAmount()
	if !total.IsPositive() {
		// nothing owed, nothing to settle
		return &core.RepayResult{Spare: amount, DebtCovered: decimal.Zero, EarningsReserve: decimal.Zero, EarningsTreasury: decimal.Zero}, nil
	}

	overdue := termpool.SecondsOverdue(maturity, nowUnix)
	penalty := termpool.PenaltyAmount(total, s.rateService.PenaltyRate(ctx, market), overdue)
	amountOwed := total.Add(penalty)

	repayAssets := decimal.Min(amount, amountOwed)
	debtCovered := repayAssets.Mul(total).Div(amountOwed).Truncate(core.MaxPrecision)

	var actualRepay, treasury, reserveEarnings decimal.Decimal
	if overdue > 0 {
		// penalty interest beyond principal+fee goes to the backers split
		penaltyPaid := repayAssets.Sub(debtCovered)
		toUnassigned, toBackers := core.DistributeFee(penaltyPaid, pool.SuppliedFromReserve, pool.Borrowed)
		pool.AddFee(toUnassigned)
		treasury = toBackers.Mul(market.ReserveFactor).Truncate(core.MaxPrecision)
		reserveEarnings = toBackers.Sub(treasury).Add(accrued)
		actualRepay = repayAssets
	} else {
		// early repayment earns the deposit-style discount
		yield, reserveFee := s.rateService.YieldForDeposit(ctx, market, pool, debtCovered)
		if err := pool.RemoveFee(yield.Add(reserveFee)); err != nil {
			return nil, err
		}
		treasury = decimal.Zero
		reserveEarnings = reserveFee.Add(accrued)
		actualRepay = debtCovered.Sub(yield)
	}

	if actualRepay.GreaterThan(maxAmountAllowed) {
		return nil, core.ErrExcessiveSlippage
	}

	market.Reserves = market.Reserves.Add(treasury)
	market.SmartPoolEarnings = market.SmartPoolEarnings.Add(reserveEarnings)

	covered := position.ScaleProportionally(debtCovered)
	repaid := pool.RepayToReserve(covered.Principal)
	market.SmartPoolBorrowed = market.SmartPoolBorrowed.Sub(repaid)

	borrow.SetPosition(position.ReduceProportionally(debtCovered))
	if err := s.settleBorrow(ctx, tx, borrow); err != nil {
		return nil, err
	}

	if err := s.poolStore.Update(ctx, tx, pool); err != nil {
		return nil, err
	}
	if err := s.marketStore.Update(ctx, tx, market); err != nil {
		return nil, err
	}

	return &core.RepayResult{
		Spare:            amount.Sub(actualRepay),
		DebtCovered:      debtCovered,
		EarningsReserve:  reserveEarnings,
		EarningsTreasury: treasury,
	}, nil
}

// Seize transfers collateral from the borrower's supply position to the
// liquidator inside the caller's transaction, keeping the protocol share in
// the market reserves. Runs in-process so a same-market liquidation never
// re-enters through an external call.
func (s *Accounting) Seize(ctx context.Context, tx *db.DB, now time.Time, maturity int64, borrower, liquidator string, amount decimal.Decimal) (*core.SeizeResult, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	nowUnix := now.UTC().Unix()

	market, err := s.marketStore.Find(ctx, s.assetID)
	if err != nil {
		return nil, err
	}

	supply, err := s.supplyStore.Find(ctx, borrower, s.assetID, maturity)
	if err != nil {
		return nil, err
	}
	if supply == nil || supply.ID == 0 {
		return nil, core.ErrSeizeTooMuch
	}

	position := supply.Position()
	if position.FullAmount().LessThan(amount) {
		return nil, core.ErrSeizeTooMuch
	}

	pool, err := s.poolStore.FindOrCreate(ctx, tx, s.assetID, maturity)
	if err != nil {
		return nil, err
	}
	accrued := pool.AccrueEarnings(nowUnix)
	market.SmartPoolEarnings = market.SmartPoolEarnings.Add(accrued)

	protocolFee := amount.Mul(market.SeizeShare).Truncate(core.MaxPrecision)
	seized := amount.Sub(protocolFee)
	market.Reserves = market.Reserves.Add(protocolFee)

	transferred := position.ScaleProportionally(seized)
	remaining := position.ReduceProportionally(amount)
	supply.SetPosition(remaining)
	if err := s.settleSupply(ctx, tx, supply); err != nil {
		return nil, err
	}

	// the protocol share leaves the supplier ledger entirely; Supplied must
	// keep tracking the sum of supply principals
	feePrincipal := position.Principal.Sub(remaining.Principal).Sub(transferred.Principal)
	pool.Supplied = pool.Supplied.Sub(feePrincipal)

	if err := s.addSupply(ctx, tx, liquidator, maturity, transferred); err != nil {
		return nil, err
	}

	if err := s.poolStore.Update(ctx, tx, pool); err != nil {
		return nil, err
	}
	if err := s.marketStore.Update(ctx, tx, market); err != nil {
		return nil, err
	}

	return &core.SeizeResult{Seized: seized, ProtocolFee: protocolFee}, nil
}
