package pool

import (
	"context"
	"time"

	"termpool/core"
	"termpool/internal/termpool"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// GetAccountSnapshot cross-maturity balances of the account in this market,
// walking the account index instead of every pool. Borrowed includes the
// penalty already accrued on overdue positions.
func (s *Accounting) GetAccountSnapshot(ctx context.Context, userID string, now time.Time) (*core.AccountSnapshot, error) {
	snapshot := &core.AccountSnapshot{
		UserID:   userID,
		AssetID:  s.assetID,
		Supplied: decimal.Zero,
		Borrowed: decimal.Zero,
	}

	index, err := s.accountStore.Find(ctx, userID, s.assetID)
	if err != nil {
		return nil, err
	}
	if index == nil || index.ID == 0 {
		return snapshot, nil
	}

	market, err := s.marketStore.Find(ctx, s.assetID)
	if err != nil {
		return nil, err
	}

	nowUnix := now.UTC().Unix()

	supplySet, err := index.SupplySet()
	if err != nil {
		return nil, err
	}
	for _, maturity := range supplySet.Values() {
		supply, err := s.supplyStore.Find(ctx, userID, s.assetID, maturity)
		if err != nil {
			return nil, err
		}
		if supply == nil || supply.ID == 0 {
			continue
		}
		snapshot.Supplied = snapshot.Supplied.Add(supply.Position().FullAmount())
	}

	borrowSet, err := index.BorrowSet()
	if err != nil {
		return nil, err
	}
	for _, maturity := range borrowSet.Values() {
		borrow, err := s.borrowStore.Find(ctx, userID, s.assetID, maturity)
		if err != nil {
			return nil, err
		}
		if borrow == nil || borrow.ID == 0 {
			continue
		}

		debt := borrow.Position().FullAmount()
		penalty := termpool.PenaltyAmount(debt, market.PenaltyRate, termpool.SecondsOverdue(maturity, nowUnix))
		snapshot.Borrowed = snapshot.Borrowed.Add(debt).Add(penalty)
	}

	return snapshot, nil
}

// GetTotalBorrows principal lent out across all maturities of the market
func (s *Accounting) GetTotalBorrows(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	pools, err := s.poolStore.FindByAsset(ctx, s.assetID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, pool := range pools {
		total = total.Add(pool.Borrowed)
	}

	return total, nil
}

// AccrueAll settles unassigned earnings on every pool of the market that still
// has time to amortize, crediting the release to the smart pool backers.
func (s *Accounting) AccrueAll(ctx context.Context, now time.Time) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	nowUnix := now.UTC().Unix()

	return s.db.Tx(func(tx *db.DB) error {
		market, err := s.marketStore.Find(ctx, s.assetID)
		if err != nil {
			return err
		}

		pools, err := s.poolStore.FindByAsset(ctx, s.assetID)
		if err != nil {
			return err
		}

		earned := decimal.Zero
		for _, pool := range pools {
			if pool.LastAccrual >= nowUnix {
				continue
			}

			accrued := pool.AccrueEarnings(nowUnix)
			earned = earned.Add(accrued)
			if err := s.poolStore.Update(ctx, tx, pool); err != nil {
				return err
			}
		}

		if earned.IsZero() {
			return nil
		}

		market.SmartPoolEarnings = market.SmartPoolEarnings.Add(earned)
		return s.marketStore.Update(ctx, tx, market)
	})
}
