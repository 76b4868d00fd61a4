package pool

import (
	"context"

	"termpool/core"

	"github.com/fox-one/pkg/store/db"
)

// addSupply accumulates a position slice into the supplier's row and keeps the
// account index in step.
func (s *Accounting) addSupply(ctx context.Context, tx *db.DB, userID string, maturity int64, slice core.Position) error {
	supply, err := s.supplyStore.Find(ctx, userID, s.assetID, maturity)
	if err != nil {
		return err
	}

	if supply == nil || supply.ID == 0 {
		supply = &core.Supply{
			UserID:   userID,
			AssetID:  s.assetID,
			Maturity: maturity,
		}
		supply.SetPosition(slice)
		if err := s.supplyStore.Save(ctx, tx, supply); err != nil {
			return err
		}
	} else {
		supply.SetPosition(supply.Position().Add(slice))
		if err := s.supplyStore.Update(ctx, tx, supply); err != nil {
			return err
		}
	}

	return s.updateIndex(ctx, tx, userID, maturity, false, true)
}

// addBorrow accumulates a position slice into the borrower's row and keeps the
// account index in step.
func (s *Accounting) addBorrow(ctx context.Context, tx *db.DB, userID string, maturity int64, slice core.Position) error {
	borrow, err := s.borrowStore.Find(ctx, userID, s.assetID, maturity)
	if err != nil {
		return err
	}

	if borrow == nil || borrow.ID == 0 {
		borrow = &core.Borrow{
			UserID:   userID,
			AssetID:  s.assetID,
			Maturity: maturity,
		}
		borrow.SetPosition(slice)
		if err := s.borrowStore.Save(ctx, tx, borrow); err != nil {
			return err
		}
	} else {
		borrow.SetPosition(borrow.Position().Add(slice))
		if err := s.borrowStore.Update(ctx, tx, borrow); err != nil {
			return err
		}
	}

	return s.updateIndex(ctx, tx, userID, maturity, true, true)
}

// settleSupply persists a reduced supply row, deleting it and dropping the
// index entry once nothing remains.
func (s *Accounting) settleSupply(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if supply.Position().IsZero() {
		if err := s.supplyStore.Delete(ctx, tx, supply); err != nil {
			return err
		}
		return s.updateIndex(ctx, tx, supply.UserID, supply.Maturity, false, false)
	}

	return s.supplyStore.Update(ctx, tx, supply)
}

// settleBorrow persists a reduced borrow row, deleting it and dropping the
// index entry once nothing remains.
func (s *Accounting) settleBorrow(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if borrow.Position().IsZero() {
		if err := s.borrowStore.Delete(ctx, tx, borrow); err != nil {
			return err
		}
		return s.updateIndex(ctx, tx, borrow.UserID, borrow.Maturity, true, false)
	}

	return s.borrowStore.Update(ctx, tx, borrow)
}

func (s *Accounting) updateIndex(ctx context.Context, tx *db.DB, userID string, maturity int64, borrowSide, add bool) error {
	index, err := s.accountStore.FindOrCreate(ctx, tx, userID, s.assetID)
	if err != nil {
		return err
	}

	var set *core.MaturitySet
	if borrowSide {
		set, err = index.BorrowSet()
	} else {
		set, err = index.SupplySet()
	}
	if err != nil {
		return err
	}

	if add {
		set.Add(maturity)
	} else {
		set.Remove(maturity)
	}

	if borrowSide {
		err = index.SetBorrowSet(set)
	} else {
		err = index.SetSupplySet(set)
	}
	if err != nil {
		return err
	}

	return s.accountStore.Update(ctx, tx, index)
}
