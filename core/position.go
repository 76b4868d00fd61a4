package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MaxPrecision max precision for raw unit amounts
const MaxPrecision int32 = 16

// Position principal+fee pair of one account in one maturity pool
type Position struct {
	Principal decimal.Decimal `json:"principal"`
	Fee       decimal.Decimal `json:"fee"`
}

// FullAmount principal plus fee
func (p Position) FullAmount() decimal.Decimal {
	return p.Principal.Add(p.Fee)
}

// IsZero whether nothing remains of the position
func (p Position) IsZero() bool {
	return !p.FullAmount().IsPositive()
}

// ScaleProportionally returns the slice of the position worth amount, keeping
// the principal/fee ratio. The fee leg takes the rounding residue so the slice
// is worth exactly amount.
func (p Position) ScaleProportionally(amount decimal.Decimal) Position {
	full := p.FullAmount()
	if !full.IsPositive() {
		return Position{Principal: decimal.Zero, Fee: decimal.Zero}
	}

	principal := amount.Mul(p.Principal).Div(full).Truncate(MaxPrecision)
	return Position{
		Principal: principal,
		Fee:       amount.Sub(principal),
	}
}

// ReduceProportionally subtracts the slice worth amount from the position.
// Reducing by FullAmount leaves an exactly zero position.
func (p Position) ReduceProportionally(amount decimal.Decimal) Position {
	scaled := p.ScaleProportionally(amount)
	return Position{
		Principal: p.Principal.Sub(scaled.Principal),
		Fee:       p.Fee.Sub(scaled.Fee),
	}
}

// Add accumulates another slice into the position
func (p Position) Add(other Position) Position {
	return Position{
		Principal: p.Principal.Add(other.Principal),
		Fee:       p.Fee.Add(other.Fee),
	}
}

// Supply supply position of one account in one maturity pool
type Supply struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:supply_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:supply_idx" json:"asset_id"`
	Maturity  int64           `sql:"unique_index:supply_idx" json:"maturity"`
	Principal decimal.Decimal `sql:"type:decimal(32,16)" json:"principal"`
	Fee       decimal.Decimal `sql:"type:decimal(32,16)" json:"fee"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Position the position embedded in the row
func (s *Supply) Position() Position {
	return Position{Principal: s.Principal, Fee: s.Fee}
}

// SetPosition write the position back to the row
func (s *Supply) SetPosition(p Position) {
	s.Principal = p.Principal
	s.Fee = p.Fee
}

// Borrow borrow position of one account in one maturity pool
type Borrow struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:borrow_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:borrow_idx" json:"asset_id"`
	Maturity  int64           `sql:"unique_index:borrow_idx" json:"maturity"`
	Principal decimal.Decimal `sql:"type:decimal(32,16)" json:"principal"`
	Fee       decimal.Decimal `sql:"type:decimal(32,16)" json:"fee"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Position the position embedded in the row
func (b *Borrow) Position() Position {
	return Position{Principal: b.Principal, Fee: b.Fee}
}

// SetPosition write the position back to the row
func (b *Borrow) SetPosition(p Position) {
	b.Principal = p.Principal
	b.Fee = p.Fee
}

// ISupplyStore supply store interface
type ISupplyStore interface {
	Save(ctx context.Context, tx *db.DB, supply *Supply) error
	Find(ctx context.Context, userID, assetID string, maturity int64) (*Supply, error)
	FindByUser(ctx context.Context, userID string) ([]*Supply, error)
	Update(ctx context.Context, tx *db.DB, supply *Supply) error
	Delete(ctx context.Context, tx *db.DB, supply *Supply) error
}

// IBorrowStore borrow store interface
type IBorrowStore interface {
	Save(ctx context.Context, tx *db.DB, borrow *Borrow) error
	Find(ctx context.Context, userID, assetID string, maturity int64) (*Borrow, error)
	FindByUser(ctx context.Context, userID string) ([]*Borrow, error)
	FindByAsset(ctx context.Context, assetID string) ([]*Borrow, error)
	Update(ctx context.Context, tx *db.DB, borrow *Borrow) error
	Delete(ctx context.Context, tx *db.DB, borrow *Borrow) error
}
