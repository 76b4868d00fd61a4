package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
)

// MaturitySet ordered set of maturity dates with O(1) removal. Every entry
// corresponds to a nonzero position of the account in that pool.
type MaturitySet struct {
	list  []int64
	index map[int64]int
}

// NewMaturitySet new empty set
func NewMaturitySet() *MaturitySet {
	return &MaturitySet{index: map[int64]int{}}
}

// Add inserts the maturity if absent
func (s *MaturitySet) Add(maturity int64) {
	if s.index == nil {
		s.index = map[int64]int{}
	}
	if _, ok := s.index[maturity]; ok {
		return
	}
	s.index[maturity] = len(s.list)
	s.list = append(s.list, maturity)
}

// Remove swaps the maturity with the last entry and truncates
func (s *MaturitySet) Remove(maturity int64) {
	i, ok := s.index[maturity]
	if !ok {
		return
	}
	last := len(s.list) - 1
	s.list[i] = s.list[last]
	s.index[s.list[i]] = i
	s.list = s.list[:last]
	delete(s.index, maturity)
}

// Contains set membership
func (s *MaturitySet) Contains(maturity int64) bool {
	_, ok := s.index[maturity]
	return ok
}

// Values the maturities in set order
func (s *MaturitySet) Values() []int64 {
	out := make([]int64, len(s.list))
	copy(out, s.list)
	return out
}

// Len set size
func (s *MaturitySet) Len() int {
	return len(s.list)
}

// MarshalJSON implements json.Marshaler
func (s *MaturitySet) MarshalJSON() ([]byte, error) {
	if s == nil || s.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.list)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *MaturitySet) UnmarshalJSON(data []byte) error {
	var list []int64
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	s.list = s.list[:0]
	s.index = map[int64]int{}
	for _, m := range list {
		s.Add(m)
	}
	return nil
}

// AccountIndex per (account, market) index of maturities with open positions,
// kept so cross-maturity balances need not scan every pool.
type AccountIndex struct {
	ID        uint64         `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string         `sql:"size:36;unique_index:account_idx" json:"user_id"`
	AssetID   string         `sql:"size:36;unique_index:account_idx" json:"asset_id"`
	Supplies  types.JSONText `sql:"type:TEXT" json:"supplies"`
	Borrows   types.JSONText `sql:"type:TEXT" json:"borrows"`
	Version   int64          `sql:"default:0" json:"version"`
	CreatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SupplySet decode the supply maturity set
func (a *AccountIndex) SupplySet() (*MaturitySet, error) {
	return decodeMaturitySet(a.Supplies)
}

// BorrowSet decode the borrow maturity set
func (a *AccountIndex) BorrowSet() (*MaturitySet, error) {
	return decodeMaturitySet(a.Borrows)
}

// SetSupplySet encode the supply maturity set
func (a *AccountIndex) SetSupplySet(s *MaturitySet) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	a.Supplies = data
	return nil
}

// SetBorrowSet encode the borrow maturity set
func (a *AccountIndex) SetBorrowSet(s *MaturitySet) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	a.Borrows = data
	return nil
}

func decodeMaturitySet(data types.JSONText) (*MaturitySet, error) {
	set := NewMaturitySet()
	if len(data) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(data, set); err != nil {
		return nil, err
	}
	return set, nil
}

// IAccountStore account index store interface
type IAccountStore interface {
	Save(ctx context.Context, tx *db.DB, index *AccountIndex) error
	FindOrCreate(ctx context.Context, tx *db.DB, userID, assetID string) (*AccountIndex, error)
	Find(ctx context.Context, userID, assetID string) (*AccountIndex, error)
	FindByUser(ctx context.Context, userID string) ([]*AccountIndex, error)
	Update(ctx context.Context, tx *db.DB, index *AccountIndex) error
}
