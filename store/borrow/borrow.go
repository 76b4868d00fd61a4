package borrow

import (
	"context"

	"termpool/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type borrowStore struct {
	db *db.DB
}

// New new borrow store
func New(db *db.DB) core.IBorrowStore {
	return &borrowStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Borrow{})
		if err := tx.AutoMigrate(core.Borrow{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *borrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if e := tx.Update().Create(borrow).Error; e != nil {
		return e
	}

	return nil
}

// Find returns a zero-ID row when the account owes nothing at the maturity,
// callers branch on ID
func (s *borrowStore) Find(ctx context.Context, userID, assetID string, maturity int64) (*core.Borrow, error) {
	var borrow core.Borrow
	if e := s.db.View().Where("user_id=? and asset_id=? and maturity=?", userID, assetID, maturity).First(&borrow).Error; e != nil {
		if gorm.IsRecordNotFoundError(e) {
			return &core.Borrow{}, nil
		}
		return nil, e
	}

	return &borrow, nil
}

func (s *borrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	var borrows []*core.Borrow
	if e := s.db.View().Where("user_id=?", userID).Find(&borrows).Error; e != nil {
		return nil, e
	}

	return borrows, nil
}

func (s *borrowStore) FindByAsset(ctx context.Context, assetID string) ([]*core.Borrow, error) {
	var borrows []*core.Borrow
	if e := s.db.View().Where("asset_id=?", assetID).Find(&borrows).Error; e != nil {
		return nil, e
	}

	return borrows, nil
}

func (s *borrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	version := borrow.Version
	borrow.Version++
	if err := tx.Update().Model(core.Borrow{}).Where("id=? and version=?", borrow.ID, version).Updates(borrow).Error; err != nil {
		return err
	}

	return nil
}

func (s *borrowStore) Delete(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if err := tx.Update().Where("id=?", borrow.ID).Delete(core.Borrow{}).Error; err != nil {
		return err
	}

	return nil
}
