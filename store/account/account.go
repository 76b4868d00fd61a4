package account

import (
	"context"

	"termpool/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type accountStore struct {
	db *db.DB
}

// New new account index store
func New(db *db.DB) core.IAccountStore {
	return &accountStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.AccountIndex{})
		if err := tx.AutoMigrate(core.AccountIndex{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *accountStore) Save(ctx context.Context, tx *db.DB, index *core.AccountIndex) error {
	if err := tx.Update().Create(index).Error; err != nil {
		return err
	}

	return nil
}

func (s *accountStore) FindOrCreate(ctx context.Context, tx *db.DB, userID, assetID string) (*core.AccountIndex, error) {
	var index core.AccountIndex
	err := tx.Update().Where("user_id=? and asset_id=?", userID, assetID).First(&index).Error
	if err == nil {
		return &index, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	index = core.AccountIndex{
		UserID:  userID,
		AssetID: assetID,
	}
	if err := index.SetSupplySet(core.NewMaturitySet()); err != nil {
		return nil, err
	}
	if err := index.SetBorrowSet(core.NewMaturitySet()); err != nil {
		return nil, err
	}

	if err := tx.Update().Create(&index).Error; err != nil {
		return nil, err
	}

	return &index, nil
}

// Find returns a zero-ID row for accounts that never touched the market
func (s *accountStore) Find(ctx context.Context, userID, assetID string) (*core.AccountIndex, error) {
	var index core.AccountIndex
	if err := s.db.View().Where("user_id=? and asset_id=?", userID, assetID).First(&index).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.AccountIndex{}, nil
		}
		return nil, err
	}

	return &index, nil
}

func (s *accountStore) FindByUser(ctx context.Context, userID string) ([]*core.AccountIndex, error) {
	var indexes []*core.AccountIndex
	if err := s.db.View().Where("user_id=?", userID).Find(&indexes).Error; err != nil {
		return nil, err
	}

	return indexes, nil
}

func (s *accountStore) Update(ctx context.Context, tx *db.DB, index *core.AccountIndex) error {
	version := index.Version
	index.Version++
	if err := tx.Update().Model(core.AccountIndex{}).Where("id=? and version=?", index.ID, version).Updates(index).Error; err != nil {
		return err
	}

	return nil
}
