package supply

import (
	"context"

	"termpool/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type supplyStore struct {
	db *db.DB
}

// New new supply store
func New(db *db.DB) core.ISupplyStore {
	return &supplyStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Supply{})
		if err := tx.AutoMigrate(core.Supply{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *supplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if e := tx.Update().Create(supply).Error; e != nil {
		return e
	}

	return nil
}

// Find returns a zero-ID row when the account holds no position at the
// maturity, callers branch on ID
func (s *supplyStore) Find(ctx context.Context, userID, assetID string, maturity int64) (*core.Supply, error) {
	var supply core.Supply
	if e := s.db.View().Where("user_id=? and asset_id=? and maturity=?", userID, assetID, maturity).First(&supply).Error; e != nil {
		if gorm.IsRecordNotFoundError(e) {
			return &core.Supply{}, nil
		}
		return nil, e
	}

	return &supply, nil
}

func (s *supplyStore) FindByUser(ctx context.Context, userID string) ([]*core.Supply, error) {
	var supplies []*core.Supply
	if e := s.db.View().Where("user_id=?", userID).Find(&supplies).Error; e != nil {
		return nil, e
	}

	return supplies, nil
}

func (s *supplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	version := supply.Version
	supply.Version++
	if err := tx.Update().Model(core.Supply{}).Where("id=? and version=?", supply.ID, version).Updates(supply).Error; err != nil {
		return err
	}

	return nil
}

func (s *supplyStore) Delete(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if err := tx.Update().Where("id=?", supply.ID).Delete(core.Supply{}).Error; err != nil {
		return err
	}

	return nil
}
