package pool

import (
	"context"
	"time"

	"termpool/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type poolStore struct {
	db *db.DB
}

// New new maturity pool store
func New(db *db.DB) core.IPoolStore {
	return &poolStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.MaturityPool{})
		if err := tx.AutoMigrate(core.MaturityPool{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *poolStore) Save(ctx context.Context, tx *db.DB, pool *core.MaturityPool) error {
	if err := tx.Update().Create(pool).Error; err != nil {
		return err
	}
	return nil
}

func (s *poolStore) FindOrCreate(ctx context.Context, tx *db.DB, assetID string, maturity int64) (*core.MaturityPool, error) {
	var pool core.MaturityPool
	err := tx.Update().Where("asset_id=? and maturity=?", assetID, maturity).First(&pool).Error
	if err == nil {
		return &pool, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	// fresh pools start accruing from now, not from the epoch
	pool = core.MaturityPool{
		AssetID:             assetID,
		Maturity:            maturity,
		Supplied:            decimal.Zero,
		Borrowed:            decimal.Zero,
		SuppliedFromReserve: decimal.Zero,
		UnassignedEarnings:  decimal.Zero,
		LastAccrual:         time.Now().Unix(),
	}
	if err := tx.Update().Create(&pool).Error; err != nil {
		return nil, err
	}

	return &pool, nil
}

func (s *poolStore) Find(ctx context.Context, assetID string, maturity int64) (*core.MaturityPool, error) {
	var pool core.MaturityPool
	if err := s.db.View().Where("asset_id=? and maturity=?", assetID, maturity).First(&pool).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.MaturityPool{}, nil
		}
		return nil, err
	}

	return &pool, nil
}

func (s *poolStore) FindByAsset(ctx context.Context, assetID string) ([]*core.MaturityPool, error) {
	var pools []*core.MaturityPool
	if err := s.db.View().Where("asset_id=?", assetID).Order("maturity").Find(&pools).Error; err != nil {
		return nil, err
	}

	return pools, nil
}

func (s *poolStore) Update(ctx context.Context, tx *db.DB, pool *core.MaturityPool) error {
	version := pool.Version
	pool.Version++
	if err := tx.Update().Model(core.MaturityPool{}).Where("id=? and version=?", pool.ID, version).Update(pool).Error; err != nil {
		return err
	}

	return nil
}
