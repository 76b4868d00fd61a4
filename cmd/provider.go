package cmd

import (
	"context"
	"time"

	"termpool/core"
	"termpool/service/auditor"
	"termpool/service/liquidation"
	"termpool/service/oracle"
	poolservice "termpool/service/pool"
	"termpool/service/rate"
	"termpool/store/account"
	"termpool/store/borrow"
	"termpool/store/market"
	"termpool/store/pool"
	"termpool/store/supply"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideMarketStore(db *db.DB) core.IMarketStore {
	return market.New(db)
}

func providePoolStore(db *db.DB) core.IPoolStore {
	return pool.New(db)
}

func provideSupplyStore(db *db.DB) core.ISupplyStore {
	return supply.New(db)
}

func provideBorrowStore(db *db.DB) core.IBorrowStore {
	return borrow.New(db)
}

func provideAccountStore(db *db.DB) core.IAccountStore {
	return account.New(db)
}

// ------------------service------------------------------------

func provideRateService() core.IRateService {
	return rate.New()
}

func providePriceService() core.IPriceOracleService {
	return oracle.Cache(oracle.New(provideConfig()), 10*time.Second)
}

// system wires every market engine, the registry and the auditor together
type system struct {
	db           *db.DB
	marketStore  core.IMarketStore
	poolStore    core.IPoolStore
	supplyStore  core.ISupplyStore
	borrowStore  core.IBorrowStore
	accountStore core.IAccountStore
	rateService  core.IRateService
	priceService core.IPriceOracleService
	registry     *poolservice.Registry
	auditor      core.ILiquidityAuditor
	liquidation  *liquidation.Service
}

func provideSystem(db *db.DB) *system {
	s := &system{
		db:           db,
		marketStore:  provideMarketStore(db),
		poolStore:    providePoolStore(db),
		supplyStore:  provideSupplyStore(db),
		borrowStore:  provideBorrowStore(db),
		accountStore: provideAccountStore(db),
		rateService:  provideRateService(),
		priceService: providePriceService(),
		registry:     poolservice.NewRegistry(),
	}

	s.auditor = auditor.New(
		s.marketStore,
		s.priceService,
		auditor.NewMembershipStore(providePropertyStore(db)),
		s.registry,
	)

	markets, err := s.marketStore.All(context.Background())
	if err != nil {
		panic(err)
	}

	for _, m := range markets {
		engine := poolservice.New(
			db,
			s.marketStore,
			s.poolStore,
			s.supplyStore,
			s.borrowStore,
			s.accountStore,
			s.rateService,
			m.AssetID,
			cfg.App.PoolInterval,
		)
		engine.SetAuditor(s.auditor)
		if err := s.registry.Register(engine); err != nil {
			panic(err)
		}
	}

	s.liquidation = liquidation.New(db, s.marketStore, s.auditor, s.registry)
	return s
}
