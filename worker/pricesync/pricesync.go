package pricesync

import (
	"context"
	"time"

	"termpool/core"
	"termpool/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Worker price sync worker: refreshes every market's oracle price so the
// liquidity auditor always values positions against a live quote.
type Worker struct {
	worker.BaseJob
	Config             *core.Config
	DB                 core.Transactor
	MarketStore        core.IMarketStore
	PriceOracleService core.IPriceOracleService
}

// New new price sync worker
func New(cfg *core.Config, database core.Transactor, marketStore core.IMarketStore, priceSrv core.IPriceOracleService) *Worker {
	job := Worker{
		Config:             cfg,
		DB:                 database,
		MarketStore:        marketStore,
		PriceOracleService: priceSrv,
	}

	l, _ := time.LoadLocation(job.Config.App.Location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 10s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "pricesync")

	markets, err := w.MarketStore.All(ctx)
	if err != nil {
		log.Errorln("fetch all markets error:", err)
		return err
	}

	if len(markets) <= 0 {
		log.Infoln("no market found")
		return nil
	}

	for _, m := range markets {
		ticker, e := w.PriceOracleService.PullPriceTicker(ctx, m.AssetID, time.Now())
		if e != nil {
			log.WithError(e).Errorln("pull price ticker:", m.Symbol)
			continue
		}
		if ticker.Price.LessThanOrEqual(decimal.Zero) {
			log.Errorln("invalid ticker price:", ticker.Symbol, ":", ticker.Price)
			continue
		}

		if e := w.updateMarketPrice(ctx, m.AssetID, ticker.Price); e != nil {
			log.WithError(e).Errorln("update market price:", m.Symbol)
		}
	}

	return nil
}

func (w *Worker) updateMarketPrice(ctx context.Context, assetID string, price decimal.Decimal) error {
	return w.DB.Tx(func(tx *db.DB) error {
		market, e := w.MarketStore.Find(ctx, assetID)
		if e != nil {
			return e
		}

		if market.Price.Equal(price) {
			return nil
		}

		market.Price = price
		return w.MarketStore.Update(ctx, tx, market)
	})
}
