package rest

import (
	"net/http"
	"strings"
	"time"

	"termpool/core"
	"termpool/handler/render"
	"termpool/handler/views"
	"termpool/internal/termpool"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func allMarketsHandler(marketStr core.IMarketStore, engines EngineRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets, e := marketStr.All(ctx)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		now := time.Now()
		marketViews := make([]*views.Market, 0, len(markets))
		for _, m := range markets {
			totalBorrows := decimal.Zero
			if engine, e := engines.Get(m.AssetID); e == nil {
				if v, e := engine.GetTotalBorrows(ctx, now); e == nil {
					totalBorrows = v
				}
			}

			marketViews = append(marketViews, &views.Market{
				Market:             *m,
				SmartPoolAvailable: m.SmartPoolAvailable(),
				TotalBorrows:       totalBorrows,
			})
		}

		render.JSON(w, marketViews)
	}
}

func marketHandler(cfg *core.Config, marketStr core.IMarketStore, poolStr core.IPoolStore, rateSrv core.IRateService, engines EngineRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		market, e := marketStr.FindBySymbol(ctx, symbol)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		pools, e := poolStr.FindByAsset(ctx, market.AssetID)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		now := time.Now()
		interval := cfg.App.PoolInterval

		poolViews := make([]*views.Pool, 0, len(pools))
		for _, p := range pools {
			state := termpool.State(interval, now.Unix(), p.Maturity, market.MaxFuturePools)
			poolViews = append(poolViews, &views.Pool{
				Maturity:            p.Maturity,
				State:               state.String(),
				Supplied:            p.Supplied,
				Borrowed:            p.Borrowed,
				SuppliedFromReserve: p.SuppliedFromReserve,
				UnassignedEarnings:  p.UnassignedEarnings,
				BorrowRate:          rateSrv.RateToBorrow(ctx, market, p, now),
			})
		}

		totalBorrows := decimal.Zero
		if engine, e := engines.Get(market.AssetID); e == nil {
			if v, e := engine.GetTotalBorrows(ctx, now); e == nil {
				totalBorrows = v
			}
		}

		render.JSON(w, &views.Market{
			Market:             *market,
			SmartPoolAvailable: market.SmartPoolAvailable(),
			TotalBorrows:       totalBorrows,
			Pools:              poolViews,
		})
	}
}
