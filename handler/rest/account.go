package rest

import (
	"net/http"
	"strings"
	"time"

	"termpool/core"
	"termpool/handler/render"
	"termpool/handler/views"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func liquidityHandler(auditor core.ILiquidityAuditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := chi.URLParam(r, "user")

		entered, e := auditor.EnteredMarkets(ctx, userID)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		liquidity, shortfall, e := auditor.AccountLiquidity(ctx, userID, time.Now(), "", decimal.Zero, decimal.Zero)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		render.JSON(w, &views.Liquidity{
			UserID:    userID,
			Liquidity: liquidity,
			Shortfall: shortfall,
			Markets:   entered,
		})
	}
}

func accountSnapshotHandler(marketStr core.IMarketStore, engines EngineRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := chi.URLParam(r, "user")

		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		market, e := marketStr.FindBySymbol(ctx, symbol)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		engine, e := engines.Get(market.AssetID)
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		snapshot, e := engine.GetAccountSnapshot(ctx, userID, time.Now())
		if e != nil {
			render.ErrorCode(w, e)
			return
		}

		render.JSON(w, &views.AccountSnapshot{
			AccountSnapshot: *snapshot,
			Symbol:          market.Symbol,
		})
	}
}
