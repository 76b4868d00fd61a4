package rest

import (
	"errors"
	"net/http"

	"termpool/core"
	"termpool/handler/render"

	"github.com/go-chi/chi"
)

// EngineRegistry resolves the accounting engine of a market
type EngineRegistry interface {
	Get(assetID string) (core.IPoolAccounting, error)
}

// Handle handle rest api request
func Handle(
	cfg *core.Config,
	marketStore core.IMarketStore,
	poolStore core.IPoolStore,
	rateService core.IRateService,
	auditor core.ILiquidityAuditor,
	engines EngineRegistry,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/markets", allMarketsHandler(marketStore, engines))
	router.Get("/markets/{symbol}", marketHandler(cfg, marketStore, poolStore, rateService, engines))
	router.Get("/accounts/{user}/liquidity", liquidityHandler(auditor))
	router.Get("/accounts/{user}/markets/{symbol}", accountSnapshotHandler(marketStore, engines))

	return router
}
