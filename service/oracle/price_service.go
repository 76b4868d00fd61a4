package oracle

import (
	"context"
	"fmt"
	"time"

	"termpool/core"
	"termpool/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// PriceService price service
type PriceService struct {
	Config *core.Config
}

// New new oracle price service
func New(config *core.Config) core.IPriceOracleService {
	return &PriceService{
		Config: config,
	}
}

// GetUnderlyingPrice get current price of market
func (s *PriceService) GetUnderlyingPrice(ctx context.Context, market *core.Market) (decimal.Decimal, error) {
	if market.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, core.ErrInvalidPrice
	}

	return market.Price, nil
}

// PullPriceTicker pull price ticker
func (s *PriceService) PullPriceTicker(ctx context.Context, assetID string, t time.Time) (*core.PriceTicker, error) {
	url := fmt.Sprintf("%s/api/v2/tickers/%s?ts=%d", s.Config.PriceOracle.EndPoint, assetID, t.UTC().Unix())
	logger.FromContext(ctx).Debugln("pull price:", url)
	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var price core.PriceTicker
	if err := resthttp.ParseResponse(resp, &price); err != nil {
		return nil, err
	}

	return &price, nil
}
