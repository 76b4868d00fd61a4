package oracle

import (
	"context"
	"fmt"
	"time"

	"termpool/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// Cache wraps a price service with a short-lived ticker cache so the auditor's
// cross-market sweeps do not hammer the oracle endpoint.
func Cache(service core.IPriceOracleService, exp time.Duration) core.IPriceOracleService {
	return &cachePriceService{
		IPriceOracleService: service,
		cache:               gcache.New(512).LRU().Expiration(exp).Build(),
		sf:                  &singleflight.Group{},
	}
}

type cachePriceService struct {
	core.IPriceOracleService
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cachePriceService) PullPriceTicker(ctx context.Context, assetID string, t time.Time) (*core.PriceTicker, error) {
	key := s.tickerKey(assetID)
	if v, err := s.cache.Get(key); err == nil {
		if ticker, ok := v.(*core.PriceTicker); ok {
			return ticker, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ticker, err := s.IPriceOracleService.PullPriceTicker(ctx, assetID, t)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, ticker)
		return ticker, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.PriceTicker), nil
}

func (s *cachePriceService) tickerKey(assetID string) string {
	return fmt.Sprintf("price:ticker:%s", assetID)
}
