package liquidation

import (
	"context"
	"time"

	"termpool/core"
	"termpool/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// EngineRegistry resolves the accounting engine of a market
type EngineRegistry interface {
	Get(assetID string) (core.IPoolAccounting, error)
}

// Result summarizes a settled liquidation
type Result struct {
	Repaid      decimal.Decimal `json:"repaid"`
	Seized      decimal.Decimal `json:"seized"`
	ProtocolFee decimal.Decimal `json:"protocol_fee"`
}

// Service settles liquidations across a debt market and a collateral market
type Service struct {
	db          core.Transactor
	marketStore core.IMarketStore
	auditor     core.ILiquidityAuditor
	engines     EngineRegistry
}

// New new liquidation service
func New(
	database core.Transactor,
	marketStore core.IMarketStore,
	auditor core.ILiquidityAuditor,
	engines EngineRegistry,
) *Service {
	return &Service{
		db:          database,
		marketStore: marketStore,
		auditor:     auditor,
		engines:     engines,
	}
}

// Liquidate repays maturity-pool debt of an underwater borrower and seizes a
// matching slice of the borrower's collateral for the liquidator, atomically.
func (s *Service) Liquidate(ctx context.Context, now time.Time, liquidator, borrower string, repayAssetID string, debtMaturity int64, repayAmount decimal.Decimal, collateralAssetID string, collateralMaturity int64) (*Result, error) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"service":  "liquidation",
		"borrower": borrower,
	})

	if liquidator == borrower {
		return nil, core.ErrOperationForbidden
	}
	if !repayAmount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	borrowMarket, err := s.marketStore.Find(ctx, repayAssetID)
	if err != nil {
		return nil, err
	}

	collateralMarket, err := s.marketStore.Find(ctx, collateralAssetID)
	if err != nil {
		return nil, err
	}

	_, shortfall, err := s.auditor.AccountLiquidity(ctx, borrower, now, "", decimal.Zero, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if !shortfall.IsPositive() {
		return nil, core.ErrLiquidateNotAllowed
	}

	debtEngine, err := s.engines.Get(repayAssetID)
	if err != nil {
		return nil, err
	}

	collateralEngine, err := s.engines.Get(collateralAssetID)
	if err != nil {
		return nil, err
	}

	snapshot, err := debtEngine.GetAccountSnapshot(ctx, borrower, now)
	if err != nil {
		return nil, err
	}

	// a single liquidation may close at most the close-factor share of the debt
	maxRepay := snapshot.Borrowed.Mul(borrowMarket.CloseFactor).Truncate(core.MaxPrecision)
	repayAmount = decimal.Min(repayAmount, maxRepay)
	if !repayAmount.IsPositive() {
		return nil, core.ErrLiquidateNotAllowed
	}

	var result Result
	err = s.db.Tx(func(tx *db.DB) error {
		repayResult, err := debtEngine.LiquidateRepay(ctx, tx, now, debtMaturity, borrower, repayAmount)
		if err != nil {
			return err
		}

		repaid := repayAmount.Sub(repayResult.Spare)
		result.Repaid = repaid

		seizeAmount, err := s.auditor.SeizeAmount(ctx, repaid, borrowMarket, collateralMarket)
		if err != nil {
			return err
		}

		seizeResult, err := collateralEngine.Seize(ctx, tx, now, collateralMaturity, borrower, liquidator, seizeAmount)
		if err != nil {
			return err
		}

		result.Seized = seizeResult.Seized
		result.ProtocolFee = seizeResult.ProtocolFee
		return nil
	})
	if err != nil {
		log.WithError(err).Errorln("liquidate")
		return nil, err
	}

	log.Infof("liquidated %s debt, seized %s collateral", result.Repaid, result.Seized)
	return &result, nil
}

// MaxCloseAmount the largest repay a liquidator may submit against the
// borrower's debt in the given market right now
func (s *Service) MaxCloseAmount(ctx context.Context, now time.Time, borrower, repayAssetID string) (decimal.Decimal, error) {
	market, err := s.marketStore.Find(ctx, repayAssetID)
	if err != nil {
		return decimal.Zero, err
	}

	engine, err := s.engines.Get(repayAssetID)
	if err != nil {
		return decimal.Zero, err
	}

	snapshot, err := engine.GetAccountSnapshot(ctx, borrower, now)
	if err != nil {
		return decimal.Zero, err
	}

	return number.NonNegative(snapshot.Borrowed.Mul(market.CloseFactor).Truncate(core.MaxPrecision)), nil
}
