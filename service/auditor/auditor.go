package auditor

import (
	"context"
	"time"

	"termpool/core"
	"termpool/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// EngineRegistry resolves the accounting engine of a market
type EngineRegistry interface {
	Get(assetID string) (core.IPoolAccounting, error)
}

type auditorService struct {
	marketStore  core.IMarketStore
	priceService core.IPriceOracleService
	memberships  MembershipStore
	engines      EngineRegistry
}

// New new liquidity auditor
func New(
	marketStore core.IMarketStore,
	priceService core.IPriceOracleService,
	memberships MembershipStore,
	engines EngineRegistry,
) core.ILiquidityAuditor {
	return &auditorService{
		marketStore:  marketStore,
		priceService: priceService,
		memberships:  memberships,
		engines:      engines,
	}
}

func (s *auditorService) EnterMarket(ctx context.Context, userID, assetID string) error {
	if _, err := s.marketStore.Find(ctx, assetID); err != nil {
		return err
	}

	entered, err := s.memberships.Load(ctx, userID)
	if err != nil {
		return err
	}

	for _, id := range entered {
		if id == assetID {
			return nil
		}
	}

	return s.memberships.Save(ctx, userID, append(entered, assetID))
}

func (s *auditorService) ExitMarket(ctx context.Context, userID, assetID string) error {
	engine, err := s.engines.Get(assetID)
	if err != nil {
		return err
	}

	now := time.Now()
	snapshot, err := engine.GetAccountSnapshot(ctx, userID, now)
	if err != nil {
		return err
	}
	if snapshot.Borrowed.IsPositive() {
		return core.ErrOperationForbidden
	}

	// leaving must not strand the remaining debt uncollateralized
	_, shortfall, err := s.AccountLiquidity(ctx, userID, now, assetID, snapshot.Supplied, decimal.Zero)
	if err != nil {
		return err
	}
	if shortfall.IsPositive() {
		return core.ErrInsufficientLiquidity
	}

	entered, err := s.memberships.Load(ctx, userID)
	if err != nil {
		return err
	}

	out := entered[:0]
	for _, id := range entered {
		if id != assetID {
			out = append(out, id)
		}
	}

	return s.memberships.Save(ctx, userID, out)
}

func (s *auditorService) EnteredMarkets(ctx context.Context, userID string) ([]string, error) {
	return s.memberships.Load(ctx, userID)
}

// AccountLiquidity aggregates the account's collateral and debt across every
// entered market into a common unit, optionally simulating a redeem and a
// borrow against one market. Raw balances are normalized by each market's
// decimals before pricing so tokens of unequal precision weigh equally.
func (s *auditorService) AccountLiquidity(ctx context.Context, userID string, now time.Time, modifyAssetID string, redeemAmount, borrowAmount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	log := logger.FromContext(ctx).WithField("service", "auditor")

	entered, err := s.memberships.Load(ctx, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	collateral := decimal.Zero
	debt := decimal.Zero

	for _, assetID := range entered {
		market, err := s.marketStore.Find(ctx, assetID)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}

		price, err := s.priceService.GetUnderlyingPrice(ctx, market)
		if err != nil {
			log.WithError(err).Errorln("get price", market.Symbol)
			return decimal.Zero, decimal.Zero, err
		}

		engine, err := s.engines.Get(assetID)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}

		snapshot, err := engine.GetAccountSnapshot(ctx, userID, now)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}

		supplied := snapshot.Supplied
		borrowed := snapshot.Borrowed
		if assetID == modifyAssetID {
			supplied = number.NonNegative(supplied.Sub(redeemAmount))
			borrowed = borrowed.Add(borrowAmount)
		}

		collateral = collateral.Add(
			supplied.Shift(-market.Decimals).Mul(price).Mul(market.CollateralFactor))
		debt = debt.Add(borrowed.Shift(-market.Decimals).Mul(price))
	}

	liquidity := number.NonNegative(collateral.Sub(debt))
	shortfall := number.NonNegative(debt.Sub(collateral))
	return liquidity, shortfall, nil
}

// BorrowAllowed gates a borrow on the simulated post-action liquidity. The
// borrow market joins the account's entered set so its debt always counts.
func (s *auditorService) BorrowAllowed(ctx context.Context, userID, assetID string, amount decimal.Decimal, now time.Time) error {
	if err := s.EnterMarket(ctx, userID, assetID); err != nil {
		return err
	}

	_, shortfall, err := s.AccountLiquidity(ctx, userID, now, assetID, decimal.Zero, amount)
	if err != nil {
		return err
	}
	if shortfall.IsPositive() {
		return core.ErrInsufficientLiquidity
	}

	return nil
}

// WithdrawAllowed gates a withdraw on the simulated post-action liquidity
func (s *auditorService) WithdrawAllowed(ctx context.Context, userID, assetID string, amount decimal.Decimal, now time.Time) error {
	_, shortfall, err := s.AccountLiquidity(ctx, userID, now, assetID, amount, decimal.Zero)
	if err != nil {
		return err
	}
	if shortfall.IsPositive() {
		return core.ErrInsufficientLiquidity
	}

	return nil
}

// SeizeAmount collateral units covering repayAmount of debt plus the
// liquidation incentive
func (s *auditorService) SeizeAmount(ctx context.Context, repayAmount decimal.Decimal, borrowMarket, collateralMarket *core.Market) (decimal.Decimal, error) {
	borrowPrice, err := s.priceService.GetUnderlyingPrice(ctx, borrowMarket)
	if err != nil {
		return decimal.Zero, err
	}

	collateralPrice, err := s.priceService.GetUnderlyingPrice(ctx, collateralMarket)
	if err != nil {
		return decimal.Zero, err
	}

	repayValue := repayAmount.Shift(-borrowMarket.Decimals).Mul(borrowPrice)
	seizeValue := repayValue.Mul(decimal.New(1, 0).Add(collateralMarket.LiquidationIncentive))

	seizeTokens := seizeValue.
		Div(collateralPrice).
		Shift(collateralMarket.Decimals).
		Truncate(core.MaxPrecision)

	return seizeTokens, nil
}
