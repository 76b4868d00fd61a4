package pool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"termpool/core"
	"termpool/internal/termpool"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testAssetID = "a1b2c3d4-0000-0000-0000-000000000001"

type fakeMarketStore struct {
	markets map[string]*core.Market
}

func (s *fakeMarketStore) snapshot() func() {
	saved := map[string]*core.Market{}
	for k, v := range s.markets {
		c := *v
		saved[k] = &c
	}
	return func() { s.markets = saved }
}

func (s *fakeMarketStore) Save(ctx context.Context, tx *db.DB, market *core.Market) error {
	c := *market
	s.markets[market.AssetID] = &c
	return nil
}

func (s *fakeMarketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	market, ok := s.markets[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}
	c := *market
	return &c, nil
}

func (s *fakeMarketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	for _, market := range s.markets {
		if market.Symbol == symbol {
			c := *market
			return &c, nil
		}
	}
	return nil, core.ErrMarketNotFound
}

func (s *fakeMarketStore) All(ctx context.Context) ([]*core.Market, error) {
	var out []*core.Market
	for _, market := range s.markets {
		c := *market
		out = append(out, &c)
	}
	return out, nil
}

func (s *fakeMarketStore) Update(ctx context.Context, tx *db.DB, market *core.Market) error {
	c := *market
	s.markets[market.AssetID] = &c
	return nil
}

type fakePoolStore struct {
	now   int64
	pools map[string]*core.MaturityPool
}

func poolKey(assetID string, maturity int64) string {
	return fmt.Sprintf("%s/%d", assetID, maturity)
}

func (s *fakePoolStore) snapshot() func() {
	saved := map[string]*core.MaturityPool{}
	for k, v := range s.pools {
		c := *v
		saved[k] = &c
	}
	return func() { s.pools = saved }
}

func (s *fakePoolStore) Save(ctx context.Context, tx *db.DB, pool *core.MaturityPool) error {
	c := *pool
	s.pools[poolKey(pool.AssetID, pool.Maturity)] = &c
	return nil
}

func (s *fakePoolStore) FindOrCreate(ctx context.Context, tx *db.DB, assetID string, maturity int64) (*core.MaturityPool, error) {
	if pool, ok := s.pools[poolKey(assetID, maturity)]; ok {
		c := *pool
		return &c, nil
	}

	pool := &core.MaturityPool{
		ID:                  uint64(len(s.pools) + 1),
		AssetID:             assetID,
		Maturity:            maturity,
		Supplied:            decimal.Zero,
		Borrowed:            decimal.Zero,
		SuppliedFromReserve: decimal.Zero,
		UnassignedEarnings:  decimal.Zero,
		LastAccrual:         s.now,
	}
	s.pools[poolKey(assetID, maturity)] = pool
	c := *pool
	return &c, nil
}

func (s *fakePoolStore) Find(ctx context.Context, assetID string, maturity int64) (*core.MaturityPool, error) {
	if pool, ok := s.pools[poolKey(assetID, maturity)]; ok {
		c := *pool
		return &c, nil
	}
	return &core.MaturityPool{}, nil
}

func (s *fakePoolStore) FindByAsset(ctx context.Context, assetID string) ([]*core.MaturityPool, error) {
	var out []*core.MaturityPool
	for _, pool := range s.pools {
		if pool.AssetID == assetID {
			c := *pool
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakePoolStore) Update(ctx context.Context, tx *db.DB, pool *core.MaturityPool) error {
	c := *pool
	s.pools[poolKey(pool.AssetID, pool.Maturity)] = &c
	return nil
}

type fakeSupplyStore struct {
	nextID   uint64
	supplies map[string]*core.Supply
}

func positionKey(userID, assetID string, maturity int64) string {
	return fmt.Sprintf("%s/%s/%d", userID, assetID, maturity)
}

func (s *fakeSupplyStore) snapshot() func() {
	saved := map[string]*core.Supply{}
	for k, v := range s.supplies {
		c := *v
		saved[k] = &c
	}
	nextID := s.nextID
	return func() { s.supplies, s.nextID = saved, nextID }
}

func (s *fakeSupplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	s.nextID++
	supply.ID = s.nextID
	c := *supply
	s.supplies[positionKey(supply.UserID, supply.AssetID, supply.Maturity)] = &c
	return nil
}

func (s *fakeSupplyStore) Find(ctx context.Context, userID, assetID string, maturity int64) (*core.Supply, error) {
	if supply, ok := s.supplies[positionKey(userID, assetID, maturity)]; ok {
		c := *supply
		return &c, nil
	}
	return &core.Supply{}, nil
}

func (s *fakeSupplyStore) FindByUser(ctx context.Context, userID string) ([]*core.Supply, error) {
	var out []*core.Supply
	for _, supply := range s.supplies {
		if supply.UserID == userID {
			c := *supply
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeSupplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	c := *supply
	s.supplies[positionKey(supply.UserID, supply.AssetID, supply.Maturity)] = &c
	return nil
}

func (s *fakeSupplyStore) Delete(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	delete(s.supplies, positionKey(supply.UserID, supply.AssetID, supply.Maturity))
	return nil
}

type fakeBorrowStore struct {
	nextID  uint64
	borrows map[string]*core.Borrow
}

func (s *fakeBorrowStore) snapshot() func() {
	saved := map[string]*core.Borrow{}
	for k, v := range s.borrows {
		c := *v
		saved[k] = &c
	}
	nextID := s.nextID
	return func() { s.borrows, s.nextID = saved, nextID }
}

func (s *fakeBorrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	s.nextID++
	borrow.ID = s.nextID
	c := *borrow
	s.borrows[positionKey(borrow.UserID, borrow.AssetID, borrow.Maturity)] = &c
	return nil
}

func (s *fakeBorrowStore) Find(ctx context.Context, userID, assetID string, maturity int64) (*core.Borrow, error) {
	if borrow, ok := s.borrows[positionKey(userID, assetID, maturity)]; ok {
		c := *borrow
		return &c, nil
	}
	return &core.Borrow{}, nil
}

func (s *fakeBorrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	var out []*core.Borrow
	for _, borrow := range s.borrows {
		if borrow.UserID == userID {
			c := *borrow
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeBorrowStore) FindByAsset(ctx context.Context, assetID string) ([]*core.Borrow, error) {
	var out []*core.Borrow
	for _, borrow := range s.borrows {
		if borrow.AssetID == assetID {
			c := *borrow
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeBorrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	c := *borrow
	s.borrows[positionKey(borrow.UserID, borrow.AssetID, borrow.Maturity)] = &c
	return nil
}

func (s *fakeBorrowStore) Delete(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	delete(s.borrows, positionKey(borrow.UserID, borrow.AssetID, borrow.Maturity))
	return nil
}

type fakeAccountStore struct {
	nextID   uint64
	accounts map[string]*core.AccountIndex
}

func accountKey(userID, assetID string) string {
	return fmt.Sprintf("%s/%s", userID, assetID)
}

func (s *fakeAccountStore) snapshot() func() {
	saved := map[string]*core.AccountIndex{}
	for k, v := range s.accounts {
		c := *v
		saved[k] = &c
	}
	nextID := s.nextID
	return func() { s.accounts, s.nextID = saved, nextID }
}

func (s *fakeAccountStore) Save(ctx context.Context, tx *db.DB, index *core.AccountIndex) error {
	s.nextID++
	index.ID = s.nextID
	c := *index
	s.accounts[accountKey(index.UserID, index.AssetID)] = &c
	return nil
}

func (s *fakeAccountStore) FindOrCreate(ctx context.Context, tx *db.DB, userID, assetID string) (*core.AccountIndex, error) {
	if index, ok := s.accounts[accountKey(userID, assetID)]; ok {
		c := *index
		return &c, nil
	}

	index := &core.AccountIndex{UserID: userID, AssetID: assetID}
	if err := index.SetSupplySet(core.NewMaturitySet()); err != nil {
		return nil, err
	}
	if err := index.SetBorrowSet(core.NewMaturitySet()); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, tx, index); err != nil {
		return nil, err
	}
	c := *index
	return &c, nil
}

func (s *fakeAccountStore) Find(ctx context.Context, userID, assetID string) (*core.AccountIndex, error) {
	if index, ok := s.accounts[accountKey(userID, assetID)]; ok {
		c := *index
		return &c, nil
	}
	return &core.AccountIndex{}, nil
}

func (s *fakeAccountStore) FindByUser(ctx context.Context, userID string) ([]*core.AccountIndex, error) {
	var out []*core.AccountIndex
	for _, index := range s.accounts {
		if index.UserID == userID {
			c := *index
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeAccountStore) Update(ctx context.Context, tx *db.DB, index *core.AccountIndex) error {
	c := *index
	s.accounts[accountKey(index.UserID, index.AssetID)] = &c
	return nil
}

type restorable interface {
	snapshot() func()
}

// fakeDB emulates transaction semantics over the in-memory stores: on failure
// every store rolls back to its pre-transaction state.
type fakeDB struct {
	stores []restorable
}

func (f *fakeDB) Tx(fn func(tx *db.DB) error) error {
	restores := make([]func(), 0, len(f.stores))
	for _, s := range f.stores {
		restores = append(restores, s.snapshot())
	}

	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fakeRateService struct {
	borrowRate     decimal.Decimal
	penaltyRate    decimal.Decimal
	reserveFeeRate decimal.Decimal
}

func (s *fakeRateService) RateToBorrow(ctx context.Context, market *core.Market, pool *core.MaturityPool, now time.Time) decimal.Decimal {
	return s.borrowRate
}

func (s *fakeRateService) YieldForDeposit(ctx context.Context, market *core.Market, pool *core.MaturityPool, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return termpool.YieldForDeposit(pool.SuppliedFromReserve, pool.UnassignedEarnings, amount, s.reserveFeeRate)
}

func (s *fakeRateService) PenaltyRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return s.penaltyRate
}

type fixtures struct {
	db       *fakeDB
	markets  *fakeMarketStore
	pools    *fakePoolStore
	supplies *fakeSupplyStore
	borrows  *fakeBorrowStore
	accounts *fakeAccountStore
	rates    *fakeRateService
	engine   *Accounting
}

func newFixtures(t *testing.T, market *core.Market) *fixtures {
	t.Helper()

	f := &fixtures{
		markets:  &fakeMarketStore{markets: map[string]*core.Market{}},
		pools:    &fakePoolStore{pools: map[string]*core.MaturityPool{}},
		supplies: &fakeSupplyStore{supplies: map[string]*core.Supply{}},
		borrows:  &fakeBorrowStore{borrows: map[string]*core.Borrow{}},
		accounts: &fakeAccountStore{accounts: map[string]*core.AccountIndex{}},
		rates: &fakeRateService{
			borrowRate:     decimal.RequireFromString("0.1"),
			penaltyRate:    decimal.RequireFromString("0.000001"),
			reserveFeeRate: decimal.Zero,
		},
	}
	f.db = &fakeDB{stores: []restorable{f.markets, f.pools, f.supplies, f.borrows, f.accounts}}
	f.markets.markets[market.AssetID] = market

	f.engine = New(f.db, f.markets, f.pools, f.supplies, f.borrows, f.accounts, f.rates, market.AssetID, termpool.DefaultInterval)
	return f
}

func testMarket() *core.Market {
	return &core.Market{
		AssetID:       testAssetID,
		Symbol:        "BTC",
		Decimals:      8,
		SmartPoolCap:  decimal.RequireFromString("10000"),
		ReserveFactor: decimal.RequireFromString("0.2"),
		SeizeShare:    decimal.RequireFromString("0.1"),
		MaxFuturePools: 12,
	}
}

func num(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDepositBorrowRepayLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	dep, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, dep.TotalCredited.Equal(num("1000")))

	brw, err := f.engine.Borrow(ctx, t0, maturity, "bob", num("800"), num("900"))
	require.NoError(t, err)
	require.True(t, brw.TotalOwed.Equal(num("880")), "fee locked at 10%%: %s", brw.TotalOwed)
	// the pool covered the draw itself, the whole fee amortizes to depositors
	require.True(t, brw.EarningsTreasury.IsZero())

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.Borrowed.Equal(num("800")))
	require.True(t, pl.SuppliedFromReserve.IsZero())
	require.True(t, pl.UnassignedEarnings.Equal(num("80")))

	// settle the full debt exactly at maturity
	tm := time.Unix(maturity, 0)
	rep, err := f.engine.Repay(ctx, tm, maturity, "bob", num("880"), num("880"))
	require.NoError(t, err)
	require.True(t, rep.DebtCovered.Equal(num("880")))
	require.True(t, rep.Spare.IsZero())
	// the unreleased earnings flush to the smart pool at maturity
	require.True(t, rep.EarningsReserve.Equal(num("80")))

	pl, err = f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.Borrowed.IsZero())
	require.True(t, pl.UnassignedEarnings.IsZero())

	borrow, err := f.borrows.Find(ctx, "bob", testAssetID, maturity)
	require.NoError(t, err)
	require.Equal(t, uint64(0), borrow.ID, "cleared debt leaves no row")

	index, err := f.accounts.Find(ctx, "bob", testAssetID)
	require.NoError(t, err)
	set, err := index.BorrowSet()
	require.NoError(t, err)
	require.Equal(t, 0, set.Len())

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolEarnings.Equal(num("80")))
	require.True(t, market.Reserves.IsZero())
	require.True(t, market.SmartPoolBorrowed.IsZero())
}

func TestBorrowDrawsFromSmartPool(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("100"), decimal.Zero)
	require.NoError(t, err)

	brw, err := f.engine.Borrow(ctx, t0, maturity, "bob", num("500"), num("600"))
	require.NoError(t, err)
	require.True(t, brw.TotalOwed.Equal(num("550")))

	// 400 of the 500 principal came from the smart pool: 4/5 of the 50 fee
	// belongs to the backers, 20% of that to the treasury
	require.True(t, brw.EarningsTreasury.Equal(num("8")), "treasury: %s", brw.EarningsTreasury)
	require.True(t, brw.EarningsReserve.Equal(num("32")), "reserve: %s", brw.EarningsReserve)

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolBorrowed.Equal(num("400")))
	require.True(t, market.Reserves.Equal(num("8")))
	require.True(t, market.SmartPoolEarnings.Equal(num("32")))

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.SuppliedFromReserve.Equal(num("400")))
	require.True(t, pl.UnassignedEarnings.Equal(num("10")))
}

func TestBorrowBeyondCapRollsBack(t *testing.T) {
	ctx := context.Background()
	market := testMarket()
	market.SmartPoolCap = num("300")
	f := newFixtures(t, market)

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("100"), decimal.Zero)
	require.NoError(t, err)

	_, err = f.engine.Borrow(ctx, t0, maturity, "bob", num("500"), num("600"))
	require.Equal(t, core.ErrInsufficientReserve, err)

	// the failed draw left no trace
	market, err = f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolBorrowed.IsZero())

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.Borrowed.IsZero())

	borrow, err := f.borrows.Find(ctx, "bob", testAssetID, maturity)
	require.NoError(t, err)
	require.Equal(t, uint64(0), borrow.ID)
}

func TestWithdrawBeforeMaturityDiscounts(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)

	wdr, err := f.engine.Withdraw(ctx, t0, maturity, "alice", num("500"), decimal.Zero)
	require.NoError(t, err)

	want := num("500").Div(num("1.1")).Truncate(core.MaxPrecision)
	require.True(t, wdr.AmountPaid.Equal(want), "discounted payout: %s", wdr.AmountPaid)
	require.True(t, wdr.AmountPaid.LessThan(num("500")))

	// the forfeited discount stays in the pool as unassigned earnings
	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.UnassignedEarnings.Equal(num("500").Sub(want)))

	supply, err := f.supplies.Find(ctx, "alice", testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, supply.Position().FullAmount().Equal(num("500")))
}

func TestWithdrawAtMaturityPaysFace(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)

	// asking for more than the position settles the whole position undiscounted
	tm := time.Unix(maturity+10, 0)
	wdr, err := f.engine.Withdraw(ctx, tm, maturity, "alice", num("2000"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, wdr.AmountPaid.Equal(num("1000")))

	supply, err := f.supplies.Find(ctx, "alice", testAssetID, maturity)
	require.NoError(t, err)
	require.Equal(t, uint64(0), supply.ID)

	index, err := f.accounts.Find(ctx, "alice", testAssetID)
	require.NoError(t, err)
	set, err := index.SupplySet()
	require.NoError(t, err)
	require.Equal(t, 0, set.Len())

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.Supplied.IsZero())
}

func TestRepayOverduePaysPenalty(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)

	_, err = f.engine.Borrow(ctx, t0, maturity, "bob", num("800"), num("900"))
	require.NoError(t, err)

	// one day overdue at 1e-6 per second: penalty 880 * 0.000001 * 86400
	late := time.Unix(maturity+termpool.SecondsPerDay, 0)
	rep, err := f.engine.Repay(ctx, late, maturity, "bob", num("1000"), num("1000"))
	require.NoError(t, err)

	require.True(t, rep.DebtCovered.Equal(num("880")), "covered: %s", rep.DebtCovered)
	require.True(t, rep.Spare.Equal(num("1000").Sub(num("956.032"))), "spare: %s", rep.Spare)

	borrow, err := f.borrows.Find(ctx, "bob", testAssetID, maturity)
	require.NoError(t, err)
	require.Equal(t, uint64(0), borrow.ID)
}

func TestOverduePenaltyReleasesOnNextAccrual(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)

	_, err = f.engine.Borrow(ctx, t0, maturity, "bob", num("800"), num("900"))
	require.NoError(t, err)

	// the overdue repay sweeps the 80 borrow fee to the backers and locks the
	// depositor share of the 76.032 penalty into the matured pool
	late := time.Unix(maturity+termpool.SecondsPerDay, 0)
	_, err = f.engine.Repay(ctx, late, maturity, "bob", num("1000"), num("1000"))
	require.NoError(t, err)

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolEarnings.Equal(num("80")), "earnings: %s", market.SmartPoolEarnings)

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.UnassignedEarnings.Equal(num("76.032")), "unassigned: %s", pl.UnassignedEarnings)

	// past maturity nothing stays unassigned: the next sweep releases it
	later := time.Unix(maturity+2*termpool.SecondsPerDay, 0)
	require.NoError(t, f.engine.AccrueAll(ctx, later))

	market, err = f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolEarnings.Equal(num("156.032")), "earnings: %s", market.SmartPoolEarnings)

	pl, err = f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.UnassignedEarnings.IsZero())
}

func TestRepayWithoutDebt(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Repay(ctx, t0, maturity, "bob", num("100"), num("100"))
	require.Equal(t, core.ErrBorrowNotFound, err)
}

func TestDepositEarnsYield(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("100"), decimal.Zero)
	require.NoError(t, err)

	_, err = f.engine.Borrow(ctx, t0, maturity, "bob", num("500"), num("600"))
	require.NoError(t, err)

	// pool now carries a 400 smart pool draw and 10 unassigned earnings; a 200
	// deposit retires half the draw and earns half the unassigned pot
	dep, err := f.engine.Deposit(ctx, t0, maturity, "carol", num("200"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, dep.TotalCredited.Equal(num("205")), "credited: %s", dep.TotalCredited)

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolBorrowed.Equal(num("200")))

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.SuppliedFromReserve.Equal(num("200")))
	require.True(t, pl.UnassignedEarnings.Equal(num("5")))

	supply, err := f.supplies.Find(ctx, "carol", testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, supply.Position().FullAmount().Equal(num("205")))
}

func TestDepositSlippageGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("100"), num("101"))
	require.Equal(t, core.ErrExcessiveSlippage, err)
}

func TestOperationsRejectInvalidPools(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	f.pools.now = t0.Unix()

	// unaligned maturity
	_, err := f.engine.Deposit(ctx, t0, termpool.DefaultInterval+3, "alice", num("100"), decimal.Zero)
	require.Equal(t, core.ErrInvalidPoolID, err)

	// too far in the future
	far := int64(termpool.DefaultInterval) * 20
	_, err = f.engine.Deposit(ctx, t0, far, "alice", num("100"), decimal.Zero)
	require.Equal(t, core.ErrUnmatchedPoolState, err)

	// matured pools accept no new principal
	tm := time.Unix(2*termpool.DefaultInterval, 0)
	_, err = f.engine.Borrow(ctx, tm, termpool.DefaultInterval, "bob", num("100"), num("200"))
	require.Equal(t, core.ErrUnmatchedPoolState, err)

	// zero and negative maturities never open a pool
	_, err = f.engine.Deposit(ctx, t0, 0, "alice", num("100"), decimal.Zero)
	require.Equal(t, core.ErrUnmatchedPoolState, err)

	_, err = f.engine.Borrow(ctx, t0, -termpool.DefaultInterval, "bob", num("100"), num("200"))
	require.Equal(t, core.ErrUnmatchedPoolState, err)

	pl, err := f.pools.Find(ctx, testAssetID, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pl.ID)
}

func TestSeizeTransfersCollateral(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "bob", num("1000"), decimal.Zero)
	require.NoError(t, err)

	var seize *core.SeizeResult
	err = f.db.Tx(func(tx *db.DB) error {
		var err error
		seize, err = f.engine.Seize(ctx, tx, t0, maturity, "bob", "liquidator", num("500"))
		return err
	})
	require.NoError(t, err)

	// 10% protocol share goes to the reserves, the rest to the liquidator
	require.True(t, seize.ProtocolFee.Equal(num("50")))
	require.True(t, seize.Seized.Equal(num("450")))

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.Reserves.Equal(num("50")))

	bob, err := f.supplies.Find(ctx, "bob", testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, bob.Position().FullAmount().Equal(num("500")))

	liq, err := f.supplies.Find(ctx, "liquidator", testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, liq.Position().FullAmount().Equal(num("450")))

	// the protocol share left the supplier ledger, so Supplied comes down with it
	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.Supplied.Equal(num("950")), "supplied: %s", pl.Supplied)
	sum := bob.Position().FullAmount().Add(liq.Position().FullAmount())
	require.True(t, pl.Supplied.Equal(sum))
}

func TestSeizeTooMuch(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "bob", num("100"), decimal.Zero)
	require.NoError(t, err)

	err = f.db.Tx(func(tx *db.DB) error {
		_, err := f.engine.Seize(ctx, tx, t0, maturity, "bob", "liquidator", num("500"))
		return err
	})
	require.Equal(t, core.ErrSeizeTooMuch, err)

	bob, err := f.supplies.Find(ctx, "bob", testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, bob.Position().FullAmount().Equal(num("100")))
}

func TestGetAccountSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(100, 0)
	m1 := int64(termpool.DefaultInterval)
	m2 := int64(termpool.DefaultInterval) * 2
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, m1, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)
	_, err = f.engine.Deposit(ctx, t0, m2, "alice", num("500"), decimal.Zero)
	require.NoError(t, err)
	_, err = f.engine.Borrow(ctx, t0, m1, "alice", num("200"), num("300"))
	require.NoError(t, err)

	snapshot, err := f.engine.GetAccountSnapshot(ctx, "alice", t0)
	require.NoError(t, err)
	require.True(t, snapshot.Supplied.Equal(num("1500")))
	require.True(t, snapshot.Borrowed.Equal(num("220")))
}

func TestAccrueAll(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t, testMarket())

	t0 := time.Unix(0, 0)
	maturity := int64(termpool.DefaultInterval)
	f.pools.now = t0.Unix()

	_, err := f.engine.Deposit(ctx, t0, maturity, "alice", num("1000"), decimal.Zero)
	require.NoError(t, err)
	_, err = f.engine.Borrow(ctx, t0, maturity, "bob", num("800"), num("900"))
	require.NoError(t, err)

	// halfway to maturity half the 80 unassigned earnings release
	half := time.Unix(maturity/2, 0)
	require.NoError(t, f.engine.AccrueAll(ctx, half))

	market, err := f.markets.Find(ctx, testAssetID)
	require.NoError(t, err)
	require.True(t, market.SmartPoolEarnings.Equal(num("40")), "earnings: %s", market.SmartPoolEarnings)

	pl, err := f.pools.Find(ctx, testAssetID, maturity)
	require.NoError(t, err)
	require.True(t, pl.UnassignedEarnings.Equal(num("40")))
	require.Equal(t, maturity/2, pl.LastAccrual)
}
