package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
)

var (
	testCustody   = common.HexToAddress("0xcccc000000000000000000000000000000000001")
	testRouterAdr = common.HexToAddress("0xcccc000000000000000000000000000000000002")
	testNPMAddr   = common.HexToAddress("0xcccc000000000000000000000000000000000003")
	testAlice     = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	testBob       = common.HexToAddress("0xaaaa000000000000000000000000000000000002")
	testTokenA    = common.HexToAddress("0x1111000000000000000000000000000000000001")
	testTokenB    = common.HexToAddress("0x1111000000000000000000000000000000000002")

	testNow      = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testDeadline = testNow.Add(10 * time.Minute)
)

// fakeTokens is an in-memory ERC-20 ledger. The custody account is the
// "self" of Transfer and Approve, mirroring the on-chain adapter.
type fakeTokens struct {
	self       common.Address
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	approveCalls []approveCall

	transferErr     map[common.Address]error
	transferFromErr map[common.Address]error
	approveErr      map[common.Address]error
}

type approveCall struct {
	token   common.Address
	spender common.Address
	amount  *big.Int
}

func newFakeTokens(self common.Address) *fakeTokens {
	return &fakeTokens{
		self:            self,
		balances:        make(map[common.Address]map[common.Address]*big.Int),
		allowances:      make(map[common.Address]map[common.Address]*big.Int),
		transferErr:     make(map[common.Address]error),
		transferFromErr: make(map[common.Address]error),
		approveErr:      make(map[common.Address]error),
	}
}

func (f *fakeTokens) mint(token, holder common.Address, amount int64) {
	if f.balances[token] == nil {
		f.balances[token] = make(map[common.Address]*big.Int)
	}
	bal := f.balances[token][holder]
	if bal == nil {
		bal = big.NewInt(0)
	}
	f.balances[token][holder] = new(big.Int).Add(bal, big.NewInt(amount))
}

func (f *fakeTokens) balance(token, holder common.Address) *big.Int {
	if f.balances[token] == nil || f.balances[token][holder] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(f.balances[token][holder])
}

func (f *fakeTokens) move(token, from, to common.Address, amount *big.Int) error {
	if f.balance(token, from).Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance of %s at %s", token.Hex(), from.Hex())
	}
	f.balances[token][from] = new(big.Int).Sub(f.balances[token][from], amount)
	f.mint(token, to, 0)
	f.balances[token][to] = new(big.Int).Add(f.balances[token][to], amount)
	return nil
}

func (f *fakeTokens) Transfer(_ context.Context, token, to common.Address, amount *big.Int) error {
	if err := f.transferErr[token]; err != nil {
		return err
	}
	return f.move(token, f.self, to, amount)
}

func (f *fakeTokens) TransferFrom(_ context.Context, token, from, to common.Address, amount *big.Int) error {
	if err := f.transferFromErr[token]; err != nil {
		return err
	}
	return f.move(token, from, to, amount)
}

func (f *fakeTokens) Approve(_ context.Context, token, spender common.Address, amount *big.Int) error {
	if err := f.approveErr[token]; err != nil {
		return err
	}
	f.approveCalls = append(f.approveCalls, approveCall{token: token, spender: spender, amount: new(big.Int).Set(amount)})
	if f.allowances[token] == nil {
		f.allowances[token] = make(map[common.Address]*big.Int)
	}
	f.allowances[token][spender] = new(big.Int).Set(amount)
	return nil
}

func (f *fakeTokens) allowance(token, spender common.Address) *big.Int {
	if f.allowances[token] == nil || f.allowances[token][spender] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(f.allowances[token][spender])
}

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    dex.FeeTier
}

func newPoolKey(a, b common.Address, fee dex.FeeTier) poolKey {
	t0, t1 := dex.SortTokens(a, b)
	return poolKey{token0: t0, token1: t1, fee: fee}
}

// fakePools maps canonical pairs to pool addresses. Absent keys resolve
// to the zero address, meaning no pool at that tier.
type fakePools struct {
	pools map[poolKey]common.Address
	errs  map[poolKey]error
}

func newFakePools() *fakePools {
	return &fakePools{
		pools: make(map[poolKey]common.Address),
		errs:  make(map[poolKey]error),
	}
}

// add registers a pool for the pair at the tier, with a distinct
// address derived from the fee.
func (f *fakePools) add(a, b common.Address, fee dex.FeeTier) {
	f.pools[newPoolKey(a, b, fee)] = common.BigToAddress(big.NewInt(0xdead0000 + int64(fee)))
}

func (f *fakePools) PoolAddress(_ context.Context, a, b common.Address, fee dex.FeeTier) (common.Address, error) {
	key := newPoolKey(a, b, fee)
	if err := f.errs[key]; err != nil {
		return common.Address{}, err
	}
	return f.pools[key], nil
}

// fakeQuoter returns per-tier canned quotes. A tier with no entry
// errors, which the comparator treats as unavailable.
type fakeQuoter struct {
	exactIn  map[dex.FeeTier]*big.Int
	exactOut map[dex.FeeTier]*big.Int
	errIn    map[dex.FeeTier]error
	errOut   map[dex.FeeTier]error

	lastLimitIn  *big.Int
	lastLimitOut *big.Int
}

func newFakeQuoter() *fakeQuoter {
	return &fakeQuoter{
		exactIn:  make(map[dex.FeeTier]*big.Int),
		exactOut: make(map[dex.FeeTier]*big.Int),
		errIn:    make(map[dex.FeeTier]error),
		errOut:   make(map[dex.FeeTier]error),
	}
}

func (f *fakeQuoter) QuoteExactInput(_ context.Context, _, _ common.Address, fee dex.FeeTier, _, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	f.lastLimitIn = sqrtPriceLimitX96
	if err := f.errIn[fee]; err != nil {
		return nil, err
	}
	q := f.exactIn[fee]
	if q == nil {
		return nil, errors.New("quote reverted")
	}
	return new(big.Int).Set(q), nil
}

func (f *fakeQuoter) QuoteExactOutput(_ context.Context, _, _ common.Address, fee dex.FeeTier, _, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	f.lastLimitOut = sqrtPriceLimitX96
	if err := f.errOut[fee]; err != nil {
		return nil, err
	}
	q := f.exactOut[fee]
	if q == nil {
		return nil, errors.New("quote reverted")
	}
	return new(big.Int).Set(q), nil
}

// fakeRouter settles swaps against the fakeTokens ledger. It consumes
// the custody account's allowance, so a missing approval fails the swap
// the way the real contract would.
type fakeRouter struct {
	tokens  *fakeTokens
	custody common.Address

	actualOut *big.Int // settlement for exact input
	actualIn  *big.Int // settlement for exact output
	err       error

	lastInput  *dex.ExactInputParams
	lastOutput *dex.ExactOutputParams
}

func (f *fakeRouter) Address() common.Address { return testRouterAdr }

func (f *fakeRouter) Factory(_ context.Context) (common.Address, error) {
	return common.HexToAddress("0xcccc000000000000000000000000000000000004"), nil
}

func (f *fakeRouter) ExactInputSingle(_ context.Context, p dex.ExactInputParams) (*big.Int, error) {
	f.lastInput = &p
	if f.err != nil {
		return nil, f.err
	}
	if f.tokens.allowance(p.TokenIn, testRouterAdr).Cmp(p.AmountIn) < 0 {
		return nil, errors.New("STF: insufficient allowance")
	}
	if err := f.tokens.move(p.TokenIn, f.custody, testRouterAdr, p.AmountIn); err != nil {
		return nil, err
	}
	out := f.actualOut
	if out == nil {
		return nil, errors.New("no settlement configured")
	}
	f.tokens.mint(p.TokenOut, p.Recipient, out.Int64())
	return new(big.Int).Set(out), nil
}

func (f *fakeRouter) ExactOutputSingle(_ context.Context, p dex.ExactOutputParams) (*big.Int, error) {
	f.lastOutput = &p
	if f.err != nil {
		return nil, f.err
	}
	in := f.actualIn
	if in == nil {
		return nil, errors.New("no settlement configured")
	}
	if f.tokens.allowance(p.TokenIn, testRouterAdr).Cmp(in) < 0 {
		return nil, errors.New("STF: insufficient allowance")
	}
	if err := f.tokens.move(p.TokenIn, f.custody, testRouterAdr, in); err != nil {
		return nil, err
	}
	f.tokens.mint(p.TokenOut, p.Recipient, p.AmountOut.Int64())
	return new(big.Int).Set(in), nil
}

// fakePositions is an in-memory position registry backed by fakeTokens.
type fakePositions struct {
	tokens *fakeTokens

	owners map[string]common.Address
	token0 common.Address
	token1 common.Address

	liquidity *big.Int // increase settlement
	used0     *big.Int
	used1     *big.Int
	dec0      *big.Int // decrease settlement
	dec1      *big.Int

	incErr error
	decErr error
}

func newFakePositions(tokens *fakeTokens) *fakePositions {
	return &fakePositions{
		tokens:    tokens,
		owners:    make(map[string]common.Address),
		token0:    testTokenA,
		token1:    testTokenB,
		liquidity: big.NewInt(0),
		used0:     big.NewInt(0),
		used1:     big.NewInt(0),
		dec0:      big.NewInt(0),
		dec1:      big.NewInt(0),
	}
}

func (f *fakePositions) Address() common.Address { return testNPMAddr }

func (f *fakePositions) OwnerOf(_ context.Context, id *big.Int) (common.Address, error) {
	owner, ok := f.owners[id.String()]
	if !ok {
		return common.Address{}, errors.New("ERC721: invalid token ID")
	}
	return owner, nil
}

func (f *fakePositions) PositionTokens(_ context.Context, _ *big.Int) (common.Address, common.Address, error) {
	return f.token0, f.token1, nil
}

func (f *fakePositions) IncreaseLiquidity(_ context.Context, p dex.IncreaseLiquidityParams) (*big.Int, *big.Int, *big.Int, error) {
	if f.incErr != nil {
		return nil, nil, nil, f.incErr
	}
	if f.used0.Sign() > 0 {
		if f.tokens.allowance(f.token0, testNPMAddr).Cmp(f.used0) < 0 {
			return nil, nil, nil, errors.New("STF: insufficient allowance")
		}
		if err := f.tokens.move(f.token0, f.tokens.self, testNPMAddr, f.used0); err != nil {
			return nil, nil, nil, err
		}
	}
	if f.used1.Sign() > 0 {
		if f.tokens.allowance(f.token1, testNPMAddr).Cmp(f.used1) < 0 {
			return nil, nil, nil, errors.New("STF: insufficient allowance")
		}
		if err := f.tokens.move(f.token1, f.tokens.self, testNPMAddr, f.used1); err != nil {
			return nil, nil, nil, err
		}
	}
	return new(big.Int).Set(f.liquidity), new(big.Int).Set(f.used0), new(big.Int).Set(f.used1), nil
}

func (f *fakePositions) DecreaseLiquidity(_ context.Context, p dex.DecreaseLiquidityParams) (*big.Int, *big.Int, error) {
	if f.decErr != nil {
		return nil, nil, f.decErr
	}
	return new(big.Int).Set(f.dec0), new(big.Int).Set(f.dec1), nil
}

// fakeSink records published events.
type fakeSink struct {
	name   string
	events []Event
	err    error
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(_ context.Context, e Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeSink) byName(name string) []Event {
	var out []Event
	for _, e := range f.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}
