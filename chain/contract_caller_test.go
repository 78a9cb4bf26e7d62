package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers eth_call with canned return values packed by the real ABI
type fakeBackend struct {
	mu sync.Mutex

	responses map[string][]interface{}
	callCount map[string]int
	lastCall  map[string][]byte

	chainID     *big.Int
	balance     *big.Int
	gasPrice    *big.Int
	gasEstimate uint64
	sent        []*types.Transaction

	receipts       map[common.Hash]*types.Receipt
	receiptMisses  int
	receiptLookups int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses:   make(map[string][]interface{}),
		callCount:   make(map[string]int),
		lastCall:    make(map[string][]byte),
		chainID:     big.NewInt(1),
		balance:     new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
		gasPrice:    big.NewInt(1_000_000_000),
		gasEstimate: 100_000,
		receipts:    make(map[common.Hash]*types.Receipt),
	}
}

func methodOf(data []byte) (*abi.Method, error) {
	for _, parsed := range []abi.ABI{seaportABI, erc20ABI, erc721ABI} {
		if method, err := parsed.MethodById(data[:4]); err == nil {
			return method, nil
		}
	}
	return nil, fmt.Errorf("unknown selector %x", data[:4])
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := methodOf(call.Data)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount[method.Name]++
	f.lastCall[method.Name] = call.Data
	values, ok := f.responses[method.Name]
	if !ok {
		return nil, fmt.Errorf("no response for %s", method.Name)
	}
	return method.Outputs.Pack(values...)
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return f.gasEstimate, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptLookups++
	if f.receiptLookups <= f.receiptMisses {
		return nil, ethereum.NotFound
	}
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func newTestCaller(t *testing.T, withKey bool) (*ContractCaller, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	if !withKey {
		return NewContractCallerWithBackend(backend, nil, testSeaport), backend
	}
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewContractCallerWithBackend(backend, key, testSeaport), backend
}

func TestContractCallerReads(t *testing.T) {
	cc, backend := newTestCaller(t, false)
	ctx := context.Background()

	backend.responses["getCounter"] = []interface{}{big.NewInt(7)}
	counter, err := cc.GetCounter(ctx, common.HexToAddress(seller))
	require.NoError(t, err)
	assert.Equal(t, int64(7), counter.Int64())

	expected, err := seaportABI.Pack("getCounter", common.HexToAddress(seller))
	require.NoError(t, err)
	assert.Equal(t, expected, backend.lastCall["getCounter"])

	backend.responses["getOrderStatus"] = []interface{}{true, false, big.NewInt(1), big.NewInt(2)}
	status, err := cc.GetOrderStatus(ctx, common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.True(t, status.IsValidated)
	assert.False(t, status.IsCancelled)
	assert.Equal(t, int64(1), status.TotalFilled.Int64())
	assert.Equal(t, int64(2), status.TotalSize.Int64())
}

func TestContractCallerGetOrderHash(t *testing.T) {
	cc, backend := newTestCaller(t, false)
	components := testComponents(common.HexToAddress(seller))
	components.Offer[0].EndAmount = nil

	want := common.HexToHash("0xabcdef")
	backend.responses["getOrderHash"] = []interface{}{want}

	got, err := cc.GetOrderHash(context.Background(), components)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Nil amounts are sent as zero
	method := seaportABI.Methods["getOrderHash"]
	args, err := method.Inputs.Unpack(backend.lastCall["getOrderHash"][4:])
	require.NoError(t, err)
	require.Len(t, args, 1)
}

func TestContractCallerTokenReads(t *testing.T) {
	cc, backend := newTestCaller(t, false)
	ctx := context.Background()
	token := common.HexToAddress(testToken)

	backend.responses["allowance"] = []interface{}{big.NewInt(55)}
	allowance, err := cc.Allowance(ctx, token, testOwner, testSpender)
	require.NoError(t, err)
	assert.Equal(t, int64(55), allowance.Int64())

	backend.responses["isApprovedForAll"] = []interface{}{true}
	approved, err := cc.IsApprovedForAll(ctx, token, testOwner, testSpender)
	require.NoError(t, err)
	assert.True(t, approved)

	backend.responses["getApproved"] = []interface{}{testSpender}
	operator, err := cc.GetApproved(ctx, token, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, testSpender, operator)

	backend.responses["decimals"] = []interface{}{uint8(6)}
	for i := 0; i < 3; i++ {
		decimals, err := cc.TokenDecimals(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, uint8(6), decimals)
	}
	assert.Equal(t, 1, backend.callCount["decimals"])
}

func TestContractCallerReadOnlyRejectsWrites(t *testing.T) {
	cc, backend := newTestCaller(t, false)
	ctx := context.Background()

	assert.False(t, cc.HasSigner())
	_, err := cc.Signer()
	assert.ErrorIs(t, err, ErrMissingSigner)

	_, err = cc.IncrementCounter(ctx)
	assert.ErrorIs(t, err, ErrMissingSigner)
	_, err = cc.Cancel(ctx, []OrderComponents{*testComponents(common.HexToAddress(seller))})
	assert.ErrorIs(t, err, ErrMissingSigner)
	assert.Empty(t, backend.sent)
}

func TestContractCallerFulfillBasicOrder(t *testing.T) {
	cc, backend := newTestCaller(t, true)
	order := newTestOrder(
		[]OfferItem{offerItem(ItemTypeERC721, testNFT, 5, 1)},
		[]ConsiderationItem{
			considerationItem(ItemTypeNative, "", 0, 975, seller),
			considerationItem(ItemTypeNative, "", 0, 25, feeAddr),
		},
	)
	params, err := BuildBasicOrderParameters(order, RouteERC721ForNative, common.Hash{}, nil)
	require.NoError(t, err)
	value := BasicOrderValue(params, RouteERC721ForNative)

	tx, err := cc.FulfillBasicOrder(context.Background(), params, value)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	assert.Equal(t, testSeaport, *tx.To())
	assert.Equal(t, int64(1000), tx.Value().Int64())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.True(t, bytes.HasPrefix(tx.Data(), seaportABI.Methods["fulfillBasicOrder"].ID))

	sender, err := types.Sender(types.LatestSignerForChainID(backend.chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, cc.GetSignerAddress(), sender)
}

func TestContractCallerMatchAndAdvanced(t *testing.T) {
	cc, backend := newTestCaller(t, true)
	ctx := context.Background()

	orderA := newTestOrder(
		[]OfferItem{{ItemType: ItemTypeERC721, Token: common.HexToAddress(testNFT)}},
		[]ConsiderationItem{considerationItem(ItemTypeERC20, testToken, 0, 100, seller)},
	)
	orderB := newTestOrder(
		[]OfferItem{offerItem(ItemTypeERC20, testToken, 0, 100)},
		[]ConsiderationItem{considerationItem(ItemTypeERC721, testNFT, 0, 1, feeAddr)},
	)
	pairs, err := MatchComponents(orderA, orderB)
	require.NoError(t, err)

	_, err = cc.MatchOrders(ctx, []Order{*orderA, *orderB}, EncodeFulfillments(pairs), nil)
	require.NoError(t, err)

	_, err = cc.FulfillAdvancedOrder(ctx, &AdvancedOrder{
		Parameters: orderA.Parameters,
		Numerator:  big.NewInt(1),
	}, []CriteriaResolver{{Side: SideConsideration}}, common.Hash{}, common.Address{}, nil)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	assert.True(t, bytes.HasPrefix(backend.sent[0].Data(), seaportABI.Methods["matchOrders"].ID))
	assert.True(t, bytes.HasPrefix(backend.sent[1].Data(), seaportABI.Methods["fulfillAdvancedOrder"].ID))
	assert.Equal(t, uint64(1), backend.sent[1].Nonce())
}

func TestContractCallerSubmitApproval(t *testing.T) {
	cc, backend := newTestCaller(t, true)
	ctx := context.Background()

	tx, err := cc.SubmitApproval(ctx, offerItem(ItemTypeNative, "", 0, 1), testSpender)
	require.NoError(t, err)
	assert.Nil(t, tx)

	tx, err = cc.SubmitApproval(ctx, offerItem(ItemTypeERC20, testToken, 0, 1), testSpender)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testToken), *tx.To())
	expected, err := erc20ABI.Pack("approve", testSpender, MaxUint256)
	require.NoError(t, err)
	assert.Equal(t, expected, tx.Data())

	tx, err = cc.SubmitApproval(ctx, offerItem(ItemTypeERC1155, testNFT, 1, 1), testSpender)
	require.NoError(t, err)
	expected, err = erc1155ABI.Pack("setApprovalForAll", testSpender, true)
	require.NoError(t, err)
	assert.Equal(t, expected, tx.Data())

	_, err = cc.SubmitApproval(ctx, OfferItem{ItemType: 8}, testSpender)
	assert.ErrorIs(t, err, ErrUnsupportedItemType)
	assert.Len(t, backend.sent, 2)
}

func TestContractCallerInsufficientBalance(t *testing.T) {
	cc, backend := newTestCaller(t, true)
	backend.balance = big.NewInt(1)

	_, err := cc.IncrementCounter(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, backend.sent)
}

func TestWaitForReceipt(t *testing.T) {
	cc, backend := newTestCaller(t, true)
	cc.SetReceiptPollInterval(time.Millisecond)

	ok := common.HexToHash("0x01")
	reverted := common.HexToHash("0x02")
	backend.receipts[ok] = &types.Receipt{Status: types.ReceiptStatusSuccessful}
	backend.receipts[reverted] = &types.Receipt{Status: types.ReceiptStatusFailed}
	backend.receiptMisses = 2

	receipt, err := cc.WaitForReceipt(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, 3, backend.receiptLookups)

	_, err = cc.WaitForReceipt(context.Background(), reverted)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cc.WaitForReceipt(ctx, common.HexToHash("0x03"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
