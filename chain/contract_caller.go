package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultReceiptPollInterval is how often WaitForReceipt asks the node for a receipt
const DefaultReceiptPollInterval = 2 * time.Second

// Backend is the subset of an Ethereum node client the caller needs.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ContractCaller handles Seaport and token contract interactions
type ContractCaller struct {
	backend     Backend
	closer      func()
	privateKey  *ecdsa.PrivateKey
	seaportAddr common.Address

	receiptPollInterval time.Duration

	mu                 sync.Mutex
	tokenDecimalsCache map[common.Address]uint8
}

// NewContractCaller dials rpcURL and creates a new ContractCaller.
// An empty privateKeyHex gives a read-only caller.
func NewContractCaller(rpcURL string, privateKeyHex string, seaportAddr string) (*ContractCaller, error) {
	var privateKey *ecdsa.PrivateKey
	if privateKeyHex != "" {
		var err error
		privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	cc := NewContractCallerWithBackend(client, privateKey, common.HexToAddress(seaportAddr))
	cc.closer = client.Close
	return cc, nil
}

// NewContractCallerWithBackend creates a ContractCaller over an existing backend
func NewContractCallerWithBackend(backend Backend, privateKey *ecdsa.PrivateKey, seaportAddr common.Address) *ContractCaller {
	return &ContractCaller{
		backend:             backend,
		privateKey:          privateKey,
		seaportAddr:         seaportAddr,
		receiptPollInterval: DefaultReceiptPollInterval,
		tokenDecimalsCache:  make(map[common.Address]uint8),
	}
}

// SetReceiptPollInterval overrides DefaultReceiptPollInterval
func (cc *ContractCaller) SetReceiptPollInterval(d time.Duration) {
	if d > 0 {
		cc.receiptPollInterval = d
	}
}

// HasSigner reports whether the caller can submit transactions
func (cc *ContractCaller) HasSigner() bool {
	return cc.privateKey != nil
}

// GetSignerAddress returns the address of the signer, or the zero address for a read-only caller
func (cc *ContractCaller) GetSignerAddress() common.Address {
	if cc.privateKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(cc.privateKey.PublicKey)
}

// Signer returns an order signer backed by the caller's key
func (cc *ContractCaller) Signer() (*KeySigner, error) {
	if cc.privateKey == nil {
		return nil, ErrMissingSigner
	}
	return NewKeySignerFromKey(cc.privateKey), nil
}

// SeaportAddress returns the settlement contract address
func (cc *ContractCaller) SeaportAddress() common.Address {
	return cc.seaportAddr
}

// GetCounter returns the current counter of offerer
func (cc *ContractCaller) GetCounter(ctx context.Context, offerer common.Address) (*big.Int, error) {
	var counter *big.Int
	if err := cc.call(ctx, seaportABI, cc.seaportAddr, &counter, "getCounter", offerer); err != nil {
		return nil, err
	}
	return counter, nil
}

// GetOrderHash asks the settlement contract for the hash of components
func (cc *ContractCaller) GetOrderHash(ctx context.Context, components *OrderComponents) (common.Hash, error) {
	var orderHash common.Hash
	if err := cc.call(ctx, seaportABI, cc.seaportAddr, &orderHash, "getOrderHash", components.normalized()); err != nil {
		return common.Hash{}, err
	}
	return orderHash, nil
}

// GetOrderStatus returns the on-chain status of orderHash
func (cc *ContractCaller) GetOrderStatus(ctx context.Context, orderHash common.Hash) (*OrderStatus, error) {
	var status OrderStatus
	if err := cc.call(ctx, seaportABI, cc.seaportAddr, &status, "getOrderStatus", orderHash); err != nil {
		return nil, err
	}
	return &status, nil
}

// Cancel cancels orders. Only the offerer or the zone may cancel.
func (cc *ContractCaller) Cancel(ctx context.Context, orders []OrderComponents) (*types.Transaction, error) {
	normalized := make([]OrderComponents, len(orders))
	for i := range orders {
		normalized[i] = orders[i].normalized()
	}
	return cc.transact(ctx, seaportABI, cc.seaportAddr, nil, "cancel", normalized)
}

// Validate registers signed orders on chain so they can be fulfilled without a signature
func (cc *ContractCaller) Validate(ctx context.Context, orders []Order) (*types.Transaction, error) {
	return cc.transact(ctx, seaportABI, cc.seaportAddr, nil, "validate", cloneOrders(orders))
}

// IncrementCounter invalidates every order the signer has signed under the current counter
func (cc *ContractCaller) IncrementCounter(ctx context.Context) (*types.Transaction, error) {
	return cc.transact(ctx, seaportABI, cc.seaportAddr, nil, "incrementCounter")
}

// FulfillBasicOrder submits fulfillBasicOrder
func (cc *ContractCaller) FulfillBasicOrder(ctx context.Context, params *BasicOrderParameters, value *big.Int) (*types.Transaction, error) {
	return cc.transact(ctx, seaportABI, cc.seaportAddr, value, "fulfillBasicOrder", params.normalized())
}

// FulfillOrder submits fulfillOrder
func (cc *ContractCaller) FulfillOrder(ctx context.Context, order *Order, fulfillerConduitKey common.Hash, value *big.Int) (*types.Transaction, error) {
	return cc.transact(ctx, seaportABI, cc.seaportAddr, value, "fulfillOrder", order.Clone(), fulfillerConduitKey)
}

// FulfillAdvancedOrder submits fulfillAdvancedOrder
func (cc *ContractCaller) FulfillAdvancedOrder(
	ctx context.Context,
	order *AdvancedOrder,
	resolvers []CriteriaResolver,
	fulfillerConduitKey common.Hash,
	recipient common.Address,
	value *big.Int,
) (*types.Transaction, error) {
	normalized := make([]CriteriaResolver, len(resolvers))
	for i := range resolvers {
		normalized[i] = resolvers[i].normalized()
	}
	return cc.transact(ctx, seaportABI, cc.seaportAddr, value, "fulfillAdvancedOrder",
		order.normalized(), normalized, fulfillerConduitKey, recipient)
}

// MatchOrders submits matchOrders
func (cc *ContractCaller) MatchOrders(ctx context.Context, orders []Order, fulfillments []Fulfillment, value *big.Int) (*types.Transaction, error) {
	return cc.transact(ctx, seaportABI, cc.seaportAddr, value, "matchOrders", cloneOrders(orders), fulfillments)
}

// Allowance returns the ERC20 allowance for owner to spender
func (cc *ContractCaller) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := cc.call(ctx, erc20ABI, token, &allowance, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// IsApprovedForAll reads isApprovedForAll on an ERC721 or ERC1155 contract
func (cc *ContractCaller) IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error) {
	var approved bool
	if err := cc.call(ctx, erc721ABI, token, &approved, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	return approved, nil
}

// GetApproved returns the address approved for a single ERC721 token
func (cc *ContractCaller) GetApproved(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	var approved common.Address
	if err := cc.call(ctx, erc721ABI, token, &approved, "getApproved", bigOrZero(tokenID)); err != nil {
		return common.Address{}, err
	}
	return approved, nil
}

// TokenDecimals gets ERC20 decimals with caching
func (cc *ContractCaller) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	cc.mu.Lock()
	decimals, ok := cc.tokenDecimalsCache[token]
	cc.mu.Unlock()
	if ok {
		return decimals, nil
	}

	if err := cc.call(ctx, erc20ABI, token, &decimals, "decimals"); err != nil {
		return 0, err
	}

	cc.mu.Lock()
	cc.tokenDecimalsCache[token] = decimals
	cc.mu.Unlock()
	return decimals, nil
}

// ApproveERC20 submits approve(spender, amount)
func (cc *ContractCaller) ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return cc.transact(ctx, erc20ABI, token, nil, "approve", spender, bigOrZero(amount))
}

// SetApprovalForAll submits setApprovalForAll(operator, true) on an ERC721 or ERC1155 contract
func (cc *ContractCaller) SetApprovalForAll(ctx context.Context, token, operator common.Address) (*types.Transaction, error) {
	return cc.transact(ctx, erc721ABI, token, nil, "setApprovalForAll", operator, true)
}

// SubmitApproval grants spender the approval that IsApproved checks for item.
// Native items need none and return a nil transaction.
func (cc *ContractCaller) SubmitApproval(ctx context.Context, item OfferItem, spender common.Address) (*types.Transaction, error) {
	switch item.ItemType {
	case ItemTypeNative:
		return nil, nil
	case ItemTypeERC20:
		return cc.ApproveERC20(ctx, item.Token, spender, MaxUint256)
	case ItemTypeERC721, ItemTypeERC721WithCriteria, ItemTypeERC1155, ItemTypeERC1155WithCriteria:
		return cc.SetApprovalForAll(ctx, item.Token, spender)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedItemType, uint8(item.ItemType))
	}
}

// CheckGasBalance checks that the signer can pay value plus gas
func (cc *ContractCaller) CheckGasBalance(ctx context.Context, estimatedGas uint64, gasPrice, value *big.Int) error {
	signerAddr := cc.GetSignerAddress()
	balance, err := cc.backend.BalanceAt(ctx, signerAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	required := new(big.Int).Mul(new(big.Int).SetUint64(estimatedGas), gasPrice)
	required.Add(required, bigOrZero(value))

	if balance.Cmp(required) < 0 {
		return fmt.Errorf("%w: signer %s has %s wei, needs approximately %s wei",
			ErrInsufficientBalance, signerAddr.Hex(), balance.String(), required.String())
	}
	return nil
}

// WaitForReceipt polls until txHash is mined or ctx is done. A reverted
// transaction is returned together with an error.
func (cc *ContractCaller) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(cc.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := cc.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.closer != nil {
		cc.closer()
	}
}

func (cc *ContractCaller) call(ctx context.Context, contractABI abi.ABI, to common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		From: cc.GetSignerAddress(),
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}

	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

func (cc *ContractCaller) transact(ctx context.Context, contractABI abi.ABI, to common.Address, value *big.Int, method string, args ...interface{}) (*types.Transaction, error) {
	if cc.privateKey == nil {
		return nil, ErrMissingSigner
	}
	value = bigOrZero(value)

	callData, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	from := cc.GetSignerAddress()
	gasPrice, err := cc.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas, err := cc.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     callData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas for %s: %w", method, err)
	}
	// Add 20% safety margin
	gas = gas * 120 / 100

	if err := cc.CheckGasBalance(ctx, gas, gasPrice, value); err != nil {
		return nil, err
	}

	chainID, err := cc.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := cc.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     callData,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), cc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}
	return signedTx, nil
}

func cloneOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i := range orders {
		out[i] = orders[i].Clone()
	}
	return out
}

func (p *BasicOrderParameters) normalized() BasicOrderParameters {
	out := *p
	out.ConsiderationIdentifier = bigOrZero(p.ConsiderationIdentifier)
	out.ConsiderationAmount = bigOrZero(p.ConsiderationAmount)
	out.OfferIdentifier = bigOrZero(p.OfferIdentifier)
	out.OfferAmount = bigOrZero(p.OfferAmount)
	out.StartTime = bigOrZero(p.StartTime)
	out.EndTime = bigOrZero(p.EndTime)
	out.Salt = bigOrZero(p.Salt)
	out.TotalOriginalAdditionalRecipients = bigOrZero(p.TotalOriginalAdditionalRecipients)
	out.AdditionalRecipients = make([]AdditionalRecipient, len(p.AdditionalRecipients))
	for i, r := range p.AdditionalRecipients {
		out.AdditionalRecipients[i] = AdditionalRecipient{Amount: bigOrZero(r.Amount), Recipient: r.Recipient}
	}
	out.Signature = common.CopyBytes(p.Signature)
	if out.Signature == nil {
		out.Signature = []byte{}
	}
	return out
}

func (o *AdvancedOrder) normalized() AdvancedOrder {
	out := *o
	out.Parameters = o.Parameters.clone()
	out.Numerator = bigOrZero(o.Numerator)
	out.Denominator = bigOrZero(o.Denominator)
	out.Signature = common.CopyBytes(o.Signature)
	if out.Signature == nil {
		out.Signature = []byte{}
	}
	out.ExtraData = common.CopyBytes(o.ExtraData)
	if out.ExtraData == nil {
		out.ExtraData = []byte{}
	}
	return out
}

func (r CriteriaResolver) normalized() CriteriaResolver {
	r.OrderIndex = bigOrZero(r.OrderIndex)
	r.Index = bigOrZero(r.Index)
	r.Identifier = bigOrZero(r.Identifier)
	if r.CriteriaProof == nil {
		r.CriteriaProof = []common.Hash{}
	}
	return r
}
