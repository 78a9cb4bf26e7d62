package seaport

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kotard8899/seaport-sdk/chain"
	"github.com/shopspring/decimal"
)

// Contracts is the on-chain side of the client. *chain.ContractCaller implements it.
type Contracts interface {
	chain.OrderHasher
	chain.TokenReader

	GetCounter(ctx context.Context, offerer common.Address) (*big.Int, error)
	Cancel(ctx context.Context, orders []chain.OrderComponents) (*types.Transaction, error)
	Validate(ctx context.Context, orders []chain.Order) (*types.Transaction, error)
	IncrementCounter(ctx context.Context) (*types.Transaction, error)
	FulfillBasicOrder(ctx context.Context, params *chain.BasicOrderParameters, value *big.Int) (*types.Transaction, error)
	FulfillOrder(ctx context.Context, order *chain.Order, fulfillerConduitKey common.Hash, value *big.Int) (*types.Transaction, error)
	FulfillAdvancedOrder(ctx context.Context, order *chain.AdvancedOrder, resolvers []chain.CriteriaResolver,
		fulfillerConduitKey common.Hash, recipient common.Address, value *big.Int) (*types.Transaction, error)
	MatchOrders(ctx context.Context, orders []chain.Order, fulfillments []chain.Fulfillment, value *big.Int) (*types.Transaction, error)
	SubmitApproval(ctx context.Context, item chain.OfferItem, spender common.Address) (*types.Transaction, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	GetSignerAddress() common.Address
	HasSigner() bool
	Close()
}

// Client is the main SDK client
type Client struct {
	contracts Contracts
	signer    chain.Signer
	approvals *chain.ApprovalChecker
	chainID   ChainID
	addresses ChainAddresses
	seaport   common.Address
	logger    *slog.Logger
}

// NewClient creates a new Seaport SDK client connected to config.RPCURL
func NewClient(config ClientConfig) (*Client, error) {
	addrs, err := resolveAddresses(&config)
	if err != nil {
		return nil, err
	}

	contractCaller, err := chain.NewContractCaller(config.RPCURL, config.PrivateKey, addrs.Seaport)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract caller: %w", err)
	}

	var signer chain.Signer
	if contractCaller.HasSigner() {
		keySigner, err := contractCaller.Signer()
		if err != nil {
			return nil, err
		}
		signer = keySigner
	}

	return newClient(config, addrs, contractCaller, signer), nil
}

// NewClientWithContracts creates a client over existing collaborators.
// signer may be nil for a client that only reads and fulfills.
func NewClientWithContracts(config ClientConfig, contracts Contracts, signer chain.Signer) (*Client, error) {
	if contracts == nil {
		return nil, &InvalidParamError{Message: "contracts are required"}
	}
	addrs, err := resolveAddresses(&config)
	if err != nil {
		return nil, err
	}
	return newClient(config, addrs, contracts, signer), nil
}

func resolveAddresses(config *ClientConfig) (ChainAddresses, error) {
	book := config.Chains
	if book == nil {
		book = DefaultAddressBook()
	}
	addrs, err := book.Lookup(config.ChainID)
	if err != nil {
		return ChainAddresses{}, &InvalidParamError{Message: "chain_id", Err: err}
	}
	if config.SeaportAddr != "" {
		addrs.Seaport = config.SeaportAddr
	}
	if !common.IsHexAddress(addrs.Seaport) {
		return ChainAddresses{}, &InvalidParamError{Message: fmt.Sprintf("invalid seaport address %q", addrs.Seaport)}
	}
	return addrs, nil
}

func newClient(config ClientConfig, addrs ChainAddresses, contracts Contracts, signer chain.Signer) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		contracts: contracts,
		signer:    signer,
		approvals: chain.NewApprovalChecker(contracts),
		chainID:   config.ChainID,
		addresses: addrs,
		seaport:   common.HexToAddress(addrs.Seaport),
		logger:    logger.With(slog.Int("chain_id", int(config.ChainID))),
	}
}

// Close closes the client and cleans up resources
func (c *Client) Close() {
	if c.contracts != nil {
		c.contracts.Close()
	}
}

// ChainID returns the chain the client is bound to
func (c *Client) ChainID() ChainID {
	return c.chainID
}

// Addresses returns the contract addresses in use
func (c *Client) Addresses() ChainAddresses {
	return c.addresses.copy()
}

// Domain returns the EIP712 domain orders are signed under
func (c *Client) Domain() *chain.EIP712Domain {
	return chain.NewEIP712Domain(big.NewInt(int64(c.chainID)), c.seaport)
}

// GetCounter returns the current counter of offerer
func (c *Client) GetCounter(ctx context.Context, offerer string) (*big.Int, error) {
	if !common.IsHexAddress(offerer) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid offerer %q", offerer)}
	}
	return c.contracts.GetCounter(ctx, common.HexToAddress(offerer))
}

// GetOrderStatus returns the on-chain status of an order hash
func (c *Client) GetOrderStatus(ctx context.Context, orderHash common.Hash) (*OrderStatus, error) {
	return c.contracts.GetOrderStatus(ctx, orderHash)
}

// GetOrderHash asks the settlement contract for the hash of components
func (c *Client) GetOrderHash(ctx context.Context, components *OrderComponents) (common.Hash, error) {
	return c.contracts.GetOrderHash(ctx, components)
}

// CreateOrder builds and signs an order. With checkApproval the conduit for
// input.ConduitKey is first approved for every offer item.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput, checkApproval bool) (*CreatedOrder, error) {
	if c.signer == nil {
		return nil, ErrMissingSigner
	}

	offerer := input.Offerer
	if offerer == "" {
		offerer = c.signer.Address().Hex()
	}
	if !common.IsHexAddress(offerer) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid offerer %q", offerer)}
	}
	offererAddr := common.HexToAddress(offerer)
	if offererAddr != c.signer.Address() {
		return nil, &InvalidParamError{
			Message: fmt.Sprintf("offerer %s cannot be signed for by %s", offererAddr.Hex(), c.signer.Address().Hex()),
			Err:     ErrOffererSignerMismatch,
		}
	}

	offer := make([]OfferItem, len(input.Offer))
	for i := range input.Offer {
		item, err := chain.BuildOfferItem(&input.Offer[i])
		if err != nil {
			return nil, fmt.Errorf("offer[%d]: %w", i, err)
		}
		offer[i] = item
	}

	consideration := make([]ConsiderationItem, len(input.Consideration))
	for i := range input.Consideration {
		data := input.Consideration[i]
		if data.Recipient == "" {
			data.Recipient = offerer
		}
		item, err := chain.BuildConsiderationItem(&data)
		if err != nil {
			return nil, fmt.Errorf("consideration[%d]: %w", i, err)
		}
		consideration[i] = item
	}

	if checkApproval {
		if _, err := c.EnsureApprovals(ctx, offererAddr, offer, input.ConduitKey); err != nil {
			return nil, err
		}
	}

	// The counter is part of the signed payload
	counter, err := c.contracts.GetCounter(ctx, offererAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter: %w", err)
	}

	builder, err := chain.NewOrderBuilder(c.seaport, int64(c.chainID), c.contracts, c.signer)
	if err != nil {
		return nil, err
	}

	built, err := builder.BuildOrder(ctx, &chain.OrderData{
		Offerer:       offerer,
		Zone:          input.Zone,
		Offer:         offer,
		Consideration: consideration,
		OrderType:     input.OrderType,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		ZoneHash:      input.ZoneHash,
		Salt:          input.Salt,
		ConduitKey:    input.ConduitKey,
		Counter:       counter,
		ExtraCheap:    input.ExtraCheap,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("order created",
		slog.String("order_hash", built.OrderHash.Hex()),
		slog.String("offerer", offerer),
		slog.Int("offer_items", len(offer)),
		slog.Int("consideration_items", len(consideration)),
		slog.Bool("extra_cheap", input.ExtraCheap),
	)
	return built, nil
}

// FulfillOrder fulfills a single order through the cheapest entry point its
// shape allows. With checkApproval the fulfiller's conduit is first approved
// for every item the fulfiller pays.
func (c *Client) FulfillOrder(ctx context.Context, order *Order, opts *FulfillOptions, checkApproval bool) (*FulfillResult, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	if !c.contracts.HasSigner() {
		return nil, ErrMissingSigner
	}
	if opts == nil {
		opts = &FulfillOptions{}
	}

	cls := chain.ClassifyOrder(order, opts)
	fulfiller := c.contracts.GetSignerAddress()

	if checkApproval {
		if _, err := c.EnsureApprovals(ctx, fulfiller, fulfillerPays(order, opts, cls), opts.FulfillerConduitKey); err != nil {
			return nil, err
		}
	}

	var (
		tx    *types.Transaction
		value *big.Int
		err   error
	)
	switch {
	case cls.Strategy == chain.StrategyBasic:
		var params *chain.BasicOrderParameters
		params, err = chain.BuildBasicOrderParameters(order, cls.Route, opts.FulfillerConduitKey, opts.Tips)
		if err != nil {
			return nil, err
		}
		value = chain.BasicOrderValue(params, cls.Route)
		tx, err = c.contracts.FulfillBasicOrder(ctx, params, value)

	case cls.Advanced:
		withTips := appendTips(order, opts.Tips)
		advanced := &chain.AdvancedOrder{
			Parameters:  withTips.Parameters,
			Numerator:   orOne(opts.Numerator),
			Denominator: orOne(opts.Denominator),
			Signature:   withTips.Signature,
		}
		value = scaleValue(chain.NativeValue(nil, withTips.Parameters.Consideration), advanced.Numerator, advanced.Denominator)
		tx, err = c.contracts.FulfillAdvancedOrder(ctx, advanced, opts.CriteriaResolvers, opts.FulfillerConduitKey, opts.Recipient, value)

	default:
		withTips := appendTips(order, opts.Tips)
		value = chain.NativeValue(nil, withTips.Parameters.Consideration)
		tx, err = c.contracts.FulfillOrder(ctx, &withTips, opts.FulfillerConduitKey, value)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("order fulfilled",
		slog.String("strategy", cls.Strategy.String()),
		slog.Bool("advanced", cls.Advanced),
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("value", value.String()),
	)
	return &FulfillResult{
		TxHash:   tx.Hash().Hex(),
		Strategy: cls.Strategy,
		Route:    cls.Route,
		Advanced: cls.Advanced,
		Value:    value,
	}, nil
}

// MatchOrders settles two orders against each other. gap, when set, is an
// extra consideration item on orderA that absorbs the difference in value.
func (c *Client) MatchOrders(ctx context.Context, orderA, orderB *Order, gap *ConsiderationItem) (*MatchResult, error) {
	if orderA == nil || orderB == nil {
		return nil, &InvalidParamError{Message: "both orders are required"}
	}
	if !c.contracts.HasSigner() {
		return nil, ErrMissingSigner
	}

	pairs, err := chain.MatchComponents(orderA, orderB)
	if err != nil {
		return nil, err
	}

	first := orderA.Clone()
	if gap != nil {
		first, pairs, err = chain.ApplyGapAsset(orderA, pairs, *gap)
		if err != nil {
			return nil, err
		}
	}
	orders := []chain.Order{first, orderB.Clone()}
	fulfillments := chain.EncodeFulfillments(pairs)

	// Native offer items of the caller's own orders are paid with the call value
	caller := c.contracts.GetSignerAddress()
	value := big.NewInt(0)
	for _, o := range orders {
		if o.Parameters.Offerer == caller {
			value.Add(value, chain.NativeValue(o.Parameters.Offer, nil))
		}
	}

	tx, err := c.contracts.MatchOrders(ctx, orders, fulfillments, value)
	if err != nil {
		return nil, err
	}

	c.logger.Info("orders matched",
		slog.Int("fulfillments", len(fulfillments)),
		slog.Bool("gap_asset", gap != nil),
		slog.String("tx_hash", tx.Hash().Hex()),
	)
	return &MatchResult{TxHash: tx.Hash().Hex(), Fulfillments: fulfillments, Value: value}, nil
}

// CancelOrders cancels orders by their components
func (c *Client) CancelOrders(ctx context.Context, orders []OrderComponents) (*TransactionResult, error) {
	if len(orders) == 0 {
		return nil, &InvalidParamError{Message: "orders are required"}
	}
	tx, err := c.contracts.Cancel(ctx, orders)
	if err != nil {
		return nil, err
	}
	c.logger.Info("orders cancelled", slog.Int("count", len(orders)), slog.String("tx_hash", tx.Hash().Hex()))
	return &TransactionResult{TxHash: tx.Hash().Hex()}, nil
}

// ValidateOrders registers signed orders on chain
func (c *Client) ValidateOrders(ctx context.Context, orders []Order) (*TransactionResult, error) {
	if len(orders) == 0 {
		return nil, &InvalidParamError{Message: "orders are required"}
	}
	tx, err := c.contracts.Validate(ctx, orders)
	if err != nil {
		return nil, err
	}
	c.logger.Info("orders validated", slog.Int("count", len(orders)), slog.String("tx_hash", tx.Hash().Hex()))
	return &TransactionResult{TxHash: tx.Hash().Hex()}, nil
}

// IncrementCounter cancels every open order of the signer at once
func (c *Client) IncrementCounter(ctx context.Context) (*TransactionResult, error) {
	tx, err := c.contracts.IncrementCounter(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("counter incremented", slog.String("tx_hash", tx.Hash().Hex()))
	return &TransactionResult{TxHash: tx.Hash().Hex()}, nil
}

// IsApproved reports whether the conduit for conduitKey may move item out of owner
func (c *Client) IsApproved(ctx context.Context, owner common.Address, item OfferItem, conduitKey common.Hash) (bool, error) {
	spender, err := c.addresses.ConduitAddress(conduitKey)
	if err != nil {
		return false, err
	}
	return c.approvals.IsApproved(ctx, owner, spender, item)
}

// EnsureApprovals submits the approvals missing for items and waits for each
// receipt. Only the signer can approve its own tokens.
func (c *Client) EnsureApprovals(ctx context.Context, owner common.Address, items []OfferItem, conduitKey common.Hash) ([]TransactionResult, error) {
	spender, err := c.addresses.ConduitAddress(conduitKey)
	if err != nil {
		return nil, err
	}

	type tokenKey struct {
		itemType chain.ItemType
		token    common.Address
	}
	seen := make(map[tokenKey]bool)

	var results []TransactionResult
	for _, item := range items {
		key := tokenKey{itemType: item.ItemType, token: item.Token}
		if item.ItemType == chain.ItemTypeNative || seen[key] {
			continue
		}
		seen[key] = true

		approved, err := c.approvals.IsApproved(ctx, owner, spender, item)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("approval checked",
			slog.String("token", item.Token.Hex()),
			slog.String("item_type", item.ItemType.String()),
			slog.String("spender", spender.Hex()),
			slog.Bool("approved", approved),
		)
		if approved {
			continue
		}

		if !c.contracts.HasSigner() {
			return nil, ErrMissingSigner
		}
		if owner != c.contracts.GetSignerAddress() {
			return nil, &InvalidParamError{Message: fmt.Sprintf("approval for %s must be granted by its owner %s", item.Token.Hex(), owner.Hex())}
		}

		tx, err := c.contracts.SubmitApproval(ctx, item, spender)
		if err != nil {
			return nil, fmt.Errorf("failed to approve %s: %w", item.Token.Hex(), err)
		}
		if _, err := c.contracts.WaitForReceipt(ctx, tx.Hash()); err != nil {
			return nil, err
		}
		c.logger.Info("approval submitted",
			slog.String("token", item.Token.Hex()),
			slog.String("spender", spender.Hex()),
			slog.String("tx_hash", tx.Hash().Hex()),
		)
		results = append(results, TransactionResult{TxHash: tx.Hash().Hex()})
	}
	return results, nil
}

// ParseTokenAmount converts a human-readable ERC20 amount into base units using the token's decimals
func (c *Client) ParseTokenAmount(ctx context.Context, token common.Address, amount string) (*big.Int, error) {
	decimals, err := c.contracts.TokenDecimals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get decimals for %s: %w", token.Hex(), err)
	}
	return ParseUnits(amount, int32(decimals))
}

// FormatTokenAmount converts ERC20 base units into a decimal amount
func (c *Client) FormatTokenAmount(ctx context.Context, token common.Address, amount *big.Int) (decimal.Decimal, error) {
	decimals, err := c.contracts.TokenDecimals(ctx, token)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to get decimals for %s: %w", token.Hex(), err)
	}
	if amount == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)), nil
}

// fulfillerPays lists the items the fulfiller transfers. On the ERC20 for
// NFT routes the fee legs are paid by the offerer out of the offered tokens.
func fulfillerPays(order *Order, opts *FulfillOptions, cls chain.Classification) []OfferItem {
	consideration := order.Parameters.Consideration
	if cls.Strategy == chain.StrategyBasic &&
		(cls.Route == chain.RouteERC20ForERC721 || cls.Route == chain.RouteERC20ForERC1155) && len(consideration) > 0 {
		consideration = consideration[:1]
	}

	items := make([]OfferItem, 0, len(consideration)+len(opts.Tips))
	for _, item := range consideration {
		items = append(items, toOfferItem(item))
	}
	for _, tip := range opts.Tips {
		items = append(items, toOfferItem(tip))
	}
	return items
}

func toOfferItem(item ConsiderationItem) OfferItem {
	return OfferItem{
		ItemType:             item.ItemType,
		Token:                item.Token,
		IdentifierOrCriteria: item.IdentifierOrCriteria,
		StartAmount:          item.StartAmount,
		EndAmount:            item.EndAmount,
	}
}

// Tips are extra consideration items beyond totalOriginalConsiderationItems
func appendTips(order *Order, tips []ConsiderationItem) Order {
	out := order.Clone()
	out.Parameters.Consideration = append(out.Parameters.Consideration, tips...)
	return out
}

func orOne(v *big.Int) *big.Int {
	if v == nil || v.Sign() == 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Set(v)
}

// scaleValue returns ceil(value * numerator / denominator)
func scaleValue(value, numerator, denominator *big.Int) *big.Int {
	scaled := new(big.Int).Mul(value, numerator)
	scaled.Add(scaled, new(big.Int).Sub(denominator, big.NewInt(1)))
	return scaled.Div(scaled, denominator)
}
