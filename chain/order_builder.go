package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// OrderHasher is the part of the settlement contract order assembly reads from
type OrderHasher interface {
	GetOrderHash(ctx context.Context, components *OrderComponents) (common.Hash, error)
	GetOrderStatus(ctx context.Context, orderHash common.Hash) (*OrderStatus, error)
}

// OrderData represents the data for building an order
type OrderData struct {
	Offerer       string
	Zone          string
	Offer         []OfferItem
	Consideration []ConsiderationItem
	OrderType     OrderType
	StartTime     *big.Int
	EndTime       *big.Int
	ZoneHash      common.Hash
	Salt          *big.Int
	ConduitKey    common.Hash
	Counter       *big.Int

	// ExtraCheap drops zone and salt and compacts the signature to lower settlement gas
	ExtraCheap bool
}

// BuiltOrder is a signed order together with everything needed to track or cancel it
type BuiltOrder struct {
	Order      Order
	OrderHash  common.Hash
	Status     *OrderStatus
	Components OrderComponents

	// Value is the native currency a fulfiller must attach at most
	Value *big.Int
}

// OrderBuilder builds and signs orders
type OrderBuilder struct {
	domain *EIP712Domain
	hasher OrderHasher
	signer Signer
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(seaportAddr common.Address, chainID int64, hasher OrderHasher, signer Signer) (*OrderBuilder, error) {
	if hasher == nil {
		return nil, fmt.Errorf("order hasher is required")
	}
	return &OrderBuilder{
		domain: NewEIP712Domain(big.NewInt(chainID), seaportAddr),
		hasher: hasher,
		signer: signer,
	}, nil
}

// Domain returns the EIP712 domain orders are signed under
func (ob *OrderBuilder) Domain() *EIP712Domain {
	return ob.domain
}

// BuildOrderComponents validates the data and assembles the components to be signed
func (ob *OrderBuilder) BuildOrderComponents(data *OrderData) (*OrderComponents, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	zone, err := parseAddress(data.Zone)
	if err != nil {
		return nil, fmt.Errorf("zone: %w", err)
	}

	salt := data.Salt
	if salt == nil {
		salt = ob.generateSalt()
	}

	startTime := data.StartTime
	if startTime == nil {
		startTime = big.NewInt(time.Now().Unix())
	}
	endTime := data.EndTime
	if endTime == nil {
		endTime = new(big.Int).Set(MaxUint256)
	}
	if startTime.Cmp(endTime) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidTimeWindow, startTime, endTime)
	}

	if data.ExtraCheap {
		zone = common.Address{}
		salt = big.NewInt(0)
	}

	components := OrderComponents{
		Offerer:       common.HexToAddress(data.Offerer),
		Zone:          zone,
		Offer:         data.Offer,
		Consideration: data.Consideration,
		OrderType:     data.OrderType,
		StartTime:     new(big.Int).Set(startTime),
		EndTime:       new(big.Int).Set(endTime),
		ZoneHash:      data.ZoneHash,
		Salt:          new(big.Int).Set(salt),
		ConduitKey:    data.ConduitKey,
		Counter:       new(big.Int).Set(data.Counter),
	}
	components = components.normalized()
	return &components, nil
}

// BuildOrder assembles, hashes and signs an order and reads its current status.
// The counter in data must already have been read from the settlement contract.
func (ob *OrderBuilder) BuildOrder(ctx context.Context, data *OrderData) (*BuiltOrder, error) {
	if ob.signer == nil {
		return nil, ErrMissingSigner
	}
	components, err := ob.BuildOrderComponents(data)
	if err != nil {
		return nil, err
	}
	if components.Offerer != ob.signer.Address() {
		return nil, fmt.Errorf("%w: offerer %s, signer %s", ErrOffererSignerMismatch, components.Offerer.Hex(), ob.signer.Address().Hex())
	}

	orderHash, err := ob.hasher.GetOrderHash(ctx, components)
	if err != nil {
		return nil, fmt.Errorf("failed to get order hash: %w", err)
	}

	signature, err := ob.SignOrder(components)
	if err != nil {
		return nil, err
	}
	if data.ExtraCheap {
		signature, err = CompactSignature(signature)
		if err != nil {
			return nil, err
		}
	}

	status, err := ob.hasher.GetOrderStatus(ctx, orderHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}

	return &BuiltOrder{
		Order: Order{
			Parameters: components.ToParameters(),
			Signature:  signature,
		},
		OrderHash:  orderHash,
		Status:     status,
		Components: *components,
		Value:      NativeValue(components.Offer, components.Consideration),
	}, nil
}

// SignOrder signs order components using EIP712
func (ob *OrderBuilder) SignOrder(components *OrderComponents) ([]byte, error) {
	if ob.signer == nil {
		return nil, ErrMissingSigner
	}
	signature, err := ob.signer.SignTypedData(OrderTypedData(ob.domain, components))
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}
	return signature, nil
}

// NativeValue sums max(startAmount, endAmount) over every native item
func NativeValue(offer []OfferItem, consideration []ConsiderationItem) *big.Int {
	total := big.NewInt(0)
	for _, item := range offer {
		if item.ItemType == ItemTypeNative {
			total.Add(total, maxAmount(bigOrZero(item.StartAmount), bigOrZero(item.EndAmount)))
		}
	}
	for _, item := range consideration {
		if item.ItemType == ItemTypeNative {
			total.Add(total, maxAmount(bigOrZero(item.StartAmount), bigOrZero(item.EndAmount)))
		}
	}
	return total
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data == nil {
		return fmt.Errorf("order data is required")
	}
	if data.Offerer == "" {
		return fmt.Errorf("offerer is required")
	}
	if !common.IsHexAddress(data.Offerer) {
		return fmt.Errorf("offerer: %w: %q", ErrInvalidAddress, data.Offerer)
	}
	if data.Counter == nil {
		return fmt.Errorf("counter is required")
	}
	if data.OrderType > OrderTypePartialRestricted {
		return fmt.Errorf("invalid order type %d", data.OrderType)
	}
	for i, item := range data.Offer {
		if !item.ItemType.Valid() {
			return fmt.Errorf("offer[%d]: %w: %d", i, ErrInvalidItemType, uint8(item.ItemType))
		}
	}
	for i, item := range data.Consideration {
		if !item.ItemType.Valid() {
			return fmt.Errorf("consideration[%d]: %w: %d", i, ErrInvalidItemType, uint8(item.ItemType))
		}
	}
	return nil
}

func (ob *OrderBuilder) generateSalt() *big.Int {
	id := uuid.New()
	return new(big.Int).SetBytes(id[:])
}
