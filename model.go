package seaport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kotard8899/seaport-sdk/chain"
)

// Types shared with the chain package
type (
	ItemType          = chain.ItemType
	OrderType         = chain.OrderType
	ItemData          = chain.ItemData
	OfferItem         = chain.OfferItem
	ConsiderationItem = chain.ConsiderationItem
	Order             = chain.Order
	OrderComponents   = chain.OrderComponents
	OrderStatus       = chain.OrderStatus
	FulfillOptions    = chain.FulfillOptions
	CriteriaResolver  = chain.CriteriaResolver
	Fulfillment       = chain.Fulfillment
	CreatedOrder      = chain.BuiltOrder
)

// CreateOrderInput represents input data for creating an order
type CreateOrderInput struct {
	Offer         []ItemData
	Consideration []ItemData // a consideration item without recipient pays the offerer

	OrderType  OrderType
	StartTime  *big.Int // defaults to now
	EndTime    *big.Int // defaults to max uint256
	Zone       string
	ZoneHash   common.Hash
	ConduitKey common.Hash
	Salt       *big.Int // random when nil

	// Offerer defaults to the signer
	Offerer string

	ExtraCheap bool
}

// TransactionResult represents the result of a blockchain transaction
type TransactionResult struct {
	TxHash string
}

// FulfillResult is the submitted fulfillment and the path it took
type FulfillResult struct {
	TxHash   string
	Strategy chain.Strategy
	Route    chain.BasicOrderRouteType
	Advanced bool
	Value    *big.Int
}

// MatchResult is the submitted match and the fulfillments it carried
type MatchResult struct {
	TxHash       string
	Fulfillments []Fulfillment
	Value        *big.Int
}
