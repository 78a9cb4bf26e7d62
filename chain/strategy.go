package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Strategy is the settlement path an order is fulfilled through
type Strategy int

const (
	StrategyGeneric Strategy = iota
	StrategyBasic
)

func (s Strategy) String() string {
	if s == StrategyBasic {
		return "basic"
	}
	return "generic"
}

// BasicOrderRouteType names what the offerer gives for what it receives
type BasicOrderRouteType uint8

const (
	RouteERC721ForNative BasicOrderRouteType = iota
	RouteERC1155ForNative
	RouteERC721ForERC20
	RouteERC1155ForERC20
	RouteERC20ForERC721
	RouteERC20ForERC1155
)

func (r BasicOrderRouteType) String() string {
	switch r {
	case RouteERC721ForNative:
		return "ERC721ForNative"
	case RouteERC1155ForNative:
		return "ERC1155ForNative"
	case RouteERC721ForERC20:
		return "ERC721ForERC20"
	case RouteERC1155ForERC20:
		return "ERC1155ForERC20"
	case RouteERC20ForERC721:
		return "ERC20ForERC721"
	case RouteERC20ForERC1155:
		return "ERC20ForERC1155"
	default:
		return fmt.Sprintf("BasicOrderRouteType(%d)", uint8(r))
	}
}

// IsNativePayment reports whether the fulfiller pays in native currency on this route
func (r BasicOrderRouteType) IsNativePayment() bool {
	return r == RouteERC721ForNative || r == RouteERC1155ForNative
}

// FulfillOptions are the fulfiller-side inputs of a single-order fulfillment
type FulfillOptions struct {
	// Numerator and Denominator request a partial fill. A nil or zero
	// numerator means a full fill.
	Numerator   *big.Int
	Denominator *big.Int

	CriteriaResolvers   []CriteriaResolver
	Tips                []ConsiderationItem
	FulfillerConduitKey common.Hash

	// Recipient of the offer items on the advanced path; zero means the fulfiller
	Recipient common.Address
}

// Classification is the result of strategy selection for one order
type Classification struct {
	Strategy Strategy
	Route    BasicOrderRouteType

	// Advanced is set when a fraction or criteria resolvers force fulfillAdvancedOrder
	Advanced bool
}

// ClassifyOrder decides whether order can take the basic settlement path
func ClassifyOrder(order *Order, opts *FulfillOptions) Classification {
	if opts == nil {
		opts = &FulfillOptions{}
	}
	if (opts.Numerator != nil && opts.Numerator.Sign() != 0) || len(opts.CriteriaResolvers) > 0 {
		return Classification{Strategy: StrategyGeneric, Advanced: true}
	}

	generic := Classification{Strategy: StrategyGeneric}
	offer := order.Parameters.Offer
	consideration := order.Parameters.Consideration
	if len(offer) != 1 || len(consideration) == 0 {
		return generic
	}

	offerType := offer[0].ItemType
	firstType := consideration[0].ItemType
	rest := consideration[1:]

	// The basic record pays every remaining leg in a single payment token:
	// the offered ERC20 when buying an NFT, otherwise the first leg's token.
	switch offerType {
	case ItemTypeERC20:
		if firstType != ItemTypeERC721 && firstType != ItemTypeERC1155 {
			return generic
		}
		if !paidIn(rest, ItemTypeERC20, offer[0].Token) {
			return generic
		}
	case ItemTypeNative, ItemTypeERC721, ItemTypeERC1155:
		if firstType != ItemTypeNative && firstType != ItemTypeERC20 {
			return generic
		}
		if !paidIn(rest, firstType, consideration[0].Token) {
			return generic
		}
	case ItemTypeERC721WithCriteria, ItemTypeERC1155WithCriteria:
		return generic
	default:
		return generic
	}

	route, ok := basicRoute(offerType, firstType)
	if !ok || !hasFixedAmounts(order) {
		return generic
	}
	return Classification{Strategy: StrategyBasic, Route: route}
}

func basicRoute(offerType, considerationType ItemType) (BasicOrderRouteType, bool) {
	switch {
	case offerType == ItemTypeERC721 && considerationType == ItemTypeNative:
		return RouteERC721ForNative, true
	case offerType == ItemTypeERC1155 && considerationType == ItemTypeNative:
		return RouteERC1155ForNative, true
	case offerType == ItemTypeERC721 && considerationType == ItemTypeERC20:
		return RouteERC721ForERC20, true
	case offerType == ItemTypeERC1155 && considerationType == ItemTypeERC20:
		return RouteERC1155ForERC20, true
	case offerType == ItemTypeERC20 && considerationType == ItemTypeERC721:
		return RouteERC20ForERC721, true
	case offerType == ItemTypeERC20 && considerationType == ItemTypeERC1155:
		return RouteERC20ForERC1155, true
	default:
		return 0, false
	}
}

func paidIn(items []ConsiderationItem, itemType ItemType, token common.Address) bool {
	for _, item := range items {
		if item.ItemType != itemType || item.Token != token {
			return false
		}
	}
	return true
}

// The basic record carries one amount per item, so ranges cannot be expressed
func hasFixedAmounts(order *Order) bool {
	for _, item := range order.Parameters.Offer {
		if bigOrZero(item.StartAmount).Cmp(bigOrZero(item.EndAmount)) != 0 {
			return false
		}
	}
	for _, item := range order.Parameters.Consideration {
		if bigOrZero(item.StartAmount).Cmp(bigOrZero(item.EndAmount)) != 0 {
			return false
		}
	}
	return true
}

// BuildBasicOrderParameters packs a basic-eligible order into the fulfillBasicOrder argument
func BuildBasicOrderParameters(order *Order, route BasicOrderRouteType, fulfillerConduitKey common.Hash, tips []ConsiderationItem) (*BasicOrderParameters, error) {
	o := order.Clone()
	params := o.Parameters
	if len(params.Offer) != 1 || len(params.Consideration) == 0 {
		return nil, fmt.Errorf("basic order needs one offer item and at least one consideration item, got %d and %d",
			len(params.Offer), len(params.Consideration))
	}

	offerItem := params.Offer[0]
	forOfferer := params.Consideration[0]

	recipients := make([]AdditionalRecipient, 0, len(params.Consideration)-1+len(tips))
	for _, item := range params.Consideration[1:] {
		recipients = append(recipients, AdditionalRecipient{Amount: item.EndAmount, Recipient: item.Recipient})
	}
	for _, tip := range tips {
		recipients = append(recipients, AdditionalRecipient{Amount: bigOrZero(tip.EndAmount), Recipient: tip.Recipient})
	}

	return &BasicOrderParameters{
		ConsiderationToken:                forOfferer.Token,
		ConsiderationIdentifier:           forOfferer.IdentifierOrCriteria,
		ConsiderationAmount:               forOfferer.EndAmount,
		Offerer:                           params.Offerer,
		Zone:                              params.Zone,
		OfferToken:                        offerItem.Token,
		OfferIdentifier:                   offerItem.IdentifierOrCriteria,
		OfferAmount:                       offerItem.EndAmount,
		BasicOrderType:                    uint8(params.OrderType) + 4*uint8(route),
		StartTime:                         params.StartTime,
		EndTime:                           params.EndTime,
		ZoneHash:                          params.ZoneHash,
		Salt:                              params.Salt,
		OffererConduitKey:                 params.ConduitKey,
		FulfillerConduitKey:               fulfillerConduitKey,
		TotalOriginalAdditionalRecipients: big.NewInt(int64(len(params.Consideration) - 1)),
		AdditionalRecipients:              recipients,
		Signature:                         o.Signature,
	}, nil
}

// BasicOrderValue is the native currency a fulfiller attaches on a basic route
func BasicOrderValue(params *BasicOrderParameters, route BasicOrderRouteType) *big.Int {
	total := big.NewInt(0)
	if !route.IsNativePayment() {
		return total
	}
	total.Add(total, params.ConsiderationAmount)
	for _, r := range params.AdditionalRecipients {
		total.Add(total, r.Amount)
	}
	return total
}
