package chain

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidItemType              = errors.New("invalid item type")
	ErrUnsupportedItemType          = errors.New("unsupported item type")
	ErrInvalidItemAmount            = errors.New("invalid item amount")
	ErrInvalidAddress               = errors.New("invalid address")
	ErrInvalidTimeWindow            = errors.New("start time is after end time")
	ErrInvalidSignatureLength       = errors.New("invalid signature length")
	ErrMissingSigner                = errors.New("missing signer")
	ErrOffererSignerMismatch        = errors.New("offerer is not the signer")
	ErrUnresolvedAsset              = errors.New("no consideration item matches offer item")
	ErrGapAssetNeedsTwoFulfillments = errors.New("gap asset requires at least two fulfillments")
	ErrInsufficientBalance          = errors.New("insufficient native balance")
)

// OrderType is the cross product of {full, partial} and {open, restricted}
type OrderType uint8

const (
	OrderTypeFullOpen OrderType = iota
	OrderTypePartialOpen
	OrderTypeFullRestricted
	OrderTypePartialRestricted
)

// AllowsPartialFills reports whether the order may be filled fractionally
func (t OrderType) AllowsPartialFills() bool {
	return t == OrderTypePartialOpen || t == OrderTypePartialRestricted
}

// IsRestricted reports whether the zone must authorize execution
func (t OrderType) IsRestricted() bool {
	return t == OrderTypeFullRestricted || t == OrderTypePartialRestricted
}

// Side identifies which item list a criteria resolver points into
type Side uint8

const (
	SideOffer Side = iota
	SideConsideration
)

// OrderParameters is the fulfillment-time view of an order
type OrderParameters struct {
	Offerer                         common.Address      `json:"offerer"`
	Zone                            common.Address      `json:"zone"`
	Offer                           []OfferItem         `json:"offer"`
	Consideration                   []ConsiderationItem `json:"consideration"`
	OrderType                       OrderType           `json:"orderType"`
	StartTime                       *big.Int            `json:"startTime"`
	EndTime                         *big.Int            `json:"endTime"`
	ZoneHash                        common.Hash         `json:"zoneHash"`
	Salt                            *big.Int            `json:"salt"`
	ConduitKey                      common.Hash         `json:"conduitKey"`
	TotalOriginalConsiderationItems *big.Int            `json:"totalOriginalConsiderationItems"`
}

// OrderComponents is the signed view of an order. It carries the counter and
// is only used for hashing, signing and cancellation.
type OrderComponents struct {
	Offerer       common.Address      `json:"offerer"`
	Zone          common.Address      `json:"zone"`
	Offer         []OfferItem         `json:"offer"`
	Consideration []ConsiderationItem `json:"consideration"`
	OrderType     OrderType           `json:"orderType"`
	StartTime     *big.Int            `json:"startTime"`
	EndTime       *big.Int            `json:"endTime"`
	ZoneHash      common.Hash         `json:"zoneHash"`
	Salt          *big.Int            `json:"salt"`
	ConduitKey    common.Hash         `json:"conduitKey"`
	Counter       *big.Int            `json:"counter"`
}

// Order is a signed order ready for fulfillment
type Order struct {
	Parameters OrderParameters
	Signature  []byte
}

type orderJSON struct {
	Parameters OrderParameters `json:"parameters"`
	Signature  hexutil.Bytes   `json:"signature"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{Parameters: o.Parameters, Signature: o.Signature})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var dec orderJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	o.Parameters = dec.Parameters
	o.Signature = dec.Signature
	return nil
}

// AdvancedOrder is an order with a fill fraction and extra data
type AdvancedOrder struct {
	Parameters  OrderParameters
	Numerator   *big.Int
	Denominator *big.Int
	Signature   []byte
	ExtraData   []byte
}

// OrderStatus is the on-chain status of an order hash
type OrderStatus struct {
	IsValidated bool     `json:"isValidated"`
	IsCancelled bool     `json:"isCancelled"`
	TotalFilled *big.Int `json:"totalFilled"`
	TotalSize   *big.Int `json:"totalSize"`
}

// CriteriaResolver supplies a concrete identifier and merkle proof for a criteria item
type CriteriaResolver struct {
	OrderIndex    *big.Int
	Side          Side
	Index         *big.Int
	Identifier    *big.Int
	CriteriaProof []common.Hash
}

// FulfillmentComponent points at one item of one order in a match
type FulfillmentComponent struct {
	OrderIndex *big.Int `json:"orderIndex"`
	ItemIndex  *big.Int `json:"itemIndex"`
}

// Fulfillment sums the referenced offer items and pays the referenced consideration items
type Fulfillment struct {
	OfferComponents         []FulfillmentComponent `json:"offerComponents"`
	ConsiderationComponents []FulfillmentComponent `json:"considerationComponents"`
}

// AdditionalRecipient is a flattened consideration leg of a basic order
type AdditionalRecipient struct {
	Amount    *big.Int
	Recipient common.Address
}

// BasicOrderParameters is the argument of fulfillBasicOrder
type BasicOrderParameters struct {
	ConsiderationToken                common.Address
	ConsiderationIdentifier           *big.Int
	ConsiderationAmount               *big.Int
	Offerer                           common.Address
	Zone                              common.Address
	OfferToken                        common.Address
	OfferIdentifier                   *big.Int
	OfferAmount                       *big.Int
	BasicOrderType                    uint8
	StartTime                         *big.Int
	EndTime                           *big.Int
	ZoneHash                          common.Hash
	Salt                              *big.Int
	OffererConduitKey                 common.Hash
	FulfillerConduitKey               common.Hash
	TotalOriginalAdditionalRecipients *big.Int
	AdditionalRecipients              []AdditionalRecipient
	Signature                         []byte
}

// ToComponents attaches a counter to the parameters for hashing or cancellation
func (p OrderParameters) ToComponents(counter *big.Int) OrderComponents {
	return OrderComponents{
		Offerer:       p.Offerer,
		Zone:          p.Zone,
		Offer:         p.Offer,
		Consideration: p.Consideration,
		OrderType:     p.OrderType,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		ZoneHash:      p.ZoneHash,
		Salt:          p.Salt,
		ConduitKey:    p.ConduitKey,
		Counter:       counter,
	}
}

// ToParameters drops the counter and records the original consideration length
func (c OrderComponents) ToParameters() OrderParameters {
	return OrderParameters{
		Offerer:                         c.Offerer,
		Zone:                            c.Zone,
		Offer:                           c.Offer,
		Consideration:                   c.Consideration,
		OrderType:                       c.OrderType,
		StartTime:                       c.StartTime,
		EndTime:                         c.EndTime,
		ZoneHash:                        c.ZoneHash,
		Salt:                            c.Salt,
		ConduitKey:                      c.ConduitKey,
		TotalOriginalConsiderationItems: big.NewInt(int64(len(c.Consideration))),
	}
}

// Clone returns a deep copy whose item slices can be modified freely.
// Nil numbers are replaced by zero so the copy is always ABI-packable.
func (o *Order) Clone() Order {
	return Order{
		Parameters: o.Parameters.clone(),
		Signature:  common.CopyBytes(o.Signature),
	}
}

func (p OrderParameters) clone() OrderParameters {
	out := p
	out.Offer = make([]OfferItem, len(p.Offer))
	for i, item := range p.Offer {
		out.Offer[i] = item.normalized()
	}
	out.Consideration = make([]ConsiderationItem, len(p.Consideration))
	for i, item := range p.Consideration {
		out.Consideration[i] = item.normalized()
	}
	out.StartTime = bigOrZero(p.StartTime)
	out.EndTime = bigOrZero(p.EndTime)
	out.Salt = bigOrZero(p.Salt)
	out.TotalOriginalConsiderationItems = bigOrZero(p.TotalOriginalConsiderationItems)
	return out
}

func (c OrderComponents) normalized() OrderComponents {
	out := c.ToParameters().clone().ToComponents(bigOrZero(c.Counter))
	return out
}

func (i OfferItem) normalized() OfferItem {
	i.IdentifierOrCriteria = bigOrZero(i.IdentifierOrCriteria)
	i.StartAmount = bigOrZero(i.StartAmount)
	i.EndAmount = bigOrZero(i.EndAmount)
	return i
}

func (i ConsiderationItem) normalized() ConsiderationItem {
	i.IdentifierOrCriteria = bigOrZero(i.IdentifierOrCriteria)
	i.StartAmount = bigOrZero(i.StartAmount)
	i.EndAmount = bigOrZero(i.EndAmount)
	return i
}

const offerItemComponentsJSON = `[
	{"name": "itemType", "type": "uint8"},
	{"name": "token", "type": "address"},
	{"name": "identifierOrCriteria", "type": "uint256"},
	{"name": "startAmount", "type": "uint256"},
	{"name": "endAmount", "type": "uint256"}
]`

const considerationItemComponentsJSON = `[
	{"name": "itemType", "type": "uint8"},
	{"name": "token", "type": "address"},
	{"name": "identifierOrCriteria", "type": "uint256"},
	{"name": "startAmount", "type": "uint256"},
	{"name": "endAmount", "type": "uint256"},
	{"name": "recipient", "type": "address"}
]`

const orderFieldsJSON = `
	{"name": "offerer", "type": "address"},
	{"name": "zone", "type": "address"},
	{"name": "offer", "type": "tuple[]", "components": ` + offerItemComponentsJSON + `},
	{"name": "consideration", "type": "tuple[]", "components": ` + considerationItemComponentsJSON + `},
	{"name": "orderType", "type": "uint8"},
	{"name": "startTime", "type": "uint256"},
	{"name": "endTime", "type": "uint256"},
	{"name": "zoneHash", "type": "bytes32"},
	{"name": "salt", "type": "uint256"},
	{"name": "conduitKey", "type": "bytes32"},`

const orderParametersComponentsJSON = `[` + orderFieldsJSON + `
	{"name": "totalOriginalConsiderationItems", "type": "uint256"}
]`

const orderComponentsComponentsJSON = `[` + orderFieldsJSON + `
	{"name": "counter", "type": "uint256"}
]`

const orderComponentsJSON = `[
	{"name": "parameters", "type": "tuple", "components": ` + orderParametersComponentsJSON + `},
	{"name": "signature", "type": "bytes"}
]`

const advancedOrderComponentsJSON = `[
	{"name": "parameters", "type": "tuple", "components": ` + orderParametersComponentsJSON + `},
	{"name": "numerator", "type": "uint120"},
	{"name": "denominator", "type": "uint120"},
	{"name": "signature", "type": "bytes"},
	{"name": "extraData", "type": "bytes"}
]`

const fulfillmentComponentJSON = `[
	{"name": "orderIndex", "type": "uint256"},
	{"name": "itemIndex", "type": "uint256"}
]`

// Seaport 1.1 ABI, restricted to the entry points the SDK calls
const seaportABIJSON = `[
	{
		"name": "getCounter",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "offerer", "type": "address"}],
		"outputs": [{"name": "counter", "type": "uint256"}]
	},
	{
		"name": "getOrderHash",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "order", "type": "tuple", "components": ` + orderComponentsComponentsJSON + `}],
		"outputs": [{"name": "orderHash", "type": "bytes32"}]
	},
	{
		"name": "getOrderStatus",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "orderHash", "type": "bytes32"}],
		"outputs": [
			{"name": "isValidated", "type": "bool"},
			{"name": "isCancelled", "type": "bool"},
			{"name": "totalFilled", "type": "uint256"},
			{"name": "totalSize", "type": "uint256"}
		]
	},
	{
		"name": "cancel",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "orders", "type": "tuple[]", "components": ` + orderComponentsComponentsJSON + `}],
		"outputs": [{"name": "cancelled", "type": "bool"}]
	},
	{
		"name": "validate",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "orders", "type": "tuple[]", "components": ` + orderComponentsJSON + `}],
		"outputs": [{"name": "validated", "type": "bool"}]
	},
	{
		"name": "incrementCounter",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [],
		"outputs": [{"name": "newCounter", "type": "uint256"}]
	},
	{
		"name": "fulfillBasicOrder",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [{"name": "parameters", "type": "tuple", "components": [
			{"name": "considerationToken", "type": "address"},
			{"name": "considerationIdentifier", "type": "uint256"},
			{"name": "considerationAmount", "type": "uint256"},
			{"name": "offerer", "type": "address"},
			{"name": "zone", "type": "address"},
			{"name": "offerToken", "type": "address"},
			{"name": "offerIdentifier", "type": "uint256"},
			{"name": "offerAmount", "type": "uint256"},
			{"name": "basicOrderType", "type": "uint8"},
			{"name": "startTime", "type": "uint256"},
			{"name": "endTime", "type": "uint256"},
			{"name": "zoneHash", "type": "bytes32"},
			{"name": "salt", "type": "uint256"},
			{"name": "offererConduitKey", "type": "bytes32"},
			{"name": "fulfillerConduitKey", "type": "bytes32"},
			{"name": "totalOriginalAdditionalRecipients", "type": "uint256"},
			{"name": "additionalRecipients", "type": "tuple[]", "components": [
				{"name": "amount", "type": "uint256"},
				{"name": "recipient", "type": "address"}
			]},
			{"name": "signature", "type": "bytes"}
		]}],
		"outputs": [{"name": "fulfilled", "type": "bool"}]
	},
	{
		"name": "fulfillOrder",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "order", "type": "tuple", "components": ` + orderComponentsJSON + `},
			{"name": "fulfillerConduitKey", "type": "bytes32"}
		],
		"outputs": [{"name": "fulfilled", "type": "bool"}]
	},
	{
		"name": "fulfillAdvancedOrder",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "advancedOrder", "type": "tuple", "components": ` + advancedOrderComponentsJSON + `},
			{"name": "criteriaResolvers", "type": "tuple[]", "components": [
				{"name": "orderIndex", "type": "uint256"},
				{"name": "side", "type": "uint8"},
				{"name": "index", "type": "uint256"},
				{"name": "identifier", "type": "uint256"},
				{"name": "criteriaProof", "type": "bytes32[]"}
			]},
			{"name": "fulfillerConduitKey", "type": "bytes32"},
			{"name": "recipient", "type": "address"}
		],
		"outputs": [{"name": "fulfilled", "type": "bool"}]
	},
	{
		"name": "matchOrders",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "orders", "type": "tuple[]", "components": ` + orderComponentsJSON + `},
			{"name": "fulfillments", "type": "tuple[]", "components": [
				{"name": "offerComponents", "type": "tuple[]", "components": ` + fulfillmentComponentJSON + `},
				{"name": "considerationComponents", "type": "tuple[]", "components": ` + fulfillmentComponentJSON + `}
			]}
		],
		"outputs": []
	}
]`

// ERC20 ABI JSON for allowance, approve and decimals
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

// ERC721 ABI JSON for approval reads and writes
const erc721ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "operator", "type": "address"},
			{"name": "approved", "type": "bool"}
		],
		"name": "setApprovalForAll",
		"outputs": [],
		"type": "function"
	}
]`

// ERC1155 ABI JSON for isApprovedForAll and setApprovalForAll
const erc1155ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "operator", "type": "address"},
			{"name": "approved", "type": "bool"}
		],
		"name": "setApprovalForAll",
		"outputs": [],
		"type": "function"
	}
]`

var (
	seaportABI = mustParseABI("Seaport", seaportABIJSON)
	erc20ABI   = mustParseABI("ERC20", erc20ABIJSON)
	erc721ABI  = mustParseABI("ERC721", erc721ABIJSON)
	erc1155ABI = mustParseABI("ERC1155", erc1155ABIJSON)
)

// GetSeaportABI returns the parsed Seaport ABI
func GetSeaportABI() abi.ABI {
	return seaportABI
}

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI {
	return erc20ABI
}

// GetERC721ABI returns the parsed ERC721 ABI
func GetERC721ABI() abi.ABI {
	return erc721ABI
}

// GetERC1155ABI returns the parsed ERC1155 ABI
func GetERC1155ABI() abi.ABI {
	return erc1155ABI
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
