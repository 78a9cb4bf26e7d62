package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ItemType is the Seaport item type taxonomy
type ItemType uint8

const (
	ItemTypeNative ItemType = iota
	ItemTypeERC20
	ItemTypeERC721
	ItemTypeERC1155
	ItemTypeERC721WithCriteria
	ItemTypeERC1155WithCriteria
)

// Valid reports whether t is one of the six recognized item types
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeNative, ItemTypeERC20, ItemTypeERC721, ItemTypeERC1155,
		ItemTypeERC721WithCriteria, ItemTypeERC1155WithCriteria:
		return true
	default:
		return false
	}
}

// IsERC721 reports membership in {ERC721, ERC721WithCriteria}
func (t ItemType) IsERC721() bool {
	return t == ItemTypeERC721 || t == ItemTypeERC721WithCriteria
}

// IsERC1155 reports membership in {ERC1155, ERC1155WithCriteria}
func (t ItemType) IsERC1155() bool {
	return t == ItemTypeERC1155 || t == ItemTypeERC1155WithCriteria
}

// IsCriteria reports whether the identifier is a merkle root rather than a token id
func (t ItemType) IsCriteria() bool {
	return t == ItemTypeERC721WithCriteria || t == ItemTypeERC1155WithCriteria
}

func (t ItemType) String() string {
	switch t {
	case ItemTypeNative:
		return "NATIVE"
	case ItemTypeERC20:
		return "ERC20"
	case ItemTypeERC721:
		return "ERC721"
	case ItemTypeERC1155:
		return "ERC1155"
	case ItemTypeERC721WithCriteria:
		return "ERC721_WITH_CRITERIA"
	case ItemTypeERC1155WithCriteria:
		return "ERC1155_WITH_CRITERIA"
	default:
		return fmt.Sprintf("ItemType(%d)", uint8(t))
	}
}

// OfferItem is one item given by the offerer
type OfferItem struct {
	ItemType             ItemType       `json:"itemType"`
	Token                common.Address `json:"token"`
	IdentifierOrCriteria *big.Int       `json:"identifierOrCriteria"`
	StartAmount          *big.Int       `json:"startAmount"`
	EndAmount            *big.Int       `json:"endAmount"`
}

// ConsiderationItem is one item the offerer expects to be paid, and to whom
type ConsiderationItem struct {
	ItemType             ItemType       `json:"itemType"`
	Token                common.Address `json:"token"`
	IdentifierOrCriteria *big.Int       `json:"identifierOrCriteria"`
	StartAmount          *big.Int       `json:"startAmount"`
	EndAmount            *big.Int       `json:"endAmount"`
	Recipient            common.Address `json:"recipient"`
}

// ItemData represents the data for building an offer or consideration item.
// Nil numbers and empty addresses fall back to their defaults.
type ItemData struct {
	ItemType    ItemType
	Token       string
	Identifier  *big.Int
	StartAmount *big.Int
	EndAmount   *big.Int
	Recipient   string
}

// BuildOfferItem builds a validated offer item
func BuildOfferItem(data *ItemData) (OfferItem, error) {
	token, id, start, end, err := resolveItem(data)
	if err != nil {
		return OfferItem{}, err
	}
	return OfferItem{
		ItemType:             data.ItemType,
		Token:                token,
		IdentifierOrCriteria: id,
		StartAmount:          start,
		EndAmount:            end,
	}, nil
}

// BuildConsiderationItem builds a validated consideration item
func BuildConsiderationItem(data *ItemData) (ConsiderationItem, error) {
	token, id, start, end, err := resolveItem(data)
	if err != nil {
		return ConsiderationItem{}, err
	}
	recipient, err := parseAddress(data.Recipient)
	if err != nil {
		return ConsiderationItem{}, fmt.Errorf("recipient: %w", err)
	}
	return ConsiderationItem{
		ItemType:             data.ItemType,
		Token:                token,
		IdentifierOrCriteria: id,
		StartAmount:          start,
		EndAmount:            end,
		Recipient:            recipient,
	}, nil
}

func resolveItem(data *ItemData) (common.Address, *big.Int, *big.Int, *big.Int, error) {
	if data == nil || !data.ItemType.Valid() {
		var code any = "nil"
		if data != nil {
			code = uint8(data.ItemType)
		}
		return common.Address{}, nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidItemType, code)
	}

	token, err := parseAddress(data.Token)
	if err != nil {
		return common.Address{}, nil, nil, nil, fmt.Errorf("token: %w", err)
	}

	id := bigOrZero(data.Identifier)
	if id.Sign() < 0 {
		return common.Address{}, nil, nil, nil, fmt.Errorf("%w: negative identifier", ErrInvalidItemAmount)
	}

	// A plain ERC721 always moves exactly one token
	defaultAmount := big.NewInt(0)
	if data.ItemType == ItemTypeERC721 {
		defaultAmount = big.NewInt(1)
	}

	start := defaultAmount
	if data.StartAmount != nil {
		start = new(big.Int).Set(data.StartAmount)
	}
	end := new(big.Int).Set(start)
	if data.EndAmount != nil {
		end = new(big.Int).Set(data.EndAmount)
	}

	if start.Sign() < 0 || end.Sign() < 0 {
		return common.Address{}, nil, nil, nil, fmt.Errorf("%w: negative amount", ErrInvalidItemAmount)
	}
	if data.ItemType == ItemTypeERC721 && (!isOne(start) || !isOne(end)) {
		return common.Address{}, nil, nil, nil, fmt.Errorf("%w: ERC721 amount must be 1, got %s..%s", ErrInvalidItemAmount, start, end)
	}

	return token, id, start, end, nil
}

// CurrentAmount linearly interpolates an item amount between startTime and endTime.
// Outside the window the nearest bound is returned.
func CurrentAmount(startAmount, endAmount *big.Int, startTime, endTime, now *big.Int) *big.Int {
	if startAmount.Cmp(endAmount) == 0 || now.Cmp(startTime) <= 0 {
		return new(big.Int).Set(startAmount)
	}
	if now.Cmp(endTime) >= 0 {
		return new(big.Int).Set(endAmount)
	}

	duration := new(big.Int).Sub(endTime, startTime)
	elapsed := new(big.Int).Sub(now, startTime)
	remaining := new(big.Int).Sub(duration, elapsed)

	// start*remaining + end*elapsed, over duration
	total := new(big.Int).Mul(startAmount, remaining)
	total.Add(total, new(big.Int).Mul(endAmount, elapsed))
	return total.Div(total, duration)
}

// maxAmount returns the larger of an item's two bounds
func maxAmount(start, end *big.Int) *big.Int {
	if start.Cmp(end) >= 0 {
		return start
	}
	return end
}

func parseAddress(addr string) (common.Address, error) {
	if addr == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr), nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isOne(v *big.Int) bool {
	return v.Cmp(big.NewInt(1)) == 0
}
