package chain

import (
	"fmt"
)

// Order positions of the two orders in a match
const (
	MatchOrderA = 0
	MatchOrderB = 1
)

// ComponentRef points at one item as [orderIndex, itemIndex]
type ComponentRef [2]int

// OrderIndex returns the order position of the reference
func (r ComponentRef) OrderIndex() int { return r[0] }

// ItemIndex returns the item position of the reference
func (r ComponentRef) ItemIndex() int { return r[1] }

// ComponentPair is one fulfillment before encoding: the offer items on the
// left pay the consideration items on the right.
type ComponentPair struct {
	Offer         []ComponentRef `json:"offer"`
	Consideration []ComponentRef `json:"consideration"`
}

type matchPass struct {
	offerOrder  int
	targetOrder int
}

// Scan passes in the order their fulfillments are emitted
var matchPasses = []matchPass{
	{offerOrder: MatchOrderA, targetOrder: MatchOrderB},
	{offerOrder: MatchOrderA, targetOrder: MatchOrderA},
	{offerOrder: MatchOrderB, targetOrder: MatchOrderA},
	{offerOrder: MatchOrderB, targetOrder: MatchOrderB},
}

// MatchComponents pairs every offer item of both orders with the
// consideration items it can satisfy. Neither order is modified. Amounts are
// not compared; the settlement contract checks sufficiency.
func MatchComponents(orderA, orderB *Order) ([]ComponentPair, error) {
	if orderA == nil || orderB == nil {
		return nil, fmt.Errorf("both orders are required")
	}
	orders := [2]*OrderParameters{&orderA.Parameters, &orderB.Parameters}

	matchedOffer := [2][]bool{
		make([]bool, len(orders[0].Offer)),
		make([]bool, len(orders[1].Offer)),
	}
	usedConsideration := [2][]bool{
		make([]bool, len(orders[0].Consideration)),
		make([]bool, len(orders[1].Consideration)),
	}

	var pairs []ComponentPair
	for _, pass := range matchPasses {
		offer := orders[pass.offerOrder].Offer
		target := orders[pass.targetOrder].Consideration

		for i, item := range offer {
			if matchedOffer[pass.offerOrder][i] {
				continue
			}
			var refs []ComponentRef
			for j, candidate := range target {
				if usedConsideration[pass.targetOrder][j] || !canSatisfy(item, candidate) {
					continue
				}
				refs = append(refs, ComponentRef{pass.targetOrder, j})
				usedConsideration[pass.targetOrder][j] = true
				if !item.ItemType.IsERC1155() {
					break
				}
			}
			if len(refs) == 0 {
				continue
			}
			matchedOffer[pass.offerOrder][i] = true
			pairs = append(pairs, ComponentPair{
				Offer:         []ComponentRef{{pass.offerOrder, i}},
				Consideration: refs,
			})
		}
	}

	for orderIndex, matched := range matchedOffer {
		for itemIndex, ok := range matched {
			if !ok {
				return nil, fmt.Errorf("%w: order %d offer item %d", ErrUnresolvedAsset, orderIndex, itemIndex)
			}
		}
	}
	return pairs, nil
}

// canSatisfy reports whether offer can pay consideration. Fungible items
// match on token alone; every other type also needs the same identifier.
func canSatisfy(offer OfferItem, consideration ConsiderationItem) bool {
	if offer.Token != consideration.Token {
		return false
	}
	if offer.ItemType == ItemTypeERC20 {
		return true
	}
	return bigOrZero(offer.IdentifierOrCriteria).Cmp(bigOrZero(consideration.IdentifierOrCriteria)) == 0
}

// ApplyGapAsset appends gap to a copy of orderA's consideration and routes it
// through the second fulfillment. The inputs are left untouched and the
// number of fulfillments does not change.
func ApplyGapAsset(orderA *Order, pairs []ComponentPair, gap ConsiderationItem) (Order, []ComponentPair, error) {
	if len(pairs) < 2 {
		return Order{}, nil, fmt.Errorf("%w: got %d", ErrGapAssetNeedsTwoFulfillments, len(pairs))
	}
	if !gap.ItemType.Valid() {
		return Order{}, nil, fmt.Errorf("gap asset: %w: %d", ErrInvalidItemType, uint8(gap.ItemType))
	}

	patched := orderA.Clone()
	gapIndex := len(patched.Parameters.Consideration)
	patched.Parameters.Consideration = append(patched.Parameters.Consideration, gap.normalized())

	out := clonePairs(pairs)
	out[1].Consideration = append(out[1].Consideration, ComponentRef{MatchOrderA, gapIndex})
	return patched, out, nil
}

func clonePairs(pairs []ComponentPair) []ComponentPair {
	out := make([]ComponentPair, len(pairs))
	for i, p := range pairs {
		out[i] = ComponentPair{
			Offer:         append([]ComponentRef(nil), p.Offer...),
			Consideration: append([]ComponentRef(nil), p.Consideration...),
		}
	}
	return out
}
