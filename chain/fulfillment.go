package chain

import "math/big"

// EncodeFulfillments converts matcher output into the settlement contract's
// fulfillment records, preserving order.
func EncodeFulfillments(pairs []ComponentPair) []Fulfillment {
	out := make([]Fulfillment, len(pairs))
	for i, p := range pairs {
		out[i] = Fulfillment{
			OfferComponents:         encodeRefs(p.Offer),
			ConsiderationComponents: encodeRefs(p.Consideration),
		}
	}
	return out
}

func encodeRefs(refs []ComponentRef) []FulfillmentComponent {
	out := make([]FulfillmentComponent, len(refs))
	for i, r := range refs {
		out[i] = FulfillmentComponent{
			OrderIndex: big.NewInt(int64(r.OrderIndex())),
			ItemIndex:  big.NewInt(int64(r.ItemIndex())),
		}
	}
	return out
}
