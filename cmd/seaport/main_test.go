package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kotard8899/seaport-sdk/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller  = "0x00000000000000000000000000000000000000e5"
	buyer   = "0x00000000000000000000000000000000000000d4"
	feeAddr = "0x00000000000000000000000000000000000000f6"
	nft     = "0x00000000000000000000000000000000000000a1"
	token   = "0x00000000000000000000000000000000000000b2"
)

func item(itemType chain.ItemType, addr string, id, amount int64) chain.OfferItem {
	return chain.OfferItem{
		ItemType:             itemType,
		Token:                common.HexToAddress(addr),
		IdentifierOrCriteria: big.NewInt(id),
		StartAmount:          big.NewInt(amount),
		EndAmount:            big.NewInt(amount),
	}
}

func leg(itemType chain.ItemType, addr string, id, amount int64, recipient string) chain.ConsiderationItem {
	offer := item(itemType, addr, id, amount)
	return chain.ConsiderationItem{
		ItemType:             offer.ItemType,
		Token:                offer.Token,
		IdentifierOrCriteria: offer.IdentifierOrCriteria,
		StartAmount:          offer.StartAmount,
		EndAmount:            offer.EndAmount,
		Recipient:            common.HexToAddress(recipient),
	}
}

func order(offerer string, offer []chain.OfferItem, consideration []chain.ConsiderationItem) *chain.Order {
	signature := make([]byte, 65)
	signature[64] = 27
	return &chain.Order{
		Parameters: chain.OrderParameters{
			Offerer:                         common.HexToAddress(offerer),
			Offer:                           offer,
			Consideration:                   consideration,
			OrderType:                       chain.OrderTypeFullOpen,
			StartTime:                       big.NewInt(0),
			EndTime:                         new(big.Int).Set(chain.MaxUint256),
			Salt:                            big.NewInt(1),
			TotalOriginalConsiderationItems: big.NewInt(int64(len(consideration))),
		},
		Signature: signature,
	}
}

func writeJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"seaport", "--log-level", "error"}, args...)))
	return out.Bytes()
}

func TestHashCommand(t *testing.T) {
	components := chain.OrderComponents{
		Offerer: common.HexToAddress(seller),
		Offer:   []chain.OfferItem{item(chain.ItemTypeERC721, nft, 5, 1)},
		Consideration: []chain.ConsiderationItem{
			leg(chain.ItemTypeNative, "", 0, 975, seller),
			leg(chain.ItemTypeNative, "", 0, 25, feeAddr),
		},
		OrderType:  chain.OrderTypeFullOpen,
		StartTime:  big.NewInt(1700000000),
		EndTime:    big.NewInt(1800000000),
		Salt:       big.NewInt(12345),
		ConduitKey: common.HexToHash("0x0000007b02230091a7ed01230072f7006a004d60a8d4e71d599b8104250f0000"),
		Counter:    big.NewInt(0),
	}
	path := writeJSON(t, "components.json", components)

	var got map[string]string
	require.NoError(t, json.Unmarshal(run(t, "hash", "--file", path), &got))
	assert.Equal(t, "0xaa9a3149231d72742ab96bea30dea1bcd5c344518c2dbbd548916a88b894f9f3", got["orderHash"])
	assert.Equal(t, "0xbedda1b4451ca0b35cfdaaca76faa5566cebf078450c9040f8a03b7de88806aa", got["digest"])

	// Another chain changes the digest but not the order hash
	require.NoError(t, json.Unmarshal(run(t, "hash", "--file", path, "--chain-id", "5"), &got))
	assert.Equal(t, "0xaa9a3149231d72742ab96bea30dea1bcd5c344518c2dbbd548916a88b894f9f3", got["orderHash"])
	assert.NotEqual(t, "0xbedda1b4451ca0b35cfdaaca76faa5566cebf078450c9040f8a03b7de88806aa", got["digest"])
}

func TestHashCommandRejectsOrder(t *testing.T) {
	path := writeJSON(t, "order.json", order(seller,
		[]chain.OfferItem{item(chain.ItemTypeERC721, nft, 5, 1)},
		[]chain.ConsiderationItem{leg(chain.ItemTypeNative, "", 0, 1000, seller)},
	))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"seaport", "hash", "--file", path})
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	basic := writeJSON(t, "basic.json", order(seller,
		[]chain.OfferItem{item(chain.ItemTypeERC721, nft, 5, 1)},
		[]chain.ConsiderationItem{
			leg(chain.ItemTypeNative, "", 0, 975, seller),
			leg(chain.ItemTypeNative, "", 0, 25, feeAddr),
		},
	))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(run(t, "classify", "--file", basic), &got))
	assert.Equal(t, "basic", got["strategy"])
	assert.Equal(t, "ERC721ForNative", got["route"])

	mixed := writeJSON(t, "mixed.json", order(seller,
		[]chain.OfferItem{item(chain.ItemTypeERC721, nft, 5, 1)},
		[]chain.ConsiderationItem{
			leg(chain.ItemTypeNative, "", 0, 975, seller),
			leg(chain.ItemTypeERC20, token, 0, 25, feeAddr),
		},
	))
	got = nil
	require.NoError(t, json.Unmarshal(run(t, "classify", "--file", mixed), &got))
	assert.Equal(t, "generic", got["strategy"])
	assert.NotContains(t, got, "route")
}

func TestMatchCommand(t *testing.T) {
	a := writeJSON(t, "a.json", order(seller,
		[]chain.OfferItem{item(chain.ItemTypeERC721, nft, 5, 1)},
		[]chain.ConsiderationItem{leg(chain.ItemTypeERC20, token, 0, 100, seller)},
	))
	b := writeJSON(t, "b.json", order(buyer,
		[]chain.OfferItem{item(chain.ItemTypeERC20, token, 0, 100)},
		[]chain.ConsiderationItem{leg(chain.ItemTypeERC721, nft, 5, 1, buyer)},
	))

	var fulfillments []chain.Fulfillment
	require.NoError(t, json.Unmarshal(run(t, "match", "--a", a, "--b", b), &fulfillments))
	require.Len(t, fulfillments, 2)

	ref := func(c chain.FulfillmentComponent) [2]int64 {
		return [2]int64{c.OrderIndex.Int64(), c.ItemIndex.Int64()}
	}
	assert.Equal(t, [2]int64{0, 0}, ref(fulfillments[0].OfferComponents[0]))
	assert.Equal(t, [2]int64{1, 0}, ref(fulfillments[0].ConsiderationComponents[0]))
	assert.Equal(t, [2]int64{1, 0}, ref(fulfillments[1].OfferComponents[0]))
	assert.Equal(t, [2]int64{0, 0}, ref(fulfillments[1].ConsiderationComponents[0]))
}
