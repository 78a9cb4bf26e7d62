package seaport

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kotard8899/seaport-sdk/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing() *Order {
	seller := common.HexToAddress(buyerAddr)
	order := testOrder(seller,
		[]OfferItem{testOffer(chain.ItemTypeERC721, nftAddr, 5, 1)},
		[]ConsiderationItem{
			testConsideration(chain.ItemTypeNative, ZeroAddress, 0, 975, seller),
			testConsideration(chain.ItemTypeNative, ZeroAddress, 0, 25, common.HexToAddress(feeAddr)),
		},
	)
	order.Signature[64] = 27
	return order
}

func TestDecodeOrder(t *testing.T) {
	order := listing()
	data, err := json.Marshal(order)
	require.NoError(t, err)

	decoded, err := DecodeOrder(data)
	require.NoError(t, err)
	assert.Equal(t, order.Signature, decoded.Signature)

	want, err := chain.HashOrderComponents(ptr(order.Parameters.ToComponents(big.NewInt(0))))
	require.NoError(t, err)
	got, err := chain.HashOrderComponents(ptr(decoded.Parameters.ToComponents(big.NewInt(0))))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, decoded.Parameters.EndTime.Cmp(maxUint256))
}

func TestDecodeOrderRejectsComponents(t *testing.T) {
	components := listing().Parameters.ToComponents(big.NewInt(2))
	data, err := json.Marshal(components)
	require.NoError(t, err)

	_, err = DecodeOrder(data)
	assert.ErrorIs(t, err, ErrPayloadKindMismatch)

	_, err = DecodeOrder([]byte(`{"parameters":{"counter":1},"signature":"0x"}`))
	assert.ErrorIs(t, err, ErrPayloadKindMismatch)

	var paramErr *InvalidParamError
	_, err = DecodeOrder([]byte(`{"signature":"0x"}`))
	assert.ErrorAs(t, err, &paramErr)
	_, err = DecodeOrder([]byte(`{not json`))
	assert.ErrorAs(t, err, &paramErr)
}

func TestDecodeOrderComponents(t *testing.T) {
	components := listing().Parameters.ToComponents(big.NewInt(2))
	data, err := json.Marshal(components)
	require.NoError(t, err)

	decoded, err := DecodeOrderComponents(data)
	require.NoError(t, err)
	assert.Equal(t, int64(2), decoded.Counter.Int64())

	want, err := chain.HashOrderComponents(&components)
	require.NoError(t, err)
	got, err := chain.HashOrderComponents(decoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	orderData, err := json.Marshal(listing())
	require.NoError(t, err)
	_, err = DecodeOrderComponents(orderData)
	assert.ErrorIs(t, err, ErrPayloadKindMismatch)
}

func ptr[T any](v T) *T {
	return &v
}
