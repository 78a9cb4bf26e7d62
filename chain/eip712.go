package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712 Domain constants of Seaport 1.1
const (
	EIP712DomainName    = "Seaport"
	EIP712DomainVersion = "1.1"
)

const orderComponentsPrimaryType = "OrderComponents"

// EIP712Types is the fixed type schema orders are hashed and signed with.
// Field order is significant and must match the settlement contract.
var EIP712Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"OrderComponents": {
		{Name: "offerer", Type: "address"},
		{Name: "zone", Type: "address"},
		{Name: "offer", Type: "OfferItem[]"},
		{Name: "consideration", Type: "ConsiderationItem[]"},
		{Name: "orderType", Type: "uint8"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "zoneHash", Type: "bytes32"},
		{Name: "salt", Type: "uint256"},
		{Name: "conduitKey", Type: "bytes32"},
		{Name: "counter", Type: "uint256"},
	},
	"OfferItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
	},
	"ConsiderationItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	},
}

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates a new EIP712Domain with the Seaport values
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

func (d *EIP712Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() (common.Hash, error) {
	typed := apitypes.TypedData{Types: EIP712Types, Domain: d.typedDataDomain()}
	h, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash domain: %w", err)
	}
	return common.BytesToHash(h), nil
}

// OrderTypedData builds the structured payload a Signer signs
func OrderTypedData(domain *EIP712Domain, components *OrderComponents) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       EIP712Types,
		PrimaryType: orderComponentsPrimaryType,
		Domain:      domain.typedDataDomain(),
		Message:     componentsMessage(components.normalized()),
	}
}

// HashOrderComponents computes the order hash locally. It equals the
// settlement contract's getOrderHash for the same components.
func HashOrderComponents(components *OrderComponents) (common.Hash, error) {
	// The encoder rejects an empty domain even though the struct hash never reads it.
	typed := apitypes.TypedData{
		Types:       EIP712Types,
		PrimaryType: orderComponentsPrimaryType,
		Domain:      apitypes.TypedDataDomain{Name: EIP712DomainName, Version: EIP712DomainVersion},
	}
	h, err := typed.HashStruct(orderComponentsPrimaryType, componentsMessage(components.normalized()))
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash order components: %w", err)
	}
	return common.BytesToHash(h), nil
}

// CreateOrderSignHash creates the final EIP712 digest to be signed:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func CreateOrderSignHash(domain *EIP712Domain, components *OrderComponents) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(OrderTypedData(domain, components))
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

func componentsMessage(c OrderComponents) apitypes.TypedDataMessage {
	offer := make([]interface{}, len(c.Offer))
	for i, item := range c.Offer {
		offer[i] = map[string]interface{}{
			"itemType":             big.NewInt(int64(item.ItemType)),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": item.IdentifierOrCriteria,
			"startAmount":          item.StartAmount,
			"endAmount":            item.EndAmount,
		}
	}
	consideration := make([]interface{}, len(c.Consideration))
	for i, item := range c.Consideration {
		consideration[i] = map[string]interface{}{
			"itemType":             big.NewInt(int64(item.ItemType)),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": item.IdentifierOrCriteria,
			"startAmount":          item.StartAmount,
			"endAmount":            item.EndAmount,
			"recipient":            item.Recipient.Hex(),
		}
	}
	return apitypes.TypedDataMessage{
		"offerer":       c.Offerer.Hex(),
		"zone":          c.Zone.Hex(),
		"offer":         offer,
		"consideration": consideration,
		"orderType":     big.NewInt(int64(c.OrderType)),
		"startTime":     c.StartTime,
		"endTime":       c.EndTime,
		"zoneHash":      c.ZoneHash.Hex(),
		"salt":          c.Salt,
		"conduitKey":    c.ConduitKey.Hex(),
		"counter":       c.Counter,
	}
}

// Signer produces signatures over EIP712 typed data
type Signer interface {
	Address() common.Address
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

// KeySigner signs with an in-memory secp256k1 key
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewKeySigner creates a KeySigner from a hex-encoded private key
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeySignerFromKey(privateKey), nil
}

// NewKeySignerFromKey wraps an existing private key
func NewKeySignerFromKey(privateKey *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// Address returns the address of the signer
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTypedData signs typed data and returns a 65-byte r||s||v signature with v in {27,28}
func (s *KeySigner) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	// Add recovery ID
	signature[64] += 27
	return signature, nil
}

// CompactSignature folds the recovery bit of a 65-byte signature into s (EIP-2098).
// A 64-byte signature is returned unchanged. A 65-byte signature with a high
// s value cannot be folded and is also returned unchanged.
func CompactSignature(signature []byte) ([]byte, error) {
	switch len(signature) {
	case 64:
		return common.CopyBytes(signature), nil
	case 65:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignatureLength, len(signature))
	}

	v := signature[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 || signature[32]&0x80 != 0 {
		return common.CopyBytes(signature), nil
	}

	compact := make([]byte, 64)
	copy(compact, signature[:64])
	compact[32] |= v << 7
	return compact, nil
}

// ExpandSignature converts a 64-byte compact signature back to r||s||v with v in {27,28}.
// A 65-byte signature is returned unchanged.
func ExpandSignature(signature []byte) ([]byte, error) {
	switch len(signature) {
	case 65:
		return common.CopyBytes(signature), nil
	case 64:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignatureLength, len(signature))
	}

	expanded := make([]byte, 65)
	copy(expanded, signature)
	expanded[64] = 27 + signature[32]>>7
	expanded[32] &= 0x7f
	return expanded, nil
}

// RecoverSigner returns the address that signed the order components
func RecoverSigner(domain *EIP712Domain, components *OrderComponents, signature []byte) (common.Address, error) {
	digest, err := CreateOrderSignHash(domain, components)
	if err != nil {
		return common.Address{}, err
	}
	sig, err := ExpandSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
