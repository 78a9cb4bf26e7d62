package seaport

import (
	"errors"

	"github.com/kotard8899/seaport-sdk/chain"
)

var (
	// ErrUnsupportedChain is returned when a chain id is missing from the address book
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrUnknownConduit is returned when a conduit key has no address on the chain
	ErrUnknownConduit = errors.New("unknown conduit key")

	// ErrPayloadKindMismatch is returned when order components are supplied
	// where an order is expected, or the other way round
	ErrPayloadKindMismatch = errors.New("payload kind mismatch")
)

// Errors raised by the chain package
var (
	ErrInvalidItemType        = chain.ErrInvalidItemType
	ErrUnsupportedItemType    = chain.ErrUnsupportedItemType
	ErrInvalidItemAmount      = chain.ErrInvalidItemAmount
	ErrInvalidSignatureLength = chain.ErrInvalidSignatureLength
	ErrMissingSigner          = chain.ErrMissingSigner
	ErrOffererSignerMismatch  = chain.ErrOffererSignerMismatch
	ErrUnresolvedAsset        = chain.ErrUnresolvedAsset
	ErrInsufficientBalance    = chain.ErrInsufficientBalance
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
	Err     error
}

func (e *InvalidParamError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *InvalidParamError) Unwrap() error {
	return e.Err
}
