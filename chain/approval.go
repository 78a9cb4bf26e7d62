package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

var (
	// MaxUint256 is the nominal "unlimited" ERC20 approval
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// ApprovalBuffer is how far below MaxUint256 an allowance may sit and still
	// count as unlimited. Some tokens clamp or decrement unlimited approvals.
	ApprovalBuffer = new(big.Int).Lsh(big.NewInt(1), 128)

	// ApprovalThreshold is the smallest ERC20 allowance reported as approved
	ApprovalThreshold = new(big.Int).Sub(MaxUint256, ApprovalBuffer)
)

// TokenReader reads approval state from token contracts
type TokenReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error)
	GetApproved(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error)
}

// ApprovalChecker decides whether a spender may already move an item
type ApprovalChecker struct {
	reader TokenReader
}

// NewApprovalChecker creates a new ApprovalChecker
func NewApprovalChecker(reader TokenReader) *ApprovalChecker {
	return &ApprovalChecker{reader: reader}
}

// IsApproved reports whether spender is authorized to transfer item out of owner
func (a *ApprovalChecker) IsApproved(ctx context.Context, owner, spender common.Address, item OfferItem) (bool, error) {
	switch item.ItemType {
	case ItemTypeNative:
		return true, nil

	case ItemTypeERC20:
		allowance, err := a.reader.Allowance(ctx, item.Token, owner, spender)
		if err != nil {
			return false, fmt.Errorf("read allowance of %s: %w", item.Token.Hex(), err)
		}
		return allowance.Cmp(ApprovalThreshold) >= 0, nil

	case ItemTypeERC721, ItemTypeERC721WithCriteria:
		// Both reads are independent; issue them together and join.
		var approvedForAll bool
		var approved common.Address
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			approvedForAll, err = a.reader.IsApprovedForAll(gctx, item.Token, owner, spender)
			if err != nil {
				return fmt.Errorf("read isApprovedForAll of %s: %w", item.Token.Hex(), err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			approved, err = a.reader.GetApproved(gctx, item.Token, bigOrZero(item.IdentifierOrCriteria))
			if err != nil {
				return fmt.Errorf("read getApproved of %s: %w", item.Token.Hex(), err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return false, err
		}
		return approvedForAll || approved == spender, nil

	case ItemTypeERC1155, ItemTypeERC1155WithCriteria:
		approvedForAll, err := a.reader.IsApprovedForAll(ctx, item.Token, owner, spender)
		if err != nil {
			return false, fmt.Errorf("read isApprovedForAll of %s: %w", item.Token.Hex(), err)
		}
		return approvedForAll, nil

	default:
		return false, fmt.Errorf("%w: %d", ErrUnsupportedItemType, uint8(item.ItemType))
	}
}

// IsConsiderationApproved is IsApproved for an item the fulfiller pays out
func (a *ApprovalChecker) IsConsiderationApproved(ctx context.Context, owner, spender common.Address, item ConsiderationItem) (bool, error) {
	return a.IsApproved(ctx, owner, spender, item.asOffer())
}

func (i ConsiderationItem) asOffer() OfferItem {
	return OfferItem{
		ItemType:             i.ItemType,
		Token:                i.Token,
		IdentifierOrCriteria: i.IdentifierOrCriteria,
		StartAmount:          i.StartAmount,
		EndAmount:            i.EndAmount,
	}
}
