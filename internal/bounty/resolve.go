package bounty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/skridlevsky/bounty-feed/internal/etherscan"
)

// ValueInfo is the resolved value of a bounty claim
type ValueInfo struct {
	TokenSymbol string
	Value       float64
}

// TransferSource lists the token transfers of an address
type TransferSource interface {
	TokenTransfers(ctx context.Context, address string) ([]etherscan.Transfer, error)
}

// SymbolResolver looks up a token symbol from its contract
type SymbolResolver interface {
	TokenSymbol(ctx context.Context, contract string) (string, error)
}

// Resolver turns claims into token values
type Resolver struct {
	transfers   TransferSource
	symbols     SymbolResolver
	tokenSymbol string
}

// NewResolver creates a resolver. tokenSymbol is the organization token that
// stated amounts are denominated in. symbols may be nil.
func NewResolver(transfers TransferSource, symbols SymbolResolver, tokenSymbol string) *Resolver {
	return &Resolver{
		transfers:   transfers,
		symbols:     symbols,
		tokenSymbol: tokenSymbol,
	}
}

// Resolve returns the value of claim, or nil when it has none. A stated
// amount is used as is without consulting the explorer.
func (r *Resolver) Resolve(ctx context.Context, claim Claim) (*ValueInfo, error) {
	if claim.StatedAmount != nil {
		return &ValueInfo{TokenSymbol: r.tokenSymbol, Value: *claim.StatedAmount}, nil
	}
	if claim.ContractAddress == "" {
		return nil, nil
	}

	transfers, err := r.transfers.TokenTransfers(ctx, claim.ContractAddress)
	if errors.Is(err, etherscan.ErrNoTransactions) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", claim.ContractAddress, err)
	}
	if len(transfers) == 0 {
		return nil, nil
	}

	total := new(big.Rat)
	for _, t := range transfers {
		if !t.IsTo(claim.ContractAddress) || t.IsFrom(claim.ContractAddress) {
			continue
		}
		amount, err := t.Amount()
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", claim.ContractAddress, err)
		}
		total.Add(total, amount)
	}
	value, _ := total.Float64()

	return &ValueInfo{
		TokenSymbol: r.symbolOf(ctx, transfers[0]),
		Value:       value,
	}, nil
}

func (r *Resolver) symbolOf(ctx context.Context, t etherscan.Transfer) string {
	if symbol := strings.TrimSpace(t.TokenSymbol); symbol != "" {
		return symbol
	}
	if r.symbols == nil || t.ContractAddress == "" {
		return ""
	}

	symbol, err := r.symbols.TokenSymbol(ctx, t.ContractAddress)
	if err != nil {
		slog.Warn("Token symbol lookup failed", "contract", t.ContractAddress, "error", err)
		return ""
	}
	return symbol
}
