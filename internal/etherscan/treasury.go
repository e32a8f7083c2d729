package etherscan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NetBalance sums inbound minus outbound transfers of the token with the given
// symbol across all addresses. Addresses without history contribute zero.
func (c *Client) NetBalance(ctx context.Context, addresses []string, symbol string) (float64, error) {
	total := new(big.Rat)
	for _, address := range addresses {
		transfers, err := c.TokenTransfers(ctx, address)
		if errors.Is(err, ErrNoTransactions) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("treasury %s: %w", address, err)
		}

		net, err := NetOf(transfers, address, symbol)
		if err != nil {
			return 0, fmt.Errorf("treasury %s: %w", address, err)
		}
		total.Add(total, net)
	}

	value, _ := total.Float64()
	return value, nil
}

// NetOf returns inbound minus outbound amount of symbol for address.
// Self-transfers cancel out.
func NetOf(transfers []Transfer, address, symbol string) (*big.Rat, error) {
	net := new(big.Rat)
	for _, t := range transfers {
		if !strings.EqualFold(t.TokenSymbol, symbol) {
			continue
		}
		amount, err := t.Amount()
		if err != nil {
			return nil, err
		}
		if t.IsTo(address) {
			net.Add(net, amount)
		}
		if t.IsFrom(address) {
			net.Sub(net, amount)
		}
	}
	return net, nil
}
