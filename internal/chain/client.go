package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/skridlevsky/bounty-feed/internal/retry"
)

// ContractCaller executes read-only contract calls. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client resolves token metadata over Ethereum JSON-RPC
type Client struct {
	rpcClient *rpc.Client
	caller    ContractCaller
	retry     retry.Policy

	mu      sync.RWMutex
	symbols map[common.Address]string
}

// Dial connects to the RPC endpoint.
func Dial(ctx context.Context, rpcURL string, policy retry.Policy) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	c := NewClient(ethclient.NewClient(rpcClient), policy)
	c.rpcClient = rpcClient
	return c, nil
}

// NewClient wraps an existing contract caller.
func NewClient(caller ContractCaller, policy retry.Policy) *Client {
	return &Client{
		caller:  caller,
		retry:   policy,
		symbols: make(map[common.Address]string),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// TokenSymbol returns the ERC20 symbol of contract, trying the string ABI
// first and bytes32 second. Resolved symbols are cached for the process
// lifetime.
func (c *Client) TokenSymbol(ctx context.Context, contract string) (string, error) {
	if !common.IsHexAddress(contract) {
		return "", fmt.Errorf("invalid contract address %q", contract)
	}
	token := common.HexToAddress(contract)

	c.mu.RLock()
	symbol, ok := c.symbols[token]
	c.mu.RUnlock()
	if ok {
		return symbol, nil
	}

	stringABI, err := symbolStringInstance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := symbolBytes32Instance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	var raw []byte
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		data, err := stringABI.Pack("symbol")
		if err != nil {
			return fmt.Errorf("pack symbol: %w", err)
		}
		raw, err = c.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return fmt.Errorf("call symbol: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("token %s: %w", token.Hex(), err)
	}

	symbol, err = decodeSymbol(raw, stringABI, bytes32ABI)
	if err != nil {
		return "", fmt.Errorf("token %s: %w", token.Hex(), err)
	}

	c.mu.Lock()
	c.symbols[token] = symbol
	c.mu.Unlock()

	slog.Debug("Resolved token symbol", "token", token.Hex(), "symbol", symbol)
	return symbol, nil
}

func decodeSymbol(raw []byte, stringABI, bytes32ABI abi.ABI) (string, error) {
	if values, err := stringABI.Unpack("symbol", raw); err == nil && len(values) == 1 {
		if symbol, ok := values[0].(string); ok && strings.TrimSpace(symbol) != "" {
			return symbol, nil
		}
	}

	values, err := bytes32ABI.Unpack("symbol", raw)
	if err != nil {
		return "", fmt.Errorf("unpack symbol: %w", err)
	}
	if len(values) == 1 {
		if symbol, ok := bytes32ToString(values[0]); ok && symbol != "" {
			return symbol, nil
		}
	}
	return "", fmt.Errorf("empty symbol")
}
