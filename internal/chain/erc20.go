package chain

import (
	"bytes"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20SymbolStringJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some early tokens (MKR, SAI) return symbol as bytes32.
const erc20SymbolBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	symbolStringABI      abi.ABI
	symbolStringABIOnce  sync.Once
	symbolStringABIErr   error
	symbolBytes32ABI     abi.ABI
	symbolBytes32ABIOnce sync.Once
	symbolBytes32ABIErr  error
)

func symbolStringInstance() (abi.ABI, error) {
	symbolStringABIOnce.Do(func() {
		symbolStringABI, symbolStringABIErr = abi.JSON(strings.NewReader(erc20SymbolStringJSON))
	})
	return symbolStringABI, symbolStringABIErr
}

func symbolBytes32Instance() (abi.ABI, error) {
	symbolBytes32ABIOnce.Do(func() {
		symbolBytes32ABI, symbolBytes32ABIErr = abi.JSON(strings.NewReader(erc20SymbolBytes32JSON))
	})
	return symbolBytes32ABI, symbolBytes32ABIErr
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
