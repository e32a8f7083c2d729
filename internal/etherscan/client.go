package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skridlevsky/bounty-feed/internal/retry"
)

// DefaultEndpoint is the mainnet Etherscan API
const DefaultEndpoint = "https://api.etherscan.io/api"

// DefaultDecimals applies when a transfer omits tokenDecimal
const DefaultDecimals = 18

// ErrNoTransactions is returned when Etherscan reports no token transfer
// history for an address.
var ErrNoTransactions = errors.New("no transactions found")

const noTransactionsMessage = "No transactions found"

// DefaultPageSize is the tokentx offset requested per page
const DefaultPageSize = 1000

// resultWindow is the most records Etherscan serves for one query,
// page*offset beyond it is rejected.
const resultWindow = 10000

// Transfer is one ERC20 token transfer as returned by the tokentx action
type Transfer struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Amount converts the raw integer value into token units using the
// transfer's decimals.
func (t Transfer) Amount() (*big.Rat, error) {
	raw, ok := new(big.Int).SetString(strings.TrimSpace(t.Value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid transfer value %q", t.Value)
	}

	decimals := DefaultDecimals
	if d := strings.TrimSpace(t.TokenDecimal); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid token decimal %q", t.TokenDecimal)
		}
		decimals = parsed
	}

	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(raw, denom), nil
}

// IsTo reports whether the transfer was received by address
func (t Transfer) IsTo(address string) bool {
	return strings.EqualFold(t.To, address)
}

// IsFrom reports whether the transfer was sent by address
func (t Transfer) IsFrom(address string) bool {
	return strings.EqualFold(t.From, address)
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client queries the Etherscan account API
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	retry      retry.Policy
	pageSize   int
}

// NewClient creates a new Etherscan client. An empty endpoint uses mainnet.
func NewClient(apiKey, endpoint string, policy retry.Policy) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if policy.Retryable == nil {
		policy.Retryable = retryable
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		retry:    policy,
		pageSize: DefaultPageSize,
	}
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNoTransactions) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// TokenTransfers returns every ERC20 transfer involving address, oldest
// first. Pages are fetched until a short page or the result window is
// reached. Each page is retried on its own.
func (c *Client) TokenTransfers(ctx context.Context, address string) ([]Transfer, error) {
	var all []Transfer
	for page := 1; ; page++ {
		var transfers []Transfer
		err := c.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			transfers, err = c.tokenTransfers(ctx, address, page)
			return err
		})
		if errors.Is(err, ErrNoTransactions) && page > 1 {
			break
		}
		if err != nil {
			return nil, err
		}

		all = append(all, transfers...)
		if len(transfers) < c.pageSize {
			break
		}
		if (page+1)*c.pageSize > resultWindow {
			slog.Warn("Token transfer history truncated at result window",
				"address", address,
				"transfers", len(all),
			)
			break
		}
	}
	return all, nil
}

func (c *Client) tokenTransfers(ctx context.Context, address string, page int) ([]Transfer, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("address", address)
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(c.pageSize))
	params.Set("sort", "asc")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan error %d: %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Status != "1" {
		if parsed.Message == noTransactionsMessage {
			return nil, ErrNoTransactions
		}
		var detail string
		_ = json.Unmarshal(parsed.Result, &detail)
		return nil, fmt.Errorf("etherscan tokentx %s: %s %s", address, parsed.Message, detail)
	}

	var transfers []Transfer
	if err := json.Unmarshal(parsed.Result, &transfers); err != nil {
		return nil, fmt.Errorf("failed to parse transfers: %w", err)
	}
	return transfers, nil
}
