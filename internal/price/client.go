package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skridlevsky/bounty-feed/internal/retry"
)

// DefaultEndpoint is the CoinMarketCap public API
const DefaultEndpoint = "https://api.coinmarketcap.com"

// Client fetches token prices from the CoinMarketCap ticker
type Client struct {
	endpoint   string
	tickerID   int
	httpClient *http.Client
	retry      retry.Policy
}

// NewClient creates a ticker client for one CoinMarketCap listing
func NewClient(endpoint string, tickerID int, policy retry.Policy) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		tickerID: tickerID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry: policy,
	}
}

type tickerResponse struct {
	Data *struct {
		ID     int    `json:"id"`
		Symbol string `json:"symbol"`
		Quotes map[string]struct {
			Price *float64 `json:"price"`
		} `json:"quotes"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// TokenPriceUSD returns the current USD price of the configured ticker
func (c *Client) TokenPriceUSD(ctx context.Context) (float64, error) {
	var price float64
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		price, err = c.fetch(ctx)
		return err
	})
	return price, err
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/v2/ticker/%d/?convert=USD", c.endpoint, c.tickerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinmarketcap error %d: %s", resp.StatusCode, string(body))
	}

	var parsed tickerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse ticker: %w", err)
	}
	if parsed.Metadata.Error != nil && *parsed.Metadata.Error != "" {
		return 0, fmt.Errorf("coinmarketcap ticker %d: %s", c.tickerID, *parsed.Metadata.Error)
	}
	if parsed.Data == nil {
		return 0, fmt.Errorf("coinmarketcap ticker %d: missing data", c.tickerID)
	}

	quote, ok := parsed.Data.Quotes["USD"]
	if !ok || quote.Price == nil {
		return 0, fmt.Errorf("coinmarketcap ticker %d: missing USD quote", c.tickerID)
	}
	return *quote.Price, nil
}
