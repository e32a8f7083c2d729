package config

import (
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags adds the command-line overrides shared by all commands. Flag
// names match the config keys so Load can bind them directly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file path")
	fs.String("env", "development", "environment (development, production)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("github-org", "MyBitFoundation", "GitHub organization to crawl")
	fs.String("enablement-topic", "bounty", "repository topic that enables bounty tracking")
	fs.String("token-symbol", "MYB", "organization token symbol")
	fs.StringSlice("funding-addresses", nil, "treasury addresses (comma-separated)")
	fs.Bool("drop-zero-value", true, "exclude bounties whose resolved value is zero")
	fs.Int("max-pages", 100, "page ceiling per paginated collection, 0 for unlimited")
	fs.Int("concurrency", 8, "issues reconciled in parallel")
	fs.Int("max-retries", 3, "retries for Etherscan, CoinMarketCap and RPC calls")
	fs.Duration("retry-base-delay", 500*time.Millisecond, "initial retry delay")
}

// RegisterServerFlags adds the long-running server overrides
func RegisterServerFlags(fs *pflag.FlagSet) {
	fs.String("port", "9001", "HTTP listen port")
	fs.Duration("refresh-interval", 30*time.Second, "interval between cycles")
	fs.Duration("retry-backoff", 10*time.Second, "delay before retrying a failed cycle")
	fs.Duration("rate-limit-delay", 15*time.Minute, "delay before retrying after a GitHub rate limit")
	fs.Int("rate-limit", 100, "HTTP requests per minute per client IP")
}
