package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	NodeID   int64

	// HTTP
	CORSOrigins []string
	RateLimit   int

	// GitHub
	GitHubToken     string
	GitHubOrg       string
	EnablementTopic string

	// Bounty extraction
	BountyBotLogin     string
	GitcoinBotLogin    string
	PlaceholderAddress string
	TokenSymbol        string
	DropZeroValue      bool

	// Upstreams
	EtherscanURL     string
	EtherscanAPIKey  string
	RPCURL           string
	CoinMarketCapURL string
	TickerID         int
	FundingAddresses []string

	// Cycle scheduling
	RefreshInterval time.Duration
	RetryBackoff    time.Duration
	RateLimitDelay  time.Duration

	// Outbound call hardening
	MaxRetries     int
	RetryBaseDelay time.Duration
	MaxPages       int
	Concurrency    int
}

// Load merges config file, .env-populated environment and flags into Config.
// Returns an error if required values are missing.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by the deployment
	_ = v.BindEnv("port", "BOUNTY_PORT", "PORT")
	_ = v.BindEnv("env", "BOUNTY_ENV", "ENV")
	_ = v.BindEnv("github-token", "BOUNTY_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("etherscan-api-key", "BOUNTY_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY")
	_ = v.BindEnv("cors-origins", "BOUNTY_CORS_ORIGINS", "CORS_ORIGINS")

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("bounty")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:     v.GetString("port"),
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log-level"),
		NodeID:   v.GetInt64("node-id"),

		CORSOrigins: getStringSlice(v, "cors-origins"),
		RateLimit:   v.GetInt("rate-limit"),

		GitHubToken:     v.GetString("github-token"),
		GitHubOrg:       v.GetString("github-org"),
		EnablementTopic: v.GetString("enablement-topic"),

		BountyBotLogin:     v.GetString("bounty-bot"),
		GitcoinBotLogin:    v.GetString("gitcoin-bot"),
		PlaceholderAddress: v.GetString("placeholder-address"),
		TokenSymbol:        v.GetString("token-symbol"),
		DropZeroValue:      v.GetBool("drop-zero-value"),

		EtherscanURL:     v.GetString("etherscan-url"),
		EtherscanAPIKey:  v.GetString("etherscan-api-key"),
		RPCURL:           v.GetString("rpc-url"),
		CoinMarketCapURL: v.GetString("coinmarketcap-url"),
		TickerID:         v.GetInt("ticker-id"),
		FundingAddresses: getStringSlice(v, "funding-addresses"),

		RefreshInterval: v.GetDuration("refresh-interval"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		RateLimitDelay:  v.GetDuration("rate-limit-delay"),

		MaxRetries:     v.GetInt("max-retries"),
		RetryBaseDelay: v.GetDuration("retry-base-delay"),
		MaxPages:       v.GetInt("max-pages"),
		Concurrency:    v.GetInt("concurrency"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "9001")
	v.SetDefault("env", "development")
	v.SetDefault("log-level", "info")
	v.SetDefault("node-id", int64(1))
	v.SetDefault("rate-limit", 100)

	v.SetDefault("github-org", "MyBitFoundation")
	v.SetDefault("enablement-topic", "bounty")

	v.SetDefault("bounty-bot", "bounty-bot")
	v.SetDefault("gitcoin-bot", "gitcoin-bot")
	v.SetDefault("placeholder-address", "gitcoin")
	v.SetDefault("token-symbol", "MYB")
	v.SetDefault("drop-zero-value", true)

	v.SetDefault("etherscan-url", "https://api.etherscan.io/api")
	v.SetDefault("rpc-url", "https://cloudflare-eth.com")
	v.SetDefault("coinmarketcap-url", "https://api.coinmarketcap.com")
	v.SetDefault("ticker-id", 1902)
	v.SetDefault("funding-addresses", []string{"0x7601387f7bc11f0ec554fe8d068af725781f004d"})

	v.SetDefault("refresh-interval", 30*time.Second)
	v.SetDefault("retry-backoff", 10*time.Second)
	v.SetDefault("rate-limit-delay", 15*time.Minute)

	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-base-delay", 500*time.Millisecond)
	v.SetDefault("max-pages", 100)
	v.SetDefault("concurrency", 8)
}

func (c *Config) validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.EtherscanAPIKey == "" {
		return fmt.Errorf("ETHERSCAN_API_KEY is required")
	}
	if c.GitHubOrg == "" {
		return fmt.Errorf("github org is required")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
