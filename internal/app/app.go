package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/chain"
	"github.com/skridlevsky/bounty-feed/internal/config"
	"github.com/skridlevsky/bounty-feed/internal/etherscan"
	"github.com/skridlevsky/bounty-feed/internal/fund"
	"github.com/skridlevsky/bounty-feed/internal/github"
	"github.com/skridlevsky/bounty-feed/internal/id"
	"github.com/skridlevsky/bounty-feed/internal/price"
	"github.com/skridlevsky/bounty-feed/internal/retry"
)

// App holds the wired pipeline
type App struct {
	Store     *fund.Store
	Scheduler *fund.Scheduler

	chain *chain.Client
}

// New wires the upstream clients, reconciler and scheduler from cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := id.Init(cfg.NodeID); err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	policy := retry.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
	}

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, policy)
	if err != nil {
		return nil, err
	}

	graphqlClient := github.NewGraphQLClient(cfg.GitHubToken, cfg.GitHubOrg, "")
	explorer := etherscan.NewClient(cfg.EtherscanAPIKey, cfg.EtherscanURL, policy)
	ticker := price.NewClient(cfg.CoinMarketCapURL, cfg.TickerID, policy)

	rules := bounty.DefaultRules(cfg.BountyBotLogin, cfg.GitcoinBotLogin, cfg.PlaceholderAddress)
	resolver := bounty.NewResolver(explorer, chainClient, cfg.TokenSymbol)
	reconciler := bounty.NewReconciler(graphqlClient, rules, resolver, bounty.Options{
		EnablementTopic: cfg.EnablementTopic,
		DropZeroValue:   cfg.DropZeroValue,
		MaxPages:        cfg.MaxPages,
		Concurrency:     cfg.Concurrency,
	})

	store := fund.NewStore()
	scheduler := fund.NewScheduler(ticker, explorer, reconciler, store, fund.Config{
		Interval:         cfg.RefreshInterval,
		RetryBackoff:     cfg.RetryBackoff,
		RateLimitDelay:   cfg.RateLimitDelay,
		FundingAddresses: cfg.FundingAddresses,
		TokenSymbol:      cfg.TokenSymbol,
	})

	slog.Info("Pipeline configured",
		"org", cfg.GitHubOrg,
		"topic", cfg.EnablementTopic,
		"token", cfg.TokenSymbol,
		"funding_addresses", len(cfg.FundingAddresses),
		"concurrency", cfg.Concurrency,
	)

	return &App{
		Store:     store,
		Scheduler: scheduler,
		chain:     chainClient,
	}, nil
}

// Close releases the RPC connection
func (a *App) Close() {
	a.chain.Close()
}
