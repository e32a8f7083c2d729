package fund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/github"
	"github.com/skridlevsky/bounty-feed/internal/id"
)

// State is the scheduler's position in the cycle
type State string

const (
	StateIdle          State = "idle"
	StatePriceFetch    State = "price_fetch"
	StateTreasuryFetch State = "treasury_fetch"
	StateCrawl         State = "crawl"
	StateAggregate     State = "aggregate"
	StatePublish       State = "publish"
	StateRateLimited   State = "rate_limited"
)

// PriceSource returns the organization token price
type PriceSource interface {
	TokenPriceUSD(ctx context.Context) (float64, error)
}

// TreasurySource returns the net token balance held by addresses
type TreasurySource interface {
	NetBalance(ctx context.Context, addresses []string, symbol string) (float64, error)
}

// Crawler reconciles the organization's bounty issues
type Crawler interface {
	Crawl(ctx context.Context, priceUSD float64) (*bounty.Crawl, error)
}

// Config controls cycle timing and the treasury query
type Config struct {
	Interval       time.Duration
	RetryBackoff   time.Duration
	RateLimitDelay time.Duration

	FundingAddresses []string
	TokenSymbol      string
}

// Scheduler runs reconciliation cycles on a fixed interval and publishes
// their results to the store
type Scheduler struct {
	prices   PriceSource
	treasury TreasurySource
	crawler  Crawler
	store    *Store
	cfg      Config

	running atomic.Bool
	results chan error

	// Status tracking for the fund endpoint
	state       State
	lastRun     time.Time
	lastSuccess time.Time
	lastError   string
	rateLimited bool
	statusMu    sync.RWMutex

	// Lifecycle
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler
func NewScheduler(prices PriceSource, treasury TreasurySource, crawler Crawler, store *Store, cfg Config) *Scheduler {
	return &Scheduler{
		prices:   prices,
		treasury: treasury,
		crawler:  crawler,
		store:    store,
		cfg:      cfg,
		results:  make(chan error, 1),
		state:    StateIdle,
		stopCh:   make(chan struct{}),
	}
}

// Run starts the cycle loop. The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Scheduler starting",
		"interval", s.cfg.Interval,
		"retry_backoff", s.cfg.RetryBackoff,
		"rate_limit_delay", s.cfg.RateLimitDelay,
	)

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop shuts down the loop and waits for a running cycle to finish. Safe to
// call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		slog.Info("Scheduler stopping...")
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("Scheduler stopped")
	})
}

// plan tells the loop how to continue after a cycle
type plan struct {
	suspend    bool
	retryAfter time.Duration
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	tickC := ticker.C

	var retry *time.Timer
	var retryC <-chan time.Time
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	s.trigger(ctx)

	for {
		select {
		case <-tickC:
			s.trigger(ctx)
		case <-retryC:
			retryC = nil
			s.trigger(ctx)
		case err := <-s.results:
			p := s.settle(err)
			s.running.Store(false)

			if p.suspend {
				tickC = nil
			} else if tickC == nil {
				ticker.Reset(s.cfg.Interval)
				tickC = ticker.C
				slog.Info("Interval timer resumed")
			}

			if retry != nil {
				retry.Stop()
				retryC = nil
			}
			if p.retryAfter > 0 {
				retry = time.NewTimer(p.retryAfter)
				retryC = retry.C
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// trigger starts a cycle unless one is still running or unsettled
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Debug("Cycle still running, tick skipped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.RunCycle(ctx)
		select {
		case s.results <- err:
		case <-s.stopCh:
		}
	}()
}

// settle records the outcome of a cycle and decides what runs next
func (s *Scheduler) settle(err error) plan {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	switch {
	case err == nil:
		if s.rateLimited {
			slog.Info("Rate limit cleared")
		}
		s.state = StateIdle
		s.lastSuccess = time.Now()
		s.lastError = ""
		s.rateLimited = false
		return plan{}

	case errors.Is(err, github.ErrRateLimited):
		slog.Warn("GitHub rate limit hit, suspending cycles",
			"retry_in", s.cfg.RateLimitDelay,
			"error", err,
		)
		s.state = StateRateLimited
		s.lastError = err.Error()
		s.rateLimited = true
		return plan{suspend: true, retryAfter: s.cfg.RateLimitDelay}

	case errors.Is(err, context.Canceled):
		s.state = StateIdle
		return plan{suspend: s.rateLimited}

	default:
		slog.Error("Cycle failed, keeping last snapshot",
			"retry_in", s.cfg.RetryBackoff,
			"error", err,
		)
		s.lastError = err.Error()
		if s.rateLimited {
			s.state = StateRateLimited
		} else {
			s.state = StateIdle
		}
		return plan{suspend: s.rateLimited, retryAfter: s.cfg.RetryBackoff}
	}
}

func (s *Scheduler) setState(state State) {
	s.statusMu.Lock()
	s.state = state
	s.statusMu.Unlock()
}

// RunCycle fetches the price and treasury, crawls the organization and
// publishes the aggregated snapshot. The store is untouched on error.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleID := id.New()
	log := slog.With("cycle_id", cycleID)
	started := time.Now()

	s.statusMu.Lock()
	s.state = StatePriceFetch
	s.lastRun = started
	s.statusMu.Unlock()

	price, err := s.prices.TokenPriceUSD(ctx)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}

	s.setState(StateTreasuryFetch)
	treasury, err := s.treasury.NetBalance(ctx, s.cfg.FundingAddresses, s.cfg.TokenSymbol)
	if err != nil {
		return fmt.Errorf("fetch treasury: %w", err)
	}

	s.setState(StateCrawl)
	crawl, err := s.crawler.Crawl(ctx, price)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	s.setState(StateAggregate)
	fund := bounty.Aggregate(crawl.Outcomes)

	s.setState(StatePublish)
	repos := crawl.Repositories
	if repos == nil {
		repos = []string{}
	}
	s.store.Publish(&Snapshot{
		Fund:            fund,
		Repositories:    repos,
		TreasuryBalance: treasury,
		TokenPriceUSD:   price,
		CycleID:         cycleID,
		UpdatedAt:       time.Now().UTC(),
	})

	log.Info("Cycle published",
		"issues", len(fund.Issues),
		"contributors", fund.NumberOfUniqueContributors,
		"outstanding_usd", fund.TotalValueOfFund,
		"payout_usd", fund.TotalPayoutOfFund,
		"treasury", treasury,
		"price_usd", price,
		"duration", time.Since(started),
	)
	return nil
}

// Status is a point-in-time view of the scheduler
type Status struct {
	State       State     `json:"state"`
	LastRun     time.Time `json:"lastRun"`
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
	RateLimited bool      `json:"rateLimited"`
}

// Status returns the current scheduler status
func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	return Status{
		State:       s.state,
		LastRun:     s.lastRun,
		LastSuccess: s.lastSuccess,
		LastError:   s.lastError,
		RateLimited: s.rateLimited,
	}
}
