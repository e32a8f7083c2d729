package fund

import (
	"sync/atomic"
	"time"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
)

// Snapshot is the published result of one successful cycle. It is never
// mutated after publication.
type Snapshot struct {
	bounty.Fund

	Repositories    []string  `json:"repositories"`
	TreasuryBalance float64   `json:"treasuryBalance"`
	TokenPriceUSD   float64   `json:"tokenPriceUsd"`
	CycleID         int64     `json:"cycleId,string"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Store holds the latest snapshot
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		Fund:         bounty.Fund{Issues: []bounty.Record{}},
		Repositories: []string{},
	})
	return s
}

// Load returns the latest snapshot
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Publish replaces the latest snapshot
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}
