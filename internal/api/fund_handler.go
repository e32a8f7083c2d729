package api

import (
	"net/http"
	"time"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/fund"
)

// StatusSource reports scheduler status. *fund.Scheduler satisfies it.
type StatusSource interface {
	Status() fund.Status
}

// FundHandler serves the published snapshot
type FundHandler struct {
	store     *fund.Store
	scheduler StatusSource
}

// NewFundHandler creates a new fund handler. scheduler may be nil.
func NewFundHandler(store *fund.Store, scheduler StatusSource) *FundHandler {
	return &FundHandler{
		store:     store,
		scheduler: scheduler,
	}
}

// Issues handles GET /api/issues
func (h *FundHandler) Issues(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Load()
	respondJSON(w, http.StatusOK, bounty.Fund{
		Issues:                     snap.Issues,
		NumberOfUniqueContributors: snap.NumberOfUniqueContributors,
		TotalValueOfFund:           snap.TotalValueOfFund,
		TotalPayoutOfFund:          snap.TotalPayoutOfFund,
	})
}

// Repositories handles GET /api/repositories
func (h *FundHandler) Repositories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Load().Repositories)
}

// FundResponse is the treasury view with scheduler status
type FundResponse struct {
	TreasuryBalance float64      `json:"treasuryBalance"`
	TokenPriceUSD   float64      `json:"tokenPriceUsd"`
	CycleID         int64        `json:"cycleId,string"`
	UpdatedAt       *string      `json:"updatedAt"`
	Scheduler       *fund.Status `json:"scheduler,omitempty"`
}

// Fund handles GET /api/fund
func (h *FundHandler) Fund(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Load()

	response := FundResponse{
		TreasuryBalance: snap.TreasuryBalance,
		TokenPriceUSD:   snap.TokenPriceUSD,
		CycleID:         snap.CycleID,
	}
	if !snap.UpdatedAt.IsZero() {
		updated := snap.UpdatedAt.Format(time.RFC3339)
		response.UpdatedAt = &updated
	}
	if h.scheduler != nil {
		status := h.scheduler.Status()
		response.Scheduler = &status
	}

	respondJSON(w, http.StatusOK, response)
}
