package bounty

import (
	"sort"
	"time"
)

// Record is one reconciled bounty issue
type Record struct {
	CreatedAt       time.Time `json:"createdAt"`
	Merged          bool      `json:"merged"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	ContractAddress string    `json:"contractAddress"`
	RepoName        string    `json:"repoName"`
	Labels          []string  `json:"labels"`
	TokenSymbol     string    `json:"tokenSymbol"`
	Value           float64   `json:"value"`
	UsdValue        float64   `json:"usdValue"`
}

// Outcome is the result of reconciling one issue. Record is nil when the
// issue was excluded.
type Outcome struct {
	Record       *Record
	Contributors []string
}

// Fund holds organization-wide bounty totals
type Fund struct {
	Issues                     []Record `json:"issues"`
	NumberOfUniqueContributors int      `json:"numberOfUniqueContributors"`
	TotalValueOfFund           float64  `json:"totalValueOfFund"`
	TotalPayoutOfFund          float64  `json:"totalPayoutOfFund"`
}

// Aggregate folds outcomes into fund totals. Merged records count toward the
// payout, the rest toward the outstanding value. Records are ordered newest
// first.
func Aggregate(outcomes []Outcome) Fund {
	fund := Fund{Issues: make([]Record, 0, len(outcomes))}
	contributors := make(map[string]struct{})

	for _, outcome := range outcomes {
		if outcome.Record == nil {
			continue
		}
		record := *outcome.Record
		fund.Issues = append(fund.Issues, record)

		if record.Merged {
			fund.TotalPayoutOfFund += record.UsdValue
		} else {
			fund.TotalValueOfFund += record.UsdValue
		}
		for _, login := range outcome.Contributors {
			contributors[login] = struct{}{}
		}
	}

	sort.SliceStable(fund.Issues, func(i, j int) bool {
		a, b := fund.Issues[i], fund.Issues[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.URL < b.URL
	})

	fund.NumberOfUniqueContributors = len(contributors)
	return fund
}
