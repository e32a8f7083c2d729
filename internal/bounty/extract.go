package bounty

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/skridlevsky/bounty-feed/internal/github"
)

var (
	addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

	// An amount is a number followed by a token symbol, so the "1." of
	// "Issue Status: 1. Open" is skipped.
	amountPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?\s+[A-Z][A-Z0-9]{1,9}\b`)
)

// Claim is the bounty information extracted from an issue's comments
type Claim struct {
	ContractAddress string
	StatedAmount    *float64
}

// Rule extracts a claim field from a bot comment
type Rule struct {
	Pattern *regexp.Regexp
	Apply   func(match string, claim *Claim)
}

// Rules maps a bot login to its extraction rule
type Rules map[string]Rule

// DefaultRules returns the bounty-bot and gitcoin-bot rules. Gitcoin bounties
// state the amount in the organization token and have no contract, so they
// get the placeholder address.
func DefaultRules(bountyBot, gitcoinBot, placeholder string) Rules {
	return Rules{
		bountyBot: {
			Pattern: addressPattern,
			Apply: func(match string, claim *Claim) {
				claim.ContractAddress = match
			},
		},
		gitcoinBot: {
			Pattern: amountPattern,
			Apply: func(match string, claim *Claim) {
				amount, err := strconv.ParseFloat(strings.Fields(match)[0], 64)
				if err != nil {
					return
				}
				claim.StatedAmount = &amount
				claim.ContractAddress = placeholder
			},
		},
	}
}

// Extract scans comments in order. Later matches overwrite earlier ones.
func (r Rules) Extract(comments []github.Comment) Claim {
	var claim Claim
	for _, comment := range comments {
		rule, ok := r[comment.AuthorLogin()]
		if !ok {
			continue
		}
		if match := rule.Pattern.FindString(comment.Body); match != "" {
			rule.Apply(match, &claim)
		}
	}
	return claim
}
