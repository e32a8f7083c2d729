package bounty

import "github.com/skridlevsky/bounty-feed/internal/github"

// MergeInfo is the merge status of one issue
type MergeInfo struct {
	Merged bool
	// Authors of merged cross-referenced pull requests, deduplicated
	Contributors []string
}

// Classify scans timeline events for merged cross-referenced pull requests
func Classify(events []github.TimelineEvent) MergeInfo {
	var info MergeInfo
	seen := make(map[string]bool)

	for _, event := range events {
		pr := event.Source
		if pr == nil || pr.State != github.PullRequestStateMerged {
			continue
		}
		info.Merged = true

		if pr.Author == nil || pr.Author.Login == "" || seen[pr.Author.Login] {
			continue
		}
		seen[pr.Author.Login] = true
		info.Contributors = append(info.Contributors, pr.Author.Login)
	}
	return info
}
