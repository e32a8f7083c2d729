package bounty_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/github"
)

var _ = Describe("Classify", func() {
	It("should mark merged pull requests and collect their authors once", func() {
		info := bounty.Classify([]github.TimelineEvent{
			openRef("carol"),
			mergedRef("alice"),
			{URL: "cross-reference from an issue", Source: &github.PullRequest{}},
			mergedRef("alice"),
			mergedRef("bob"),
		})

		Expect(info.Merged).To(BeTrue())
		Expect(info.Contributors).To(Equal([]string{"alice", "bob"}))
	})

	It("should leave issues without merged pull requests unmerged", func() {
		info := bounty.Classify([]github.TimelineEvent{openRef("carol"), {}})

		Expect(info.Merged).To(BeFalse())
		Expect(info.Contributors).To(BeEmpty())
	})

	It("should count a merge by a deleted account without a contributor", func() {
		info := bounty.Classify([]github.TimelineEvent{
			{Source: &github.PullRequest{State: github.PullRequestStateMerged}},
		})

		Expect(info.Merged).To(BeTrue())
		Expect(info.Contributors).To(BeEmpty())
	})
})
