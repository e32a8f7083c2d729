package bounty_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/etherscan"
	"github.com/skridlevsky/bounty-feed/internal/github"
)

var _ = Describe("Reconciler", func() {
	var (
		ctx      context.Context
		explorer *fakeExplorer
		opts     bounty.Options
		created  time.Time
	)

	newReconciler := func(source *fakeSource) *bounty.Reconciler {
		rules := bounty.DefaultRules("bounty-bot", "gitcoin-bot", "gitcoin")
		resolver := bounty.NewResolver(explorer, &fakeSymbols{}, "MYB")
		return bounty.NewReconciler(source, rules, resolver, opts)
	}

	BeforeEach(func() {
		ctx = context.Background()
		explorer = newFakeExplorer()
		opts = bounty.Options{EnablementTopic: "bounty", DropZeroValue: true, MaxPages: 100, Concurrency: 4}
		created = time.Date(2018, time.July, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("end to end", func() {
		It("should publish one merged MYB bounty worth two dollars", func() {
			explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "1000000000000000000", "MYB")}
			source := newFakeSource(repository("tokensale", []string{"bounty"}, pageOf("i", false,
				issue(7, "CLOSED", created,
					withLabels("bug"),
					withComments(pageOf("c", false, comment("bounty-bot", addrA))),
					withTimeline(pageOf("t", false, mergedRef("alice"))),
				),
			)))

			crawl, err := newReconciler(source).Crawl(ctx, 2.00)
			Expect(err).NotTo(HaveOccurred())
			fund := bounty.Aggregate(crawl.Outcomes)

			Expect(crawl.Repositories).To(Equal([]string{"tokensale"}))
			Expect(fund.Issues).To(HaveLen(1))
			record := fund.Issues[0]
			Expect(record.Value).To(Equal(1.0))
			Expect(record.TokenSymbol).To(Equal("MYB"))
			Expect(record.Merged).To(BeTrue())
			Expect(record.UsdValue).To(Equal(2.0))
			Expect(record.RepoName).To(Equal("tokensale"))
			Expect(record.ContractAddress).To(Equal(addrA))
			Expect(record.Labels).To(Equal([]string{"bug"}))
			Expect(record.CreatedAt).To(Equal(created))
			Expect(fund.TotalPayoutOfFund).To(Equal(2.0))
			Expect(fund.TotalValueOfFund).To(BeZero())
			Expect(fund.NumberOfUniqueContributors).To(Equal(1))
		})
	})

	Describe("repository gate", func() {
		It("should skip repositories without the enablement topic", func() {
			explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "1000000000000000000", "MYB")}
			untagged := repository("website", []string{"javascript"}, pageOf("w", true,
				issue(1, "OPEN", created, withComments(pageOf("c", false, comment("bounty-bot", addrA)))),
			))
			source := newFakeSource(untagged)

			crawl, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(crawl.Repositories).To(Equal([]string{"website"}))
			Expect(bounty.Aggregate(crawl.Outcomes).Issues).To(BeEmpty())
			Expect(source.Requests()).To(Equal([]string{"repos:"}))
			Expect(explorer.TotalCalls()).To(BeZero())
		})
	})

	Describe("pagination", func() {
		It("should follow every issue, comment and timeline page", func() {
			explorer.transfers[addrB] = []etherscan.Transfer{inbound(addrB, "3000000000000000000", "MYB")}
			source := newFakeSource()
			source.repoPages[""] = pageOf("r", true, repository("alpha", nil, github.Connection[github.Issue]{}))
			source.repoPages["r1"] = pageOf("s", false, repository("beta", []string{"Bounty"}, pageOf("i", true,
				issue(1, "OPEN", created,
					withComments(pageOf("c", true, comment("bounty-bot", addrA))),
					withTimeline(pageOf("t", true, openRef("dave"))),
				),
			)))
			source.issuePages["beta@i1"] = pageOf("j", false, issue(2, "OPEN", created))
			source.commentPages["beta#1@c1"] = pageOf("d", false, comment("bounty-bot", addrB))
			source.timelinePages["beta#1@t1"] = pageOf("u", false, mergedRef("erin"))

			crawl, err := newReconciler(source).Crawl(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			fund := bounty.Aggregate(crawl.Outcomes)

			Expect(crawl.Repositories).To(Equal([]string{"alpha", "beta"}))
			Expect(fund.Issues).To(HaveLen(1))
			Expect(fund.Issues[0].ContractAddress).To(Equal(addrB))
			Expect(fund.Issues[0].Merged).To(BeTrue())
			Expect(fund.TotalPayoutOfFund).To(Equal(3.0))
			Expect(fund.NumberOfUniqueContributors).To(Equal(1))
			Expect(source.Requests()).To(ContainElements(
				"repos:", "repos:r1", "issues:beta@i1", "comments:beta#1@c1", "timeline:beta#1@t1",
			))
			Expect(source.Requests()).To(HaveLen(5))
		})

		It("should fail the crawl when a collection exceeds the page ceiling", func() {
			opts.MaxPages = 1
			source := newFakeSource(repository("beta", []string{"bounty"}, pageOf("i", true, issue(1, "OPEN", created))))

			_, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).To(MatchError(bounty.ErrPageLimit))
		})
	})

	Describe("exclusion", func() {
		It("should drop closed issues without a merged pull request even when funded", func() {
			explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "1000000000000000000", "MYB")}
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
				issue(1, "CLOSED", created,
					withComments(pageOf("c", false, comment("bounty-bot", addrA))),
					withTimeline(pageOf("t", false, openRef("alice"))),
				),
			)))

			crawl, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(bounty.Aggregate(crawl.Outcomes).Issues).To(BeEmpty())
			Expect(explorer.TotalCalls()).To(BeZero())
		})

		It("should drop issues without a claim and not count their contributors", func() {
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
				issue(1, "CLOSED", created,
					withComments(pageOf("c", false, comment("alice", "fixed it"))),
					withTimeline(pageOf("t", false, mergedRef("alice"))),
				),
			)))

			crawl, err := newReconciler(source).Crawl(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			fund := bounty.Aggregate(crawl.Outcomes)

			Expect(fund.Issues).To(BeEmpty())
			Expect(fund.NumberOfUniqueContributors).To(BeZero())
		})

		It("should drop claims whose contract has no history", func() {
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
				issue(1, "OPEN", created, withComments(pageOf("c", false, comment("bounty-bot", addrA)))),
			)))

			crawl, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(bounty.Aggregate(crawl.Outcomes).Issues).To(BeEmpty())
		})

		DescribeTable("zero-valued bounties",
			func(dropZero bool, expected int) {
				opts.DropZeroValue = dropZero
				explorer.transfers[addrA] = []etherscan.Transfer{outbound(addrA, "1000000000000000000", "MYB")}
				source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
					issue(1, "OPEN", created, withComments(pageOf("c", false, comment("bounty-bot", addrA)))),
				)))

				crawl, err := newReconciler(source).Crawl(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(bounty.Aggregate(crawl.Outcomes).Issues).To(HaveLen(expected))
			},
			Entry("are dropped when configured", true, 0),
			Entry("are kept otherwise", false, 1),
		)
	})

	Describe("precedence", func() {
		It("should value gitcoin bounties by the stated amount", func() {
			explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "9000000000000000000", "MYB")}
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
				issue(1, "OPEN", created, withComments(pageOf("c", false,
					comment("bounty-bot", addrA),
					comment("gitcoin-bot", "This issue now has a funding of 12.5 MYB"),
				))),
			)))

			crawl, err := newReconciler(source).Crawl(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			fund := bounty.Aggregate(crawl.Outcomes)

			Expect(fund.Issues).To(HaveLen(1))
			Expect(fund.Issues[0].Value).To(Equal(12.5))
			Expect(fund.Issues[0].TokenSymbol).To(Equal("MYB"))
			Expect(fund.Issues[0].ContractAddress).To(Equal("gitcoin"))
			Expect(fund.TotalValueOfFund).To(Equal(25.0))
			Expect(explorer.TotalCalls()).To(BeZero())
		})
	})

	Describe("contributors", func() {
		It("should count an author merging several bounties once", func() {
			explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "1000000000000000000", "MYB")}
			var issues []github.Issue
			for n := 1; n <= 6; n++ {
				issues = append(issues, issue(n, "CLOSED", created.Add(time.Duration(n)*time.Hour),
					withComments(pageOf(fmt.Sprintf("c%d-", n), false, comment("bounty-bot", addrA))),
					withTimeline(pageOf(fmt.Sprintf("t%d-", n), false, mergedRef("alice"))),
				))
			}
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false, issues...)))

			crawl, err := newReconciler(source).Crawl(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			fund := bounty.Aggregate(crawl.Outcomes)

			Expect(fund.Issues).To(HaveLen(6))
			Expect(fund.Issues[0].URL).To(HaveSuffix("/issues/6"))
			Expect(fund.NumberOfUniqueContributors).To(Equal(1))
			Expect(fund.TotalPayoutOfFund).To(Equal(6.0))
		})
	})

	Describe("errors", func() {
		It("should surface rate limits from the source", func() {
			source := newFakeSource()
			source.err = fmt.Errorf("%w: API rate limit exceeded", github.ErrRateLimited)

			_, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).To(MatchError(github.ErrRateLimited))
		})

		It("should fail the crawl when an issue cannot be resolved", func() {
			explorer.errs[addrA] = fmt.Errorf("etherscan error 500")
			source := newFakeSource(repository("r", []string{"bounty"}, pageOf("i", false,
				issue(1, "OPEN", created, withComments(pageOf("c", false, comment("bounty-bot", addrA)))),
			)))

			_, err := newReconciler(source).Crawl(ctx, 1)

			Expect(err).To(MatchError(ContainSubstring("reconcile r#1")))
		})
	})
})
