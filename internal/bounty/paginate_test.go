package bounty_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/github"
)

var _ = Describe("Paginate", func() {
	var (
		ctx     context.Context
		pages   map[string]github.Connection[string]
		cursors []string
		fetch   bounty.FetchPage[string]
	)

	BeforeEach(func() {
		ctx = context.Background()
		cursors = nil
		pages = map[string]github.Connection[string]{
			"a2": pageOf("b", true, "c", "d"),
			"b2": pageOf("c", false, "e"),
		}
		fetch = func(_ context.Context, after string) (github.Connection[string], error) {
			cursors = append(cursors, after)
			page, ok := pages[after]
			if !ok {
				return github.Connection[string]{}, errors.New("unknown cursor " + after)
			}
			return page, nil
		}
	})

	It("should collect every page in order with one request per page", func() {
		items, err := bounty.Paginate(ctx, pageOf("a", true, "a", "b"), fetch, 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(Equal([]string{"a", "b", "c", "d", "e"}))
		Expect(cursors).To(Equal([]string{"a2", "b2"}))
	})

	It("should not fetch when the first page is the last", func() {
		items, err := bounty.Paginate(ctx, pageOf("a", false, "x"), fetch, 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(Equal([]string{"x"}))
		Expect(cursors).To(BeEmpty())
	})

	It("should return an empty, non-nil slice for an empty collection", func() {
		items, err := bounty.Paginate(ctx, github.Connection[string]{}, fetch, 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(items).NotTo(BeNil())
		Expect(items).To(BeEmpty())
	})

	It("should stop at the page ceiling", func() {
		_, err := bounty.Paginate(ctx, pageOf("a", true, "a", "b"), fetch, 2)

		Expect(err).To(MatchError(bounty.ErrPageLimit))
		Expect(cursors).To(Equal([]string{"a2"}))
	})

	It("should reject a page that reports more results without items", func() {
		pages["a2"] = github.Connection[string]{PageInfo: github.PageInfo{HasNextPage: true}}

		_, err := bounty.Paginate(ctx, pageOf("a", true, "a", "b"), fetch, 0)

		Expect(err).To(MatchError(bounty.ErrStalledPage))
	})

	It("should propagate fetch errors", func() {
		delete(pages, "b2")

		_, err := bounty.Paginate(ctx, pageOf("a", true, "a", "b"), fetch, 0)

		Expect(err).To(MatchError(ContainSubstring("unknown cursor b2")))
	})
})
