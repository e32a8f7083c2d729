package bounty

import (
	"context"
	"errors"
	"fmt"

	"github.com/skridlevsky/bounty-feed/internal/github"
)

var (
	// ErrPageLimit is returned when a collection has more pages than allowed
	ErrPageLimit = errors.New("page limit reached")

	// ErrStalledPage is returned when a page claims more results but carries
	// no items to take a cursor from
	ErrStalledPage = errors.New("empty page with next page")
)

// FetchPage fetches the page following the cursor
type FetchPage[T any] func(ctx context.Context, after string) (github.Connection[T], error)

// Paginate drains a cursor-paginated collection starting from an already
// fetched first page. Each following page is requested with the cursor of the
// last item seen. maxPages bounds the total number of pages, 0 means no limit.
func Paginate[T any](ctx context.Context, first github.Connection[T], fetch FetchPage[T], maxPages int) ([]T, error) {
	items := make([]T, 0, len(first.Edges))
	page := first

	for pages := 1; ; pages++ {
		for _, edge := range page.Edges {
			items = append(items, edge.Node)
		}
		if !page.PageInfo.HasNextPage {
			return items, nil
		}
		if len(page.Edges) == 0 {
			return nil, fmt.Errorf("page %d: %w", pages, ErrStalledPage)
		}
		if maxPages > 0 && pages >= maxPages {
			return nil, fmt.Errorf("%d pages: %w", pages, ErrPageLimit)
		}

		cursor := page.Edges[len(page.Edges)-1].Cursor
		if cursor == "" {
			cursor = page.PageInfo.EndCursor
		}

		next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		page = next
	}
}
