package bounty

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/skridlevsky/bounty-feed/internal/github"
)

// IssueSource fetches the organization graph page by page.
// *github.GraphQLClient satisfies it.
type IssueSource interface {
	FetchRepositories(ctx context.Context, after string) (github.Connection[github.Repository], error)
	FetchIssues(ctx context.Context, repo, after string) (github.Connection[github.Issue], error)
	FetchComments(ctx context.Context, repo string, number int, after string) (github.Connection[github.Comment], error)
	FetchTimeline(ctx context.Context, repo string, number int, after string) (github.Connection[github.TimelineEvent], error)
}

// ValueResolver resolves a claim to its value. *Resolver satisfies it.
type ValueResolver interface {
	Resolve(ctx context.Context, claim Claim) (*ValueInfo, error)
}

// Options tune reconciliation
type Options struct {
	// Only repositories carrying this topic are reconciled
	EnablementTopic string
	// Exclude issues whose resolved value is exactly zero
	DropZeroValue bool
	// Page ceiling per collection, 0 means unlimited
	MaxPages int
	// Issues reconciled in parallel
	Concurrency int
}

// Reconciler crawls the organization and reconciles bounty issues
type Reconciler struct {
	source   IssueSource
	rules    Rules
	resolver ValueResolver
	opts     Options
}

// NewReconciler creates a reconciler
func NewReconciler(source IssueSource, rules Rules, resolver ValueResolver, opts Options) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Reconciler{
		source:   source,
		rules:    rules,
		resolver: resolver,
		opts:     opts,
	}
}

// Crawl is the result of one pass over the organization
type Crawl struct {
	// Names of every organization repository, gated or not
	Repositories []string
	Outcomes     []Outcome
}

type issueRef struct {
	repo  string
	issue github.Issue
}

// Crawl walks every repository and reconciles the issues of those tagged with
// the enablement topic. Any fetch error aborts the whole crawl.
func (r *Reconciler) Crawl(ctx context.Context, priceUSD float64) (*Crawl, error) {
	first, err := r.source.FetchRepositories(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetch organization: %w", err)
	}
	repos, err := Paginate(ctx, first, r.source.FetchRepositories, r.opts.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("fetch repositories: %w", err)
	}

	result := &Crawl{Repositories: make([]string, 0, len(repos))}
	var refs []issueRef
	for _, repo := range repos {
		result.Repositories = append(result.Repositories, repo.Name)
		if !repo.HasTopic(r.opts.EnablementTopic) {
			continue
		}

		name := repo.Name
		issues, err := Paginate(ctx, repo.Issues, func(ctx context.Context, after string) (github.Connection[github.Issue], error) {
			return r.source.FetchIssues(ctx, name, after)
		}, r.opts.MaxPages)
		if err != nil {
			return nil, fmt.Errorf("fetch issues %s: %w", name, err)
		}

		slog.Debug("Repository issues listed", "repo", name, "issues", len(issues))
		for _, issue := range issues {
			refs = append(refs, issueRef{repo: name, issue: issue})
		}
	}

	result.Outcomes = make([]Outcome, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			outcome, err := r.ReconcileIssue(gctx, ref.repo, ref.issue, priceUSD)
			if err != nil {
				return fmt.Errorf("reconcile %s#%d: %w", ref.repo, ref.issue.Number, err)
			}
			result.Outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// ReconcileIssue classifies, extracts and resolves one issue. The returned
// outcome has a nil record when the issue is excluded.
func (r *Reconciler) ReconcileIssue(ctx context.Context, repo string, issue github.Issue, priceUSD float64) (Outcome, error) {
	timeline, err := Paginate(ctx, issue.Timeline, func(ctx context.Context, after string) (github.Connection[github.TimelineEvent], error) {
		return r.source.FetchTimeline(ctx, repo, issue.Number, after)
	}, r.opts.MaxPages)
	if err != nil {
		return Outcome{}, fmt.Errorf("timeline: %w", err)
	}
	merge := Classify(timeline)

	if issue.Closed() && !merge.Merged {
		return Outcome{}, nil
	}

	comments, err := Paginate(ctx, issue.Comments, func(ctx context.Context, after string) (github.Connection[github.Comment], error) {
		return r.source.FetchComments(ctx, repo, issue.Number, after)
	}, r.opts.MaxPages)
	if err != nil {
		return Outcome{}, fmt.Errorf("comments: %w", err)
	}
	claim := r.rules.Extract(comments)
	if claim.ContractAddress == "" {
		return Outcome{}, nil
	}

	value, err := r.resolver.Resolve(ctx, claim)
	if err != nil {
		return Outcome{}, err
	}
	if value == nil || (r.opts.DropZeroValue && value.Value == 0) {
		return Outcome{}, nil
	}

	return Outcome{
		Record: &Record{
			CreatedAt:       issue.CreatedAt,
			Merged:          merge.Merged,
			URL:             issue.URL,
			Title:           issue.Title,
			ContractAddress: claim.ContractAddress,
			RepoName:        repo,
			Labels:          issue.LabelNames(),
			TokenSymbol:     value.TokenSymbol,
			Value:           value.Value,
			UsdValue:        value.Value * priceUSD,
		},
		Contributors: merge.Contributors,
	}, nil
}
