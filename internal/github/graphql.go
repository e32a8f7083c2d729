package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the public GitHub GraphQL API
const DefaultEndpoint = "https://api.github.com/graphql"

// ErrRateLimited is returned when GitHub refuses a query because the token
// ran out of rate limit budget.
var ErrRateLimited = errors.New("github rate limit exceeded")

// GraphQLClient handles GitHub GraphQL API requests for one organization
type GraphQLClient struct {
	token      string
	org        string
	endpoint   string
	httpClient *http.Client
}

// NewGraphQLClient creates a new GraphQL client. An empty endpoint uses the
// public GitHub API.
func NewGraphQLClient(token, org, endpoint string) *GraphQLClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GraphQLClient{
		token:    token,
		org:      org,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GraphQLRequest represents a GraphQL request
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse represents a GraphQL response
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// RateLimit holds GitHub rate limit info
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// GetRateLimitFromHeaders extracts rate limit info from response headers
func GetRateLimitFromHeaders(headers http.Header) *RateLimit {
	limit, _ := strconv.Atoi(headers.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(headers.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}

// doQuery executes a GraphQL query
func (c *GraphQLClient) doQuery(ctx context.Context, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	reqBody := GraphQLRequest{
		Query:     query,
		Variables: variables,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Bounty-Feed")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		rateLimit := GetRateLimitFromHeaders(resp.Header)
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" {
			return nil, fmt.Errorf("%w, resets at: %s", ErrRateLimited, rateLimit.Reset.UTC().Format(time.RFC3339))
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github GraphQL error %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp GraphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		for _, gqlErr := range gqlResp.Errors {
			if gqlErr.Type == "RATE_LIMITED" {
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, gqlErr.Message)
			}
		}
		return nil, fmt.Errorf("graphql errors: %v", gqlResp.Errors)
	}

	return &gqlResp, nil
}

func (c *GraphQLClient) pageVariables(extra map[string]interface{}) map[string]interface{} {
	variables := map[string]interface{}{
		"org":           c.org,
		"issuesFirst":   IssuesPerPage,
		"labelsFirst":   LabelsPerPage,
		"commentsFirst": CommentsPerPage,
		"eventsFirst":   EventsPerPage,
	}
	for k, v := range extra {
		variables[k] = v
	}
	return variables
}

// FetchRepositories fetches one page of organization repositories, each with
// the first page of issues, comments and timeline events. An empty cursor
// fetches the first page.
func (c *GraphQLClient) FetchRepositories(ctx context.Context, after string) (Connection[Repository], error) {
	variables := c.pageVariables(map[string]interface{}{
		"reposFirst":  RepositoriesPerPage,
		"topicsFirst": TopicsPerPage,
	})
	if after != "" {
		variables["after"] = after
	}

	resp, err := c.doQuery(ctx, organizationQuery, variables)
	if err != nil {
		return Connection[Repository]{}, err
	}

	var result struct {
		Organization *struct {
			Repositories *Connection[Repository] `json:"repositories"`
		} `json:"organization"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return Connection[Repository]{}, fmt.Errorf("failed to parse organization: %w", err)
	}
	if result.Organization == nil || result.Organization.Repositories == nil {
		return Connection[Repository]{}, fmt.Errorf("organization %s not found", c.org)
	}

	return *result.Organization.Repositories, nil
}

// FetchIssues fetches the page of repository issues following cursor
func (c *GraphQLClient) FetchIssues(ctx context.Context, repo, after string) (Connection[Issue], error) {
	resp, err := c.doQuery(ctx, issuesPageQuery, c.pageVariables(map[string]interface{}{
		"repo":  repo,
		"after": after,
	}))
	if err != nil {
		return Connection[Issue]{}, err
	}

	var result struct {
		Repository *struct {
			Issues *Connection[Issue] `json:"issues"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return Connection[Issue]{}, fmt.Errorf("failed to parse issues: %w", err)
	}
	if result.Repository == nil || result.Repository.Issues == nil {
		return Connection[Issue]{}, fmt.Errorf("repository %s not found", repo)
	}

	return *result.Repository.Issues, nil
}

// issuePage decodes repository.issue.<field> from a next-page response
func issuePage[T any](data json.RawMessage, field, repo string, number int) (Connection[T], error) {
	var result struct {
		Repository *struct {
			Issue map[string]json.RawMessage `json:"issue"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Connection[T]{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	if result.Repository == nil || result.Repository.Issue == nil {
		return Connection[T]{}, fmt.Errorf("issue %s#%d not found", repo, number)
	}

	raw, ok := result.Repository.Issue[field]
	if !ok || len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return Connection[T]{}, fmt.Errorf("issue %s#%d: missing %s", repo, number, field)
	}

	var page Connection[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return Connection[T]{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return page, nil
}

// FetchComments fetches the page of issue comments following cursor
func (c *GraphQLClient) FetchComments(ctx context.Context, repo string, number int, after string) (Connection[Comment], error) {
	resp, err := c.doQuery(ctx, commentsPageQuery, map[string]interface{}{
		"org":           c.org,
		"repo":          repo,
		"number":        number,
		"after":         after,
		"commentsFirst": CommentsPerPage,
	})
	if err != nil {
		return Connection[Comment]{}, err
	}
	return issuePage[Comment](resp.Data, "comments", repo, number)
}

// FetchTimeline fetches the page of cross-reference events following cursor
func (c *GraphQLClient) FetchTimeline(ctx context.Context, repo string, number int, after string) (Connection[TimelineEvent], error) {
	resp, err := c.doQuery(ctx, timelinePageQuery, map[string]interface{}{
		"org":         c.org,
		"repo":        repo,
		"number":      number,
		"after":       after,
		"eventsFirst": EventsPerPage,
	})
	if err != nil {
		return Connection[TimelineEvent]{}, err
	}
	return issuePage[TimelineEvent](resp.Data, "timeline", repo, number)
}
