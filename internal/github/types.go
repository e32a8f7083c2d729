package github

import (
	"strings"
	"time"
)

// PageInfo carries the pagination state of a connection
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Edge wraps a connection node with its cursor
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// Connection is one page of a GraphQL connection
type Connection[T any] struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Edges    []Edge[T] `json:"edges"`
}

// Actor is a GitHub user or bot. Deleted accounts come back as null.
type Actor struct {
	Login string `json:"login"`
}

// Comment represents an issue comment
type Comment struct {
	Body   string `json:"body"`
	Author *Actor `json:"author"`
}

// AuthorLogin returns the comment author's login, empty for ghost users
func (c Comment) AuthorLogin() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.Login
}

// PullRequest is the source of a cross-reference event
type PullRequest struct {
	URL    string `json:"url"`
	State  string `json:"state"` // OPEN, CLOSED, MERGED
	Author *Actor `json:"author"`
}

// PullRequestStateMerged is the GraphQL state of a merged pull request
const PullRequestStateMerged = "MERGED"

// TimelineEvent represents a cross-referenced event. Source is empty when
// the referencing item is an issue rather than a pull request.
type TimelineEvent struct {
	URL    string       `json:"url"`
	Source *PullRequest `json:"source"`
}

// Label represents an issue label
type Label struct {
	Name string `json:"name"`
}

// Issue represents a repository issue with its first page of comments and
// timeline events
type Issue struct {
	Number    int                       `json:"number"`
	CreatedAt time.Time                 `json:"createdAt"`
	State     string                    `json:"state"` // OPEN, CLOSED
	Title     string                    `json:"title"`
	URL       string                    `json:"url"`
	Labels    Connection[Label]         `json:"labels"`
	Comments  Connection[Comment]       `json:"comments"`
	Timeline  Connection[TimelineEvent] `json:"timeline"`
}

// IssueStateClosed is the GraphQL state of a closed issue
const IssueStateClosed = "CLOSED"

// Closed reports whether the issue is closed
func (i Issue) Closed() bool {
	return strings.EqualFold(i.State, IssueStateClosed)
}

// LabelNames returns the names of the issue's labels in order
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels.Edges))
	for _, edge := range i.Labels.Edges {
		names = append(names, edge.Node.Name)
	}
	return names
}

// RepositoryTopic wraps a topic attached to a repository
type RepositoryTopic struct {
	Topic struct {
		Name string `json:"name"`
	} `json:"topic"`
}

// Repository represents an organization repository with its first page of issues
type Repository struct {
	Name             string                      `json:"name"`
	RepositoryTopics Connection[RepositoryTopic] `json:"repositoryTopics"`
	Issues           Connection[Issue]           `json:"issues"`
}

// HasTopic reports whether the repository is tagged with topic
func (r Repository) HasTopic(topic string) bool {
	for _, edge := range r.RepositoryTopics.Edges {
		if strings.EqualFold(edge.Node.Topic.Name, topic) {
			return true
		}
	}
	return false
}
