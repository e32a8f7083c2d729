package github

// Page sizes per connection. GitHub caps nested connections by total node
// count, so issues × (comments + timeline) must stay well under 500,000.
const (
	RepositoriesPerPage = 100
	IssuesPerPage       = 10
	CommentsPerPage     = 10
	EventsPerPage       = 10
	LabelsPerPage       = 10
	TopicsPerPage       = 10
)

const issueFields = `
	number
	createdAt
	state
	title
	url
	labels(first: $labelsFirst) {
		edges {
			node { name }
		}
	}
	comments(first: $commentsFirst) {
		pageInfo { hasNextPage endCursor }
		edges {
			node {
				body
				author { login }
			}
			cursor
		}
	}
	timeline: timelineItems(first: $eventsFirst, itemTypes: [CROSS_REFERENCED_EVENT]) {
		pageInfo { hasNextPage endCursor }
		edges {
			node {
				... on CrossReferencedEvent {
					url
					source {
						... on PullRequest {
							url
							state
							author { login }
						}
					}
				}
			}
			cursor
		}
	}
`

const organizationQuery = `
	query($org: String!, $after: String, $reposFirst: Int!, $topicsFirst: Int!, $issuesFirst: Int!, $labelsFirst: Int!, $commentsFirst: Int!, $eventsFirst: Int!) {
		organization(login: $org) {
			repositories(first: $reposFirst, after: $after) {
				pageInfo { hasNextPage endCursor }
				edges {
					node {
						name
						repositoryTopics(first: $topicsFirst) {
							edges {
								node {
									topic { name }
								}
							}
						}
						issues(first: $issuesFirst) {
							pageInfo { hasNextPage endCursor }
							edges {
								node {` + issueFields + `}
								cursor
							}
						}
					}
					cursor
				}
			}
		}
	}
`

const issuesPageQuery = `
	query($org: String!, $repo: String!, $after: String!, $issuesFirst: Int!, $labelsFirst: Int!, $commentsFirst: Int!, $eventsFirst: Int!) {
		repository(owner: $org, name: $repo) {
			issues(first: $issuesFirst, after: $after) {
				pageInfo { hasNextPage endCursor }
				edges {
					node {` + issueFields + `}
					cursor
				}
			}
		}
	}
`

const commentsPageQuery = `
	query($org: String!, $repo: String!, $number: Int!, $after: String!, $commentsFirst: Int!) {
		repository(owner: $org, name: $repo) {
			issue(number: $number) {
				comments(first: $commentsFirst, after: $after) {
					pageInfo { hasNextPage endCursor }
					edges {
						node {
							body
							author { login }
						}
						cursor
					}
				}
			}
		}
	}
`

const timelinePageQuery = `
	query($org: String!, $repo: String!, $number: Int!, $after: String!, $eventsFirst: Int!) {
		repository(owner: $org, name: $repo) {
			issue(number: $number) {
				timeline: timelineItems(first: $eventsFirst, after: $after, itemTypes: [CROSS_REFERENCED_EVENT]) {
					pageInfo { hasNextPage endCursor }
					edges {
						node {
							... on CrossReferencedEvent {
								url
								source {
									... on PullRequest {
										url
										state
										author { login }
									}
								}
							}
						}
						cursor
					}
				}
			}
		}
	}
`
