package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// prFieldsFragment selects everything a PullRequestRecord needs in one object.
const prFieldsFragment = `fragment prFields on PullRequest {
	number
	title
	url
	isDraft
	createdAt
	baseRefName
	reviewDecision
	author { login }
	reviewRequests(first: 100) {
		nodes {
			requestedReviewer {
				__typename
				... on User { login }
				... on Team { name slug }
			}
		}
	}
	latestOpinionatedReviews(first: 100) {
		nodes { state author { login } }
	}
	reviews(last: 100, states: [APPROVED]) {
		nodes { submittedAt }
	}
	commits(last: 1) {
		nodes { commit { committedDate } }
	}
	readyEvents: timelineItems(last: 1, itemTypes: [READY_FOR_REVIEW_EVENT]) {
		nodes { ... on ReadyForReviewEvent { createdAt } }
	}
	dismissals: timelineItems(last: 100, itemTypes: [REVIEW_DISMISSED_EVENT]) {
		nodes { ... on ReviewDismissedEvent { previousReviewState review { submittedAt } } }
	}
	baseRef {
		branchProtectionRule { requiredApprovingReviewCount dismissesStaleReviews }
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// batchResponse holds one aliased pullRequest object per requested number.
type batchResponse struct {
	Data struct {
		Repository map[string]*prNode `json:"repository"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type prNode struct {
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	IsDraft        bool      `json:"isDraft"`
	CreatedAt      time.Time `json:"createdAt"`
	BaseRefName    string    `json:"baseRefName"`
	ReviewDecision *string   `json:"reviewDecision"`
	Author         *struct {
		Login string `json:"login"`
	} `json:"author"`
	ReviewRequests struct {
		Nodes []struct {
			RequestedReviewer *struct {
				Typename string `json:"__typename"`
				Login    string `json:"login"`
				Name     string `json:"name"`
				Slug     string `json:"slug"`
			} `json:"requestedReviewer"`
		} `json:"nodes"`
	} `json:"reviewRequests"`
	LatestOpinionatedReviews struct {
		Nodes []struct {
			State string `json:"state"`
		} `json:"nodes"`
	} `json:"latestOpinionatedReviews"`
	Reviews struct {
		Nodes []struct {
			SubmittedAt *time.Time `json:"submittedAt"`
		} `json:"nodes"`
	} `json:"reviews"`
	Commits struct {
		Nodes []struct {
			Commit struct {
				CommittedDate *time.Time `json:"committedDate"`
			} `json:"commit"`
		} `json:"nodes"`
	} `json:"commits"`
	ReadyEvents struct {
		Nodes []struct {
			CreatedAt *time.Time `json:"createdAt"`
		} `json:"nodes"`
	} `json:"readyEvents"`
	Dismissals struct {
		Nodes []struct {
			PreviousReviewState string `json:"previousReviewState"`
			Review              *struct {
				SubmittedAt *time.Time `json:"submittedAt"`
			} `json:"review"`
		} `json:"nodes"`
	} `json:"dismissals"`
	BaseRef *struct {
		BranchProtectionRule *struct {
			RequiredApprovingReviewCount *int `json:"requiredApprovingReviewCount"`
			DismissesStaleReviews        bool `json:"dismissesStaleReviews"`
		} `json:"branchProtectionRule"`
	} `json:"baseRef"`
}

// FetchDetailsBatch resolves several PRs of one repository with a single GraphQL query,
// aliasing one pullRequest field per number. Records are returned in number order.
func (c *Client) FetchDetailsBatch(ctx context.Context, repoFullName string, numbers []int) ([]model.PullRequestRecord, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return []model.PullRequestRecord{}, nil
	}

	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)

	op := fmt.Sprintf("batch fetch %d pull requests in %s", len(sorted), repoFullName)

	reqBody := graphqlRequest{
		Query: buildBatchQuery(sorted),
		Variables: map[string]any{
			"owner": owner,
			"name":  repo,
		},
	}

	var gqlResp batchResponse
	if err := c.doGraphQL(ctx, op, reqBody, &gqlResp); err != nil {
		return nil, err
	}

	if errs := fatalGraphQLErrors(repoFullName, gqlResp.Errors); len(errs) > 0 {
		return nil, graphqlErrorsToTaxonomy(op, errs)
	}

	records := make([]model.PullRequestRecord, 0, len(sorted))
	for _, n := range sorted {
		node := gqlResp.Data.Repository[prAlias(n)]
		if node == nil {
			return nil, &driven.RemoteError{Op: op, Message: fmt.Sprintf("pull request #%d missing from response", n)}
		}
		records = append(records, mapPRNode(node, repoFullName, owner))
	}

	slog.Debug("graphql batch fetched", "repo", repoFullName, "count", len(records))

	return records, nil
}

// buildBatchQuery renders the aliased query. Numbers are integers, so inlining them is safe.
func buildBatchQuery(numbers []int) string {
	var b strings.Builder
	b.WriteString("query($owner: String!, $name: String!) {\n\trepository(owner: $owner, name: $name) {\n")
	for _, n := range numbers {
		fmt.Fprintf(&b, "\t\t%s: pullRequest(number: %d) { ...prFields }\n", prAlias(n), n)
	}
	b.WriteString("\t}\n}\n")
	b.WriteString(prFieldsFragment)
	return b.String()
}

func prAlias(number int) string {
	return fmt.Sprintf("pr_%d", number)
}

// doGraphQL posts a GraphQL request and decodes the response into out. Transport failures,
// throttling and non-200 responses are classified into the driven error taxonomy.
func (c *Client) doGraphQL(ctx context.Context, op string, reqBody graphqlRequest, out any) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return graphqlStatusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &driven.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "decoding response: " + err.Error(), Err: err}
	}

	return nil
}

// graphqlStatusError maps a non-200 GraphQL response. 429, and 403 with an exhausted quota
// or a Retry-After header, are rate limits; everything else is a remote error.
func graphqlStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))

	retryAfter := retryAfterHeader(resp.Header)
	throttled := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden &&
			(resp.Header.Get("X-RateLimit-Remaining") == "0" || retryAfter > 0))

	if throttled {
		return &driven.RateLimitError{Op: op, RetryAfter: retryAfter, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, message)}
	}

	return &driven.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: message}
}

// fatalGraphQLErrors drops the errors a batch can survive. A FORBIDDEN error on
// branchProtectionRule means the token cannot read protection settings; the rule comes back
// null and the record falls back to one required approval, as FetchDetail does on a 403.
func fatalGraphQLErrors(repoFullName string, errs []graphqlError) []graphqlError {
	var fatal []graphqlError
	for _, e := range errs {
		if e.Type == "FORBIDDEN" && pathEndsWith(e.Path, "branchProtectionRule") {
			slog.Debug("branch protection not readable, assuming defaults",
				"repo", repoFullName, "path", e.Path, "message", e.Message)
			continue
		}
		fatal = append(fatal, e)
	}
	return fatal
}

func pathEndsWith(path []any, field string) bool {
	if len(path) == 0 {
		return false
	}
	last, ok := path[len(path)-1].(string)
	return ok && last == field
}

// graphqlErrorsToTaxonomy classifies the first reported GraphQL error.
func graphqlErrorsToTaxonomy(op string, errs []graphqlError) error {
	first := errs[0]
	if first.Type == "RATE_LIMITED" {
		return &driven.RateLimitError{Op: op, Err: fmt.Errorf("graphql: %s", first.Message)}
	}
	return &driven.RemoteError{Op: op, Message: first.Message}
}

// mapPRNode converts a GraphQL pull request node to a domain record.
func mapPRNode(node *prNode, repoFullName, owner string) model.PullRequestRecord {
	record := model.PullRequestRecord{
		Repo:               repoFullName,
		Number:             node.Number,
		Title:              node.Title,
		URL:                node.URL,
		IsDraft:            node.IsDraft,
		CreatedAt:          node.CreatedAt,
		TargetBranch:       node.BaseRefName,
		RequestedReviewers: []string{},
		RequestedGroups:    []model.GroupReviewRequest{},
		RequiredApprovals:  defaultRequiredApprovals,
		ReviewState:        mapReviewDecision(node.ReviewDecision),
	}
	if node.Author != nil {
		record.Author = node.Author.Login
	}

	for _, n := range node.ReviewRequests.Nodes {
		rr := n.RequestedReviewer
		if rr == nil {
			continue
		}
		switch rr.Typename {
		case "User", "Bot", "Mannequin":
			record.RequestedReviewers = append(record.RequestedReviewers, rr.Login)
		case "Team":
			record.RequestedGroups = append(record.RequestedGroups, model.GroupReviewRequest{
				Org:  owner,
				Name: rr.Name,
				Slug: rr.Slug,
			})
		}
	}

	for _, r := range node.LatestOpinionatedReviews.Nodes {
		if r.State == "APPROVED" {
			record.Approvals++
		}
	}

	for _, r := range node.Reviews.Nodes {
		noteApproval(&record, r.SubmittedAt)
	}

	// Dismissing a review changes its state to DISMISSED, so approvals taken away by a
	// dismissal only show up here. Dismissed change requests are ignored.
	for _, d := range node.Dismissals.Nodes {
		if d.PreviousReviewState != "APPROVED" || d.Review == nil {
			continue
		}
		noteApproval(&record, d.Review.SubmittedAt)
	}

	if len(node.Commits.Nodes) > 0 && node.Commits.Nodes[0].Commit.CommittedDate != nil {
		t := *node.Commits.Nodes[0].Commit.CommittedDate
		record.LastCommitAt = &t
	}

	if node.BaseRef != nil && node.BaseRef.BranchProtectionRule != nil {
		rule := node.BaseRef.BranchProtectionRule
		if rule.RequiredApprovingReviewCount != nil && *rule.RequiredApprovingReviewCount > 0 {
			record.RequiredApprovals = *rule.RequiredApprovingReviewCount
		}
		record.DismissesStaleReviews = rule.DismissesStaleReviews
	}

	if !node.IsDraft {
		readyAt := node.CreatedAt
		for _, e := range node.ReadyEvents.Nodes {
			if e.CreatedAt != nil && e.CreatedAt.After(readyAt) {
				readyAt = *e.CreatedAt
			}
		}
		record.ReadyAt = &readyAt
	}

	return record
}

// noteApproval advances LastApprovedAt to submitted when it is later.
func noteApproval(record *model.PullRequestRecord, submitted *time.Time) {
	if submitted == nil {
		return
	}
	if record.LastApprovedAt == nil || submitted.After(*record.LastApprovedAt) {
		t := *submitted
		record.LastApprovedAt = &t
	}
}

// mapReviewDecision converts GitHub's reviewDecision enum. A null decision means the
// repository requires no review at all.
func mapReviewDecision(decision *string) model.ReviewState {
	if decision == nil {
		return model.ReviewStateNone
	}
	switch *decision {
	case "APPROVED":
		return model.ReviewStateApproved
	case "REVIEW_REQUIRED", "CHANGES_REQUESTED":
		return model.ReviewStateRequired
	default:
		return model.ReviewStateNone
	}
}
