// Package github implements the RemoteClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RemoteClient = (*Client)(nil)

const (
	perPage       = 100
	httpTimeout   = 30 * time.Second
	lowQuotaLevel = 100
)

// Client implements the driven.RemoteClient port using the go-github library.
type Client struct {
	gh         *gh.Client
	http       *http.Client // Used for GraphQL requests; shares the REST transport stack.
	token      string       // Stored for GraphQL Authorization header.
	graphqlURL string       // "https://api.github.com/graphql" in production; derived from baseURL in tests.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching within the run)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	rateLimitClient.Timeout = httpTimeout
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		http:       rateLimitClient,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		http:       httpClient,
		token:      token,
		graphqlURL: graphqlU.String(),
	}, nil
}

// SearchPullRequests runs one issue-search query and returns the keys of matching PRs,
// capped at query.Limit.
func (c *Client) SearchPullRequests(ctx context.Context, query model.SearchQuery) ([]model.PRKey, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = perPage
	}

	q := BuildSearchQuery(query)
	opts := &gh.SearchOptions{
		Sort:  "updated",
		Order: "desc",
		ListOptions: gh.ListOptions{
			PerPage: min(limit, perPage),
		},
	}

	keys := make([]model.PRKey, 0)
	op := fmt.Sprintf("search review:%s for %s", query.Review, query.Reviewer)

	for {
		result, resp, err := c.gh.Search.Issues(ctx, q, opts)
		if err != nil {
			return nil, classifyError(op, err)
		}

		logRateLimit(resp, "search", opts.Page, len(result.Issues))

		for _, issue := range result.Issues {
			repo, err := repoFromAPIURL(issue.GetRepositoryURL())
			if err != nil {
				slog.Warn("skipping search result with unparseable repository", "url", issue.GetRepositoryURL(), "error", err)
				continue
			}
			keys = append(keys, model.PRKey{Repo: repo, Number: issue.GetNumber()})
			if len(keys) >= limit {
				return keys, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return keys, nil
}

// BuildSearchQuery renders a SearchQuery into GitHub search syntax.
func BuildSearchQuery(query model.SearchQuery) string {
	parts := []string{
		"is:pr",
		"is:open",
		"archived:false",
		"review-requested:" + query.Reviewer,
		"review:" + string(query.Review),
	}
	if query.Since != "" {
		parts = append(parts, "updated:>="+query.Since)
	}
	if query.Org != "" {
		parts = append(parts, "org:"+query.Org)
	}
	return strings.Join(parts, " ")
}

// FetchQuota returns the core API quota. The rate_limit body and the response headers are
// two readings of the same quota; the conservative merge of both is returned.
func (c *Client) FetchQuota(ctx context.Context) (model.RateLimitState, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return model.RateLimitState{}, classifyError("fetch quota", err)
	}

	state := mapRate(limits.GetCore())
	if resp != nil && resp.Rate.Limit > 0 {
		state = model.ConservativeRate(state, mapRate(&resp.Rate))
	}

	if search := limits.GetSearch(); search != nil {
		slog.Debug("github search quota",
			"remaining", search.Remaining,
			"limit", search.Limit,
			"reset_in", time.Until(search.Reset.Time).Round(time.Second),
		)
	}

	return state, nil
}

// FetchGroupInfo returns a team's name and member count.
func (c *Client) FetchGroupInfo(ctx context.Context, org, slug string) (model.GroupInfo, error) {
	team, resp, err := c.gh.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		return model.GroupInfo{}, classifyError(fmt.Sprintf("fetch team %s/%s", org, slug), err)
	}

	logRateLimit(resp, org+"/teams/"+slug, 0, 1)

	return model.GroupInfo{
		Org:         org,
		Slug:        team.GetSlug(),
		Name:        team.GetName(),
		MemberCount: team.GetMembersCount(),
	}, nil
}

// FetchGroupMembers lists all members of a team, following pagination.
func (c *Client) FetchGroupMembers(ctx context.Context, org, slug string) ([]string, error) {
	opts := &gh.TeamListTeamMembersOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	members := make([]string, 0)

	for {
		users, resp, err := c.gh.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, classifyError(fmt.Sprintf("list team members %s/%s (page %d)", org, slug, opts.Page), err)
		}

		logRateLimit(resp, org+"/teams/"+slug+"/members", opts.Page, len(users))

		for _, u := range users {
			members = append(members, u.GetLogin())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return members, nil
}

// mapRate converts a go-github Rate into a domain RateLimitState.
func mapRate(rate *gh.Rate) model.RateLimitState {
	if rate == nil {
		return model.RateLimitState{}
	}
	return model.RateLimitState{
		Remaining: rate.Remaining,
		Limit:     rate.Limit,
		ResetAt:   rate.Reset.Time,
		Exhausted: rate.Remaining <= 0,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < lowQuotaLevel {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// repoFromAPIURL extracts "owner/repo" from an API repository URL such as
// https://api.github.com/repos/owner/repo.
func repoFromAPIURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing repository URL: %w", err)
	}

	path := strings.Trim(u.Path, "/")
	idx := strings.LastIndex(path, "repos/")
	if idx < 0 {
		return "", fmt.Errorf("repository URL %q has no repos/ segment", raw)
	}

	fullName := path[idx+len("repos/"):]
	if _, _, err := splitRepo(fullName); err != nil {
		return "", err
	}
	return fullName, nil
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
