// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/prefix-dev/pixibump/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

// New returns a new github api client.
// An empty apiToken selects anonymous access, which is subject to a much
// lower API rate limit.
func New(oauthAPItoken string) *Client {
	httpClient := newHTTPClient(oauthAPItoken)
	return &Client{
		restClt: github.NewClient(httpClient),
		logger:  zap.L().Named(loggerName),
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is a github API client.
type Client struct {
	restClt *github.Client
	logger  *zap.Logger
}

// LatestReleaseTag returns the tag name of the latest published release of
// the repository.
func (clt *Client) LatestReleaseTag(ctx context.Context, owner, repo string) (string, error) {
	release, _, err := clt.restClt.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("repository %s/%s has no published releases: %w", owner, repo, err)
		}

		return "", clt.logRateLimit(err)
	}

	tag := release.GetTagName()
	if tag == "" {
		return "", errors.New("github returned a release without a tag name")
	}

	return tag, nil
}

// CompareStatus returns the relationship of head to base in the history of
// the repository, one of: identical, ahead, behind, diverged.
func (clt *Client) CompareStatus(ctx context.Context, owner, repo, base, head string) (string, error) {
	cmp, _, err := clt.restClt.Repositories.CompareCommits(ctx, owner, repo, base, head, &github.ListOptions{PerPage: 1})
	if err != nil {
		return "", clt.logRateLimit(err)
	}

	status := cmp.GetStatus()
	if status == "" {
		return "", errors.New("github returned a comparison without a status field")
	}

	return status, nil
}

// FindOpenPullRequest returns the open pull request whose source branch is
// headBranch, or nil when none exists.
func (clt *Client) FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*github.PullRequest, error) {
	prs, _, err := clt.restClt.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + headBranch,
		ListOptions: github.ListOptions{
			PerPage: 10,
		},
	})
	if err != nil {
		return nil, clt.logRateLimit(err)
	}

	if len(prs) == 0 {
		return nil, nil
	}

	clt.logger.Debug(
		"found existing open pull request",
		logfields.Event("github_pull_request_found"),
		logfields.Repository(repo),
		logfields.Branch(headBranch),
		logfields.PullRequest(prs[0].GetNumber()),
	)

	return prs[0], nil
}

// CreatePullRequest opens a pull request from the head branch onto the base
// branch of the repository.
func (clt *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*github.PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, clt.logRateLimit(err)
	}

	return pr, nil
}

// DefaultBranch returns the name of the default branch of the repository.
func (clt *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	repository, _, err := clt.restClt.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", clt.logRateLimit(err)
	}

	branch := repository.GetDefaultBranch()
	if branch == "" {
		return "", errors.New("github returned a repository without a default branch")
	}

	return branch, nil
}

// logRateLimit logs when an API call failed because the rate limit is
// exhausted, which is the expected failure mode of anonymous access, and
// returns the error unchanged. The workflow never retries, the run fails.
func (clt *Client) logRateLimit(err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", rateLimitErr.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", rateLimitErr.Rate.Reset.Time),
		)
	}

	return err
}
