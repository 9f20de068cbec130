package github

import (
	"context"
	"time"

	gh "github.com/google/go-github/v60/github"
)

// CheckSummary aggregates check run outcomes for a PR head commit.
type CheckSummary struct {
	Total   int
	Passed  int
	Failed  int
	Pending int

	// FailedChecks holds the names of the failed runs, for findings.
	FailedChecks []string
}

// Done reports whether every check run has completed.
func (s CheckSummary) Done() bool {
	return s.Total > 0 && s.Pending == 0
}

// ReviewInfo is one submitted PR review.
type ReviewInfo struct {
	Login       string
	State       string // APPROVED, CHANGES_REQUESTED, COMMENTED, ...
	SubmittedAt time.Time
}

// PRStatus is a point-in-time snapshot of a pull request's CI and
// review activity, as seen by one poll.
type PRStatus struct {
	Number  int
	State   string // open, closed
	Merged  bool
	HeadSHA string
	Title   string
	Checks  CheckSummary
	Reviews []ReviewInfo
}

// FetchPRStatus reads the PR, its head commit's check runs and its
// submitted reviews in one pass.
func (c *Client) FetchPRStatus(ctx context.Context, owner, repo string, prNumber int) (*PRStatus, error) {
	client, err := c.apiClient(ctx)
	if err != nil {
		return nil, err
	}

	pr, _, err := client.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, wrapErr("getting pull request", err)
	}

	status := &PRStatus{
		Number:  prNumber,
		State:   pr.GetState(),
		Merged:  pr.GetMerged(),
		HeadSHA: pr.GetHead().GetSHA(),
		Title:   pr.GetTitle(),
	}

	status.Checks, err = c.listCheckRuns(ctx, client, owner, repo, status.HeadSHA)
	if err != nil {
		return nil, err
	}

	status.Reviews, err = c.listReviews(ctx, client, owner, repo, prNumber)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("owner", owner).
		Str("repo", repo).
		Int("pr", prNumber).
		Int("checks", status.Checks.Total).
		Int("reviews", len(status.Reviews)).
		Msg("fetched PR status")

	return status, nil
}

func (c *Client) listCheckRuns(ctx context.Context, client *gh.Client, owner, repo, ref string) (CheckSummary, error) {
	var summary CheckSummary
	if ref == "" {
		return summary, nil
	}

	opts := &gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		result, resp, err := client.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			return summary, wrapErr("listing check runs", err)
		}
		for _, run := range result.CheckRuns {
			summary.Total++
			if run.GetStatus() != "completed" {
				summary.Pending++
				continue
			}
			switch run.GetConclusion() {
			case "success", "neutral", "skipped":
				summary.Passed++
			default:
				summary.Failed++
				summary.FailedChecks = append(summary.FailedChecks, run.GetName())
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return summary, nil
}

func (c *Client) listReviews(ctx context.Context, client *gh.Client, owner, repo string, prNumber int) ([]ReviewInfo, error) {
	var reviews []ReviewInfo

	opts := &gh.ListOptions{PerPage: 100}
	for {
		page, resp, err := client.PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, wrapErr("listing PR reviews", err)
		}
		for _, r := range page {
			reviews = append(reviews, ReviewInfo{
				Login:       r.GetUser().GetLogin(),
				State:       r.GetState(),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return reviews, nil
}

// PostReviewComment posts a summary comment review on a PR.
func (c *Client) PostReviewComment(ctx context.Context, owner, repo string, prNumber int, body string) error {
	client, err := c.apiClient(ctx)
	if err != nil {
		return err
	}

	event := "COMMENT"
	review := &gh.PullRequestReviewRequest{
		Body:  &body,
		Event: &event,
	}

	_, _, err = client.PullRequests.CreateReview(ctx, owner, repo, prNumber, review)
	if err != nil {
		return wrapErr("creating review", err)
	}

	c.logger.Info().
		Str("owner", owner).
		Str("repo", repo).
		Int("pr", prNumber).
		Msg("posted review comment")

	return nil
}
