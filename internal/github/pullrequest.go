package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/camptocamp/oca-port/internal/logger"
)

// PullRequest represents a GitHub pull request with the information
// relevant for porting.
type PullRequest struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	State    string    `json:"state"` // open, closed
	HTMLURL  string    `json:"html_url"`
	User     PRUser    `json:"user"`
	Base     PRBranch  `json:"base"`
	MergedAt time.Time `json:"merged_at"`
}

// PRUser represents a user associated with a pull request
type PRUser struct {
	Login string `json:"login"`
}

// PRBranch represents a branch in a pull request (head or base)
type PRBranch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// Merged reports whether the pull request has been merged.
func (pr *PullRequest) Merged() bool {
	return !pr.MergedAt.IsZero()
}

// Ref returns a stable identifier of the pull request, e.g. "OCA/wms#42".
func (pr *PullRequest) Ref(owner, repo string) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, pr.Number)
}

const perPage = 100

// PullRequestsForCommit returns the pull requests associated with a
// commit, fetching all pages. Results are sorted by merge date so the
// first-merged PR comes first.
func (c *Client) PullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]*PullRequest, error) {
	var all []*PullRequest
	for page := 1; ; page++ {
		path := fmt.Sprintf("repos/%s/%s/commits/%s/pulls?per_page=%d&page=%d",
			owner, repo, sha, perPage, page)

		var prs []*PullRequest
		if err := c.get(ctx, path, &prs); err != nil {
			return nil, fmt.Errorf("failed to fetch pull requests of commit %s: %w", sha, err)
		}
		all = append(all, prs...)
		if len(prs) < perPage {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		// Unmerged PRs sort last.
		if all[i].Merged() != all[j].Merged() {
			return all[i].Merged()
		}
		return all[i].MergedAt.Before(all[j].MergedAt)
	})

	logger.Debug().
		Str("sha", sha).
		Int("count", len(all)).
		Msg("Fetched pull requests for commit")
	return all, nil
}

// FirstMerged returns the pull request that introduced a commit, picked
// from a list ordered by PullRequestsForCommit. When the API reports
// several merged PRs containing the same commit (backport chains), the
// first merged by date wins; this is a deterministic policy choice, not
// something the API guarantees. Returns nil when no PR was merged.
func FirstMerged(prs []*PullRequest) *PullRequest {
	for _, pr := range prs {
		if pr.Merged() {
			return pr
		}
	}
	return nil
}

// NewPullRequest describes a pull request to create.
type NewPullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"` // "user-org:branch"
	Base  string `json:"base"`
	Body  string `json:"body"`
	Draft bool   `json:"draft"`
}

// CreateDraftPullRequest opens a draft pull request against the upstream
// repository and returns it.
func (c *Client) CreateDraftPullRequest(ctx context.Context, owner, repo string, req NewPullRequest) (*PullRequest, error) {
	req.Draft = true

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pull request: %w", err)
	}

	path := fmt.Sprintf("repos/%s/%s/pulls", owner, repo)
	var pr PullRequest
	if err := c.restClient.DoWithContext(ctx, http.MethodPost, path, bytes.NewReader(payload), &pr); err != nil {
		return nil, fmt.Errorf("failed to create draft pull request: %w", classifyError(path, err))
	}

	logger.Debug().
		Int("number", pr.Number).
		Str("url", pr.HTMLURL).
		Msg("Created draft pull request")
	return &pr, nil
}
