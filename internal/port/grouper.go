package port

import (
	"context"
	"fmt"
	"time"

	"github.com/camptocamp/oca-port/internal/cache"
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/github"
	"github.com/camptocamp/oca-port/internal/logger"
)

// Equivalence computes a content-based key for the change a commit
// introduces under a path. Two commits with the same non-empty key are
// considered the same change even though their hashes differ after
// porting. Pluggable so matching can be tested and tuned independently
// of the grouping algorithm.
type Equivalence func(hash, path string) (string, error)

// Grouper maps each commit to the pull request that introduced it and
// determines how much of every pull request already landed on the target
// branch.
type Grouper struct {
	repo        Repo
	api         PRLookup
	cache       cache.Store
	owner       string
	repoName    string
	equivalence Equivalence
}

// NewGrouper creates a new PR grouper. The cache is an explicit
// dependency rather than ambient state, so tests can supply a fake and
// assert on read/write calls.
func NewGrouper(repo Repo, api PRLookup, store cache.Store, owner, repoName string) *Grouper {
	return &Grouper{
		repo:        repo,
		api:         api,
		cache:       store,
		owner:       owner,
		repoName:    repoName,
		equivalence: repo.PatchID,
	}
}

// WithEquivalence replaces the content-matching function.
func (g *Grouper) WithEquivalence(eq Equivalence) *Grouper {
	g.equivalence = eq
	return g
}

// Grouping is the result of associating commits with pull requests.
type Grouping struct {
	// PullRequests in first-seen commit order
	PullRequests []*PullRequestInfo
	// Warnings collects per-commit lookup failures that were degraded to
	// pseudo-PRs instead of aborting the run
	Warnings []string
}

// cachedPR is the serialized commit-to-PR association stored in the cache.
type cachedPR struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Author   string `json:"author"`
	Merged   bool   `json:"merged"`
	MergedAt int64  `json:"merged_at"`
}

// Group resolves each commit's originating pull request via the cache or
// the remote API, partitions the commits into PR-sized groups preserving
// first-seen order, and computes every group's port status against the
// target branch. API failures degrade the affected commit to a pseudo-PR
// and are reported in Warnings; partial results remain useful.
func (g *Grouper) Group(ctx context.Context, commits []git.Commit, fromBranch, target git.BranchRef, addon string) (*Grouping, error) {
	grouping := &Grouping{}
	if len(commits) == 0 {
		return grouping, nil
	}

	cacheKey := cache.GenerateKey(g.repoName, fromBranch.Name, addon)
	associations := map[string]cachedPR{}
	if hit, err := g.cache.Get(cacheKey, &associations); err != nil {
		logger.Warn().Err(err).Msg("Failed to read PR cache, continuing without it")
		associations = map[string]cachedPR{}
	} else if hit {
		logger.Debug().Str("key", cacheKey).Int("entries", len(associations)).Msg("PR cache hit")
	}

	byNumber := map[int]*PullRequestInfo{}
	cacheDirty := false

	for _, commit := range commits {
		assoc, known := associations[commit.Hash]
		if !known {
			resolved, err := g.lookup(ctx, commit)
			if err != nil {
				grouping.Warnings = append(grouping.Warnings,
					fmt.Sprintf("could not find the pull request of commit %s: %v", commit.ShortHash(), err))
				g.appendOrphan(grouping, commit)
				continue
			}
			assoc = resolved
			associations[commit.Hash] = assoc
			cacheDirty = true
		}

		if assoc.Number == 0 {
			// Direct push: a singleton pseudo-PR per commit.
			g.appendOrphan(grouping, commit)
			continue
		}

		pr, seen := byNumber[assoc.Number]
		if !seen {
			pr = &PullRequestInfo{
				Number:   assoc.Number,
				Title:    assoc.Title,
				URL:      assoc.URL,
				Author:   assoc.Author,
				Merged:   assoc.Merged,
				MergedAt: unixTime(assoc.MergedAt),
			}
			byNumber[assoc.Number] = pr
			grouping.PullRequests = append(grouping.PullRequests, pr)
		}
		pr.Commits = append(pr.Commits, commit)
	}

	if cacheDirty {
		if err := g.cache.Set(cacheKey, associations); err != nil {
			logger.Warn().Err(err).Msg("Failed to update PR cache")
		}
	}

	if err := g.computeStatuses(grouping, target, addon); err != nil {
		return nil, err
	}
	return grouping, nil
}

// lookup resolves a commit's PR via the remote API. A commit belonging
// to several merged PRs is attributed to the first merged by date.
func (g *Grouper) lookup(ctx context.Context, commit git.Commit) (cachedPR, error) {
	prs, err := g.api.PullRequestsForCommit(ctx, g.owner, g.repoName, commit.Hash)
	if err != nil {
		return cachedPR{}, err
	}
	merged := github.FirstMerged(prs)
	if merged == nil {
		return cachedPR{}, nil
	}
	return cachedPR{
		Number:   merged.Number,
		Title:    merged.Title,
		URL:      merged.HTMLURL,
		Author:   merged.User.Login,
		Merged:   true,
		MergedAt: merged.MergedAt.Unix(),
	}, nil
}

func (g *Grouper) appendOrphan(grouping *Grouping, commit git.Commit) {
	grouping.PullRequests = append(grouping.PullRequests, &PullRequestInfo{
		Number:  0,
		Title:   "Orphaned commit " + commit.ShortHash(),
		Author:  commit.Author,
		Commits: []git.Commit{commit},
	})
}

// computeStatuses matches every grouped commit against the target
// branch's ancestors restricted to the addon path. Matching is by
// content equivalence, not hash: hashes differ after porting.
func (g *Grouper) computeStatuses(grouping *Grouping, target git.BranchRef, addon string) error {
	if len(grouping.PullRequests) == 0 {
		return nil
	}

	ancestors, err := g.repo.AncestorCommits(target, addon)
	if err != nil {
		return fmt.Errorf("failed to inspect target branch %s: %w", target.Ref(), err)
	}

	applied := make(map[string]bool, len(ancestors))
	for _, ancestor := range ancestors {
		id, err := g.equivalence(ancestor.Hash, addon)
		if err != nil {
			return err
		}
		if id != "" {
			applied[id] = true
		}
	}

	for _, pr := range grouping.PullRequests {
		ported := 0
		pr.MissingCommits = nil
		for _, commit := range pr.Commits {
			id, err := g.equivalence(commit.Hash, addon)
			if err != nil {
				return err
			}
			if id != "" && applied[id] {
				ported++
			} else {
				pr.MissingCommits = append(pr.MissingCommits, commit)
			}
		}
		switch {
		case ported == 0:
			pr.Status = NotPorted
		case ported == len(pr.Commits):
			pr.Status = FullyPorted
		default:
			pr.Status = PartiallyPorted
		}
		logger.Debug().
			Int("pr", pr.Number).
			Str("status", pr.Status.String()).
			Int("commits", len(pr.Commits)).
			Int("missing", len(pr.MissingCommits)).
			Msg("Computed port status")
	}
	return nil
}

func unixTime(epoch int64) time.Time {
	if epoch <= 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
