package port

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camptocamp/oca-port/internal/cache"
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/github"
)

var (
	fromBranch = git.BranchRef{Name: "14.0", Remote: "origin"}
	toBranch   = git.BranchRef{Name: "15.0", Remote: "origin"}
)

func TestGroupSinglePullRequest(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{
		testCommit("c1", "[ADD] shopfloor: new feature", 1),
		testCommit("c2", "[FIX] shopfloor: fix feature", 2),
		testCommit("c3", "[IMP] shopfloor: polish feature", 3),
	}
	pr := mergedPR(42, "Add the feature", 4)
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{
		"c1": {pr}, "c2": {pr}, "c3": {pr},
	}}
	store := newMemStore()

	grouper := NewGrouper(repo, lookup, store, "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	got := grouping.PullRequests[0]
	assert.Equal(t, 42, got.Number)
	assert.Equal(t, "Add the feature", got.Title)
	assert.Equal(t, "alice", got.Author)
	assert.True(t, got.Merged)
	assert.Equal(t, NotPorted, got.Status)

	// Commit order inside the group is the original history order.
	require.Len(t, got.Commits, 3)
	assert.Equal(t, "c1", got.Commits[0].Hash)
	assert.Equal(t, "c2", got.Commits[1].Hash)
	assert.Equal(t, "c3", got.Commits[2].Hash)
	assert.Equal(t, got.Commits, got.MissingCommits)

	assert.Equal(t, 3, lookup.calls)
	assert.Equal(t, 1, store.sets)
	assert.Empty(t, grouping.Warnings)
}

func TestGroupPartiallyPorted(t *testing.T) {
	repo := newFakeRepo()
	// The target branch carries cherry-picked copies of c1 and c2:
	// different hashes, same patch content.
	repo.ancestors = []git.Commit{
		testCommit("t1", "[ADD] shopfloor: new feature", 1),
		testCommit("t2", "[FIX] shopfloor: fix feature", 2),
	}
	repo.patchIDs = map[string]string{"c1": "p1", "t1": "p1", "c2": "p2", "t2": "p2"}

	commits := []git.Commit{
		testCommit("c1", "[ADD] shopfloor: new feature", 1),
		testCommit("c2", "[FIX] shopfloor: fix feature", 2),
		testCommit("c3", "[IMP] shopfloor: polish feature", 3),
	}
	pr := mergedPR(42, "Add the feature", 4)
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{
		"c1": {pr}, "c2": {pr}, "c3": {pr},
	}}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	got := grouping.PullRequests[0]
	assert.Equal(t, PartiallyPorted, got.Status)
	require.Len(t, got.MissingCommits, 1)
	assert.Equal(t, "c3", got.MissingCommits[0].Hash)
}

func TestGroupFullyPorted(t *testing.T) {
	repo := newFakeRepo()
	repo.ancestors = []git.Commit{
		testCommit("t1", "ported c1", 1),
		testCommit("t2", "ported c2", 2),
	}
	repo.patchIDs = map[string]string{
		"c1": "p1", "t1": "p1",
		"c2": "p2", "t2": "p2",
	}

	commits := []git.Commit{
		testCommit("c1", "[ADD] shopfloor: new feature", 1),
		testCommit("c2", "[FIX] shopfloor: fix feature", 2),
	}
	pr := mergedPR(42, "Add the feature", 4)
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{
		"c1": {pr}, "c2": {pr},
	}}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	assert.Equal(t, FullyPorted, grouping.PullRequests[0].Status)
	assert.Empty(t, grouping.PullRequests[0].MissingCommits)
}

func TestGroupDirectPushBecomesOrphan(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{testCommit("c1", "[FIX] shopfloor: hotfix", 1)}
	// The API knows no merged PR for this commit.
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{}}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	got := grouping.PullRequests[0]
	assert.Equal(t, 0, got.Number)
	assert.Equal(t, "Orphaned commit c1", got.Title)
	require.Len(t, got.Commits, 1)
	assert.Equal(t, NotPorted, got.Status)
	assert.Empty(t, grouping.Warnings)
}

func TestGroupUnmergedPullRequestIgnored(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{testCommit("c1", "[FIX] shopfloor: hotfix", 1)}
	open := &github.PullRequest{Number: 50, Title: "Still open", State: "open"}
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{"c1": {open}}}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	// An unmerged PR cannot have introduced the commit on the source
	// branch: the commit degrades to an orphan.
	require.Len(t, grouping.PullRequests, 1)
	assert.Equal(t, 0, grouping.PullRequests[0].Number)
}

func TestGroupLookupFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{
		testCommit("c1", "[FIX] shopfloor: hotfix", 1),
		testCommit("c2", "[IMP] shopfloor: improvement", 2),
	}
	lookup := &fakeLookup{err: errors.New("api unreachable")}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	// Both commits survive as orphans and the failures are reported.
	require.Len(t, grouping.PullRequests, 2)
	require.Len(t, grouping.Warnings, 2)
	assert.Contains(t, grouping.Warnings[0], "c1")
	assert.Contains(t, grouping.Warnings[1], "c2")
}

func TestGroupCacheHitSkipsAPI(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{testCommit("c1", "[ADD] shopfloor: new feature", 1)}
	store := newMemStore()

	key := cache.GenerateKey("wms", "14.0", "shopfloor")
	require.NoError(t, store.Set(key, map[string]cachedPR{
		"c1": {Number: 42, Title: "Add the feature", Author: "alice", Merged: true, MergedAt: 1656936000},
	}))
	store.sets = 0

	lookup := &fakeLookup{}
	grouper := NewGrouper(repo, lookup, store, "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	assert.Equal(t, 42, grouping.PullRequests[0].Number)
	assert.Equal(t, 0, lookup.calls, "cached associations must not hit the API")
	assert.Equal(t, 0, store.sets, "a clean cache must not be rewritten")
}

func TestGroupEveryCommitKeptExactlyOnce(t *testing.T) {
	repo := newFakeRepo()
	commits := []git.Commit{
		testCommit("c1", "first", 1),
		testCommit("c2", "second", 2),
		testCommit("c3", "third", 3),
	}
	pr42 := mergedPR(42, "Feature A", 4)
	pr43 := mergedPR(43, "Feature B", 5)
	// PR 42 and 43 interleave in history.
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{
		"c1": {pr42}, "c2": {pr43}, "c3": {pr42},
	}}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	// Groups appear in first-seen order.
	require.Len(t, grouping.PullRequests, 2)
	assert.Equal(t, 42, grouping.PullRequests[0].Number)
	assert.Equal(t, 43, grouping.PullRequests[1].Number)

	seen := map[string]int{}
	total := 0
	for _, pr := range grouping.PullRequests {
		for _, commit := range pr.Commits {
			seen[commit.Hash]++
			total++
		}
	}
	assert.Equal(t, len(commits), total)
	for _, commit := range commits {
		assert.Equal(t, 1, seen[commit.Hash], "commit %s", commit.Hash)
	}
}

func TestGroupEmptyCommits(t *testing.T) {
	grouper := NewGrouper(newFakeRepo(), &fakeLookup{}, newMemStore(), "OCA", "wms")
	grouping, err := grouper.Group(context.Background(), nil, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)
	assert.Empty(t, grouping.PullRequests)
}

func TestGroupCustomEquivalence(t *testing.T) {
	repo := newFakeRepo()
	repo.ancestors = []git.Commit{testCommit("t1", "[ADD] shopfloor: new feature", 1)}

	commits := []git.Commit{testCommit("c1", "[ADD] shopfloor: new feature", 1)}
	pr := mergedPR(42, "Add the feature", 4)
	lookup := &fakeLookup{prs: map[string][]*github.PullRequest{"c1": {pr}}}

	// Subject-based matching instead of patch ids.
	bySubject := func(hash, path string) (string, error) {
		for _, c := range append(repo.ancestors, commits...) {
			if c.Hash == hash {
				return c.Subject, nil
			}
		}
		return "", nil
	}

	grouper := NewGrouper(repo, lookup, newMemStore(), "OCA", "wms").WithEquivalence(bySubject)
	grouping, err := grouper.Group(context.Background(), commits, fromBranch, toBranch, "shopfloor")
	require.NoError(t, err)

	require.Len(t, grouping.PullRequests, 1)
	assert.Equal(t, FullyPorted, grouping.PullRequests[0].Status)
}
