package port

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/term"
)

func newPublisher(repo *fakeRepo, creator DraftPRCreator) *Publisher {
	return NewPublisher(repo, creator, term.NewStyle(false),
		"OCA", "wms", "camptocamp", "camptocamp", "15.0", "shopfloor")
}

func TestPublishCumulativeBranch(t *testing.T) {
	repo := newFakeRepo()
	creator := &fakeCreator{}

	base := &PlanEntry{
		PR:     prInfo(42, NotPorted, testCommit("c1", "first", 1)),
		Branch: "15.0-port-shopfloor",
		State:  EntryPorted,
	}
	chained := &PlanEntry{
		PR:     prInfo(43, NotPorted, testCommit("c2", "second", 2)),
		Base:   base,
		Branch: "15.0-port-shopfloor",
		State:  EntryPorted,
	}
	plan := &Plan{Entries: []*PlanEntry{base, chained}, Chained: true}

	err := newPublisher(repo, creator).Publish(context.Background(), plan)
	require.NoError(t, err)

	// One push, one draft PR for the shared branch.
	assert.Equal(t, []string{"camptocamp:15.0-port-shopfloor"}, repo.pushed)
	require.Len(t, creator.reqs, 1)
	req := creator.reqs[0]
	assert.Equal(t, "[15.0][FW] shopfloor: port #42, #43", req.Title)
	assert.Equal(t, "camptocamp:15.0-port-shopfloor", req.Head)
	assert.Equal(t, "15.0", req.Base)
	assert.Contains(t, req.Body, "* #42 (by @alice)")
	assert.Contains(t, req.Body, "* #43 (by @alice)")
}

func TestPublishOneBranchPerEntry(t *testing.T) {
	repo := newFakeRepo()
	creator := &fakeCreator{}

	plan := &Plan{Entries: []*PlanEntry{
		{PR: prInfo(42, NotPorted, testCommit("c1", "first", 1)), Branch: "15.0-port-shopfloor-pr42", State: EntryPorted},
		{PR: prInfo(43, NotPorted, testCommit("c2", "second", 2)), Branch: "15.0-port-shopfloor-pr43", State: EntryPorted},
	}}

	err := newPublisher(repo, creator).Publish(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"camptocamp:15.0-port-shopfloor-pr42",
		"camptocamp:15.0-port-shopfloor-pr43",
	}, repo.pushed)
	require.Len(t, creator.reqs, 2)
	assert.Equal(t, "[15.0][FW] shopfloor: port #42", creator.reqs[0].Title)
	assert.Equal(t, "[15.0][FW] shopfloor: port #43", creator.reqs[1].Title)
}

func TestPublishSkipsUnportedEntries(t *testing.T) {
	repo := newFakeRepo()
	creator := &fakeCreator{}

	plan := &Plan{Entries: []*PlanEntry{
		{PR: prInfo(42, NotPorted, testCommit("c1", "first", 1)), Branch: "15.0-port-shopfloor-pr42", State: EntryFailed},
		{PR: prInfo(43, NotPorted, testCommit("c2", "second", 2)), State: EntrySkipped},
	}}

	err := newPublisher(repo, creator).Publish(context.Background(), plan)
	require.NoError(t, err)

	assert.Empty(t, repo.pushed)
	assert.Empty(t, creator.reqs)
}

func TestPublishWithoutCredentialStillPushes(t *testing.T) {
	repo := newFakeRepo()

	plan := &Plan{Entries: []*PlanEntry{
		{PR: prInfo(42, NotPorted, testCommit("c1", "first", 1)), Branch: "15.0-port-shopfloor-pr42", State: EntryPorted},
	}}

	// nil creator: the branch is pushed and the creation link printed.
	err := newPublisher(repo, nil).Publish(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"camptocamp:15.0-port-shopfloor-pr42"}, repo.pushed)
}

func TestPublishFallsBackOnCreationFailure(t *testing.T) {
	repo := newFakeRepo()
	creator := &fakeCreator{err: errors.New("draft PRs disabled on this plan")}

	plan := &Plan{Entries: []*PlanEntry{
		{PR: prInfo(42, NotPorted, testCommit("c1", "first", 1)), Branch: "15.0-port-shopfloor-pr42", State: EntryPorted},
	}}

	err := newPublisher(repo, creator).Publish(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"camptocamp:15.0-port-shopfloor-pr42"}, repo.pushed)
}

func TestPublishOrphanTitleAndBody(t *testing.T) {
	repo := newFakeRepo()
	creator := &fakeCreator{}

	commit := testCommit("abcdef1234567890", "[FIX] shopfloor: direct push", 1)
	orphan := &PullRequestInfo{
		Number:         0,
		Title:          "Orphaned commit abcdef1",
		Commits:        []git.Commit{commit},
		MissingCommits: []git.Commit{commit},
	}
	plan := &Plan{Entries: []*PlanEntry{
		{PR: orphan, Branch: "15.0-port-shopfloor-abcdef1", State: EntryPorted},
	}}

	err := newPublisher(repo, creator).Publish(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, creator.reqs, 1)
	assert.Equal(t, "[15.0][FW] shopfloor: port orphaned commits", creator.reqs[0].Title)
	assert.Contains(t, creator.reqs[0].Body, "* commit abcdef1 (by alice): [FIX] shopfloor: direct push")
}
