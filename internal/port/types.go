// Package port implements the port-matching and port-execution engine:
// finding the commits of an addon present on a source branch but missing
// on a target branch, grouping them into the pull requests that
// introduced them, and replaying the missing ones onto working branches.
package port

import (
	"context"
	"fmt"
	"time"

	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/github"
)

// Repo is the narrow version-control surface the engine needs. It is
// satisfied by *git.Repository and by in-memory fakes in tests, keeping
// the engine's logic pure given this interface.
type Repo interface {
	CommitsBetween(from, to git.BranchRef, path string) ([]git.Commit, error)
	AncestorCommits(ref git.BranchRef, path string) ([]git.Commit, error)
	PatchID(hash, path string) (string, error)
	ResolveRef(ref git.BranchRef) (string, error)
	BranchExists(name string) bool
	CreateBranch(name, startPoint string) error
	CheckoutBranch(name string) error
	DeleteBranch(name string) error
	HeadCommit() (string, error)
	ResetHard(commit string) error
	CherryPick(hash string) error
	CherryPickAbort() error
	HasConflicts() (bool, error)
	AmendTrailer(key, value string) error
	Push(remote, branch string) error
}

// PRLookup resolves the pull requests containing a commit.
type PRLookup interface {
	PullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]*github.PullRequest, error)
}

// DraftPRCreator opens draft pull requests against the upstream project.
type DraftPRCreator interface {
	CreateDraftPullRequest(ctx context.Context, owner, repo string, req github.NewPullRequest) (*github.PullRequest, error)
}

// PortStatus classifies how much of a pull request already landed on the
// target branch. Derived, never stored: recomputed each run from the
// current branch state.
type PortStatus int

const (
	// NotPorted means none of the PR's commits exist on the target branch
	NotPorted PortStatus = iota
	// PartiallyPorted means some but not all commits exist on the target branch
	PartiallyPorted
	// FullyPorted means every commit of the PR exists on the target branch
	FullyPorted
)

func (s PortStatus) String() string {
	switch s {
	case NotPorted:
		return "not ported"
	case PartiallyPorted:
		return "partially ported"
	case FullyPorted:
		return "fully ported"
	default:
		return fmt.Sprintf("PortStatus(%d)", int(s))
	}
}

// PullRequestInfo groups the commits a pull request contributed to the
// addon. Commits are kept in original commit order. Number 0 marks a
// pseudo-PR wrapping a commit that could not be resolved to any PR
// (direct push, or a lookup failure recorded in Grouping.Warnings).
type PullRequestInfo struct {
	Number   int
	Title    string
	URL      string
	Author   string
	Merged   bool
	MergedAt time.Time

	// Commits are all missing-from-target commits associated with this PR
	Commits []git.Commit
	// MissingCommits are the commits whose content is absent from the
	// target branch; for a NotPorted PR this equals Commits
	MissingCommits []git.Commit

	Status PortStatus
}

// Ref returns a stable identifier, e.g. "OCA/wms#42", used for blacklist
// records and trailers. Pseudo-PRs are identified by their commit.
func (pr *PullRequestInfo) Ref(owner, repo string) string {
	if pr.Number == 0 {
		if len(pr.Commits) > 0 {
			return fmt.Sprintf("%s/%s@%s", owner, repo, pr.Commits[0].ShortHash())
		}
		return fmt.Sprintf("%s/%s@orphaned", owner, repo)
	}
	return fmt.Sprintf("%s/%s#%d", owner, repo, pr.Number)
}

// EarliestCommitDate returns the authored date of the oldest commit,
// which orders plan entries so dependencies between PRs touching the
// same files are respected as well as possible.
func (pr *PullRequestInfo) EarliestCommitDate() time.Time {
	if len(pr.Commits) == 0 {
		return time.Time{}
	}
	earliest := pr.Commits[0].AuthoredDate
	for _, c := range pr.Commits[1:] {
		if c.AuthoredDate.Before(earliest) {
			earliest = c.AuthoredDate
		}
	}
	return earliest
}

// EntryState tracks the outcome of a plan entry over a run.
type EntryState int

const (
	// EntryPending means the entry has not been executed yet
	EntryPending EntryState = iota
	// EntryPorted means all missing commits were replayed successfully
	EntryPorted
	// EntryFailed means replay stopped on conflicts (non-interactive) or
	// the user gave up on resolution
	EntryFailed
	// EntrySkipped means the entry was not executed: declined by the
	// user, or chained onto a failed base
	EntrySkipped
)

func (s EntryState) String() string {
	switch s {
	case EntryPending:
		return "pending"
	case EntryPorted:
		return "ported"
	case EntryFailed:
		return "failed"
	case EntrySkipped:
		return "skipped"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// PlanEntry is one pull request scheduled for replay. Base chains the
// entry onto a previously planned branch tip, enabling cumulative
// porting; a nil Base starts from the target branch.
type PlanEntry struct {
	PR     *PullRequestInfo
	Base   *PlanEntry
	Branch string

	State         EntryState
	ConflictPaths []string
	SkipReason    string
}

// Plan is the ordered set of entries to replay. Built fresh on each
// invocation and never persisted.
type Plan struct {
	Entries []*PlanEntry
	// Chained is true when entries cumulate onto a single branch
	Chained bool
}

// Confirmed returns the entries that were not skipped during the
// confirmation pass.
func (p *Plan) Confirmed() []*PlanEntry {
	var entries []*PlanEntry
	for _, e := range p.Entries {
		if e.State != EntrySkipped {
			entries = append(entries, e)
		}
	}
	return entries
}
