package port

import (
	"errors"
	"fmt"
	"strings"

	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/logger"
	"github.com/camptocamp/oca-port/internal/term"
)

// trailerKey is appended to the last replayed commit of an entry so the
// ported branch keeps a structural reference to the original PR.
const trailerKey = "Ported-PR"

// Executor replays plan entries onto working branches via cherry-pick.
// Branch checkout is the only form of locking: entries are replayed one
// at a time, never concurrently.
type Executor struct {
	repo           Repo
	prompter       term.Prompter
	style          *term.Style
	nonInteractive bool
	owner          string
	repoName       string
	toBranch       git.BranchRef

	// createBranch is disabled when the executor continues on an
	// existing migration branch
	createBranch bool
}

// NewExecutor creates a new port executor
func NewExecutor(repo Repo, prompter term.Prompter, style *term.Style, nonInteractive bool, owner, repoName string, toBranch git.BranchRef, createBranch bool) *Executor {
	return &Executor{
		repo:           repo,
		prompter:       prompter,
		style:          style,
		nonInteractive: nonInteractive,
		owner:          owner,
		repoName:       repoName,
		toBranch:       toBranch,
		createBranch:   createBranch,
	}
}

// Execute replays every confirmed entry of the plan, in order. A failed
// entry never poisons independent entries, but it blocks every entry
// chained onto it: their base branch tip does not exist, so they are
// reported as skipped instead of being replayed against the wrong base.
// Branches are left checked out and clean; pushing is the publisher's job.
func (e *Executor) Execute(plan *Plan) error {
	for _, entry := range plan.Entries {
		if entry.State == EntrySkipped {
			continue
		}
		if entry.Base != nil && entry.Base.State != EntryPorted {
			entry.State = EntrySkipped
			entry.SkipReason = fmt.Sprintf("base entry %s not ported", e.describe(entry.Base.PR))
			fmt.Println(e.style.Warning(fmt.Sprintf("Skip %s: %s", e.describe(entry.PR), entry.SkipReason)))
			continue
		}
		if err := e.executeEntry(plan, entry); err != nil {
			return err
		}
	}
	return nil
}

// executeEntry creates or reuses the entry's working branch and replays
// its missing commits. A failed entry is rolled back to the branch tip
// recorded before its first pick, so a shared cumulative branch never
// carries commits of an entry that is not reported as ported.
func (e *Executor) executeEntry(plan *Plan, entry *PlanEntry) error {
	if err := e.prepareBranch(plan, entry); err != nil {
		return err
	}
	if entry.State == EntrySkipped {
		fmt.Println(e.style.Warning(fmt.Sprintf("Skip %s: %s", e.describe(entry.PR), entry.SkipReason)))
		return nil
	}

	tip, err := e.repo.HeadCommit()
	if err != nil {
		return err
	}

	fmt.Println(e.style.Info(fmt.Sprintf(
		"Port %s onto %s (%d commit(s))",
		e.describe(entry.PR), e.style.Bold(entry.Branch), len(entry.PR.MissingCommits),
	)))

	for _, commit := range entry.PR.MissingCommits {
		if err := e.replayCommit(entry, commit); err != nil {
			return err
		}
		if entry.State == EntryFailed {
			return e.repo.ResetHard(tip)
		}
	}

	if entry.PR.Number != 0 {
		if err := e.repo.AmendTrailer(trailerKey, entry.PR.Ref(e.owner, e.repoName)); err != nil {
			return err
		}
	}
	entry.State = EntryPorted
	fmt.Println(e.style.Success(fmt.Sprintf("Ported %s", e.describe(entry.PR))))
	return nil
}

// prepareBranch checks out the branch the entry replays onto: the chain
// tip for a continued cumulative branch, a fresh branch from the target
// ref otherwise.
func (e *Executor) prepareBranch(plan *Plan, entry *PlanEntry) error {
	// Continuing a cumulative chain: the branch is already checked out
	// with the base entry's commits on it.
	if entry.Base != nil && entry.Base.Branch == entry.Branch {
		return nil
	}
	if !e.createBranch {
		// Migration follow-up mode: stay on the current branch.
		return nil
	}

	startPoint := e.toBranch.Ref()
	if entry.Base != nil {
		startPoint = entry.Base.Branch
	}

	if e.repo.BranchExists(entry.Branch) {
		if e.nonInteractive {
			entry.State = EntrySkipped
			entry.SkipReason = fmt.Sprintf("branch %s already exists", entry.Branch)
			return nil
		}
		recreate, err := e.prompter.Confirm(
			fmt.Sprintf("Branch %s already exists, recreate it?", entry.Branch),
			"You will lose the existing branch.",
		)
		if err != nil {
			return err
		}
		if !recreate {
			entry.State = EntrySkipped
			entry.SkipReason = "existing branch kept"
			return nil
		}
		if err := e.repo.DeleteBranch(entry.Branch); err != nil {
			return err
		}
	}

	logger.Debug().
		Str("branch", entry.Branch).
		Str("startPoint", startPoint).
		Msg("Creating working branch")
	return e.repo.CreateBranch(entry.Branch, startPoint)
}

// replayCommit cherry-picks one commit, handling conflicts according to
// the interaction mode.
func (e *Executor) replayCommit(entry *PlanEntry, commit git.Commit) error {
	err := e.repo.CherryPick(commit.Hash)
	if err == nil {
		return nil
	}

	var conflict *git.ConflictError
	if !errors.As(err, &conflict) {
		return err
	}

	if e.nonInteractive {
		// Abort the pick so independent entries can still be replayed,
		// and report the conflicted paths.
		if abortErr := e.repo.CherryPickAbort(); abortErr != nil {
			return abortErr
		}
		entry.State = EntryFailed
		entry.ConflictPaths = conflict.Paths
		fmt.Println(e.style.Error(fmt.Sprintf(
			"Conflict while porting %s on commit %s: %s",
			e.describe(entry.PR), commit.ShortHash(), strings.Join(conflict.Paths, ", "),
		)))
		return nil
	}

	return e.resolveInteractively(entry, commit, conflict)
}

// resolveInteractively pauses until the user finished the cherry-pick in
// another terminal. Giving up aborts the pick and marks the entry failed.
// An interrupt here leaves the repository in the conflicted state: the
// pick is resumable with git directly, so no rollback is attempted.
func (e *Executor) resolveInteractively(entry *PlanEntry, commit git.Commit, conflict *git.ConflictError) error {
	fmt.Println(e.style.Warning(fmt.Sprintf(
		"Commit %s conflicts on: %s", commit.ShortHash(), strings.Join(conflict.Paths, ", "),
	)))
	fmt.Println(e.style.Dim("Resolve the conflicts in another terminal, then run: git cherry-pick --continue"))

	for {
		resolved, err := e.prompter.Confirm(
			"Conflicts resolved and cherry-pick continued?",
			"Answering no aborts the pick and marks this pull request as failed.",
		)
		if err != nil {
			return err
		}
		if !resolved {
			if abortErr := e.repo.CherryPickAbort(); abortErr != nil {
				return abortErr
			}
			entry.State = EntryFailed
			entry.ConflictPaths = conflict.Paths
			return nil
		}
		pending, err := e.repo.HasConflicts()
		if err != nil {
			return err
		}
		if !pending {
			return nil
		}
		fmt.Println(e.style.Warning("Unmerged paths remain, the cherry-pick is not finished yet."))
	}
}

func (e *Executor) describe(pr *PullRequestInfo) string {
	if pr.Number == 0 {
		return pr.Title
	}
	return fmt.Sprintf("PR #%d", pr.Number)
}
