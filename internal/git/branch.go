package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// BranchRef names a branch plus an optional remote. Resolving it against a
// repository yields a fully-qualified revision or fails with MissingRefError.
type BranchRef struct {
	Name   string
	Remote string
}

// NewBranchRef builds a BranchRef for the given branch name. When the
// branch does not exist locally, it is assumed to live on defaultRemote.
func NewBranchRef(repo *Repository, name, defaultRemote string) (BranchRef, error) {
	if repo.BranchExists(name) {
		return BranchRef{Name: name}, nil
	}
	if defaultRemote == "" {
		return BranchRef{}, &MissingRefError{Name: name}
	}
	if !repo.HasRemote(defaultRemote) {
		return BranchRef{}, &MissingRemoteError{Remote: defaultRemote}
	}
	return BranchRef{Name: name, Remote: defaultRemote}, nil
}

// Ref returns the revision string for this branch, e.g. "origin/14.0" or
// "14.0" for a purely local branch.
func (b BranchRef) Ref() string {
	if b.Remote != "" {
		return b.Remote + "/" + b.Name
	}
	return b.Name
}

func (b BranchRef) String() string {
	return b.Ref()
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Repository) BranchExists(name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// ResolveRef resolves a branch reference to a commit hash, or fails with
// MissingRefError naming the exact remote+name that could not be resolved.
func (r *Repository) ResolveRef(ref BranchRef) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref.Ref()))
	if err != nil {
		return "", &MissingRefError{Name: ref.Name, Remote: ref.Remote}
	}
	return hash.String(), nil
}

// HeadCommit returns the hash of the commit HEAD points to.
func (r *Repository) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// CurrentBranch returns the name of the currently checked out branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch (detached at %s)", head.Hash().String()[:7])
	}
	return head.Name().Short(), nil
}

// PathExists reports whether the given top-level path (an addon directory)
// exists in the tree of the commit the reference points to.
func (r *Repository) PathExists(ref BranchRef, path string) (bool, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref.Ref()))
	if err != nil {
		return false, &MissingRefError{Name: ref.Name, Remote: ref.Remote}
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return false, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to load tree of %s: %w", hash, err)
	}
	if _, err := tree.FindEntry(path); err != nil {
		return false, nil
	}
	return true, nil
}

// CheckoutBranch checks out an existing local branch.
func (r *Repository) CheckoutBranch(name string) error {
	if _, err := r.run("checkout", name); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", name, err)
	}
	return nil
}

// CreateBranch creates a new local branch from startPoint and checks it
// out. No upstream tracking is configured.
func (r *Repository) CreateBranch(name, startPoint string) error {
	if _, err := r.run("checkout", "--no-track", "-b", name, startPoint); err != nil {
		return fmt.Errorf("failed to create branch %s from %s: %w", name, startPoint, err)
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (r *Repository) DeleteBranch(name string) error {
	if _, err := r.run("branch", "-D", name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}
