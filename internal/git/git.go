// Package git provides Git repository operations for oca-port.
// It wraps go-git for read operations and falls back to the git CLI for
// replay operations (cherry-pick, format-patch, am, push) that go-git
// does not cover.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/camptocamp/oca-port/internal/logger"
)

var (
	// ErrNotARepository is returned when the path is not a git repository
	ErrNotARepository = errors.New("not a git repository")

	// ErrDirtyWorkingTree is returned when the repository has uncommitted
	// or untracked changes
	ErrDirtyWorkingTree = errors.New("changes not committed detected in this repository")
)

// Repository represents a Git repository and provides methods for Git operations.
type Repository struct {
	repo *gogit.Repository
	path string
}

// OpenRepository opens a Git repository at the given path.
// If path is empty, it attempts to find the repository in the current directory.
func OpenRepository(path string) (*Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotARepository
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &Repository{
		repo: repo,
		path: path,
	}, nil
}

// Path returns the path to the repository.
func (r *Repository) Path() string {
	return r.path
}

// Repo returns the underlying go-git Repository object.
// This is useful for advanced operations not covered by this package.
func (r *Repository) Repo() *gogit.Repository {
	return r.repo
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func (r *Repository) IsDirty() (bool, error) {
	// `git status --porcelain` matches the CLI's notion of dirtiness
	// exactly and is much faster than go-git's Worktree().Status() on
	// large repositories.
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// HasRemote reports whether the named remote is configured.
func (r *Repository) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %q not found: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %q has no URL", name)
	}
	return urls[0], nil
}

// Fetch fetches the given branch from its remote. Branches without a
// remote are left untouched.
func (r *Repository) Fetch(ref BranchRef) error {
	if ref.Remote == "" {
		return nil
	}
	logger.Debug().
		Str("remote", ref.Remote).
		Str("branch", ref.Name).
		Msg("Fetching branch")
	if _, err := r.run("fetch", ref.Remote, ref.Name); err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", ref.Name, ref.Remote, err)
	}
	return nil
}

// run executes a git command in the repository directory and returns its
// stdout. Stderr is folded into the returned error on failure.
func (r *Repository) run(args ...string) (string, error) {
	return r.runInput(nil, args...)
}

// runInput is like run but feeds the given bytes to the command's stdin.
func (r *Repository) runInput(stdin []byte, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", r.path}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	logger.Trace().Strs("args", args).Msg("Running git command")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}
