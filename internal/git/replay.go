package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/camptocamp/oca-port/internal/logger"
)

// CherryPick replays a single commit onto the current branch. When the
// pick stops on conflicts, a ConflictError listing the conflicted paths
// is returned and the repository is left in the conflicted state so the
// user can resolve and continue with git directly.
func (r *Repository) CherryPick(hash string) error {
	if _, err := r.run("cherry-pick", hash); err != nil {
		paths, pathErr := r.conflictedPaths()
		if pathErr == nil && len(paths) > 0 {
			return &ConflictError{Hash: hash, Paths: paths, Err: err}
		}
		return fmt.Errorf("failed to cherry-pick %s: %w", hash, err)
	}
	return nil
}

// CherryPickAbort abandons an in-progress cherry-pick and restores the
// pre-pick state.
func (r *Repository) CherryPickAbort() error {
	if _, err := r.run("cherry-pick", "--abort"); err != nil {
		return fmt.Errorf("failed to abort cherry-pick: %w", err)
	}
	return nil
}

// ResetHard moves the current branch back to the given commit, discarding
// every commit and working-tree change made after it.
func (r *Repository) ResetHard(commit string) error {
	if _, err := r.run("reset", "--hard", commit); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", commit, err)
	}
	return nil
}

// HasConflicts reports whether the working tree currently has unmerged paths.
func (r *Repository) HasConflicts() (bool, error) {
	paths, err := r.conflictedPaths()
	if err != nil {
		return false, err
	}
	return len(paths) > 0, nil
}

func (r *Repository) conflictedPaths() ([]string, error) {
	out, err := r.run("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// AmendTrailer appends a trailer line to the message of the commit at HEAD.
func (r *Repository) AmendTrailer(key, value string) error {
	if _, err := r.run("commit", "--amend", "--no-edit", "--trailer", key+": "+value); err != nil {
		return fmt.Errorf("failed to amend trailer: %w", err)
	}
	return nil
}

// Commit stages the given paths and records a commit with the message.
func (r *Repository) Commit(message string, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		return fmt.Errorf("failed to stage %s: %w", strings.Join(paths, ", "), err)
	}
	if _, err := r.run("commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// FormatPatch writes the patch series for path between to..from into dir,
// keeping subjects untouched so the migrated history reads as upstream.
func (r *Repository) FormatPatch(dir string, from, to BranchRef, path string) ([]string, error) {
	if _, err := r.run(
		"format-patch", "--keep-subject",
		"-o", dir,
		fmt.Sprintf("%s..%s", to.Ref(), from.Ref()),
		"--", path,
	); err != nil {
		return nil, fmt.Errorf("failed to generate patches: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read patches directory: %w", err)
	}
	var patches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		patches = append(patches, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(patches)
	return patches, nil
}

// ApplyPatches applies a patch series with git-am, falling back to a
// three-way merge. A failed application leaves the repository as-is: no
// automatic rollback is attempted.
func (r *Repository) ApplyPatches(patches []string) error {
	args := append([]string{"am", "-3", "--keep"}, patches...)
	if _, err := r.run(args...); err != nil {
		return fmt.Errorf("failed to apply patches: %w", err)
	}
	return nil
}

// RunPreCommit runs the repository's pre-commit hooks on all files and
// commits whatever they rewrote, in one "[IMP] <addon>: black, isort,
// prettier" commit. Hooks exit non-zero when they reformat files, so
// their status is ignored; a missing pre-commit executable skips the
// step entirely.
func (r *Repository) RunPreCommit(addon string) error {
	if _, err := exec.LookPath("pre-commit"); err != nil {
		logger.Debug().Msg("pre-commit not installed, skipping")
		return nil
	}

	cmd := exec.Command("pre-commit", "run", "-a")
	cmd.Dir = r.path
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	_ = cmd.Run()

	dirty, err := r.IsDirty()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	if _, err := r.run("add", "-A"); err != nil {
		return fmt.Errorf("failed to stage pre-commit fixes: %w", err)
	}
	message := fmt.Sprintf("[IMP] %s: black, isort, prettier", addon)
	if _, err := r.run("commit", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("failed to commit pre-commit fixes: %w", err)
	}
	return nil
}

// Push pushes a local branch to the given remote with force-with-lease
// semantics, so re-running after a previous push simply overwrites the
// remote branch.
func (r *Repository) Push(remote, branch string) error {
	if _, err := r.run("push", "--force-with-lease", remote, branch); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", branch, remote, err)
	}
	return nil
}
