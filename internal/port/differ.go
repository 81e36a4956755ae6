package port

import (
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/logger"
)

// Differ computes the commits touching an addon that are reachable from
// the source branch but not from the target branch.
type Differ struct {
	repo Repo
}

// NewDiffer creates a new history differ
func NewDiffer(repo Repo) *Differ {
	return &Differ{repo: repo}
}

// CommitsToPort returns the commits modifying a file under addon that
// exist on from but not on to, oldest first so replay order is
// preserved. Ancestry exclusion is two-dot: a commit cherry-picked onto
// the target branch keeps showing up here because its hash changed, and
// it is the grouper's content-based matching that filters it out.
// An unchanged addon yields an empty slice, not an error.
func (d *Differ) CommitsToPort(from, to git.BranchRef, addon string) ([]git.Commit, error) {
	commits, err := d.repo.CommitsBetween(from, to, addon)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("from", from.Ref()).
		Str("to", to.Ref()).
		Str("addon", addon).
		Int("commits", len(commits)).
		Msg("Computed commits to port")
	return commits, nil
}
