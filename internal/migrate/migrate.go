// Package migrate drives the migration of an addon that does not yet
// exist on the target branch: the addon's full patch series is generated
// from the source branch and applied onto a fresh migration branch,
// following the OCA migration guide.
package migrate

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/camptocamp/oca-port/internal/config"
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/logger"
	"github.com/camptocamp/oca-port/internal/term"
)

// Blacklist is the persisted store of "never migrate this again" decisions.
type Blacklist interface {
	IsAddonBlacklisted(addon string) (string, bool)
	BlacklistAddon(addon, reason string)
	Commit(message string) error
}

const (
	mergeCommitsURL = "https://github.com/OCA/maintainer-tools/wiki/Merge-commits-in-pull-requests"
	migTasksURL     = "https://github.com/OCA/maintainer-tools/wiki/Migration-to-version-%s#tasks-to-do-in-the-migration"
)

// Repo is the version-control surface the migration needs.
type Repo interface {
	BranchExists(name string) bool
	CreateBranch(name, startPoint string) error
	CheckoutBranch(name string) error
	DeleteBranch(name string) error
	FormatPatch(dir string, from, to git.BranchRef, path string) ([]string, error)
	ApplyPatches(patches []string) error
	RunPreCommit(addon string) error
}

// FollowUp detects and offers porting of commits not captured by the
// patch series, e.g. commits in other addons required to keep the
// migrated addon working. Implemented by the port engine.
type FollowUp interface {
	Run(ctx context.Context) (bool, error)
}

// MigrateAddon orchestrates the migration of one addon to the target
// branch.
type MigrateAddon struct {
	repo      Repo
	settings  *config.Settings
	blacklist Blacklist
	style     *term.Style
	prompter  term.Prompter
	followUp  FollowUp
}

// NewMigrateAddon creates a new migration orchestrator
func NewMigrateAddon(repo Repo, settings *config.Settings, blacklist Blacklist, style *term.Style, prompter term.Prompter, followUp FollowUp) *MigrateAddon {
	return &MigrateAddon{
		repo:      repo,
		settings:  settings,
		blacklist: blacklist,
		style:     style,
		prompter:  prompter,
		followUp:  followUp,
	}
}

// BranchName returns the migration branch name, e.g. "15.0-mig-shopfloor".
func (m *MigrateAddon) BranchName() string {
	return fmt.Sprintf("%s-mig-%s", m.settings.ToBranch.Name, m.settings.Addon)
}

// Run migrates the addon. It reports whether the addon is eligible for a
// migration, which non-interactive callers map onto a distinct exit
// status.
func (m *MigrateAddon) Run(ctx context.Context) (bool, error) {
	s := m.settings

	if reason, ok := m.blacklist.IsAddonBlacklisted(s.Addon); ok {
		fmt.Println(m.style.Dim(fmt.Sprintf(
			"Migration of %s to %s blacklisted (%s)", s.Addon, s.ToBranch.Name, reason,
		)))
		return false, nil
	}

	if s.NonInteractive {
		// Scripted/CI check: the addon could be migrated, the outcome is
		// the exit status.
		return true, nil
	}

	confirmed, err := m.prompter.Confirm(
		fmt.Sprintf("Migrate %s from %s to %s?", s.Addon, s.FromBranch.Name, s.ToBranch.Name),
		"",
	)
	if err != nil {
		return false, err
	}
	declined := false
	if !confirmed {
		never, err := m.prompter.Confirm(
			fmt.Sprintf("Blacklist %s permanently?", s.Addon),
			"It will not be proposed for migration again on this branch.",
		)
		if err != nil {
			return false, err
		}
		if !never {
			return false, nil
		}
		m.blacklist.BlacklistAddon(s.Addon, "declined by user")
		declined = true
	}

	if s.Fork == "" {
		return false, fmt.Errorf("please set the --fork option to push the migration branch")
	}

	if err := m.checkoutBaseBranch(); err != nil {
		return false, err
	}
	created, err := m.createMigBranch()
	if err != nil {
		return false, err
	}

	if declined {
		// The decision is committed on the migration branch itself, so it
		// can be pushed and proposed upstream like a regular migration.
		msg := fmt.Sprintf("oca-port: blacklist %s for %s", s.Addon, s.ToBranch.Name)
		if err := m.blacklist.Commit(msg); err != nil {
			return false, err
		}
		m.printBlacklistTips()
		return false, nil
	}

	if created {
		if err := m.applyHistory(); err != nil {
			return false, err
		}
		if err := m.repo.RunPreCommit(s.Addon); err != nil {
			return false, err
		}
	}

	// The patch series only covers the addon itself: offer porting of
	// follow-up commits living in neighboring addons.
	if m.followUp != nil {
		if _, err := m.followUp.Run(ctx); err != nil {
			return false, err
		}
	}

	m.printTips()
	return true, nil
}

// checkoutBaseBranch ensures work does not start from an unrelated
// working branch.
func (m *MigrateAddon) checkoutBaseBranch() error {
	s := m.settings
	if m.repo.BranchExists(s.ToBranch.Name) {
		return m.repo.CheckoutBranch(s.ToBranch.Name)
	}
	return m.repo.CreateBranch(s.ToBranch.Name, s.ToBranch.Ref())
}

func (m *MigrateAddon) createMigBranch() (bool, error) {
	branch := m.BranchName()
	if m.repo.BranchExists(branch) {
		recreate, err := m.prompter.Confirm(
			fmt.Sprintf("Branch %s already exists, recreate it?", branch),
			"You will lose the existing branch.",
		)
		if err != nil {
			return false, err
		}
		if !recreate {
			return false, m.repo.CheckoutBranch(branch)
		}
		if err := m.repo.DeleteBranch(branch); err != nil {
			return false, err
		}
	}
	fmt.Println(m.style.Info(fmt.Sprintf(
		"Create branch %s from %s...", m.style.Bold(branch), m.settings.ToBranch.Ref(),
	)))
	return true, m.repo.CreateBranch(branch, m.settings.ToBranch.Ref())
}

// applyHistory replays the addon's full history with format-patch and
// git-am. An outright failure is fatal: the user is left with the
// partially-applied branch and explicit instructions, no automatic
// rollback is attempted.
func (m *MigrateAddon) applyHistory() error {
	s := m.settings

	patchesDir, err := os.MkdirTemp("", "oca-port-patches-")
	if err != nil {
		return fmt.Errorf("failed to create patches directory: %w", err)
	}
	defer os.RemoveAll(patchesDir)

	fmt.Println(m.style.Info("Generate patches..."))
	patches, err := m.repo.FormatPatch(patchesDir, s.FromBranch, s.ToBranch, s.Addon)
	if err != nil {
		return err
	}

	fmt.Println(m.style.Info(fmt.Sprintf("Apply %d patches...", len(patches))))
	if err := m.repo.ApplyPatches(patches); err != nil {
		return fmt.Errorf(
			"failed to apply the patch series of %s: %w\n"+
				"The migration branch is left as-is: fix the application manually "+
				"(git am --continue / --abort) and finish the migration by hand",
			s.Addon, err,
		)
	}

	logger.Debug().Str("addon", s.Addon).Int("patches", len(patches)).Msg("History migrated")
	fmt.Println(m.style.Success(fmt.Sprintf(
		"Commits history of %s has been migrated.", s.Addon,
	)))
	return nil
}

// newPRURL returns the prefilled compare link opening the migration PR.
func (m *MigrateAddon) newPRURL() string {
	s := m.settings
	title := fmt.Sprintf("[%s][MIG] %s", s.ToBranch.Name, s.Addon)
	return fmt.Sprintf(
		"https://github.com/%s/%s/compare/%s...%s:%s?expand=1&title=%s",
		s.UpstreamOrg, s.RepoName, s.ToBranch.Name, s.UserOrg, m.BranchName(), url.QueryEscape(title),
	)
}

// printBlacklistTips walks the user through publishing a declined-and-
// blacklisted addon: the branch only carries the blacklist record.
func (m *MigrateAddon) printBlacklistTips() {
	s := m.settings
	fmt.Println(m.style.Bold("\nThe next steps are:"))
	fmt.Println("\t1) On a shell command, type this for uploading the content to GitHub:")
	fmt.Println(m.style.Dim(
		fmt.Sprintf("\t\t$ git push %s %s --set-upstream", s.Fork, m.BranchName()),
	))
	fmt.Printf("\t2) Create the PR against %s/%s:\n", s.UpstreamOrg, s.RepoName)
	fmt.Println("\t\t=> " + m.style.Highlight(m.newPRURL()))
}

// printTips walks the user through the remaining manual migration steps.
func (m *MigrateAddon) printTips() {
	s := m.settings
	branch := m.BranchName()
	tasksURL := fmt.Sprintf(migTasksURL, s.ToBranch.Name)

	fmt.Println(m.style.Bold("\nThe next steps are:"))
	fmt.Println("\t1) Reduce the number of commits " + m.style.Dim("('OCA Transbot...')") + ":")
	fmt.Println("\t\t=> " + m.style.Highlight(mergeCommitsURL))
	fmt.Printf("\t2) Adapt the module to the %s version:\n", s.ToBranch.Name)
	fmt.Println("\t\t=> " + m.style.Highlight(tasksURL))
	fmt.Println("\t3) On a shell command, type this for uploading the content to GitHub:")
	fmt.Println(m.style.Dim(
		"\t\t$ git add --all\n" +
			fmt.Sprintf("\t\t$ git commit -m \"[MIG] %s: Migration to %s\"\n", s.Addon, s.ToBranch.Name) +
			fmt.Sprintf("\t\t$ git push %s %s --set-upstream", s.Fork, branch),
	))
	fmt.Printf("\t4) Create the PR against %s/%s:\n", s.UpstreamOrg, s.RepoName)
	fmt.Println("\t\t=> " + m.style.Highlight(m.newPRURL()))
}
