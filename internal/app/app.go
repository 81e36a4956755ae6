// Package app centralizes oca-port operations: it wires the settings,
// repository, cache, blacklist and GitHub client together and routes a
// run to the port or the migration workflow.
package app

import (
	"context"
	"fmt"

	"github.com/camptocamp/oca-port/internal/cache"
	"github.com/camptocamp/oca-port/internal/config"
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/github"
	"github.com/camptocamp/oca-port/internal/logger"
	"github.com/camptocamp/oca-port/internal/migrate"
	"github.com/camptocamp/oca-port/internal/port"
	"github.com/camptocamp/oca-port/internal/storage"
	"github.com/camptocamp/oca-port/internal/term"
)

// Outcome describes what a run found, mapped onto exit codes in
// non-interactive mode. User-defined exit codes live in the 100–113
// band; 105–110 is reserved for port outcomes.
type Outcome int

const (
	// OutcomeNothingToDo means the addon history is identical on both branches
	OutcomeNothingToDo Outcome = iota
	// OutcomeMigrationAvailable means the addon could be migrated
	OutcomeMigrationAvailable
	// OutcomePortsAvailable means pull requests or commits could be ported
	OutcomePortsAvailable
)

// ExitCode returns the shell exit code communicating this outcome in
// non-interactive mode.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeMigrationAvailable:
		return 100
	case OutcomePortsAvailable:
		return 110
	default:
		return 0
	}
}

// App is the oca-port application.
type App struct {
	repo      *git.Repository
	settings  *config.Settings
	store     cache.Store
	blacklist *storage.Blacklist
	client    *github.Client
	style     *term.Style
	prompter  term.Prompter
}

// New builds the application from validated settings.
func New(repo *git.Repository, settings *config.Settings) (*App, error) {
	blacklist, err := storage.NewBlacklist(repo)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.Disabled{}
	if !settings.NoCache {
		diskCache, err := cache.New(settings.RepoName)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up the cache, running without it")
		} else {
			store = diskCache
		}
	}

	client, err := github.NewClient(settings.GitHubToken)
	if err != nil {
		// PR lookups will degrade to warnings; porting still works from
		// cached associations.
		logger.Warn().Err(err).Msg("GitHub client unavailable, PR lookups will be degraded")
		client = nil
	}

	return &App{
		repo:      repo,
		settings:  settings,
		store:     store,
		blacklist: blacklist,
		client:    client,
		style:     term.NewStyle(true),
		prompter:  term.HuhPrompter{},
	}, nil
}

// WithPrompter substitutes the prompter, used in tests.
func (a *App) WithPrompter(p term.Prompter) *App {
	a.prompter = p
	return a
}

// Run migrates the addon or ports its pull requests, returning the
// outcome of the run.
func (a *App) Run(ctx context.Context) (Outcome, error) {
	s := a.settings

	if err := a.fetchBranches(); err != nil {
		return OutcomeNothingToDo, err
	}

	// The addon must exist on the source branch.
	exists, err := a.repo.PathExists(s.FromBranch, s.Addon)
	if err != nil {
		return OutcomeNothingToDo, err
	}
	if !exists {
		return OutcomeNothingToDo, fmt.Errorf("%s does not exist on %s", s.Addon, s.FromBranch.Ref())
	}

	outcome, err := a.dispatch(ctx)
	if err != nil {
		return outcome, err
	}

	if s.ClearCache {
		if err := a.store.Clear(); err != nil {
			logger.Warn().Err(err).Msg("Failed to clear the cache")
		}
	}
	return outcome, nil
}

// dispatch routes to the port workflow when the addon already exists on
// the target branch, to the migration workflow otherwise.
func (a *App) dispatch(ctx context.Context) (Outcome, error) {
	s := a.settings

	onTarget, err := a.repo.PathExists(s.ToBranch, s.Addon)
	if err != nil {
		return OutcomeNothingToDo, err
	}

	if onTarget {
		available, err := a.porter(true, true).Run(ctx)
		if err != nil {
			return OutcomeNothingToDo, err
		}
		if available {
			return OutcomePortsAvailable, nil
		}
		return OutcomeNothingToDo, nil
	}

	// Follow-up porting after a migration stays on the migration branch
	// and never pushes by itself.
	mig := migrate.NewMigrateAddon(a.repo, s, a.blacklist, a.style, a.prompter, a.porter(false, false))
	available, err := mig.Run(ctx)
	if err != nil {
		return OutcomeNothingToDo, err
	}
	if available {
		return OutcomeMigrationAvailable, nil
	}
	return OutcomeNothingToDo, nil
}

func (a *App) porter(createBranch, pushBranch bool) *port.PortAddonPullRequest {
	var lookup port.PRLookup
	var creator port.DraftPRCreator
	if a.client != nil {
		lookup = a.client
		if a.settings.GitHubToken != "" {
			creator = a.client
		}
	} else {
		lookup = noLookup{}
	}
	return port.NewPortAddonPullRequest(
		a.repo, a.settings, lookup, creator, a.store, a.blacklist,
		a.style, a.prompter, createBranch, pushBranch,
	)
}

// fetchBranches refreshes the source and target branches from their
// remotes before diffing.
func (a *App) fetchBranches() error {
	for _, ref := range []git.BranchRef{a.settings.FromBranch, a.settings.ToBranch} {
		if ref.Remote == "" {
			continue
		}
		if a.settings.Verbose {
			url, err := a.repo.RemoteURL(ref.Remote)
			if err == nil {
				fmt.Println(a.style.Info(fmt.Sprintf("Fetch %s from %s", a.style.Bold(ref.Ref()), url)))
			}
		}
		if err := a.repo.Fetch(ref); err != nil {
			return err
		}
	}
	return nil
}

// noLookup is used when no GitHub client could be built: every lookup
// fails and the grouper degrades the commit to a pseudo-PR.
type noLookup struct{}

func (noLookup) PullRequestsForCommit(context.Context, string, string, string) ([]*github.PullRequest, error) {
	return nil, fmt.Errorf("no GitHub credentials configured (set GITHUB_TOKEN)")
}
