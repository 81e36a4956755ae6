package port

import (
	"context"
	"fmt"
	"strings"

	"github.com/camptocamp/oca-port/internal/cache"
	"github.com/camptocamp/oca-port/internal/config"
	"github.com/camptocamp/oca-port/internal/term"
)

// Blacklist is the persisted store of "never port this again" decisions.
type Blacklist interface {
	BlacklistStore
	Dirty() bool
}

// PortAddonPullRequest drives the whole port workflow for one addon:
// history diff, PR grouping, planning, interactive confirmation, replay
// and publication.
type PortAddonPullRequest struct {
	repo      Repo
	settings  *config.Settings
	lookup    PRLookup
	creator   DraftPRCreator
	store     cache.Store
	blacklist Blacklist
	style     *term.Style
	prompter  term.Prompter

	// createBranch and pushBranch are disabled when running as the
	// follow-up pass of a migration, which already owns the branch
	createBranch bool
	pushBranch   bool
}

// NewPortAddonPullRequest wires the port engine together.
func NewPortAddonPullRequest(
	repo Repo,
	settings *config.Settings,
	lookup PRLookup,
	creator DraftPRCreator,
	store cache.Store,
	blacklist Blacklist,
	style *term.Style,
	prompter term.Prompter,
	createBranch, pushBranch bool,
) *PortAddonPullRequest {
	return &PortAddonPullRequest{
		repo:         repo,
		settings:     settings,
		lookup:       lookup,
		creator:      creator,
		store:        store,
		blacklist:    blacklist,
		style:        style,
		prompter:     prompter,
		createBranch: createBranch,
		pushBranch:   pushBranch,
	}
}

// Run ports the addon's missing pull requests. It reports whether any
// pull request or commit could be ported, which non-interactive callers
// map onto a distinct exit status.
func (p *PortAddonPullRequest) Run(ctx context.Context) (bool, error) {
	s := p.settings

	commits, err := NewDiffer(p.repo).CommitsToPort(s.FromBranch, s.ToBranch, s.Addon)
	if err != nil {
		return false, err
	}
	if len(commits) == 0 {
		fmt.Println(p.style.Success(fmt.Sprintf(
			"%s is up to date on %s, nothing to port.", s.Addon, s.ToBranch.Name,
		)))
		return false, nil
	}

	grouper := NewGrouper(p.repo, p.lookup, p.store, s.UpstreamOrg, s.RepoName)
	grouping, err := grouper.Group(ctx, commits, s.FromBranch, s.ToBranch, s.Addon)
	if err != nil {
		return false, err
	}

	p.printReport(grouping)

	planner := NewPlanner(p.blacklist, p.prompter, p.style, s.NonInteractive,
		s.UpstreamOrg, s.RepoName, s.ToBranch.Name, s.Addon)
	plan := planner.BuildPlan(grouping)
	if len(plan.Entries) == 0 {
		fmt.Println(p.style.Success(fmt.Sprintf(
			"All pull requests of %s are already ported to %s.", s.Addon, s.ToBranch.Name,
		)))
		p.printWarnings(grouping)
		return false, nil
	}

	if s.NonInteractive {
		// Scripted/CI check: the plan commits to every eligible entry and
		// the outcome is the exit status, no replay is attempted.
		p.printWarnings(grouping)
		return true, nil
	}

	if _, err := planner.Confirm(plan); err != nil {
		return true, err
	}
	if p.blacklist.Dirty() {
		msg := fmt.Sprintf("oca-port: blacklist PRs of %s for %s", s.Addon, s.ToBranch.Name)
		if err := p.blacklist.Commit(msg); err != nil {
			return true, err
		}
	}

	if len(plan.Confirmed()) == 0 {
		fmt.Println(p.style.Dim("Nothing confirmed, no branch created."))
		p.printWarnings(grouping)
		return true, nil
	}

	if p.createBranch && s.Fork == "" {
		return true, fmt.Errorf("please set the --fork option to create ported branches")
	}

	executor := NewExecutor(p.repo, p.prompter, p.style, s.NonInteractive,
		s.UpstreamOrg, s.RepoName, s.ToBranch, p.createBranch)
	if err := executor.Execute(plan); err != nil {
		return true, err
	}

	if p.pushBranch && s.Fork != "" {
		publisher := NewPublisher(p.repo, p.creator, p.style,
			s.UpstreamOrg, s.RepoName, s.Fork, s.UserOrg, s.ToBranch.Name, s.Addon)
		if err := publisher.Publish(ctx, plan); err != nil {
			return true, err
		}
	}

	p.printSummary(plan)
	p.printWarnings(grouping)
	return true, nil
}

// printReport lists every pull request and its port status; verbose mode
// also lists the commits.
func (p *PortAddonPullRequest) printReport(grouping *Grouping) {
	s := p.settings
	fmt.Println(p.style.Bold(fmt.Sprintf(
		"Pull requests of %s to port from %s to %s:",
		s.Addon, s.FromBranch.Name, s.ToBranch.Name,
	)))
	for _, pr := range grouping.PullRequests {
		var status string
		switch pr.Status {
		case FullyPorted:
			status = p.style.Success(pr.Status.String())
		case PartiallyPorted:
			status = p.style.Warning(pr.Status.String())
		default:
			status = p.style.Error(pr.Status.String())
		}
		if pr.Number == 0 {
			fmt.Printf("  %s [%s]\n", pr.Title, status)
		} else {
			fmt.Printf("  #%d %s [%s] %s\n", pr.Number, pr.Title, status, p.style.Dim(pr.URL))
		}
		if s.Verbose {
			for _, commit := range pr.Commits {
				fmt.Printf("\t%s %s\n", p.style.Dim(commit.ShortHash()), commit.Subject)
			}
		}
	}
}

// printSummary reports the outcome of every plan entry, naming the
// conflicted paths of failed entries.
func (p *PortAddonPullRequest) printSummary(plan *Plan) {
	s := p.settings
	for _, entry := range plan.Entries {
		ref := entry.PR.Ref(s.UpstreamOrg, s.RepoName)
		switch entry.State {
		case EntryPorted:
			fmt.Println(p.style.Success(fmt.Sprintf("%s ported on %s", ref, entry.Branch)))
		case EntryFailed:
			fmt.Println(p.style.Error(fmt.Sprintf(
				"%s not ported, conflicts on: %s", ref, strings.Join(entry.ConflictPaths, ", "),
			)))
		case EntrySkipped:
			fmt.Println(p.style.Dim(fmt.Sprintf("%s skipped (%s)", ref, entry.SkipReason)))
		}
	}
}

func (p *PortAddonPullRequest) printWarnings(grouping *Grouping) {
	for _, warning := range grouping.Warnings {
		fmt.Println(p.style.Warning(warning))
	}
}
