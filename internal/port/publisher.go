package port

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/camptocamp/oca-port/internal/github"
	"github.com/camptocamp/oca-port/internal/logger"
	"github.com/camptocamp/oca-port/internal/term"
)

// Publisher pushes ported branches to the user's fork remote and opens a
// draft pull request against the upstream project, or emits a ready-to-
// use creation link when no API credential is configured. Re-running
// after a push overwrites the remote branch (force-with-lease) and
// regenerates the same link, so publishing is idempotent.
type Publisher struct {
	repo        Repo
	api         DraftPRCreator
	style       *term.Style
	upstreamOrg string
	repoName    string
	fork        string
	userOrg     string
	toBranch    string
	addon       string
}

// NewPublisher creates a new draft PR publisher. A nil api means no
// credential is configured: branches are pushed and the creation URL is
// printed instead.
func NewPublisher(repo Repo, api DraftPRCreator, style *term.Style, upstreamOrg, repoName, fork, userOrg, toBranch, addon string) *Publisher {
	return &Publisher{
		repo:        repo,
		api:         api,
		style:       style,
		upstreamOrg: upstreamOrg,
		repoName:    repoName,
		fork:        fork,
		userOrg:     userOrg,
		toBranch:    toBranch,
		addon:       addon,
	}
}

// Publish pushes every terminal branch of the plan and creates (or
// links) one draft pull request per branch, enumerating the ported pull
// requests and their original authors for attribution.
func (p *Publisher) Publish(ctx context.Context, plan *Plan) error {
	for _, group := range p.branchGroups(plan) {
		if err := p.publishBranch(ctx, group.branch, group.entries); err != nil {
			return err
		}
	}
	return nil
}

type branchGroup struct {
	branch  string
	entries []*PlanEntry
}

// branchGroups collects ported entries per working branch: one group for
// a cumulative plan, one per entry otherwise.
func (p *Publisher) branchGroups(plan *Plan) []branchGroup {
	var groups []branchGroup
	index := map[string]int{}
	for _, entry := range plan.Entries {
		if entry.State != EntryPorted {
			continue
		}
		i, ok := index[entry.Branch]
		if !ok {
			i = len(groups)
			index[entry.Branch] = i
			groups = append(groups, branchGroup{branch: entry.Branch})
		}
		groups[i].entries = append(groups[i].entries, entry)
	}
	return groups
}

func (p *Publisher) publishBranch(ctx context.Context, branch string, entries []*PlanEntry) error {
	fmt.Println(p.style.Info(fmt.Sprintf("Push %s to %s", p.style.Bold(branch), p.fork)))
	if err := p.repo.Push(p.fork, branch); err != nil {
		return err
	}

	title := p.title(entries)
	body := p.body(entries)

	if p.api != nil {
		pr, err := p.api.CreateDraftPullRequest(ctx, p.upstreamOrg, p.repoName, github.NewPullRequest{
			Title: title,
			Head:  fmt.Sprintf("%s:%s", p.userOrg, branch),
			Base:  p.toBranch,
			Body:  body,
		})
		if err == nil {
			fmt.Println(p.style.Success(fmt.Sprintf("Draft PR created: %s", pr.HTMLURL)))
			return nil
		}
		// A failed creation is not fatal: fall back to the manual link.
		logger.Warn().Err(err).Msg("Failed to create draft PR, falling back to creation link")
	}

	fmt.Println(p.style.Info("Create the draft PR against " +
		p.style.Bold(fmt.Sprintf("%s/%s", p.upstreamOrg, p.repoName)) + ":"))
	fmt.Println("\t" + p.style.Highlight(p.compareURL(branch, title)))
	return nil
}

// title builds the PR title, e.g. "[15.0][FW] shopfloor: port PR #42".
func (p *Publisher) title(entries []*PlanEntry) string {
	var refs []string
	for _, entry := range entries {
		if entry.PR.Number != 0 {
			refs = append(refs, fmt.Sprintf("#%d", entry.PR.Number))
		}
	}
	if len(refs) == 0 {
		return fmt.Sprintf("[%s][FW] %s: port orphaned commits", p.toBranch, p.addon)
	}
	return fmt.Sprintf("[%s][FW] %s: port %s", p.toBranch, p.addon, strings.Join(refs, ", "))
}

// body enumerates every ported PR number and original author for
// attribution.
func (p *Publisher) body(entries []*PlanEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Port of the following pull requests from %s:\n\n", p.addon)
	for _, entry := range entries {
		pr := entry.PR
		if pr.Number == 0 {
			for _, commit := range pr.Commits {
				fmt.Fprintf(&b, "* commit %s (by %s): %s\n", commit.ShortHash(), commit.Author, commit.Subject)
			}
			continue
		}
		fmt.Fprintf(&b, "* #%d (by @%s): %s\n", pr.Number, pr.Author, pr.Title)
	}
	return b.String()
}

func (p *Publisher) compareURL(branch, title string) string {
	return fmt.Sprintf(
		"https://github.com/%s/%s/compare/%s...%s:%s?expand=1&title=%s",
		p.upstreamOrg, p.repoName, p.toBranch, p.userOrg, branch, url.QueryEscape(title),
	)
}
