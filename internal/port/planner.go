package port

import (
	"fmt"
	"sort"

	"github.com/camptocamp/oca-port/internal/logger"
	"github.com/camptocamp/oca-port/internal/term"
)

// BlacklistStore records pull requests the user never wants to port.
type BlacklistStore interface {
	IsPRBlacklisted(ref string) (string, bool)
	BlacklistPR(ref, reason string)
	Commit(message string) error
}

// Planner turns a grouping into an ordered PortPlan and applies the
// user's confirmations. Building the plan is a pure pass over the
// decision data; prompting happens only in Confirm, so non-interactive
// runs and tests never touch a prompt.
type Planner struct {
	blacklist      BlacklistStore
	prompter       term.Prompter
	style          *term.Style
	nonInteractive bool
	owner          string
	repoName       string
	toBranchName   string
	addon          string
}

// NewPlanner creates a new port planner
func NewPlanner(blacklist BlacklistStore, prompter term.Prompter, style *term.Style, nonInteractive bool, owner, repoName, toBranchName, addon string) *Planner {
	return &Planner{
		blacklist:      blacklist,
		prompter:       prompter,
		style:          style,
		nonInteractive: nonInteractive,
		owner:          owner,
		repoName:       repoName,
		toBranchName:   toBranchName,
		addon:          addon,
	}
}

// BuildPlan returns the plan of NOT_PORTED and PARTIALLY_PORTED entries,
// ordered by earliest original commit date so dependency order between
// pull requests touching the same files is respected as well as
// possible. Blacklisted pull requests are pre-marked skipped.
func (p *Planner) BuildPlan(grouping *Grouping) *Plan {
	plan := &Plan{}
	for _, pr := range grouping.PullRequests {
		if pr.Status == FullyPorted {
			continue
		}
		entry := &PlanEntry{PR: pr}
		if reason, ok := p.blacklist.IsPRBlacklisted(pr.Ref(p.owner, p.repoName)); ok {
			entry.State = EntrySkipped
			entry.SkipReason = fmt.Sprintf("blacklisted (%s)", reason)
		}
		plan.Entries = append(plan.Entries, entry)
	}
	sort.SliceStable(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].PR.EarliestCommitDate().Before(plan.Entries[j].PR.EarliestCommitDate())
	})
	logger.Debug().Int("entries", len(plan.Entries)).Msg("Built port plan")
	return plan
}

// Confirm applies the user's decisions onto the plan: per-entry
// confirmation, optional permanent blacklisting of declined entries, and
// the cumulate-or-separate branching choice. In non-interactive mode
// every eligible entry is committed to without prompting.
func (p *Planner) Confirm(plan *Plan) (*Plan, error) {
	if p.nonInteractive {
		p.chain(plan, true)
		return plan, nil
	}

	for _, entry := range plan.Entries {
		if entry.State == EntrySkipped {
			fmt.Println(p.style.Dim(fmt.Sprintf("%s %s", p.describe(entry.PR), entry.SkipReason)))
			continue
		}
		ok, err := p.prompter.Confirm(
			fmt.Sprintf("Port %s?", p.describe(entry.PR)),
			fmt.Sprintf("%d commit(s) to port to %s", len(entry.PR.MissingCommits), p.toBranchName),
		)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		entry.State = EntrySkipped
		entry.SkipReason = "declined by user"

		blacklist, err := p.prompter.Confirm(
			fmt.Sprintf("Skip %s permanently?", p.describe(entry.PR)),
			"It will not be proposed for porting again on this branch.",
		)
		if err != nil {
			return nil, err
		}
		if blacklist {
			p.blacklist.BlacklistPR(entry.PR.Ref(p.owner, p.repoName), "declined by user")
		}
	}

	confirmed := plan.Confirmed()
	if len(confirmed) > 1 {
		choice, err := p.prompter.Select(
			fmt.Sprintf("How should the %d pull requests be ported?", len(confirmed)),
			"Cumulate them on a single branch",
			"One branch per pull request",
		)
		if err != nil {
			return nil, err
		}
		p.chain(plan, choice == "Cumulate them on a single branch")
	} else {
		p.chain(plan, false)
	}

	return plan, nil
}

// chain links confirmed entries onto each other (cumulative porting) or
// gives each its own branch, and assigns working branch names.
func (p *Planner) chain(plan *Plan, chained bool) {
	plan.Chained = chained
	var prev *PlanEntry
	for _, entry := range plan.Entries {
		if entry.State == EntrySkipped {
			continue
		}
		if chained {
			entry.Base = prev
			entry.Branch = fmt.Sprintf("%s-port-%s", p.toBranchName, p.addon)
			prev = entry
		} else {
			entry.Branch = p.entryBranchName(entry)
		}
	}
}

func (p *Planner) entryBranchName(entry *PlanEntry) string {
	if entry.PR.Number == 0 {
		suffix := "orphaned"
		if len(entry.PR.Commits) > 0 {
			suffix = entry.PR.Commits[0].ShortHash()
		}
		return fmt.Sprintf("%s-port-%s-%s", p.toBranchName, p.addon, suffix)
	}
	return fmt.Sprintf("%s-port-%s-pr%d", p.toBranchName, p.addon, entry.PR.Number)
}

func (p *Planner) describe(pr *PullRequestInfo) string {
	if pr.Number == 0 {
		return p.style.Bold(pr.Title)
	}
	return fmt.Sprintf("PR %s (%s)", p.style.Bold(fmt.Sprintf("#%d", pr.Number)), pr.Title)
}
