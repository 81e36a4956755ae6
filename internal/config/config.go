// Package config holds the settings used by oca-port to perform its
// actions, validated against the local repository before any mutation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/camptocamp/oca-port/internal/git"
)

// Default values for upstream settings
const (
	DefaultUpstreamOrg = "OCA"
	DefaultUpstream    = "origin"
)

// Settings define the parameters of a single oca-port run.
type Settings struct {
	// FromBranch is the source branch (e.g. "14.0")
	FromBranch git.BranchRef
	// ToBranch is the target branch (e.g. "15.0")
	ToBranch git.BranchRef
	// Addon is the name of the module to process
	Addon string
	// RepoPath is the local path to the Git repository
	RepoPath string
	// RepoName is the repository name on the upstream organization
	// (e.g. "server-tools"); defaults to the repository directory name
	RepoName string
	// UpstreamOrg is the upstream GitHub organization name
	UpstreamOrg string
	// Upstream is the git remote source and target branches are fetched from
	Upstream string
	// Fork is the git remote where branches with ported commits are pushed
	Fork string
	// UserOrg is the user's GitHub organization hosting the fork
	UserOrg string
	// Verbose lists the commits of pull requests
	Verbose bool
	// NonInteractive disables prompts; outcomes are returned via exit codes
	NonInteractive bool
	// NoCache disables the on-disk cache
	NoCache bool
	// ClearCache removes the cache once the process is done
	ClearCache bool

	// GitHubToken is the API credential, read from the environment and
	// never logged.
	GitHubToken string
}

// Options carries the raw CLI inputs used to build Settings.
type Options struct {
	FromBranch     string
	ToBranch       string
	Addon          string
	RepoPath       string
	RepoName       string
	UpstreamOrg    string
	Upstream       string
	Fork           string
	UserOrg        string
	Verbose        bool
	NonInteractive bool
	NoCache        bool
	ClearCache     bool
}

// ForkError reports a missing fork remote, with the remediation command.
type ForkError struct {
	RepoName string
	Remote   string
}

func (e *ForkError) Error() string {
	return remoteErrorMessage(e.RepoName, e.Remote) +
		"\n\nYou can change the GitHub organization with the --user-org option."
}

// RemoteBranchError reports a branch whose remote is not configured.
type RemoteBranchError struct {
	RepoName string
	Remote   string
}

func (e *RemoteBranchError) Error() string {
	return remoteErrorMessage(e.RepoName, e.Remote)
}

func remoteErrorMessage(repoName, remote string) string {
	return fmt.Sprintf(
		"No remote %s in the current repository.\n"+
			"To add it:\n"+
			"\t$ git remote add %s git@github.com:%s/%s.git\n"+
			"   Or:\n"+
			"\t$ git remote add %s https://github.com/%s/%s.git",
		remote, remote, remote, repoName, remote, remote, repoName,
	)
}

// NewSettings validates the raw options against the repository and returns
// ready-to-use settings. It fails before any repository mutation when the
// working tree is dirty, the fork remote is missing, or a branch cannot be
// resolved against its remote.
func NewSettings(repo *git.Repository, opts Options) (*Settings, error) {
	if opts.RepoPath == "" {
		return nil, errors.New("repository path has to be set")
	}

	s := &Settings{
		Addon:          opts.Addon,
		RepoPath:       opts.RepoPath,
		RepoName:       opts.RepoName,
		UpstreamOrg:    opts.UpstreamOrg,
		Upstream:       opts.Upstream,
		Fork:           opts.Fork,
		UserOrg:        opts.UserOrg,
		Verbose:        opts.Verbose,
		NonInteractive: opts.NonInteractive,
		NoCache:        opts.NoCache,
		ClearCache:     opts.ClearCache,
		GitHubToken:    TokenFromEnv(),
	}
	if s.UpstreamOrg == "" {
		s.UpstreamOrg = DefaultUpstreamOrg
	}
	if s.Upstream == "" {
		s.Upstream = DefaultUpstream
	}
	if s.RepoName == "" {
		s.RepoName = filepath.Base(opts.RepoPath)
	}
	// Assume the fork remote has the same name as the user organization
	if s.UserOrg == "" {
		s.UserOrg = s.Fork
	}

	dirty, err := repo.IsDirty()
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, git.ErrDirtyWorkingTree
	}

	if s.Fork != "" && !repo.HasRemote(s.Fork) {
		return nil, &ForkError{RepoName: s.RepoName, Remote: s.Fork}
	}

	s.FromBranch, err = git.NewBranchRef(repo, opts.FromBranch, s.Upstream)
	if err != nil {
		return nil, wrapBranchErr(err, s.RepoName)
	}
	s.ToBranch, err = git.NewBranchRef(repo, opts.ToBranch, s.Upstream)
	if err != nil {
		return nil, wrapBranchErr(err, s.RepoName)
	}

	return s, nil
}

func wrapBranchErr(err error, repoName string) error {
	var missing *git.MissingRemoteError
	if errors.As(err, &missing) {
		return &RemoteBranchError{RepoName: repoName, Remote: missing.Remote}
	}
	return err
}

// TokenFromEnv reads the GitHub API credential from the process
// environment. GITHUB_TOKEN takes precedence over GH_TOKEN.
func TokenFromEnv() string {
	v := viper.New()
	v.AutomaticEnv()
	_ = v.BindEnv("token", "GITHUB_TOKEN", "GH_TOKEN")
	return v.GetString("token")
}
