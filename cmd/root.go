package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camptocamp/oca-port/internal/app"
	"github.com/camptocamp/oca-port/internal/config"
	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/logger"
)

var (
	// Flags
	upstreamOrg    string
	upstream       string
	repoName       string
	fork           string
	userOrg        string
	verbose        bool
	nonInteractive bool
	noCache        bool
	clearCache     bool

	// exitCode carries the non-interactive outcome to Execute
	exitCode int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "oca-port [flags] FROM_BRANCH TO_BRANCH ADDON",
	Short: "Migrate an addon or port its missing commits from one branch to another",
	Long: `oca-port assists in porting an addon, or the missing commits of an addon,
from one branch of a repository to another.

If the addon does not exist on the target branch, it drives the migration
following the OCA migration guide: the addon's commit history is replayed
onto a fresh migration branch.

If the addon already exists on the target branch, the missing commits are
retrieved and grouped by the pull request that introduced them. Pull
requests not yet (fully) ported can be replayed onto a working branch and
proposed as a draft pull request against the upstream repository.

To check if an addon could be migrated or to list eligible pull requests:

  $ export GITHUB_TOKEN=<token>
  $ oca-port 14.0 15.0 shopfloor --verbose

To effectively migrate the addon or port its commits, set the --fork
option so the resulting branch can be pushed on your remote:

  $ oca-port 14.0 15.0 shopfloor --fork camptocamp

In non-interactive mode the outcome is communicated through the exit
code: 100 if the addon could be migrated, 110 if pull requests could be
ported, 0 if there is nothing to do.`,
	Args:          cobra.ExactArgs(3),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the appropriate status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.Flags().StringVar(&upstreamOrg, "upstream-org", config.DefaultUpstreamOrg, "Upstream organization name")
	rootCmd.Flags().StringVar(&upstream, "upstream", config.DefaultUpstream, "Git remote from which source and target branches are fetched by default")
	rootCmd.Flags().StringVar(&repoName, "repo-name", "", "Repository name, eg. server-tools")
	rootCmd.Flags().StringVar(&fork, "fork", "", "Git remote where branches with ported commits are pushed")
	rootCmd.Flags().StringVar(&userOrg, "user-org", "", "User organization name (default: the fork remote name)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the commits of pull requests")
	rootCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Disable all interactive prompts")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the user's cache")
	rootCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Clear the user's cache")
}

func run(cmd *cobra.Command, args []string) error {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	logger.Init(logger.Config{Verbosity: verbosity})

	repoPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	repo, err := git.OpenRepository(repoPath)
	if err != nil {
		return err
	}

	settings, err := config.NewSettings(repo, config.Options{
		FromBranch:     args[0],
		ToBranch:       args[1],
		Addon:          args[2],
		RepoPath:       repo.Path(),
		RepoName:       repoName,
		UpstreamOrg:    upstreamOrg,
		Upstream:       upstream,
		Fork:           fork,
		UserOrg:        userOrg,
		Verbose:        verbose,
		NonInteractive: nonInteractive,
		NoCache:        noCache,
		ClearCache:     clearCache,
	})
	if err != nil {
		return err
	}

	application, err := app.New(repo, settings)
	if err != nil {
		return err
	}

	outcome, err := application.Run(cmd.Context())
	if err != nil {
		return err
	}
	if settings.NonInteractive {
		exitCode = outcome.ExitCode()
	}
	return nil
}
