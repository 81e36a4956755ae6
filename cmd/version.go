package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camptocamp/oca-port/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information for oca-port including version number,
git commit hash, build date, Go version, and platform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.GetVersion().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
