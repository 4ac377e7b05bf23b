package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/devcforge/devc/internal/types"
)

var (
	// Global flags
	outputFormat string
	verbose      bool
	quiet        bool

	// Build metadata, set by Execute
	buildVersion string
	buildCommit  string
	buildDate    string
)

func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	rootCmd := &cobra.Command{
		Use:   "devc",
		Short: "Scaffold and maintain containerized development environments",
		Long: `devc scaffolds containerized development environments and keeps its own
installation healthy with atomic, crash-safe self-updates.

Generate a devcontainer setup with devc new, check installation health with
devc doctor, and stay current with devc update.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd.Execute()
}

// ExitCode maps an error to the process exit code. Lock contention and
// installation damage get distinct codes so scripts can react to them.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch types.CategoryOf(err) {
	case types.CategoryTransient, types.CategoryIntegrity:
		return 2
	case types.CategoryConcurrency:
		return 3
	case types.CategoryConsistency:
		return 4
	}
	return 1
}

// newLogger builds the shared logger honoring the verbosity flags.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if quiet {
		logger.SetLevel(log.ErrorLevel)
	}
	return logger
}
