package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devcforge/devc/internal/safepath"
	"github.com/devcforge/devc/internal/scaffold"
)

func newNewCmd() *cobra.Command {
	var (
		profileName string
		force       bool
		localBuild  bool
	)

	cmd := &cobra.Command{
		Use:   "new <directory>",
		Short: "Scaffold a containerized development environment",
		Long: `New generates a devcontainer setup in the given directory: a
devcontainer.json, a docker-compose.yaml with the profile's services, and
optionally a Dockerfile for local image builds.

Examples:
  devc new myproject                      # Scaffold with the default profile
  devc new myproject --profile go         # Go toolchain with PostgreSQL
  devc new myproject --local-build        # Build the image locally
  devc new myproject --force              # Recreate an existing directory`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(args[0], profileName, force, localBuild)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Environment profile (see 'devc profiles')")
	cmd.Flags().BoolVar(&force, "force", false, "Recreate the directory if it exists")
	cmd.Flags().BoolVar(&localBuild, "local-build", false, "Generate a Dockerfile instead of pulling a prebuilt image")

	_ = cmd.RegisterFlagCompletionFunc("profile", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return scaffold.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runNew(dir, profileName string, force, localBuild bool) error {
	cfg, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	if profileName == "" {
		profileName = cfg.Settings.Scaffold.DefaultProfile
	}

	var resolver scaffold.ImageResolver = scaffold.RegistryResolver{Registry: cfg.Settings.Scaffold.ImageRegistry}
	if localBuild {
		resolver = scaffold.LocalBuildResolver{}
	}

	scaffolder := scaffold.NewScaffolder(l.Paths(), safepath.NewValidator(l.RuntimeDir), resolver, buildVersion, newLogger())
	return scaffolder.Generate(dir, profileName, force)
}
