package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devcforge/devc/internal/lock"
	"github.com/devcforge/devc/internal/migrate"
	"github.com/devcforge/devc/internal/types"
	"github.com/devcforge/devc/internal/update"
)

func newUpdateCmd() *cobra.Command {
	var (
		checkOnly     bool
		dryRun        bool
		targetVersion string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update devc to the latest version",
		Long: `Update downloads, verifies, and atomically installs a new devc release.

The previous installation is kept as a backup until the new binary passes a
smoke test; any failure rolls back to the running version.

Examples:
  devc update                 # Update to the latest release
  devc update --check         # Check for updates without installing
  devc update --dry-run       # Show what an update would do
  devc update --version 1.4.0 # Update to a specific release`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkOnly {
				return runUpdateCheck(targetVersion)
			}
			return runUpdate(targetVersion, dryRun)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates without installing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show planned steps without changing anything")
	cmd.Flags().StringVar(&targetVersion, "version", "", "Update to a specific version instead of the latest")

	return cmd
}

// runUpdateCheck queries the release source without taking the lock or
// touching the installation.
func runUpdateCheck(targetVersion string) error {
	cfg, l, err := loadEnvironment()
	if err != nil {
		return err
	}

	info, err := checkRelease(cfg.Settings.Update.Owner, cfg.Settings.Update.Repo, currentVersion(l), targetVersion)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %s\n", info.CurrentVersion)
	if !info.Available {
		fmt.Println("Already running latest version")
		return nil
	}

	fmt.Printf("Latest version: %s available\n", info.LatestVersion)
	if info.ReleaseNotes != "" {
		fmt.Println("\nRelease notes:")
		fmt.Println(info.ReleaseNotes)
	}
	fmt.Println("\nRun 'devc update' to install")
	return nil
}

func runUpdate(targetVersion string, dryRun bool) error {
	cfg, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	logger := newLogger()

	handle, err := lock.NewManager(cfg.CacheDir).Acquire(cfg.LockWait())
	if err != nil {
		return err
	}
	defer handle.Release()

	dl := update.NewDownloader(cfg.DownloadTimeout(), cfg.Settings.Update.Retries)
	executor := update.NewExecutor(l, dl, logger)

	// Finish or undo anything a previous crashed run left behind.
	if err := executor.Recover(); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(l, logger)
	if migrator.NeedsMigration() {
		logger.Info("migrating legacy installation", "runtime", l.RuntimeDir)
		if err := migrator.Migrate(); err != nil {
			return err
		}
	}

	// Refuse to replace an installation we cannot reason about. Doctor
	// gives the itemized findings.
	if l.Exists() {
		if report := l.Validate(); !report.Healthy() {
			return types.NewError(types.CategoryConsistency,
				fmt.Errorf("installation at %s is unhealthy, run 'devc doctor' for details", l.RuntimeDir))
		}
	}

	info, err := checkRelease(cfg.Settings.Update.Owner, cfg.Settings.Update.Repo, currentVersion(l), targetVersion)
	if err != nil {
		return err
	}
	if !info.Available {
		fmt.Printf("Already up to date (version %s)\n", info.CurrentVersion)
		return nil
	}

	txn := executor.Plan(info)

	if dryRun {
		fmt.Printf("Update %s -> %s would:\n", txn.SourceVersion, txn.TargetVersion)
		for i, step := range executor.Steps(txn) {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
		return nil
	}

	fmt.Printf("Updating %s -> %s...\n", txn.SourceVersion, txn.TargetVersion)
	if err := executor.Execute(txn); err != nil {
		return err
	}

	fmt.Printf("Successfully updated to %s\n", txn.TargetVersion)
	return nil
}

// checkRelease builds a release checker and queries it.
func checkRelease(owner, repo, current, target string) (*update.Info, error) {
	platform := update.DetectPlatform()
	if !platform.IsSupported() {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}

	checker := update.NewGitHubChecker(current, owner, repo)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		checker = checker.WithToken(token)
	}
	return checker.Check(target)
}
