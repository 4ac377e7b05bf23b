package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionInfo is the structured payload for devc version.
type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	Installed string `json:"installed,omitempty" yaml:"installed,omitempty"`
}

func (v versionInfo) String() string {
	s := fmt.Sprintf("devc version %s (commit %s, built %s)", v.Version, v.Commit, v.Date)
	if v.Installed != "" && v.Installed != v.Version {
		s += fmt.Sprintf("\ninstalled manifest reports %s", v.Installed)
	}
	return s
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the running devc version and build metadata.

This command is read-only; use 'devc update --check' to look for new
releases.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	}
}

func runVersion() error {
	writer, err := newOutputWriter()
	if err != nil {
		return err
	}

	info := versionInfo{Version: buildVersion, Commit: buildCommit, Date: buildDate}

	// Best effort; the manifest may legitimately not exist yet.
	if _, l, err := loadEnvironment(); err == nil {
		if installed, err := l.InstalledVersion(); err == nil {
			info.Installed = installed
		}
	}

	return writer.Write(info)
}
