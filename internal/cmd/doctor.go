package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devcforge/devc/internal/types"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check installation health",
		Long: `Doctor inspects the devc installation and reports per-item findings:
directory layout, manifest integrity, binary presence, and leftover
partial files from interrupted updates.

Exits non-zero when the installation needs repair.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	_, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	writer, err := newOutputWriter()
	if err != nil {
		return err
	}

	report := l.Validate()
	if err := writer.Write(report); err != nil {
		return err
	}

	if !report.Healthy() {
		return types.NewError(types.CategoryConsistency,
			fmt.Errorf("installation at %s is unhealthy; run 'devc update' to repair or reinstall", l.RuntimeDir))
	}
	return nil
}
