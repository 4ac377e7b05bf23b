package cmd

import (
	"os"

	"github.com/devcforge/devc/internal/config"
	"github.com/devcforge/devc/internal/layout"
	"github.com/devcforge/devc/internal/output"
)

// loadEnvironment resolves configuration and the installation layout. Every
// subcommand starts here so directory overrides behave uniformly.
func loadEnvironment() (*config.Config, layout.Layout, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, layout.Layout{}, err
	}
	return cfg, layout.Resolve(cfg), nil
}

// currentVersion reports the installed version from the runtime manifest,
// falling back to the version baked into this binary.
func currentVersion(l layout.Layout) string {
	if v, err := l.InstalledVersion(); err == nil && v != "" {
		return v
	}
	return buildVersion
}

// newOutputWriter builds a writer for the global --output flag.
func newOutputWriter() (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(os.Stdout, format), nil
}
