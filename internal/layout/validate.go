package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Status indicates the outcome of a single validation check.
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusError Status = "error"
)

// Check captures one validation result.
type Check struct {
	Name    string `json:"name" yaml:"name"`
	Status  Status `json:"status" yaml:"status"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// HealthReport aggregates validation checks over a directory tree.
// Callers use it to decide whether to proceed, migrate, or refuse to run
// destructive commands; it is never reduced to a bare boolean in output.
type HealthReport struct {
	Dir    string  `json:"dir" yaml:"dir"`
	Checks []Check `json:"checks" yaml:"checks"`
}

// Healthy reports whether no check failed outright. Warnings do not make
// an installation unhealthy.
func (r HealthReport) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == StatusError {
			return false
		}
	}
	return true
}

// Problems returns the failing checks for diagnostics.
func (r HealthReport) Problems() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status != StatusOK {
			out = append(out, c)
		}
	}
	return out
}

// String renders the report for text output.
func (r HealthReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Installation: %s\n", r.Dir)
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "  [%s] %s", strings.ToUpper(string(c.Status)), c.Name)
		if c.Details != "" {
			fmt.Fprintf(&b, ": %s", c.Details)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validate checks that the runtime directory contains a complete, internally
// consistent installation.
func (l Layout) Validate() HealthReport {
	return ValidateTree(l.RuntimeDir)
}

// ValidateTree validates any directory that should hold a complete
// installation. The update recovery path uses this on both the runtime
// directory and a backup to decide which of the two is intact.
func ValidateTree(dir string) HealthReport {
	report := HealthReport{Dir: dir}
	add := func(name string, status Status, details string) {
		report.Checks = append(report.Checks, Check{Name: name, Status: status, Details: details})
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		add("runtime directory", StatusError, "missing")
		return report
	}
	add("runtime directory", StatusOK, dir)

	m, err := ReadManifest(dir)
	if err != nil {
		add("version manifest", StatusError, err.Error())
		return report
	}
	if m.Version == "" {
		add("version manifest", StatusError, "no version recorded")
	} else {
		add("version manifest", StatusOK, fmt.Sprintf("version %s", m.Version))
	}

	switch {
	case m.Schema == SchemaVersion:
		add("layout schema", StatusOK, fmt.Sprintf("schema %d", m.Schema))
	case m.Schema < SchemaVersion:
		add("layout schema", StatusWarn, fmt.Sprintf("schema %d predates %d, migration needed", m.Schema, SchemaVersion))
	default:
		add("layout schema", StatusError, fmt.Sprintf("schema %d is newer than this binary understands (%d)", m.Schema, SchemaVersion))
	}

	var missing []string
	for _, rel := range m.Files {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			missing = append(missing, rel)
		}
	}
	if len(missing) > 0 {
		add("installed files", StatusError, fmt.Sprintf("missing: %s", strings.Join(missing, ", ")))
	} else {
		add("installed files", StatusOK, fmt.Sprintf("%d files present", len(m.Files)))
	}

	binPath := filepath.Join(dir, BinaryName)
	if binInfo, err := os.Stat(binPath); err != nil {
		add("executable", StatusError, "missing")
	} else if binInfo.Mode()&0111 == 0 {
		add("executable", StatusError, "not executable")
	} else {
		add("executable", StatusOK, binPath)
	}

	if partials := findPartials(dir); len(partials) > 0 {
		add("partial files", StatusError, fmt.Sprintf("interrupted write left: %s", strings.Join(partials, ", ")))
	} else {
		add("partial files", StatusOK, "none")
	}

	return report
}

// findPartials returns any *.partial markers left from an interrupted write.
func findPartials(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), PartialSuffix) {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				rel = path
			}
			out = append(out, rel)
		}
		return nil
	})
	return out
}
