// Package safepath guards destructive filesystem operations.
//
// Every command that removes or forcibly recreates a directory asks this
// package first. A path is protected if it is the filesystem root, a
// well-known system directory, the user's home directory itself, or the
// installation's own runtime directory (or an ancestor of it). Paths are
// canonicalized before comparison so relative-path and symlink tricks
// cannot sneak a protected target past the check.
package safepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// systemRoots are well-known directories that are never valid deletion
// targets regardless of installation layout.
var systemRoots = []string{
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/home",
	"/lib",
	"/opt",
	"/proc",
	"/root",
	"/sbin",
	"/sys",
	"/usr",
	"/usr/local",
	"/var",
	"/Applications",
	"/Library",
	"/System",
	"/Users",
}

// Validator answers whether a path may be the target of a destructive
// operation. Construct one per invocation with the resolved runtime
// directory so update and scaffold commands share the same rules.
type Validator struct {
	runtimeDir string
	homeDir    string
	extra      []string
}

// NewValidator creates a Validator protecting runtimeDir and the current
// user's home directory root. runtimeDir may be empty when the installation
// layout could not be resolved; the system rules still apply.
func NewValidator(runtimeDir string) *Validator {
	home, _ := os.UserHomeDir()
	return &Validator{
		runtimeDir: canonicalize(runtimeDir),
		homeDir:    canonicalize(home),
	}
}

// Protect adds an additional protected path, for callers that know about
// locations this package does not (e.g. a configured template store).
func (v *Validator) Protect(path string) {
	if p := canonicalize(path); p != "" {
		v.extra = append(v.extra, p)
	}
}

// IsSafeToDelete reports whether path may be deleted or forcibly recreated.
// The reason is human-readable and only meaningful when the result is false.
// A non-existent path is not an error: there is nothing to delete, so the
// caller may treat it as safe to create.
func (v *Validator) IsSafeToDelete(path string) (bool, string) {
	if path == "" {
		return false, "empty path"
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Sprintf("cannot resolve path: %v", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "path does not exist; nothing to delete"
		}
		return false, fmt.Sprintf("cannot canonicalize path: %v", err)
	}

	if resolved == string(filepath.Separator) {
		return false, "refusing to delete the filesystem root"
	}

	for _, root := range systemRoots {
		if resolved == root {
			return false, fmt.Sprintf("refusing to delete system directory %s", root)
		}
	}

	if v.homeDir != "" && resolved == v.homeDir {
		return false, "refusing to delete the home directory"
	}

	if v.runtimeDir != "" && isSameOrAncestor(resolved, v.runtimeDir) {
		return false, fmt.Sprintf("path contains the devc installation at %s", v.runtimeDir)
	}

	for _, p := range v.extra {
		if isSameOrAncestor(resolved, p) {
			return false, fmt.Sprintf("path contains protected location %s", p)
		}
	}

	return true, ""
}

// canonicalize resolves a path to absolute, symlink-free form, returning ""
// when that is not possible.
func canonicalize(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Path may not exist yet; fall back to the lexically cleaned form.
		return filepath.Clean(abs)
	}
	return resolved
}

// isSameOrAncestor reports whether candidate equals target or is one of its
// ancestors. Comparison is segment-wise so /usr/local-other is not treated
// as containing /usr/local.
func isSameOrAncestor(candidate, target string) bool {
	if candidate == target {
		return true
	}
	prefix := candidate
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
