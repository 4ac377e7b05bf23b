// Package scaffold generates containerized development environments from
// embedded profiles: a devcontainer config, a compose file, and optionally
// a Dockerfile for local image builds.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var profilesFS embed.FS

// Service is one auxiliary container in a profile (database, cache, ...).
type Service struct {
	Image       string            `yaml:"image"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
}

// Profile describes one development environment flavor.
type Profile struct {
	Name        string             `yaml:"-"`
	Description string             `yaml:"description"`
	Image       string             `yaml:"image"`
	RemoteUser  string             `yaml:"remote_user,omitempty"`
	Packages    []string           `yaml:"packages,omitempty"`
	Services    map[string]Service `yaml:"services,omitempty"`
}

// List returns all embedded profile names sorted alphabetically.
func List() []string {
	entries, err := profilesFS.ReadDir("templates")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Get loads a profile by name, with environment variables in the template
// expanded.
func Get(name string) (*Profile, error) {
	content, err := profilesFS.ReadFile("templates/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("profile '%s' not found (available: %s)", name, strings.Join(List(), ", "))
	}

	var p Profile
	if err := yaml.Unmarshal(ExpandEnvVars(content), &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile '%s': %w", name, err)
	}
	p.Name = name
	if p.Image == "" {
		return nil, fmt.Errorf("profile '%s' declares no base image", name)
	}
	return &p, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func ExpandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}
