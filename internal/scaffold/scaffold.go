package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/devcforge/devc/internal/layout"
	"github.com/devcforge/devc/internal/safepath"
)

// ProjectFileName records scaffold provenance in the generated project.
const ProjectFileName = "devc.toml"

// Scaffolder renders a development environment into a target directory.
type Scaffolder struct {
	paths     layout.ResolvedPaths
	validator *safepath.Validator
	resolver  ImageResolver
	version   string
	logger    *log.Logger
}

// NewScaffolder creates a Scaffolder. The validator guards forced
// recreation of the target directory.
func NewScaffolder(paths layout.ResolvedPaths, validator *safepath.Validator, resolver ImageResolver, version string, logger *log.Logger) *Scaffolder {
	return &Scaffolder{
		paths:     paths,
		validator: validator,
		resolver:  resolver,
		version:   version,
		logger:    logger,
	}
}

// projectFile is the devc.toml written into generated projects.
type projectFile struct {
	Profile     string `toml:"profile"`
	GeneratedBy string `toml:"generated_by"`
}

// devcontainer is the subset of the devcontainer spec we emit.
type devcontainer struct {
	Name              string `json:"name"`
	DockerComposeFile string `json:"dockerComposeFile"`
	Service           string `json:"service"`
	WorkspaceFolder   string `json:"workspaceFolder"`
	RemoteUser        string `json:"remoteUser,omitempty"`
}

// composeService mirrors the compose schema fields we generate.
type composeService struct {
	Image       string            `yaml:"image,omitempty"`
	Build       string            `yaml:"build,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]struct{}       `yaml:"volumes,omitempty"`
}

// Generate renders the profile into dir. With force set, an existing dir is
// removed first, but only after the safety validator clears it.
func (s *Scaffolder) Generate(dir, profileName string, force bool) error {
	profile, err := Get(profileName)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); err == nil {
		if !force {
			return fmt.Errorf("directory %s already exists (use --force to recreate)", dir)
		}
		safe, reason := s.validator.IsSafeToDelete(dir)
		if !safe {
			return fmt.Errorf("refusing to recreate %s: %s", dir, reason)
		}
		s.logger.Warn("recreating existing directory", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}

	devcDir := filepath.Join(dir, ".devcontainer")
	if err := os.MkdirAll(devcDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", devcDir, err)
	}

	imageRef, buildLocally := s.resolver.Resolve(profile.Image)

	if err := s.writeDevcontainer(devcDir, profile); err != nil {
		return err
	}
	if err := s.writeCompose(devcDir, profile, imageRef, buildLocally); err != nil {
		return err
	}
	if buildLocally {
		if err := s.writeDockerfile(devcDir, profile, imageRef); err != nil {
			return err
		}
	}
	if err := s.writeProjectFile(dir, profile); err != nil {
		return err
	}

	s.logger.Info("scaffolded environment", "dir", dir, "profile", profile.Name)
	return nil
}

func (s *Scaffolder) writeDevcontainer(devcDir string, profile *Profile) error {
	dc := devcontainer{
		Name:              profile.Name,
		DockerComposeFile: "docker-compose.yaml",
		Service:           "app",
		WorkspaceFolder:   "/workspace",
		RemoteUser:        profile.RemoteUser,
	}
	data, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render devcontainer.json: %w", err)
	}
	return os.WriteFile(filepath.Join(devcDir, "devcontainer.json"), append(data, '\n'), 0644)
}

func (s *Scaffolder) writeCompose(devcDir string, profile *Profile, imageRef string, buildLocally bool) error {
	app := composeService{
		Command: "sleep infinity",
		Volumes: []string{"..:/workspace:cached"},
	}
	if buildLocally {
		app.Build = "."
	} else {
		app.Image = imageRef
	}

	cf := composeFile{Services: map[string]composeService{"app": app}}
	for name, svc := range profile.Services {
		cf.Services[name] = composeService{
			Image:       svc.Image,
			Environment: svc.Environment,
			Ports:       svc.Ports,
			Volumes:     svc.Volumes,
		}
		// Named volumes referenced by services need a top-level entry.
		for _, vol := range svc.Volumes {
			name := strings.SplitN(vol, ":", 2)[0]
			if !strings.Contains(name, "/") {
				if cf.Volumes == nil {
					cf.Volumes = map[string]struct{}{}
				}
				cf.Volumes[name] = struct{}{}
			}
		}
	}

	data, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to render docker-compose.yaml: %w", err)
	}
	return os.WriteFile(filepath.Join(devcDir, "docker-compose.yaml"), data, 0644)
}

func (s *Scaffolder) writeDockerfile(devcDir string, profile *Profile, baseImage string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", baseImage)
	if len(profile.Packages) > 0 {
		fmt.Fprintf(&b, "\nRUN apt-get update \\\n    && apt-get install -y --no-install-recommends %s \\\n    && rm -rf /var/lib/apt/lists/*\n",
			strings.Join(profile.Packages, " "))
	}
	if profile.RemoteUser != "" {
		fmt.Fprintf(&b, "\nUSER %s\n", profile.RemoteUser)
	}
	return os.WriteFile(filepath.Join(devcDir, "Dockerfile"), []byte(b.String()), 0644)
}

func (s *Scaffolder) writeProjectFile(dir string, profile *Profile) error {
	data, err := toml.Marshal(projectFile{
		Profile:     profile.Name,
		GeneratedBy: "devc " + s.version,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", ProjectFileName, err)
	}
	return os.WriteFile(filepath.Join(dir, ProjectFileName), data, 0644)
}
