package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devcforge/devc/internal/scaffold"
)

// profileListing is the structured payload for devc profiles.
type profileListing struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Image       string   `json:"image" yaml:"image"`
	Services    []string `json:"services,omitempty" yaml:"services,omitempty"`
}

type profileListings []profileListing

func (l profileListings) String() string {
	var b strings.Builder
	for _, p := range l {
		fmt.Fprintf(&b, "%-8s %s", p.Name, p.Description)
		if len(p.Services) > 0 {
			fmt.Fprintf(&b, " (services: %s)", strings.Join(p.Services, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available environment profiles",
		Long:  `Profiles lists the environment profiles available to devc new.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles()
		},
	}
}

func runProfiles() error {
	writer, err := newOutputWriter()
	if err != nil {
		return err
	}

	var listings profileListings
	for _, name := range scaffold.List() {
		p, err := scaffold.Get(name)
		if err != nil {
			return err
		}
		var services []string
		for svc := range p.Services {
			services = append(services, svc)
		}
		sort.Strings(services)
		listings = append(listings, profileListing{
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
			Services:    services,
		})
	}

	return writer.Write(listings)
}
