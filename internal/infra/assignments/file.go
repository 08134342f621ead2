// Package assignments reads the desired-deployments file and converges the
// provider's running set on it. Deciding what is assigned to this node
// happens elsewhere; this package only applies decisions that already
// arrived on disk.
package assignments

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"subgraphd/internal/domain"
)

// Set is the desired state read from the assignments file.
type Set struct {
	Deployments []Assignment `yaml:"deployments" toml:"deployments"`
}

// Assignment names one deployment this node should run. Name is a display
// label and carries no semantics.
type Assignment struct {
	ID   string `yaml:"id" toml:"id"`
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`
}

// IDs returns the assigned deployment ids in file order.
func (s Set) IDs() []domain.DeploymentID {
	ids := make([]domain.DeploymentID, 0, len(s.Deployments))
	for _, assignment := range s.Deployments {
		ids = append(ids, domain.DeploymentID(assignment.ID))
	}
	return ids
}

// ReadFile loads the assignments file at path. The format is chosen by
// extension: .yaml/.yml or .toml.
func ReadFile(path string) (Set, error) {
	if path == "" {
		return Set{}, errors.New("assignments path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read assignments: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes an assignments document. ext selects the format and must be
// ".yaml", ".yml" or ".toml".
func Parse(data []byte, ext string) (Set, error) {
	var set Set
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return Set{}, fmt.Errorf("parse assignments: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &set); err != nil {
			return Set{}, fmt.Errorf("parse assignments: %w", err)
		}
	default:
		return Set{}, fmt.Errorf("unsupported assignments format %q", ext)
	}

	if problems := validateSet(set); len(problems) > 0 {
		return Set{}, errors.New(strings.Join(problems, "; "))
	}
	return set, nil
}

func validateSet(set Set) []string {
	var problems []string
	seen := make(map[string]struct{}, len(set.Deployments))
	for i, assignment := range set.Deployments {
		if _, err := domain.NewDeploymentID(assignment.ID); err != nil {
			problems = append(problems, fmt.Sprintf("deployments[%d]: %s", i, problemText(err)))
			continue
		}
		if _, dup := seen[assignment.ID]; dup {
			problems = append(problems, fmt.Sprintf("deployments[%d]: duplicate id %q", i, assignment.ID))
			continue
		}
		seen[assignment.ID] = struct{}{}
	}
	return problems
}

func problemText(err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return err.Error()
}
