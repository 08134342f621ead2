// Package manifest parses subgraph manifests and their GraphQL schemas
// into the domain model used by the deployment provider.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"subgraphd/internal/domain"
)

const opParse = "manifest.Parse"

// link decodes both manifest link encodings: the IPLD form
// {"/": "/ipfs/Qm..."} and a plain string path.
type link struct {
	Value string
}

func (l *link) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&l.Value)
	case yaml.MappingNode:
		var fields map[string]string
		if err := node.Decode(&fields); err != nil {
			return err
		}
		l.Value = fields["/"]
		return nil
	default:
		return fmt.Errorf("line %d: link must be a string or an IPLD map", node.Line)
	}
}

type rawManifest struct {
	SpecVersion string          `yaml:"specVersion"`
	Description string          `yaml:"description"`
	Repository  string          `yaml:"repository"`
	Schema      rawSchema       `yaml:"schema"`
	DataSources []rawDataSource `yaml:"dataSources"`
	Templates   []rawTemplate   `yaml:"templates"`
}

type rawSchema struct {
	File link `yaml:"file"`
}

type rawDataSource struct {
	Kind    string     `yaml:"kind"`
	Name    string     `yaml:"name"`
	Network string     `yaml:"network"`
	Source  rawSource  `yaml:"source"`
	Mapping rawMapping `yaml:"mapping"`
}

type rawSource struct {
	Address    string `yaml:"address"`
	ABI        string `yaml:"abi"`
	StartBlock uint64 `yaml:"startBlock"`
}

type rawMapping struct {
	Kind          string            `yaml:"kind"`
	APIVersion    string            `yaml:"apiVersion"`
	Language      string            `yaml:"language"`
	Entities      []string          `yaml:"entities"`
	EventHandlers []rawEventHandler `yaml:"eventHandlers"`
	File          link              `yaml:"file"`
}

type rawEventHandler struct {
	Event   string `yaml:"event"`
	Handler string `yaml:"handler"`
}

type rawTemplate struct {
	Kind    string            `yaml:"kind"`
	Name    string            `yaml:"name"`
	Network string            `yaml:"network"`
	Source  rawTemplateSource `yaml:"source"`
	Mapping rawMapping        `yaml:"mapping"`
}

type rawTemplateSource struct {
	ABI string `yaml:"abi"`
}

// Parse decodes and validates manifest YAML. The schema document is not
// fetched here; Resolver fills it in afterwards.
func Parse(id domain.DeploymentID, data []byte) (*domain.Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.E(domain.CodeManifestInvalid, opParse,
			fmt.Sprintf("deployment %s", id), err)
	}

	if problems := validateManifest(&raw); len(problems) > 0 {
		return nil, domain.E(domain.CodeManifestInvalid, opParse,
			fmt.Sprintf("deployment %s", id),
			errors.New(strings.Join(problems, "; ")))
	}

	manifest := &domain.Manifest{
		Deployment:  id,
		SpecVersion: strings.TrimSpace(raw.SpecVersion),
		Description: raw.Description,
		Repository:  raw.Repository,
		Schema:      domain.Schema{Link: raw.Schema.File.Value},
		DataSources: make([]domain.DataSource, 0, len(raw.DataSources)),
		Templates:   make([]domain.Template, 0, len(raw.Templates)),
	}
	for _, ds := range raw.DataSources {
		manifest.DataSources = append(manifest.DataSources, domain.DataSource{
			Kind:    ds.Kind,
			Name:    ds.Name,
			Network: ds.Network,
			Source: domain.ContractSource{
				Address:    ds.Source.Address,
				ABI:        ds.Source.ABI,
				StartBlock: ds.Source.StartBlock,
			},
			Mapping: toMapping(ds.Mapping),
		})
	}
	for _, tpl := range raw.Templates {
		manifest.Templates = append(manifest.Templates, domain.Template{
			Kind:    tpl.Kind,
			Name:    tpl.Name,
			Network: tpl.Network,
			Source:  domain.TemplateSource{ABI: tpl.Source.ABI},
			Mapping: toMapping(tpl.Mapping),
		})
	}
	return manifest, nil
}

// ParseMapping decodes a standalone mapping fragment. Dynamic data source
// rows store their mapping as a separate linked document in this form.
func ParseMapping(data []byte) (domain.Mapping, error) {
	var raw rawMapping
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Mapping{}, err
	}
	return toMapping(raw), nil
}

func toMapping(raw rawMapping) domain.Mapping {
	mapping := domain.Mapping{
		Kind:       raw.Kind,
		APIVersion: raw.APIVersion,
		Language:   raw.Language,
		Entities:   raw.Entities,
		Link:       raw.File.Value,
	}
	for _, handler := range raw.EventHandlers {
		mapping.EventHandlers = append(mapping.EventHandlers, domain.EventHandler{
			Event:   handler.Event,
			Handler: handler.Handler,
		})
	}
	return mapping
}

func validateManifest(raw *rawManifest) []string {
	var problems []string

	if problem := validateSpecVersion(raw.SpecVersion); problem != "" {
		problems = append(problems, problem)
	}
	if strings.TrimSpace(raw.Schema.File.Value) == "" {
		problems = append(problems, "schema file link is required")
	}
	if len(raw.DataSources) == 0 {
		problems = append(problems, "at least one data source is required")
	}
	for i, ds := range raw.DataSources {
		if strings.TrimSpace(ds.Name) == "" {
			problems = append(problems, fmt.Sprintf("data source %d: name is required", i))
		}
		if strings.TrimSpace(ds.Kind) == "" {
			problems = append(problems, fmt.Sprintf("data source %d: kind is required", i))
		}
		if strings.TrimSpace(ds.Mapping.File.Value) == "" {
			problems = append(problems, fmt.Sprintf("data source %d: mapping file link is required", i))
		}
	}
	for i, tpl := range raw.Templates {
		if strings.TrimSpace(tpl.Name) == "" {
			problems = append(problems, fmt.Sprintf("template %d: name is required", i))
		}
	}
	return problems
}

func validateSpecVersion(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return "specVersion is required"
	}
	canonical := semver.Canonical("v" + trimmed)
	if canonical == "" {
		return fmt.Sprintf("specVersion %q is not a valid version", trimmed)
	}
	if semver.Compare(canonical, "v"+domain.MinSpecVersion) < 0 ||
		semver.Compare(canonical, "v"+domain.MaxSpecVersion) > 0 {
		return fmt.Sprintf("specVersion %s is outside the supported range [%s, %s]",
			trimmed, domain.MinSpecVersion, domain.MaxSpecVersion)
	}
	return ""
}
