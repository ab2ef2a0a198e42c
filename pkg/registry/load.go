package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format identifies a registry document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Definition is the document form of a stage.
type Definition struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Target      string `mapstructure:"target"`
	Description string `mapstructure:"description"`
}

// Document is the top level of a registry file.
//
//	stages:
//	  - id: project-setup
//	    name: Project Setup
//	    target: /project-setup
type Document struct {
	Stages []Definition `mapstructure:"stages"`
}

// LoadFile reads a registry document (YAML or JSON, chosen by extension).
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	format := FormatYAML
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = FormatJSON
	}

	r, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// Parse decodes a registry document. Unknown keys are rejected so that typos
// (e.g. "tagret") fail loudly instead of producing stages without targets.
func Parse(data []byte, format Format) (*Registry, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse registry json: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse registry yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid registry document: %w", err)
	}

	stages := make([]domain.Stage, 0, len(doc.Stages))
	for _, def := range doc.Stages {
		stages = append(stages, def.Stage())
	}
	return New(stages...)
}

// Stage converts the definition. Name falls back to the id.
func (d Definition) Stage() domain.Stage {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return domain.Stage{
		ID:          d.ID,
		Name:        name,
		Target:      d.Target,
		Description: d.Description,
	}
}

// FromLoader builds a registry from whatever a ports.StageLoader returns.
func FromLoader(ctx context.Context, loader ports.StageLoader) (*Registry, error) {
	stages, err := loader.LoadStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	return New(stages...)
}
