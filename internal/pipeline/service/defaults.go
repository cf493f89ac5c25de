package service

import (
	_ "embed"
	"fmt"

	"fddhub/internal/pipeline/repository"

	"gopkg.in/yaml.v3"
)

// DefaultColor is used when a stage is created without one.
const DefaultColor = "#6B7280"

//go:embed default_stages.yaml
var defaultStagesYAML []byte

type stageSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	Default     bool   `yaml:"default"`
	ClosedWon   bool   `yaml:"closed_won"`
	ClosedLost  bool   `yaml:"closed_lost"`
}

// DefaultStages parses the embedded stage set.
func DefaultStages() ([]repository.CreateStageParams, error) {
	var doc struct {
		Stages []stageSeed `yaml:"stages"`
	}
	if err := yaml.Unmarshal(defaultStagesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse default stages: %w", err)
	}

	params := make([]repository.CreateStageParams, 0, len(doc.Stages))
	for _, s := range doc.Stages {
		p := repository.CreateStageParams{
			Name:         s.Name,
			Color:        s.Color,
			IsDefault:    s.Default,
			IsClosedWon:  s.ClosedWon,
			IsClosedLost: s.ClosedLost,
		}
		if p.Color == "" {
			p.Color = DefaultColor
		}
		if s.Description != "" {
			desc := s.Description
			p.Description = &desc
		}
		params = append(params, p)
	}
	return params, nil
}
