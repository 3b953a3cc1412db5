package crm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pipeline holds the CRM identifiers the service writes against.
// It is read-only after Load.
type Pipeline struct {
	entityTypeID   int
	entityType     string
	documentsField string
	authorID       int
}

type pipelineFile struct {
	EntityTypeID   int    `yaml:"entity_type_id"`
	EntityType     string `yaml:"entity_type"`
	DocumentsField string `yaml:"documents_field"`
	AuthorID       int    `yaml:"author_id"`
}

// LoadPipeline reads the pipeline map from a YAML file
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes and validates a pipeline map
func ParsePipeline(data []byte) (*Pipeline, error) {
	var f pipelineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file: %w", err)
	}

	if f.EntityTypeID <= 0 {
		return nil, fmt.Errorf("pipeline: entity_type_id is required")
	}
	if f.DocumentsField == "" {
		return nil, fmt.Errorf("pipeline: documents_field is required")
	}
	if f.EntityType == "" {
		f.EntityType = fmt.Sprintf("dynamic_%d", f.EntityTypeID)
	}

	return &Pipeline{
		entityTypeID:   f.EntityTypeID,
		entityType:     f.EntityType,
		documentsField: f.DocumentsField,
		authorID:       f.AuthorID,
	}, nil
}

func (p *Pipeline) EntityTypeID() int { return p.entityTypeID }
func (p *Pipeline) EntityType() string { return p.entityType }
func (p *Pipeline) DocumentsField() string { return p.documentsField }
func (p *Pipeline) AuthorID() int { return p.authorID }
