package schema

import (
	"fmt"
	"strings"

	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

var technologyCategories = []string{
	"frontend", "backend", "database", "hosting", "mobile", "ai-ml",
	"analytics", "authentication", "payment", "storage", "monitoring", "devops",
}

var technologyDifficulties = []string{"beginner", "intermediate", "advanced"}

type TechnologyInput struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Reasoning    string   `json:"reasoning"`
	Difficulty   string   `json:"difficulty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// TechStackPayload is both the LLM response shape for tech-stack generation
// and the save-tech-stack request body (minus the backlog id).
type TechStackPayload struct {
	Suggestions        []TechnologyInput `json:"suggestions"`
	ProjectType        string            `json:"projectType"`
	Complexity         string            `json:"complexity"`
	EstimatedTimeframe string            `json:"estimatedTimeframe"`
	KeyFeatures        []string          `json:"keyFeatures"`
}

func (p *TechStackPayload) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(p.ProjectType) == "" {
		v.add("projectType", "projectType is required")
	}
	if !types.ValidComplexity(p.Complexity) {
		v.add("complexity", "complexity must be one of simple, moderate, complex")
	}
	if strings.TrimSpace(p.EstimatedTimeframe) == "" {
		v.add("estimatedTimeframe", "estimatedTimeframe is required")
	}
	if len(p.KeyFeatures) == 0 {
		v.add("keyFeatures", "at least one key feature is required")
	}
	if len(p.Suggestions) == 0 {
		v.add("suggestions", "at least one suggestion is required")
	}
	for i, s := range p.Suggestions {
		prefix := fmt.Sprintf("suggestions[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			v.add(prefix+".name", "name is required")
		}
		if !contains(technologyCategories, s.Category) {
			v.add(prefix+".category", "category must be one of "+strings.Join(technologyCategories, ", "))
		}
		if strings.TrimSpace(s.Description) == "" {
			v.add(prefix+".description", "description is required")
		}
		if strings.TrimSpace(s.Reasoning) == "" {
			v.add(prefix+".reasoning", "reasoning is required")
		}
		if !contains(technologyDifficulties, s.Difficulty) {
			v.add(prefix+".difficulty", "difficulty must be one of "+strings.Join(technologyDifficulties, ", "))
		}
	}
	return v.orNil()
}

func contains(set []string, val string) bool {
	for _, s := range set {
		if s == val {
			return true
		}
	}
	return false
}

// TechStackJSONSchema is the json_schema handed to the completion service
// for tech-stack recommendation.
func TechStackJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"suggestions", "projectType", "complexity", "estimatedTimeframe", "keyFeatures"},
		"properties": map[string]any{
			"suggestions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "category", "description", "reasoning", "difficulty"},
					"properties": map[string]any{
						"name":        map[string]any{"type": "string", "minLength": 1},
						"category":    map[string]any{"type": "string", "enum": technologyCategories},
						"description": map[string]any{"type": "string", "minLength": 1},
						"reasoning":   map[string]any{"type": "string", "minLength": 1},
						"difficulty":  map[string]any{"type": "string", "enum": technologyDifficulties},
						"alternatives": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
			},
			"projectType": map[string]any{"type": "string", "minLength": 1},
			"complexity": map[string]any{
				"type": "string",
				"enum": []string{types.ComplexitySimple, types.ComplexityModerate, types.ComplexityComplex},
			},
			"estimatedTimeframe": map[string]any{"type": "string", "minLength": 1},
			"keyFeatures": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
		},
	}
}
