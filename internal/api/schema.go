package api

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Response schemas, keyed by name. They accept both snake_case and
// camelCase spellings; normalization picks whichever is present.
var responseSchemas = map[string]map[string]any{
	"auth": {
		"type": "object",
		"properties": map[string]any{
			"token":        map[string]any{"type": "string", "minLength": 1},
			"access_token": map[string]any{"type": "string", "minLength": 1},
			"user":         userSchema,
		},
		"anyOf": []any{
			map[string]any{"required": []any{"token"}},
			map[string]any{"required": []any{"access_token"}},
		},
	},
	"profile": {
		"type": "object",
		"anyOf": []any{
			map[string]any{
				"required":   []any{"user"},
				"properties": map[string]any{"user": userSchema},
			},
			userSchema,
		},
	},
	"progress": progressSchema,
	"child-progress": {
		"type":     "object",
		"required": []any{"progress"},
		"properties": map[string]any{
			"progress": progressSchema,
		},
	},
	"curriculum": {
		"type":     "object",
		"required": []any{"belts"},
		"properties": map[string]any{
			"belts": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name"},
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"color":     map[string]any{"type": "string"},
						"startDay":  dayNumber,
						"start_day": dayNumber,
						"endDay":    dayNumber,
						"end_day":   dayNumber,
						"days": map[string]any{
							"type": []any{"integer", "array"},
						},
					},
					"anyOf": []any{
						map[string]any{"required": []any{"startDay"}},
						map[string]any{"required": []any{"start_day"}},
					},
				},
			},
		},
	},
	"lesson": {
		"type":     "object",
		"required": []any{"title", "exercise"},
		"properties": map[string]any{
			"title":   map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
			"exercise": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description":  map[string]any{"type": "string"},
					"hint":         map[string]any{"type": []any{"string", "null"}},
					"starterCode":  map[string]any{"type": "string"},
					"starter_code": map[string]any{"type": "string"},
					"testCases":    testCasesSchema,
					"test_cases":   testCasesSchema,
				},
			},
		},
	},
	"execute": {
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{"type": []any{"string", "null"}},
			"error":  map[string]any{"type": []any{"string", "boolean", "null"}},
		},
	},
	"sensei": {
		"type":     "object",
		"required": []any{"response"},
		"properties": map[string]any{
			"response": map[string]any{"type": "string"},
		},
	},
	"children": {
		"type":     "object",
		"required": []any{"children"},
		"properties": map[string]any{
			"children": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object", "required": []any{"id", "name"}},
			},
		},
	},
	"child": {
		"type":     "object",
		"required": []any{"child"},
		"properties": map[string]any{
			"child": map[string]any{"type": "object", "required": []any{"id", "name"}},
		},
	},
	"activity": {
		"type":     "object",
		"required": []any{"recent_activity"},
		"properties": map[string]any{
			"recent_activity": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		},
	},
	"users": {
		"type":     "object",
		"required": []any{"users"},
		"properties": map[string]any{
			"users": map[string]any{"type": "array", "items": userSchema},
		},
	},
	"analytics": {
		"type": "object",
		"properties": map[string]any{
			"total_students":    map[string]any{"type": "integer", "minimum": 0},
			"belt_distribution": map[string]any{"type": "object"},
		},
	},
}

var (
	dayNumber = map[string]any{"type": "integer", "minimum": 1}

	userSchema = map[string]any{
		"type":     "object",
		"required": []any{"id", "email", "role"},
		"properties": map[string]any{
			"id":    map[string]any{"type": []any{"string", "integer"}},
			"email": map[string]any{"type": "string"},
			"role":  map[string]any{"enum": []any{"student", "parent", "admin"}},
		},
	}

	progressSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"current_day":    dayNumber,
			"currentDay":     dayNumber,
			"completed_days": dayList,
			"completedDays":  dayList,
			"current_belt":   map[string]any{"type": []any{"string", "object", "null"}},
			"currentBelt":    map[string]any{"type": []any{"string", "object", "null"}},
		},
		"anyOf": []any{
			map[string]any{"required": []any{"current_day"}},
			map[string]any{"required": []any{"currentDay"}},
		},
	}

	dayList = map[string]any{
		"type":  []any{"array", "null"},
		"items": dayNumber,
	}

	testCasesSchema = map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []any{"expected"},
			"properties": map[string]any{
				"input":    map[string]any{"type": []any{"string", "null"}},
				"expected": map[string]any{"type": "string"},
				"match":    map[string]any{"enum": []any{"equals", "contains"}},
			},
		},
	}
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateBody checks raw JSON against the named response schema.
func validateBody(name string, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	compiled, err := compiledSchema(name)
	if err != nil {
		return err
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, ok := responseSchemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown response schema %q", name)
	}

	// Round-trip through JSON so the compiler sees plain decoded values.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", name, err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://hackdojo/%s.json", name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
