package template

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// templateSchema constrains the rule-set document before decoding, so a
// malformed source fails with a position-carrying error instead of a partial
// decode.
const templateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "additionalProperties": false,
    "required": ["category", "header_keywords"],
    "properties": {
      "category": {"type": "string", "minLength": 1},
      "header_keywords": {
        "type": "array",
        "items": {"type": "string", "minLength": 1}
      },
      "layout_features": {
        "type": "array",
        "items": {
          "type": "object",
          "additionalProperties": false,
          "required": ["text", "bounding_box"],
          "properties": {
            "text": {"type": "string"},
            "bounding_box": {
              "type": "array",
              "items": {"type": "number"},
              "minItems": 4,
              "maxItems": 4
            }
          }
        }
      },
      "field_patterns": {
        "type": "object",
        "additionalProperties": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("templates.json", strings.NewReader(templateSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("templates.json")
	})
	return schema, schemaErr
}

func validateSchema(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
