// Package template loads and exposes the per-category classification rules.
// The rule set is a JSON array so that declaration order survives decoding;
// the classifier's first-match-wins tie-break depends on that order.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
)

// Template is the rule set for one category: the keywords whose presence in
// page text claims a page, optional reference layout features for geometric
// matching, and regex patterns for pulling named fields out of matched text.
type Template struct {
	Category       string                 `json:"category"`
	HeaderKeywords []string               `json:"header_keywords"`
	LayoutFeatures []models.LayoutFeature `json:"layout_features,omitempty"`
	FieldPatterns  map[string]string      `json:"field_patterns,omitempty"`

	compiled map[string]*regexp.Regexp
}

// Patterns returns the compiled field patterns keyed by field name.
func (t *Template) Patterns() map[string]*regexp.Regexp {
	return t.compiled
}

// Load reads, validates, and compiles the template rule set at path.
// A missing or malformed source yields a ConfigError; callers degrade to an
// empty rule set, under which every page classifies as unmatched. The
// returned templates are immutable and keep their declaration order.
func Load(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewConfigError("template source not found: "+path, err)
		}
		return nil, models.NewConfigError("read template source", err)
	}
	return Parse(data)
}

// Parse decodes and compiles a template rule set from raw JSON.
func Parse(data []byte) ([]Template, error) {
	if err := validateSchema(data); err != nil {
		return nil, models.NewConfigError("template source is malformed", err)
	}

	var templates []Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, models.NewConfigError("decode template source", err)
	}

	seen := make(map[string]struct{}, len(templates))
	for i := range templates {
		t := &templates[i]
		if _, dup := seen[t.Category]; dup {
			return nil, models.NewConfigError(fmt.Sprintf("duplicate category %q", t.Category), nil)
		}
		seen[t.Category] = struct{}{}

		t.compiled = make(map[string]*regexp.Regexp, len(t.FieldPatterns))
		for field, pattern := range t.FieldPatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, models.NewConfigError(
					fmt.Sprintf("field pattern %q of category %q does not compile", field, t.Category), err)
			}
			t.compiled[field] = re
		}
	}
	return templates, nil
}

// ByCategory indexes templates for field-pattern lookup after a match.
func ByCategory(templates []Template) map[string]*Template {
	byCat := make(map[string]*Template, len(templates))
	for i := range templates {
		byCat[templates[i].Category] = &templates[i]
	}
	return byCat
}
