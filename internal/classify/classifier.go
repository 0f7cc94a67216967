// Package classify decides which category owns a page. The decision is a
// pure function over the page's text, its layout features, and the loaded
// templates, so identical inputs always produce the same category.
package classify

import (
	"math"
	"strings"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/template"
)

const (
	// layoutThreshold is the similarity a template's reference layout must
	// exceed to claim a page when no keyword is present.
	layoutThreshold = 0.8
	// boxTolerance is the per-axis slack, in page units, when comparing
	// top-left corners of zipped layout features.
	boxTolerance = 10.0
)

// Classify returns the category of the first template, in declaration order,
// whose rules match the page: any header keyword occurs as a substring of
// text, or the layout similarity against the template's reference features
// exceeds the threshold. First-match-wins: earlier templates shadow later
// ones. The second return is false when no template matches.
func Classify(text string, features []models.LayoutFeature, templates []template.Template) (string, bool) {
	for i := range templates {
		t := &templates[i]

		textMatch := false
		for _, keyword := range t.HeaderKeywords {
			if strings.Contains(text, keyword) {
				textMatch = true
				break
			}
		}

		similarity := 0.0
		if len(t.LayoutFeatures) > 0 {
			similarity = LayoutSimilarity(features, t.LayoutFeatures)
		}

		if textMatch || similarity > layoutThreshold {
			return t.Category, true
		}
	}
	return "", false
}

// LayoutSimilarity zips the two feature lists positionally, up to the
// shorter one, counts pairs whose top-left corners lie within the tolerance
// on both axes, and divides by the longer length. There is no attempt to
// align features by content; positional zip matches the behavior existing
// templates were authored against. Similarity is 0 when either list is
// empty.
func LayoutSimilarity(features, reference []models.LayoutFeature) float64 {
	longer := max(len(features), len(reference))
	if longer == 0 {
		return 0
	}

	matched := 0
	for i := 0; i < min(len(features), len(reference)); i++ {
		a, b := features[i].Box, reference[i].Box
		if math.Abs(a[0]-b[0]) < boxTolerance && math.Abs(a[1]-b[1]) < boxTolerance {
			matched++
		}
	}
	return float64(matched) / float64(longer)
}
