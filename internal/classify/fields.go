package classify

import "regexp"

// ExtractFields runs each field pattern against the page text and returns
// the first match per field. Fields with no match are absent from the map;
// downstream naming falls back to a page-number name in that case.
func ExtractFields(text string, patterns map[string]*regexp.Regexp) map[string]string {
	if len(patterns) == 0 {
		return nil
	}
	fields := make(map[string]string, len(patterns))
	for name, re := range patterns {
		if m := re.FindString(text); m != "" {
			fields[name] = m
		}
	}
	return fields
}
