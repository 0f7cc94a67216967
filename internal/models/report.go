package models

import "time"

// RunReport summarizes one batch run: how many pages were matched,
// unmatched, or failed, which documents could not be opened, and any
// per-category assembly failures.
type RunReport struct {
	RunID            string            `json:"runId"`
	TotalPages       int               `json:"totalPages"`
	Matched          int               `json:"matched"`
	Unmatched        int               `json:"unmatched"`
	Failed           int               `json:"failed"`
	SkippedDocuments []string          `json:"skippedDocuments,omitempty"`
	AssemblyErrors   map[string]string `json:"assemblyErrors,omitempty"`
	Elapsed          time.Duration     `json:"elapsed"`
}
