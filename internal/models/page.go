package models

import "image"

// PageUnit identifies one page of one input document. It is the atomic unit
// of parallel work and is immutable once created.
type PageUnit struct {
	DocIndex  int    `json:"docIndex"`
	DocPath   string `json:"docPath"`
	PageIndex int    `json:"pageIndex"`
	PageCount int    `json:"pageCount"`
}

// LayoutFeature is one detected text block on a page: trimmed content plus
// its bounding box (x0, y0, x1, y1) in page coordinates.
type LayoutFeature struct {
	Text string     `json:"text"`
	Box  [4]float64 `json:"bounding_box"`
}

// ClassificationResult is the outcome of running one page through the
// classifier. Category is empty when no template matched. On a match the
// rendered page image is handed off to the router along with the result.
type ClassificationResult struct {
	Unit     PageUnit
	Category string
	Fields   map[string]string
	Image    image.Image
}

// Matched reports whether the page was assigned a category.
func (r ClassificationResult) Matched() bool {
	return r.Category != ""
}
