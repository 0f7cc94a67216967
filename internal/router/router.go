// Package router accumulates classified pages per category while workers
// complete in arbitrary order, and restores document-enumeration order when
// the buckets are drained for assembly.
package router

import (
	"errors"
	"image"
	"sort"
	"sync"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
)

var (
	// ErrUnmatched is returned when a result without a category is routed.
	// Unmatched pages never enter a bucket.
	ErrUnmatched = errors.New("router: unmatched page is not routable")
	// ErrDrained is returned when a result arrives after Drain. The drain
	// barrier in the coordinator makes this a programming error, not a
	// runtime condition.
	ErrDrained = errors.New("router: buckets already drained")
)

// RoutedPage is one classified page held in a category bucket.
type RoutedPage struct {
	Unit   models.PageUnit
	Fields map[string]string
	Image  image.Image
}

// Router owns the category buckets for the duration of one batch run.
// Add is safe for concurrent workers; Drain hands the buckets to the
// assembler exactly once.
type Router struct {
	mu      sync.Mutex
	buckets map[string][]RoutedPage
	drained bool
}

func New() *Router {
	return &Router{buckets: make(map[string][]RoutedPage)}
}

// Add appends the result's page to its category bucket.
func (r *Router) Add(res models.ClassificationResult) error {
	if !res.Matched() {
		return ErrUnmatched
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return ErrDrained
	}
	r.buckets[res.Category] = append(r.buckets[res.Category], RoutedPage{
		Unit:   res.Unit,
		Fields: res.Fields,
		Image:  res.Image,
	})
	return nil
}

// Drain returns every bucket with its pages sorted by (document index, page
// index), regardless of worker completion order, and seals the router
// against further writes.
func (r *Router) Drain() map[string][]RoutedPage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drained = true

	for _, pages := range r.buckets {
		sort.Slice(pages, func(i, j int) bool {
			a, b := pages[i].Unit, pages[j].Unit
			if a.DocIndex != b.DocIndex {
				return a.DocIndex < b.DocIndex
			}
			return a.PageIndex < b.PageIndex
		})
	}
	return r.buckets
}

// Routed reports how many pages are currently bucketed.
func (r *Router) Routed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, pages := range r.buckets {
		n += len(pages)
	}
	return n
}
