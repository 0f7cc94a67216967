// Package assemble writes the per-category output artifacts once a batch
// has fully classified: either one named image per page, or one assembled
// multi-page PDF per category.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/router"
	"github.com/Mahanbrianj98/PDF-Restructure/pkg/logger"
)

// Mode selects the output artifact shape.
type Mode string

const (
	// ModeImages saves each classified page as an individual image.
	ModeImages Mode = "images"
	// ModePDF assembles each category's pages into one multi-page PDF.
	ModePDF Mode = "pdf"
)

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeImages, ModePDF:
		return Mode(s), nil
	default:
		return "", models.NewConfigError(fmt.Sprintf("unknown output mode %q", s), nil)
	}
}

// A4 in millimetres, the fixed assembled-page size.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
)

// Assembler writes category buckets to disk. Failures are scoped to one
// category; the remaining categories still assemble.
type Assembler struct {
	mode      Mode
	nameField string
	logger    logger.Logger
}

// New returns an assembler. nameField selects the extracted field used to
// name individual images; pages without it fall back to a page-number name.
func New(log logger.Logger, mode Mode, nameField string) *Assembler {
	return &Assembler{mode: mode, nameField: nameField, logger: log}
}

// Assemble writes one artifact set per category under outputRoot and
// returns the per-category failures. Categories are processed in name order
// so repeated runs touch the filesystem deterministically.
func (a *Assembler) Assemble(buckets map[string][]router.RoutedPage, outputRoot string) map[string]error {
	failures := make(map[string]error)
	outputRoot = normalizePath(outputRoot)

	categories := make([]string, 0, len(buckets))
	for category := range buckets {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		pages := buckets[category]
		if len(pages) == 0 {
			continue
		}

		var err error
		switch a.mode {
		case ModeImages:
			err = a.saveImages(category, pages, outputRoot)
		default:
			err = a.assemblePDF(category, pages, outputRoot)
		}
		if err != nil {
			a.logger.Error("category assembly failed",
				logger.String("category", category),
				logger.Error(err),
			)
			failures[category] = err
			continue
		}
		a.logger.Info("category assembled",
			logger.String("category", category),
			logger.Int("pages", len(pages)),
			logger.String("mode", string(a.mode)),
		)
	}
	return failures
}

// categoryDir creates outputRoot/<category> if needed. Creation is
// idempotent.
func categoryDir(outputRoot, category string) (string, error) {
	dir := filepath.Join(outputRoot, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewAssemblyError("create category folder "+dir, err)
	}
	return dir, nil
}

// saveImages writes one PNG per page, named by the extracted name field
// when present, else page_<pageIndex+1>.
func (a *Assembler) saveImages(category string, pages []router.RoutedPage, outputRoot string) error {
	dir, err := categoryDir(outputRoot, category)
	if err != nil {
		return err
	}

	for _, p := range pages {
		name := p.Fields[a.nameField]
		if name == "" {
			name = fmt.Sprintf("page_%d", p.Unit.PageIndex+1)
		}
		path := filepath.Join(dir, name+".png")
		if err := imaging.Save(p.Image, path); err != nil {
			return models.NewAssemblyError("write image "+path, err)
		}
	}
	return nil
}

// assemblePDF combines the bucket's pages, in bucket order, into one A4
// document at outputRoot/<category>/<category>.pdf. Each page is staged as
// a temporary JPEG that is removed on both success and failure paths.
func (a *Assembler) assemblePDF(category string, pages []router.RoutedPage, outputRoot string) error {
	dir, err := categoryDir(outputRoot, category)
	if err != nil {
		return err
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)

	var staged []string
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for i, p := range pages {
		tmp := filepath.Join(dir, fmt.Sprintf(".page_%04d.jpg", i))
		if err := imaging.Save(p.Image, tmp, imaging.JPEGQuality(90)); err != nil {
			return models.NewAssemblyError("stage page image "+tmp, err)
		}
		staged = append(staged, tmp)

		doc.AddPage()
		doc.ImageOptions(tmp, 0, 0, pageWidthMM, pageHeightMM, false,
			fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	}
	if doc.Err() {
		return models.NewAssemblyError("assemble document for "+category, doc.Error())
	}

	out := filepath.Join(dir, category+".pdf")
	if err := doc.OutputFileAndClose(out); err != nil {
		return models.NewAssemblyError("write "+out, err)
	}
	return nil
}

// normalizePath cleans and absolutizes the output root.
func normalizePath(p string) string {
	abs, err := filepath.Abs(filepath.Clean(strings.TrimSpace(p)))
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
