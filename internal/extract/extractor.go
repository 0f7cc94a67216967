// Package extract produces per-page signals for classification: the page's
// plain text, its layout features, and a downsampled raster of the page.
// Rasterization goes through MuPDF; text comes either from the embedded text
// layer or from Tesseract on the rendered page, depending on the engine.
package extract

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/pkg/logger"
)

// Engine selects how page text and layout features are produced.
type Engine string

const (
	// EngineNative reads the document's embedded text layer.
	EngineNative Engine = "native"
	// EngineOCR runs Tesseract on the rasterized page.
	EngineOCR Engine = "ocr"
)

// ParseEngine maps a config string onto an Engine.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineNative, EngineOCR:
		return Engine(s), nil
	default:
		return "", models.NewConfigError(fmt.Sprintf("unknown extraction engine %q", s), nil)
	}
}

// Options configures an extractor.
type Options struct {
	Engine    Engine
	DPI       float64
	Languages []string
}

// Page carries everything downstream stages need from one page. Text and
// Layout feed the classifier; Image is handed to the router on a match.
type Page struct {
	Text   string
	Layout []models.LayoutFeature
	Image  image.Image
}

// Document is one open input document. ExtractPage is safe for concurrent
// callers; failures are page-scoped and never affect sibling pages.
type Document interface {
	PageCount() int
	ExtractPage(ctx context.Context, pageIndex int) (*Page, error)
	Close() error
}

// Extractor opens input documents for page extraction.
type Extractor interface {
	Open(path string) (Document, error)
}

// FitzExtractor opens PDFs through MuPDF, with the text layer read by a
// separate parser in native mode.
type FitzExtractor struct {
	opts   Options
	logger logger.Logger
}

func NewFitzExtractor(log logger.Logger, opts Options) *FitzExtractor {
	if opts.Engine == "" {
		opts.Engine = EngineNative
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"eng"}
	}
	return &FitzExtractor{opts: opts, logger: log}
}

func (e *FitzExtractor) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, models.NewExtractionError("open document "+path, err)
	}

	d := &fitzDocument{
		path:   path,
		doc:    doc,
		pages:  doc.NumPage(),
		opts:   e.opts,
		logger: e.logger,
	}

	if e.opts.Engine == EngineNative {
		f, reader, err := pdf.Open(path)
		if err != nil {
			doc.Close()
			return nil, models.NewExtractionError("open text layer of "+path, err)
		}
		d.file = f
		d.reader = reader
	}

	e.logger.Debug("document opened",
		logger.String("document", path),
		logger.Int("pages", d.pages),
		logger.String("engine", string(e.opts.Engine)),
	)
	return d, nil
}

type fitzDocument struct {
	path   string
	pages  int
	opts   Options
	logger logger.Logger

	// MuPDF handles are not safe for concurrent page access.
	mu  sync.Mutex
	doc *fitz.Document

	file   *os.File
	reader *pdf.Reader
}

func (d *fitzDocument) PageCount() int {
	return d.pages
}

// ExtractPage rasterizes the page at the configured DPI, downsamples it to
// half size, and produces text plus layout features through the configured
// engine. Both signals are produced before returning.
func (d *fitzDocument) ExtractPage(ctx context.Context, pageIndex int) (*Page, error) {
	if pageIndex < 0 || pageIndex >= d.PageCount() {
		return nil, models.NewExtractionError(
			fmt.Sprintf("page %d out of range for %s (%d pages)", pageIndex, d.path, d.PageCount()), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := d.render(pageIndex)
	if err != nil {
		return nil, err
	}

	var (
		text   string
		layout []models.LayoutFeature
	)
	switch d.opts.Engine {
	case EngineOCR:
		text, layout, err = d.ocrPage(ctx, img)
	default:
		text, layout, err = d.nativePage(pageIndex)
	}
	if err != nil {
		return nil, err
	}

	return &Page{Text: text, Layout: layout, Image: img}, nil
}

// render produces the downsampled page raster. Half width and height bounds
// memory and the cost of everything downstream of extraction.
func (d *fitzDocument) render(pageIndex int) (image.Image, error) {
	d.mu.Lock()
	img, err := d.doc.ImageDPI(pageIndex, d.opts.DPI)
	d.mu.Unlock()
	if err != nil {
		return nil, models.NewExtractionError(
			fmt.Sprintf("rasterize page %d of %s", pageIndex, d.path), err)
	}

	b := img.Bounds()
	return imaging.Resize(img, b.Dx()/2, b.Dy()/2, imaging.Lanczos), nil
}

func (d *fitzDocument) Close() error {
	var firstErr error
	if d.doc != nil {
		if err := d.doc.Close(); err != nil {
			firstErr = err
		}
		d.doc = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.file = nil
	}
	return firstErr
}
