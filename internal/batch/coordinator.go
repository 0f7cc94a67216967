// Package batch schedules page extraction, classification, and field
// extraction across all pages of all input documents, tracks fractional
// progress, and hands the drained category buckets to the assembler.
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/classify"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/extract"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/router"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/template"
	"github.com/Mahanbrianj98/PDF-Restructure/pkg/logger"
)

// Assembler consumes the drained buckets after classification; it returns
// per-category failures, each scoped to that category alone.
type Assembler interface {
	Assemble(buckets map[string][]router.RoutedPage, outputRoot string) map[string]error
}

// Coordinator runs one batch: fan out page-units to a bounded pool, wait
// for the pool to drain, then assemble.
type Coordinator struct {
	extractor  extract.Extractor
	templates  []template.Template
	byCategory map[string]*template.Template
	assembler  Assembler
	logger     logger.ContextLogger
	workers    int
	onProgress ProgressFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers bounds the worker pool. Values below one fall back to the
// host's available parallelism.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithProgress registers the progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) {
		c.onProgress = fn
	}
}

func New(extractor extract.Extractor, templates []template.Template, assembler Assembler, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		extractor:  extractor,
		templates:  templates,
		byCategory: template.ByCategory(templates),
		assembler:  assembler,
		logger:     logger.NewContextLogger(log),
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every page of every document in docs and writes artifacts
// under outputRoot. A document that fails to open contributes zero pages
// and is recorded, not fatal; a batch where no document opens at all fails
// with a batch error before any work is dispatched. Page-level failures are
// converted into logged outcomes that still count toward progress.
//
// Assembly starts only after every dispatched page-unit has completed. When
// ctx is cancelled mid-run, in-flight units finish, no further units are
// dispatched, assembly is skipped, and the partial report is still returned
// alongside the context error.
func (c *Coordinator) Run(ctx context.Context, docs []string, outputRoot string) (*models.RunReport, error) {
	start := time.Now()
	report := &models.RunReport{
		RunID:          uuid.NewString(),
		AssemblyErrors: make(map[string]string),
	}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := c.logger.FromContext(ctx)

	open := make([]extract.Document, len(docs))
	defer func() {
		for _, d := range open {
			if d != nil {
				d.Close()
			}
		}
	}()

	var units []models.PageUnit
	opened := 0
	for i, path := range docs {
		doc, err := c.extractor.Open(path)
		if err != nil {
			log.Warn("skipping document that failed to open",
				logger.String("document", path),
				logger.Error(err),
			)
			report.SkippedDocuments = append(report.SkippedDocuments, path)
			continue
		}
		open[i] = doc
		opened++

		n := doc.PageCount()
		for p := 0; p < n; p++ {
			units = append(units, models.PageUnit{
				DocIndex:  i,
				DocPath:   path,
				PageIndex: p,
				PageCount: n,
			})
		}
	}
	if opened == 0 {
		return nil, models.NewBatchError("no input document could be opened", nil)
	}
	report.TotalPages = len(units)

	progress := newProgressState(len(units), c.onProgress)
	rt := router.New()

	log.Info("batch started",
		logger.Int("documents", opened),
		logger.Int("pages", len(units)),
		logger.Int("workers", c.workers),
	)

	if len(units) == 0 {
		progress.finish()
		report.Elapsed = time.Since(start)
		return report, nil
	}

	var mu sync.Mutex // guards report tallies
	g := new(errgroup.Group)
	g.SetLimit(c.workers)

	for _, unit := range units {
		if ctx.Err() != nil {
			break
		}
		unit := unit
		g.Go(func() error {
			c.processUnit(ctx, open[unit.DocIndex], unit, rt, report, &mu)
			progress.step()
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn("batch cancelled, skipping assembly",
			logger.Int("completed", int(progress.completed.Load())),
		)
		report.Elapsed = time.Since(start)
		return report, err
	}

	// The pool has drained; the buckets are complete and sealed here.
	for category, err := range c.assembler.Assemble(rt.Drain(), outputRoot) {
		report.AssemblyErrors[category] = err.Error()
	}

	report.Elapsed = time.Since(start)
	log.Info("batch finished",
		logger.Int("matched", report.Matched),
		logger.Int("unmatched", report.Unmatched),
		logger.Int("failed", report.Failed),
		logger.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// processUnit runs one page through extraction, classification, and field
// extraction. Every failure is caught here and converted into a tally; a
// page can fail without touching its siblings. The run and document
// identity travel in ctx and surface on every log line.
func (c *Coordinator) processUnit(ctx context.Context, doc extract.Document, unit models.PageUnit, rt *router.Router, report *models.RunReport, mu *sync.Mutex) {
	ctx = logger.WithDocument(ctx, unit.DocPath)
	log := c.logger.FromContext(ctx)

	page, err := doc.ExtractPage(ctx, unit.PageIndex)
	if err != nil {
		log.Error("page extraction failed",
			logger.Int("page", unit.PageIndex+1),
			logger.Error(err),
		)
		mu.Lock()
		report.Failed++
		mu.Unlock()
		return
	}

	category, ok := classify.Classify(page.Text, page.Layout, c.templates)
	if !ok {
		log.Warn("page not matched to any category",
			logger.Int("page", unit.PageIndex+1),
		)
		mu.Lock()
		report.Unmatched++
		mu.Unlock()
		return
	}

	var fields map[string]string
	if t := c.byCategory[category]; t != nil {
		fields = classify.ExtractFields(page.Text, t.Patterns())
	}

	if err := rt.Add(models.ClassificationResult{
		Unit:     unit,
		Category: category,
		Fields:   fields,
		Image:    page.Image,
	}); err != nil {
		log.Error("routing failed",
			logger.Int("page", unit.PageIndex+1),
			logger.Error(err),
		)
		mu.Lock()
		report.Failed++
		mu.Unlock()
		return
	}

	log.Info("page classified",
		logger.Int("page", unit.PageIndex+1),
		logger.String("category", category),
	)
	mu.Lock()
	report.Matched++
	mu.Unlock()
}
