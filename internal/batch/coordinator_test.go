package batch

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/extract"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/router"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/template"
	"github.com/Mahanbrianj98/PDF-Restructure/pkg/logger"
)

type fakeDoc struct {
	pages []string
	fail  map[int]bool
	delay func(pageIndex int) time.Duration
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) ExtractPage(ctx context.Context, pageIndex int) (*extract.Page, error) {
	if d.delay != nil {
		time.Sleep(d.delay(pageIndex))
	}
	if d.fail[pageIndex] {
		return nil, models.NewExtractionError("synthetic page failure", nil)
	}
	return &extract.Page{
		Text:  d.pages[pageIndex],
		Image: image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}, nil
}

func (d *fakeDoc) Close() error { return nil }

type fakeExtractor struct {
	docs map[string]*fakeDoc
}

func (f *fakeExtractor) Open(path string) (extract.Document, error) {
	doc, ok := f.docs[path]
	if !ok {
		return nil, models.NewExtractionError("open "+path, os.ErrNotExist)
	}
	return doc, nil
}

type fakeAssembler struct {
	mu       sync.Mutex
	calls    int
	buckets  map[string][]router.RoutedPage
	failures map[string]error
}

func (a *fakeAssembler) Assemble(buckets map[string][]router.RoutedPage, outputRoot string) map[string]error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.buckets = buckets
	return a.failures
}

// progressRecorder collects the fractions handed to the progress sink.
type progressRecorder struct {
	mu        sync.Mutex
	fractions []float64
}

func (p *progressRecorder) record(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fractions = append(p.fractions, fraction)
}

func (p *progressRecorder) completions() (count int, atOne int, aboveOne int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.fractions {
		count++
		if f == 1.0 {
			atOne++
		}
		if f > 1.0 {
			aboveOne++
		}
	}
	return
}

func mustTemplates(t *testing.T, source string) []template.Template {
	t.Helper()
	templates, err := template.Parse([]byte(source))
	require.NoError(t, err)
	return templates
}

const xyTemplates = `[
  {"category": "X", "header_keywords": ["XRAY"], "field_patterns": {"order_number": "ORD-\\d+"}},
  {"category": "Y", "header_keywords": ["YANKEE"]}
]`

func TestRunProgressReachesOneExactlyOnce(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY 1", "XRAY 2", "XRAY 3"}},
		"b.pdf": {pages: []string{"YANKEE 1", "nothing"}},
	}}
	asm := &fakeAssembler{}
	rec := &progressRecorder{}

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger(),
		WithWorkers(4), WithProgress(rec.record))

	report, err := c.Run(context.Background(), []string{"a.pdf", "b.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalPages)
	assert.Equal(t, 4, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 0, report.Failed)

	count, atOne, aboveOne := rec.completions()
	assert.Equal(t, 5, count, "one callback per page-unit")
	assert.Equal(t, 1, atOne, "fraction 1.0 reported exactly once")
	assert.Zero(t, aboveOne, "completed never exceeds total")
}

func TestRunProgressWhenEveryPageFails(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"p0", "p1", "p2"}, fail: map[int]bool{0: true, 1: true, 2: true}},
	}}
	asm := &fakeAssembler{}
	rec := &progressRecorder{}

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger(),
		WithWorkers(2), WithProgress(rec.record))

	report, err := c.Run(context.Background(), []string{"a.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Failed)
	assert.Zero(t, report.Matched)

	count, atOne, _ := rec.completions()
	assert.Equal(t, 3, count, "failed pages still count toward progress")
	assert.Equal(t, 1, atOne)

	assert.Equal(t, 1, asm.calls, "assembly still runs after the pool drains")
	assert.Empty(t, asm.buckets)
}

func TestRunBucketOrderIndependentOfCompletionOrder(t *testing.T) {
	// Later pages finish first: delays shrink with ascending page index
	// reversed, so completion order is the inverse of enumeration order.
	reversed := func(n int) func(int) time.Duration {
		return func(pageIndex int) time.Duration {
			return time.Duration(n-pageIndex) * 5 * time.Millisecond
		}
	}
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY a0", "XRAY a1", "XRAY a2"}, delay: reversed(3)},
		"b.pdf": {pages: []string{"XRAY b0", "XRAY b1"}, delay: reversed(2)},
	}}
	asm := &fakeAssembler{}

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger(), WithWorkers(5))
	_, err := c.Run(context.Background(), []string{"a.pdf", "b.pdf"}, t.TempDir())
	require.NoError(t, err)

	pages := asm.buckets["X"]
	require.Len(t, pages, 5)
	want := []struct{ doc, page int }{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}}
	for i, p := range pages {
		assert.Equal(t, want[i].doc, p.Unit.DocIndex, "position %d", i)
		assert.Equal(t, want[i].page, p.Unit.PageIndex, "position %d", i)
	}
}

func TestRunSkipsUnopenableDocument(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"good.pdf": {pages: []string{"XRAY"}},
	}}
	asm := &fakeAssembler{}
	tl := logger.NewTestLogger()

	c := New(ext, mustTemplates(t, xyTemplates), asm, tl)
	report, err := c.Run(context.Background(), []string{"missing.pdf", "good.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"missing.pdf"}, report.SkippedDocuments)
	assert.Equal(t, 1, report.TotalPages)
	assert.Equal(t, 1, report.Matched)
	assert.Contains(t, tl.Messages("WARN"), "skipping document that failed to open")
}

func TestRunFailsWhenNoDocumentOpens(t *testing.T) {
	c := New(&fakeExtractor{}, nil, &fakeAssembler{}, logger.NewTestLogger())
	report, err := c.Run(context.Background(), []string{"a.pdf", "b.pdf"}, t.TempDir())

	require.Error(t, err)
	assert.True(t, models.IsBatchError(err))
	assert.Nil(t, report)
}

func TestRunUnmatchedPagesCountedButNeverRouted(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"no keywords", "none here either"}},
	}}
	asm := &fakeAssembler{}
	rec := &progressRecorder{}
	tl := logger.NewTestLogger()

	c := New(ext, mustTemplates(t, xyTemplates), asm, tl,
		WithProgress(rec.record))
	report, err := c.Run(context.Background(), []string{"a.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Unmatched)
	assert.Empty(t, asm.buckets, "unmatched pages produce no bucket entries")

	_, atOne, _ := rec.completions()
	assert.Equal(t, 1, atOne, "unmatched pages still complete the run")

	var warns []logger.LogEntry
	for _, e := range tl.GetEntries() {
		if e.Message == "page not matched to any category" {
			warns = append(warns, e)
		}
	}
	require.Len(t, warns, 2, "every unmatched page is warned about")
	for _, e := range warns {
		assert.Contains(t, e.Fields, logger.String("run_id", report.RunID))
		assert.Contains(t, e.Fields, logger.String("document", "a.pdf"))
	}
}

func TestRunWithEmptyTemplates(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY would match"}},
	}}
	asm := &fakeAssembler{}

	c := New(ext, nil, asm, logger.NewTestLogger())
	report, err := c.Run(context.Background(), []string{"a.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Unmatched, "empty rule set classifies everything as unmatched")
}

func TestRunExtractsFieldsForMatchedPages(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY order ORD-4711 enclosed"}},
	}}
	asm := &fakeAssembler{}

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger())
	_, err := c.Run(context.Background(), []string{"a.pdf"}, t.TempDir())
	require.NoError(t, err)

	pages := asm.buckets["X"]
	require.Len(t, pages, 1)
	assert.Equal(t, "ORD-4711", pages[0].Fields["order_number"])
}

func TestRunRecordsAssemblyFailures(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY"}},
	}}
	asm := &fakeAssembler{failures: map[string]error{"X": errors.New("disk full")}}

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger())
	report, err := c.Run(context.Background(), []string{"a.pdf"}, t.TempDir())
	require.NoError(t, err, "assembly failures are category-scoped, not run-fatal")

	assert.Equal(t, map[string]string{"X": "disk full"}, report.AssemblyErrors)
}

func TestRunCancelledSkipsAssembly(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"a.pdf": {pages: []string{"XRAY 1", "XRAY 2"}},
	}}
	asm := &fakeAssembler{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(ext, mustTemplates(t, xyTemplates), asm, logger.NewTestLogger())
	report, err := c.Run(ctx, []string{"a.pdf"}, t.TempDir())

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report, "partial report still returned on cancellation")
	assert.Zero(t, asm.calls, "assembly skipped on cancellation")
}

func TestRunWithZeroPages(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*fakeDoc{
		"empty.pdf": {},
	}}
	asm := &fakeAssembler{}
	rec := &progressRecorder{}

	c := New(ext, nil, asm, logger.NewTestLogger(), WithProgress(rec.record))
	report, err := c.Run(context.Background(), []string{"empty.pdf"}, t.TempDir())
	require.NoError(t, err)

	assert.Zero(t, report.TotalPages)
	_, atOne, _ := rec.completions()
	assert.Equal(t, 1, atOne, "empty batches still report completion")
}
