package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Mahanbrianj98/PDF-Restructure/config"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/assemble"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/batch"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/extract"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
	"github.com/Mahanbrianj98/PDF-Restructure/internal/template"
	"github.com/Mahanbrianj98/PDF-Restructure/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:      "pdfsort",
		Usage:     "classify scanned PDF pages against templates and route them into per-category artifacts",
		ArgsUsage: "<input.pdf> [input.pdf ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config file"},
			&cli.StringFlag{Name: "templates", Aliases: []string{"t"}, Usage: "path to template rule-set JSON"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output root directory"},
			&cli.StringFlag{Name: "mode", Usage: "output mode: images or pdf"},
			&cli.StringFlag{Name: "engine", Usage: "text extraction engine: native or ocr"},
			&cli.Float64Flag{Name: "dpi", Usage: "rasterization resolution"},
			&cli.IntFlag{Name: "workers", Usage: "worker pool size (0 = host parallelism)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	docs := c.Args().Slice()
	if len(docs) == 0 {
		return cli.Exit("no input documents given", 1)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("templates") {
		cfg.Templates = c.String("templates")
	}
	if c.IsSet("out") {
		cfg.OutputRoot = c.String("out")
	}
	if c.IsSet("mode") {
		cfg.Mode = c.String("mode")
	}
	if c.IsSet("engine") {
		cfg.Engine = c.String("engine")
	}
	if c.IsSet("dpi") {
		cfg.DPI = c.Float64("dpi")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(cfg.Log.OutputPaths),
	)
	if err != nil {
		return err
	}
	defer log.Sync()

	templates, err := template.Load(cfg.Templates)
	if err != nil {
		// A missing or malformed rule set degrades to an empty one; every
		// page then reports as unmatched.
		log.Warn("template source unavailable, classifying without rules",
			logger.String("path", cfg.Templates),
			logger.Error(err),
		)
		templates = nil
	}

	mode, err := assemble.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	engine, err := extract.ParseEngine(cfg.Engine)
	if err != nil {
		return err
	}

	extractor := extract.NewFitzExtractor(log, extract.Options{
		Engine:    engine,
		DPI:       cfg.DPI,
		Languages: cfg.OCRLanguages,
	})
	assembler := assemble.New(log, mode, cfg.NameField)

	progress := &progressPrinter{out: os.Stderr}
	coordinator := batch.New(extractor, templates, assembler, log,
		batch.WithWorkers(cfg.Workers),
		batch.WithProgress(progress.print),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := coordinator.Run(ctx, docs, cfg.OutputRoot)
	fmt.Fprintln(os.Stderr)
	if report != nil {
		printSummary(report)
	}
	return runErr
}

// progressPrinter rewrites one terminal line per progress update. The
// callback fires from worker goroutines, so writes are serialized to keep
// the carriage-return lines intact.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *progressPrinter) print(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\rprocessing: %3.0f%%", fraction*100)
}

func printSummary(report *models.RunReport) {
	fmt.Printf("run %s: %d pages (%d matched, %d unmatched, %d failed) in %s\n",
		report.RunID, report.TotalPages, report.Matched, report.Unmatched,
		report.Failed, report.Elapsed.Round(time.Millisecond))
	for _, doc := range report.SkippedDocuments {
		fmt.Printf("  skipped: %s\n", doc)
	}
	for category, msg := range report.AssemblyErrors {
		fmt.Printf("  assembly failed for %s: %s\n", category, msg)
	}
}
