package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/source"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
)

type outlineOptions struct {
	configPath string
	docKeys    []string
	inputs     []string
	format     string
	extractor  string
	logLevel   string
}

// runOutline handles the outline subcommand
func runOutline(args []string) {
	fs := flag.NewFlagSet("outline", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	docs := fs.String("doc", "", "Comma-separated document keys from config (default: all)")
	format := fs.String("format", "text", "Output format (text, json, yaml)")
	extractor := fs.String("extractor", "", "Override the outline extractor (pattern, goldmark)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: md-navbar outline [options] [file or URL ...]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  md-navbar outline README.md docs/guide.md\n")
		fmt.Fprintf(os.Stderr, "  md-navbar outline -doc guide -format json\n")
		fmt.Fprintf(os.Stderr, "  md-navbar outline -extractor goldmark https://example.com/docs/intro.html\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signalContext()
	code := doOutline(ctx, outlineOptions{
		configPath: *configFile,
		docKeys:    splitList(*docs),
		inputs:     fs.Args(),
		format:     *format,
		extractor:  *extractor,
		logLevel:   *logLevel,
	}, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// doOutline extracts outlines and writes the report to stdout.
// Returns exit code (0 = every document outlined, 1 = otherwise).
func doOutline(ctx context.Context, opts outlineOptions, stdout, stderr io.Writer) int {
	_, log := setupLogger(opts.logLevel, stderr, "outline")

	switch opts.format {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q (supported: text, json, yaml)\n", opts.format)
		return 1
	}
	switch opts.extractor {
	case "", config.ExtractorPattern, config.ExtractorGoldmark:
	default:
		fmt.Fprintf(stderr, "Error: unknown extractor %q (supported: pattern, goldmark)\n", opts.extractor)
		return 1
	}

	appCfg, warnings, err := loadAndValidateConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	var jobs []batch.Job
	if len(opts.inputs) > 0 {
		jobs, err = batch.JobsFromLocations(opts.inputs)
	} else {
		jobs, err = batch.JobsFromConfig(appCfg, opts.docKeys)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(jobs) == 0 {
		fmt.Fprintln(stderr, "Error: no documents given and none configured")
		return 1
	}
	if opts.extractor != "" {
		for i := range jobs {
			jobs[i].Doc.Extractor = opts.extractor
		}
	}

	store, err := openStore(ctx, appCfg, log)
	if err != nil {
		log.Warnf("State store unavailable, outlines will not be cached: %v", err)
	}
	var cache storage.OutlineCache
	if store != nil {
		defer store.Close()
		cache = store
	}

	loader := source.NewLoader(*appCfg, log)
	report := batch.NewRunner(appCfg, loader, cache, log).Run(ctx, jobs)

	if err := writeReport(stdout, report, opts.format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if report.Counts()[models.SourceStatusSuccess] != len(report.Documents) {
		return 1
	}
	return 0
}

func writeReport(w io.Writer, report models.OutlineReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	for i, doc := range report.Documents {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if doc.Status != models.SourceStatusSuccess {
			fmt.Fprintf(w, "%s (%s) [%s: %s] %s\n", doc.DocKey, doc.Location, doc.Status, doc.ErrorType, doc.Error)
			continue
		}
		cached := ""
		if doc.Cached {
			cached = ", cached"
		}
		fmt.Fprintf(w, "%s (%s) [%d headings, %s%s]\n", doc.DocKey, doc.Location, len(doc.Headings), doc.Extractor, cached)
		for _, h := range doc.Headings {
			fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", strings.Count(h.ListNo, ".")+1), h.ListNo, h.Text)
		}
	}
	return nil
}
