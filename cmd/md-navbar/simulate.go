package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/navbar"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
	"github.com/Sriram-PR/md-navbar/pkg/source"
)

// Extra wait on top of settle + throttle so trailing throttle calls land before the next step
const pauseMargin = 50 * time.Millisecond

const (
	stepScroll   = "scroll"
	stepClick    = "click"
	stepNavigate = "navigate"
	stepReplace  = "replace"
)

type step struct {
	kind  string
	value string
	top   float64
}

// stepFlag appends steps in command-line order, so flags of different kinds interleave
type stepFlag struct {
	kind  string
	steps *[]step
}

func (f stepFlag) String() string { return "" }

func (f stepFlag) Set(value string) error {
	if f.kind != stepScroll {
		*f.steps = append(*f.steps, step{kind: f.kind, value: value})
		return nil
	}
	for _, part := range splitList(value) {
		top, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("invalid scroll offset %q", part)
		}
		*f.steps = append(*f.steps, step{kind: stepScroll, value: part, top: top})
	}
	return nil
}

type simulateOptions struct {
	configPath string
	docKey     string
	file       string
	hash       string
	steps      []step
	pause      time.Duration
	logLevel   string
}

// runSimulate handles the simulate subcommand
func runSimulate(args []string) {
	var steps []step
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	docKey := fs.String("doc", "", "Document key from config")
	file := fs.String("file", "", "Markdown or HTML file, or http(s) URL")
	hash := fs.String("hash", "", "Initial URL fragment (default: last saved fragment when the state store is enabled)")
	pause := fs.Duration("pause", 0, "Wait between steps (default: settle delay + throttle window)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")
	fs.Var(stepFlag{stepScroll, &steps}, "scroll", "Scroll to offsets in pixels, comma-separated (repeatable)")
	fs.Var(stepFlag{stepClick, &steps}, "click", "Click the navigation item with this heading id (repeatable)")
	fs.Var(stepFlag{stepNavigate, &steps}, "navigate", "Change the URL fragment (repeatable)")
	fs.Var(stepFlag{stepReplace, &steps}, "replace", "Replace the source with this file or URL (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: md-navbar simulate (-doc key | -file path) [steps]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSteps run in the order given. Examples:\n")
		fmt.Fprintf(os.Stderr, "  md-navbar simulate -file README.md -scroll 0,500,1200\n")
		fmt.Fprintf(os.Stderr, "  md-navbar simulate -doc guide -click heading-3 -navigate '#heading-1'\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signalContext()
	code := doSimulate(ctx, simulateOptions{
		configPath: *configFile,
		docKey:     *docKey,
		file:       *file,
		hash:       *hash,
		steps:      steps,
		pause:      *pause,
		logLevel:   *logLevel,
	}, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// doSimulate mounts an engine on a headless page, runs the steps on the event loop and prints
// every active-heading and fragment change.
// Returns exit code (0 = every step applied, 1 = otherwise).
func doSimulate(ctx context.Context, opts simulateOptions, stdout, stderr io.Writer) int {
	_, log := setupLogger(opts.logLevel, stderr, "simulate")

	if (opts.docKey == "") == (opts.file == "") {
		fmt.Fprintln(stderr, "Error: exactly one of -doc or -file is required")
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

	loader := source.NewLoader(*appCfg, log)
	var doc *source.Document
	var docCfg config.DocumentConfig
	if opts.docKey != "" {
		jobs, jobErr := batch.JobsFromConfig(appCfg, []string{opts.docKey})
		if jobErr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", jobErr)
			return 1
		}
		docCfg = jobs[0].Doc
		doc, err = loader.Load(ctx, opts.docKey, docCfg)
	} else {
		doc, err = loader.LoadLocation(ctx, opts.file)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	store, err := openStore(ctx, appCfg, log)
	if err != nil {
		log.Warnf("State store unavailable, the fragment will not be saved: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	initialHash := opts.hash
	if initialHash == "" && store != nil {
		if state, found, getErr := store.GetNavState(doc.Key); getErr != nil {
			log.Warnf("Reading saved navigation state failed: %v", getErr)
		} else if found {
			initialHash = state.Hash
			log.Infof("Restoring saved fragment %s", initialHash)
		}
	}

	settings := config.GetEffectiveNavbar(docCfg, *appCfg)
	navOpts := navbar.OptionsFromSettings(settings, config.GetEffectiveExtractor(docCfg, *appCfg))
	pause := opts.pause
	if pause <= 0 {
		pause = navOpts.SettleDelay + navOpts.ThrottleWindow + pauseMargin
	}

	loop := schedule.NewLoop()
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go loop.Run(loopCtx)

	var page *dom.Page
	var engine *navbar.Engine
	page, err = dom.NewPage(doc.Markdown, loop,
		dom.WithLayout(appCfg.Layout),
		dom.WithLogger(log),
		dom.WithHash(initialHash),
		dom.WithHashObserver(func(hash string) {
			fmt.Fprintf(stdout, "hash     %s\n", hash)
			if store == nil {
				return
			}
			entry := &models.NavStateEntry{
				DocKey:      doc.Key,
				Hash:        hash,
				ListNo:      engine.CurrentListNo(),
				ScrollTop:   page.ScrollTop(settings.Container),
				ContentHash: doc.ContentHash,
			}
			if err := store.SaveNavState(entry); err != nil {
				log.Warnf("Saving navigation state failed: %v", err)
			}
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	navOpts.OnActiveChange = func(_, listNo string) {
		fmt.Fprintf(stdout, "active   %s\n", describeListNo(engine.Headings(), listNo))
	}
	navOpts.OnNavItemClick = func(id string) {
		log.WithField("heading_id", id).Info("Navigation item clicked")
	}
	navOpts.OnHashChange = func(newHash, oldHash string) {
		log.Debugf("Hash change requested: %q -> %q", oldHash, newHash)
	}
	engine = navbar.NewEngine(page, loop, navOpts, log)

	if err := loop.Do(ctx, func() {
		engine.Mount(doc.Markdown)
		fmt.Fprintf(stdout, "mount    %s (%d headings)\n", doc.Key, len(engine.Headings()))
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !sleepCtx(ctx, pause) {
		return 1
	}

	failed := false
	for _, st := range opts.steps {
		replacement := ""
		if st.kind == stepReplace {
			next, loadErr := loader.LoadLocation(ctx, st.value)
			if loadErr != nil {
				fmt.Fprintf(stderr, "Error: replace %s: %v\n", st.value, loadErr)
				failed = true
				continue
			}
			replacement = next.Markdown
		}

		var stepErr error
		err := loop.Do(ctx, func() {
			fmt.Fprintf(stdout, "%-8s %s\n", st.kind, st.value)
			switch st.kind {
			case stepScroll:
				page.UserScroll(settings.Container, st.top)
			case stepClick:
				stepErr = engine.OnItemClicked(st.value)
			case stepNavigate:
				page.Navigate(st.value)
			case stepReplace:
				if stepErr = page.Load(replacement); stepErr == nil {
					engine.OnSourceReplaced(replacement)
				}
			}
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if stepErr != nil {
			fmt.Fprintf(stderr, "Error: %s %s: %v\n", st.kind, st.value, stepErr)
			failed = true
			continue
		}
		if !sleepCtx(ctx, pause) {
			return 1
		}
	}

	if err := loop.Do(ctx, func() {
		fmt.Fprintf(stdout, "final    scroll_top=%g hash=%s\n", page.ScrollTop(settings.Container), page.Hash())
		for _, item := range engine.Items() {
			marker := " "
			if item.Active {
				marker = "*"
			}
			label := item.Label
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(stdout, "%s %s%s %s [%s]\n", marker, strings.Repeat("  ", strings.Count(item.ListNo, ".")), label, item.Text, item.ID)
		}
		engine.Unmount()
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if failed {
		return 1
	}
	return 0
}

func describeListNo(headings []outline.Heading, listNo string) string {
	if listNo == "" {
		return "(none)"
	}
	if h, ok := outline.FindByListNo(headings, listNo); ok {
		return listNo + " " + h.Text
	}
	return listNo
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
