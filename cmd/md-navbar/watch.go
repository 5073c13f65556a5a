package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/navbar"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
	"github.com/Sriram-PR/md-navbar/pkg/source"
	"github.com/Sriram-PR/md-navbar/pkg/watch"
)

type watchOptions struct {
	configPath string
	docKeys    []string
	files      []string
	interval   time.Duration
	logLevel   string
}

// runWatch handles the watch subcommand
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	docs := fs.String("doc", "", "Comma-separated document keys from config (default: all)")
	interval := fs.String("interval", "1s", "Poll interval (e.g., 500ms, 1s, 5m, 1d)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: md-navbar watch [options] [file or URL ...]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  md-navbar watch README.md -interval 500ms\n")
		fmt.Fprintf(os.Stderr, "  md-navbar watch -doc guide,api -interval 5m\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	d, err := watch.ParseInterval(*interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid interval: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	code := doWatch(ctx, watchOptions{
		configPath: *configFile,
		docKeys:    splitList(*docs),
		files:      fs.Args(),
		interval:   d,
		logLevel:   *logLevel,
	}, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// watchedDoc is one document followed by its own page and engine
type watchedDoc struct {
	key    string
	page   *dom.Page
	engine *navbar.Engine
}

// doWatch polls the documents until ctx ends. Every change is replayed to the document's
// engine on a shared event loop and the new outline is printed.
// Returns exit code (0 = stopped cleanly, 1 = setup failed).
func doWatch(ctx context.Context, opts watchOptions, stdout, stderr io.Writer) int {
	_, log := setupLogger(opts.logLevel, stderr, "watch")

	appCfg, warnings, err := loadAndValidateConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	var jobs []batch.Job
	if len(opts.files) > 0 {
		jobs, err = batch.JobsFromLocations(opts.files)
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

	loop := schedule.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	loader := source.NewLoader(*appCfg, log)
	state := watch.NewStateManager(appCfg.StateDir)
	watcher := watch.NewWatcher(loader, jobs, opts.interval, state, nil, log)
	watcher.Persist = true

	var docs []*watchedDoc
	for _, job := range jobs {
		doc, err := newWatchedDoc(job, appCfg, loop, stdout, log.WithField("doc", job.Key))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		docs = append(docs, doc)
		watcher.Route(job.Key, watch.HandlerFunc(func(ev navbar.Event) error {
			var handleErr error
			if err := loop.Do(ctx, func() { handleErr = doc.replay(ev, stdout) }); err != nil {
				return err
			}
			return handleErr
		}))
	}

	if err := watcher.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	loop.Do(context.Background(), func() {
		for _, doc := range docs {
			doc.engine.Unmount()
		}
	})
	return 0
}

func newWatchedDoc(job batch.Job, appCfg *config.AppConfig, loop *schedule.Loop, stdout io.Writer, log *logrus.Entry) (*watchedDoc, error) {
	page, err := dom.NewPage("", loop, dom.WithLayout(appCfg.Layout), dom.WithLogger(log))
	if err != nil {
		return nil, err
	}
	doc := &watchedDoc{key: job.Key, page: page}

	navOpts := navbar.OptionsFromSettings(config.GetEffectiveNavbar(job.Doc, *appCfg), config.GetEffectiveExtractor(job.Doc, *appCfg))
	navOpts.OnActiveChange = func(_, listNo string) {
		fmt.Fprintf(stdout, "[%s] active %s\n", doc.key, describeListNo(doc.engine.Headings(), listNo))
	}
	doc.engine = navbar.NewEngine(page, loop, navOpts, log)
	return doc, nil
}

// replay renders the new source and hands the event to the engine. Runs on the loop.
func (d *watchedDoc) replay(ev navbar.Event, stdout io.Writer) error {
	if replaced, ok := ev.(navbar.SourceReplaced); ok {
		if err := d.page.Load(replaced.Source); err != nil {
			return err
		}
	}
	if err := d.engine.Handle(ev); err != nil {
		return err
	}

	headings := d.engine.Headings()
	fmt.Fprintf(stdout, "[%s] outline (%d headings)\n", d.key, len(headings))
	for _, h := range headings {
		fmt.Fprintf(stdout, "[%s] %s%s %s\n", d.key, strings.Repeat("  ", strings.Count(h.ListNo, ".")+1), h.ListNo, h.Text)
	}
	return nil
}
