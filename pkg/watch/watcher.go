// Package watch polls document sources and replays content changes to a navbar engine.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/navbar"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
	"github.com/Sriram-PR/md-navbar/pkg/source"
)

// Handler receives replayed events; *navbar.Engine satisfies it
type Handler interface {
	Handle(ev navbar.Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ev navbar.Event) error

// Handle calls f(ev)
func (f HandlerFunc) Handle(ev navbar.Event) error { return f(ev) }

// Watcher polls jobs every interval and emits SourceReplaced when a source's content changes
type Watcher struct {
	loader   *source.Loader
	jobs     []batch.Job
	interval time.Duration
	state    *StateManager
	handler  Handler
	routes   map[string]Handler
	log      *logrus.Entry

	// Persist writes the state file after every poll
	Persist bool
}

// NewWatcher creates a Watcher. handler may be nil when only the log output matters.
func NewWatcher(loader *source.Loader, jobs []batch.Job, interval time.Duration, state *StateManager, handler Handler, log *logrus.Entry) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		loader:   loader,
		jobs:     jobs,
		interval: interval,
		state:    state,
		handler:  handler,
		log:      log,
	}
}

// Route sends changes of docKey to h instead of the default handler
func (w *Watcher) Route(docKey string, h Handler) {
	if w.routes == nil {
		w.routes = make(map[string]Handler)
	}
	w.routes[docKey] = h
}

// Run polls until ctx is done. The first poll happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.state.Load(); err != nil {
		w.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}
	w.log.Infof("Watching %d document(s) every %s", len(w.jobs), FormatInterval(w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Watcher shutting down...")
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks every job once and returns the keys whose content changed
func (w *Watcher) Poll(ctx context.Context) []string {
	var changed []string
	for _, job := range w.jobs {
		if ctx.Err() != nil {
			break
		}
		if w.check(ctx, job) {
			changed = append(changed, job.Key)
		}
	}
	if w.Persist {
		if err := w.state.Save(); err != nil {
			w.log.Errorf("Failed to save watch state: %v", err)
		}
	}
	return changed
}

func (w *Watcher) check(ctx context.Context, job batch.Job) bool {
	docLog := w.log.WithField("doc", job.Key)
	doc, err := w.loader.Load(ctx, job.Key, job.Doc)
	if err != nil {
		prev, _ := w.state.Get(job.Key)
		if prev.ErrorMessage != err.Error() {
			docLog.Warnf("Poll failed: %v", err)
		}
		w.state.RecordCheck(job.Key, "", 0, err)
		return false
	}

	extractor := w.loader.Extractor(job.Doc)
	headings := outline.ExtractorByName(extractor)(doc.Markdown)
	if !w.state.RecordCheck(job.Key, doc.ContentHash, len(headings), nil) {
		return false
	}

	docLog.WithFields(logrus.Fields{"headings": len(headings), "extractor": extractor}).Info("Source changed")
	for _, h := range headings {
		docLog.Debugf("  %s %s", h.ListNo, h.Text)
	}
	handler := w.handler
	if routed, ok := w.routes[job.Key]; ok {
		handler = routed
	}
	if handler != nil {
		if err := handler.Handle(navbar.SourceReplaced{Source: doc.Markdown}); err != nil {
			docLog.Errorf("Replaying change failed: %v", err)
		}
	}
	return true
}

// FormatInterval formats a duration compactly, using days above 24h
func FormatInterval(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if mins := int(d.Minutes()) % 60; mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a Go duration, additionally accepting a leading day count ("7d", "1d12h")
func ParseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var days int
	var remaining string
	if n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining); n >= 1 {
		d := time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		return d, nil
	}
	return 0, fmt.Errorf("invalid interval format: %s (examples: 500ms, 5s, 1m, 1d)", s)
}
