// Package navbar keeps a markdown outline's active heading in sync with a page's scroll
// position and URL fragment.
//
// An Engine is single-threaded: every method, and every callback it schedules, must run on
// the goroutine that drives its scheduler (a schedule.Loop, or the caller of
// schedule.Virtual.Advance).
package navbar

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
	"github.com/Sriram-PR/md-navbar/pkg/throttle"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

// Engine is the scroll-sync state machine
type Engine struct {
	doc       dom.Document
	scheduler schedule.Scheduler
	opts      Options
	log       *logrus.Entry

	source   string
	headings []outline.Heading
	current  string
	locked   bool
	mounted  bool

	settleTimer schedule.Timer
	scrollTimer schedule.Timer
	hashTimer   schedule.Timer
	onScroll    *throttle.Throttle[struct{}]
	unsubscribe []func()
}

// Item is one row of the rendered navigation list
type Item struct {
	outline.Heading
	ID     string `json:"id"`
	Label  string `json:"label"` // list number when ordered, empty otherwise
	Active bool   `json:"active"`
}

// NewEngine creates an engine bound to doc. Nothing happens until Mount.
func NewEngine(doc dom.Document, scheduler schedule.Scheduler, opts Options, log *logrus.Entry) *Engine {
	opts.normalize()
	e := &Engine{
		doc:       doc,
		scheduler: scheduler,
		opts:      opts,
		log:       log,
	}
	e.onScroll = throttle.New(func(struct{}) { e.syncToScroll() }, opts.ThrottleWindow, scheduler)
	return e
}

// Mount extracts the outline of source and, once the settle delay has passed, binds the
// rendered headings, activates the first heading (or the one named by the fragment) and
// starts listening for scroll and hashchange notifications.
func (e *Engine) Mount(source string) {
	if e.mounted {
		e.OnSourceReplaced(source)
		return
	}
	e.mounted = true
	e.locked = true
	e.source = source
	e.headings = e.opts.Extractor(source)
	e.log.WithField("headings", len(e.headings)).Debug("Outline extracted")

	e.settleTimer = e.scheduler.AfterFunc(e.opts.SettleDelay, func() {
		e.settleTimer = nil
		e.settle(true)
	})
}

// OnSourceReplaced swaps in a new markdown source. The active heading is cleared and scroll
// updates are suppressed until the settle delay has passed and the new headings are bound.
func (e *Engine) OnSourceReplaced(source string) {
	if !e.mounted {
		e.Mount(source)
		return
	}
	if source == e.source {
		// A re-render of the same text drops the page's tags; a pending settle rebinds anyway
		if !e.locked {
			e.bindHeadings()
		}
		return
	}
	if e.settleTimer != nil {
		e.settleTimer.Stop()
	}
	e.locked = true
	e.source = source

	e.doc.ScrollTo(e.opts.Container, dom.ScrollOptions{Top: 0, Behavior: e.opts.Behavior})
	e.setCurrent("")
	for _, el := range e.doc.AllHeadingElements() {
		el.SetDataID("")
	}

	e.headings = e.opts.Extractor(source)
	e.log.WithField("headings", len(e.headings)).Debug("Outline replaced")

	e.settleTimer = e.scheduler.AfterFunc(e.opts.SettleDelay, func() {
		e.settleTimer = nil
		e.settle(false)
	})
}

func (e *Engine) settle(initial bool) {
	restored, ok := e.bindHeadings()

	if len(e.headings) > 0 {
		e.setCurrent(e.headings[0].ListNo)
	}
	if initial && ok {
		e.setCurrent(restored.ListNo)
		e.scrollToTarget(e.headingID(restored))
	}
	e.locked = false

	if len(e.unsubscribe) == 0 {
		e.unsubscribe = append(e.unsubscribe,
			e.doc.Subscribe(dom.EventScroll, e.OnScroll),
			e.doc.Subscribe(dom.EventHashChange, e.OnHashChanged),
		)
	}
}

// bindHeadings tags the first untagged rendered element whose level and text match each
// heading. It returns the heading named by the current fragment, if one was bound.
func (e *Engine) bindHeadings() (outline.Heading, bool) {
	hashID := outline.ParseHashID(e.doc.Hash(), e.opts.Declarative)

	var restored outline.Heading
	found := false
	for _, h := range e.headings {
		for _, el := range e.doc.HeadingElements(h.Level) {
			if el.DataID() != "" || strings.TrimSpace(el.Text()) != h.Text {
				continue
			}
			id := e.headingID(h)
			el.SetDataID(id)
			if hashID != "" && hashID == id {
				restored, found = h, true
			}
			break
		}
	}
	return restored, found
}

// OnScroll feeds a scroll notification through the throttle
func (e *Engine) OnScroll() {
	e.onScroll.Invoke(struct{}{})
}

type binding struct {
	heading outline.Heading
	id      string
	top     float64
}

// resolveBindings pairs headings with rendered elements, preferring the element carrying the
// heading's id and falling back to a text match at an offset not already claimed.
func (e *Engine) resolveBindings() []binding {
	var out []binding
	used := make(map[float64]bool)
	for _, h := range e.headings {
		id := e.headingID(h)
		el, ok := e.doc.ElementByDataID(id)
		if !ok || el.Level() != h.Level {
			el, ok = nil, false
			for _, candidate := range e.doc.HeadingElements(h.Level) {
				if strings.TrimSpace(candidate.Text()) == h.Text && !used[candidate.OffsetTop()] {
					el, ok = candidate, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		used[el.OffsetTop()] = true
		out = append(out, binding{heading: h, id: id, top: el.OffsetTop()})
	}
	return out
}

func (e *Engine) syncToScroll() {
	if e.locked || !e.mounted {
		return
	}

	scrollTop := e.doc.ScrollTop(e.opts.Container)
	var best *binding
	bestDistance := math.Inf(1)
	bindings := e.resolveBindings()
	for i := range bindings {
		d := math.Abs(scrollTop + e.opts.HeadingTopOffset - bindings[i].top)
		if d < bestDistance {
			best, bestDistance = &bindings[i], d
		}
	}
	if best == nil || best.heading.ListNo == e.current {
		return
	}

	e.log.WithFields(logrus.Fields{"scroll_top": scrollTop, "list_no": best.heading.ListNo}).Debug("Scroll selected heading")
	if e.opts.UpdateHashAuto && e.opts.HashMode {
		old := e.currentHashValue()
		if best.id != old && e.opts.OnHashChange != nil {
			e.opts.OnHashChange(best.id, old)
		}
		e.updateHash(best.id)
	}
	e.setCurrent(best.heading.ListNo)
}

// OnHashChanged re-resolves the active heading from the fragment and scrolls to it.
// Ignored while the engine is locked for a source change.
func (e *Engine) OnHashChanged() {
	if !e.mounted || e.locked {
		return
	}
	id := outline.ParseHashID(e.doc.Hash(), e.opts.Declarative)
	if h, ok := outline.Find(e.headings, id, e.opts.Declarative); ok {
		e.setCurrent(h.ListNo)
	}
	if h, ok := outline.FindByListNo(e.headings, e.current); ok {
		e.scrollToTarget(e.headingID(h))
	}
}

// OnItemClicked activates the heading with the given id and scrolls to it.
// An id not in the outline returns ErrUnknownHeading and changes nothing. After Unmount
// clicks are ignored.
func (e *Engine) OnItemClicked(id string) error {
	if !e.mounted {
		return nil
	}
	h, ok := outline.Find(e.headings, id, e.opts.Declarative)
	if !ok {
		return fmt.Errorf("%w: %s", utils.ErrUnknownHeading, id)
	}
	e.log.WithFields(logrus.Fields{"heading_id": id, "list_no": h.ListNo}).Debug("Item clicked")

	if h.ListNo != e.current && e.opts.OnHashChange != nil {
		e.opts.OnHashChange(id, e.currentHashValue())
	}
	if e.opts.OnNavItemClick != nil {
		e.opts.OnNavItemClick(id)
	}
	if e.opts.HashMode {
		e.updateHash(id)
	}
	e.scrollToTarget(id)
	e.setCurrent(h.ListNo)
	return nil
}

// Unmount cancels every pending deferral and stops listening. The outline and active heading
// stay readable.
func (e *Engine) Unmount() {
	for _, t := range []schedule.Timer{e.settleTimer, e.scrollTimer, e.hashTimer} {
		if t != nil {
			t.Stop()
		}
	}
	e.settleTimer, e.scrollTimer, e.hashTimer = nil, nil, nil
	e.onScroll.Stop()
	for _, unsubscribe := range e.unsubscribe {
		unsubscribe()
	}
	e.unsubscribe = nil
	e.mounted = false
	e.locked = false
}

// scrollToTarget scrolls to the element tagged id on the next tick, superseding any
// scroll request still pending
func (e *Engine) scrollToTarget(id string) {
	if e.scrollTimer != nil {
		e.scrollTimer.Stop()
	}
	e.scrollTimer = e.scheduler.AfterFunc(0, func() {
		e.scrollTimer = nil
		el, ok := e.doc.ElementByDataID(id)
		if !ok {
			e.log.WithField("heading_id", id).Debug("Scroll target not rendered")
			return
		}
		e.doc.ScrollTo(e.opts.Container, dom.ScrollOptions{
			Top:      el.OffsetTop() - e.opts.HeadingTopOffset,
			Behavior: e.opts.Behavior,
		})
	})
}

// updateHash writes the fragment on the next tick, superseding any write still pending
func (e *Engine) updateHash(id string) {
	if e.hashTimer != nil {
		e.hashTimer.Stop()
	}
	e.hashTimer = e.scheduler.AfterFunc(0, func() {
		e.hashTimer = nil
		e.doc.ReplaceHash("#" + url.PathEscape(id))
	})
}

func (e *Engine) currentHashValue() string {
	raw := strings.TrimPrefix(e.doc.Hash(), "#")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (e *Engine) setCurrent(listNo string) {
	if listNo == e.current {
		return
	}
	old := e.current
	e.current = listNo
	if e.opts.OnActiveChange != nil {
		e.opts.OnActiveChange(old, listNo)
	}
}

func (e *Engine) headingID(h outline.Heading) string {
	return outline.HeadingID(h, e.opts.Declarative)
}

// Headings returns a copy of the current outline
func (e *Engine) Headings() []outline.Heading {
	return append([]outline.Heading(nil), e.headings...)
}

// CurrentListNo returns the active list number, "" before the first settle or while an
// outline replacement is settling
func (e *Engine) CurrentListNo() string {
	return e.current
}

// Locked reports whether scroll-driven updates are suppressed
func (e *Engine) Locked() bool {
	return e.locked
}

// Mounted reports whether the engine is between Mount and Unmount
func (e *Engine) Mounted() bool {
	return e.mounted
}

// Items returns the navigation rows for presentation
func (e *Engine) Items() []Item {
	items := make([]Item, len(e.headings))
	for i, h := range e.headings {
		items[i] = Item{
			Heading: h,
			ID:      e.headingID(h),
			Active:  h.ListNo == e.current,
		}
		if e.opts.Ordered {
			items[i].Label = h.ListNo
		}
	}
	return items
}
