package navbar

import (
	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
)

// fakeDocument is a dom.Document with hand-placed headings
type fakeDocument struct {
	scheduler schedule.Scheduler
	elements  []*fakeElement
	hash      string
	scrollTop map[string]float64
	scrolls   []dom.ScrollOptions
	hashes    []string
	listeners map[dom.EventKind][]*func()
}

type fakeElement struct {
	level  int
	text   string
	top    float64
	dataID string
}

func (e *fakeElement) Level() int          { return e.level }
func (e *fakeElement) Text() string        { return e.text }
func (e *fakeElement) OffsetTop() float64  { return e.top }
func (e *fakeElement) DataID() string      { return e.dataID }
func (e *fakeElement) SetDataID(id string) { e.dataID = id }

func newFakeDocument(scheduler schedule.Scheduler, elements ...*fakeElement) *fakeDocument {
	return &fakeDocument{
		scheduler: scheduler,
		elements:  elements,
		scrollTop: make(map[string]float64),
		listeners: make(map[dom.EventKind][]*func()),
	}
}

func el(level int, text string, top float64) *fakeElement {
	return &fakeElement{level: level, text: text, top: top}
}

func (d *fakeDocument) HeadingElements(level int) []dom.Element {
	var out []dom.Element
	for _, e := range d.elements {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

func (d *fakeDocument) AllHeadingElements() []dom.Element {
	out := make([]dom.Element, len(d.elements))
	for i, e := range d.elements {
		out[i] = e
	}
	return out
}

func (d *fakeDocument) ElementByDataID(id string) (dom.Element, bool) {
	for _, e := range d.elements {
		if id != "" && e.dataID == id {
			return e, true
		}
	}
	return nil, false
}

func (d *fakeDocument) Hash() string { return d.hash }

func (d *fakeDocument) ReplaceHash(fragment string) {
	d.hash = fragment
	d.hashes = append(d.hashes, fragment)
}

func (d *fakeDocument) ScrollTop(container string) float64 { return d.scrollTop[container] }

func (d *fakeDocument) ScrollTo(container string, opts dom.ScrollOptions) {
	d.scrolls = append(d.scrolls, opts)
	d.scrollTop[container] = opts.Top
}

func (d *fakeDocument) Subscribe(kind dom.EventKind, fn func()) func() {
	ref := &fn
	d.listeners[kind] = append(d.listeners[kind], ref)
	return func() {
		ls := d.listeners[kind]
		for i, l := range ls {
			if l == ref {
				d.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// userScroll moves the window and notifies listeners on the next tick
func (d *fakeDocument) userScroll(top float64) {
	d.scrollTop[""] = top
	d.fire(dom.EventScroll)
}

// navigate changes the hash like the back button would
func (d *fakeDocument) navigate(hash string) {
	d.hash = hash
	d.fire(dom.EventHashChange)
}

func (d *fakeDocument) fire(kind dom.EventKind) {
	for _, l := range d.listeners[kind] {
		d.scheduler.AfterFunc(0, *l)
	}
}
