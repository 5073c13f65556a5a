package dom

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/log"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

const dataIDAttr = "data-id"

// Page is a headless Document. Markdown is rendered to HTML with goldmark, headings are
// queried with goquery and positioned by a simple block layout. Notifications are delivered
// through the scheduler on the next tick.
type Page struct {
	scheduler schedule.Scheduler
	layout    config.LayoutConfig
	log       *logrus.Entry
	onHash    func(hash string)
	markdown  goldmark.Markdown

	mu        sync.Mutex
	doc       *goquery.Document
	elements  []*pageElement
	height    float64
	hash      string
	scrolls   map[string]float64
	commands  []ScrollCommand
	listeners map[EventKind][]listener
	nextID    int
}

// ScrollCommand records a ScrollTo call received by the page
type ScrollCommand struct {
	Container string        `json:"container"`
	Options   ScrollOptions `json:"options"`
}

type listener struct {
	id int
	fn func()
}

// PageOption configures a Page
type PageOption func(*Page)

// WithLayout sets the layout metrics; unset metrics keep their defaults
func WithLayout(layout config.LayoutConfig) PageOption {
	return func(p *Page) { p.layout = layout.WithDefaults() }
}

// WithLogger sets the page logger
func WithLogger(entry *logrus.Entry) PageOption {
	return func(p *Page) { p.log = entry }
}

// WithHash sets the initial fragment, as if the page was opened with it
func WithHash(hash string) PageOption {
	return func(p *Page) { p.hash = normalizeHash(hash) }
}

// WithHashObserver registers fn to be called with every new fragment, whether written by
// ReplaceHash or by Navigate
func WithHashObserver(fn func(hash string)) PageOption {
	return func(p *Page) { p.onHash = fn }
}

// NewPage renders source and lays it out
func NewPage(source string, scheduler schedule.Scheduler, opts ...PageOption) (*Page, error) {
	p := &Page{
		scheduler: scheduler,
		layout:    config.DefaultLayout(),
		log:       log.Discard(),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		scrolls:   make(map[string]float64),
		listeners: make(map[EventKind][]listener),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Load(source); err != nil {
		return nil, err
	}
	return p, nil
}

// Load replaces the page content with a new markdown source. Existing scroll positions are
// kept but clamped to the new content height; existing elements are detached.
func (p *Page) Load(source string) error {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(source), &buf); err != nil {
		return fmt.Errorf("%w: render markdown: %v", utils.ErrMarkdownConversion, err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return fmt.Errorf("%w: parse rendered page: %v", utils.ErrParsing, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	placed, height := layoutBlocks(doc, p.layout)
	elements := make([]*pageElement, len(placed))
	for i, h := range placed {
		elements[i] = &pageElement{page: p, sel: h.sel, level: h.level, text: h.text, top: h.top}
	}
	p.doc = doc
	p.elements = elements
	p.height = height
	for container, top := range p.scrolls {
		p.scrolls[container] = p.clampLocked(top)
	}

	p.log.WithFields(logrus.Fields{"headings": len(elements), "height": height}).Debug("Page laid out")
	return nil
}

// HeadingElements implements Document
func (p *Page) HeadingElements(level int) []Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Element
	for _, e := range p.elements {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// AllHeadingElements implements Document
func (p *Page) AllHeadingElements() []Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Element, len(p.elements))
	for i, e := range p.elements {
		out[i] = e
	}
	return out
}

// ElementByDataID implements Document
func (p *Page) ElementByDataID(id string) (Element, bool) {
	if id == "" {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.elements {
		if v, _ := e.sel.Attr(dataIDAttr); v == id {
			return e, true
		}
	}
	return nil, false
}

// Hash implements Document
func (p *Page) Hash() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hash
}

// ReplaceHash implements Document
func (p *Page) ReplaceHash(fragment string) {
	hash := normalizeHash(fragment)
	p.mu.Lock()
	p.hash = hash
	p.mu.Unlock()

	p.log.WithField("hash", hash).Debug("Hash replaced")
	if p.onHash != nil {
		p.onHash(hash)
	}
}

// Navigate changes the fragment the way a link or the back button would and raises a
// hashchange notification when it differs from the current one.
func (p *Page) Navigate(fragment string) {
	hash := normalizeHash(fragment)
	p.mu.Lock()
	changed := p.hash != hash
	p.hash = hash
	p.mu.Unlock()

	if !changed {
		return
	}
	if p.onHash != nil {
		p.onHash(hash)
	}
	p.dispatch(EventHashChange)
}

// ScrollTop implements Document
func (p *Page) ScrollTop(container string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls[container]
}

// ScrollTo implements Document. The command is recorded and, like a browser, the page raises
// a scroll notification when the position actually changes.
func (p *Page) ScrollTo(container string, opts ScrollOptions) {
	p.mu.Lock()
	p.commands = append(p.commands, ScrollCommand{Container: container, Options: opts})
	changed := p.setScrollLocked(container, opts.Top)
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"container": container, "top": opts.Top, "behavior": opts.Behavior}).Debug("Scroll command")
	if changed {
		p.dispatch(EventScroll)
	}
}

// UserScroll moves container to top as a user would and raises a scroll notification.
func (p *Page) UserScroll(container string, top float64) {
	p.mu.Lock()
	changed := p.setScrollLocked(container, top)
	p.mu.Unlock()
	if changed {
		p.dispatch(EventScroll)
	}
}

// Commands returns the scroll commands received so far
func (p *Page) Commands() []ScrollCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ScrollCommand(nil), p.commands...)
}

// Height is the laid out content height in pixels
func (p *Page) Height() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// HTML renders the current page, including data-id tags written by the engine
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find("body").Html()
}

// Subscribe implements Document
func (p *Page) Subscribe(kind EventKind, fn func()) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[kind] = append(p.listeners[kind], listener{id: id, fn: fn})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			ls := p.listeners[kind]
			for i, l := range ls {
				if l.id == id {
					p.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
					return
				}
			}
		})
	}
}

// Listeners reports how many callbacks are registered for kind
func (p *Page) Listeners(kind EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[kind])
}

func (p *Page) dispatch(kind EventKind) {
	p.mu.Lock()
	ls := append([]listener(nil), p.listeners[kind]...)
	p.mu.Unlock()

	for _, l := range ls {
		p.scheduler.AfterFunc(0, l.fn)
	}
}

func (p *Page) setScrollLocked(container string, top float64) bool {
	top = p.clampLocked(top)
	if p.scrolls[container] == top {
		return false
	}
	p.scrolls[container] = top
	return true
}

func (p *Page) clampLocked(top float64) float64 {
	maxTop := p.height - p.layout.ViewportHeight
	if top > maxTop {
		top = maxTop
	}
	if top < 0 {
		top = 0
	}
	return top
}

func normalizeHash(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || fragment == "#" {
		return ""
	}
	if !strings.HasPrefix(fragment, "#") {
		return "#" + fragment
	}
	return fragment
}

type pageElement struct {
	page  *Page
	sel   *goquery.Selection
	level int
	text  string
	top   float64
}

func (e *pageElement) Level() int         { return e.level }
func (e *pageElement) Text() string       { return e.text }
func (e *pageElement) OffsetTop() float64 { return e.top }

func (e *pageElement) DataID() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	v, _ := e.sel.Attr(dataIDAttr)
	return v
}

func (e *pageElement) SetDataID(id string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if id == "" {
		e.sel.RemoveAttr(dataIDAttr)
		return
	}
	e.sel.SetAttr(dataIDAttr, id)
}
