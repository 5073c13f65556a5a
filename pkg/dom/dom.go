// Package dom describes the rendered page the navigation engine observes and drives,
// and provides Page, a headless implementation built from markdown.
package dom

// Behavior is the scroll animation mode
type Behavior string

const (
	BehaviorAuto   Behavior = "auto"
	BehaviorSmooth Behavior = "smooth"
)

// ParseBehavior maps a config value to a Behavior, defaulting to auto
func ParseBehavior(s string) Behavior {
	if Behavior(s) == BehaviorSmooth {
		return BehaviorSmooth
	}
	return BehaviorAuto
}

// EventKind names a page notification
type EventKind string

const (
	EventScroll     EventKind = "scroll"
	EventHashChange EventKind = "hashchange"
)

// ScrollOptions is one scroll command
type ScrollOptions struct {
	Top      float64  `json:"top"`
	Left     float64  `json:"left"`
	Behavior Behavior `json:"behavior"`
}

// Element is a rendered heading
type Element interface {
	Level() int
	Text() string
	// OffsetTop is the element's vertical position in page pixels.
	OffsetTop() float64
	DataID() string
	// SetDataID tags the element; an empty id removes the tag.
	SetDataID(id string)
}

// Document is the page the navigation engine works against. Listener callbacks must be
// delivered asynchronously, never from inside the call that caused them.
type Document interface {
	// HeadingElements returns the rendered headings of one level in document order.
	HeadingElements(level int) []Element
	AllHeadingElements() []Element
	ElementByDataID(id string) (Element, bool)

	// Hash returns the current URL fragment including its leading '#', or "".
	Hash() string
	// ReplaceHash rewrites the fragment without raising a hashchange notification.
	ReplaceHash(fragment string)

	// ScrollTop reads the scroll offset of container; "" is the window.
	ScrollTop(container string) float64
	ScrollTo(container string, opts ScrollOptions)

	// Subscribe registers fn for kind and returns a function that removes it.
	Subscribe(kind EventKind, fn func()) (unsubscribe func())
}
