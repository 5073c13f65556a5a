package navbar

import (
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
)

const (
	DefaultThrottleWindow = 300 * time.Millisecond
	DefaultSettleDelay    = 500 * time.Millisecond
)

// Options configures an Engine. Callbacks are optional.
type Options struct {
	Ordered          bool
	HeadingTopOffset float64
	UpdateHashAuto   bool
	HashMode         bool
	Declarative      bool
	Behavior         dom.Behavior
	Container        string

	ThrottleWindow time.Duration
	SettleDelay    time.Duration
	Extractor      outline.Extractor

	// OnNavItemClick receives the id of a clicked item.
	OnNavItemClick func(id string)
	// OnHashChange receives the new heading id and the previous decoded hash value.
	OnHashChange func(newHash, oldHash string)
	// OnActiveChange observes every change of the active list number.
	OnActiveChange func(oldListNo, newListNo string)
}

// DefaultOptions returns the stock configuration
func DefaultOptions() Options {
	return Options{
		Ordered:        true,
		Behavior:       dom.BehaviorAuto,
		ThrottleWindow: DefaultThrottleWindow,
		SettleDelay:    DefaultSettleDelay,
		Extractor:      outline.Extract,
	}
}

// OptionsFromSettings builds Options from resolved configuration
func OptionsFromSettings(s config.NavbarSettings, extractor string) Options {
	opts := DefaultOptions()
	opts.Ordered = s.Ordered
	opts.HeadingTopOffset = s.HeadingTopOffset
	opts.UpdateHashAuto = s.UpdateHashAuto
	opts.HashMode = s.HashMode
	opts.Declarative = s.Declarative
	opts.Behavior = dom.ParseBehavior(s.Behavior)
	opts.Container = s.Container
	if s.ThrottleWindow > 0 {
		opts.ThrottleWindow = s.ThrottleWindow
	}
	if s.SettleDelay > 0 {
		opts.SettleDelay = s.SettleDelay
	}
	opts.Extractor = outline.ExtractorByName(extractor)
	return opts
}

func (o *Options) normalize() {
	if o.ThrottleWindow <= 0 {
		o.ThrottleWindow = DefaultThrottleWindow
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.Behavior == "" {
		o.Behavior = dom.BehaviorAuto
	}
	if o.Extractor == nil {
		o.Extractor = outline.Extract
	}
}
