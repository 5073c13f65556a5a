package navbar

import "fmt"

// Event is an input to Engine.Handle
type Event interface {
	eventName() string
}

// SourceReplaced carries a new markdown source
type SourceReplaced struct {
	Source string
}

// Scrolled reports a scroll notification
type Scrolled struct{}

// HashChanged reports an external fragment change
type HashChanged struct{}

// ItemClicked reports a click on the item with the given heading id
type ItemClicked struct {
	ID string
}

func (SourceReplaced) eventName() string { return "source_replaced" }
func (Scrolled) eventName() string       { return "scrolled" }
func (HashChanged) eventName() string    { return "hash_changed" }
func (ItemClicked) eventName() string    { return "item_clicked" }

// Handle dispatches ev to the matching transition. The first SourceReplaced mounts the engine.
func (e *Engine) Handle(ev Event) error {
	switch ev := ev.(type) {
	case SourceReplaced:
		if !e.mounted {
			e.Mount(ev.Source)
			return nil
		}
		e.OnSourceReplaced(ev.Source)
	case Scrolled:
		e.OnScroll()
	case HashChanged:
		e.OnHashChanged()
	case ItemClicked:
		return e.OnItemClicked(ev.ID)
	default:
		return fmt.Errorf("navbar: unsupported event %T", ev)
	}
	return nil
}
