package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
)

const sampleDoc = "# Title\n\npara\n\n## A\n\ntext\n\n## B\n"

func newTestPage(t *testing.T, source string, opts ...PageOption) (*Page, *schedule.Virtual) {
	t.Helper()
	clock := schedule.NewVirtual()
	page, err := NewPage(source, clock, opts...)
	require.NoError(t, err)
	return page, clock
}

func TestPage_Layout(t *testing.T) {
	page, _ := newTestPage(t, sampleDoc)

	all := page.AllHeadingElements()
	require.Len(t, all, 3)
	assert.Equal(t, "Title", all[0].Text())
	assert.Equal(t, 1, all[0].Level())
	assert.Equal(t, 0.0, all[0].OffsetTop())

	h2 := page.HeadingElements(2)
	require.Len(t, h2, 2)
	assert.Equal(t, "A", h2[0].Text())
	assert.Equal(t, 96.0, h2[0].OffsetTop())
	assert.Equal(t, "B", h2[1].Text())
	assert.Equal(t, 192.0, h2[1].OffsetTop())
	assert.Equal(t, 232.0, page.Height())

	assert.Empty(t, page.HeadingElements(3))
}

func TestPage_InlineMarkupAndCode(t *testing.T) {
	page, _ := newTestPage(t, "## Use `go test` with **care**\n\n```\n# not a heading\n```\n\n> ### Quoted\n")

	all := page.AllHeadingElements()
	require.Len(t, all, 2)
	assert.Equal(t, "Use go test with care", all[0].Text())
	assert.Equal(t, "Quoted", all[1].Text())
	assert.Equal(t, 3, all[1].Level())
	// heading 40 + gap 16 + one-line pre 24 + gap 16
	assert.Equal(t, 96.0, all[1].OffsetTop())
}

func TestPage_DataIDs(t *testing.T) {
	page, _ := newTestPage(t, sampleDoc)
	a := page.HeadingElements(2)[0]

	a.SetDataID("heading-0")
	assert.Equal(t, "heading-0", a.DataID())

	found, ok := page.ElementByDataID("heading-0")
	require.True(t, ok)
	assert.Equal(t, "A", found.Text())

	html, err := page.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, `data-id="heading-0"`)

	a.SetDataID("")
	assert.Empty(t, a.DataID())
	_, ok = page.ElementByDataID("heading-0")
	assert.False(t, ok)
	_, ok = page.ElementByDataID("")
	assert.False(t, ok)
}

func TestPage_HashNotifications(t *testing.T) {
	var observed []string
	page, clock := newTestPage(t, sampleDoc, WithHash("heading-1"), WithHashObserver(func(h string) {
		observed = append(observed, h)
	}))
	assert.Equal(t, "#heading-1", page.Hash())

	changes := 0
	page.Subscribe(EventHashChange, func() { changes++ })

	page.ReplaceHash("heading-0")
	clock.Flush()
	assert.Equal(t, "#heading-0", page.Hash())
	assert.Equal(t, 0, changes, "replacing the hash is silent")

	page.Navigate("#heading-1")
	assert.Equal(t, 0, changes, "notifications are asynchronous")
	clock.Flush()
	assert.Equal(t, 1, changes)

	page.Navigate("#heading-1")
	clock.Flush()
	assert.Equal(t, 1, changes, "same hash does not notify")

	assert.Equal(t, []string{"#heading-0", "#heading-1"}, observed)
}

func TestPage_Scrolling(t *testing.T) {
	page, clock := newTestPage(t, sampleDoc, WithLayout(config.LayoutConfig{ViewportHeight: 100}))

	scrolls := 0
	unsubscribe := page.Subscribe(EventScroll, func() { scrolls++ })

	page.UserScroll("", 50)
	clock.Flush()
	assert.Equal(t, 50.0, page.ScrollTop(""))
	assert.Equal(t, 1, scrolls)

	page.ScrollTo("", ScrollOptions{Top: 1000, Behavior: BehaviorSmooth})
	clock.Flush()
	assert.Equal(t, 132.0, page.ScrollTop(""), "clamped to content height minus viewport")
	assert.Equal(t, 2, scrolls)

	page.ScrollTo("", ScrollOptions{Top: 132})
	clock.Flush()
	assert.Equal(t, 2, scrolls, "no movement, no notification")
	assert.Len(t, page.Commands(), 2)
	assert.Equal(t, BehaviorSmooth, page.Commands()[0].Options.Behavior)

	assert.Equal(t, 0.0, page.ScrollTop("#sidebar"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, page.Listeners(EventScroll))
	page.UserScroll("", 0)
	clock.Flush()
	assert.Equal(t, 2, scrolls)
}

func TestPage_Load(t *testing.T) {
	page, _ := newTestPage(t, sampleDoc, WithLayout(config.LayoutConfig{ViewportHeight: 100}))
	page.UserScroll("", 120)

	require.NoError(t, page.Load("## Only\n"))

	all := page.AllHeadingElements()
	require.Len(t, all, 1)
	assert.Equal(t, "Only", all[0].Text())
	assert.Equal(t, 0.0, page.ScrollTop(""), "scroll clamped to the shorter page")
}

func TestParseBehavior(t *testing.T) {
	assert.Equal(t, BehaviorSmooth, ParseBehavior("smooth"))
	assert.Equal(t, BehaviorAuto, ParseBehavior("auto"))
	assert.Equal(t, BehaviorAuto, ParseBehavior("bogus"))
}
