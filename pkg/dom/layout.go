package dom

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Sriram-PR/md-navbar/pkg/config"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

var headingAtoms = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func headingLevel(n *html.Node) int {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	return headingAtoms[n.DataAtom]
}

type placedHeading struct {
	sel   *goquery.Selection
	level int
	text  string
	top   float64
}

// layoutBlocks stacks the body's top-level blocks vertically and returns every heading with
// its offset plus the total content height. Headings nested inside another block (quotes,
// details) take that block's offset.
func layoutBlocks(doc *goquery.Document, layout config.LayoutConfig) ([]placedHeading, float64) {
	var headings []placedHeading
	top := 0.0

	doc.Find("body").Children().Each(func(i int, block *goquery.Selection) {
		if i > 0 {
			top += layout.BlockGap
		}
		if level := headingLevel(block.Get(0)); level > 0 {
			headings = append(headings, placedHeading{
				sel:   block,
				level: level,
				text:  strings.TrimSpace(block.Text()),
				top:   top,
			})
			top += layout.HeadingLineHeight
			return
		}

		block.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
			headings = append(headings, placedHeading{
				sel:   h,
				level: headingLevel(h.Get(0)),
				text:  strings.TrimSpace(h.Text()),
				top:   top,
			})
		})
		top += blockHeight(block, layout)
	})

	return headings, top
}

func blockHeight(block *goquery.Selection, layout config.LayoutConfig) float64 {
	if block.Is("pre") {
		body := strings.TrimRight(block.Text(), "\n")
		return float64(strings.Count(body, "\n")+1) * layout.LineHeight
	}

	text := strings.Join(strings.Fields(block.Text()), " ")
	lines := int(math.Ceil(float64(utf8.RuneCountInString(text)) / float64(layout.CharsPerLine)))
	if items := block.Find("li, tr").Length(); items > lines {
		lines = items
	}
	if lines < 1 {
		lines = 1
	}
	return float64(lines) * layout.LineHeight
}
