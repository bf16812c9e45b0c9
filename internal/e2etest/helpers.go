package e2etest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExportDay is a day section of an exported plan page.
type ExportDay struct {
	Heading string
	Items   []ExportItem
}

// ExportItem is one checklist entry of an exported plan page.
type ExportItem struct {
	Text    string
	Checked bool
}

// ParseExport reads the title and the per-day checklists from an exported plan page.
func ParseExport(doc *goquery.Document) (string, []ExportDay) {
	title := strings.TrimSpace(doc.Find("main h1").First().Text())
	var days []ExportDay
	doc.Find("main h2").Each(func(_ int, heading *goquery.Selection) {
		day := ExportDay{
			Heading: strings.TrimSpace(heading.Text()),
			Items:   nil,
		}
		heading.NextUntil("h2").Find("li").Each(func(_ int, li *goquery.Selection) {
			checkbox := li.Find("input[type=checkbox]")
			if checkbox.Length() == 0 {
				return
			}
			_, checked := checkbox.Attr("checked")
			day.Items = append(day.Items, ExportItem{
				Text:    strings.TrimSpace(li.Text()),
				Checked: checked,
			})
		})
		days = append(days, day)
	})
	return title, days
}
