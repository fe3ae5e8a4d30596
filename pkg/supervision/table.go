package supervision

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableLayout locates booking data inside the rendered bookings page
type TableLayout struct {
	RowSelector   string `json:"row_selector" mapstructure:"row_selector"`
	SubjectColumn int    `json:"subject_column" mapstructure:"subject_column"` // 1-based
	LinksColumn   int    `json:"links_column" mapstructure:"links_column"`     // 1-based
}

// DefaultTableLayout returns the layout of the Kudos bookings table
func DefaultTableLayout() TableLayout {
	return TableLayout{
		RowSelector:   "table tbody tr",
		SubjectColumn: 1,
		LinksColumn:   5,
	}
}

// ParseBookingTable extracts booking rows from rendered HTML.
// Rows without a subject cell are skipped; link labels are kept verbatim.
func ParseBookingTable(html string, layout TableLayout) ([]BookingRow, error) {
	if layout.RowSelector == "" {
		layout = DefaultTableLayout()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking page: %w", err)
	}

	sel := doc.Find(layout.RowSelector)
	if sel.Length() == 0 && doc.Find("tbody").Length() == 0 {
		return nil, ErrTableNotFound
	}

	subjectCell := fmt.Sprintf("td:nth-child(%d)", layout.SubjectColumn)
	linkCell := fmt.Sprintf("td:nth-child(%d) a", layout.LinksColumn)

	rows := make([]BookingRow, 0, sel.Length())
	sel.Each(func(_ int, tr *goquery.Selection) {
		cell := tr.Find(subjectCell).First()
		if cell.Length() == 0 {
			return
		}

		row := BookingRow{
			Subject: strings.Join(strings.Fields(cell.Text()), " "),
			Links:   []SessionLink{},
		}
		tr.Find(linkCell).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			row.Links = append(row.Links, SessionLink{
				Label: a.Text(),
				Href:  href,
			})
		})
		rows = append(rows, row)
	})

	return rows, nil
}
