// Package timetable renders scraped weekly schedules into PDF grids.
package timetable

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"orbitbot/lib/scrapers/orbit"
)

var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Renderer draws a weekly schedule grid, days as columns and hours as
// rows. It implements orbit.TimetableRenderer.
type Renderer struct {
	// path to a unicode ttf with Hebrew glyphs; when empty the built-in
	// helvetica is used, which only covers Latin text
	FontPath string
}

const (
	pageMargin   = 10.0
	headerHeight = 8.0
	// landscape A4 interior
	gridWidth  = 297.0 - 2*pageMargin
	gridHeight = 210.0 - 2*pageMargin - headerHeight
)

func (r *Renderer) Render(rows []orbit.TimetableRow) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")

	font := "helvetica"
	if r.FontPath != "" {
		font = "schedule"
		pdf.AddUTF8Font(font, "", r.FontPath)
	}
	pdf.AddPage()

	days, firstHour, lastHour := gridBounds(rows)
	colWidth := gridWidth / float64(days)
	hourHeight := gridHeight / (lastHour - firstHour)

	// day headers, rightmost column is Sunday
	pdf.SetFont(font, "", 11)
	for day := 0; day < days; day++ {
		pdf.SetXY(colX(day, days, colWidth), pageMargin)
		pdf.CellFormat(colWidth, headerHeight, dayNames[day], "1", 0, "C", false, 0, "")
	}

	pdf.SetFont(font, "", 8)
	for _, row := range rows {
		if row.Day < 0 || row.Day >= days {
			continue
		}
		x := colX(row.Day, days, colWidth)
		y := pageMargin + headerHeight + (row.StartHour-firstHour)*hourHeight
		height := (row.EndHour - row.StartHour) * hourHeight

		pdf.Rect(x, y, colWidth, height, "D")
		lines := []string{
			Visual(row.Label),
			fmt.Sprintf("%s - %s", clock(row.StartHour), clock(row.EndHour)),
			Visual(row.Line1),
			Visual(row.Line2),
		}
		for i, line := range lines {
			if line == "" {
				continue
			}
			pdf.SetXY(x, y+float64(i)*4)
			pdf.CellFormat(colWidth, 4, line, "", 0, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// the grid spans Sunday through the last taught day and the taught
// hours, rounded out to whole hours, with sane defaults for an empty
// week
func gridBounds(rows []orbit.TimetableRow) (days int, firstHour, lastHour float64) {
	days = 5
	firstHour, lastHour = 8, 18
	for _, row := range rows {
		if row.Day+1 > days {
			days = row.Day + 1
		}
		if math.Floor(row.StartHour) < firstHour {
			firstHour = math.Floor(row.StartHour)
		}
		if math.Ceil(row.EndHour) > lastHour {
			lastHour = math.Ceil(row.EndHour)
		}
	}
	return days, firstHour, lastHour
}

// hebrew weeks run right to left, Sunday is the rightmost column
func colX(day, days int, colWidth float64) float64 {
	return pageMargin + float64(days-1-day)*colWidth
}

func clock(hour float64) string {
	h := int(hour)
	m := int(math.Round((hour - float64(h)) * 60))
	return fmt.Sprintf("%02d:%02d", h, m)
}
