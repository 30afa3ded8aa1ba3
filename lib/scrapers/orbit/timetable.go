package orbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// TimetableRow is one taught slot of the weekly schedule grid.
type TimetableRow struct {
	// whatever the portal renders in the slot header, usually the
	// course name
	Label string
	// 0 is Sunday
	Day int
	// fractional hours, 9.5 is 09:30
	StartHour float64
	EndHour   float64
	// free-form detail lines, usually lecturer and room
	Line1 string
	Line2 string
}

// TimetableRenderer turns scraped rows into a rendered document.
// Rendering is deliberately outside this package so it carries no PDF
// dependency; lib/timetable has the default implementation.
type TimetableRenderer interface {
	Render(rows []TimetableRow) ([]byte, error)
}

// TimetableFile is a rendered schedule with its suggested filename.
type TimetableFile struct {
	Name string
	Data []byte
}

const semesterFilterControl = "ctl00$ContentPlaceHolder1$ddlSemester"

var timetableRowRegex = regexp.MustCompile(`(?s)<tr id="ContentPlaceHolder1_gvPeriodSchedule" class="GridRow">(.*?)</tr>`)

// Timetable scrapes the weekly schedule of the given semester and
// renders it through the client's renderer. Constructing a client
// without a renderer and calling Timetable is a programming error and
// returns a plain error.
func (c *Client) Timetable(ctx context.Context, semester int) (Result[TimetableFile], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[TimetableFile], error) {
		ctx, span := tracer.Start(ctx, "Timetable")
		defer span.End()
		span.SetAttributes(attribute.Int("semester", semester))

		if c.renderer == nil {
			return Result[TimetableFile]{}, errors.New("client has no timetable renderer")
		}

		timetableUrl := c.portalUrl(timetablePath)
		p, err := c.get(ctx, timetableUrl, nil)
		if err != nil {
			return Result[TimetableFile]{}, err
		}
		if p.status != http.StatusOK {
			return failure[TimetableFile](warnings, ErrScrapeMismatch), nil
		}

		form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[eventTargetField] = semesterFilterControl
		form[eventArgumentField] = ""
		form[semesterFilterControl] = strconv.Itoa(semester)
		p, err = c.post(ctx, timetableUrl, form, nil, nil)
		if err != nil {
			return Result[TimetableFile]{}, err
		}
		if p.status != http.StatusOK {
			return failure[TimetableFile](warnings, ErrScrapeMismatch), nil
		}

		rows, err := timetableFromPage(p.text())
		if err != nil {
			return failure[TimetableFile](warnings, ErrScrapeMismatch), nil
		}

		data, err := c.renderer.Render(rows)
		if err != nil {
			return Result[TimetableFile]{}, err
		}
		return success(TimetableFile{
			Name: fmt.Sprintf("timetable_semester_%d.pdf", semester),
			Data: data,
		}, warnings), nil
	})
}

func timetableFromPage(pageText string) ([]TimetableRow, error) {
	var out []TimetableRow
	for _, row := range timetableRowRegex.FindAllStringSubmatch(pageText, -1) {
		cells := cellRegex.FindAllStringSubmatch(row[1], -1)
		if len(cells) < 6 {
			return nil, fmt.Errorf("timetable row has %d cells", len(cells))
		}

		day := cellText(cells[0][1])
		timeRange := cellText(cells[1][1])
		// filler rows pad the grid to a full week
		if day == "" || timeRange == "" {
			continue
		}

		dayNo, err := strconv.Atoi(day)
		if err != nil {
			return nil, fmt.Errorf("day: %w", err)
		}
		start, end, err := hourRange(timeRange)
		if err != nil {
			return nil, err
		}

		out = append(out, TimetableRow{
			Label: cellText(cells[2][1]),
			// the portal counts Sunday as 1
			Day:       dayNo - 1,
			StartHour: start,
			EndHour:   end,
			Line1:     cellText(cells[4][1]),
			Line2:     cellText(cells[5][1]),
		})
	}
	return out, nil
}

// "09:30 - 12:00" to (9.5, 12)
func hourRange(timeRange string) (float64, float64, error) {
	parts := strings.Split(timeRange, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time range %q", timeRange)
	}
	start, err := fractionalHour(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := fractionalHour(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func fractionalHour(clock string) (float64, error) {
	hh, mm, found := strings.Cut(clock, ":")
	if !found {
		return 0, fmt.Errorf("clock %q", clock)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	return float64(hours) + float64(minutes)/60, nil
}
