package orbit

import (
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"context"

	"go.opentelemetry.io/otel/attribute"

	"orbitbot/lib/timezone"
)

// Exam is one row of the exam term grid. RowIndex feeds ExamNotebook
// and RegisterExam, which re-navigate to the same grid and click the
// row's buttons.
type Exam struct {
	Name      string
	Period    string
	StartTime time.Time
	EndTime   time.Time
	Score     string
	Room      string

	HasNotebook       bool
	CanRegister       bool
	CanCancelRegister bool
	RowIndex          int
}

const (
	examsGridPrefix       = "ctl00$ContentPlaceHolder1$gvStudentAssignmentTermList"
	examDateFilterControl = "ctl00$tbMain$ctl03$ddlExamDateRangeFilter"
	agreementControl      = "ctl00$btnOkAgreement"

	nbsp            = "&nbsp;"
	placeholderDate = "01/01/0001"
)

var examRowRegex = regexp.MustCompile(`(?s)<tr id="ContentPlaceHolder1_gvStudentAssignmentTermList" class="GridRow">.*?</tr>`)
var examSpanRegex = regexp.MustCompile(`>([^>]*?)</span`)

// "ctl00$...$GridRow3$btnDownload" and friends
func rowControl(prefix string, index int, suffix string) string {
	return fmt.Sprintf("%s$GridRow%d$%s", prefix, index, suffix)
}

// Exams scrapes the exam term grid across all exam dates. Rows whose
// date cell is empty or the portal's placeholder date carry zero
// Start/EndTime.
func (c *Client) Exams(ctx context.Context) (Result[[]Exam], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]Exam], error) {
		ctx, span := tracer.Start(ctx, "Exams")
		defer span.End()

		p, err := c.examGrid(ctx)
		if err != nil {
			return Result[[]Exam]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]Exam](warnings, ErrScrapeMismatch), nil
		}

		exams, err := examsFromPage(p.text())
		if err != nil {
			return failure[[]Exam](warnings, ErrScrapeMismatch), nil
		}
		span.SetAttributes(attribute.Int("exams", len(exams)))
		return success(exams, warnings), nil
	})
}

// navigates to the grid, dismissing the exam regulations agreement and
// widening the date filter to all dates
func (c *Client) examGrid(ctx context.Context) (page, error) {
	examsUrl := c.portalUrl(examsPath)
	p, err := c.get(ctx, examsUrl, nil)
	if err != nil {
		return page{}, err
	}
	if p.status != http.StatusOK {
		return p, nil
	}

	form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
	form[agreementControl] = "אישור"
	form[examDateFilterControl] = "1"
	return c.post(ctx, examsUrl, form, nil, nil)
}

func examsFromPage(pageText string) ([]Exam, error) {
	var out []Exam
	for i, row := range examRowRegex.FindAllString(pageText, -1) {
		cells := cellRegex.FindAllStringSubmatch(row, -1)
		if len(cells) < 14 {
			return nil, fmt.Errorf("exam row has %d cells", len(cells))
		}

		exam := Exam{
			Period:            cellText(cells[4][1]),
			Score:             cellText(cells[5][1]),
			Room:              cellText(cells[7][1]),
			Name:              cellText(cells[10][1]),
			HasNotebook:       strings.Contains(cells[13][1], rowControl(examsGridPrefix, i, "btnDownload")),
			CanRegister:       strings.Contains(row, rowControl(examsGridPrefix, i, "btnRegister")),
			CanCancelRegister: strings.Contains(row, rowControl(examsGridPrefix, i, "btnCancelRegistration")),
			RowIndex:          i,
		}

		date := cellText(cells[0][1])
		if date != "" && date != placeholderDate {
			start, end, err := examTimes(date, cellText(cells[2][1]))
			if err != nil {
				return nil, err
			}
			exam.StartTime, exam.EndTime = start, end
		}

		out = append(out, exam)
	}
	return out, nil
}

// the date cell renders either bare text or a span around it
func cellText(cell string) string {
	if m := examSpanRegex.FindStringSubmatch(cell); m != nil {
		cell = m[1]
	}
	cell = strings.ReplaceAll(cell, nbsp, "")
	return strings.TrimSpace(html.UnescapeString(cell))
}

// timeRange is "HH:MM - HH:MM"; a malformed range normalizes to a
// zero-length midnight slot rather than failing the whole grid
func examTimes(date, timeRange string) (time.Time, time.Time, error) {
	parts := strings.Split(timeRange, "-")
	if len(parts) < 2 {
		parts = []string{"00:00", "00:00"}
	}
	start, err := time.ParseInLocation("02/01/2006 15:04", date+" "+strings.TrimSpace(parts[0]), timezone.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation("02/01/2006 15:04", date+" "+strings.TrimSpace(parts[1]), timezone.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ExamNotebook downloads the scanned notebook of the exam at rowIndex.
// Clicking the download button is a synthetic image-button click, the
// coordinate fields are what routes the postback to the right row.
func (c *Client) ExamNotebook(ctx context.Context, rowIndex int) (Result[[]byte], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]byte], error) {
		ctx, span := tracer.Start(ctx, "ExamNotebook")
		defer span.End()
		span.SetAttributes(attribute.Int("row", rowIndex))

		p, err := c.examGrid(ctx)
		if err != nil {
			return Result[[]byte]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}

		control := rowControl(examsGridPrefix, rowIndex, "btnDownload")
		if !strings.Contains(p.text(), control) {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}

		form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[examDateFilterControl] = "1"
		form[control+".x"] = "1"
		form[control+".y"] = "1"
		notebook, err := c.post(ctx, c.portalUrl(examsPath), form, nil, nil)
		if err != nil {
			return Result[[]byte]{}, err
		}
		if notebook.status != http.StatusOK {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}
		return success(notebook.body, warnings), nil
	})
}

// RegisterExam registers for (or, with register false, cancels the
// registration of) the exam at rowIndex.
func (c *Client) RegisterExam(ctx context.Context, rowIndex int, register bool) (Result[bool], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[bool], error) {
		ctx, span := tracer.Start(ctx, "RegisterExam")
		defer span.End()
		span.SetAttributes(attribute.Int("row", rowIndex), attribute.Bool("register", register))

		p, err := c.examGrid(ctx)
		if err != nil {
			return Result[bool]{}, err
		}
		if p.status != http.StatusOK {
			return failure[bool](warnings, ErrScrapeMismatch), nil
		}

		button := "btnCancelRegistration"
		if register {
			button = "btnRegister"
		}
		control := rowControl(examsGridPrefix, rowIndex, button)
		if !strings.Contains(p.text(), control) {
			return failure[bool](warnings, ErrScrapeMismatch), nil
		}

		form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[examDateFilterControl] = "1"
		form[control+".x"] = "1"
		form[control+".y"] = "1"
		res, err := c.post(ctx, c.portalUrl(examsPath), form, nil, nil)
		if err != nil {
			return Result[bool]{}, err
		}
		if res.status != http.StatusOK {
			return failure[bool](warnings, ErrScrapeMismatch), nil
		}
		return success(true, warnings), nil
	})
}
