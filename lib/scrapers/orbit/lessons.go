package orbit

import (
	"context"
	"html"
	"net/http"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Lesson is one registerable lesson row of the lesson registration
// grid.
type Lesson struct {
	// the full WebForms name of the row's register button
	ControlID string
	// the raw row markup the control was found in
	Snippet string
	// the human readable lesson line
	Display string
	// the class group token, the trailing segment of Display
	Class string
}

// ClassRegistration is the outcome of a RegisterClass sweep.
type ClassRegistration struct {
	Registered []string
	Failed     []string
}

const lessonsGridPrefix = "ctl00$ContentPlaceHolder1$gvRegistrationLessonList"

// the portal confirms or rejects a registration by injecting an alert
// script into the response
const scriptAlertTrigger = "OLScriptCounter1alert() { window.alert("

var lessonControlRegex = regexp.MustCompile(`ctl00\$ContentPlaceHolder1\$gvRegistrationLessonList\$GridRow[0-9]+\$btnRegisterLesson`)
var lessonRowRegex = regexp.MustCompile(`(?s)<tr id="ContentPlaceHolder1_gvRegistrationLessonList" class="GridRow">(.*?)</tr>`)
var lessonDisplayRegex = regexp.MustCompile(`(?s)<span id="ContentPlaceHolder1_gvRegistrationLessonList_lblLessonName[^"]*">(.*?)</span>`)

// Lessons lists the lessons currently open for registration.
func (c *Client) Lessons(ctx context.Context) (Result[[]Lesson], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]Lesson], error) {
		ctx, span := tracer.Start(ctx, "Lessons")
		defer span.End()

		p, err := c.get(ctx, c.portalUrl(lessonsPath), nil)
		if err != nil {
			return Result[[]Lesson]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]Lesson](warnings, ErrScrapeMismatch), nil
		}

		lessons := lessonsFromPage(p.text())
		span.SetAttributes(attribute.Int("lessons", len(lessons)))
		return success(lessons, warnings), nil
	})
}

func lessonsFromPage(pageText string) []Lesson {
	var out []Lesson
	for _, row := range lessonRowRegex.FindAllStringSubmatch(pageText, -1) {
		control := lessonControlRegex.FindString(row[1])
		if control == "" {
			continue
		}
		display := ""
		if m := lessonDisplayRegex.FindStringSubmatch(row[1]); m != nil {
			display = strings.TrimSpace(html.UnescapeString(m[1]))
		}
		out = append(out, Lesson{
			ControlID: control,
			Snippet:   row[1],
			Display:   display,
			Class:     classOf(display),
		})
	}
	return out
}

// the class group is the token after the last dash, "Calculus 1 - 02"
// has class "02"
func classOf(display string) string {
	idx := strings.LastIndex(display, "-")
	if idx < 0 {
		return display
	}
	return strings.TrimSpace(display[idx+1:])
}

// RegisterClass keeps registering every open lesson of the given class
// group until a full sweep of the grid finds nothing new to attempt.
// Each button is clicked at most once; the portal's alert response
// decides whether the attempt lands in Registered or Failed.
func (c *Client) RegisterClass(ctx context.Context, class string) (Result[ClassRegistration], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[ClassRegistration], error) {
		ctx, span := tracer.Start(ctx, "RegisterClass")
		defer span.End()
		span.SetAttributes(attribute.String("class", class))

		lessonsUrl := c.portalUrl(lessonsPath)
		attempted := map[string]bool{}
		var outcome ClassRegistration

		for {
			p, err := c.get(ctx, lessonsUrl, nil)
			if err != nil {
				return Result[ClassRegistration]{}, err
			}
			if p.status != http.StatusOK {
				return failure[ClassRegistration](warnings, ErrScrapeMismatch), nil
			}

			var next *Lesson
			for _, lesson := range lessonsFromPage(p.text()) {
				if lesson.Class == class && !attempted[lesson.ControlID] {
					next = &lesson
					break
				}
			}
			if next == nil {
				break
			}
			attempted[next.ControlID] = true

			form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
			form[next.ControlID+".x"] = "1"
			form[next.ControlID+".y"] = "1"
			res, err := c.post(ctx, lessonsUrl, form, nil, nil)
			if err != nil {
				return Result[ClassRegistration]{}, err
			}
			if res.status != http.StatusOK {
				return failure[ClassRegistration](warnings, ErrScrapeMismatch), nil
			}

			if strings.Contains(res.text(), scriptAlertTrigger) {
				outcome.Failed = append(outcome.Failed, next.Display)
			} else {
				outcome.Registered = append(outcome.Registered, next.Display)
			}
		}

		span.SetAttributes(
			attribute.Int("registered", len(outcome.Registered)),
			attribute.Int("failed", len(outcome.Failed)),
		)
		return success(outcome, warnings), nil
	})
}
