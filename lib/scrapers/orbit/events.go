package orbit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"orbitbot/lib/timezone"
)

// Event is one upcoming LMS calendar entry, usually an assignment
// deadline or a quiz window.
type Event struct {
	Title           string
	ShortCourseName string
	CourseName      string
	CourseID        int64
	EndTime         time.Time
	URL             string
}

var sesskeyRegex = regexp.MustCompile(`"sesskey":"(.*?)"`)

// course full names are prefixed with course codes like "12345 - "
var courseNamePrefixRegex = regexp.MustCompile(`^[0-9\- ]*`)

type calendarRequest struct {
	Index      int          `json:"index"`
	MethodName string       `json:"methodname"`
	Args       calendarArgs `json:"args"`
}

type calendarArgs struct {
	LimitNum                  int   `json:"limitnum"`
	TimeSortFrom              int64 `json:"timesortfrom"`
	LimitToNonSuspendedEvents bool  `json:"limittononsuspendedevents"`
}

type calendarResponse struct {
	Error json.RawMessage `json:"error"`
	Data  struct {
		Events []struct {
			Name      string `json:"name"`
			TimeSort  int64  `json:"timesort"`
			ViewURL   string `json:"viewurl"`
			Course    struct {
				ID            int64  `json:"id"`
				FullNameDisp  string `json:"fullnamedisplay"`
				ShortName     string `json:"shortname"`
			} `json:"course"`
		} `json:"events"`
	} `json:"data"`
}

// the ajax layer reports failure as error:true or an error object, and
// success as false, null or an absent field
func (r calendarResponse) failed() bool {
	trimmed := strings.TrimSpace(string(r.Error))
	return trimmed != "" && trimmed != "false" && trimmed != "null"
}

// UpcomingEvents lists calendar events starting now, soonest first.
// A nonzero until drops events ending after it.
func (c *Client) UpcomingEvents(ctx context.Context, until time.Time) (Result[[]Event], error) {
	return gated(ctx, c.ConnectMoodle, func(ctx context.Context, warnings []WarningKind) (Result[[]Event], error) {
		ctx, span := tracer.Start(ctx, "UpcomingEvents")
		defer span.End()

		dashboard, err := c.get(ctx, c.lmsUrl(lmsDashboardPath), nil)
		if err != nil {
			return Result[[]Event]{}, err
		}
		if dashboard.status != http.StatusOK {
			return failure[[]Event](warnings, ErrLMSDown), nil
		}

		key := sesskeyRegex.FindStringSubmatch(dashboard.text())
		if key == nil {
			return failure[[]Event](warnings, ErrScrapeMismatch), nil
		}

		query := url.Values{}
		query.Set("sesskey", key[1])
		query.Set("info", "core_calendar_get_action_events_by_timesort")
		body := []calendarRequest{{
			MethodName: "core_calendar_get_action_events_by_timesort",
			Args: calendarArgs{
				LimitNum:                  50,
				TimeSortFrom:              timezone.Now().Unix(),
				LimitToNonSuspendedEvents: true,
			},
		}}
		res, err := c.post(ctx, c.lmsUrl(lmsServicePath), nil, body, query)
		if err != nil {
			return Result[[]Event]{}, err
		}
		// once the dashboard answered, a failing service call points at the
		// exchange itself, not at the LMS being down
		if res.status != http.StatusOK {
			return failure[[]Event](warnings, ErrScrapeMismatch), nil
		}

		var responses []calendarResponse
		if err := json.NewDecoder(bytes.NewReader(res.body)).Decode(&responses); err != nil {
			return Result[[]Event]{}, err
		}
		if len(responses) != 1 || responses[0].failed() {
			return failure[[]Event](warnings, ErrScrapeMismatch), nil
		}

		var events []Event
		for _, raw := range responses[0].Data.Events {
			end := time.Unix(raw.TimeSort, 0).In(timezone.Location)
			if !until.IsZero() && end.After(until) {
				continue
			}
			events = append(events, Event{
				Title:           raw.Name,
				ShortCourseName: raw.Course.ShortName,
				CourseName:      courseNamePrefixRegex.ReplaceAllString(raw.Course.FullNameDisp, ""),
				CourseID:        raw.Course.ID,
				EndTime:         end,
				URL:             raw.ViewURL,
			})
		}
		span.SetAttributes(attribute.Int("events", len(events)))
		return success(events, warnings), nil
	})
}
