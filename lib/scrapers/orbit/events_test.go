package orbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orbitbot/lib/timezone"
)

func calendarReply(t *testing.T, events ...map[string]any) string {
	t.Helper()
	body, err := json.Marshal([]map[string]any{{
		"error": false,
		"data":  map[string]any{"events": events},
	}})
	require.NoError(t, err)
	return string(body)
}

func TestUpcomingEvents(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	serveHandoff(portal, lms)

	soon := timezone.Now().Add(24 * time.Hour)
	later := timezone.Now().Add(14 * 24 * time.Hour)
	lms.handle("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sk-123", r.URL.Query().Get("sesskey"))
		require.Equal(t, "core_calendar_get_action_events_by_timesort", r.URL.Query().Get("info"))

		var reqs []calendarRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 1)
		require.Equal(t, 50, reqs[0].Args.LimitNum)

		io.WriteString(w, calendarReply(t,
			map[string]any{
				"name":     "Homework 3 is due",
				"timesort": soon.Unix(),
				"viewurl":  "https://lms.example/mod/assign/view.php?id=7",
				"course": map[string]any{
					"id":              42,
					"fullnamedisplay": "12345 - Linear Algebra",
					"shortname":       "LinAlg",
				},
			},
			map[string]any{
				"name":     "Final quiz closes",
				"timesort": later.Unix(),
				"course":   map[string]any{"id": 43, "fullnamedisplay": "Physics"},
			},
		))
	})
	client := newTestClient(t, portal, lms, Credential{})

	res, err := client.UpcomingEvents(context.Background(), timezone.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	require.True(t, res.Ok())
	// the second event ends past the cutoff
	require.Len(t, res.Value, 1)

	event := res.Value[0]
	require.Equal(t, "Homework 3 is due", event.Title)
	require.Equal(t, "LinAlg", event.ShortCourseName)
	require.Equal(t, "Linear Algebra", event.CourseName)
	require.Equal(t, int64(42), event.CourseID)
	require.Equal(t, soon.Unix(), event.EndTime.Unix())
	require.Equal(t, "https://lms.example/mod/assign/view.php?id=7", event.URL)
}

func TestUpcomingEventsNoCutoff(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	serveHandoff(portal, lms)
	lms.handle("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, calendarReply(t, map[string]any{
			"name":     "Far away deadline",
			"timesort": timezone.Now().Add(90 * 24 * time.Hour).Unix(),
			"course":   map[string]any{"id": 1, "fullnamedisplay": "Course"},
		}))
	})
	client := newTestClient(t, portal, lms, Credential{})

	res, err := client.UpcomingEvents(context.Background(), time.Time{})
	require.NoError(t, err)
	require.True(t, res.Ok())
	require.Len(t, res.Value, 1)
}

func TestUpcomingEventsServiceError(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	serveHandoff(portal, lms)
	lms.handle("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"error":{"message":"invalid sesskey"}}]`)
	})
	client := newTestClient(t, portal, lms, Credential{})

	res, err := client.UpcomingEvents(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, ErrScrapeMismatch, res.Error)
}

func TestUpcomingEventsServiceUnavailable(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	serveHandoff(portal, lms)
	lms.handle("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, portal, lms, Credential{})

	// the dashboard already answered, so this is not an outage
	res, err := client.UpcomingEvents(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, ErrScrapeMismatch, res.Error)
}

func TestUpcomingEventsMalformedJson(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	serveHandoff(portal, lms)
	lms.handle("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>this is not json</html>")
	})
	client := newTestClient(t, portal, lms, Credential{})

	// unexpected shape from the service layer is fatal, not an envelope
	_, err := client.UpcomingEvents(context.Background(), time.Time{})
	require.Error(t, err)
}

func TestUpcomingEventsMissingSesskey(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	lms := newFakeUpstream(t)
	portal.handle("/Handlers/Moodle.ashx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<meta http-equiv=\"refresh\" content=\"0;URL='%s/my/'\" />", lms.srv.URL)
	})
	lms.handle("/my/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>dashboard without a session key</html>")
	})
	client := newTestClient(t, portal, lms, Credential{})

	res, err := client.UpcomingEvents(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, ErrScrapeMismatch, res.Error)
}
