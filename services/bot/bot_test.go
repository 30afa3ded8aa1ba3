package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orbitbot/lib/scrapers/orbit"
	"orbitbot/lib/timezone"
)

func TestClosestClass(t *testing.T) {
	known := []string{"01", "02", "03", "lab-a"}
	require.Equal(t, "lab-a", closestClass("laba", known))
	require.Equal(t, "", closestClass("zzzzzz", known))
	require.Equal(t, "", closestClass("x", nil))
}

func TestPendingStore(t *testing.T) {
	pending := newPendingStore()

	_, ok := pending.State(1)
	require.False(t, ok)

	pending.Begin(1)
	state, ok := pending.State(1)
	require.True(t, ok)
	require.False(t, state.haveUsername)

	pending.SetUsername(1, "alice")
	state, ok = pending.State(1)
	require.True(t, ok)
	require.True(t, state.haveUsername)
	require.Equal(t, "alice", state.username)

	// /update_user mid-conversation starts over
	pending.Begin(1)
	state, _ = pending.State(1)
	require.False(t, state.haveUsername)

	pending.Drop(1)
	_, ok = pending.State(1)
	require.False(t, ok)
}

func TestErrorMessagesCoverTaxonomy(t *testing.T) {
	kinds := []orbit.ErrorKind{
		orbit.ErrPortalDown,
		orbit.ErrLMSDown,
		orbit.ErrWrongCredentials,
		orbit.ErrScrapeMismatch,
		orbit.ErrMustChangePassword,
		orbit.ErrPasswordUnchanged,
	}
	seen := map[string]bool{}
	for _, kind := range kinds {
		msg := errorMessage(kind)
		require.NotEmpty(t, msg, kind.String())
		require.False(t, seen[msg], "duplicate message for %s", kind)
		seen[msg] = true
	}
	require.NotEmpty(t, warningMessage(orbit.WarnShouldChangePassword))
}

func TestFormatGrades(t *testing.T) {
	out := formatGrades([]orbit.Grade{
		{Name: "Algebra", CreditUnits: 4, ScoreText: "90"},
		{Name: "Seminar", CreditUnits: 2, ScoreText: ""},
	})
	require.Contains(t, out, "Algebra (4 cu): 90")
	require.Contains(t, out, "Seminar (2 cu): —")
	require.Contains(t, out, "Weighted average: 90.00")

	require.Equal(t, "No grades yet.", formatGrades(nil))
}

func TestFormatExams(t *testing.T) {
	start := time.Date(2026, 6, 15, 9, 0, 0, 0, timezone.Location)
	out := formatExams([]orbit.Exam{
		{Name: "Algebra", Period: "א", StartTime: start, Room: "101", Score: "95"},
		{Name: "Physics", Period: "ב"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Algebra (period א) 15/06/2026 09:00 room 101 score 95", lines[0])
	require.Equal(t, "Physics (period ב)", lines[1])
}

func TestWarningsPrefix(t *testing.T) {
	require.Equal(t, "", warningsPrefix(nil))
	require.Contains(t, warningsPrefix([]orbit.WarningKind{orbit.WarnShouldChangePassword}), "password")
}
