package bot

import (
	"fmt"
	"strings"

	"orbitbot/lib/scrapers/orbit"
)

// user-facing text for every expected failure mode
func errorMessage(kind orbit.ErrorKind) string {
	switch kind {
	case orbit.ErrPortalDown:
		return "The portal is not responding right now. Try again in a few minutes."
	case orbit.ErrLMSDown:
		return "Moodle is not responding right now. Try again in a few minutes."
	case orbit.ErrWrongCredentials:
		return "The portal rejected your username or password. Run /update_user to fix them."
	case orbit.ErrScrapeMismatch:
		return "The portal answered with a page I don't recognize. This usually passes, try again later."
	case orbit.ErrMustChangePassword:
		return "The portal is blocking your account until you change its password. Run /change_password."
	case orbit.ErrPasswordUnchanged:
		return "The portal refused the new password. Pick one you have not used before."
	}
	return "Something unexpected went wrong."
}

func warningMessage(kind orbit.WarningKind) string {
	switch kind {
	case orbit.WarnShouldChangePassword:
		return "Heads up: the portal is asking you to change your password soon."
	}
	return ""
}

// warningsPrefix renders warnings above a reply, or nothing when there
// are none.
func warningsPrefix(warnings []orbit.WarningKind) string {
	var b strings.Builder
	for _, w := range warnings {
		if msg := warningMessage(w); msg != "" {
			b.WriteString("⚠️ " + msg + "\n")
		}
	}
	return b.String()
}

func formatGrades(grades []orbit.Grade) string {
	if len(grades) == 0 {
		return "No grades yet."
	}
	var b strings.Builder
	for _, g := range grades {
		score := g.ScoreText
		if score == "" {
			score = "—"
		}
		fmt.Fprintf(&b, "%s (%d cu): %s\n", g.Name, g.CreditUnits, score)
	}
	if avg, ok := weightedAverage(grades); ok {
		fmt.Fprintf(&b, "\nWeighted average: %.2f", avg)
	}
	return b.String()
}

func formatExams(exams []orbit.Exam) string {
	if len(exams) == 0 {
		return "No exams scheduled."
	}
	var b strings.Builder
	for _, e := range exams {
		fmt.Fprintf(&b, "%s (period %s)", e.Name, e.Period)
		if !e.StartTime.IsZero() {
			fmt.Fprintf(&b, " %s", e.StartTime.Format("02/01/2006 15:04"))
		}
		if e.Room != "" {
			fmt.Fprintf(&b, " room %s", e.Room)
		}
		if e.Score != "" {
			fmt.Fprintf(&b, " score %s", e.Score)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatEvents(events []orbit.Event) string {
	if len(events) == 0 {
		return "Nothing due."
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s · %s · %s\n%s\n", e.CourseName, e.Title, e.EndTime.Format("Mon 02/01 15:04"), e.URL)
	}
	return b.String()
}
