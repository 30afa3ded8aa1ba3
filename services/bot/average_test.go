package bot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"orbitbot/lib/scrapers/orbit"
)

func TestWeightedAverage(t *testing.T) {
	avg, ok := weightedAverage([]orbit.Grade{
		{Name: "Algebra", CreditUnits: 4, ScoreText: "90"},
		{Name: "Physics", CreditUnits: 2, ScoreText: "60"},
	})
	require.True(t, ok)
	require.InDelta(t, 80.0, avg, 0.001)
}

func TestWeightedAverageSkipsNonNumeric(t *testing.T) {
	avg, ok := weightedAverage([]orbit.Grade{
		{Name: "Algebra", CreditUnits: 4, ScoreText: "90"},
		{Name: "Seminar", CreditUnits: 10, ScoreText: "פטור"},
		{Name: "Lab", CreditUnits: 3, ScoreText: ""},
	})
	require.True(t, ok)
	require.InDelta(t, 90.0, avg, 0.001)
}

func TestWeightedAverageNothingNumeric(t *testing.T) {
	_, ok := weightedAverage([]orbit.Grade{
		{Name: "Seminar", CreditUnits: 2, ScoreText: "עבר"},
	})
	require.False(t, ok)

	_, ok = weightedAverage(nil)
	require.False(t, ok)
}
