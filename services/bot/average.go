package bot

import (
	"strconv"

	"orbitbot/lib/scrapers/orbit"
)

// weightedAverage folds numeric scores weighted by credit units.
// Non-numeric scores (exemptions, "passed", empty cells) are skipped;
// ok is false when nothing numeric remains.
func weightedAverage(grades []orbit.Grade) (avg float64, ok bool) {
	var sum, units float64
	for _, g := range grades {
		score, err := strconv.ParseFloat(g.ScoreText, 64)
		if err != nil {
			continue
		}
		sum += score * float64(g.CreditUnits)
		units += float64(g.CreditUnits)
	}
	if units == 0 {
		return 0, false
	}
	return sum / units, true
}
