package bot

import "github.com/antzucaro/matchr"

// closestClass suggests the most similar known class group for a
// /register argument that matched nothing. Returns "" when nothing is
// close enough to be a plausible typo.
func closestClass(input string, known []string) string {
	best := ""
	bestSim := 0.0
	for _, candidate := range known {
		sim := matchr.JaroWinkler(input, candidate, false)
		if sim > bestSim {
			best = candidate
			bestSim = sim
		}
	}
	if bestSim < 0.7 {
		return ""
	}
	return best
}
