package orbit

import (
	"regexp"
	"strconv"
)

const (
	eventTargetField   = "__EVENTTARGET"
	eventArgumentField = "__EVENTARGUMENT"
	lastFocusField     = "__LASTFOCUS"
	activeYearControl  = "ctl00$cmbActiveYear"
)

var hiddenInputRegex = regexp.MustCompile(`(?s)<input type="hidden" name="(.*?)" id=".*?" value="(.*?)" />`)
var activeYearRegex = regexp.MustCompile(`(?s)<select name="ctl00\$cmbActiveYear".*?<option selected="selected" value="([0-9]*?)"`)

// ExtractHiddenFields collects every hidden <input> of a WebForms page
// into the form map that must be echoed back on the next postback.
// When a field name appears more than once the last occurrence wins;
// that is the defined contract, not an accident of map insertion. Pages
// omit fields contextually, so an absent match is not an error, the
// field is simply not in the map.
//
// The selected academic year is harvested along with the hidden inputs.
// A nonzero activeYear replaces whatever the page had selected.
func ExtractHiddenFields(html string, activeYear int) map[string]string {
	fields := map[string]string{}
	for _, m := range hiddenInputRegex.FindAllStringSubmatch(html, -1) {
		fields[m[1]] = m[2]
	}

	if activeYear != 0 {
		fields[activeYearControl] = strconv.Itoa(activeYear)
	} else if m := activeYearRegex.FindStringSubmatch(html); m != nil {
		fields[activeYearControl] = m[1]
	}
	return fields
}
