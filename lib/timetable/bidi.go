package timetable

import "unicode"

func isRTL(r rune) bool {
	return unicode.Is(unicode.Hebrew, r)
}

func isNeutral(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Visual reorders a logical-order string for renderers that lay glyphs
// out left to right. Strings without Hebrew pass through untouched;
// mixed strings are reversed run by run so embedded Latin words and
// numbers keep their own direction.
func Visual(s string) string {
	runes := []rune(s)
	rtl := false
	for _, r := range runes {
		if isRTL(r) {
			rtl = true
			break
		}
	}
	if !rtl {
		return s
	}

	// carve the string into directional runs, neutrals attach to the
	// run they follow
	var runs [][]rune
	var current []rune
	currentRTL := true
	for _, r := range runes {
		dir := currentRTL
		if isRTL(r) {
			dir = true
		} else if !isNeutral(r) {
			dir = false
		}
		if len(current) > 0 && dir != currentRTL {
			runs = append(runs, current)
			current = nil
		}
		currentRTL = dir
		current = append(current, r)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	// RTL paragraph: runs render right to left, and the characters of
	// each RTL run flip with them
	out := make([]rune, 0, len(runes))
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		first := run[0]
		if isRTL(first) || isNeutral(first) {
			for j := len(run) - 1; j >= 0; j-- {
				out = append(out, mirror(run[j]))
			}
		} else {
			out = append(out, run...)
		}
	}
	return string(out)
}

// paired punctuation flips with the text around it
func mirror(r rune) rune {
	switch r {
	case '(':
		return ')'
	case ')':
		return '('
	case '[':
		return ']'
	case ']':
		return '['
	case '{':
		return '}'
	case '}':
		return '{'
	}
	return r
}
