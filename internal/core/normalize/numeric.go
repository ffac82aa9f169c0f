package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// placeholders scrapers emit instead of leaving a field empty
var absentMarkers = map[string]struct{}{
	"n/a": {}, "na": {}, "-": {}, "--": {}, "none": {}, "null": {}, "nil": {},
	"unknown": {}, "?": {}, "tbd": {}, "on request": {}, "sur demande": {}, "auf anfrage": {},
}

// Number extracts the first amount in s
// Currency symbols and codes before the digits are skipped, thousands separators
// (comma, dot, apostrophe and spaces) are removed and whatever follows the digits is returned as unit
// A trailing "k" multiplier ("75k", "75k km") is applied and stripped from unit
// ok is false for empty input, placeholders, negatives and strings without digits
func Number(s string) (v float64, unit string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(Sanitize(s)))
	if s == "" {
		return 0, "", false
	}
	if _, absent := absentMarkers[s]; absent {
		return 0, "", false
	}

	rs := []rune(s)
	start := -1
	for i, r := range rs {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, "", false
	}
	if negativeBefore(rs[:start]) {
		return 0, "", false
	}

	end := start
	for end < len(rs) {
		r := rs[end]
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '\'':
			end++
			continue
		case isGroupSpace(r) && end+1 < len(rs) && rs[end+1] >= '0' && rs[end+1] <= '9':
			end++
			continue
		}
		break
	}

	token := strings.TrimRight(string(rs[start:end]), ".,'")
	unit = strings.TrimSpace(string(rs[end:]))

	f, err := strconv.ParseFloat(canonDecimal(token), 64)
	if err != nil || f < 0 {
		return 0, "", false
	}

	if strings.HasPrefix(unit, "k") && !strings.HasPrefix(unit, "km") {
		f *= 1000
		unit = strings.TrimSpace(unit[1:])
	}
	return f, unit, true
}

// canonDecimal rewrites a digit run with mixed separators into strconv form
// both '.' and ',' present: the later one is the decimal point
// a single kind repeated: thousands
// a single occurrence followed by exactly three digits: thousands
// otherwise: decimal point
func canonDecimal(tok string) string {
	tok = strings.Map(func(r rune) rune {
		if r == '\'' || isGroupSpace(r) {
			return -1
		}
		return r
	}, tok)

	lastDot := strings.LastIndexByte(tok, '.')
	lastComma := strings.LastIndexByte(tok, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec, grp := byte('.'), ","
		if lastComma > lastDot {
			dec, grp = ',', "."
		}
		tok = strings.ReplaceAll(tok, grp, "")
		return strings.Replace(tok, string(dec), ".", 1)
	case lastDot < 0 && lastComma < 0:
		return tok
	}

	sep, at := ".", lastDot
	if lastComma >= 0 {
		sep, at = ",", lastComma
	}
	if strings.Count(tok, sep) > 1 || len(tok)-at-1 == 3 {
		return strings.ReplaceAll(tok, sep, "")
	}
	return strings.Replace(tok, sep, ".", 1)
}

// a '-' directly before the digits (currency may sit in between) marks a negative
func negativeBefore(prefix []rune) bool {
	for i := len(prefix) - 1; i >= 0; i-- {
		r := prefix[i]
		switch {
		case r == '-' || r == '−':
			return true
		case unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) || unicode.IsSpace(r):
			continue
		default:
			return false
		}
	}
	return false
}

func isGroupSpace(r rune) bool {
	return r == ' ' || r == '\u00a0' || r == '\u202f' || r == '\u2009'
}
