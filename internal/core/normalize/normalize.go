// Package normalize folds free text coming from scrapers into a stable comparable form
// Pipeline order
// 1 sanitize controls and invalid UTF-8
// 2 Unicode NFKD decomposition
// 3 Case folding
// 4 Remove combining and format marks
// 5 Width fold fullwidth to ASCII
// 6 NFC recomposition
// 7 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// transformer chains are stateful, so each caller borrows one
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip ZWJ ZWNJ FEFF etc
			width.Fold,
			norm.NFC,
		)
	},
}

// Title returns the folded single line form of a listing title
// Title is idempotent: Title(Title(s)) == Title(s)
func Title(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(fold(s), false)
}

// Text folds a longer body but keeps paragraph breaks as single newlines
func Text(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(fold(s), true)
}

// Slug lower-cases an identifier and keeps only [a-z0-9_-]
// Returns "" when nothing usable remains
func Slug(s string) string {
	s = fold(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func fold(s string) string {
	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// transform only fails on malformed input Sanitize already dropped
		return strings.ToLower(s)
	}
	return ns
}

// collapseSpaces turns whitespace runs into one space
// with keepNL a run containing a line break becomes a single '\n'
func collapseSpaces(s string, keepNL bool) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS, sawNL := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		if inWS && b.Len() > 0 {
			if keepNL && sawNL {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		inWS, sawNL = false, false
		b.WriteRune(r)
	}
	return b.String()
}
