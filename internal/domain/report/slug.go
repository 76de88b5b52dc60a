package report

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	slugTimeLayout = "2006-01-02-1504"
	emptySlug      = "report"
)

// slugify lowercases s, folds accents to ASCII, and collapses every run of
// other characters into one hyphen.
func slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	if b.Len() == 0 {
		return emptySlug
	}
	return b.String()
}

// baseSlug combines the location with the creation minute.
func baseSlug(location string, created time.Time) string {
	return slugify(location) + "-" + created.UTC().Format(slugTimeLayout)
}

// candidateSlug returns base for the first attempt and base-N afterwards.
func candidateSlug(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt)
}
