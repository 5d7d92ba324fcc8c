// Package citekey generates citation keys for new bibliography entries.
package citekey

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/makecv/makecv/internal/reference"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "in": true,
	"on": true, "for": true, "to": true, "with": true, "from": true, "by": true,
	"at": true, "is": true, "are": true, "via": true,
}

// Synthesize builds a key from the first author's surname, the year and the
// first significant word of the title, e.g. "Smith2020Deep". A zero year is
// omitted. The result contains only ASCII letters and digits.
func Synthesize(surname string, year int, title string) string {
	var b strings.Builder

	last := asciiLetters(surname)
	if last == "" {
		last = "Anon"
	}
	b.WriteString(last)

	if year > 0 {
		b.WriteString(strconv.Itoa(year))
	}

	for _, word := range strings.Fields(title) {
		w := asciiAlnum(word)
		if w == "" || stopWords[strings.ToLower(w)] {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]) + w[1:])
		break
	}

	return b.String()
}

func asciiLetters(s string) string {
	var b strings.Builder
	for _, r := range reference.Fold(s) {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func asciiAlnum(s string) string {
	var b strings.Builder
	for _, r := range reference.Fold(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
