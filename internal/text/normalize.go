package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
		"‘", "'", "’", "'", "‚", "'", "′", "'",
		"–", "-", "—", "-", "−", "-",
	)
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText folds compatibility characters (mathematical bold and italic
// letters, ligatures, full-width forms) with NFKC, converts typographic quotes
// and dashes to ASCII, drops emoji and other pictographic symbols, and
// collapses whitespace. Paragraph breaks survive as a single blank line.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = quoteReplacer.Replace(s)
	s = strings.Map(dropSymbols, s)

	paragraphs := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		if p := strings.Join(strings.Fields(para), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func dropSymbols(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r) && r > unicode.MaxASCII:
		return -1
	case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Co, r), unicode.Is(unicode.Cs, r):
		return -1
	case r >= 0xFE00 && r <= 0xFE0F:
		// variation selectors
		return -1
	case unicode.IsControl(r):
		return ' '
	}
	return r
}

// StripHTML removes tags left in scraped article bodies.
func StripHTML(s string) string {
	return htmlTagRe.ReplaceAllString(s, " ")
}

// NormalizeCode keeps line structure: it trims trailing whitespace, drops
// control characters and collapses runs of blank lines.
func NormalizeCode(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(strings.Map(dropControl, l), unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n")
}

func dropControl(r rune) rune {
	if r == '\t' {
		return r
	}
	if unicode.IsControl(r) || unicode.Is(unicode.Cs, r) {
		return -1
	}
	return r
}
