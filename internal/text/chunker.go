package text

import (
	"regexp"
	"strings"
)

var (
	editLinkRe = regexp.MustCompile(`(?mi)^\[edit[^\]]*\]\([^\)]+\)\s*$`)
	tocRe      = regexp.MustCompile(`(?mi)^#{1,3}\s+(?:table of )?contents?\s*\n(?:\s*[-*]\s*\[.*?\]\(#.*?\)\s*\n)*`)
	headerRe   = regexp.MustCompile(`(?m)^#{1,6}\s`)
)

// CleanMarkdownNoise removes documentation boilerplate: "Edit this page"
// links and link-only tables of contents.
func CleanMarkdownNoise(text string) string {
	text = editLinkRe.ReplaceAllString(text, "")
	text = tocRe.ReplaceAllString(text, "")
	return text
}

// Chunker packs text into chunks whose counted size never exceeds MaxTokens.
// Boundaries are tried coarse to fine: headers, paragraphs, lines, words and,
// for a single oversized word, runes. The output is a pure function of the input.
//
// PlainText disables header sections, for content such as source code where a
// leading '#' is a comment rather than a markdown heading.
type Chunker struct {
	MaxTokens int
	Counter   Counter
	PlainText bool
}

func NewChunker(maxTokens int, counter Counter) Chunker {
	if counter == nil {
		counter = WordCounter{}
	}
	return Chunker{MaxTokens: maxTokens, Counter: counter}
}

// WithoutSections returns a copy of c that ignores markdown headers.
func (c Chunker) WithoutSections() Chunker {
	c.PlainText = true
	return c
}

var separators = []string{"\n\n", "\n", " "}

// Split returns the chunks of text in order. Empty or blank text yields no chunks.
func (c Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	p := &packer{max: c.MaxTokens, counter: c.Counter}
	if p.counter == nil {
		p.counter = WordCounter{}
	}
	if p.max <= 0 {
		p.max = 1
	}

	sections := []string{text}
	if !c.PlainText {
		sections = splitSections(text)
	}
	for _, section := range sections {
		for _, para := range splitPieces(section, 0) {
			p.add(para, 0)
		}
		// Sections never share a chunk.
		p.flush()
	}
	return p.chunks
}

// splitSections cuts text in front of every markdown header.
func splitSections(text string) []string {
	var sections []string
	last := 0
	for _, loc := range headerRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			sections = append(sections, text[last:loc[0]])
		}
		last = loc[0]
	}
	if last < len(text) {
		sections = append(sections, text[last:])
	}
	return sections
}

func splitPieces(text string, level int) []string {
	var raw []string
	if separators[level] == " " {
		raw = strings.Fields(text)
	} else {
		raw = strings.Split(text, separators[level])
	}

	pieces := raw[:0]
	for _, r := range raw {
		if level == 0 {
			r = strings.TrimSpace(r)
		} else {
			r = strings.TrimRight(r, " \t\r")
		}
		if strings.TrimSpace(r) != "" {
			pieces = append(pieces, r)
		}
	}
	return pieces
}

type packer struct {
	max     int
	counter Counter
	cur     string
	chunks  []string
}

func (p *packer) fits(s string) bool {
	return p.counter.Count(s) <= p.max
}

func (p *packer) flush() {
	if c := strings.TrimSpace(p.cur); c != "" {
		p.chunks = append(p.chunks, c)
	}
	p.cur = ""
}

func (p *packer) add(piece string, level int) {
	if p.cur == "" {
		if p.fits(piece) {
			p.cur = piece
			return
		}
	} else {
		if joined := p.cur + separators[level] + piece; p.fits(joined) {
			p.cur = joined
			return
		}
		if p.fits(piece) {
			p.flush()
			p.cur = piece
			return
		}
		p.flush()
	}

	if level+1 < len(separators) {
		for _, sub := range splitPieces(piece, level+1) {
			p.add(sub, level+1)
		}
		return
	}
	p.addRunes(piece)
}

// addRunes handles a single word that exceeds the budget on its own.
func (p *packer) addRunes(word string) {
	bounds := make([]int, 0, len(word)+1)
	for i := range word {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(word))

	start, last := 0, 0
	for _, b := range bounds[1:] {
		if p.fits(word[start:b]) {
			last = b
			continue
		}
		if last == start {
			// A lone rune over budget still goes out as its own chunk.
			last = b
		}
		p.cur = word[start:last]
		p.flush()
		start = last

		if b > start {
			if p.fits(word[start:b]) {
				last = b
			} else {
				p.cur = word[start:b]
				p.flush()
				start, last = b, b
			}
		}
	}
	if start < len(word) {
		p.cur = word[start:]
	}
}
