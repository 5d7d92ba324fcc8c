package bibtex

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ParseError reports malformed BibTeX input.
type ParseError struct {
	Line    int    // 1-indexed line where the problem was found
	Message string // Description of the error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Entry types that carry no bibliographic record.
var skippedTypes = map[string]bool{
	"comment":  true,
	"preamble": true,
	"string":   true,
}

// parser is a single-pass scanner over BibTeX source.
type parser struct {
	src string
	pos int

	// Offsets into src for the last entry parsed: the citation key span
	// and the entry's closing delimiter.
	keyStart, keyEnd int
	closeAt          int
}

// Parse parses every entry in src. Text outside entries is ignored, as are
// @comment, @preamble and @string blocks.
func Parse(src string) ([]Entry, error) {
	return (&parser{src: src}).all()
}

func (p *parser) all() ([]Entry, error) {
	var entries []Entry

	for {
		at := strings.IndexByte(p.src[p.pos:], '@')
		if at < 0 {
			break
		}
		p.pos += at + 1

		entry, skip, err := p.entry()
		if err != nil {
			return nil, err
		}
		if !skip {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// ParseOne parses src and requires exactly one entry.
func ParseOne(src string) (Entry, error) {
	entries, err := Parse(src)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) != 1 {
		return Entry{}, &ParseError{Line: 1, Message: fmt.Sprintf("expected one entry, found %d", len(entries))}
	}
	return entries[0], nil
}

// ParseFile parses a .bib file.
// Returns no entries (and no error) if the file doesn't exist.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading bibliography: %w", err)
	}

	entries, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// entry parses one entry starting right after '@'.
func (p *parser) entry() (Entry, bool, error) {
	start := p.pos
	typ := strings.ToLower(p.identifier())

	p.skipSpace()
	open := p.peek()
	var closing byte
	switch open {
	case '{':
		closing = '}'
	case '(':
		closing = ')'
	default:
		// A stray '@' in free text (an email address, say) is not an entry.
		p.pos = start
		return Entry{}, true, nil
	}
	if typ == "" {
		return Entry{}, false, p.errorf(start, "missing entry type after '@'")
	}
	p.pos++

	if skippedTypes[typ] {
		if err := p.skipBalanced(open, closing); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, true, nil
	}

	e := Entry{Type: typ}

	// Citation key runs up to the first comma (or the end of the entry).
	keyEnd := strings.IndexAny(p.src[p.pos:], ","+string(closing))
	if keyEnd < 0 {
		return Entry{}, false, p.errorf(start, "unterminated @%s entry", typ)
	}
	rawKey := p.src[p.pos : p.pos+keyEnd]
	e.Key = strings.TrimSpace(rawKey)
	p.keyStart = p.pos + len(rawKey) - len(strings.TrimLeftFunc(rawKey, unicode.IsSpace))
	p.keyEnd = p.keyStart + len(e.Key)
	p.pos += keyEnd

	for {
		p.skipSpace()
		if p.eof() {
			return Entry{}, false, p.errorf(start, "unterminated @%s entry %q", typ, e.Key)
		}
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case closing:
			p.closeAt = p.pos
			p.pos++
			return e, false, nil
		}

		f, err := p.field(closing)
		if err != nil {
			return Entry{}, false, err
		}
		e.Fields = append(e.Fields, f)
	}
}

// field parses "name = value".
func (p *parser) field(closing byte) (Field, error) {
	start := p.pos
	name := strings.ToLower(p.identifier())
	if name == "" {
		return Field{}, p.errorf(start, "expected field name")
	}

	p.skipSpace()
	if p.peek() != '=' {
		return Field{}, p.errorf(p.pos, "expected '=' after field %q", name)
	}
	p.pos++

	p.skipSpace()
	rawStart := p.pos
	var parts []string
	for {
		p.skipSpace()
		part, err := p.value(closing)
		if err != nil {
			return Field{}, err
		}
		parts = append(parts, part)
		rawEnd := p.pos

		p.skipSpace()
		if p.peek() != '#' {
			p.pos = rawEnd
			break
		}
		p.pos++
	}

	return Field{
		Name:  name,
		Value: strings.Join(parts, ""),
		Raw:   p.src[rawStart:p.pos],
	}, nil
}

// value parses a braced, quoted or bare value.
func (p *parser) value(closing byte) (string, error) {
	start := p.pos
	switch p.peek() {
	case '{':
		p.pos++
		inner := p.pos
		if err := p.skipBalanced('{', '}'); err != nil {
			return "", err
		}
		return p.src[inner : p.pos-1], nil
	case '"':
		p.pos++
		inner := p.pos
		depth := 0
		for !p.eof() {
			c := p.src[p.pos]
			switch {
			case c == '{':
				depth++
			case c == '}':
				depth--
			case c == '"' && depth == 0 && p.src[p.pos-1] != '\\':
				p.pos++
				return p.src[inner : p.pos-1], nil
			}
			p.pos++
		}
		return "", p.errorf(start, "unterminated quoted value")
	default:
		for !p.eof() {
			c := p.src[p.pos]
			if c == ',' || c == closing || c == '#' || unicode.IsSpace(rune(c)) {
				break
			}
			p.pos++
		}
		if p.pos == start {
			return "", p.errorf(start, "expected field value")
		}
		return p.src[start:p.pos], nil
	}
}

// skipBalanced advances past the close that balances an already consumed open.
func (p *parser) skipBalanced(open, closing byte) error {
	start := p.pos
	depth := 1
	for !p.eof() {
		switch p.src[p.pos] {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
	return p.errorf(start, "unbalanced '%c'", open)
}

func (p *parser) identifier() string {
	start := p.pos
	for !p.eof() {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune("_-:.+/", c) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errorf(offset int, format string, args ...any) error {
	if offset > len(p.src) {
		offset = len(p.src)
	}
	return &ParseError{
		Line:    strings.Count(p.src[:offset], "\n") + 1,
		Message: fmt.Sprintf(format, args...),
	}
}
