package bibtex

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ReplaceKey swaps the citation key of a single formatted entry. Only the
// text between the opening delimiter and the first comma changes; every
// other byte of text is kept.
func ReplaceKey(text, key string) (string, error) {
	p, err := parseSingle(text)
	if err != nil {
		return "", err
	}
	return text[:p.keyStart] + key + text[p.keyEnd:], nil
}

// AddField appends "name = {value}" as the last field of a single
// formatted entry, leaving the rest of the text as written.
func AddField(text, name, value string) (string, error) {
	p, err := parseSingle(text)
	if err != nil {
		return "", err
	}
	body := strings.TrimRightFunc(text[:p.closeAt], unicode.IsSpace)
	sep := ""
	if !strings.HasSuffix(body, ",") {
		sep = ","
	}
	return body + sep + "\n  " + name + " = {" + value + "}\n" + text[p.closeAt:], nil
}

func parseSingle(text string) (*parser, error) {
	p := &parser{src: text}
	entries, err := p.all()
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 {
		return nil, &ParseError{Line: 1, Message: fmt.Sprintf("expected one entry, found %d", len(entries))}
	}
	return p, nil
}

// AppendToFile appends BibTeX content to a file, creating it if needed.
// Existing content is never rewritten.
func AppendToFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}

	// Ensure we start on a new line
	if _, err := file.WriteString("\n" + content); err != nil {
		file.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return file.Close()
}
