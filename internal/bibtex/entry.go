// Package bibtex reads, edits and writes BibTeX entries.
//
// Entries are handled as structured values (type, key, ordered fields) so
// that edits such as swapping a citation key or adding a DOI never touch
// any other part of the record.
package bibtex

import (
	"fmt"
	"strings"
)

// Field is a single name = value pair. Value holds the content without the
// outer delimiters, with # concatenations joined.
type Field struct {
	Name  string
	Value string

	// Raw is the value exactly as written in the source: braces, quotes,
	// bare macros and # concatenations included. It is empty for values
	// set through Set, which are written back in braces.
	Raw string
}

// Entry is one BibTeX record.
type Entry struct {
	Type   string // lowercase entry type as written (article, phdthesis, ...)
	Key    string
	Fields []Field
}

// Get returns the value of the named field (case-insensitive), or "".
func (e *Entry) Get(name string) string {
	if i := e.index(name); i >= 0 {
		return e.Fields[i].Value
	}
	return ""
}

// Has reports whether the named field is present with a non-empty value.
func (e *Entry) Has(name string) bool {
	return strings.TrimSpace(e.Get(name)) != ""
}

// Set replaces the named field in place, or appends it if absent.
func (e *Entry) Set(name, value string) {
	e.set(Field{Name: strings.ToLower(name), Value: value})
}

// SetMonth writes month as a bare three-letter macro (jan, feb, ...) so
// styles print the full month name. Out-of-range months are ignored.
func (e *Entry) SetMonth(month int) {
	if month < 1 || month > 12 {
		return
	}
	m := monthNames[month-1]
	e.set(Field{Name: "month", Value: m, Raw: m})
}

func (e *Entry) set(f Field) {
	if i := e.index(f.Name); i >= 0 {
		f.Name = e.Fields[i].Name
		e.Fields[i] = f
		return
	}
	e.Fields = append(e.Fields, f)
}

// Delete removes the named field if present.
func (e *Entry) Delete(name string) {
	if i := e.index(name); i >= 0 {
		e.Fields = append(e.Fields[:i], e.Fields[i+1:]...)
	}
}

func (e *Entry) index(name string) int {
	for i, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// String serializes the entry in canonical form:
//
//	@article{Key,
//	  title = {...},
//	}
//
// Parsed values keep their original delimiters.
func (e Entry) String() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", e.Type, e.Key))
	for _, f := range e.Fields {
		raw := f.Raw
		if raw == "" {
			raw = "{" + f.Value + "}"
		}
		b.WriteString(fmt.Sprintf("  %s = %s,\n", f.Name, raw))
	}
	b.WriteString("}\n")

	return b.String()
}
