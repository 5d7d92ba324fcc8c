package bibtex

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makecv/makecv/internal/reference"
)

const sampleBib = `% leading comment text is ignored
@string{jcb = "Journal of Computational Biology"}

@Article{Smith2020Deep,
  Title = {Deep {L}earning for {P}hylogenetics},
  author = "Smith, John and Jane Doe",
  journal = {Nature},
  year = 2020,
  month = mar,
  volume = {12},
  doi = {10.1234/ABC.5}
}

@comment{ignored block with {braces}}

@inproceedings(Brown2019Fast,
  title = "Fast " # "Alignment",
  booktitle = {Proceedings of ICML},
  date = {2019-07-01},
)
`

func TestParse_Basic(t *testing.T) {
	entries, err := Parse(sampleBib)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.Type != "article" || first.Key != "Smith2020Deep" {
		t.Errorf("first entry = @%s{%s}, want @article{Smith2020Deep}", first.Type, first.Key)
	}
	if got := first.Get("title"); got != "Deep {L}earning for {P}hylogenetics" {
		t.Errorf("title = %q", got)
	}
	if got := first.Get("AUTHOR"); got != "Smith, John and Jane Doe" {
		t.Errorf("author = %q", got)
	}
	if got := first.Get("year"); got != "2020" {
		t.Errorf("year = %q", got)
	}

	second := entries[1]
	if second.Key != "Brown2019Fast" {
		t.Errorf("second key = %q", second.Key)
	}
	if got := second.Get("title"); got != "Fast Alignment" {
		t.Errorf("concatenated title = %q, want %q", got, "Fast Alignment")
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated entry", "@article{Key,\n  title = {Open"},
		{"missing equals", "@article{Key,\n  title {x}\n}"},
		{"no key", "@article{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Line < 1 {
				t.Errorf("ParseError.Line = %d, want >= 1", pe.Line)
			}
		})
	}
}

func TestParseOne_RequiresSingleEntry(t *testing.T) {
	if _, err := ParseOne(""); err == nil {
		t.Error("ParseOne(\"\") expected error")
	}
	if _, err := ParseOne(sampleBib); err == nil {
		t.Error("ParseOne() with two entries expected error")
	}
}

func TestParseFile_Missing(t *testing.T) {
	entries, err := ParseFile(filepath.Join(t.TempDir(), "nope.bib"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ParseFile() returned %d entries, want 0", len(entries))
	}
}

func TestEntry_SetGetDelete(t *testing.T) {
	e := Entry{Type: "article", Key: "K"}
	e.Set("Title", "A")
	e.Set("title", "B")
	if len(e.Fields) != 1 {
		t.Fatalf("Set() on existing field appended; fields = %v", e.Fields)
	}
	if e.Get("TITLE") != "B" {
		t.Errorf("Get() = %q, want B", e.Get("TITLE"))
	}
	if e.Has("doi") {
		t.Error("Has(doi) = true on entry without doi")
	}
	e.Delete("title")
	if e.Has("title") {
		t.Error("Delete() left title in place")
	}
}

func TestEntry_StringRoundTrip(t *testing.T) {
	entries, err := Parse(sampleBib)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		again, err := ParseOne(e.String())
		if err != nil {
			t.Fatalf("re-parse %s error = %v", e.Key, err)
		}
		if again.String() != e.String() {
			t.Errorf("serialization not stable:\n%s\nvs\n%s", again.String(), e.String())
		}
	}
}

func TestEntry_StringKeepsDelimiters(t *testing.T) {
	src := `@article{Doe_2020,
  title = {A {DNA} Study},
  month = jan,
  journal = "J" # " Phys",
  year = 2020,
}`
	e, err := ParseOne(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Get("journal"); got != "J Phys" {
		t.Errorf("Get(journal) = %q, want joined value", got)
	}

	got := e.String()
	for _, want := range []string{
		"title = {A {DNA} Study},",
		"month = jan,",
		`journal = "J" # " Phys",`,
		"year = 2020,",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q, got:\n%s", want, got)
		}
	}

	e.Set("journal", "Phys Rev")
	if got := e.String(); !strings.Contains(got, "journal = {Phys Rev},") {
		t.Errorf("Set() value not braced, got:\n%s", got)
	}
}

func TestEntry_SetMonth(t *testing.T) {
	e := Entry{Type: "misc", Key: "K"}
	e.SetMonth(13)
	if e.Has("month") {
		t.Error("SetMonth(13) should be ignored")
	}
	e.SetMonth(11)
	if !strings.Contains(e.String(), "month = nov,") {
		t.Errorf("SetMonth(11) not written as macro:\n%s", e.String())
	}
	if ParseMonth(e.Get("month")) != 11 {
		t.Errorf("month %q does not parse back", e.Get("month"))
	}
}

func TestToReference(t *testing.T) {
	entries, err := Parse(sampleBib)
	if err != nil {
		t.Fatal(err)
	}

	ref := entries[0].ToReference()
	if ref.Title != "Deep Learning for Phylogenetics" {
		t.Errorf("Title = %q", ref.Title)
	}
	if len(ref.Authors) != 2 {
		t.Fatalf("Authors = %v, want 2", ref.Authors)
	}
	if ref.Authors[0].Last != "Smith" || ref.Authors[1].Last != "Doe" {
		t.Errorf("Authors = %v", ref.Authors)
	}
	if ref.Year != 2020 || ref.Month != 3 {
		t.Errorf("Year/Month = %d/%d, want 2020/3", ref.Year, ref.Month)
	}
	if ref.Venue != "Nature" {
		t.Errorf("Venue = %q", ref.Venue)
	}
	if ref.Field("volume") != "12" {
		t.Errorf("volume = %q", ref.Field("volume"))
	}
	if ref.Type != reference.TypeArticle {
		t.Errorf("Type = %q", ref.Type)
	}

	conf := entries[1].ToReference()
	if conf.Year != 2019 {
		t.Errorf("Year from date = %d, want 2019", conf.Year)
	}
	if conf.Venue != "Proceedings of ICML" {
		t.Errorf("Venue from booktitle = %q", conf.Venue)
	}
}

func TestSplitAuthors_ProtectedAnd(t *testing.T) {
	got := splitAuthors("{Smith and Wesson} and Doe, Jane")
	if len(got) != 2 {
		t.Fatalf("splitAuthors() = %q, want 2 names", got)
	}
	if strings.TrimSpace(got[0]) != "{Smith and Wesson}" {
		t.Errorf("first = %q", got[0])
	}
}

func TestFromReference(t *testing.T) {
	ref := reference.Reference{
		ID:    "Smith2026Test",
		DOI:   "10.1234/test_1",
		Type:  reference.TypeArticle,
		Title: "Costs & Benefits",
		Authors: []reference.Author{
			{First: "John", Last: "Smith"},
			{First: "Jane", Last: "Doe"},
		},
		Venue:  "Nature",
		Year:   2026,
		Month:  3,
		Fields: map[string]string{"volume": "7", "pages": "1--10"},
	}

	got := FromReference(ref).String()

	for _, want := range []string{
		"@article{Smith2026Test,",
		"author = {Smith, John and Doe, Jane}",
		`title = {Costs \& Benefits}`,
		"journal = {Nature}",
		"year = {2026}",
		"month = mar,",
		"doi = {10.1234/test_1}",
		"pages = {1--10}",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FromReference() missing %q, got:\n%s", want, got)
		}
	}

	// Extra fields come after the core block, sorted.
	if strings.Index(got, "pages") > strings.Index(got, "volume") {
		t.Errorf("extra fields not sorted:\n%s", got)
	}
}

func TestFromReference_VenueFieldByType(t *testing.T) {
	tests := []struct {
		typ  reference.EntryType
		want string
	}{
		{reference.TypeArticle, "journal = {V}"},
		{reference.TypeInProceedings, "booktitle = {V}"},
		{reference.TypeBook, "publisher = {V}"},
		{reference.TypePatent, "howpublished = {V}"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got := FromReference(reference.Reference{ID: "K", Type: tt.typ, Title: "T", Venue: "V"}).String()
			if !strings.Contains(got, tt.want) {
				t.Errorf("missing %q in:\n%s", tt.want, got)
			}
		})
	}
}

func TestGuessEntryType(t *testing.T) {
	tests := []struct {
		venue string
		want  reference.EntryType
	}{
		{"Nature", reference.TypeArticle},
		{"Proceedings of ICML", reference.TypeInProceedings},
		{"NeurIPS Workshop on Things", reference.TypeInProceedings},
		{"", reference.TypeArticle},
	}
	for _, tt := range tests {
		if got := GuessEntryType(tt.venue); got != tt.want {
			t.Errorf("GuessEntryType(%q) = %q, want %q", tt.venue, got, tt.want)
		}
	}
}

func TestParseMonth(t *testing.T) {
	tests := map[string]int{
		"":          0,
		"3":         3,
		"13":        0,
		"mar":       3,
		"March":     3,
		"{Dec}":     12,
		"nonsense":  0,
		"september": 9,
	}
	for in, want := range tests {
		if got := ParseMonth(in); got != want {
			t.Errorf("ParseMonth(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "Hello World"},
		{"A & B", `A \& B`},
		{"100%", `100\%`},
		{"$x$", `\$x\$`},
		{"a_b", `a\_b`},
		{"{x}", `\{x\}`},
	}
	for _, tt := range tests {
		if got := EscapeLatex(tt.input); got != tt.want {
			t.Errorf("EscapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReplaceKey_OnlyKeyChanges(t *testing.T) {
	src := "@article{old,\n  title = {Keep {Me}},\n  author = {A, B},\n}\n"
	got, err := ReplaceKey(src, "New2024Key")
	if err != nil {
		t.Fatalf("ReplaceKey() error = %v", err)
	}
	before, _ := ParseOne(src)
	after, err := ParseOne(got)
	if err != nil {
		t.Fatalf("result does not parse: %v", err)
	}
	if after.Key != "New2024Key" {
		t.Errorf("Key = %q", after.Key)
	}
	if len(after.Fields) != len(before.Fields) {
		t.Fatalf("field count changed: %d -> %d", len(before.Fields), len(after.Fields))
	}
	for i := range before.Fields {
		if before.Fields[i] != after.Fields[i] {
			t.Errorf("field %d changed: %v -> %v", i, before.Fields[i], after.Fields[i])
		}
	}
}

func TestReplaceKey_KeepsTextVerbatim(t *testing.T) {
	src := "@ARTICLE{ Doe_2020 ,\n  month=jan,\n  journal = \"J\" # \" Phys\",\n\ttitle={Keep}}\n"
	got, err := ReplaceKey(src, "Doe2020Study")
	if err != nil {
		t.Fatalf("ReplaceKey() error = %v", err)
	}
	want := "@ARTICLE{ Doe2020Study ,\n  month=jan,\n  journal = \"J\" # \" Phys\",\n\ttitle={Keep}}\n"
	if got != want {
		t.Errorf("ReplaceKey() =\n%s\nwant\n%s", got, want)
	}

	if _, err := ReplaceKey(src+src, "X"); err == nil {
		t.Error("ReplaceKey() on two entries should fail")
	}
}

func TestAddField(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "trailing comma",
			src:  "@article{K,\n  month = jan,\n}\n",
			want: "@article{K,\n  month = jan,\n  doi = {10.1/x}\n}\n",
		},
		{
			name: "no trailing comma",
			src:  "@article{K, title = \"T\"}",
			want: "@article{K, title = \"T\",\n  doi = {10.1/x}\n}",
		},
		{
			name: "no fields",
			src:  "@misc{K}",
			want: "@misc{K,\n  doi = {10.1/x}\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddField(tt.src, "doi", "10.1/x")
			if err != nil {
				t.Fatalf("AddField() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AddField() =\n%q\nwant\n%q", got, tt.want)
			}
			if _, err := ParseOne(got); err != nil {
				t.Errorf("result does not parse: %v", err)
			}
		})
	}
}

func TestAppendToFile_NeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bib")
	existing := "@misc{Existing,\n  title = {Old},\n}\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AppendToFile(path, "@misc{New,\n  title = {New},\n}\n"); err != nil {
		t.Fatalf("AppendToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), existing) {
		t.Errorf("existing content was modified:\n%s", data)
	}
	entries, err := Parse(string(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("file has %d entries, want 2", len(entries))
	}
}

func TestAppendToFile_Creates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.bib")
	if err := AppendToFile(path, "@misc{A,\n  title = {T},\n}\n"); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path)
	if err != nil || len(entries) != 1 {
		t.Errorf("ParseFile() = %d entries, err %v", len(entries), err)
	}
}

func TestParse_StrayAtSign(t *testing.T) {
	src := "Maintained by someone@example.org\n\n@misc{K,\n  title = {T},\n}\n"
	entries, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "K" {
		t.Errorf("Parse() = %v, want single entry K", entries)
	}
}
