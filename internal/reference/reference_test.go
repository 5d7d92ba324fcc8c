package reference

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Deep Learning: A Survey", "deeplearningasurvey"},
		{"  {Über} Trees!  ", "ubertrees"},
		{`Stabilit{\"a}t`, "stabilitat"},
		{"Stabilität", "stabilitat"},
		{"COVID-19 in 2020", "covid19in2020"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct{ in, want string }{
		{"10.1000/ABC", "10.1000/abc"},
		{"https://doi.org/10.1000/ABC", "10.1000/abc"},
		{"http://dx.doi.org/10.1000/abc", "10.1000/abc"},
		{"doi:10.1000/abc ", "10.1000/abc"},
		{"DOI:10.1000/abc", "10.1000/abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDOI(tt.in); got != tt.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEntryType(t *testing.T) {
	tests := map[string]EntryType{
		"article":       TypeArticle,
		"ARTICLE":       TypeArticle,
		"phdthesis":     TypeThesis,
		"conference":    TypeInProceedings,
		"inbook":        TypeInCollection,
		"patent":        TypePatent,
		"unpublished":   TypeMisc,
		"":              TypeMisc,
	}
	for in, want := range tests {
		if got := ParseEntryType(in); got != want {
			t.Errorf("ParseEntryType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Author
	}{
		{"Smith, John", Author{First: "John", Last: "Smith"}},
		{"John Smith", Author{First: "John", Last: "Smith"}},
		{"Jane Q. Doe", Author{First: "Jane Q.", Last: "Doe"}},
		{"Martin Luther King Jr.", Author{First: "Martin Luther", Last: "King Jr."}},
		{"Madonna", Author{Last: "Madonna"}},
		{"von Neumann, John", Author{First: "John", Last: "von Neumann"}},
		{"  ", Author{}},
	}
	for _, tt := range tests {
		if got := ParseName(tt.in); got != tt.want {
			t.Errorf("ParseName(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSetField(t *testing.T) {
	var r Reference
	r.SetField("Volume", "7")
	if got := r.Field("volume"); got != "7" {
		t.Errorf("Field(volume) = %q, want 7", got)
	}
	r.SetField("volume", "")
	if _, ok := r.Fields["volume"]; ok {
		t.Error("empty value should remove the field")
	}
	if got := (Reference{}).Field("pages"); got != "" {
		t.Errorf("Field on nil map = %q", got)
	}
}

func TestFirstAuthorSurname(t *testing.T) {
	r := Reference{Authors: []Author{{First: "Ada", Last: "Lovelace"}, {Last: "Babbage"}}}
	if got := r.FirstAuthorSurname(); got != "Lovelace" {
		t.Errorf("FirstAuthorSurname() = %q", got)
	}
	if got := (Reference{}).FirstAuthorSurname(); got != "" {
		t.Errorf("FirstAuthorSurname() on no authors = %q", got)
	}
}
