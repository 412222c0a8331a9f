package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

func mustNew(t *testing.T, kind Kind, opts Options) *Analyzer {
	t.Helper()
	a, err := New(kind, opts)
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	return a
}

func TestAnalyzeVariants(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		text string
		want []string
	}{
		{"simple splits on non-letters", Simple, "Hello, World-42 foo", []string{"hello", "world", "foo"}},
		{"simple keeps stopwords", Simple, "the cat", []string{"the", "cat"}},
		{"whitespace keeps case and punctuation", Whitespace, "Hello,  World!", []string{"Hello,", "World!"}},
		{"standard drops stopwords", Standard, "The cat sat on the mat.", []string{"cat", "sat", "mat"}},
		{"standard keeps numbers", Standard, "version 42 released", []string{"version", "42", "released"}},
		{"stop tokenizes letters only", Stop, "The x42 robot", []string{"x", "robot"}},
		{"english stems", English, "Running runners ran", []string{"run", "runner", "ran"}},
		{"english strips possessives", English, "The dog's bone", []string{"dog", "bone"}},
		{"empty input", Standard, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustNew(t, tt.kind, Options{})
			got := a.Terms(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Terms(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestInvalidUTF8KeepsTrailingWords(t *testing.T) {
	text := "alpha beta \xff\xfe gamma delta"
	for _, kind := range []Kind{Standard, English} {
		a := mustNew(t, kind, Options{})
		got := a.Terms(text)
		seen := make(map[string]bool, len(got))
		for _, term := range got {
			seen[term] = true
		}
		for _, want := range []string{"alpha", "beta", "gamma", "delta"} {
			if !seen[want] {
				t.Errorf("%s: Terms(%q) = %v, missing %q", kind, text, got, want)
			}
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	text := "The quick brown fox's jumps over 3 lazy dogs; naïve café-goers, ÜBER!"
	for kind := range kindNames {
		opts := Options{}
		if kind == EnglishSpacy {
			opts.Stopwords = []string{"the", "over"}
		}
		a := mustNew(t, kind, opts)
		first := a.Analyze(text)
		second := a.Analyze(text)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: analysis not deterministic: %v vs %v", kind, first, second)
		}
	}
}

func TestStopwordOnlyInputIsEmpty(t *testing.T) {
	inputs := []string{
		"the and of",
		"The, AND; of!!! a... an?",
		"  ...  ",
	}
	for _, kind := range []Kind{Standard, Stop} {
		a := mustNew(t, kind, Options{})
		for _, in := range inputs {
			if got := a.Analyze(in); len(got) != 0 {
				t.Errorf("%s: Analyze(%q) = %v, want empty", kind, in, got)
			}
		}
	}
}

func TestStopwordGapsPreservePositions(t *testing.T) {
	a := mustNew(t, Standard, Options{})
	got := a.Analyze("cat in the hat")
	want := []Token{{Term: "cat", Position: 0}, {Term: "hat", Position: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %v, want %v", got, want)
	}
}

func TestCustomStopwords(t *testing.T) {
	a := mustNew(t, Standard, Options{Stopwords: []string{"Cat"}})
	got := a.Terms("the cat sat")
	want := []string{"the", "sat"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
}

func TestEnglishSpacyRequiresStopwords(t *testing.T) {
	_, err := New(EnglishSpacy, Options{})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	a := mustNew(t, EnglishSpacy, Options{Stopwords: []string{"whereas"}})
	got := a.Terms("whereas the cats")
	want := []string{"the", "cat"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"simple", Simple, false},
		{"Standard", Standard, false},
		{" whitespace ", Whitespace, false},
		{"stop", Stop, false},
		{"english", English, false},
		{"stem", English, false},
		{"english_spacy", EnglishSpacy, false},
		{"klingon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Errorf("ParseKind(%q): expected configuration error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(Kind(99), Options{}); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadStopwordFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop.txt")
	content := "# comment\nthe\n\n  And \nof\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	words, err := LoadStopwordFile(path)
	if err != nil {
		t.Fatalf("LoadStopwordFile: %v", err)
	}
	want := []string{"the", "And", "of"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("words = %v, want %v", words, want)
	}

	_, err = LoadStopwordFile(filepath.Join(dir, "missing.txt"))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}
