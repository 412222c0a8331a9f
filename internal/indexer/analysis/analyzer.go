// Package analysis turns raw text into positioned index terms. Each analyzer
// kind is a fixed tokenizer plus a fixed filter chain; the same analyzer is
// used for documents at build time and for query text at search time.
package analysis

import (
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/blevesearch/segment"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

// maxTokenLength bounds the length, in runes, of a token kept by the
// word-boundary tokenizer.
const maxTokenLength = 255

type Kind int

const (
	Simple Kind = iota
	Whitespace
	Standard
	Stop
	English
	EnglishSpacy
)

var kindNames = map[Kind]string{
	Simple:       "simple",
	Whitespace:   "whitespace",
	Standard:     "standard",
	Stop:         "stop",
	English:      "english",
	EnglishSpacy: "english_spacy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps an analyzer name to its Kind. "stem" is accepted as an
// alias of "english".
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "stem" {
		return English, nil
	}
	for k, n := range kindNames {
		if n == normalized {
			return k, nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrConfiguration, "unknown analyzer %q", name)
}

// Token is a single normalised term and its position in the token stream.
// Positions of removed tokens are not reused, so gaps are preserved.
type Token struct {
	Term     string
	Position int
}

// Options configures the stopword filter. A nil Stopwords slice selects
// EnglishStopwords; english_spacy requires an explicit list.
type Options struct {
	Stopwords []string
}

// Analyzer is immutable after construction and safe for concurrent use.
type Analyzer struct {
	kind Kind
	stop map[string]struct{}
}

func New(kind Kind, opts Options) (*Analyzer, error) {
	if _, ok := kindNames[kind]; !ok {
		return nil, apperrors.Newf(apperrors.ErrConfiguration, "unknown analyzer kind %d", int(kind))
	}
	a := &Analyzer{kind: kind}
	switch kind {
	case Standard, Stop, English:
		words := opts.Stopwords
		if words == nil {
			words = EnglishStopwords
		}
		a.stop = stopSet(words)
	case EnglishSpacy:
		if len(opts.Stopwords) == 0 {
			return nil, apperrors.New(apperrors.ErrConfiguration, "english_spacy requires a stopword list")
		}
		a.stop = stopSet(opts.Stopwords)
	}
	return a, nil
}

func (a *Analyzer) Kind() Kind {
	return a.kind
}

// Analyze runs the tokenizer and filter chain of the analyzer's kind.
func (a *Analyzer) Analyze(text string) []Token {
	switch a.kind {
	case Simple:
		return lowercase(letterTokens(text))
	case Whitespace:
		return whitespaceTokens(text)
	case Standard:
		return a.removeStopwords(lowercase(wordTokens(text)))
	case Stop:
		return a.removeStopwords(lowercase(letterTokens(text)))
	case English, EnglishSpacy:
		tokens := a.removeStopwords(lowercase(stripPossessives(wordTokens(text))))
		return stem(tokens)
	}
	return nil
}

// Terms returns only the term strings of Analyze.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Analyze(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

func letterTokens(text string) []Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return positioned(words)
}

func whitespaceTokens(text string) []Token {
	return positioned(strings.Fields(text))
}

// wordTokens splits on Unicode word boundaries (UAX#29) and keeps the
// segments that carry letters, digits or ideographs.
func wordTokens(text string) []Token {
	segmenter := segment.NewWordSegmenterDirect([]byte(strings.ToValidUTF8(text, "\uFFFD")))
	tokens := make([]Token, 0, len(text)/6)
	pos := 0
	for segmenter.Segment() {
		if segmenter.Type() == segment.None {
			continue
		}
		word := string(segmenter.Bytes())
		if len([]rune(word)) > maxTokenLength {
			pos++
			continue
		}
		tokens = append(tokens, Token{Term: word, Position: pos})
		pos++
	}
	return tokens
}

func positioned(words []string) []Token {
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Term: w, Position: i}
	}
	return tokens
}

func lowercase(tokens []Token) []Token {
	for i := range tokens {
		tokens[i].Term = strings.ToLower(tokens[i].Term)
	}
	return tokens
}

func (a *Analyzer) removeStopwords(tokens []Token) []Token {
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, isStop := a.stop[tok.Term]; isStop {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

var possessiveSuffixes = []string{"'s", "'S", "’s", "’S", "＇s", "＇S"}

func stripPossessives(tokens []Token) []Token {
	for i := range tokens {
		for _, suffix := range possessiveSuffixes {
			if strings.HasSuffix(tokens[i].Term, suffix) {
				tokens[i].Term = strings.TrimSuffix(tokens[i].Term, suffix)
				break
			}
		}
	}
	return tokens
}

func stem(tokens []Token) []Token {
	kept := tokens[:0]
	for _, tok := range tokens {
		tok.Term = porterstemmer.StemString(tok.Term)
		if tok.Term == "" {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}
