// Package query turns raw query text into an analyzed, typed query ready for
// execution.
package query

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

type Kind int

const (
	FreeText Kind = iota
	BooleanAnd
	Phrase
	Fuzzy
)

func (k Kind) String() string {
	switch k {
	case FreeText:
		return "free_text"
	case BooleanAnd:
		return "boolean_and"
	case Phrase:
		return "phrase"
	case Fuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// ParseKind maps a query type name to a Kind. boolean_or is an alias of
// free_text.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "free_text", "boolean_or":
		return FreeText, nil
	case "boolean_and":
		return BooleanAnd, nil
	case "phrase":
		return Phrase, nil
	case "fuzzy":
		return Fuzzy, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrConfiguration, "unknown query type %q", name)
	}
}

const (
	DefaultMaxEdits      = 2
	DefaultPrefixLength  = 1
	DefaultMaxExpansions = 50
	MaxEditsLimit        = 2
)

// Params holds the type-specific knobs. Slop applies to phrase queries; the
// rest to fuzzy queries.
type Params struct {
	Slop          int
	MaxEdits      int
	PrefixLength  int
	MaxExpansions int
}

func DefaultParams() Params {
	return Params{
		MaxEdits:      DefaultMaxEdits,
		PrefixLength:  DefaultPrefixLength,
		MaxExpansions: DefaultMaxExpansions,
	}
}

func (p Params) Validate() error {
	if p.Slop < 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "slop must be >= 0, got %d", p.Slop)
	}
	if p.MaxEdits < 0 || p.MaxEdits > MaxEditsLimit {
		return apperrors.Newf(apperrors.ErrConfiguration, "maxEdits must be in [0, %d], got %d", MaxEditsLimit, p.MaxEdits)
	}
	if p.PrefixLength < 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "prefix_length must be >= 0, got %d", p.PrefixLength)
	}
	if p.MaxExpansions <= 0 {
		return apperrors.Newf(apperrors.ErrConfiguration, "max_expansions must be > 0, got %d", p.MaxExpansions)
	}
	return nil
}

// Term is an analyzed query term. Offset is its position relative to the
// first term, so stopword gaps in the query carry over to phrase matching.
type Term struct {
	Text   string
	Offset int
}

type Query struct {
	Raw    string
	Kind   Kind
	Params Params
	Terms  []Term
}

// Build analyzes text with an, which must be the analyzer the index was
// built with. Query syntax characters are plain text to the analyzer. Repeated terms are
// kept as separate clauses.
func Build(text string, kind Kind, params Params, an *analysis.Analyzer) (*Query, error) {
	if kind < FreeText || kind > Fuzzy {
		return nil, apperrors.Newf(apperrors.ErrConfiguration, "unknown query kind %d", int(kind))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	tokens := an.Analyze(text)
	q := &Query{
		Raw:    text,
		Kind:   kind,
		Params: params,
		Terms:  make([]Term, 0, len(tokens)),
	}
	if len(tokens) == 0 {
		return q, nil
	}
	base := tokens[0].Position
	for _, tok := range tokens {
		q.Terms = append(q.Terms, Term{Text: tok.Term, Offset: tok.Position - base})
	}
	return q, nil
}

// TermTexts returns the analyzed term strings in query order.
func (q *Query) TermTexts() []string {
	out := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		out[i] = t.Text
	}
	return out
}
