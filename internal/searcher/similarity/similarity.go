// Package similarity holds the relevance models used to score matches. A
// Similarity is chosen at search time; the index stores no model-specific
// data, so the same index can be searched under either model.
package similarity

import (
	"math"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// CorpusStats are the collection-level statistics a model needs.
type CorpusStats struct {
	DocCount     int
	AvgDocLength float64
}

// Similarity splits a term's score into a document-independent IDF and a
// per-document TF component. freq is a float so sloppy phrase frequencies
// can be scored with the same model.
type Similarity interface {
	Name() string
	IDF(docFreq int, stats CorpusStats) float64
	TF(freq float64, docLen int, stats CorpusStats) float64
}

// Score is the contribution of one term to one document.
func Score(sim Similarity, docFreq int, freq float64, docLen int, stats CorpusStats) float64 {
	if docFreq == 0 || freq == 0 {
		return 0
	}
	return sim.IDF(docFreq, stats) * sim.TF(freq, docLen, stats)
}

// Parse returns the model named by name. k1 and b are only used by bm25 but
// are validated for every model.
func Parse(name string, k1, b float64) (Similarity, error) {
	if k1 < 0 {
		return nil, apperrors.Newf(apperrors.ErrConfiguration, "k1 must be >= 0, got %v", k1)
	}
	if b < 0 || b > 1 {
		return nil, apperrors.Newf(apperrors.ErrConfiguration, "b must be in [0, 1], got %v", b)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bm25":
		return BM25{K1: k1, B: b}, nil
	case "classic":
		return Classic{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrConfiguration, "unknown similarity %q", name)
	}
}

type BM25 struct {
	K1 float64
	B  float64
}

func (BM25) Name() string { return "bm25" }

func (BM25) IDF(docFreq int, stats CorpusStats) float64 {
	numerator := float64(stats.DocCount) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func (s BM25) TF(freq float64, docLen int, stats CorpusStats) float64 {
	if stats.AvgDocLength == 0 {
		return 0
	}
	lengthRatio := float64(docLen) / stats.AvgDocLength
	denominator := freq + s.K1*(1-s.B+s.B*lengthRatio)
	return (freq * (s.K1 + 1)) / denominator
}

// Classic is tf-idf with square-root term frequency and 1/sqrt(length)
// field normalisation.
type Classic struct{}

func (Classic) Name() string { return "classic" }

func (Classic) IDF(docFreq int, stats CorpusStats) float64 {
	return 1 + math.Log(float64(stats.DocCount+1)/float64(docFreq+1))
}

func (Classic) TF(freq float64, docLen int, _ CorpusStats) float64 {
	if docLen <= 0 {
		return math.Sqrt(freq)
	}
	return math.Sqrt(freq) / math.Sqrt(float64(docLen))
}
