package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// floatToken renders f the way the run names have always been written: the
// shortest decimal with at least one fractional digit, dot removed.
// 1.2 -> "12", 0.75 -> "075", 1.0 -> "10".
func floatToken(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.ReplaceAll(s, ".", "")
}

// IndexName identifies an index by corpus and scoring configuration so that
// different configurations never share a directory.
func IndexName(dataDir, analyzer, similarity string, k1, b float64) string {
	base := filepath.Base(filepath.Clean(dataDir))
	return fmt.Sprintf("%s_%s_%s_%s_%s", base, analyzer, similarity, floatToken(k1), floatToken(b))
}

// RankingFileName names the ranking output of a run. Phrase runs carry the
// slop and fuzzy runs the edit distance.
func RankingFileName(indexName, queryType string, slop, maxEdits int, queriesPath string) string {
	base := filepath.Base(queriesPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	switch queryType {
	case "phrase":
		return fmt.Sprintf("%s_%s_%d_%s.csv", indexName, queryType, slop, base)
	case "fuzzy":
		return fmt.Sprintf("%s_%s_%d_%s.csv", indexName, queryType, maxEdits, base)
	default:
		return fmt.Sprintf("%s_%s_%s.csv", indexName, queryType, base)
	}
}
