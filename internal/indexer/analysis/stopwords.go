package analysis

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

// EnglishStopwords is the classic English stop set used by the standard,
// stop and english analyzers when no other list is configured.
var EnglishStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it", "no", "not", "of",
	"on", "or", "such", "that", "the", "their", "then", "there",
	"these", "they", "this", "to", "was", "will", "with",
}

// LoadStopwordFile reads a word list with one stopword per line. Blank lines
// and lines starting with '#' are ignored.
func LoadStopwordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "stopword file %s", path)
		}
		return nil, fmt.Errorf("opening stopword file: %w", err)
	}
	defer f.Close()

	words := make([]string, 0, 512)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopword file %s: %w", path, err)
	}
	return words, nil
}

func stopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
