package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
)

func registerFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("data-dir", "", "directory of .txt documents")
	f.String("index-dir", "", "parent directory of index directories")
	f.String("analyzer", "", "simple, whitespace, standard, stop, english or english_spacy")
	f.String("stopwords-file", "", "stopword list for english_spacy")
	f.String("similarity", "", "bm25 or classic")
	f.Float64("k1", 0, "BM25 term frequency saturation")
	f.Float64("b", 0, "BM25 length normalization")
	f.Bool("overwrite", false, "rebuild the index even if its directory is not empty")
	f.String("queries", "", "queries file")
	f.String("ranking-dir", "", "directory for ranking files")
	f.String("evaluation-file", "", "evaluation log CSV")
	f.String("reference-file", "", "relevance judgments file")
	f.String("query-type", "", "free_text, boolean_and, phrase or fuzzy")
	f.Int("slop", 0, "phrase slop")
	f.Int("max-edits", 0, "fuzzy edit distance (0-2)")
	f.Int("top-k", 0, "results written per query")
	f.Int("workers", 0, "concurrent queries in the search phase")
	f.String("store", "", "evaluation store mirror: csv, sqlite or postgres")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-format", "", "text or json")
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	strs := map[string]*string{
		"data-dir":        &cfg.DataDir,
		"index-dir":       &cfg.IndexDir,
		"analyzer":        &cfg.Analyzer,
		"stopwords-file":  &cfg.StopwordsFile,
		"similarity":      &cfg.Similarity,
		"queries":         &cfg.Queries,
		"ranking-dir":     &cfg.RankingDir,
		"evaluation-file": &cfg.EvaluationFile,
		"reference-file":  &cfg.ReferenceFile,
		"query-type":      &cfg.QueryType,
		"store":           &cfg.Evaluation.Store,
		"log-level":       &cfg.Logging.Level,
		"log-format":      &cfg.Logging.Format,
	}
	for name, dst := range strs {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	floats := map[string]*float64{"k1": &cfg.K1, "b": &cfg.B}
	for name, dst := range floats {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"slop":      &cfg.Slop,
		"max-edits": &cfg.MaxEdits,
		"top-k":     &cfg.TopK,
		"workers":   &cfg.Search.Workers,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if f.Changed("overwrite") {
		v, err := f.GetBool("overwrite")
		if err != nil {
			return err
		}
		cfg.Overwrite = v
	}
	return nil
}
