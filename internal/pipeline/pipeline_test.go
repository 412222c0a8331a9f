package pipeline

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/metrics"
)

func write(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// counter sums the samples of a counter family; an untouched counter reads 0.
func counter(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			sum += metric.GetCounter().GetValue()
		}
	}
	return sum
}

// testConfig lays out a two-document corpus with three queries, the last of
// which matches nothing.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "docs", "output_1.txt"), "the cat sat")
	write(t, filepath.Join(root, "docs", "output_2.txt"), "the dog sat on the mat")
	write(t, filepath.Join(root, "queries.csv"), "Query number\tQuery\n1\tcat\n2\tsat\n3\tunicorn\n")
	write(t, filepath.Join(root, "qrels.csv"), "Query_number,doc_number\n1,1\n2,2\n")

	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "docs")
	cfg.IndexDir = filepath.Join(root, "index")
	cfg.Queries = filepath.Join(root, "queries.csv")
	cfg.RankingDir = filepath.Join(root, "rankings")
	cfg.EvaluationFile = filepath.Join(root, "evaluation.csv")
	cfg.ReferenceFile = filepath.Join(root, "qrels.csv")
	cfg.Search.Workers = 2
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Built {
		t.Error("first run should build the index")
	}
	if report.Queries != 3 {
		t.Errorf("queries = %d, want 3", report.Queries)
	}
	wantIndex := filepath.Join(cfg.IndexDir, "docs_standard_bm25_12_075")
	if report.IndexPath != wantIndex {
		t.Errorf("index path = %s, want %s", report.IndexPath, wantIndex)
	}
	wantRanking := filepath.Join(cfg.RankingDir, "docs_standard_bm25_12_075_free_text_queries.csv")
	if report.RankingPath != wantRanking {
		t.Errorf("ranking path = %s, want %s", report.RankingPath, wantRanking)
	}

	data, err := os.ReadFile(report.RankingPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "Query_number,doc_number\n1,1\n2,1\n2,2\n"
	if string(data) != want {
		t.Errorf("ranking file = %q, want %q", data, want)
	}

	wantMetrics := map[int][2]float64{1: {0.5, 0.5}, 3: {0.75, 1}, 5: {0.75, 1}, 10: {0.75, 1}}
	if len(report.Records) != len(wantMetrics) {
		t.Fatalf("records = %d, want %d", len(report.Records), len(wantMetrics))
	}
	for _, rec := range report.Records {
		w := wantMetrics[rec.K]
		if rec.MAP != w[0] || rec.MAR != w[1] {
			t.Errorf("k=%d: MAP=%v MAR=%v, want %v %v", rec.K, rec.MAP, rec.MAR, w[0], w[1])
		}
		if rec.RunName != filepath.Base(wantRanking) {
			t.Errorf("run name = %q", rec.RunName)
		}
	}

	stored, err := evaluation.NewCSVStore(cfg.EvaluationFile).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 4 {
		t.Errorf("evaluation rows = %d, want 4", len(stored))
	}
	if got := counter(t, p.Metrics(), "irbench_docs_indexed_total"); got != 2 {
		t.Errorf("docs indexed = %v, want 2", got)
	}
}

func TestRunReusesIndex(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := New(cfg)
	report, err := second.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Built {
		t.Error("second run rebuilt an existing index")
	}
	if got := counter(t, second.Metrics(), "irbench_docs_indexed_total"); got != 0 {
		t.Errorf("docs indexed on reuse = %v, want 0", got)
	}
	stored, err := evaluation.NewCSVStore(cfg.EvaluationFile).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 4 {
		t.Errorf("evaluation rows after rerun = %d, want 4", len(stored))
	}

	cfg.Overwrite = true
	report, err = New(cfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Built {
		t.Error("overwrite run did not rebuild")
	}
}

func TestRunQueryTypes(t *testing.T) {
	tests := []struct {
		queryType string
		queries   string
		file      string
		want      string
	}{
		{
			queryType: "boolean_and",
			queries:   "Query number,Query\n1,cat sat\n2,cat mat\n",
			file:      "docs_standard_bm25_12_075_boolean_and_queries.csv",
			want:      "Query_number,doc_number\n1,1\n",
		},
		{
			queryType: "phrase",
			queries:   "Query number,Query\n1,dog sat\n2,sat dog\n",
			file:      "docs_standard_bm25_12_075_phrase_0_queries.csv",
			want:      "Query_number,doc_number\n1,2\n",
		},
		{
			queryType: "fuzzy",
			queries:   "Query number,Query\n1,cot\n",
			file:      "docs_standard_bm25_12_075_fuzzy_1_queries.csv",
			want:      "Query_number,doc_number\n1,1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.queryType, func(t *testing.T) {
			cfg := testConfig(t)
			write(t, cfg.Queries, tt.queries)
			cfg.QueryType = tt.queryType
			cfg.MaxEdits = 1
			report, err := New(cfg).Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if filepath.Base(report.RankingPath) != tt.file {
				t.Errorf("ranking file = %s, want %s", filepath.Base(report.RankingPath), tt.file)
			}
			data, err := os.ReadFile(report.RankingPath)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("rankings = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestValidateRun(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"unknown analyzer", func(c *config.Config) { c.Analyzer = "klingon" }, apperrors.ErrConfiguration},
		{"unknown similarity", func(c *config.Config) { c.Similarity = "tfidf2" }, apperrors.ErrConfiguration},
		{"unknown query type", func(c *config.Config) { c.QueryType = "regex" }, apperrors.ErrConfiguration},
		{"max edits too large", func(c *config.Config) { c.QueryType = "fuzzy"; c.MaxEdits = 3 }, apperrors.ErrConfiguration},
		{"missing data dir", func(c *config.Config) { c.DataDir = filepath.Join(c.IndexDir, "nope") }, apperrors.ErrNotFound},
		{"missing queries", func(c *config.Config) { c.Queries += ".gone" }, apperrors.ErrNotFound},
		{"missing reference", func(c *config.Config) { c.ReferenceFile += ".gone" }, apperrors.ErrNotFound},
		{"missing stopwords", func(c *config.Config) {
			c.Analyzer = "english_spacy"
			c.StopwordsFile = filepath.Join(c.IndexDir, "stop.txt")
		}, apperrors.ErrNotFound},
		{"empty queries key", func(c *config.Config) { c.Queries = "" }, apperrors.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(cfg).Run(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if _, statErr := os.Stat(cfg.IndexDir); !os.IsNotExist(statErr) {
				t.Error("index directory created before validation passed")
			}
		})
	}
}

func TestRunAnalyzerMismatch(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg)
	simple, err := analysis.New(analysis.Simple, analysis.Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := indexer.Begin(p.IndexPath(), simple, indexer.Meta{Similarity: "bm25"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddDocument(1, "cat"); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Close()
	if err != nil {
		t.Fatal(err)
	}
	idx.Close()

	_, err = p.Run(context.Background())
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestRunEnglishSpacy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analyzer = "english_spacy"
	cfg.StopwordsFile = filepath.Join(filepath.Dir(cfg.Queries), "stop.txt")
	write(t, cfg.StopwordsFile, "# spacy list\nthe\non\n")
	report, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	idx, err := indexer.Open(report.IndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if got := idx.Meta().Stopwords; got != cfg.StopwordsFile {
		t.Errorf("stopword source = %q, want %q", got, cfg.StopwordsFile)
	}
	if idx.DocFreq("the") != 0 || idx.DocFreq("cat") != 1 {
		t.Error("english_spacy index did not apply the stopword file")
	}
}

func TestRunStopwordSourceMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analyzer = "english_spacy"
	dir := filepath.Dir(cfg.Queries)
	cfg.StopwordsFile = filepath.Join(dir, "stop.txt")
	write(t, cfg.StopwordsFile, "the\non\n")
	if _, err := New(cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg.StopwordsFile = filepath.Join(dir, "other_stop.txt")
	write(t, cfg.StopwordsFile, "cat\n")
	_, err := New(cfg).Run(context.Background())
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memoryStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func TestRunWithCache(t *testing.T) {
	cfg := testConfig(t)
	store := &memoryStore{data: make(map[string]string)}

	first := New(cfg, WithCacheStore(store))
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := counter(t, first.Metrics(), "irbench_cache_misses_total"); got != 3 {
		t.Errorf("first run misses = %v, want 3", got)
	}

	second := New(cfg, WithCacheStore(store))
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := counter(t, second.Metrics(), "irbench_cache_hits_total"); got != 3 {
		t.Errorf("second run hits = %v, want 3", got)
	}

	cfg.Overwrite = true
	third := New(cfg, WithCacheStore(store))
	if _, err := third.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := counter(t, third.Metrics(), "irbench_cache_hits_total"); got != 0 {
		t.Errorf("hits after rebuild = %v, want 0", got)
	}
}

type recordingWriter struct {
	events []kafka.Event
}

func (w *recordingWriter) PublishBatch(_ context.Context, events []kafka.Event) error {
	w.events = append(w.events, events...)
	return nil
}

func TestRunMirrorsAndPublishes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Evaluation.Store = "sqlite"
	cfg.Evaluation.SQLitePath = filepath.Join(filepath.Dir(cfg.Queries), "eval.db")

	mirror, err := OpenMirror(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer mirror.Close()
	writer := &recordingWriter{}

	p := New(cfg, WithMirror(mirror), WithEventWriter(writer))
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows, err := mirror.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("sqlite rows = %d, want 4", len(rows))
	}
	if len(writer.events) != 4 {
		t.Fatalf("published events = %d, want 4", len(writer.events))
	}
	ev := writer.events[0].Value.(evaluation.RecordEvent)
	if ev.RunID != p.RunID() {
		t.Errorf("event run id = %q, want %q", ev.RunID, p.RunID())
	}
}

func TestOpenMirrorCSV(t *testing.T) {
	cfg := testConfig(t)
	store, err := OpenMirror(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if store != nil {
		t.Errorf("csv store selection opened a mirror: %T", store)
	}
}

func TestPreflight(t *testing.T) {
	cfg := testConfig(t)
	report := New(cfg).Preflight().Run(context.Background())
	if report.Status != health.StatusUp {
		t.Fatalf("status = %s, failed = %+v", report.Status, report.Failed())
	}
	skipped := 0
	for _, c := range report.Components {
		if c.Status == health.StatusSkipped {
			skipped++
		}
	}
	if skipped != 3 {
		t.Errorf("skipped backends = %d, want 3", skipped)
	}

	cfg.Queries += ".gone"
	report = New(cfg).Preflight().Run(context.Background())
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Name != "queries" {
		t.Errorf("failed = %+v, want queries", failed)
	}
}
