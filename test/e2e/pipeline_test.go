// Package e2e runs the whole pipeline against a generated corpus with the
// optional infrastructure switched on: Redis ranking cache, PostgreSQL
// evaluation mirror and Kafka record events.
//
// Each backend is used when reachable and skipped otherwise:
//   - IRB_REDIS_ADDR     (default localhost:6379)
//   - IRB_POSTGRES_HOST  (required for the PostgreSQL case)
//   - IRB_KAFKA_BROKERS  (required for the Kafka case)
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/kafka"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irbench/pkg/redis"
)

var topics = []string{"solar", "river", "piano", "glacier", "orchard"}

// fixture writes a corpus where document i is about topics[i%5], plus one
// query per topic whose judgments are exactly the documents on that topic.
func fixture(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "full_docs")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	var qrels strings.Builder
	qrels.WriteString("Query_number,doc_number\n")
	for i := 1; i <= 50; i++ {
		topic := topics[i%len(topics)]
		text := fmt.Sprintf("A report on the %s. The %s is discussed at length in document %d.", topic, topic, i)
		if err := os.WriteFile(filepath.Join(docs, fmt.Sprintf("output_%d.txt", i)), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(&qrels, "%d,%d\n", i%len(topics)+1, i)
	}
	var queries strings.Builder
	queries.WriteString("Query number\tQuery\n")
	for i, topic := range topics {
		fmt.Fprintf(&queries, "%d\tthe %s\n", i+1, topic)
	}
	write := func(name, content string) string {
		p := filepath.Join(root, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.DataDir = docs
	cfg.IndexDir = filepath.Join(root, "index")
	cfg.Queries = write("dev_queries.tsv", queries.String())
	cfg.ReferenceFile = write("dev_query_results.csv", qrels.String())
	cfg.RankingDir = filepath.Join(root, "rankings")
	cfg.EvaluationFile = filepath.Join(root, "evaluation.csv")
	cfg.Logging.Level = "error"
	return cfg
}

// TestPipelineRetrievesEveryTopic checks that every query retrieves only
// on-topic documents, so precision is perfect at every cutoff and recall
// reaches 1 once the cutoff covers the ten relevant documents.
func TestPipelineRetrievesEveryTopic(t *testing.T) {
	for _, analyzer := range []string{"standard", "english", "stop"} {
		t.Run(analyzer, func(t *testing.T) {
			cfg := fixture(t)
			cfg.Analyzer = analyzer
			report, err := pipeline.New(cfg).Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			for _, rec := range report.Records {
				if rec.MAP != 1 {
					t.Errorf("k=%d: MAP = %v, want 1", rec.K, rec.MAP)
				}
				if want := float64(min(rec.K, 10)) / 10; rec.MAR != want {
					t.Errorf("k=%d: MAR = %v, want %v", rec.K, rec.MAR, want)
				}
			}
			rankings, err := corpus.ReadRankings(report.RankingPath)
			if err != nil {
				t.Fatal(err)
			}
			if len(rankings) != len(topics) {
				t.Errorf("ranked queries = %d, want %d", len(rankings), len(topics))
			}
		})
	}
}

func TestPipelineWithRedisCache(t *testing.T) {
	cfg := fixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer client.Close()

	for run := 0; run < 2; run++ {
		p := pipeline.New(cfg, pipeline.WithCacheStore(client))
		if _, err := p.Run(ctx); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}
	cfg.Overwrite = true
	if _, err := pipeline.New(cfg, pipeline.WithCacheStore(client)).Run(ctx); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
}

func TestPipelineWithPostgresMirror(t *testing.T) {
	if os.Getenv("IRB_POSTGRES_HOST") == "" {
		t.Skip("IRB_POSTGRES_HOST not set")
	}
	cfg := fixture(t)
	cfg.Evaluation.Store = "postgres"
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mirror, err := pipeline.OpenMirror(ctx, cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	defer mirror.Close()

	report, err := pipeline.New(cfg, pipeline.WithMirror(mirror)).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := mirror.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := 0
	for _, r := range rows {
		if r.RunName == filepath.Base(report.RankingPath) {
			found++
		}
	}
	if found != len(cfg.Cutoffs) {
		t.Errorf("mirrored records = %d, want %d", found, len(cfg.Cutoffs))
	}
}

func TestPipelinePublishesToKafka(t *testing.T) {
	if os.Getenv("IRB_KAFKA_BROKERS") == "" {
		t.Skip("IRB_KAFKA_BROKERS not set")
	}
	cfg := fixture(t)
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := pipeline.New(cfg, pipeline.WithEventWriter(producer)).Run(ctx); err != nil {
		t.Fatal(err)
	}
	records, err := evaluation.NewCSVStore(cfg.EvaluationFile).List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(cfg.Cutoffs) {
		t.Errorf("evaluation rows = %d, want %d", len(records), len(cfg.Cutoffs))
	}
}
