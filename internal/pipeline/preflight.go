package pipeline

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irbench/pkg/redis"
)

const preflightTimeout = 5 * time.Second

// Preflight registers a check for every input file and every backend the
// configuration enables. Disabled backends report skipped.
func (p *Pipeline) Preflight() *health.Checker {
	c := health.NewChecker(preflightTimeout)
	c.Register("data_dir", health.DirCheck(p.cfg.DataDir))
	c.Register("queries", health.FileCheck(p.cfg.Queries))
	c.Register("reference_file", health.FileCheck(p.cfg.ReferenceFile))
	if p.cfg.Analyzer == "english_spacy" {
		c.Register("stopwords_file", health.FileCheck(p.cfg.StopwordsFile))
	}
	c.Register("index", p.indexCheck)
	c.Register("redis", p.redisCheck)
	c.Register("postgres", p.postgresCheck)
	c.Register("kafka", p.kafkaCheck)
	return c
}

func (p *Pipeline) indexCheck(context.Context) health.Result {
	dir := p.IndexPath()
	empty, err := indexer.IsEmptyDir(dir)
	if err != nil {
		return health.Down(err)
	}
	if empty {
		return health.Up("%s will be built", dir)
	}
	if p.cfg.Overwrite {
		return health.Up("%s will be rebuilt", dir)
	}
	idx, err := indexer.Open(dir)
	if err != nil {
		return health.Down(err)
	}
	defer idx.Close()
	return health.Up("%s: %d docs, %d terms, analyzer %s", dir, idx.DocCount(), idx.TermCount(), idx.Meta().Analyzer)
}

func (p *Pipeline) redisCheck(ctx context.Context) health.Result {
	if !p.cfg.Redis.Enabled {
		return health.Skipped("ranking cache disabled")
	}
	client, err := pkgredis.NewClient(ctx, p.cfg.Redis)
	if err != nil {
		return health.Down(err)
	}
	client.Close()
	return health.Up("%s", p.cfg.Redis.Addr)
}

func (p *Pipeline) postgresCheck(ctx context.Context) health.Result {
	if p.cfg.Evaluation.Store != "postgres" {
		return health.Skipped("evaluation store is " + p.cfg.Evaluation.Store)
	}
	client, err := postgres.New(ctx, p.cfg.Postgres)
	if err != nil {
		return health.Down(err)
	}
	client.Close()
	return health.Up("%s:%d/%s", p.cfg.Postgres.Host, p.cfg.Postgres.Port, p.cfg.Postgres.Database)
}

func (p *Pipeline) kafkaCheck(ctx context.Context) health.Result {
	if !p.cfg.Kafka.Enabled {
		return health.Skipped("record events disabled")
	}
	if err := kafka.Ping(ctx, p.cfg.Kafka.Brokers); err != nil {
		return health.Down(err)
	}
	return health.Up("topic %s", p.cfg.Kafka.Topic)
}
