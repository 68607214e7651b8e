package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
)

const upsertRecordSQL = `
INSERT INTO keyword_records (
	owner_id, topic_id, keyword, source,
	search_volume, difficulty, cpc, competition, trend_percentage,
	intent, opportunity_score, priority_score, related_keywords, fetched_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (owner_id, topic_id, keyword) DO UPDATE SET
	source            = EXCLUDED.source,
	search_volume     = EXCLUDED.search_volume,
	difficulty        = EXCLUDED.difficulty,
	cpc               = EXCLUDED.cpc,
	competition       = EXCLUDED.competition,
	trend_percentage  = EXCLUDED.trend_percentage,
	intent            = EXCLUDED.intent,
	opportunity_score = EXCLUDED.opportunity_score,
	priority_score    = EXCLUDED.priority_score,
	related_keywords  = EXCLUDED.related_keywords,
	fetched_at        = EXCLUDED.fetched_at`

// PostgresStore writes canonical records to Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.GetLogger().WithField("component", "postgres_store"),
	}, nil
}

// UpsertRecords writes all records in one batch round trip. A conflicting
// insert updates the existing row; uniqueness beyond the identity triple
// is never assumed.
func (p *PostgresStore) UpsertRecords(ctx context.Context, records []keyword.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertRecordSQL,
			r.OwnerID, r.TopicID, r.Keyword, string(r.Source),
			r.SearchVolume, r.Difficulty, r.CPC, r.Competition, r.TrendPercentage,
			string(r.Intent), r.OpportunityScore, r.PriorityScore, r.RelatedKeywords, r.FetchedAt,
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert record %q: %w", records[i].Keyword, err)
		}
	}

	p.log.WithField("count", len(records)).Debug("Upserted keyword records")
	return nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}
