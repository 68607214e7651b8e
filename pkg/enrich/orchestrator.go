package enrich

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"keyword-go/pkg/cache"
	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
	"keyword-go/pkg/store"
	"keyword-go/pkg/trends"
)

// ErrNoValidSeeds is returned when every seed keyword normalizes to empty
// text. Malformed input is the only fatal, non-retried failure class.
var ErrNoValidSeeds = errors.New("no valid seed keywords after normalization")

// ErrAllSourcesFailed is returned when no source produced a single record
// for the batch. Partial degradation never surfaces this.
var ErrAllSourcesFailed = errors.New("all sources failed for every seed keyword")

// Config tunes the orchestrator.
type Config struct {
	MaxInFlight  int             `mapstructure:"max_in_flight"`
	BatchTimeout time.Duration   `mapstructure:"batch_timeout"`
	Weights      keyword.Weights `mapstructure:"weights"`
}

func (c Config) withDefaults() Config {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 2 * time.Minute
	}
	if c.Weights == (keyword.Weights{}) {
		c.Weights = keyword.DefaultWeights()
	}
	return c
}

// Batch is one enrichment request: seed keywords under an owner/topic
// scope, optionally restricted to a subset of sources.
type Batch struct {
	Seeds          []string
	Scope          keyword.Scope
	EnabledSources []keyword.SourceKind // empty means every registered source
}

// SourceError describes one per-source failure in the result.
type SourceError struct {
	Seed    string `json:"seed"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result accumulates the batch outcome: merged, scored records plus the
// structured failure list. Discarded after persistence, never stored.
type Result struct {
	BatchID          string                               `json:"batch_id"`
	Records          []keyword.Record                     `json:"records"`
	ErrorsBySource   map[keyword.SourceKind][]SourceError `json:"errors_by_source,omitempty"`
	DroppedSeeds     int                                  `json:"dropped_seeds,omitempty"`
	PersistenceError string                               `json:"persistence_error,omitempty"`
}

// Orchestrator coordinates the pipeline: cache check, fetch+normalize per
// source, merge, score, write-through, persist. One failing source never
// aborts the batch.
type Orchestrator struct {
	cfg        Config
	sources    []Source
	cache      *cache.Cache
	store      store.Store
	normalizer *keyword.Normalizer
	log        *logger.Logger
}

func NewOrchestrator(cfg Config, sources []Source, c *cache.Cache, st store.Store) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		sources:    sources,
		cache:      c,
		store:      st,
		normalizer: keyword.NewNormalizer(),
		log:        logger.GetLogger().WithField("component", "orchestrator"),
	}
}

// Enrich runs one batch. Per-(source, seed) fetches fan out concurrently,
// bounded by MaxInFlight; merge runs only after every fetch has settled.
func (o *Orchestrator) Enrich(ctx context.Context, batch Batch) (*Result, error) {
	result := &Result{
		BatchID:        uuid.NewString(),
		ErrorsBySource: make(map[keyword.SourceKind][]SourceError),
	}
	log := o.log.WithField("batch_id", result.BatchID)

	seeds, dropped := normalizeSeeds(batch.Seeds)
	result.DroppedSeeds = dropped
	if len(seeds) == 0 {
		return nil, ErrNoValidSeeds
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.BatchTimeout)
	defer cancel()

	sources := o.enabledSources(batch.EnabledSources)
	log.WithFields(map[string]interface{}{
		"seeds":   len(seeds),
		"sources": len(sources),
	}).Info("Starting enrichment batch")

	var (
		mu         sync.Mutex
		candidates []keyword.Record
		wg         sync.WaitGroup
		sem        = make(chan struct{}, o.cfg.MaxInFlight)
	)

	addError := func(source keyword.SourceKind, seed, kind, message string) {
		mu.Lock()
		result.ErrorsBySource[source] = append(result.ErrorsBySource[source], SourceError{
			Seed: seed, Kind: kind, Message: message,
		})
		mu.Unlock()
	}
	addCandidates := func(records []keyword.Record) {
		mu.Lock()
		candidates = append(candidates, records...)
		mu.Unlock()
	}

	for _, src := range sources {
		for _, seed := range seeds {
			wg.Add(1)
			go func(src Source, seed string) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					// Sources still queued at the deadline fail like an
					// unavailable upstream and do not block partial results.
					addError(src.Kind(), seed, string(kindTimeoutName), ctx.Err().Error())
					return
				}

				o.fetchOne(ctx, src, seed, batch.Scope, addCandidates, addError)
			}(src, seed)
		}
	}
	wg.Wait()

	result.Records = o.mergeAndScore(candidates, log)

	if len(result.Records) > 0 {
		if err := o.store.UpsertRecords(ctx, result.Records); err != nil {
			// Partial success: the enrichment result is still returned so
			// computed scores are not lost.
			log.WithError(err).Error("Failed to persist enriched records")
			result.PersistenceError = err.Error()
		}
	}

	log.WithFields(map[string]interface{}{
		"records":        len(result.Records),
		"failed_sources": len(result.ErrorsBySource),
	}).Info("Enrichment batch completed")

	if len(result.Records) == 0 && len(result.ErrorsBySource) > 0 {
		return result, ErrAllSourcesFailed
	}
	return result, nil
}

const kindTimeoutName = trends.KindTimeout

func errorKind(err error) trends.ErrorKind {
	return trends.KindOf(err)
}

// fetchOne resolves one (source, seed) pair: cache hit, negative hit, or
// fetch + normalize + write-through.
func (o *Orchestrator) fetchOne(ctx context.Context, src Source, seed string, scope keyword.Scope,
	addCandidates func([]keyword.Record), addError func(keyword.SourceKind, string, string, string)) {

	key := cache.Key{
		OwnerID:   scope.OwnerID,
		TopicID:   scope.TopicID,
		Signature: seed,
		Source:    src.Kind(),
	}

	if entry, ok := o.cache.Get(key); ok {
		if entry.IsError {
			addError(src.Kind(), seed, entry.ErrorKind, "source recently unavailable (negative cache)")
			return
		}
		addCandidates(entry.Records)
		return
	}

	raws, err := src.Fetch(ctx, []string{seed}, scope)
	if err != nil {
		kind := string(errorKind(err))
		o.cache.PutNegative(key, kind)
		addError(src.Kind(), seed, kind, err.Error())
		return
	}

	records := make([]keyword.Record, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := o.normalizer.Normalize(raw, src.Kind(), scope); ok {
			records = append(records, rec)
		}
	}

	o.cache.Put(key, records, time.Now().UTC())
	addCandidates(records)
}

// mergeAndScore groups candidates by identity, merges each group and
// recomputes both scores on the merged output.
func (o *Orchestrator) mergeAndScore(candidates []keyword.Record, log *logger.Logger) []keyword.Record {
	groups := keyword.GroupByIdentity(candidates)
	records := make([]keyword.Record, 0, len(groups))
	for _, group := range groups {
		merged, err := keyword.Merge(group)
		if err != nil {
			log.WithError(err).Warn("Skipping unmergeable candidate group")
			continue
		}
		records = append(records, keyword.Score(merged, o.cfg.Weights))
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PriorityScore != records[j].PriorityScore {
			return records[i].PriorityScore > records[j].PriorityScore
		}
		return records[i].Keyword < records[j].Keyword
	})
	return records
}

func (o *Orchestrator) enabledSources(enabled []keyword.SourceKind) []Source {
	if len(enabled) == 0 {
		return o.sources
	}
	allowed := make(map[keyword.SourceKind]bool, len(enabled))
	for _, kind := range enabled {
		allowed[kind] = true
	}
	var out []Source
	for _, src := range o.sources {
		if allowed[src.Kind()] {
			out = append(out, src)
		}
	}
	return out
}

// normalizeSeeds canonicalizes and dedupes seed keywords, counting those
// dropped for normalizing to empty.
func normalizeSeeds(seeds []string) ([]string, int) {
	seen := make(map[string]bool, len(seeds))
	out := make([]string, 0, len(seeds))
	dropped := 0
	for _, seed := range seeds {
		normalized := keyword.NormalizeText(seed)
		if normalized == "" {
			dropped++
			continue
		}
		if !seen[normalized] {
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out, dropped
}
