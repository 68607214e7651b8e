package keyword

import (
	"math"
	"sync/atomic"
	"time"

	"keyword-go/pkg/logger"
)

// RawRecord is the loose, source-shaped observation before normalization.
// Pointer fields distinguish "missing" from zero; missing numerics default
// to 0 so downstream scoring stays total.
type RawRecord struct {
	Keyword         string
	SearchVolume    *int
	Difficulty      *float64
	CPC             *float64
	Competition     *float64
	TrendPercentage *float64
	Intent          string
	RelatedKeywords []string
	FetchedAt       time.Time
}

// Normalizer converts raw source rows into canonical Records. Keywords
// that are empty after text normalization are dropped with a counted
// warning instead of failing the batch.
type Normalizer struct {
	dropped atomic.Uint64
	log     *logger.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		log: logger.GetLogger().WithField("component", "normalizer"),
	}
}

// Normalize maps a raw observation onto the canonical shape. Returns
// ok=false when the keyword text normalizes to empty.
func (n *Normalizer) Normalize(raw RawRecord, source SourceKind, scope Scope) (Record, bool) {
	text := NormalizeText(raw.Keyword)
	if text == "" {
		n.dropped.Add(1)
		n.log.WithField("source", string(source)).Warn("Dropping keyword empty after normalization")
		return Record{}, false
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	rec := Record{
		Keyword:         text,
		OwnerID:         scope.OwnerID,
		TopicID:         scope.TopicID,
		Source:          source,
		SearchVolume:    intOrZero(raw.SearchVolume),
		Difficulty:      rescaleHundred(raw.Difficulty),
		CPC:             math.Max(0, floatOrZero(raw.CPC)),
		Competition:     rescaleHundred(raw.Competition),
		TrendPercentage: floatOrZero(raw.TrendPercentage),
		Intent:          ParseIntent(raw.Intent),
		FetchedAt:       fetchedAt,
	}

	if rec.SearchVolume < 0 {
		rec.SearchVolume = 0
	}

	for _, related := range raw.RelatedKeywords {
		if r := NormalizeText(related); r != "" {
			rec.RelatedKeywords = appendUniqueFold(rec.RelatedKeywords, r)
		}
	}

	return rec, true
}

// DroppedCount reports how many keywords were discarded for normalizing
// to empty text.
func (n *Normalizer) DroppedCount() uint64 {
	return n.dropped.Load()
}

// rescaleHundred maps a source value onto the 0-100 scale. Sources that
// report fractions in (0, 1] are rescaled by 100 and rounded to 2
// decimals; out-of-range results are clamped, not rejected.
func rescaleHundred(v *float64) float64 {
	if v == nil {
		return 0
	}
	value := *v
	if value > 0 && value <= 1 {
		value = round2(value * 100)
	}
	return clamp(value, 0, 100)
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
