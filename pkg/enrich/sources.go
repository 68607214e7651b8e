package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"keyword-go/pkg/keyword"
	"keyword-go/pkg/trends"
)

// Source supplies raw keyword observations for seed keywords. Each source
// fails independently; the orchestrator isolates failures per source.
type Source interface {
	Kind() keyword.SourceKind
	Fetch(ctx context.Context, seeds []string, scope keyword.Scope) ([]keyword.RawRecord, error)
}

// ExternalSource adapts the rate-limited trends client.
type ExternalSource struct {
	client *trends.Client
}

func NewExternalSource(client *trends.Client) *ExternalSource {
	return &ExternalSource{client: client}
}

func (s *ExternalSource) Kind() keyword.SourceKind {
	return keyword.SourceExternalAPI
}

func (s *ExternalSource) Fetch(ctx context.Context, seeds []string, scope keyword.Scope) ([]keyword.RawRecord, error) {
	return s.client.Fetch(ctx, seeds, scope)
}

// SpreadsheetRow is a pre-parsed row from the upload collaborator. File
// format parsing happens upstream; only tabular values arrive here.
type SpreadsheetRow struct {
	Keyword          string  `json:"keyword"`
	Volume           int     `json:"volume"`
	Difficulty       float64 `json:"difficulty"`
	CPC              float64 `json:"cpc"`
	TrafficPotential int     `json:"traffic_potential"`
}

// SpreadsheetSource serves previously imported rows. Rows are replaced
// wholesale per scope on re-upload; the caller invalidates the cache for
// this source at the same time.
type SpreadsheetSource struct {
	mu   sync.RWMutex
	rows map[string]map[string]SpreadsheetRow // scope key -> normalized keyword -> row
	seen map[string]time.Time                 // scope key -> upload time
}

func NewSpreadsheetSource() *SpreadsheetSource {
	return &SpreadsheetSource{
		rows: make(map[string]map[string]SpreadsheetRow),
		seen: make(map[string]time.Time),
	}
}

func (s *SpreadsheetSource) Kind() keyword.SourceKind {
	return keyword.SourceSpreadsheet
}

func scopeKey(scope keyword.Scope) string {
	return scope.OwnerID + "\x00" + scope.TopicID
}

// Load replaces the imported rows for a scope. Returns how many rows were
// kept after keyword normalization.
func (s *SpreadsheetSource) Load(scope keyword.Scope, rows []SpreadsheetRow) int {
	byKeyword := make(map[string]SpreadsheetRow, len(rows))
	for _, row := range rows {
		if k := keyword.NormalizeText(row.Keyword); k != "" {
			row.Keyword = k
			byKeyword[k] = row
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[scopeKey(scope)] = byKeyword
	s.seen[scopeKey(scope)] = time.Now().UTC()
	return len(byKeyword)
}

func (s *SpreadsheetSource) Fetch(ctx context.Context, seeds []string, scope keyword.Scope) ([]keyword.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKeyword, ok := s.rows[scopeKey(scope)]
	if !ok || len(byKeyword) == 0 {
		return nil, nil
	}
	uploadedAt := s.seen[scopeKey(scope)]

	var out []keyword.RawRecord
	for _, seed := range seeds {
		row, ok := byKeyword[seed]
		if !ok {
			continue
		}
		volume := row.Volume
		difficulty := row.Difficulty
		cpc := row.CPC
		out = append(out, keyword.RawRecord{
			Keyword:      row.Keyword,
			SearchVolume: &volume,
			Difficulty:   &difficulty,
			CPC:          &cpc,
			FetchedAt:    uploadedAt,
		})
	}
	return out, nil
}

// seedTemplates expand a seed phrase into candidate long-tail variants.
var seedTemplates = []struct {
	format string
	intent string
}{
	{"how to choose %s", "informational"},
	{"best %s", "commercial"},
	{"%s for beginners", "informational"},
	{"%s ideas", "informational"},
	{"buy %s", "transactional"},
	{"%s vs alternatives", "commercial"},
	{"affordable %s", "transactional"},
}

// SeedExpansionSource generates free-text variants of each seed. No
// network, no metrics; variants carry zero signals until another source
// enriches them.
type SeedExpansionSource struct {
	maxPerSeed int
}

func NewSeedExpansionSource(maxPerSeed int) *SeedExpansionSource {
	if maxPerSeed <= 0 || maxPerSeed > len(seedTemplates) {
		maxPerSeed = len(seedTemplates)
	}
	return &SeedExpansionSource{maxPerSeed: maxPerSeed}
}

func (s *SeedExpansionSource) Kind() keyword.SourceKind {
	return keyword.SourceSeedExpansion
}

func (s *SeedExpansionSource) Fetch(ctx context.Context, seeds []string, scope keyword.Scope) ([]keyword.RawRecord, error) {
	now := time.Now().UTC()
	var out []keyword.RawRecord
	for _, seed := range seeds {
		if strings.TrimSpace(seed) == "" {
			continue
		}
		related := make([]string, 0, s.maxPerSeed)
		for _, tpl := range seedTemplates[:s.maxPerSeed] {
			related = append(related, fmt.Sprintf(tpl.format, seed))
		}
		// The seed itself, linking its variants.
		out = append(out, keyword.RawRecord{
			Keyword:         seed,
			RelatedKeywords: related,
			FetchedAt:       now,
		})
		for _, tpl := range seedTemplates[:s.maxPerSeed] {
			out = append(out, keyword.RawRecord{
				Keyword:         fmt.Sprintf(tpl.format, seed),
				Intent:          tpl.intent,
				RelatedKeywords: []string{seed},
				FetchedAt:       now,
			})
		}
	}
	return out, nil
}
