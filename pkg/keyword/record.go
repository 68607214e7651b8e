package keyword

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SourceKind identifies where a keyword observation came from.
type SourceKind string

const (
	SourceExternalAPI   SourceKind = "external_api"
	SourceSpreadsheet   SourceKind = "spreadsheet_import"
	SourceSeedExpansion SourceKind = "seed_expansion"
)

// Priority returns the merge tie-break rank for equal timestamps.
// Paid/authoritative data outranks user uploads, which outrank heuristic
// seed expansion.
func (s SourceKind) Priority() int {
	switch s {
	case SourceExternalAPI:
		return 3
	case SourceSpreadsheet:
		return 2
	case SourceSeedExpansion:
		return 1
	default:
		return 0
	}
}

// Intent is an open string-backed enum. Unrecognized upstream values are
// preserved as-is rather than rejected, so new categories never fail
// validation.
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentCommercial    Intent = "commercial"
	IntentTransactional Intent = "transactional"
	IntentNavigational  Intent = "navigational"
	IntentUnknown       Intent = "unknown"
)

// ParseIntent lowercases the upstream value and maps empty to unknown.
func ParseIntent(s string) Intent {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return IntentUnknown
	}
	return Intent(v)
}

// Scope identifies the owning user and research topic. The same keyword
// string under a different scope is a distinct record.
type Scope struct {
	OwnerID string `json:"owner_id"`
	TopicID string `json:"topic_id"`
}

// Record is a single canonical keyword observation.
type Record struct {
	Keyword          string     `json:"keyword"`
	OwnerID          string     `json:"owner_id"`
	TopicID          string     `json:"topic_id"`
	Source           SourceKind `json:"source"`
	SearchVolume     int        `json:"search_volume"`
	Difficulty       float64    `json:"difficulty"`
	CPC              float64    `json:"cpc"`
	Competition      float64    `json:"competition"`
	TrendPercentage  float64    `json:"trend_percentage"`
	Intent           Intent     `json:"intent"`
	OpportunityScore float64    `json:"opportunity_score"`
	PriorityScore    float64    `json:"priority_score"`
	RelatedKeywords  []string   `json:"related_keywords,omitempty"`
	FetchedAt        time.Time  `json:"fetched_at"`
}

// Identity returns the dedup key (owner_id, topic_id, keyword).
func (r Record) Identity() string {
	return r.OwnerID + "\x00" + r.TopicID + "\x00" + r.Keyword
}

// NormalizeText canonicalizes keyword text: NFKC fold, lowercase, internal
// whitespace collapsed to single spaces, trimmed. Returns "" for input
// that is empty after normalization.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
