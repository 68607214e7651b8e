package keyword

import (
	"reflect"
	"testing"
	"time"
)

var mergeBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func candidate(source SourceKind, fetchedAt time.Time) Record {
	return Record{
		Keyword:   "eco friendly homes",
		OwnerID:   "owner-1",
		TopicID:   "topic-1",
		Source:    source,
		Intent:    IntentUnknown,
		FetchedAt: fetchedAt,
	}
}

func TestMerge_EqualTimestampTieBreak(t *testing.T) {
	a := candidate(SourceExternalAPI, mergeBase)
	a.SearchVolume = 500
	b := candidate(SourceSpreadsheet, mergeBase)
	b.SearchVolume = 800

	merged, err := Merge([]Record{b, a})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.SearchVolume != 500 {
		t.Errorf("Expected external API volume 500 to win tie-break, got %d", merged.SearchVolume)
	}
}

func TestMerge_RecencyBeatsSourcePriority(t *testing.T) {
	older := candidate(SourceExternalAPI, mergeBase)
	older.SearchVolume = 500
	newer := candidate(SourceSpreadsheet, mergeBase.Add(time.Hour))
	newer.SearchVolume = 800

	merged, err := Merge([]Record{older, newer})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.SearchVolume != 800 {
		t.Errorf("Expected newer spreadsheet volume 800, got %d", merged.SearchVolume)
	}
	if !merged.FetchedAt.Equal(mergeBase.Add(time.Hour)) {
		t.Errorf("Expected max fetched_at, got %v", merged.FetchedAt)
	}
}

func TestMerge_IntentPrefersKnown(t *testing.T) {
	known := candidate(SourceSeedExpansion, mergeBase)
	known.Intent = IntentCommercial
	unknown := candidate(SourceExternalAPI, mergeBase.Add(time.Minute))

	merged, err := Merge([]Record{unknown, known})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Intent != IntentCommercial {
		t.Errorf("Expected commercial intent to survive, got %q", merged.Intent)
	}
}

func TestMerge_IntentDisagreementTakesMostRecent(t *testing.T) {
	older := candidate(SourceExternalAPI, mergeBase)
	older.Intent = IntentCommercial
	newer := candidate(SourceSpreadsheet, mergeBase.Add(time.Hour))
	newer.Intent = IntentTransactional

	merged, err := Merge([]Record{older, newer})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Intent != IntentTransactional {
		t.Errorf("Expected most recent intent, got %q", merged.Intent)
	}
}

func TestMerge_RelatedKeywordsUnion(t *testing.T) {
	seed := candidate(SourceSeedExpansion, mergeBase)
	seed.RelatedKeywords = []string{"green homes", "eco houses"}
	external := candidate(SourceExternalAPI, mergeBase)
	external.RelatedKeywords = []string{"sustainable homes", "Green Homes"}

	merged, err := Merge([]Record{seed, external})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Highest-priority source order first, then novel entries; dedup is
	// case-insensitive.
	expected := []string{"sustainable homes", "Green Homes", "eco houses"}
	if !reflect.DeepEqual(merged.RelatedKeywords, expected) {
		t.Errorf("Expected %v, got %v", expected, merged.RelatedKeywords)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	a := candidate(SourceExternalAPI, mergeBase)
	a.SearchVolume = 500
	a.RelatedKeywords = []string{"x", "y"}
	b := candidate(SourceSpreadsheet, mergeBase)
	b.SearchVolume = 800
	b.RelatedKeywords = []string{"y", "z"}
	c := candidate(SourceSeedExpansion, mergeBase.Add(-time.Hour))

	candidates := []Record{a, b, c}
	first, err := Merge(candidates)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	second, err := Merge(candidates)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Merge not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestMerge_RejectsMixedIdentities(t *testing.T) {
	a := candidate(SourceExternalAPI, mergeBase)
	b := candidate(SourceSpreadsheet, mergeBase)
	b.Keyword = "different keyword"

	if _, err := Merge([]Record{a, b}); err == nil {
		t.Error("Expected error for mixed identities")
	}
}

func TestMerge_EmptyInput(t *testing.T) {
	if _, err := Merge(nil); err == nil {
		t.Error("Expected error for empty candidate set")
	}
}

func TestGroupByIdentity(t *testing.T) {
	a := candidate(SourceExternalAPI, mergeBase)
	b := candidate(SourceSpreadsheet, mergeBase)
	other := candidate(SourceExternalAPI, mergeBase)
	other.TopicID = "topic-2"

	groups := GroupByIdentity([]Record{a, other, b})
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Errorf("Expected shared-identity group of 2, got %d", len(groups[0]))
	}
	if len(groups[1]) != 1 {
		t.Errorf("Expected distinct topic in its own group, got %d", len(groups[1]))
	}
}
