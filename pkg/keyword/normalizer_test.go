package keyword

import (
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"  Eco   Friendly\tHomes ", "eco friendly homes"},
		{"SOLAR PANELS", "solar panels"},
		{"   ", ""},
		{" ", ""}, // non-breaking space collapses to nothing
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.expected {
			t.Errorf("NormalizeText(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestNormalize_FractionalDifficultyRescaled(t *testing.T) {
	n := NewNormalizer()
	rec, ok := n.Normalize(RawRecord{
		Keyword:    "solar panels",
		Difficulty: floatPtr(0.455),
	}, SourceExternalAPI, Scope{OwnerID: "o", TopicID: "t"})
	if !ok {
		t.Fatal("Expected record to normalize")
	}
	if rec.Difficulty != 45.5 {
		t.Errorf("Expected difficulty 45.5, got %v", rec.Difficulty)
	}
}

func TestNormalize_PercentDifficultyPassesThrough(t *testing.T) {
	n := NewNormalizer()
	rec, _ := n.Normalize(RawRecord{
		Keyword:    "solar panels",
		Difficulty: floatPtr(62),
	}, SourceExternalAPI, Scope{})
	if rec.Difficulty != 62 {
		t.Errorf("Expected difficulty 62, got %v", rec.Difficulty)
	}
}

func TestNormalize_OutOfRangeClamped(t *testing.T) {
	n := NewNormalizer()
	rec, _ := n.Normalize(RawRecord{
		Keyword:     "solar panels",
		Difficulty:  floatPtr(150),
		Competition: floatPtr(-10),
		CPC:         floatPtr(-2),
	}, SourceExternalAPI, Scope{})
	if rec.Difficulty != 100 {
		t.Errorf("Expected difficulty clamped to 100, got %v", rec.Difficulty)
	}
	if rec.Competition != 0 {
		t.Errorf("Expected competition clamped to 0, got %v", rec.Competition)
	}
	if rec.CPC != 0 {
		t.Errorf("Expected negative CPC floored to 0, got %v", rec.CPC)
	}
}

func TestNormalize_MissingNumericsDefaultZero(t *testing.T) {
	n := NewNormalizer()
	rec, ok := n.Normalize(RawRecord{Keyword: "solar panels"}, SourceSeedExpansion, Scope{})
	if !ok {
		t.Fatal("Expected record to normalize")
	}
	if rec.SearchVolume != 0 || rec.Difficulty != 0 || rec.CPC != 0 || rec.Competition != 0 {
		t.Errorf("Expected zero defaults, got %+v", rec)
	}
	if rec.Intent != IntentUnknown {
		t.Errorf("Expected unknown intent, got %q", rec.Intent)
	}
	if rec.FetchedAt.IsZero() {
		t.Error("Expected fetched_at to be stamped")
	}
}

func TestNormalize_EmptyKeywordDroppedAndCounted(t *testing.T) {
	n := NewNormalizer()
	if _, ok := n.Normalize(RawRecord{Keyword: "   "}, SourceSpreadsheet, Scope{}); ok {
		t.Error("Expected empty keyword to be dropped")
	}
	if _, ok := n.Normalize(RawRecord{Keyword: ""}, SourceSpreadsheet, Scope{}); ok {
		t.Error("Expected empty keyword to be dropped")
	}
	if n.DroppedCount() != 2 {
		t.Errorf("Expected 2 dropped, got %d", n.DroppedCount())
	}
}

func TestNormalize_NegativeVolumeFloored(t *testing.T) {
	n := NewNormalizer()
	rec, _ := n.Normalize(RawRecord{
		Keyword:      "solar panels",
		SearchVolume: intPtr(-50),
	}, SourceExternalAPI, Scope{})
	if rec.SearchVolume != 0 {
		t.Errorf("Expected volume floored to 0, got %d", rec.SearchVolume)
	}
}

func TestNormalize_RelatedKeywordsCleaned(t *testing.T) {
	n := NewNormalizer()
	rec, _ := n.Normalize(RawRecord{
		Keyword:         "solar panels",
		RelatedKeywords: []string{" Solar Power ", "solar power", "", "solar roof"},
		FetchedAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, SourceExternalAPI, Scope{})
	expected := []string{"solar power", "solar roof"}
	if len(rec.RelatedKeywords) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, rec.RelatedKeywords)
	}
	for i := range expected {
		if rec.RelatedKeywords[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, rec.RelatedKeywords)
		}
	}
}

func TestParseIntent_OpenEnded(t *testing.T) {
	if ParseIntent("COMMERCIAL") != IntentCommercial {
		t.Error("Expected case-insensitive intent parse")
	}
	if ParseIntent("") != IntentUnknown {
		t.Error("Expected empty intent to map to unknown")
	}
	// Unrecognized upstream categories pass through.
	if ParseIntent("branded") != Intent("branded") {
		t.Error("Expected unrecognized intent to be preserved")
	}
}
