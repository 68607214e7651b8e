package keyword

import (
	"testing"
)

func TestOpportunityScore_DocumentedExample(t *testing.T) {
	// volume 1200 -> 40, difficulty 25 -> 5, cpc 1.5 -> 10, commercial -> 8
	rec := Record{
		Keyword:      "eco friendly homes",
		SearchVolume: 1200,
		Difficulty:   25,
		CPC:          1.5,
		Intent:       IntentCommercial,
	}

	score := OpportunityScore(rec)
	if score != 63 {
		t.Errorf("Expected opportunity score 63, got %v", score)
	}
}

func TestOpportunityScore_Buckets(t *testing.T) {
	cases := []struct {
		name     string
		rec      Record
		expected float64
	}{
		{"zero signals", Record{Intent: IntentUnknown}, 30 + 5},
		{"volume 500 bucket", Record{SearchVolume: 500, Difficulty: 100, Intent: IntentUnknown}, 30 + 0 + 0 + 5},
		{"volume 200 bucket", Record{SearchVolume: 350, Difficulty: 100, Intent: IntentUnknown}, 20 + 5},
		{"volume 100 bucket", Record{SearchVolume: 100, Difficulty: 100, Intent: IntentUnknown}, 10 + 5},
		{"cpc top bucket", Record{CPC: 3.5, Difficulty: 100, Intent: IntentUnknown}, 20 + 5},
		{"cpc 2.0 bucket", Record{CPC: 2.0, Difficulty: 100, Intent: IntentUnknown}, 15 + 5},
		{"cpc 0.5 bucket", Record{CPC: 0.5, Difficulty: 100, Intent: IntentUnknown}, 5 + 5},
		{"informational intent", Record{Difficulty: 100, Intent: IntentInformational}, 10},
		{"transactional intent", Record{Difficulty: 100, Intent: IntentTransactional}, 6},
		{"open intent value", Record{Difficulty: 100, Intent: Intent("local")}, 5},
	}

	for _, tc := range cases {
		if got := OpportunityScore(tc.rec); got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	extremes := []Record{
		{},
		{SearchVolume: 1 << 30, Difficulty: 0, CPC: 1000, TrendPercentage: 10000, Intent: IntentInformational},
		{SearchVolume: 0, Difficulty: 100, CPC: 0, TrendPercentage: -10000, Intent: IntentUnknown},
	}

	for i, rec := range extremes {
		opp := OpportunityScore(rec)
		prio := PriorityScore(rec, DefaultWeights())
		if opp < 0 || opp > 100 {
			t.Errorf("record %d: opportunity score %v out of bounds", i, opp)
		}
		if prio < 0 || prio > 100 {
			t.Errorf("record %d: priority score %v out of bounds", i, prio)
		}
	}
}

func TestScore_Purity(t *testing.T) {
	rec := Record{SearchVolume: 750, Difficulty: 42.5, CPC: 1.2, TrendPercentage: 12, Intent: IntentCommercial}
	w := DefaultWeights()

	opp1, opp2 := OpportunityScore(rec), OpportunityScore(rec)
	prio1, prio2 := PriorityScore(rec, w), PriorityScore(rec, w)
	if opp1 != opp2 || prio1 != prio2 {
		t.Errorf("Scores changed on unchanged record: %v/%v, %v/%v", opp1, opp2, prio1, prio2)
	}
}

func TestOpportunityScore_CPCOnlyMovesItsBucket(t *testing.T) {
	base := Record{SearchVolume: 1200, Difficulty: 25, CPC: 1.5, Intent: IntentCommercial}
	bumped := base
	bumped.CPC = 2.5 // crosses the >=2.0 bucket: +5

	if got := OpportunityScore(bumped) - OpportunityScore(base); got != 5 {
		t.Errorf("Expected CPC bump to add exactly 5, got %v", got)
	}
}

func TestPriorityScore_DefaultWeights(t *testing.T) {
	// volume 1000 caps at 100, trend 0 centers at 50, cpc 2.0 of cap 4.0.
	rec := Record{SearchVolume: 1000, Difficulty: 40, CPC: 2.0}
	// 0.4*100 + 0*60 + 0.3*50 + 0.3*50 = 70
	if got := PriorityScore(rec, DefaultWeights()); got != 70 {
		t.Errorf("Expected priority 70, got %v", got)
	}
}

func TestPriorityScore_DifficultyRemainder(t *testing.T) {
	w := Weights{Volume: 0.3, CPC: 0.2, Trend: 0.2} // 0.3 remainder to difficulty
	rec := Record{SearchVolume: 0, Difficulty: 0, CPC: 0, TrendPercentage: 0}
	// 0.3*0 + 0.3*100 + 0.2*0 + 0.2*50 = 40
	if got := PriorityScore(rec, w); got != 40 {
		t.Errorf("Expected priority 40, got %v", got)
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Errorf("Default weights should validate: %v", err)
	}
	if err := (Weights{Volume: 0.6, CPC: 0.3, Trend: 0.3}).Validate(); err == nil {
		t.Error("Expected error for weights summing above 1.0")
	}
	if err := (Weights{Volume: -0.1}).Validate(); err == nil {
		t.Error("Expected error for negative weight")
	}
}
