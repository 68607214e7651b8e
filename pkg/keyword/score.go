package keyword

import (
	"fmt"
	"math"
)

// Weights configures the priority score blend. Volume, CPC and Trend must
// sum to at most 1.0; the remainder is assigned to inverted difficulty.
type Weights struct {
	Volume float64 `mapstructure:"volume"`
	CPC    float64 `mapstructure:"cpc"`
	Trend  float64 `mapstructure:"trend"`
}

// DefaultWeights returns the stock blend: 0.4 volume, 0.3 CPC, 0.3 trend.
func DefaultWeights() Weights {
	return Weights{Volume: 0.4, CPC: 0.3, Trend: 0.3}
}

// Validate rejects negative weights and sums above 1.0.
func (w Weights) Validate() error {
	if w.Volume < 0 || w.CPC < 0 || w.Trend < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if sum := w.Volume + w.CPC + w.Trend; sum > 1.0+1e-9 {
		return fmt.Errorf("score weights sum %.2f exceeds 1.0", sum)
	}
	return nil
}

func (w Weights) difficulty() float64 {
	rem := 1.0 - (w.Volume + w.CPC + w.Trend)
	if rem < 0 {
		return 0
	}
	return rem
}

// Normalization caps for the priority blend. Volumes at or above the cap
// count as 100; same for CPC.
const (
	priorityVolumeCap = 1000
	priorityCPCCap    = 4.0
)

// OpportunityScore ranks how favorable a keyword is to target, 0-100.
// Pure function of the record's numeric fields and intent.
//
// Bucket thresholds are heuristics carried over from the product formulas;
// do not tune without product input.
func OpportunityScore(r Record) float64 {
	score := 0.0

	switch {
	case r.SearchVolume >= 1000:
		score += 40
	case r.SearchVolume >= 500:
		score += 30
	case r.SearchVolume >= 200:
		score += 20
	case r.SearchVolume >= 100:
		score += 10
	}

	score += math.Max(0, 30-r.Difficulty)

	switch {
	case r.CPC >= 3.0:
		score += 20
	case r.CPC >= 2.0:
		score += 15
	case r.CPC >= 1.0:
		score += 10
	case r.CPC >= 0.5:
		score += 5
	}

	switch r.Intent {
	case IntentInformational:
		score += 10
	case IntentCommercial:
		score += 8
	case IntentTransactional:
		score += 6
	default:
		score += 5
	}

	return round2(clamp(score, 0, 100))
}

// PriorityScore blends independently normalized signals into a 0-100
// planning-order score, rounded to 2 decimals. Pure function of the
// record's numeric fields.
func PriorityScore(r Record, w Weights) float64 {
	volumeNorm := clamp(float64(r.SearchVolume)/priorityVolumeCap*100, 0, 100)
	difficultyNorm := clamp(100-r.Difficulty, 0, 100)
	cpcNorm := clamp(r.CPC/priorityCPCCap*100, 0, 100)
	trendNorm := clamp(50+r.TrendPercentage/2, 0, 100)

	score := w.Volume*volumeNorm +
		w.difficulty()*difficultyNorm +
		w.CPC*cpcNorm +
		w.Trend*trendNorm

	return round2(clamp(score, 0, 100))
}

// Score recomputes both derived scores on the record. Must be called
// whenever any input signal changes, in particular after every merge.
func Score(r Record, w Weights) Record {
	r.OpportunityScore = OpportunityScore(r)
	r.PriorityScore = PriorityScore(r, w)
	return r
}
