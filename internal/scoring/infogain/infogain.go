// Package infogain scores profile completeness and confidence across the
// five fixed trait dimensions.
package infogain

import (
	"math"

	"github.com/kindred-labs/resonance/internal/domain/profile"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
)

const (
	// DefaultMinTraitsPerDimension is the trait count that makes a dimension fully covered.
	DefaultMinTraitsPerDimension = 3

	coverageWeight   = 0.6
	confidenceWeight = 0.4
	entropyBonus     = 0.1

	// traitsNeededCap bounds the TraitsNeeded estimate for unreachable targets.
	traitsNeededCap = 100
)

// Details is the per-profile scoring breakdown.
type Details struct {
	Score            float64
	Coverage         float64
	AvgConfidence    float64
	EntropyReduction float64
}

// Scorer is a pure, stateless profile completeness scorer.
type Scorer struct {
	minTraits int
}

// New creates a scorer. minTraitsPerDimension <= 0 falls back to the default.
func New(minTraitsPerDimension int) *Scorer {
	if minTraitsPerDimension <= 0 {
		minTraitsPerDimension = DefaultMinTraitsPerDimension
	}
	return &Scorer{minTraits: minTraitsPerDimension}
}

// CalculateDetailed scores a single profile.
//
// Coverage is total trait count over the expected 5×minTraits, capped at 1.
// AvgConfidence reports the mean trait confidence for observability; the
// score itself uses the confidence mass capped against the expected trait
// count, which keeps the score monotone under trait addition (a low-
// confidence trait can lower the mean but never the mass). Entropy
// reduction is the normalized Shannon entropy of per-dimension coverage,
// higher when traits spread evenly across dimensions.
func (s *Scorer) CalculateDetailed(p *profile.Profile) Details {
	expected := float64(len(profile.Dimensions()) * s.minTraits)

	coverage := math.Min(float64(p.TraitCount())/expected, 1)
	confMass := math.Min(p.ConfidenceSum()/expected, 1)
	entropy := s.entropyReduction(p)

	base := coverage*coverageWeight + confMass*confidenceWeight
	return Details{
		Score:            rbs.Clamp(base * (1 + entropy*entropyBonus)),
		Coverage:         coverage,
		AvgConfidence:    p.AvgConfidence(),
		EntropyReduction: entropy,
	}
}

// Calculate scores a pair as the arithmetic mean of the two single-profile
// scores. Symmetric; no cross-profile interaction term.
func (s *Scorer) Calculate(a, b *profile.Profile) float64 {
	return (s.CalculateDetailed(a).Score + s.CalculateDetailed(b).Score) / 2
}

// TraitsNeeded estimates how many additional traits are required to reach
// targetScore, assuming new traits arrive at the profile's current average
// confidence (0.5 for an empty profile) spread across the least covered
// dimensions. Returns 0 if the target is already met and caps the estimate
// for unreachable targets.
func (s *Scorer) TraitsNeeded(p *profile.Profile, targetScore float64) int {
	if s.CalculateDetailed(p).Score >= targetScore {
		return 0
	}

	assumedConf := p.AvgConfidence()
	if p.TraitCount() == 0 {
		assumedConf = 0.5
	}

	counts := make(map[profile.Dimension]int, len(profile.Dimensions()))
	for _, d := range profile.Dimensions() {
		counts[d] = p.DimensionCount(d)
	}
	total := p.TraitCount()
	confSum := p.ConfidenceSum()

	for added := 1; added <= traitsNeededCap; added++ {
		leastCovered(counts)
		total++
		confSum += assumedConf
		if s.hypotheticalScore(counts, total, confSum) >= targetScore {
			return added
		}
	}
	return traitsNeededCap
}

// leastCovered increments the count of the dimension with the fewest traits.
func leastCovered(counts map[profile.Dimension]int) {
	best := profile.Dimensions()[0]
	for _, d := range profile.Dimensions() {
		if counts[d] < counts[best] {
			best = d
		}
	}
	counts[best]++
}

func (s *Scorer) hypotheticalScore(counts map[profile.Dimension]int, total int, confSum float64) float64 {
	expected := float64(len(profile.Dimensions()) * s.minTraits)
	coverage := math.Min(float64(total)/expected, 1)
	confMass := math.Min(confSum/expected, 1)
	entropy := entropyOf(counts, s.minTraits)
	base := coverage*coverageWeight + confMass*confidenceWeight
	return rbs.Clamp(base * (1 + entropy*entropyBonus))
}

func (s *Scorer) entropyReduction(p *profile.Profile) float64 {
	counts := make(map[profile.Dimension]int, len(profile.Dimensions()))
	for _, d := range profile.Dimensions() {
		counts[d] = p.DimensionCount(d)
	}
	return entropyOf(counts, s.minTraits)
}

// entropyOf treats each dimension's own coverage as an unnormalized weight,
// normalizes to a distribution, and returns Shannon entropy in bits divided
// by the maximum log2(5). Empty profiles yield 0.
func entropyOf(counts map[profile.Dimension]int, minTraits int) float64 {
	dims := profile.Dimensions()

	weights := make([]float64, 0, len(dims))
	var sum float64
	for _, d := range dims {
		w := math.Min(float64(counts[d])/float64(minTraits), 1)
		weights = append(weights, w)
		sum += w
	}
	if sum == 0 {
		return 0
	}

	var entropy float64
	for _, w := range weights {
		if w == 0 {
			continue
		}
		pr := w / sum
		entropy -= pr * math.Log2(pr)
	}
	return entropy / math.Log2(float64(len(dims)))
}
