package enrich

import (
	"math"
	"sort"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Tiers maps source categories to threshold policies.
type Tiers struct {
	fixed float64
	tier1 map[string]struct{}
	tier2 map[string]struct{}
	tier3 map[string]struct{}
}

// NewTiers builds the tier lookup from config category lists.
func NewTiers(fixedThreshold float64, tier1, tier2, tier3 []string) *Tiers {
	return &Tiers{
		fixed: fixedThreshold,
		tier1: toSet(tier1),
		tier2: toSet(tier2),
		tier3: toSet(tier3),
	}
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// groupStat accumulates the absolute-score distribution of one
// (anchor, category) group.
type groupStat struct {
	sum   float64
	sumSq float64
	n     int
}

func (g groupStat) mean() float64 {
	return g.sum / float64(g.n)
}

// sampleStd is the n-1 standard deviation; a single observation has std 0.
func (g groupStat) sampleStd() float64 {
	if g.n < 2 {
		return 0
	}
	mean := g.mean()
	variance := (g.sumSq - float64(g.n)*mean*mean) / float64(g.n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

type groupKey struct {
	anchor   string
	category string
}

// ThresholdMap holds per-(anchor, category) highlight thresholds computed
// from the full committed match history.
type ThresholdMap struct {
	tiers  *Tiers
	groups map[groupKey]groupStat
}

// BuildThresholds aggregates history into a threshold map. History must be
// the complete committed population, not just the batch being classified.
func BuildThresholds(tiers *Tiers, history []database.MatchStat) *ThresholdMap {
	groups := make(map[groupKey]groupStat)
	for _, h := range history {
		key := groupKey{anchor: h.AnchorName, category: h.SourceCategory}
		g := groups[key]
		abs := math.Abs(h.Score)
		g.sum += abs
		g.sumSq += abs * abs
		g.n++
		groups[key] = g
	}
	return &ThresholdMap{tiers: tiers, groups: groups}
}

// Threshold returns the highlight threshold for one (anchor, category)
// pair. Tier 1 categories use the fixed threshold; Tier 2 the historical
// mean; Tier 3 mean plus sample std. Adaptive tiers with no history return
// +Inf, and a category in no tier returns +Inf as well.
func (tm *ThresholdMap) Threshold(anchorName, category string) float64 {
	if _, ok := tm.tiers.tier1[category]; ok {
		return tm.tiers.fixed
	}

	g, hasHistory := tm.groups[groupKey{anchor: anchorName, category: category}]

	if _, ok := tm.tiers.tier2[category]; ok {
		if !hasHistory {
			return math.Inf(1)
		}
		return g.mean()
	}
	if _, ok := tm.tiers.tier3[category]; ok {
		if !hasHistory {
			return math.Inf(1)
		}
		return g.mean() + g.sampleStd()
	}

	return math.Inf(1)
}

// IsHighlight reports whether a match's absolute score clears its threshold.
func (tm *ThresholdMap) IsHighlight(anchorName, category string, score float64) bool {
	return math.Abs(score) > tm.Threshold(anchorName, category)
}

// Quantile computes the q-quantile of values with linear interpolation
// between order statistics. Returns +Inf for an empty population.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
