// Package search implements tiered key + label search over the food table.
package search

import (
	"sort"
	"strings"

	"github.com/go-ports/dietvault/internal/nutrition"
)

// Tier weights used by TieredSearch when both tiers contribute.
const (
	keyWeight   = 0.6
	labelWeight = 0.4
)

// Result is a single search hit with a combined relevance score.
type Result struct {
	Food  nutrition.Food
	Score float64
}

// MergeResults combines key and label hits with weighted scoring. Scores are
// normalized per tier first; a food hit by both tiers gets the sum.
func MergeResults(keyHits, labelHits []Result, kw, lw float64, limit int) []Result {
	normalize(keyHits)
	normalize(labelHits)

	combined := make(map[string]*Result, len(keyHits)+len(labelHits))
	for _, r := range keyHits {
		cp := r
		cp.Score = kw * r.Score
		combined[r.Food.Key] = &cp
	}
	for _, r := range labelHits {
		if existing, ok := combined[r.Food.Key]; ok {
			existing.Score += lw * r.Score
			continue
		}
		cp := r
		cp.Score = lw * r.Score
		combined[r.Food.Key] = &cp
	}

	results := make([]Result, 0, len(combined))
	for _, r := range combined {
		results = append(results, *r)
	}
	sortResults(results)
	return results[:clamp(limit, len(results))]
}

// TieredSearch matches food keys first and only scans labels when key hits
// are sparse. minKey is the number of key hits that skips the label scan;
// pass 0 for the default of 3. An empty query returns foods in table order.
func TieredSearch(foods []nutrition.Food, query string, limit, minKey int) []Result {
	if minKey <= 0 {
		minKey = 3
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Result, 0, len(foods))
		for _, f := range foods {
			out = append(out, Result{Food: f, Score: 1})
		}
		return out[:clamp(limit, len(out))]
	}

	keyHits := scoreKeys(foods, query)
	if len(keyHits) >= minKey {
		normalize(keyHits)
		sortResults(keyHits)
		return keyHits[:clamp(limit, len(keyHits))]
	}
	return MergeResults(keyHits, scoreLabels(foods, query), keyWeight, labelWeight, limit)
}

// Foods searches the built-in food table.
func Foods(query string, limit int) []Result {
	return TieredSearch(nutrition.Foods, query, limit, 0)
}

// Suggest returns up to limit food keys resembling query, best first.
func Suggest(query string, limit int) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	hits := Foods(query, limit)
	keys := make([]string, len(hits))
	for i, r := range hits {
		keys[i] = r.Food.Key
	}
	return keys
}

// ---------------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------------

// scoreKeys ranks exact key matches above prefix matches above substrings.
func scoreKeys(foods []nutrition.Food, query string) []Result {
	q := strings.Join(strings.Fields(query), "-")
	var out []Result
	for _, f := range foods {
		var score float64
		switch {
		case f.Key == q:
			score = 3
		case strings.HasPrefix(f.Key, q):
			score = 2
		case strings.Contains(f.Key, q):
			score = 1
		}
		if score > 0 {
			out = append(out, Result{Food: f, Score: score})
		}
	}
	return out
}

// scoreLabels counts the query words found in each label.
func scoreLabels(foods []nutrition.Food, query string) []Result {
	words := strings.Fields(strings.ReplaceAll(query, "-", " "))
	var out []Result
	for _, f := range foods {
		label := strings.ToLower(f.Label)
		var score float64
		for _, w := range words {
			if strings.Contains(label, w) {
				score++
			}
		}
		if score > 0 {
			out = append(out, Result{Food: f, Score: score})
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// normalize divides each score by the maximum score, producing [0, 1].
func normalize(rs []Result) {
	if len(rs) == 0 {
		return
	}
	var maxScore float64
	for _, r := range rs {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1.0
	}
	for i := range rs {
		rs[i].Score /= maxScore
	}
}

// sortResults orders by score descending, then key for a stable output.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].Food.Key < rs[j].Food.Key
	})
}

func clamp(limit, n int) int {
	if limit <= 0 {
		return n
	}
	if limit < n {
		return limit
	}
	return n
}
