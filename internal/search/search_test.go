package search_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/search"
)

// hit is a convenience helper that builds a minimal Result for MergeResults.
func hit(key string, score float64) search.Result {
	return search.Result{Food: nutrition.Food{Key: key, Label: key}, Score: score}
}

func keys(rs []search.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Food.Key
	}
	return out
}

func TestMergeResults_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("empty inputs return empty result", func(c *qt.C) {
		got := search.MergeResults(nil, nil, 0.6, 0.4, 10)
		c.Assert(got, qt.HasLen, 0)
	})

	c.Run("key-only results are weighted by key weight", func(c *qt.C) {
		got := search.MergeResults([]search.Result{hit("a", 1.0)}, nil, 0.5, 0.5, 10)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0].Food.Key, qt.Equals, "a")
		c.Assert(got[0].Score, qt.Equals, 0.5)
	})

	c.Run("label-only results are weighted by label weight", func(c *qt.C) {
		got := search.MergeResults(nil, []search.Result{hit("b", 3.0)}, 0.3, 0.7, 10)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0].Score, qt.Equals, 0.7)
	})

	c.Run("overlapping keys accumulate both tiers", func(c *qt.C) {
		got := search.MergeResults(
			[]search.Result{hit("shared", 1.0)},
			[]search.Result{hit("shared", 1.0)},
			0.6, 0.4, 10)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0].Score, qt.Equals, 1.0)
	})

	c.Run("results are sorted descending by score", func(c *qt.C) {
		got := search.MergeResults([]search.Result{hit("lo", 1.0), hit("hi", 2.0)}, nil, 1.0, 0.0, 10)
		c.Assert(keys(got), qt.DeepEquals, []string{"hi", "lo"})
	})

	c.Run("ties are broken by key", func(c *qt.C) {
		got := search.MergeResults([]search.Result{hit("z", 1.0), hit("a", 1.0)}, nil, 1.0, 0.0, 10)
		c.Assert(keys(got), qt.DeepEquals, []string{"a", "z"})
	})

	c.Run("positive limit truncates result set", func(c *qt.C) {
		got := search.MergeResults([]search.Result{hit("a", 1), hit("b", 2), hit("c", 3)}, nil, 1.0, 0.0, 2)
		c.Assert(keys(got), qt.DeepEquals, []string{"c", "b"})
	})

	c.Run("zero limit returns all results", func(c *qt.C) {
		got := search.MergeResults([]search.Result{hit("a", 1), hit("b", 2)}, nil, 1.0, 0.0, 0)
		c.Assert(got, qt.HasLen, 2)
	})
}

func TestFoods(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"empty query lists table order", "", 3, []string{"rice", "bread", "sweet-potato"}},
		{"key prefix plus label word", "chicken", 0, []string{"chicken-breast"}},
		{"label words only", "cooked", 0, []string{"chicken-breast", "rice", "shrimp", "steak"}},
		{"spaces match hyphenated keys", "Chicken Breast", 0, []string{"chicken-breast"}},
		{"substring of a key", "potato", 0, []string{"sweet-potato"}},
		{"enough key hits skip labels", "b", 0, []string{"banana", "bread", "burger", "chicken-breast"}},
		{"no match", "pizza", 0, []string{}},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(keys(search.Foods(tc.query, tc.limit)), qt.DeepEquals, tc.want)
		})
	}
}

func TestFoods_Scores(t *testing.T) {
	c := qt.New(t)

	got := search.Foods("b", 0)
	c.Assert(got, qt.HasLen, 4)
	c.Assert(got[0].Score, qt.Equals, 1.0)
	c.Assert(got[3].Score, qt.Equals, 0.5)

	got = search.Foods("cooked", 1)
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0].Score, qt.Equals, 0.4)
}

func TestSuggest(t *testing.T) {
	c := qt.New(t)

	c.Assert(search.Suggest("potato", 3), qt.DeepEquals, []string{"sweet-potato"})
	c.Assert(search.Suggest("  ", 3), qt.IsNil)
	c.Assert(search.Suggest("pizza", 3), qt.DeepEquals, []string{})
}
