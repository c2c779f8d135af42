package publisher

import (
	"sort"
	"strings"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

// normalizeTitle is the merge key: fold accents and case, collapse
// whitespace. "Brosse Vapeur" and "brosse  vapeur" are one product.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(catalog.FoldText(title)), " ")
}

// MergeCandidates collapses candidates that describe the same product
// under different sources. The survivor keeps the highest score and the
// richest analysis; tags, sources and signals are unioned. The result
// is sorted by score descending, ties keeping first-seen order.
func MergeCandidates(candidates []catalog.Candidate) []catalog.Candidate {
	merged := make([]catalog.Candidate, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		key := normalizeTitle(c.Title)
		if key == "" {
			continue
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, c)

			continue
		}

		merged[i] = mergePair(merged[i], c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return merged
}

func mergePair(base, other catalog.Candidate) catalog.Candidate {
	if other.Score > base.Score {
		base.Title = other.Title
		base.Score = other.Score
		base.ScoreBreakdown = other.ScoreBreakdown
	}

	if base.Category == "" {
		base.Category = other.Category
	}

	if len(base.Analysis) == 0 {
		base.Analysis = other.Analysis
	}

	if base.ImageURL == "" {
		base.ImageURL = other.ImageURL
		base.ImageSource = other.ImageSource
	}

	if base.SourceURL == "" {
		base.SourceURL = other.SourceURL
	}

	base.Tags = unionStrings(base.Tags, other.Tags)
	base.Sources = unionStrings(base.Sources, other.Sources)
	base.Signals = unionSignals(base.Signals, other.Signals)

	return base
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

func unionSignals(a, b map[string]any) map[string]any {
	if len(b) == 0 {
		return a
	}

	out := make(map[string]any, len(a)+len(b))

	for k, v := range a {
		out[k] = v
	}

	for k, v := range b {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}

	return out
}
