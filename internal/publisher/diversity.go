package publisher

import "github.com/cdb-lab/product-radar/internal/catalog"

// ApplyCategoryDiversity walks the score-ordered candidates and drops
// any beyond maxPerCategory in their category, so one hot niche cannot
// fill the whole week. Candidates without a category count against the
// fallback bucket. maxPerCategory <= 0 disables the cap.
func ApplyCategoryDiversity(candidates []catalog.Candidate, maxPerCategory int) []catalog.Candidate {
	if maxPerCategory <= 0 {
		return candidates
	}

	counts := make(map[string]int)
	out := make([]catalog.Candidate, 0, len(candidates))

	for _, c := range candidates {
		category := c.Category
		if category == "" {
			category = catalog.FallbackCategory
		}

		if counts[category] >= maxPerCategory {
			continue
		}

		counts[category]++

		out = append(out, c)
	}

	return out
}
