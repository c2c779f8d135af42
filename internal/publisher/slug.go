package publisher

import (
	"strings"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

const maxSlugLen = 80

// Slugify turns a product title into its URL identifier: accents are
// folded away, anything outside [a-z0-9] collapses into single dashes
// and the result is capped at 80 characters.
func Slugify(title string) string {
	folded := catalog.FoldText(title)

	var b strings.Builder

	b.Grow(len(folded))

	lastDash := true // suppress a leading dash

	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')

				lastDash = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}

	return slug
}

// TagsFromSlug derives fallback tags from the first few slug words for
// candidates that arrive without tags.
func TagsFromSlug(slug string, max int) []string {
	words := strings.Split(slug, "-")
	if len(words) > max {
		words = words[:max]
	}

	tags := make([]string, 0, len(words))

	for _, w := range words {
		if w != "" {
			tags = append(tags, w)
		}
	}

	return tags
}
