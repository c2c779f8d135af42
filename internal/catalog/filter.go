package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AllOption is the sentinel selector that disables a filter dimension.
const AllOption = "all"

// Criteria is one filter tuple. The zero value with Category and Source
// set to AllOption is a no-op filter.
type Criteria struct {
	Query    string
	Category string
	Source   string
	MinScore int
}

// DefaultCriteria returns the no-op filter tuple.
func DefaultCriteria() Criteria {
	return Criteria{Category: AllOption, Source: AllOption}
}

// Matches reports whether a single product satisfies every predicate of
// the criteria. Predicates combine with AND, so evaluation order does
// not affect the result.
func (c Criteria) Matches(p Product) bool {
	if c.Category != "" && c.Category != AllOption && p.Category != c.Category {
		return false
	}

	if c.Source != "" && c.Source != AllOption && !containsString(p.Sources, c.Source) {
		return false
	}

	if p.Score < c.MinScore {
		return false
	}

	query := FoldText(strings.TrimSpace(c.Query))
	if query == "" {
		return true
	}

	haystack := FoldText(p.Title + " " + strings.Join(p.Tags, " ") + " " + p.Category)

	return strings.Contains(haystack, query)
}

// Filter returns the products satisfying the criteria, sorted by score
// descending. The sort is stable so equal scores keep their incoming
// relative order. The input slice is never mutated.
func Filter(products []Product, c Criteria) []Product {
	out := make([]Product, 0, len(products))

	for _, p := range products {
		if c.Matches(p) {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out
}

// Categories derives the selectable category options from the loaded
// products: AllOption first, then the distinct categories sorted
// ascending. Products without a category fall into FallbackCategory.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))

	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = FallbackCategory
		}

		seen[cat] = struct{}{}
	}

	return optionList(seen)
}

// Sources derives the selectable source options, flattening each
// product's source list before deduplication.
func Sources(products []Product) []string {
	seen := make(map[string]struct{})

	for _, p := range products {
		for _, s := range p.Sources {
			seen[s] = struct{}{}
		}
	}

	return optionList(seen)
}

func optionList(seen map[string]struct{}) []string {
	options := make([]string, 0, len(seen)+1)
	for opt := range seen {
		options = append(options, opt)
	}

	sort.Strings(options)

	return append([]string{AllOption}, options...)
}

// View memoizes a filtered derivation keyed on the product slice
// identity and the last criteria, so unrelated state changes do not
// trigger recomputation. A View belongs to one request/view instance
// and is not safe for concurrent use.
type View struct {
	products []Product
	criteria Criteria
	derived  []Product
	valid    bool
}

// NewView creates a view over an already-loaded, bounded product list.
func NewView(products []Product) *View {
	return &View{products: products}
}

// SetProducts replaces the backing list and invalidates the memo.
func (v *View) SetProducts(products []Product) {
	v.products = products
	v.valid = false
}

// Apply returns the filtered, sorted list for the criteria, recomputing
// only when the criteria differ from the previous call.
func (v *View) Apply(c Criteria) []Product {
	if v.valid && v.criteria == c {
		return v.derived
	}

	v.derived = Filter(v.products, c)
	v.criteria = c
	v.valid = true

	return v.derived
}

// FoldText lowercases and strips diacritics for substring matching, so
// a search for "creme" also finds "Crème". Falls back to plain
// lowercasing if the transform fails.
func FoldText(s string) string {
	lowered := strings.ToLower(s)

	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(folder, lowered)
	if err != nil {
		return lowered
	}

	return folded
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}

	return false
}
