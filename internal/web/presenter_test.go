package web

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewProductDetailViewWithoutAnalysis(t *testing.T) {
	view := NewProductDetailView(catalog.Product{Title: "Brosse Vapeur"})

	assert.Equal(t, Placeholder, view.MainPromise)
	assert.Equal(t, Placeholder, view.TargetCustomer)
	assert.Equal(t, Placeholder, view.UGCScript)
	assert.Equal(t, Placeholder, view.PriceRange)
	assert.Equal(t, Placeholder, view.Confidence)
	assert.Empty(t, view.Hooks)
	assert.Empty(t, view.Risks)
}

func TestNewProductDetailViewPartialAnalysis(t *testing.T) {
	product := catalog.Product{
		Title: "Brosse Vapeur",
		Analysis: &catalog.Analysis{
			Positioning: &catalog.Positioning{MainPromise: "Nettoie sans produits"},
			Confidence:  &catalog.Confidence{Score: floatPtr(0.72)},
		},
	}

	view := NewProductDetailView(product)

	assert.Equal(t, "Nettoie sans produits", view.MainPromise)
	assert.Equal(t, Placeholder, view.TargetCustomer, "absent sibling fields stay placeholders")
	assert.Equal(t, "72 %", view.Confidence)
	assert.Equal(t, Placeholder, view.PriceRange)
}

func TestFormatPriceRange(t *testing.T) {
	tests := []struct {
		name string
		pr   *catalog.PriceRange
		want string
	}{
		{name: "nil range", pr: nil, want: Placeholder},
		{name: "no bounds", pr: &catalog.PriceRange{Currency: "EUR"}, want: Placeholder},
		{
			name: "both bounds",
			pr:   &catalog.PriceRange{Min: floatPtr(19), Max: floatPtr(29), Currency: "EUR"},
			want: "19–29 EUR",
		},
		{
			name: "min only",
			pr:   &catalog.PriceRange{Min: floatPtr(19.9)},
			want: "dès 19.90 EUR",
		},
		{
			name: "max only",
			pr:   &catalog.PriceRange{Max: floatPtr(49), Currency: "USD"},
			want: "jusqu'à 49 USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPriceRange(tt.pr))
		})
	}
}

func TestWeekLabel(t *testing.T) {
	assert.Equal(t, "Semaine du 23/08/2026", WeekLabel("2026-08-23"))
	assert.Empty(t, WeekLabel(""))
	assert.Empty(t, WeekLabel("pas-une-date"))
}
