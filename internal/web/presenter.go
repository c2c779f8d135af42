package web

import (
	"fmt"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

// Placeholder is rendered wherever an analysis field is absent.
const Placeholder = "—"

// ProductDetailView flattens a product and its optional analysis
// document into template-ready strings. Every absent field carries the
// placeholder, so the template never branches on nil sections.
type ProductDetailView struct {
	Product catalog.Product

	MainPromise    string
	TargetCustomer string
	ProblemSolved  string
	WhyNow         string

	Hooks      []string
	Objections []catalog.Objection
	UGCScript  string

	Risks []catalog.Risk

	PriceRange string
	Channels   []string
	Upsells    []string

	Confidence string
	Reasons    []string
}

// NewProductDetailView builds the detail view for a product.
func NewProductDetailView(p catalog.Product) ProductDetailView {
	view := ProductDetailView{
		Product:        p,
		MainPromise:    Placeholder,
		TargetCustomer: Placeholder,
		ProblemSolved:  Placeholder,
		WhyNow:         Placeholder,
		UGCScript:      Placeholder,
		PriceRange:     Placeholder,
		Confidence:     Placeholder,
	}

	a := p.Analysis
	if a == nil {
		return view
	}

	if pos := a.Positioning; pos != nil {
		view.MainPromise = orPlaceholder(pos.MainPromise)
		view.TargetCustomer = orPlaceholder(pos.TargetCustomer)
		view.ProblemSolved = orPlaceholder(pos.ProblemSolved)
		view.WhyNow = orPlaceholder(pos.WhyNow)
	}

	if angles := a.Angles; angles != nil {
		view.Hooks = angles.Hooks
		view.Objections = angles.Objections

		if angles.UGCScript != nil && angles.UGCScript.Script != "" {
			view.UGCScript = angles.UGCScript.Script
		}
	}

	view.Risks = a.Risks

	if rec := a.Recommendations; rec != nil {
		view.PriceRange = formatPriceRange(rec.PriceRange)
		view.Channels = rec.Channels
		view.Upsells = rec.Upsells
	}

	if conf := a.Confidence; conf != nil {
		view.Confidence = formatConfidence(conf.Score)
		view.Reasons = conf.Reasons
	}

	return view
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}

	return s
}

// formatPriceRange renders a price window like "19–29 EUR". A missing
// bound degrades to the available side; no bounds at all is the
// placeholder.
func formatPriceRange(pr *catalog.PriceRange) string {
	if pr == nil || (pr.Min == nil && pr.Max == nil) {
		return Placeholder
	}

	currency := pr.Currency
	if currency == "" {
		currency = "EUR"
	}

	switch {
	case pr.Min != nil && pr.Max != nil:
		return fmt.Sprintf("%s–%s %s", formatPrice(*pr.Min), formatPrice(*pr.Max), currency)
	case pr.Min != nil:
		return fmt.Sprintf("dès %s %s", formatPrice(*pr.Min), currency)
	default:
		return fmt.Sprintf("jusqu'à %s %s", formatPrice(*pr.Max), currency)
	}
}

func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}

	return fmt.Sprintf("%.2f", v)
}

// formatConfidence renders the 0..1 self-assessment as a percentage.
func formatConfidence(score *float64) string {
	if score == nil {
		return Placeholder
	}

	return fmt.Sprintf("%.0f %%", *score*100)
}
