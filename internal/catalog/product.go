// Package catalog holds the product domain types and the in-memory
// filter/sort engine used by the dashboard and teaser views.
//
// Products are read-only projections produced by the weekly publisher;
// nothing in this package mutates the backing store.
package catalog

import (
	"encoding/json"
	"fmt"
)

// FallbackCategory is the bucket used when a product carries no category.
const FallbackCategory = "autre"

// Product is a single catalog entry as the views consume it.
type Product struct {
	ID          string
	RunDate     string
	Title       string
	Slug        string
	Category    string
	Score       int
	Tags        []string
	Sources     []string
	Summary     string
	ImageURL    string
	ImageSource string
	SourceURL   string
	Analysis    *Analysis
}

// Analysis is the structured form of the nested analysis document.
// Every sub-section is optional: a partially populated document decodes
// to nil pointers and empty slices, never an error the views have to
// guard against field by field.
type Analysis struct {
	Positioning     *Positioning     `json:"positioning,omitempty"`
	Angles          *Angles          `json:"angles,omitempty"`
	Risks           []Risk           `json:"risks,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
	Confidence      *Confidence      `json:"confidence,omitempty"`
}

// Positioning carries the promise/target/problem/timing fields.
type Positioning struct {
	MainPromise    string `json:"main_promise"`
	TargetCustomer string `json:"target_customer"`
	ProblemSolved  string `json:"problem_solved"`
	WhyNow         string `json:"why_now"`
}

// Angles groups marketing hooks, objection handling and the optional
// UGC script.
type Angles struct {
	Hooks      []string    `json:"hooks"`
	Objections []Objection `json:"objections"`
	UGCScript  *UGCScript  `json:"ugc_script,omitempty"`
}

// Objection is one objection/response pair.
type Objection struct {
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

// UGCScript is a short video script suggestion.
type UGCScript struct {
	Script          string `json:"script"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Risk is one identified risk with a severity level.
type Risk struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Note  string `json:"note"`
}

// Recommendations groups pricing and channel suggestions.
type Recommendations struct {
	PriceRange *PriceRange `json:"price_range,omitempty"`
	Channels   []string    `json:"channels"`
	Upsells    []string    `json:"upsells"`
}

// PriceRange is a recommended price window. Min and Max are pointers so
// an absent bound renders as a placeholder instead of zero.
type PriceRange struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// Confidence is the analysis self-assessment.
type Confidence struct {
	Score   *float64 `json:"score"`
	Reasons []string `json:"reasons"`
}

// ParseAnalysis decodes an analysis document from its stored JSON form.
// Empty, null or absent payloads yield nil without error; only malformed
// JSON is reported.
func ParseAnalysis(raw []byte) (*Analysis, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	return &a, nil
}

// MainPromise returns the positioning promise or an empty string.
// The publisher uses it to derive the product summary.
func (a *Analysis) MainPromise() string {
	if a == nil || a.Positioning == nil {
		return ""
	}

	return a.Positioning.MainPromise
}

// Candidate is a pre-scored product candidate staged for the weekly
// publisher. Scoring, signal collection and analysis generation happen
// upstream; this system only merges and publishes.
type Candidate struct {
	Title          string
	Category       string
	Score          int
	Tags           []string
	Sources        []string
	Signals        map[string]any
	ScoreBreakdown json.RawMessage
	Analysis       json.RawMessage
	ImageURL       string
	ImageSource    string
	SourceURL      string
}
