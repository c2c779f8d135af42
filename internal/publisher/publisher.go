// Package publisher assembles the weekly product selection: staged
// candidates are merged, capped for category diversity, truncated to
// the weekly top-N and published as the current run.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/cdb-lab/product-radar/internal/catalog"
	db "github.com/cdb-lab/product-radar/internal/storage"
)

// fallbackTagCount caps the number of tags derived from a slug.
const fallbackTagCount = 4

// Store is the persistence surface the publisher drives.
type Store interface {
	ListCandidates(ctx context.Context, runDate string) ([]catalog.Candidate, error)
	UpsertProducts(ctx context.Context, rows []db.ProductRow) error
	SetSetting(ctx context.Context, key string, value any) error
	InsertRunLog(ctx context.Context, runDate, status string, stats, errs map[string]any) error
	PruneConsumedCodes(ctx context.Context, before time.Time) error
}

// Options bound the weekly selection.
type Options struct {
	TopN           int
	MaxPerCategory int
}

// Publisher runs the weekly publish step.
type Publisher struct {
	store  Store
	opts   Options
	logger *zerolog.Logger
}

// New creates a publisher.
func New(store Store, opts Options, logger *zerolog.Logger) *Publisher {
	return &Publisher{store: store, opts: opts, logger: logger}
}

// ResolveRunDate normalizes a run-date argument. An empty value means
// today; anything else is parsed leniently so operators can pass
// "2026-08-23" as well as "Aug 23, 2026".
func ResolveRunDate(raw string, now time.Time) (string, error) {
	if raw == "" {
		return now.UTC().Format(db.DateLayout), nil
	}

	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return "", fmt.Errorf("parse run date %q: %w", raw, err)
	}

	return parsed.Format(db.DateLayout), nil
}

// Run publishes the selection for runDate. The run log records success
// or failure either way; a failed run leaves the previous published
// week untouched because current_run_date only moves on success.
func (p *Publisher) Run(ctx context.Context, runDate string) error {
	if err := p.run(ctx, runDate); err != nil {
		if logErr := p.store.InsertRunLog(ctx, runDate, db.RunStatusFail, nil,
			map[string]any{"error": err.Error()}); logErr != nil {
			p.logger.Error().Err(logErr).Msg("recording failed run")
		}

		return err
	}

	return nil
}

func (p *Publisher) run(ctx context.Context, runDate string) error {
	candidates, err := p.store.ListCandidates(ctx, runDate)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		return fmt.Errorf("no candidates staged for run %s", runDate)
	}

	merged := MergeCandidates(candidates)
	diversified := ApplyCategoryDiversity(merged, p.opts.MaxPerCategory)

	selected := diversified
	if p.opts.TopN > 0 && len(selected) > p.opts.TopN {
		selected = selected[:p.opts.TopN]
	}

	rows := make([]db.ProductRow, 0, len(selected))
	publishedAt := time.Now()

	for _, c := range selected {
		rows = append(rows, p.buildRow(c, runDate, publishedAt))
	}

	if err := p.store.UpsertProducts(ctx, rows); err != nil {
		return err
	}

	if err := p.store.SetSetting(ctx, db.SettingCurrentRunDate, runDate); err != nil {
		return err
	}

	stats := map[string]any{
		"candidates": len(candidates),
		"merged":     len(merged),
		"published":  len(rows),
	}

	if err := p.store.InsertRunLog(ctx, runDate, db.RunStatusSuccess, stats, nil); err != nil {
		return err
	}

	p.logger.Info().
		Str("run_date", runDate).
		Int("candidates", len(candidates)).
		Int("published", len(rows)).
		Msg("weekly selection published")

	// Weekly housekeeping: guards for sign-in codes that expired long
	// ago are dead weight, the signature check alone rejects the codes.
	if err := p.store.PruneConsumedCodes(ctx, time.Now()); err != nil {
		p.logger.Warn().Err(err).Msg("pruning consumed login codes")
	}

	return nil
}

func (p *Publisher) buildRow(c catalog.Candidate, runDate string, publishedAt time.Time) db.ProductRow {
	slug := Slugify(c.Title)

	category := c.Category
	if category == "" {
		category = catalog.FallbackCategory
	}

	tags := c.Tags
	if len(tags) == 0 {
		tags = TagsFromSlug(slug, fallbackTagCount)
	}

	return db.ProductRow{
		RunDate:        runDate,
		Title:          c.Title,
		Slug:           slug,
		Category:       category,
		Score:          c.Score,
		Tags:           tags,
		Sources:        c.Sources,
		Summary:        summaryFromAnalysis(c.Analysis),
		Signals:        c.Signals,
		ScoreBreakdown: c.ScoreBreakdown,
		Analysis:       c.Analysis,
		ImageURL:       c.ImageURL,
		ImageSource:    c.ImageSource,
		SourceURL:      c.SourceURL,
		PublishedAt:    publishedAt,
	}
}

// summaryFromAnalysis pulls the positioning promise out of the analysis
// document. A candidate without one publishes with an empty summary.
func summaryFromAnalysis(raw json.RawMessage) string {
	analysis, err := catalog.ParseAnalysis(raw)
	if err != nil {
		return ""
	}

	return analysis.MainPromise()
}
