package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

// Audience selects the row-visibility window applied to product reads.
// The query shape is identical for both audiences; only the window
// differs, like row-level security in the original store.
type Audience int

const (
	// AudiencePublic sees published, non-hidden products of the current
	// run only (the teaser window).
	AudiencePublic Audience = iota
	// AudienceMember sees published, non-hidden products of the
	// trailing two-week history.
	AudienceMember
)

// memberHistoryDays is the authenticated history window.
const memberHistoryDays = 14

const productListColumns = `id, run_date, title, slug, category, score, tags, sources, summary, image_url, image_source, source_url`

func visibilityPredicate(audience Audience) string {
	if audience == AudiencePublic {
		return `p.published_at IS NOT NULL
		  AND NOT p.is_hidden
		  AND p.run_date = (SELECT (value->>'v')::date FROM settings WHERE key = 'current_run_date')`
	}

	return fmt.Sprintf(`p.published_at IS NOT NULL
	  AND NOT p.is_hidden
	  AND p.run_date >= CURRENT_DATE - INTERVAL '%d days'`, memberHistoryDays)
}

// ListTopProducts returns up to limit visible products sorted by score
// descending. When runDate is non-empty the result is additionally
// scoped to that run; an empty runDate returns the unscoped
// (visibility-limited) set.
func (db *DB) ListTopProducts(ctx context.Context, audience Audience, runDate string, limit int) ([]catalog.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE %s
		ORDER BY score DESC
		LIMIT $1
	`, productListColumns, visibilityPredicate(audience))
	args := []any{safeIntToInt32(limit)}

	if runDate != "" {
		query = fmt.Sprintf(`
			SELECT %s
			FROM products p
			WHERE %s
			  AND p.run_date = $2
			ORDER BY score DESC
			LIMIT $1
		`, productListColumns, visibilityPredicate(audience))
		args = append(args, toDate(runDate))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list top products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, limit)

	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list top products rows: %w", err)
	}

	return products, nil
}

// GetProductBySlug returns the visible product addressed by slug, or
// nil when no row matches. Not-found is a first-class state, not an
// error.
func (db *DB) GetProductBySlug(ctx context.Context, audience Audience, slug string) (*catalog.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s, analysis
		FROM products p
		WHERE %s
		  AND p.slug = $1
	`, productListColumns, visibilityPredicate(audience))

	row := db.Pool.QueryRow(ctx, query, slug)

	var (
		id                 pgtype.UUID
		runDate            pgtype.Date
		title, slugCol     pgtype.Text
		category           pgtype.Text
		score              int32
		tags, sources      []string
		summary            pgtype.Text
		imageURL, imageSrc pgtype.Text
		sourceURL          pgtype.Text
		analysisRaw        []byte
	)

	err := row.Scan(&id, &runDate, &title, &slugCol, &category, &score, &tags, &sources,
		&summary, &imageURL, &imageSrc, &sourceURL, &analysisRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	analysis, err := catalog.ParseAnalysis(analysisRaw)
	if err != nil {
		// A malformed analysis document degrades to the placeholder
		// rendering instead of failing the whole page.
		db.Logger.Warn().Err(err).Str("slug", slug).Msg("invalid analysis document")

		analysis = nil
	}

	product := catalog.Product{
		ID:          fromUUID(id),
		RunDate:     fromDate(runDate),
		Title:       fromText(title),
		Slug:        fromText(slugCol),
		Category:    fromText(category),
		Score:       int(score),
		Tags:        tags,
		Sources:     sources,
		Summary:     fromText(summary),
		ImageURL:    fromText(imageURL),
		ImageSource: fromText(imageSrc),
		SourceURL:   fromText(sourceURL),
		Analysis:    analysis,
	}

	return &product, nil
}

type productScanner interface {
	Scan(dest ...any) error
}

func scanProductRow(row productScanner) (catalog.Product, error) {
	var (
		id                 pgtype.UUID
		runDate            pgtype.Date
		title, slug        pgtype.Text
		category           pgtype.Text
		score              int32
		tags, sources      []string
		summary            pgtype.Text
		imageURL, imageSrc pgtype.Text
		sourceURL          pgtype.Text
	)

	if err := row.Scan(&id, &runDate, &title, &slug, &category, &score, &tags, &sources,
		&summary, &imageURL, &imageSrc, &sourceURL); err != nil {
		return catalog.Product{}, err
	}

	return catalog.Product{
		ID:          fromUUID(id),
		RunDate:     fromDate(runDate),
		Title:       fromText(title),
		Slug:        fromText(slug),
		Category:    fromText(category),
		Score:       int(score),
		Tags:        tags,
		Sources:     sources,
		Summary:     fromText(summary),
		ImageURL:    fromText(imageURL),
		ImageSource: fromText(imageSrc),
		SourceURL:   fromText(sourceURL),
	}, nil
}

// ProductRow is one publishable product as written by the publisher.
type ProductRow struct {
	RunDate        string
	Title          string
	Slug           string
	Category       string
	Score          int
	Tags           []string
	Sources        []string
	Summary        string
	Signals        map[string]any
	ScoreBreakdown json.RawMessage
	Analysis       json.RawMessage
	ImageURL       string
	ImageSource    string
	SourceURL      string
	IsHidden       bool
	PublishedAt    time.Time
}

// UpsertProducts inserts or replaces products keyed by slug.
func (db *DB) UpsertProducts(ctx context.Context, rows []ProductRow) error {
	for _, r := range rows {
		signalsJSON, err := json.Marshal(r.Signals)
		if err != nil {
			return fmt.Errorf("marshal signals for %q: %w", r.Slug, err)
		}

		_, err = db.Pool.Exec(ctx, `
			INSERT INTO products (
				id, run_date, title, slug, category, score, tags, sources, summary,
				signals, score_breakdown, analysis,
				image_url, image_source, source_url, is_hidden, published_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (slug) DO UPDATE SET
				run_date = EXCLUDED.run_date,
				title = EXCLUDED.title,
				category = EXCLUDED.category,
				score = EXCLUDED.score,
				tags = EXCLUDED.tags,
				sources = EXCLUDED.sources,
				summary = EXCLUDED.summary,
				signals = EXCLUDED.signals,
				score_breakdown = EXCLUDED.score_breakdown,
				analysis = EXCLUDED.analysis,
				image_url = EXCLUDED.image_url,
				image_source = EXCLUDED.image_source,
				source_url = EXCLUDED.source_url,
				is_hidden = EXCLUDED.is_hidden,
				published_at = EXCLUDED.published_at
		`,
			toUUID(uuid.NewString()),
			toDate(r.RunDate),
			r.Title,
			r.Slug,
			r.Category,
			safeIntToInt32(r.Score),
			r.Tags,
			r.Sources,
			toText(r.Summary),
			signalsJSON,
			nullableJSON(r.ScoreBreakdown),
			nullableJSON(r.Analysis),
			toText(r.ImageURL),
			toText(r.ImageSource),
			toText(r.SourceURL),
			r.IsHidden,
			toTimestamptz(r.PublishedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", r.Slug, err)
		}
	}

	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return []byte(raw)
}
