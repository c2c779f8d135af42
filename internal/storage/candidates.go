package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cdb-lab/product-radar/internal/catalog"
)

// ListCandidates returns the staged, pre-scored candidates for a run
// date. The upstream discovery pipeline fills this table; the publisher
// only reads it.
func (db *DB) ListCandidates(ctx context.Context, runDate string) ([]catalog.Candidate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT title, category, score, tags, sources, signals, score_breakdown, analysis,
		       image_url, image_source, source_url
		FROM candidates
		WHERE run_date = $1
		ORDER BY score DESC
	`, toDate(runDate))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []catalog.Candidate

	for rows.Next() {
		var (
			c            catalog.Candidate
			score        int32
			signalsRaw   []byte
			breakdownRaw []byte
			analysisRaw  []byte
			imageURL     *string
			imageSource  *string
			sourceURL    *string
		)

		if err := rows.Scan(&c.Title, &c.Category, &score, &c.Tags, &c.Sources,
			&signalsRaw, &breakdownRaw, &analysisRaw,
			&imageURL, &imageSource, &sourceURL); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		c.Score = int(score)
		c.ScoreBreakdown = json.RawMessage(breakdownRaw)
		c.Analysis = json.RawMessage(analysisRaw)

		if len(signalsRaw) > 0 {
			if err := json.Unmarshal(signalsRaw, &c.Signals); err != nil {
				return nil, fmt.Errorf("decode candidate signals for %q: %w", c.Title, err)
			}
		}

		if imageURL != nil {
			c.ImageURL = *imageURL
		}

		if imageSource != nil {
			c.ImageSource = *imageSource
		}

		if sourceURL != nil {
			c.SourceURL = *sourceURL
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates rows: %w", err)
	}

	return candidates, nil
}
