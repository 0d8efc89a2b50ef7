package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// seedPage is the shape of one entry in the pages JSON dump.
type seedPage struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Language    string `json:"language"`
	Content     string `json:"content"`
	LastUpdated string `json:"last_updated"`
}

// SeedPages loads the pages table from a JSON dump. Already-present pages
// (matched on url) are skipped, so re-running the seeder is harmless.
func (s *Store) SeedPages(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("seed pages: read %s: %w", path, err)
	}

	var pages []seedPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return 0, fmt.Errorf("seed pages: parse %s: %w", path, err)
	}

	inserted := 0
	for _, p := range pages {
		lastUpdated, err := time.Parse("2006-01-02 15:04:05", p.LastUpdated)
		if err != nil {
			return inserted, fmt.Errorf("seed pages: bad last_updated for %q: %w", p.Title, err)
		}
		language := p.Language
		if language == "" {
			language = "en"
		}
		tag, err := s.db.Exec(ctx,
			`INSERT INTO pages (title, url, language, content, last_updated)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (url) DO NOTHING`,
			p.Title, p.URL, language, p.Content, lastUpdated,
		)
		if err != nil {
			return inserted, fmt.Errorf("seed pages: insert %q: %w", p.Title, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
