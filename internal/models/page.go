package models

import "time"

// Page is a row in the pages table. Pages are provisioned by the seeder and
// are read-only to the application.
type Page struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Language    string    `json:"language"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"last_updated"`
}

// SearchLog is an append-only audit record of a submitted search query.
type SearchLog struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}
