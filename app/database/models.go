package database

import (
	"time"
)

type Source struct {
	ID            string // Database UUID
	Name          string // Registry source identifier derived from filename
	URL           string // RSS/Atom feed URL from the registry
	Authority     string // Authority code, e.g. "FDA"
	Region        string
	UpdateType    string
	Active        bool
	LastCheckedAt *time.Time

	// Feed-declared metadata captured from the last successful parse
	FeedTitle       string
	FeedLanguage    string // BCP 47 canonical form when the feed tag parses
	FeedLastBuildAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegulatoryUpdate is the persisted representation of one ingested feed
// item. Rows are written once on first sight of an item and never updated
// by the ingestion pipeline; re-ingestion of the same identifier is a skip.
type RegulatoryUpdate struct {
	ID          string
	Identifier  string // Stable per logical source item, unique
	Title       string
	Content     string
	Source      string // Authority code of the originating source
	Region      string
	UpdateType  string
	Priority    string // low, medium, high, critical
	PublishedAt time.Time
	Categories  []string
	SourceName  string // Registry name of the originating source
	Link        string
	CreatedAt   time.Time
}
