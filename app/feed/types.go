package feed

import (
	"time"
)

type Metadata struct {
	Title         string
	Link          string
	Description   string
	Language      string
	LastBuildDate *time.Time
}

// Item is the transient in-memory shape of one feed entry. All text fields
// are sanitized (CDATA unwrapped, entities decoded, markup stripped); only
// the title is required.
type Item struct {
	Title       string
	Link        string
	Description string
	GUID        string
	Author      string
	Published   string     // raw date string as found in the feed
	PublishedAt *time.Time // set when the parser could resolve the date itself
	Categories  []string
}

type Document struct {
	FeedURL  string
	Metadata Metadata
	Items    []Item
}

// Stats summarizes one source's ingestion outcome within a pass.
type Stats struct {
	Total          int
	New            int
	Duplicates     int
	NearDuplicates int
	Failed         int
}
