package database

import (
	"time"
)

// DuplicateRule reports which duplicate check matched a candidate update.
type DuplicateRule string

const (
	// DuplicateByIdentifier: an existing row carries the same derived identifier.
	DuplicateByIdentifier DuplicateRule = "identifier"
	// DuplicateByTitleSource: an existing row shares the exact (title, authority)
	// pair even though the identifiers differ. Heuristic, not a constraint.
	DuplicateByTitleSource DuplicateRule = "title_source"
)

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSourceCount() (int, error)
	GetActiveSourceCount() (int, error)

	UpsertSource(name, url, authority, region, updateType string, active bool) (string, error)
	UpdateLastChecked(sourceName string, checkedAt time.Time) error

	// UpdateFeedMetadata stores what the feed declared about itself on its
	// last successful parse.
	UpdateFeedMetadata(sourceName, feedTitle, feedLanguage string, lastBuildAt *time.Time) error
}

type UpdateRepository interface {
	GetUpdateByIdentifier(identifier string) (*RegulatoryUpdate, error)
	GetRecentUpdates(authority, priority string, limit int) ([]RegulatoryUpdate, error)
	GetUpdateCount() (int, error)
	GetUpdateCountsByPriority() (map[string]int, error)

	// InsertUpdate writes the update unless a row with the same identifier
	// already exists; the bool reports whether a row was actually written.
	InsertUpdate(update RegulatoryUpdate) (bool, error)

	CheckDuplicate(identifier, title, source string) (bool, DuplicateRule, error)
}
