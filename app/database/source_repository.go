package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ SourceRepository = (*SourceRepositoryImpl)(nil)

// SourceRepositoryImpl handles database operations for registered sources
type SourceRepositoryImpl struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepositoryImpl {
	return &SourceRepositoryImpl{db: db}
}

// UpsertSource registers a source from the registry, updating the stored
// definition when it already exists. Returns the database ID.
func (r *SourceRepositoryImpl) UpsertSource(name, url, authority, region, updateType string, active bool) (string, error) {
	existing, err := r.GetSource(name)
	if err != nil {
		return "", fmt.Errorf("failed to check existing source: %w", err)
	}

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE sources
			SET url = ?, authority = ?, region = ?, update_type = ?, active = ?, updated_at = CURRENT_TIMESTAMP
			WHERE name = ?
		`, url, authority, region, updateType, active, name)
		if err != nil {
			return "", fmt.Errorf("failed to update source: %w", err)
		}
		return existing.ID, nil
	}

	id := uuid.New().String()
	_, err = r.db.Exec(`
		INSERT INTO sources (id, name, url, authority, region, update_type, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, name, url, authority, region, updateType, active)
	if err != nil {
		return "", fmt.Errorf("failed to insert source: %w", err)
	}

	return id, nil
}

func (r *SourceRepositoryImpl) GetSource(sourceName string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT id, name, url, authority, region, update_type, active,
		       last_checked_at, feed_title, feed_language, feed_last_build_at,
		       created_at, updated_at
		FROM sources
		WHERE name = ?
	`, sourceName).Scan(
		&source.ID, &source.Name, &source.URL, &source.Authority, &source.Region,
		&source.UpdateType, &source.Active, &source.LastCheckedAt,
		&source.FeedTitle, &source.FeedLanguage, &source.FeedLastBuildAt,
		&source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// UpdateLastChecked records the completion of a poll attempt for a source,
// whether or not any items were accepted.
func (r *SourceRepositoryImpl) UpdateLastChecked(sourceName string, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, checkedAt.UTC(), sourceName)

	if err != nil {
		return fmt.Errorf("failed to update last checked time: %w", err)
	}

	return nil
}

// UpdateFeedMetadata records the feed-declared title, language and last
// build time after a successful parse. A nil lastBuildAt clears the column.
func (r *SourceRepositoryImpl) UpdateFeedMetadata(sourceName, feedTitle, feedLanguage string, lastBuildAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET feed_title = ?, feed_language = ?, feed_last_build_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, feedTitle, feedLanguage, lastBuildAt, sourceName)

	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

func (r *SourceRepositoryImpl) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *SourceRepositoryImpl) GetActiveSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources WHERE active = 1").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active source count: %w", err)
	}
	return count, nil
}
