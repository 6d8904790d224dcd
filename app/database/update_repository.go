package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

var _ UpdateRepository = (*UpdateRepositoryImpl)(nil)

// UpdateRepositoryImpl handles database operations for regulatory updates
type UpdateRepositoryImpl struct {
	db *DB
}

func NewUpdateRepository(db *DB) *UpdateRepositoryImpl {
	return &UpdateRepositoryImpl{db: db}
}

// CheckDuplicate reports whether a candidate update collides with an
// existing row, either on its derived identifier or on the exact
// (title, authority) pair.
func (r *UpdateRepositoryImpl) CheckDuplicate(identifier, title, source string) (bool, DuplicateRule, error) {
	var existingIdentifier string
	err := r.db.QueryRow(`
		SELECT identifier FROM regulatory_updates
		WHERE identifier = ? OR (title = ? AND source = ?)
		LIMIT 1
	`, identifier, title, source).Scan(&existingIdentifier)

	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to check duplicate: %w", err)
	}

	if existingIdentifier == identifier {
		return true, DuplicateByIdentifier, nil
	}
	return true, DuplicateByTitleSource, nil
}

// InsertUpdate writes a regulatory update. The unique index on identifier is
// the actual duplicate constraint; a conflicting insert writes nothing and
// is reported via the returned bool, not as an error.
func (r *UpdateRepositoryImpl) InsertUpdate(update RegulatoryUpdate) (bool, error) {
	categories, err := json.Marshal(update.Categories)
	if err != nil {
		return false, fmt.Errorf("failed to encode categories: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO regulatory_updates (
			id, identifier, title, content, source, region, update_type,
			priority, published_at, categories, source_name, link
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identifier) DO NOTHING
	`, uuid.New().String(), update.Identifier, update.Title, update.Content,
		update.Source, update.Region, update.UpdateType, update.Priority,
		update.PublishedAt.UTC(), string(categories), update.SourceName, update.Link)

	if err != nil {
		return false, fmt.Errorf("failed to insert update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *UpdateRepositoryImpl) GetUpdateByIdentifier(identifier string) (*RegulatoryUpdate, error) {
	row := r.db.QueryRow(`
		SELECT id, identifier, title, content, source, region, update_type,
		       priority, published_at, categories, source_name, link, created_at
		FROM regulatory_updates
		WHERE identifier = ?
	`, identifier)

	update, err := scanUpdate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get update: %w", err)
	}

	return update, nil
}

// GetRecentUpdates returns updates newest-first, optionally narrowed by
// authority code and priority.
func (r *UpdateRepositoryImpl) GetRecentUpdates(authority, priority string, limit int) ([]RegulatoryUpdate, error) {
	query := `
		SELECT id, identifier, title, content, source, region, update_type,
		       priority, published_at, categories, source_name, link, created_at
		FROM regulatory_updates
		WHERE 1 = 1
	`
	args := []interface{}{}

	if authority != "" {
		query += " AND source = ?"
		args = append(args, authority)
	}
	if priority != "" {
		query += " AND priority = ?"
		args = append(args, priority)
	}

	query += " ORDER BY published_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent updates: %w", err)
	}
	defer rows.Close()

	var updates []RegulatoryUpdate
	for rows.Next() {
		update, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan update row: %w", err)
		}
		updates = append(updates, *update)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating update rows: %w", err)
	}

	return updates, nil
}

func (r *UpdateRepositoryImpl) GetUpdateCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM regulatory_updates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get update count: %w", err)
	}
	return count, nil
}

func (r *UpdateRepositoryImpl) GetUpdateCountsByPriority() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT priority, COUNT(*)
		FROM regulatory_updates
		GROUP BY priority
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get priority counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority count row: %w", err)
		}
		counts[priority] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating priority count rows: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUpdate(row rowScanner) (*RegulatoryUpdate, error) {
	var update RegulatoryUpdate
	var categories string

	err := row.Scan(
		&update.ID, &update.Identifier, &update.Title, &update.Content,
		&update.Source, &update.Region, &update.UpdateType, &update.Priority,
		&update.PublishedAt, &categories, &update.SourceName, &update.Link,
		&update.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categories), &update.Categories); err != nil {
		update.Categories = nil
	}

	return &update, nil
}
