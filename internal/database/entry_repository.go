package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

// ErrEntryNotFound is returned when an SRS entry does not exist.
var ErrEntryNotFound = errors.New("srs entry not found")

// EntryRepository handles database operations for SRS entries. It owns
// all scheduling state: entries are created once per (user, item) pair
// and mutated only through UpdateScheduling.
type EntryRepository struct{}

// NewEntryRepository creates a new repository instance
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{}
}

// GetByID returns a single entry by its ID
func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*models.SrsEntry, error) {
	var entry models.SrsEntry
	query := DB.Rebind("SELECT * FROM srs_entries WHERE id = ?")
	err := DB.GetContext(ctx, &entry, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get srs entry %d: %v", id, err)
	}
	return &entry, nil
}

// GetByUserItem returns the entry for a specific (user, item) pair
func (r *EntryRepository) GetByUserItem(ctx context.Context, userID int64, itemType models.ItemType, itemID int64) (*models.SrsEntry, error) {
	var entry models.SrsEntry
	query := DB.Rebind("SELECT * FROM srs_entries WHERE user_id = ? AND item_type = ? AND item_id = ?")
	err := DB.GetContext(ctx, &entry, query, userID, itemType, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get srs entry for item: %v", err)
	}
	return &entry, nil
}

// Upsert creates an entry at box 1, due now, if none exists for the
// (user, item) pair. If one exists it is returned unchanged: re-adding a
// tracked item must not reset prior progress. The boolean reports
// whether a new row was created.
func (r *EntryRepository) Upsert(ctx context.Context, userID int64, itemType models.ItemType, itemID int64, now time.Time) (*models.SrsEntry, bool, error) {
	existing, err := r.GetByUserItem(ctx, userID, itemType, itemID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, false, err
	}

	if DriverType() == "postgres" {
		query := `
			INSERT INTO srs_entries (user_id, item_type, item_id, box_number, next_review_at)
			VALUES ($1, $2, $3, 1, $4)
			RETURNING id
		`
		var id int64
		if err := DB.QueryRowContext(ctx, query, userID, itemType, itemID, now).Scan(&id); err != nil {
			return nil, false, fmt.Errorf("failed to create srs entry: %v", err)
		}
		entry, err := r.GetByID(ctx, id)
		return entry, true, err
	}

	// SQLite doesn't support RETURNING on older versions, fetch by last insert ID
	result, err := DB.ExecContext(ctx, `
		INSERT INTO srs_entries (user_id, item_type, item_id, box_number, next_review_at)
		VALUES (?, ?, ?, 1, ?)
	`, userID, itemType, itemID, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create srs entry: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get last insert ID: %v", err)
	}
	entry, err := r.GetByID(ctx, id)
	return entry, true, err
}

// UpdateScheduling persists the outcome of a verdict. Box number and
// both timestamps change together in a single statement or not at all.
func (r *EntryRepository) UpdateScheduling(ctx context.Context, entry *models.SrsEntry) error {
	query := DB.Rebind(`
		UPDATE srs_entries SET
			box_number = ?,
			last_reviewed_at = ?,
			next_review_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	result, err := DB.ExecContext(ctx, query,
		entry.BoxNumber,
		entry.LastReviewedAt,
		entry.NextReviewAt,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update srs entry %d: %v", entry.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// SelectDue returns the entries eligible for review: never reviewed or
// past their next review time, mastered boxes excluded. Ordered by next
// review time ascending with never-reviewed entries first, ties broken
// by ID so batches are deterministic.
func (r *EntryRepository) SelectDue(ctx context.Context, userID int64, filter models.ItemType, limit int, now time.Time, maxBox int) ([]models.SrsEntry, error) {
	query := `
		SELECT * FROM srs_entries
		WHERE user_id = ?
		AND box_number < ?
		AND (next_review_at IS NULL OR next_review_at <= ?)
	`
	args := []interface{}{userID, maxBox, now}
	if filter != "" {
		query += " AND item_type = ?"
		args = append(args, filter)
	}
	query += `
		ORDER BY CASE WHEN next_review_at IS NULL THEN 0 ELSE 1 END,
			next_review_at ASC, id ASC
		LIMIT ?
	`
	args = append(args, limit)

	var entries []models.SrsEntry
	err := DB.SelectContext(ctx, &entries, DB.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select due entries: %v", err)
	}
	return entries, nil
}

// Summary returns the aggregate coach statistics for a user
func (r *EntryRepository) Summary(ctx context.Context, userID int64, now time.Time, maxBox int) (*models.CoachSummary, error) {
	summary := &models.CoachSummary{
		UserID:          userID,
		DueCountsByType: make(map[models.ItemType]int),
		CountsByBox:     make(map[int]int),
	}

	// Total tracked entries
	err := DB.GetContext(ctx, &summary.TotalTracked,
		DB.Rebind("SELECT COUNT(*) FROM srs_entries WHERE user_id = ?"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tracked entries: %v", err)
	}

	// Mastered entries: reached the top box
	err = DB.GetContext(ctx, &summary.MasteredCount,
		DB.Rebind("SELECT COUNT(*) FROM srs_entries WHERE user_id = ? AND box_number >= ?"), userID, maxBox)
	if err != nil {
		return nil, fmt.Errorf("failed to count mastered entries: %v", err)
	}

	// Due counts grouped by item type
	typeRows, err := DB.QueryxContext(ctx, DB.Rebind(`
		SELECT item_type, COUNT(*) FROM srs_entries
		WHERE user_id = ?
		AND box_number < ?
		AND (next_review_at IS NULL OR next_review_at <= ?)
		GROUP BY item_type
	`), userID, maxBox, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count due entries by type: %v", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var itemType models.ItemType
		var count int
		if err := typeRows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan due count row: %v", err)
		}
		summary.DueCountsByType[itemType] = count
	}

	// Counts grouped by box
	boxRows, err := DB.QueryxContext(ctx, DB.Rebind(`
		SELECT box_number, COUNT(*) FROM srs_entries
		WHERE user_id = ?
		GROUP BY box_number
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries by box: %v", err)
	}
	defer boxRows.Close()
	for boxRows.Next() {
		var box, count int
		if err := boxRows.Scan(&box, &count); err != nil {
			return nil, fmt.Errorf("failed to scan box count row: %v", err)
		}
		summary.CountsByBox[box] = count
	}

	return summary, nil
}

// DueUserIDs returns the users who currently have at least one due entry
func (r *EntryRepository) DueUserIDs(ctx context.Context, now time.Time, maxBox int) ([]int64, error) {
	var userIDs []int64
	err := DB.SelectContext(ctx, &userIDs, DB.Rebind(`
		SELECT DISTINCT user_id FROM srs_entries
		WHERE box_number < ?
		AND (next_review_at IS NULL OR next_review_at <= ?)
	`), maxBox, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get users with due entries: %v", err)
	}
	return userIDs, nil
}

// DueCountForUser returns how many entries are currently due for a user
func (r *EntryRepository) DueCountForUser(ctx context.Context, userID int64, now time.Time, maxBox int) (int, error) {
	var count int
	err := DB.GetContext(ctx, &count, DB.Rebind(`
		SELECT COUNT(*) FROM srs_entries
		WHERE user_id = ?
		AND box_number < ?
		AND (next_review_at IS NULL OR next_review_at <= ?)
	`), userID, maxBox, now)
	if err != nil {
		return 0, fmt.Errorf("failed to count due entries: %v", err)
	}
	return count, nil
}
