package models

import "time"

// ItemType identifies the kind of learning item behind an SRS entry.
// Scheduling never depends on the concrete type; it only picks the
// resolver and the inline-vs-detour presentation rule.
type ItemType string

const (
	ItemTypeFlashcard    ItemType = "flashcard"
	ItemTypeQuestion     ItemType = "question"
	ItemTypeTopicSummary ItemType = "topic_summary"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeFlashcard, ItemTypeQuestion, ItemTypeTopicSummary:
		return true
	}
	return false
}

// RequiresDetour reports whether reviewing this item type requires
// leaving the session view for an external one. Flashcards are answered
// inline; questions open the quiz solver and topic summaries the reader.
func (t ItemType) RequiresDetour() bool {
	return t == ItemTypeQuestion || t == ItemTypeTopicSummary
}

// SrsEntry is one row of scheduling state: which box an item sits in for
// a user and when it should be reviewed next. Exactly one entry exists
// per (user, item type, item id).
type SrsEntry struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	ItemType       ItemType   `json:"item_type" db:"item_type"`
	ItemID         int64      `json:"item_id" db:"item_id"`
	BoxNumber      int        `json:"box_number" db:"box_number"`
	LastReviewedAt *time.Time `json:"last_reviewed_at" db:"last_reviewed_at"`
	NextReviewAt   *time.Time `json:"next_review_at" db:"next_review_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Due reports whether the entry is eligible for review at the given
// time. A nil NextReviewAt means the entry has never been reviewed and
// is always due.
func (e *SrsEntry) Due(now time.Time) bool {
	return e.NextReviewAt == nil || !e.NextReviewAt.After(now)
}
