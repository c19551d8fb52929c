package models

// CoachSummary is the read-only aggregate shown on the coach dashboard.
type CoachSummary struct {
	UserID          int64            `json:"user_id"`
	DueCountsByType map[ItemType]int `json:"due_counts_by_type"`
	MasteredCount   int              `json:"mastered_count"`
	TotalTracked    int              `json:"total_tracked"`
	CountsByBox     map[int]int      `json:"counts_by_box"`
}
