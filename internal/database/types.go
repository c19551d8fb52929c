package database

import (
	"database/sql"
)

// CoachConfig represents per-user coach preferences
type CoachConfig struct {
	UserID          int64
	BatchSize       int
	ReminderHour    int
	ReminderEnabled bool
	CreatedAt       sql.NullTime
	UpdatedAt       sql.NullTime
}
