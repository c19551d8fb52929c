package database

import (
	"context"
	"database/sql"
	"time"
)

// GetCoachConfig retrieves a user's coach preferences, or nil if the
// user has never customized them.
func GetCoachConfig(ctx context.Context, userID int64) (*CoachConfig, error) {
	query := DB.Rebind(`
		SELECT user_id, batch_size, reminder_hour, reminder_enabled, created_at, updated_at
		FROM coach_configs
		WHERE user_id = ?
	`)

	config := &CoachConfig{}
	err := DB.QueryRowContext(ctx, query, userID).Scan(
		&config.UserID,
		&config.BatchSize,
		&config.ReminderHour,
		&config.ReminderEnabled,
		&config.CreatedAt,
		&config.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return config, nil
}

// SaveCoachConfig creates or updates a user's coach preferences
func SaveCoachConfig(ctx context.Context, config *CoachConfig) error {
	existing, err := GetCoachConfig(ctx, config.UserID)
	if err != nil {
		return err
	}

	if existing == nil {
		query := DB.Rebind(`
			INSERT INTO coach_configs (user_id, batch_size, reminder_hour, reminder_enabled)
			VALUES (?, ?, ?, ?)
		`)
		_, err = DB.ExecContext(ctx, query,
			config.UserID,
			config.BatchSize,
			config.ReminderHour,
			config.ReminderEnabled,
		)
		return err
	}

	query := DB.Rebind(`
		UPDATE coach_configs
		SET batch_size = ?, reminder_hour = ?, reminder_enabled = ?, updated_at = ?
		WHERE user_id = ?
	`)
	_, err = DB.ExecContext(ctx, query,
		config.BatchSize,
		config.ReminderHour,
		config.ReminderEnabled,
		time.Now(),
		config.UserID,
	)
	return err
}
