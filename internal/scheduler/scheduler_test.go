package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srgulbay/mikrocoach/internal/database"
)

func TestShouldRemindDefaultsToOneHourPerDay(t *testing.T) {
	// No stored preferences: only the default hour fires
	assert.True(t, shouldRemind(nil, DefaultReminderHour))
	for hour := 0; hour < 24; hour++ {
		if hour == DefaultReminderHour {
			continue
		}
		assert.False(t, shouldRemind(nil, hour), "hour %d must not fire without preferences", hour)
	}
}

func TestShouldRemindHonorsPreferences(t *testing.T) {
	enabled := &database.CoachConfig{UserID: 1, ReminderHour: 17, ReminderEnabled: true}
	assert.True(t, shouldRemind(enabled, 17))
	assert.False(t, shouldRemind(enabled, 9))

	disabled := &database.CoachConfig{UserID: 1, ReminderHour: 17, ReminderEnabled: false}
	assert.False(t, shouldRemind(disabled, 17))
}
