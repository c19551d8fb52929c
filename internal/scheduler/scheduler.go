package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/srgulbay/mikrocoach/internal/database"
	"github.com/srgulbay/mikrocoach/internal/leitner"
)

// Default notification window
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// DefaultReminderHour is used for users without stored preferences,
// matching the coach_configs column default.
const DefaultReminderHour = 9

// Notifier delivers a due-items reminder. Delivery itself is an
// external concern; the scheduler only decides who to remind and when.
type Notifier interface {
	SendReminder(userID int64, dueCount int) error
}

// LogNotifier is the default notifier: it only logs
type LogNotifier struct{}

// SendReminder implements Notifier
func (LogNotifier) SendReminder(userID int64, dueCount int) error {
	log.Printf("User %d has %d items due for review", userID, dueCount)
	return nil
}

// Scheduler manages scheduled tasks for the coach
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	entries   *database.EntryRepository
	boxes     *leitner.Config
}

// New creates a new scheduler instance
func New(notifier Notifier, boxes *leitner.Config) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		notifier:  notifier,
		entries:   database.NewEntryRepository(),
		boxes:     boxes,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Hourly check for users with due reviews
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders finds users with due entries and reminds them
func (s *Scheduler) checkAndSendReminders() {
	currentHour := time.Now().Hour()

	startHour := DefaultNotificationStartHour
	endHour := DefaultNotificationEndHour

	if startHourStr := os.Getenv("NOTIFICATION_START_HOUR"); startHourStr != "" {
		if h, err := strconv.Atoi(startHourStr); err == nil && h >= 0 && h <= 23 {
			startHour = h
		}
	}
	if endHourStr := os.Getenv("NOTIFICATION_END_HOUR"); endHourStr != "" {
		if h, err := strconv.Atoi(endHourStr); err == nil && h >= 0 && h <= 23 {
			endHour = h
		}
	}

	if currentHour < startHour || currentHour > endHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, startHour, endHour)
		return
	}

	ctx := context.Background()
	now := time.Now()

	userIDs, err := s.entries.DueUserIDs(ctx, now, s.boxes.MaxBox)
	if err != nil {
		log.Printf("Error getting users with due entries: %v", err)
		return
	}

	for _, userID := range userIDs {
		config, err := database.GetCoachConfig(ctx, userID)
		if err != nil {
			log.Printf("Error getting coach config for user %d: %v", userID, err)
			continue
		}
		if !shouldRemind(config, currentHour) {
			continue
		}

		dueCount, err := s.entries.DueCountForUser(ctx, userID, now, s.boxes.MaxBox)
		if err != nil {
			log.Printf("Error counting due entries for user %d: %v", userID, err)
			continue
		}
		if dueCount == 0 {
			continue
		}

		if err := s.notifier.SendReminder(userID, dueCount); err != nil {
			log.Printf("Error sending reminder to user %d: %v", userID, err)
		}
	}
}

// shouldRemind decides whether a user gets a reminder on this tick.
// Users without stored preferences fall back to DefaultReminderHour, so
// every user is reminded at most once per day.
func shouldRemind(config *database.CoachConfig, currentHour int) bool {
	hour := DefaultReminderHour
	if config != nil {
		if !config.ReminderEnabled {
			return false
		}
		hour = config.ReminderHour
	}
	return hour == currentHour
}

// RunManualCheck forces a reminder check for a specific user
func (s *Scheduler) RunManualCheck(userID int64) error {
	ctx := context.Background()

	dueCount, err := s.entries.DueCountForUser(ctx, userID, time.Now(), s.boxes.MaxBox)
	if err != nil {
		return err
	}

	if dueCount > 0 {
		return s.notifier.SendReminder(userID, dueCount)
	}
	return nil
}
