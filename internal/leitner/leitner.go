package leitner

import (
	"time"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

// Config holds the box ladder used by the coach. Correct answers move an
// entry one box up, wrong answers send it back to box 1. An entry that
// reaches MaxBox is considered mastered and leaves active scheduling.
type Config struct {
	// Number of boxes; box MaxBox is the mastered state
	MaxBox int
	// Review delay after an entry lands in box i+1. Must be strictly
	// increasing so higher boxes are reviewed less often.
	Intervals []time.Duration
}

// DefaultConfig returns the box ladder used in production
func DefaultConfig() *Config {
	return &Config{
		MaxBox: 5,
		Intervals: []time.Duration{
			10 * time.Minute,
			24 * time.Hour,
			3 * 24 * time.Hour,
			7 * 24 * time.Hour,
			21 * 24 * time.Hour,
		},
	}
}

// Interval returns the review delay for an entry sitting in the given box
func (c *Config) Interval(box int) time.Duration {
	if box < 1 {
		box = 1
	}
	if box > len(c.Intervals) {
		box = len(c.Intervals)
	}
	return c.Intervals[box-1]
}

// Process applies a correctness verdict to an entry: promotion capped at
// MaxBox on success, full demotion to box 1 on failure. It updates the
// entry in place and has no side effects beyond it; persisting the
// result is the caller's job.
func (c *Config) Process(entry *models.SrsEntry, wasCorrect bool, now time.Time) {
	if wasCorrect {
		if entry.BoxNumber < c.MaxBox {
			entry.BoxNumber++
		}
	} else {
		entry.BoxNumber = 1
	}

	next := now.Add(c.Interval(entry.BoxNumber))
	last := now
	entry.NextReviewAt = &next
	entry.LastReviewedAt = &last
}

// IsMastered reports whether the entry has reached the top box
func (c *Config) IsMastered(entry *models.SrsEntry) bool {
	return entry.BoxNumber >= c.MaxBox
}
