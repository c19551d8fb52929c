// Package coach wires the box ledger, the Leitner algorithm and the
// item registry into the operations the review UI consumes.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/srgulbay/mikrocoach/internal/database"
	"github.com/srgulbay/mikrocoach/internal/leitner"
	"github.com/srgulbay/mikrocoach/internal/registry"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// ErrEntryNotFound is returned when a verdict references a nonexistent
// entry. Non-fatal for a session: the caller advances past it.
var ErrEntryNotFound = database.ErrEntryNotFound

// DefaultBatchSize bounds a review batch when the user has no
// preference stored.
const DefaultBatchSize = 10

// ledger is the slice of the entry repository the service needs
type ledger interface {
	Upsert(ctx context.Context, userID int64, itemType models.ItemType, itemID int64, now time.Time) (*models.SrsEntry, bool, error)
	GetByID(ctx context.Context, id int64) (*models.SrsEntry, error)
	UpdateScheduling(ctx context.Context, entry *models.SrsEntry) error
	SelectDue(ctx context.Context, userID int64, filter models.ItemType, limit int, now time.Time, maxBox int) ([]models.SrsEntry, error)
	Summary(ctx context.Context, userID int64, now time.Time, maxBox int) (*models.CoachSummary, error)
}

// Service exposes the coach operations
type Service struct {
	entries  ledger
	resolver registry.Resolver
	boxes    *leitner.Config
}

// New creates a coach service over the shared database connection
func New(resolver registry.Resolver, boxes *leitner.Config) *Service {
	return &Service{
		entries:  database.NewEntryRepository(),
		resolver: resolver,
		boxes:    boxes,
	}
}

// NewWithLedger creates a service over an explicit ledger implementation
func NewWithLedger(entries ledger, resolver registry.Resolver, boxes *leitner.Config) *Service {
	return &Service{
		entries:  entries,
		resolver: resolver,
		boxes:    boxes,
	}
}

// Boxes returns the box ladder the service schedules with
func (s *Service) Boxes() *leitner.Config {
	return s.boxes
}

// AddItem puts a learning item under coach tracking. Adding an item
// that is already tracked returns the existing entry untouched; prior
// progress is never reset. The optional hint is forwarded to the item
// registry and has no effect on scheduling.
func (s *Service) AddItem(ctx context.Context, userID int64, itemType models.ItemType, itemID int64, hint string) (*models.SrsEntry, error) {
	entry, _, err := s.TrackItem(ctx, userID, itemType, itemID, hint)
	return entry, err
}

// TrackItem is AddItem plus a flag reporting whether a new entry was
// created, for callers like the bulk importer that count both outcomes.
func (s *Service) TrackItem(ctx context.Context, userID int64, itemType models.ItemType, itemID int64, hint string) (*models.SrsEntry, bool, error) {
	if !itemType.Valid() {
		return nil, false, fmt.Errorf("unknown item type %q", itemType)
	}

	entry, created, err := s.entries.Upsert(ctx, userID, itemType, itemID, time.Now())
	if err != nil {
		return nil, false, err
	}

	if created && hint != "" {
		if err := s.resolver.Annotate(ctx, itemType, itemID, hint); err != nil {
			// The hint is advisory; losing it must not fail the add
			log.Printf("Failed to annotate item %s/%d: %v", itemType, itemID, err)
		}
	}

	return entry, created, nil
}

// ReviewItems selects the due entries for a user, bounded by limit and
// optionally restricted to one item type, and resolves their content.
// Entries whose content has been deleted since scheduling are skipped
// and reported in the batch instead of failing it.
func (s *Service) ReviewItems(ctx context.Context, userID int64, filter models.ItemType, limit int) (*models.ReviewBatch, error) {
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("unknown item type %q", filter)
	}
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	entries, err := s.entries.SelectDue(ctx, userID, filter, limit, time.Now(), s.boxes.MaxBox)
	if err != nil {
		return nil, err
	}

	batch := &models.ReviewBatch{}
	for _, entry := range entries {
		item, err := s.resolver.Resolve(ctx, entry.ItemType, entry.ItemID)
		if errors.Is(err, registry.ErrItemNotFound) {
			log.Printf("Skipping entry %d: content %s/%d no longer exists", entry.ID, entry.ItemType, entry.ItemID)
			batch.SkippedEntryIDs = append(batch.SkippedEntryIDs, entry.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve item %s/%d: %v", entry.ItemType, entry.ItemID, err)
		}
		batch.Items = append(batch.Items, models.ResolvedEntry{Entry: entry, Item: item})
	}

	return batch, nil
}

// SubmitReview applies a correctness verdict to one entry and persists
// the recomputed box and review times in a single update. It is the
// only path that mutates scheduling state.
func (s *Service) SubmitReview(ctx context.Context, entryID int64, wasCorrect bool) (*models.SrsEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	s.boxes.Process(entry, wasCorrect, time.Now())

	if err := s.entries.UpdateScheduling(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Summary returns the read-only aggregate for the coach dashboard
func (s *Service) Summary(ctx context.Context, userID int64) (*models.CoachSummary, error) {
	return s.entries.Summary(ctx, userID, time.Now(), s.boxes.MaxBox)
}

// BatchSize returns the user's preferred review batch size
func (s *Service) BatchSize(ctx context.Context, userID int64) int {
	if database.DB == nil {
		return DefaultBatchSize
	}
	config, err := database.GetCoachConfig(ctx, userID)
	if err != nil {
		log.Printf("Failed to load coach config for user %d: %v", userID, err)
		return DefaultBatchSize
	}
	if config == nil || config.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return config.BatchSize
}
