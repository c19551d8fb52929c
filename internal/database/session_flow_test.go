package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/internal/database"
	"github.com/srgulbay/mikrocoach/internal/leitner"
	"github.com/srgulbay/mikrocoach/internal/registry"
	"github.com/srgulbay/mikrocoach/internal/session"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// Drives an overdue box-2 entry through the session machine, the coach
// service and the sqlite-backed ledger in one pass.
func TestOverdueEntryPromotedThroughFullStack(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	now := time.Now().UTC()
	repo := database.NewEntryRepository()

	entry, _, err := repo.Upsert(ctx, 1, models.ItemTypeFlashcard, 10, now)
	require.NoError(t, err)
	entry.BoxNumber = 2
	yesterday := now.Add(-24 * time.Hour)
	entry.LastReviewedAt = &yesterday
	entry.NextReviewAt = &yesterday
	require.NoError(t, repo.UpdateScheduling(ctx, entry))

	resolver := registry.NewFake()
	resolver.Put(&models.ReviewItem{Type: models.ItemTypeFlashcard, ItemID: 10, Front: "f", Back: "b"})

	boxes := leitner.DefaultConfig()
	sessions := session.NewManager(coach.New(resolver, boxes))

	snap, err := sessions.Start(ctx, 1, "", 10)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, 1, snap.QueueLength)
	assert.Equal(t, entry.ID, snap.Current.EntryID)

	_, err = sessions.Reveal(1)
	require.NoError(t, err)

	snap, err = sessions.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, session.StateExhausted, snap.State)

	stored, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.BoxNumber)
	require.NotNil(t, stored.NextReviewAt)
	assert.WithinDuration(t, time.Now().Add(boxes.Interval(3)), *stored.NextReviewAt, time.Minute)
	require.NotNil(t, stored.LastReviewedAt)
	assert.WithinDuration(t, time.Now(), *stored.LastReviewedAt, time.Minute)
}
