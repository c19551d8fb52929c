package session

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

type reviewCall struct {
	entryID    int64
	wasCorrect bool
}

// fakeReviewer serves queued batches in order and records every
// confirmed ledger write.
type fakeReviewer struct {
	batches []*models.ReviewBatch
	calls   []reviewCall
	errs    map[int64]error
}

func (f *fakeReviewer) ReviewItems(_ context.Context, _ int64, _ models.ItemType, _ int) (*models.ReviewBatch, error) {
	if len(f.batches) == 0 {
		return &models.ReviewBatch{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeReviewer) SubmitReview(_ context.Context, entryID int64, wasCorrect bool) (*models.SrsEntry, error) {
	if err, ok := f.errs[entryID]; ok {
		return nil, err
	}
	f.calls = append(f.calls, reviewCall{entryID, wasCorrect})
	return &models.SrsEntry{ID: entryID}, nil
}

func flashcard(entryID, itemID int64) models.ResolvedEntry {
	return models.ResolvedEntry{
		Entry: models.SrsEntry{ID: entryID, ItemType: models.ItemTypeFlashcard, ItemID: itemID, BoxNumber: 1},
		Item:  &models.ReviewItem{Type: models.ItemTypeFlashcard, ItemID: itemID, Front: "front", Back: "back"},
	}
}

func question(entryID, itemID int64) models.ResolvedEntry {
	return models.ResolvedEntry{
		Entry: models.SrsEntry{ID: entryID, ItemType: models.ItemTypeQuestion, ItemID: itemID, BoxNumber: 1},
		Item:  &models.ReviewItem{Type: models.ItemTypeQuestion, ItemID: itemID, Body: "2+2?", Options: []string{"3", "4"}},
	}
}

func batchOf(items ...models.ResolvedEntry) *models.ReviewBatch {
	return &models.ReviewBatch{Items: items}
}

func TestStartWithNoDueItemsIsExhausted(t *testing.T) {
	m := NewManager(&fakeReviewer{})

	snap, err := m.Start(context.Background(), 1, "", 10)
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, snap.State)
	assert.Nil(t, snap.Current)
	assert.NotEmpty(t, snap.SessionID)
}

func TestStartReportsSkippedContent(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		{Items: []models.ResolvedEntry{flashcard(1, 10)}, SkippedEntryIDs: []int64{7, 8}},
	}}
	m := NewManager(reviewer)

	snap, err := m.Start(context.Background(), 1, "", 10)
	require.NoError(t, err)

	assert.Equal(t, StatePresenting, snap.State)
	assert.Contains(t, snap.Warning, "2")
}

func TestFlashcardRevealFlow(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(flashcard(1, 10)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	snap, err := m.Start(ctx, 1, models.ItemTypeFlashcard, 10)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "front", snap.Current.Front)
	assert.Empty(t, snap.Current.Back, "back must stay hidden until revealed")

	// Grading before reveal is rejected
	_, err = m.SubmitVerdict(ctx, 1, true)
	assert.Error(t, err)
	assert.Empty(t, reviewer.calls)

	snap, err = m.Reveal(1)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingVerdict, snap.State)
	assert.Equal(t, "back", snap.Current.Back)

	snap, err = m.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, []reviewCall{{1, true}}, reviewer.calls)
}

func TestRevealOnlyAppliesToFlashcards(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10)),
	}}
	m := NewManager(reviewer)

	_, err := m.Start(context.Background(), 1, "", 10)
	require.NoError(t, err)

	_, err = m.Reveal(1)
	assert.Error(t, err)
}

func TestQuestionSnapshotCarriesDetourURL(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10)),
	}}
	m := NewManager(reviewer)

	snap, err := m.Start(context.Background(), 1, models.ItemTypeQuestion, 10)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Contains(t, snap.DetourURL, "/quiz/solve/10")
	assert.Contains(t, snap.DetourURL, "entry=1")
}

func TestVerdictsDrainQueueToExhaustion(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10), question(2, 11), question(3, 12)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	snap, err := m.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 1, snap.Position)

	snap, err = m.SubmitVerdict(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Position)

	snap, err = m.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, []reviewCall{{1, true}, {2, false}, {3, true}}, reviewer.calls)
}

func TestQueueRefillsWhenMoreIsDue(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10)),
		batchOf(question(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 1)
	require.NoError(t, err)

	snap, err := m.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 0, snap.Position)
	assert.Equal(t, int64(2), snap.Current.EntryID)
}

func TestVerdictErrorLeavesSessionInPlace(t *testing.T) {
	reviewer := &fakeReviewer{
		batches: []*models.ReviewBatch{batchOf(question(1, 10), question(2, 11))},
		errs:    map[int64]error{1: errors.New("database is down")},
	}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	_, err = m.SubmitVerdict(ctx, 1, true)
	assert.Error(t, err)

	// Position and state survive so the UI can retry
	snap, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 0, snap.Position)
	assert.Equal(t, int64(1), snap.Current.EntryID)
}

func TestVerdictOnVanishedEntrySkipsWithWarning(t *testing.T) {
	reviewer := &fakeReviewer{
		batches: []*models.ReviewBatch{batchOf(question(1, 10), question(2, 11))},
		errs:    map[int64]error{1: coach.ErrEntryNotFound},
	}
	m := NewManager(reviewer)

	_, err := m.Start(context.Background(), 1, "", 10)
	require.NoError(t, err)

	snap, err := m.SubmitVerdict(context.Background(), 1, true)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Warning)
	assert.Equal(t, int64(2), snap.Current.EntryID)
	assert.Empty(t, reviewer.calls)
}

func TestResumeAppliesVerdictAndAdvances(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10), flashcard(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	snap, err := m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true})
	require.NoError(t, err)

	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 1, snap.Position)
	assert.Equal(t, int64(2), snap.Current.EntryID)
	assert.Equal(t, []reviewCall{{1, true}}, reviewer.calls)
}

func TestResumeReplayIsIdempotent(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10), flashcard(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	first, err := m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true})
	require.NoError(t, err)

	// Browser back plus re-navigation delivers the same token again
	second, err := m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true})
	require.NoError(t, err)

	assert.Equal(t, first.Position, second.Position)
	assert.Equal(t, first.Current.EntryID, second.Current.EntryID)
	assert.Len(t, reviewer.calls, 1, "the replayed token must not write the ledger twice")
}

func TestInlineVerdictDoesNotDisplaceHandoffGuard(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10), flashcard(2, 11), question(3, 12)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	// Detour return grades entry 1
	_, err = m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true})
	require.NoError(t, err)

	// An inline flashcard verdict lands between the return and its replay
	_, err = m.Reveal(1)
	require.NoError(t, err)
	_, err = m.SubmitVerdict(ctx, 1, true)
	require.NoError(t, err)

	// Browser back re-delivers the entry-1 token; it must still be caught
	snap, err := m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true})
	require.NoError(t, err)

	assert.Equal(t, []reviewCall{{1, true}, {2, true}}, reviewer.calls,
		"the replayed token must not write the ledger again")
	assert.Empty(t, snap.Warning)
	assert.Equal(t, int64(3), snap.Current.EntryID)
}

func TestResumeStaleHandoffWarnsWithoutMoving(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(1, 10), question(2, 11), question(3, 12)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	// A token for an entry that is not the current one
	snap, err := m.Resume(ctx, 1, Token{EntryID: 3, Verdict: false})
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Warning)
	assert.Equal(t, 0, snap.Position)
	assert.Equal(t, int64(1), snap.Current.EntryID)
	// The ledger write still happened
	assert.Equal(t, []reviewCall{{3, false}}, reviewer.calls)
	// The graded entry is no longer queued for a second presentation
	assert.Equal(t, 2, snap.QueueLength)
}

func TestResumeWithoutSessionStartsFresh(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(question(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	snap, err := m.Resume(ctx, 1, Token{EntryID: 1, Verdict: true, Filter: models.ItemTypeQuestion})
	require.NoError(t, err)

	assert.Equal(t, []reviewCall{{1, true}}, reviewer.calls)
	assert.Equal(t, models.ItemTypeQuestion, snap.Filter)
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, int64(2), snap.Current.EntryID)
}

func TestAbandonDropsSession(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(flashcard(1, 10)),
	}}
	m := NewManager(reviewer)

	_, err := m.Start(context.Background(), 1, "", 10)
	require.NoError(t, err)

	m.Abandon(1)

	_, err = m.Get(1)
	assert.ErrorIs(t, err, ErrNoSession)
	// Nothing was ever written for the un-graded entry
	assert.Empty(t, reviewer.calls)
}

// gateReviewer blocks one user's due-set fetch until released
type gateReviewer struct {
	slow    int64
	entered chan int64
	release chan struct{}
}

func (g *gateReviewer) ReviewItems(_ context.Context, userID int64, _ models.ItemType, _ int) (*models.ReviewBatch, error) {
	if userID == g.slow {
		g.entered <- userID
		<-g.release
	}
	return &models.ReviewBatch{}, nil
}

func (g *gateReviewer) SubmitReview(_ context.Context, entryID int64, _ bool) (*models.SrsEntry, error) {
	return &models.SrsEntry{ID: entryID}, nil
}

func TestSlowSessionDoesNotStallOtherUsers(t *testing.T) {
	g := &gateReviewer{slow: 1, entered: make(chan int64), release: make(chan struct{})}
	m := NewManager(g)

	done := make(chan struct{})
	go func() {
		_, _ = m.Start(context.Background(), 1, "", 10)
		close(done)
	}()
	<-g.entered // user 1 is now blocked mid-fetch

	// User 2's session must complete while user 1's fetch hangs
	snap, err := m.Start(context.Background(), 2, "", 10)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, snap.State)

	close(g.release)
	<-done
}

func TestMixedQueueFlashcardFailThenDetourSuccess(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(flashcard(1, 10), question(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	_, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	// Flashcard: reveal, then grade wrong
	_, err = m.Reveal(1)
	require.NoError(t, err)
	snap, err := m.SubmitVerdict(ctx, 1, false)
	require.NoError(t, err)

	// Question presented next, with a detour address
	require.NotNil(t, snap.Current)
	assert.Equal(t, int64(2), snap.Current.EntryID)
	assert.NotEmpty(t, snap.DetourURL)

	// The external view grades correct and redirects to the return address
	loc, err := EncodeReturn(ReturnLocation(snap.Filter), 2, true)
	require.NoError(t, err)
	u, err := url.Parse(loc)
	require.NoError(t, err)
	token, ok, err := DecodeReturn(u.Query())
	require.NoError(t, err)
	require.True(t, ok)

	snap, err = m.Resume(ctx, 1, *token)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, []reviewCall{{1, false}, {2, true}}, reviewer.calls)
}

func TestStartReplacesExistingSession(t *testing.T) {
	reviewer := &fakeReviewer{batches: []*models.ReviewBatch{
		batchOf(flashcard(1, 10)),
		batchOf(flashcard(2, 11)),
	}}
	m := NewManager(reviewer)
	ctx := context.Background()

	first, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	second, err := m.Start(ctx, 1, "", 10)
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, int64(2), second.Current.EntryID)
}
