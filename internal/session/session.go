// Package session drives one interactive review pass over a batch of
// due entries, including resumption after a detour to an external view.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// State is the review session machine state
type State string

const (
	// StatePresenting means the current entry's item is on display
	StatePresenting State = "presenting"
	// StateAwaitingVerdict means the answer is shown (flashcard) or a
	// detour is pending, and the next input is a correctness verdict
	StateAwaitingVerdict State = "awaiting_verdict"
	// StateExhausted means the queue drained and no due items remain
	StateExhausted State = "exhausted"
)

// ErrNoSession is returned when a user has no active session
var ErrNoSession = errors.New("no active review session")

// Reviewer is the slice of the coach service the session machine drives
type Reviewer interface {
	ReviewItems(ctx context.Context, userID int64, filter models.ItemType, limit int) (*models.ReviewBatch, error)
	SubmitReview(ctx context.Context, entryID int64, wasCorrect bool) (*models.SrsEntry, error)
}

// Session is the in-memory state of one interactive pass. It is never
// persisted: abandoning it loses no scheduling state, because the
// ledger is only written when a verdict is confirmed.
type Session struct {
	ID        string
	UserID    int64
	Filter    models.ItemType
	BatchSize int
	State     State
	Queue     []models.ResolvedEntry
	Position  int
	Revealed  bool
	Warning   string

	// Idempotency guard: the last (entry, verdict) pair applied through
	// a handoff, so a replayed return (browser back, reload) is a no-op.
	lastEntryID int64
	lastVerdict bool
	hasApplied  bool
}

// Manager owns the active sessions, at most one per user. Operations on
// one user's session are serialized by a per-user lock, so a slow ledger
// or content-service call for one user never stalls another user's
// session.
type Manager struct {
	mu       sync.Mutex // guards sessions and locks
	reviewer Reviewer
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

// NewManager creates a session manager
func NewManager(reviewer Reviewer) *Manager {
	return &Manager{
		reviewer: reviewer,
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the lock serializing one user's session operations
func (m *Manager) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

func (m *Manager) session(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *Manager) setSession(userID int64, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = sess
}

// Start opens a fresh session for the user, replacing any existing one.
// An empty due set is not an error: the session starts exhausted and
// the UI renders its terminal state.
func (m *Manager) Start(ctx context.Context, userID int64, filter models.ItemType, limit int) (*Snapshot, error) {
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("unknown item type %q", filter)
	}
	if limit <= 0 {
		limit = coach.DefaultBatchSize
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filter:    filter,
		BatchSize: limit,
	}
	if err := m.load(ctx, sess); err != nil {
		return nil, err
	}
	m.setSession(userID, sess)
	return m.snapshot(sess), nil
}

// Get returns the current snapshot of the user's session
func (m *Manager) Get(userID int64) (*Snapshot, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.session(userID)
	if sess == nil {
		return nil, ErrNoSession
	}
	return m.snapshot(sess), nil
}

// Reveal shows the back of the current flashcard. It never touches the
// ledger: a partial reveal followed by abandonment leaves no trace.
func (m *Manager) Reveal(userID int64) (*Snapshot, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.session(userID)
	if sess == nil {
		return nil, ErrNoSession
	}
	current := sess.current()
	if current == nil {
		return nil, fmt.Errorf("nothing to reveal: session is %s", sess.State)
	}
	if current.Entry.ItemType != models.ItemTypeFlashcard {
		return nil, fmt.Errorf("item type %s has no reveal step", current.Entry.ItemType)
	}

	sess.Warning = ""
	sess.Revealed = true
	sess.State = StateAwaitingVerdict
	return m.snapshot(sess), nil
}

// SubmitVerdict applies a verdict to the current entry and advances.
// The position only moves after the ledger write is confirmed; on a
// transport failure the session stays where it is so the UI can retry.
func (m *Manager) SubmitVerdict(ctx context.Context, userID int64, wasCorrect bool) (*Snapshot, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.session(userID)
	if sess == nil {
		return nil, ErrNoSession
	}
	current := sess.current()
	if current == nil {
		return nil, fmt.Errorf("no entry to grade: session is %s", sess.State)
	}
	if current.Entry.ItemType == models.ItemTypeFlashcard && !sess.Revealed {
		return nil, errors.New("reveal the answer before grading a flashcard")
	}

	sess.Warning = ""
	if err := m.applyAndAdvance(ctx, sess, current.Entry.ID, wasCorrect, false); err != nil {
		return nil, err
	}
	return m.snapshot(sess), nil
}

// Resume processes a detour return carrying a handoff token. The same
// (entry, verdict) pair delivered twice applies exactly one transition;
// a token for an entry outside the queue still updates the ledger but
// is surfaced as a dismissible warning without moving the position.
// If the user has no session (e.g. the queue context was lost), the
// verdict is applied and a fresh session is started with the token's
// filter so the review pass continues deterministically.
func (m *Manager) Resume(ctx context.Context, userID int64, token Token) (*Snapshot, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.session(userID)
	if sess == nil {
		return m.resumeWithoutSession(ctx, userID, token)
	}

	// Duplicate delivery of the token already applied: silent no-op
	if sess.hasApplied && sess.lastEntryID == token.EntryID && sess.lastVerdict == token.Verdict {
		return m.snapshot(sess), nil
	}

	sess.Warning = ""
	current := sess.current()
	if current != nil && current.Entry.ID == token.EntryID {
		if err := m.applyAndAdvance(ctx, sess, token.EntryID, token.Verdict, true); err != nil {
			return nil, err
		}
		return m.snapshot(sess), nil
	}

	// Stale handoff: the verdict is valid for the ledger regardless of
	// queue membership, but the queue position must not move.
	if err := m.applyStale(ctx, sess, token); err != nil {
		return nil, err
	}
	return m.snapshot(sess), nil
}

// Abandon drops the user's session. Safe at any point: the entry being
// presented was never written.
func (m *Manager) Abandon(userID int64) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// load fetches a batch of due entries and enters the matching state
func (m *Manager) load(ctx context.Context, sess *Session) error {
	batch, err := m.reviewer.ReviewItems(ctx, sess.UserID, sess.Filter, sess.BatchSize)
	if err != nil {
		return err
	}

	sess.Queue = batch.Items
	sess.Position = 0
	sess.Revealed = false
	if len(batch.SkippedEntryIDs) > 0 {
		sess.Warning = fmt.Sprintf("%d scheduled items are no longer available and were skipped", len(batch.SkippedEntryIDs))
	}

	if len(sess.Queue) == 0 {
		sess.State = StateExhausted
	} else {
		sess.State = StatePresenting
	}
	return nil
}

// applyAndAdvance persists one verdict and moves to the next entry. A
// vanished entry is non-fatal: the session records a warning and skips
// it. Any other persistence failure leaves position and state alone.
// Only verdicts arriving through a handoff record the replay guard;
// inline verdicts must not overwrite it, or a detour return followed by
// an inline answer would let a replayed token slip past the guard and
// write the ledger twice.
func (m *Manager) applyAndAdvance(ctx context.Context, sess *Session, entryID int64, wasCorrect bool, fromHandoff bool) error {
	_, err := m.reviewer.SubmitReview(ctx, entryID, wasCorrect)
	if errors.Is(err, coach.ErrEntryNotFound) {
		sess.Warning = "that item's schedule entry no longer exists; skipped"
	} else if err != nil {
		return err
	} else if fromHandoff {
		sess.lastEntryID = entryID
		sess.lastVerdict = wasCorrect
		sess.hasApplied = true
	}

	sess.Position++
	if sess.Position < len(sess.Queue) {
		sess.State = StatePresenting
		sess.Revealed = false
		return nil
	}

	// Batch exhausted: refill, or finish if nothing else is due
	return m.load(ctx, sess)
}

// applyStale writes a verdict for an entry the session does not
// recognize as current. If the entry sits later in the queue it is
// removed so it is not presented again after this verdict.
func (m *Manager) applyStale(ctx context.Context, sess *Session, token Token) error {
	_, err := m.reviewer.SubmitReview(ctx, token.EntryID, token.Verdict)
	if errors.Is(err, coach.ErrEntryNotFound) {
		sess.Warning = "that review could not be recorded: the item is no longer tracked"
		return nil
	}
	if err != nil {
		return err
	}

	sess.lastEntryID = token.EntryID
	sess.lastVerdict = token.Verdict
	sess.hasApplied = true
	sess.Warning = "a review from another view was recorded outside the current queue"

	for i := sess.Position + 1; i < len(sess.Queue); i++ {
		if sess.Queue[i].Entry.ID == token.EntryID {
			sess.Queue = append(sess.Queue[:i], sess.Queue[i+1:]...)
			break
		}
	}
	return nil
}

// resumeWithoutSession handles a detour return with no live session:
// the verdict still counts, then a fresh session resumes the pass.
func (m *Manager) resumeWithoutSession(ctx context.Context, userID int64, token Token) (*Snapshot, error) {
	warning := ""
	_, err := m.reviewer.SubmitReview(ctx, token.EntryID, token.Verdict)
	if errors.Is(err, coach.ErrEntryNotFound) {
		warning = "that review could not be recorded: the item is no longer tracked"
	} else if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filter:    token.Filter,
		BatchSize: coach.DefaultBatchSize,
	}
	sess.lastEntryID = token.EntryID
	sess.lastVerdict = token.Verdict
	sess.hasApplied = err == nil

	if err := m.load(ctx, sess); err != nil {
		return nil, err
	}
	if warning != "" {
		sess.Warning = warning
	}
	m.setSession(userID, sess)
	return m.snapshot(sess), nil
}

// current returns the entry being presented, or nil when exhausted
func (s *Session) current() *models.ResolvedEntry {
	if s.State == StateExhausted || s.Position >= len(s.Queue) {
		return nil
	}
	return &s.Queue[s.Position]
}
